package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// PagerOptions controls ToPager.
type PagerOptions struct {
	NoPager bool // --no-pager
	// Out receives the content instead of a pager. Nil means stdout.
	Out io.Writer
}

// pagerCommand returns the pager to run, or nil when content should be
// written directly: --no-pager, an explicit Out, EASYIMPORT_NO_PAGER, or
// stdout not being a terminal. EASYIMPORT_PAGER wins over PAGER; less is
// the fallback.
func pagerCommand(opts PagerOptions) []string {
	if opts.NoPager || opts.Out != nil || os.Getenv("EASYIMPORT_NO_PAGER") != "" || !IsTerminal() {
		return nil
	}
	pager := firstSet(os.Getenv("EASYIMPORT_PAGER"), os.Getenv("PAGER"), "less")
	return strings.Fields(pager)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ToPager shows content through a pager when stdout is a terminal and
// writes it directly otherwise. less gets -RFX unless LESS is set, so a
// guide that fits on screen is printed without paging.
func ToPager(content string, opts PagerOptions) error {
	args := pagerCommand(opts)
	if len(args) == 0 {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		_, err := fmt.Fprint(out, content)
		return err
	}

	cmd := exec.Command(args[0], args[1:]...) // #nosec G204 - pager chosen by the user
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
