package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/easyimport/internal/config"
	"github.com/steveyegge/easyimport/internal/journal"
	"github.com/steveyegge/easyimport/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded import runs",
	Long: `Show import runs recorded in the journal, newest first.

With a run id (or a unique prefix of one) list the issues that run created.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("journal")
		if path == "" {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil && !errors.Is(err, config.ErrTemplateCreated) {
				FatalError("%v", err)
			}
			if cfg != nil {
				path = cfg.Import.Journal
			}
		}
		if path == "" {
			FatalErrorWithHint("no journal configured",
				"Pass --journal or run 'easyimport config set import.journal <file>'")
		}

		j, err := journal.Open(path)
		if err != nil {
			FatalError("%v", err)
		}
		defer j.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		ctx := commandContext()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			err = printRun(ctx, out, j, args[0], asJSON)
		} else {
			err = printRuns(ctx, out, j, limit, asJSON)
		}
		if err != nil {
			FatalError("%v", err)
		}
	},
}

func init() {
	historyCmd.Flags().String("journal", "", "Journal file (default: import.journal from config)")
	historyCmd.Flags().Int("limit", 20, "Number of runs to show")
	historyCmd.Flags().Bool("json", false, "Output in JSON format")
	rootCmd.AddCommand(historyCmd)
}

func printRuns(ctx context.Context, w io.Writer, j *journal.Journal, limit int, asJSON bool) error {
	runs, err := j.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No runs recorded yet."))
		return nil
	}

	fmt.Fprintln(w, ui.RenderCategory("runs"))
	for _, r := range runs {
		fmt.Fprintf(w, "  %s %s  %s  %s\n",
			statusIcon(r),
			ui.RenderAccent(r.ID[:8]),
			r.StartedAt.Local().Format(time.DateTime),
			ui.TruncateSimple(r.Input, 40))
		fmt.Fprintf(w, "    %s\n", ui.RenderMuted(r.Stats.String()))
	}
	return nil
}

func printRun(ctx context.Context, w io.Writer, j *journal.Journal, id string, asJSON bool) error {
	run, err := j.FindRun(ctx, id)
	if err != nil {
		return err
	}
	issues, err := j.RunIssues(ctx, run.ID)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, map[string]any{"run": run, "issues": issues})
	}

	fmt.Fprintf(w, "%s %s %s\n", statusIcon(run), ui.RenderAccent(run.ID), ui.RenderMuted(run.Status))
	fmt.Fprintf(w, "  input:   %s\n", run.Input)
	fmt.Fprintf(w, "  server:  %s\n", run.BaseURL)
	fmt.Fprintf(w, "  started: %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", ui.RenderFail(run.Error))
	}
	fmt.Fprintln(w, ui.RenderSeparator())
	for _, is := range issues {
		indent := ""
		for i := 1; i < is.Depth; i++ {
			indent += "  "
		}
		fmt.Fprintf(w, "%s %s%s %s\n",
			ui.RenderMuted(fmt.Sprintf("%5d", is.Line)),
			indent,
			ui.RenderAccent(fmt.Sprintf("#%d", is.IssueID)),
			ui.TruncateSimple(is.Subject, 72))
	}
	return nil
}

func statusIcon(r journal.RunSummary) string {
	switch {
	case r.Status == journal.StatusFailed || r.Stats.Errors > 0:
		return ui.RenderFail(ui.IconFail)
	case r.Status == journal.StatusRunning || r.Stats.Warnings > 0:
		return ui.RenderWarn(ui.IconWarn)
	case r.Status == journal.StatusDryRun:
		return ui.RenderMuted(ui.IconInfo)
	default:
		return ui.RenderPass(ui.IconPass)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
