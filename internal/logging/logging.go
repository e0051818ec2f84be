// Package logging builds the run logger. Every entry is written once to a
// single text handler whose output fans out to the console and, when
// configured, an append-only log file, so both carry identical lines.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options configures New.
type Options struct {
	// Console receives every entry. Nil means os.Stderr.
	Console io.Writer
	// FilePath, when set, is opened in append mode and receives every entry.
	FilePath string
	// Level is the minimum level written. Nil means info.
	Level slog.Leveler
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a Closer for the log file. The Closer is never
// nil and must be closed once logging is finished.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	var out io.Writer = console
	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		f, err := openLogFile(opts.FilePath)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(console, f)
		closer = f
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 - path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
