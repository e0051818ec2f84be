package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/easyimport/internal/config"
	"github.com/steveyegge/easyimport/internal/debug"
	"github.com/steveyegge/easyimport/internal/telemetry"
	"github.com/steveyegge/easyimport/internal/ui"
)

var (
	// Version is set at build time with -ldflags.
	Version = "0.3.0"
	Build   = "dev"

	configPath  string
	logFileFlag string
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Append log entries to this file (default: import.log_file from config)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors and warnings only)")

	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Build)
	rootCmd.SetVersionTemplate("easyimport version {{.Version}}\n")
}

var rootCmd = &cobra.Command{
	Use:   "easyimport",
	Short: "easyimport - bulk-create Redmine issues from an outline",
	Long: `Create Redmine issues from a plain-text outline.

Project names start a section, dashes give the nesting depth of each issue,
and inline tags such as p=3 or a=12 set issue fields. Run
"easyimport format" for the full reference.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyVerbosityFlags()
		ui.ApplyColorProfile()
	},
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package
// so the logger level and normal output follow them.
func applyVerbosityFlags() {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	path, err := config.DefaultPath()
	if err != nil {
		FatalErrorWithHint(err.Error(), "Pass the config file location with --config")
	}
	return path
}

// commandContext returns the signal-aware root context, or a background
// context when PersistentPreRun did not run (tests).
func commandContext() context.Context {
	if rootCtx != nil {
		return rootCtx
	}
	return context.Background()
}

func main() {
	if err := telemetry.Init(context.Background(), "easyimport", Version); err != nil {
		WarnError("%v", err)
	}

	err := rootCmd.Execute()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	telemetry.Shutdown(shutdownCtx)
	cancel()
	if rootCancel != nil {
		rootCancel()
	}

	if err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
