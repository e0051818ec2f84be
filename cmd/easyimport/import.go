package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/steveyegge/easyimport/internal/config"
	"github.com/steveyegge/easyimport/internal/debug"
	"github.com/steveyegge/easyimport/internal/importer"
	"github.com/steveyegge/easyimport/internal/journal"
	"github.com/steveyegge/easyimport/internal/logging"
	"github.com/steveyegge/easyimport/internal/redmine"
	"github.com/steveyegge/easyimport/internal/telemetry"
	"github.com/steveyegge/easyimport/internal/ui"
)

// importOptions is everything a run needs once flags and config are merged.
type importOptions struct {
	Input           string // path, or "-" for stdin
	DryRun          bool
	Dedupe          bool
	Journal         string
	RetryMaxElapsed time.Duration
	LogFile         string
	Level           slog.Leveler

	Stdin   io.Reader
	Console io.Writer // log entries
	Out     io.Writer // summary; nil suppresses it
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create issues from an outline file",
	Long: `Read an outline file and create one Redmine issue per issue line.

Every line is logged with its number to the console and the log file.
Exit status is 0 when clean, 2 when there were only warnings and 1 on any
error. Use "-" to read the outline from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		cfg := mustLoadConfig(path)

		opts, err := importOptionsFromFlags(cmd, cfg)
		if err != nil {
			return err
		}
		opts.Input = args[0]

		stats, err := runImport(commandContext(), cfg, opts)
		if code := exitCodeFor(stats, err); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	addImportFlags(importCmd.Flags())
	rootCmd.AddCommand(importCmd)
}

func addImportFlags(fs *pflag.FlagSet) {
	fs.Bool("dry-run", false, "Resolve projects and hierarchy without creating issues")
	fs.Bool("dedupe", false, "Reuse an existing issue with the same subject instead of creating one")
	fs.String("journal", "", "Record the run in this SQLite journal (default: import.journal from config)")
	fs.Duration("retry-max-elapsed", 0, "Keep retrying transient API failures this long; 0 disables retries (default: import.retry_max_elapsed from config)")
}

// importOptionsFromFlags merges config values with explicitly set flags.
func importOptionsFromFlags(cmd *cobra.Command, cfg *config.Config) (importOptions, error) {
	retry, err := cfg.RetryMaxElapsed()
	if err != nil {
		return importOptions{}, fmt.Errorf("import.retry_max_elapsed: %w", err)
	}
	opts := importOptions{
		Dedupe:          cfg.Import.Dedupe,
		Journal:         cfg.Import.Journal,
		RetryMaxElapsed: retry,
		LogFile:         cfg.Import.LogFile,
		Level:           debug.Level(),
		Stdin:           os.Stdin,
		Console:         os.Stderr,
		Out:             os.Stdout,
	}

	flags := cmd.Flags()
	opts.DryRun, _ = flags.GetBool("dry-run")
	if flags.Changed("dedupe") {
		opts.Dedupe, _ = flags.GetBool("dedupe")
	}
	if flags.Changed("journal") {
		opts.Journal, _ = flags.GetString("journal")
	}
	if flags.Changed("retry-max-elapsed") {
		opts.RetryMaxElapsed, _ = flags.GetDuration("retry-max-elapsed")
		if opts.RetryMaxElapsed < 0 {
			return importOptions{}, fmt.Errorf("--retry-max-elapsed must not be negative")
		}
	}
	if logFileFlag != "" {
		opts.LogFile = logFileFlag
	}
	if debug.IsQuiet() {
		opts.Out = nil
	}
	debug.Logf("import options: dry_run=%t dedupe=%t journal=%q retry_max_elapsed=%s log_file=%q\n",
		opts.DryRun, opts.Dedupe, opts.Journal, opts.RetryMaxElapsed, opts.LogFile)
	return opts, nil
}

// runImport performs one import. The error is non-nil only when the run
// could not start or was aborted; line-level problems are in Stats.
func runImport(ctx context.Context, cfg *config.Config, opts importOptions) (stats importer.Stats, err error) {
	log, closer, err := logging.New(logging.Options{
		Console:  opts.Console,
		FilePath: opts.LogFile,
		Level:    opts.Level,
	})
	if err != nil {
		return stats, err
	}
	defer closer.Close()

	input, closeInput, err := openInput(opts)
	if err != nil {
		log.Error("Cannot read import file", "input", opts.Input, "error", err)
		return stats, err
	}
	defer closeInput()

	ctx, span := telemetry.Tracer("").Start(ctx, "import.run")
	span.SetAttributes(
		attribute.String("easyimport.input", opts.Input),
		attribute.Bool("easyimport.dry_run", opts.DryRun),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	client := redmine.NewClient(cfg.API.URL, cfg.API.Key).WithRetryMaxElapsed(opts.RetryMaxElapsed)
	tracker := telemetry.WrapTracker(client)
	var dry *importer.DryRunTracker
	if opts.DryRun {
		dry = importer.NewDryRunTracker(tracker)
		tracker = dry
		log.Info("Dry run: no issues will be created")
	}

	var run *journal.Run
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			log.Error("Cannot open journal", "journal", opts.Journal, "error", err)
			return stats, err
		}
		defer j.Close()

		run, err = j.StartRun(ctx, journal.RunInfo{Input: opts.Input, BaseURL: client.BaseURL, DryRun: opts.DryRun})
		if err != nil {
			log.Error("Cannot start journal run", "journal", opts.Journal, "error", err)
			return stats, err
		}
		log.Info("Recording run in journal", "run_id", run.ID(), "journal", opts.Journal)
	}

	log.Info("Starting import", "input", opts.Input, "api_url", client.BaseURL)

	im := importer.New(tracker, importer.Options{
		Dedupe:   opts.Dedupe,
		Logger:   log,
		Recorder: recorderOf(run),
	})
	stats, err = im.Run(ctx, input)
	if err != nil {
		log.Error("Import aborted", "error", err)
	}

	if run != nil {
		// The run context may already be canceled; the journal must still
		// see the outcome.
		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if ferr := run.Finish(finishCtx, stats, err); ferr != nil {
			log.Warn("Could not finish journal run", "run_id", run.ID(), "error", ferr)
		}
		cancel()
	}

	telemetry.RecordRun(ctx, stats, opts.DryRun)
	if dry != nil {
		log.Info("Dry run complete", "planned", dry.Planned())
	}
	if opts.Out != nil {
		fmt.Fprint(opts.Out, ui.RenderSummary(stats, opts.DryRun))
	}
	return stats, err
}

// recorderOf avoids handing the importer a typed nil.
func recorderOf(run *journal.Run) importer.Recorder {
	if run == nil {
		return nil
	}
	return run
}

func openInput(opts importOptions) (io.Reader, func(), error) {
	if opts.Input == "-" {
		if opts.Stdin == nil {
			return nil, nil, errors.New("no stdin available")
		}
		return opts.Stdin, func() {}, nil
	}
	f, err := os.Open(opts.Input) // #nosec G304 - file named on the command line
	if err != nil {
		return nil, nil, fmt.Errorf("open import file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// exitCodeFor maps a run outcome to the process status: 1 for an aborted
// run or any line error, 2 for warnings only, 0 when clean.
func exitCodeFor(stats importer.Stats, err error) int {
	switch {
	case err != nil, stats.Errors > 0:
		return 1
	case stats.Clean():
		return 0
	default:
		return 2
	}
}
