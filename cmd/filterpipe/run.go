package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/codec"
	"github.com/nao1215/filterpipe/internal/config"
	"github.com/nao1215/filterpipe/internal/database"
	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter/builtin"
	"github.com/nao1215/filterpipe/internal/log"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/pipeline"
	"github.com/nao1215/filterpipe/internal/report"
)

// ErrRunFailed is returned when at least one pipeline did not succeed.
var ErrRunFailed = errors.New("pipeline did not succeed")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [pipeline-file...]",
		Short: "Preflight and execute pipelines",
		Long: `Run reads each pipeline document, preflights it and, when preflight
succeeds, executes its filters in order against a fresh in-memory data store.

Several files are run concurrently, each with its own store. Every run is
recorded in the history database unless --no-history is given.

Examples:
  # Run a single pipeline
  filterpipe run pipeline.json

  # Run several pipelines, four at a time, with a Markdown report
  filterpipe run -b 4 -r markdown a.json b.json c.json

  # Stop a run that takes longer than a minute
  filterpipe run -t 1m pipeline.json

  # Write a JSON report to a file
  filterpipe run -r json -o reports/run.json pipeline.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelinesCmd(cmd, args, model.RunModeRun)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// NewPreflightCmd creates the preflight command.
func NewPreflightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preflight [pipeline-file...]",
		Short: "Validate pipelines without executing them",
		Long: `Preflight validates each filter of each pipeline against the data its
predecessors would create. No filter executes. Every failing filter is
reported, not only the first.

Examples:
  # Check a pipeline before running it
  filterpipe preflight pipeline.json

  # Stop at the first failing filter
  filterpipe preflight --halt-on-error pipeline.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelinesCmd(cmd, args, model.RunModePreflight)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// addRunFlags adds the flags shared by run and preflight.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("report", "r", config.DefaultReportFormat,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pipelines run concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Maximum duration of each run (0 means no limit)")
	cmd.Flags().Bool("halt-on-error", false,
		"Stop preflight at the first failing filter")
	cmd.Flags().Bool("no-history", false,
		"Do not record runs in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
}

// runner holds what one run or preflight invocation needs.
type runner struct {
	cfg    *config.Config
	mode   model.RunMode
	logger *slog.Logger
	out    io.Writer

	// forceReport and forceTimeout are set when the flag was given, so
	// that it wins over the configuration file.
	forceReport  bool
	forceTimeout bool
}

// loaded is a decoded pipeline with its per-file settings.
type loaded struct {
	path        string
	fingerprint string
	pipeline    *pipeline.Pipeline

	// messages were produced while reading and overriding the document.
	messages []model.PipelineMessage

	format  string
	timeout time.Duration
}

// runPipelinesCmd executes the run and preflight commands.
func runPipelinesCmd(cmd *cobra.Command, args []string, mode model.RunMode) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	r := &runner{
		cfg:          cfg,
		mode:         mode,
		logger:       logger,
		out:          cmd.OutOrStdout(),
		forceReport:  cmd.Flags().Changed("report"),
		forceTimeout: cmd.Flags().Changed("timeout"),
	}
	return r.run(ctx)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.PipelineFiles = args
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.LogFormat = getInheritedString(cmd, "log-format", config.DefaultLogFormat)
	cfg.ConfigFilePath = getInheritedString(cmd, "config", "")

	var err error
	if cfg.ReportFormat, err = cmd.Flags().GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.HaltOnPreflightError, err = cmd.Flags().GetBool("halt-on-error"); err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if cfg.File, err = loadConfigFile(cfg.ConfigFilePath); err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("report") && cfg.File.Defaults.Report != "" {
		cfg.ReportFormat = cfg.File.Defaults.Report
	}
	if !cmd.Flags().Changed("timeout") && cfg.File.Defaults.Timeout != 0 {
		cfg.Timeout = cfg.File.Defaults.Timeout
	}
	return cfg, nil
}

// loadConfigFile loads the configuration file. A path given explicitly
// must exist; otherwise a missing file yields an empty configuration.
func loadConfigFile(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		return cf, nil
	case explicitPath != "":
		return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
	default:
		return &config.File{Pipelines: make(map[string]config.PipelineConfig)}, nil
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getInheritedString retrieves a persistent string flag of the root command.
func getInheritedString(cmd *cobra.Command, name, def string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return def
		}
	}
	return value
}

// setupLogger creates a structured logger based on the configuration.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return log.New(w, log.Options{
		Verbose: cfg.Verbose,
		Format:  cfg.LogFormat,
	})
}

// run loads every pipeline, runs them as one batch and reports the results.
func (r *runner) run(ctx context.Context) error {
	r.logger.Info("starting",
		"mode", string(r.mode),
		"pipelines", r.cfg.PipelineFiles,
		"batchSize", r.cfg.BatchSize,
		"saveHistory", r.cfg.SaveHistory,
	)

	pipelines, err := r.load()
	if err != nil {
		return err
	}

	jobs := make([]pipeline.Job, len(pipelines))
	for i, l := range pipelines {
		jobs[i] = pipeline.Job{
			Name:     l.path,
			Pipeline: l.pipeline,
			Store:    datastore.NewMemory(),
			Mode:     r.mode,
			Timeout:  l.timeout,
		}
	}

	bp := pipeline.NewBatchProcessor(
		pipeline.WithConcurrency(r.cfg.BatchSize),
		pipeline.WithBatchLogger(r.logger),
	)
	reports, batchErr := bp.ProcessBatch(ctx, jobs)

	finished := make([]*model.RunReport, 0, len(reports))
	for i, rep := range reports {
		if rep == nil {
			continue
		}
		pipelines[i].complete(rep)
		finished = append(finished, rep)
	}

	if err := r.save(ctx, finished); err != nil {
		r.logger.Error("failed to save run history", "error", err)
	}
	if err := r.output(pipelines, reports, finished); err != nil {
		return err
	}

	if batchErr != nil {
		return fmt.Errorf("batch interrupted: %w", batchErr)
	}
	failed := 0
	for _, rep := range finished {
		if !rep.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d pipelines", ErrRunFailed, failed, len(finished))
	}
	return nil
}

// load reads every pipeline file and applies the configuration file to it.
func (r *runner) load() ([]*loaded, error) {
	c := codec.New(builtin.NewRegistry(), codec.WithLogger(r.logger))
	observer := log.NewMessageLogger(r.logger)

	pipelines := make([]*loaded, 0, len(r.cfg.PipelineFiles))
	for _, path := range r.cfg.PipelineFiles {
		data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
		if err != nil {
			return nil, fmt.Errorf("failed to read pipeline file: %w", err)
		}

		p, messages, err := c.Read(data,
			pipeline.WithObserver(observer),
			pipeline.WithHaltOnPreflightError(r.cfg.HaltOnPreflightError),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		pc := r.cfg.File.GetPipelineConfig(p.Name(), filepath.Base(path))
		overrides := codec.Overrides{Disabled: pc.Disabled, Parameters: pc.Parameters}
		if !overrides.IsZero() {
			warnings, err := overrides.Apply(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			messages = append(messages, warnings...)
			r.logger.Debug("applied configuration overrides",
				"pipeline", p.Name(),
				"disabled", len(pc.Disabled),
				"filters", len(pc.Parameters),
			)
		}
		for _, m := range messages {
			observer.Observe(m)
		}

		l := &loaded{
			path:        path,
			fingerprint: codec.Fingerprint(data),
			pipeline:    p,
			messages:    messages,
			format:      r.cfg.ReportFormat,
			timeout:     r.cfg.Timeout,
		}
		if pc.Report != "" && !r.forceReport {
			if !slices.Contains(config.ReportFormats, pc.Report) {
				return nil, fmt.Errorf("%s: %w: %q", path, config.ErrInvalidReportFormat, pc.Report)
			}
			l.format = pc.Report
		}
		if pc.Timeout != 0 && !r.forceTimeout {
			l.timeout = pc.Timeout
		}
		pipelines = append(pipelines, l)
	}
	return pipelines, nil
}

// complete fills in what the batch processor cannot know about rep.
func (l *loaded) complete(rep *model.RunReport) {
	rep.Source = l.path
	rep.Fingerprint = l.fingerprint
	rep.Messages = append(slices.Clone(l.messages), rep.Messages...)
}

// save records reports in the history database when enabled.
func (r *runner) save(ctx context.Context, reports []*model.RunReport) error {
	if !r.cfg.SaveHistory || len(reports) == 0 {
		return nil
	}

	db, err := database.Open(r.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var errs []error
	for _, rep := range reports {
		if err := db.SaveRun(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rep.Source, err))
			continue
		}
		r.logger.Info("run saved", "runID", rep.RunID, "db", db.Path())
	}
	return errors.Join(errs...)
}

// output writes one report per finished pipeline and, for several
// pipelines, a batch summary.
func (r *runner) output(pipelines []*loaded, reports, finished []*model.RunReport) error {
	w, closeOutput, err := openOutput(r.cfg.ReportFile, r.out)
	if err != nil {
		return err
	}
	defer closeOutput()

	for i, rep := range reports {
		if rep == nil {
			continue
		}
		rw, err := newReportWriter(pipelines[i].format, w, r.cfg.Verbose)
		if err != nil {
			return err
		}
		if _, err := rw.Write(rep); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if len(finished) > 1 {
		rw, err := newReportWriter(r.cfg.ReportFormat, w, r.cfg.Verbose)
		if err != nil {
			return err
		}
		if _, err := rw.WriteSummary(finished); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if r.cfg.ReportFile != "" {
		fmt.Fprintf(r.out, "Report saved to: %s\n", r.cfg.ReportFile)
	}
	return nil
}

// newReportWriter returns the report writer for format.
func newReportWriter(format string, w io.Writer, verbose bool) (report.Writer, error) {
	if format == report.FormatText {
		return report.NewSimpleWriter(w, report.WithVerbose(verbose)), nil
	}
	return report.New(format, w)
}

// openOutput returns the destination of reports: the file at path, or
// stdout when path is empty.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
