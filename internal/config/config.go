package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "filterpipe"

	// DefaultBatchSize is the number of pipelines run at once by --batch.
	DefaultBatchSize = 10

	// DefaultTimeout of zero lets a run take as long as it needs.
	// Cancellation still works through SIGINT.
	DefaultTimeout = time.Duration(0)

	// DefaultReportFormat is the human-readable text report.
	DefaultReportFormat = ReportFormatText

	// DefaultLogFormat is slog's text handler.
	DefaultLogFormat = LogFormatText
)

// Report formats.
const (
	ReportFormatText     = "text"
	ReportFormatJSON     = "json"
	ReportFormatMarkdown = "markdown"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ReportFormats lists the accepted report formats.
var ReportFormats = []string{ReportFormatText, ReportFormatJSON, ReportFormatMarkdown}

// Config holds the options of one filterpipe invocation.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// PipelineFiles are the pipeline documents to process.
	PipelineFiles []string

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string

	// ConfigFilePath is the explicit path of the YAML file. When empty,
	// FindConfigFile searches the usual locations.
	ConfigFilePath string

	// File is the loaded YAML file, if any.
	File *File

	// ReportFormat is one of ReportFormats.
	ReportFormat string

	// ReportFile is where the report is written. Empty means stdout.
	ReportFile string

	// Timeout bounds each run. Zero means no limit.
	Timeout time.Duration

	// BatchSize is the number of pipelines run concurrently.
	BatchSize int

	// HaltOnPreflightError stops preflight at the first failing filter.
	HaltOnPreflightError bool

	// DBDir is the directory of the run history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveHistory records every run in the history database.
	SaveHistory bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		LogFormat:    DefaultLogFormat,
		ReportFormat: DefaultReportFormat,
		Timeout:      DefaultTimeout,
		BatchSize:    DefaultBatchSize,
		DBDir:        XDGDataDir(),
		SaveHistory:  true,
	}
}

// XDGDataDir returns the XDG data directory for filterpipe.
// On Linux: ~/.local/share/filterpipe
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for filterpipe.
// On Linux: ~/.config/filterpipe
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.PipelineFiles) == 0 {
		return ErrNoPipeline
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if !slices.Contains(ReportFormats, c.ReportFormat) {
		return ErrInvalidReportFormat
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}
	if c.SaveHistory && c.DBDir == "" {
		return ErrNoDBDir
	}
	return nil
}
