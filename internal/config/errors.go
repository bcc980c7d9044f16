package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoPipeline is returned when no pipeline file is given.
	ErrNoPipeline = errors.New("no pipeline specified: provide at least one pipeline file")

	// ErrInvalidTimeout is returned when the timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: must be zero or positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidReportFormat is returned for an unknown report format.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrInvalidLogFormat is returned for an unknown log format.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrNoDBDir is returned when history is enabled without a directory.
	ErrNoDBDir = errors.New("history is enabled but no database directory is set")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
