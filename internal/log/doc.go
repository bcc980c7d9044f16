// Package log builds the slog loggers used by filterpipe and forwards
// pipeline messages to them.
//
// Filter messages carry free text written by filter authors, which may
// span several lines or be very long. The CleanHandler wraps any slog
// handler and flattens control characters and truncates long string
// values so each record stays on one readable line.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	slog.SetDefault(logger)
//
//	p := pipeline.New(pipeline.WithLogger(logger),
//	    pipeline.WithObserver(log.NewMessageLogger(logger)))
package log
