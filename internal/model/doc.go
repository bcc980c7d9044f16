// Package model defines the core data structures shared by the pipeline
// engine: addresses into the data hierarchy, renames between them, the
// messages filters emit, and the record of a finished run.
//
// This package contains the following main types:
//   - Path: a container/matrix/array address with rename support
//   - Rename: an old -> new pair of paths, composed with ComposeRenames
//   - PipelineMessage: a notification from a filter or the pipeline
//   - RunReport: the summary of one preflight or run, used by reports and history
//
// The types are plain values and depend on nothing else in the module,
// so every other package can import them.
package model
