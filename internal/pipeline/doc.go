// Package pipeline runs an ordered sequence of filters against a shared
// data store.
//
// Preflight validates every filter without touching data. Run preflights
// on a copy of the store and then executes each filter in order against
// the real one. Both route every filter message to the registered
// observers and forward renames reported by one filter to the parameters
// of all the others.
//
// A BatchProcessor runs independent jobs concurrently, one pipeline and
// store per job, and a Recorder turns the messages of one call into a
// model.RunReport.
package pipeline
