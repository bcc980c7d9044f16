// Package drawer renders the data flow of a pipeline as a Graphviz DOT graph.
//
// Each filter is a vertex coloured by its last state. An edge from filter
// i to filter j means j reads a path that i created, modified or renamed,
// and is labelled with the paths involved. Paths read before any filter
// created them come from the "store" vertex, which stands for the data
// the pipeline was given.
//
// Vertices know only what the filters report, so created paths are most
// complete after a preflight.
package drawer
