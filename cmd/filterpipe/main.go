// Package main provides the entry point for the filterpipe CLI.
//
// filterpipe reads pipeline documents, validates them with a preflight
// pass and runs them against an in-memory data store.
//
// Usage:
//
//	filterpipe run pipeline.json
//	filterpipe preflight a.json b.json
//	filterpipe graph pipeline.json -o pipeline.dot
//
// See --help for all available options.
package main

// main is the entry point for filterpipe.
func main() {
	Execute()
}
