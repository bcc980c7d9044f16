// Package config provides the configuration of the filterpipe command:
// run options set from flags, and the optional YAML file that adjusts
// individual pipelines before they run.
package config
