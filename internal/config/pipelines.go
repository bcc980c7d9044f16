package config

import (
	"maps"
	"time"
)

// PipelineConfig adjusts one pipeline before it runs.
type PipelineConfig struct {
	// Disabled lists filter indices to disable.
	Disabled []int `yaml:"disabled,omitempty"`

	// Parameters maps a filter index to parameter values keyed by
	// property name. Values take the same shapes as in the pipeline
	// document, e.g. a path is a mapping of its three segment names.
	Parameters map[int]map[string]any `yaml:"parameters,omitempty"`

	// Report overrides the report format for this pipeline.
	Report string `yaml:"report,omitempty"`

	// Timeout overrides the run timeout for this pipeline.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// File represents the structure of the .filterpipe configuration file.
type File struct {
	// Pipelines maps a pipeline name, or the base name of its file, to
	// its configuration.
	Pipelines map[string]PipelineConfig `yaml:"pipelines,omitempty"`

	// Defaults applies to every pipeline unless overridden.
	Defaults PipelineConfig `yaml:"defaults,omitempty"`
}

// GetPipelineConfig returns the configuration of the first of names that
// has an entry, merged over the defaults. Disabled indices accumulate;
// parameter values of the same filter are merged key by key.
func (cf *File) GetPipelineConfig(names ...string) PipelineConfig {
	result := PipelineConfig{
		Disabled:   append([]int(nil), cf.Defaults.Disabled...),
		Parameters: cloneParameters(cf.Defaults.Parameters),
		Report:     cf.Defaults.Report,
		Timeout:    cf.Defaults.Timeout,
	}

	var pc PipelineConfig
	found := false
	for _, name := range names {
		if pc, found = cf.Pipelines[name]; found {
			break
		}
	}
	if !found {
		return result
	}

	result.Disabled = append(result.Disabled, pc.Disabled...)
	for i, values := range pc.Parameters {
		if result.Parameters == nil {
			result.Parameters = make(map[int]map[string]any)
		}
		if result.Parameters[i] == nil {
			result.Parameters[i] = make(map[string]any)
		}
		maps.Copy(result.Parameters[i], values)
	}
	if pc.Report != "" {
		result.Report = pc.Report
	}
	if pc.Timeout != 0 {
		result.Timeout = pc.Timeout
	}
	return result
}

func cloneParameters(in map[int]map[string]any) map[int]map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[int]map[string]any, len(in))
	for i, values := range in {
		out[i] = maps.Clone(values)
	}
	return out
}
