package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/codec"
	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/drawer"
	"github.com/nao1215/filterpipe/internal/filter/builtin"
	"github.com/nao1215/filterpipe/internal/pipeline"
)

// NewGraphCmd creates the graph command.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [pipeline-file]",
		Short: "Draw the data flow of a pipeline as a DOT graph",
		Long: `Graph draws one vertex per filter and one edge per data dependency:
a filter that requires a path is linked to the last earlier filter that
creates it, or to the input store when none does.

By default the pipeline is preflighted first, so vertices are coloured by
filter state and paths reflect any renames. Render the output with
Graphviz, e.g. "dot -Tsvg pipeline.dot > pipeline.svg".

Examples:
  # Print the graph to stdout
  filterpipe graph pipeline.json

  # Write the graph to a file without preflighting
  filterpipe graph --no-preflight -o pipeline.dot pipeline.json

  # List the vertices in dependency order
  filterpipe graph --order pipeline.json

  # Show where filter 4 gets its inputs from
  filterpipe graph --upstream 4 pipeline.json`,
		Args: cobra.ExactArgs(1),
		RunE: runGraphCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Write the graph to this file instead of stdout")
	cmd.Flags().Bool("no-preflight", false, "Draw the pipeline as read, without preflighting it")
	cmd.Flags().Bool("order", false, "List the vertices in dependency order instead of drawing")
	cmd.Flags().Int("upstream", -1, "List the vertices the filter at this index reads from instead of drawing")

	cmd.MarkFlagsMutuallyExclusive("order", "upstream")
	cmd.MarkFlagsMutuallyExclusive("order", "output")
	cmd.MarkFlagsMutuallyExclusive("upstream", "output")

	return cmd
}

// runGraphCmd executes the graph command.
func runGraphCmd(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	noPreflight, err := cmd.Flags().GetBool("no-preflight")
	if err != nil {
		return err
	}
	listOrder, err := cmd.Flags().GetBool("order")
	if err != nil {
		return err
	}
	upstream, err := cmd.Flags().GetInt("upstream")
	if err != nil {
		return err
	}

	cfgFile, err := loadConfigFile(getInheritedString(cmd, "config", ""))
	if err != nil {
		return err
	}

	path := args[0]
	p, _, err := codec.New(builtin.NewRegistry()).ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	pc := cfgFile.GetPipelineConfig(p.Name(), filepath.Base(path))
	overrides := codec.Overrides{Disabled: pc.Disabled, Parameters: pc.Parameters}
	if _, err := overrides.Apply(p); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if !noPreflight {
		p.Preflight(cmd.Context(), datastore.NewMemory())
	}

	d, err := drawer.FromPipeline(p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case listOrder:
		ids, err := d.Order()
		if err != nil {
			return err
		}
		writeVertices(out, p, ids)
		return nil
	case cmd.Flags().Changed("upstream"):
		ids, err := d.Upstream(upstream)
		if err != nil {
			return err
		}
		writeVertices(out, p, ids)
		return nil
	}

	if outputPath != "" {
		if err := d.DrawFile(outputPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Graph saved to: %s\n", outputPath)
		return nil
	}
	return d.Draw(out)
}

// writeVertices prints one line per vertex with the filter it stands for.
func writeVertices(w io.Writer, p *pipeline.Pipeline, ids []string) {
	for _, id := range ids {
		index, err := strconv.Atoi(strings.TrimPrefix(id, "f"))
		if err != nil {
			fmt.Fprintf(w, "%-6s data store\n", id)
			continue
		}
		f, err := p.FilterAt(index)
		if err != nil {
			fmt.Fprintf(w, "%-6s\n", id)
			continue
		}
		fmt.Fprintf(w, "%-6s %s\n", id, f.Core().HumanLabel())
	}
}
