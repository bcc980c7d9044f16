package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/filter/builtin"
)

// NewFiltersCmd creates the filters command.
func NewFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters [filter-name...]",
		Short: "List available filters and their parameters",
		Long: `Filters lists every filter that pipeline documents can name.

Given filter names, it prints the parameters of each one: the property
name used in documents, the value type and the category.

Examples:
  # List all filters
  filterpipe filters

  # Show the parameters of ScaleArray
  filterpipe filters ScaleArray`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFilters(cmd.OutOrStdout(), builtin.NewRegistry(), args)
		},
	}
}

// listFilters prints the filters of r, or the parameters of the named ones.
func listFilters(w io.Writer, r *filter.Registry, names []string) error {
	if len(names) == 0 {
		for _, name := range r.Names() {
			f, err := r.New(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-28s %s\n", name, f.Core().HumanLabel())
		}
		return nil
	}

	for i, name := range names {
		f, err := r.New(name)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		b := f.Core()
		fmt.Fprintf(w, "%s (%s)\n", b.Name(), b.HumanLabel())
		for _, p := range b.Parameters() {
			fmt.Fprintf(w, "  %-28s %-18s %-15s %s\n", p.PropertyName(), p.TypeName(), p.Category(), p.Label())
		}
	}
	return nil
}
