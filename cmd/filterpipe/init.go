package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/config"
)

//go:embed templates/filterpipe.yaml templates/pipeline.json
var templates embed.FS

const (
	configTemplate   = "templates/filterpipe.yaml"
	pipelineTemplate = "templates/pipeline.json"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new filterpipe configuration file",
		Long: `Initialize creates a new .filterpipe configuration file in the current directory.

The generated file includes:
- Default report format and timeout
- Commented examples of per-pipeline overrides

With --example, a small runnable pipeline document is written as well.

Examples:
  # Create .filterpipe in current directory
  filterpipe init

  # Create config file at a specific path
  filterpipe init -o myconfig.yaml

  # Also write an example pipeline
  filterpipe init --example pipeline.json

  # Force overwrite existing files
  filterpipe init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().StringP("example", "e", "",
		"Also write an example pipeline document to this path")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	examplePath, err := cmd.Flags().GetString("example")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate(configTemplate, outputPath, force); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)

	if examplePath != "" {
		if err := writeTemplate(pipelineTemplate, examplePath, force); err != nil {
			return err
		}
		fmt.Fprintf(out, "Created example pipeline: %s\n", examplePath)
		fmt.Fprintf(out, "\nTry it with:\n  filterpipe run %s\n", examplePath)
	}

	fmt.Fprintln(out, "\nEdit the configuration file to set per-pipeline options such as:")
	fmt.Fprintln(out, "  - Filters to disable")
	fmt.Fprintln(out, "  - Parameter overrides")
	fmt.Fprintln(out, "  - Report format and run timeout")
	return nil
}

// writeTemplate copies the embedded file name to path.
func writeTemplate(name, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s (use -f to overwrite)", path)
		}
	}

	content, err := templates.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
