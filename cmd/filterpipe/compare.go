package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/config"
	"github.com/nao1215/filterpipe/internal/database"
	"github.com/nao1215/filterpipe/internal/model"
)

// Directions of a comparison.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares two recorded runs of the same pipeline.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [pipeline-name]",
		Short: "Compare the latest run of a pipeline with an earlier one",
		Long: `Compare displays differences between two recorded runs of a pipeline.

It shows:
- Problems (errors and warnings) that appeared since the earlier run
- Problems that are no longer reported
- Filters whose final state changed

At least two runs of the pipeline must be recorded. Use 'filterpipe run'
or 'filterpipe preflight' to record runs.

Examples:
  # Compare the latest two runs of a pipeline
  filterpipe compare demo

  # Compare the latest run with a specific one
  filterpipe compare --with-run-id 6f1c... demo

  # Compare with the first run since a date
  filterpipe compare --since 2026-01-01 demo

  # Output the comparison as JSON
  filterpipe compare --json demo`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with a specific run (use 'filterpipe history' to see run IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run at or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("with-run-id", "since")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	withRunID, err := flags.GetString("with-run-id")
	if err != nil {
		return err
	}
	since, err := flags.GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no run history found for %s", args[0])
	}
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previous, current, err := selectRuns(cmd.Context(), db, args[0], withRunID, since)
	if err != nil {
		return err
	}

	result := compareReports(previous, current)
	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		outputComparisonMarkdown(out, result)
	default:
		outputComparisonText(out, result)
	}
	return nil
}

// selectRuns returns the earlier and the latest run of pipelineName.
func selectRuns(ctx context.Context, db *database.HistoryDB, pipelineName, withRunID, since string) (*model.RunReport, *model.RunReport, error) {
	runs, err := db.ListRuns(ctx, pipelineName, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("no run history found for %s", pipelineName)
	}
	if len(runs) < 2 && withRunID == "" && since == "" {
		return nil, nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// Runs are sorted newest first.
	currentID := runs[0].RunID
	var previousID string

	switch {
	case withRunID != "":
		previousID = withRunID
	case since != "":
		date, err := time.Parse(time.DateOnly, since)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].StartedAt.Before(date) {
				previousID = runs[i].RunID
				break
			}
		}
		if previousID == "" {
			return nil, nil, fmt.Errorf("no runs found since %s", since)
		}
	default:
		previousID = runs[1].RunID
	}
	if previousID == currentID {
		return nil, nil, errors.New("the selected run is the latest run; at least 2 runs are required for comparison")
	}

	previous, err := db.GetRun(ctx, previousID)
	if err != nil {
		return nil, nil, err
	}
	if previous.PipelineName != pipelineName {
		return nil, nil, fmt.Errorf("run %s belongs to %s, not %s", previousID, previous.PipelineName, pipelineName)
	}
	current, err := db.GetRun(ctx, currentID)
	if err != nil {
		return nil, nil, err
	}
	return previous, current, nil
}

// ComparisonResult holds the result of comparing two runs.
type ComparisonResult struct {
	// PipelineName is the name of the compared pipeline.
	PipelineName string `json:"pipeline_name"`

	PreviousRun RunMetadata `json:"previous_run"`
	CurrentRun  RunMetadata `json:"current_run"`

	// NewProblems are reported by the current run only.
	NewProblems []model.PipelineMessage `json:"new_problems,omitempty"`

	// ResolvedProblems are reported by the previous run only.
	ResolvedProblems []model.PipelineMessage `json:"resolved_problems,omitempty"`

	// UnchangedCount is the number of problems reported by both runs.
	UnchangedCount int `json:"unchanged_count"`

	// StateChanges lists filters whose final state differs.
	StateChanges []StateChange `json:"state_changes,omitempty"`

	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`
}

// RunMetadata describes one side of a comparison.
type RunMetadata struct {
	RunID     string        `json:"run_id"`
	Mode      model.RunMode `json:"mode"`
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Errors    int           `json:"errors"`
	Warnings  int           `json:"warnings"`
}

// StateChange is a filter slot whose final state differs between runs.
type StateChange struct {
	Index    int    `json:"index"`
	Filter   string `json:"filter"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

func runMetadata(r *model.RunReport) RunMetadata {
	return RunMetadata{
		RunID:     r.RunID,
		Mode:      r.Mode,
		Status:    r.Status,
		StartedAt: r.StartedAt,
		Errors:    len(r.Errors()),
		Warnings:  len(r.Warnings()),
	}
}

// compareReports compares two runs and generates a comparison result.
func compareReports(previous, current *model.RunReport) *ComparisonResult {
	result := &ComparisonResult{
		PipelineName: current.PipelineName,
		PreviousRun:  runMetadata(previous),
		CurrentRun:   runMetadata(current),
	}

	previousProblems := problemSet(previous)
	currentProblems := problemSet(current)

	for _, m := range problems(current) {
		if _, exists := previousProblems[problemKey(m)]; !exists {
			result.NewProblems = append(result.NewProblems, m)
		}
	}
	for _, m := range problems(previous) {
		if _, exists := currentProblems[problemKey(m)]; exists {
			result.UnchangedCount++
		} else {
			result.ResolvedProblems = append(result.ResolvedProblems, m)
		}
	}

	previousStates := make(map[int]model.FilterSummary, len(previous.Filters))
	for _, f := range previous.Filters {
		previousStates[f.Index] = f
	}
	for _, f := range current.Filters {
		before, ok := previousStates[f.Index]
		if !ok || before.Name != f.Name {
			result.StateChanges = append(result.StateChanges, StateChange{Index: f.Index, Filter: f.Name, Previous: "-", Current: f.State})
			continue
		}
		if before.State != f.State {
			result.StateChanges = append(result.StateChanges, StateChange{Index: f.Index, Filter: f.Name, Previous: before.State, Current: f.State})
		}
	}

	result.Direction = direction(result.PreviousRun, result.CurrentRun)
	return result
}

// problems returns the errors and warnings of r in emission order.
func problems(r *model.RunReport) []model.PipelineMessage {
	out := make([]model.PipelineMessage, 0)
	for _, m := range r.Messages {
		if m.Type == model.MessageError || m.Type == model.MessageWarning {
			out = append(out, m)
		}
	}
	return out
}

func problemSet(r *model.RunReport) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range problems(r) {
		set[problemKey(m)] = struct{}{}
	}
	return set
}

// problemKey identifies a problem across runs.
func problemKey(m model.PipelineMessage) string {
	return strconv.Itoa(m.PipelineIndex) + "|" + m.FilterName + "|" + strconv.Itoa(m.Code) + "|" + m.Text
}

// direction weighs errors above warnings; a run that now succeeds
// always counts as improved.
func direction(previous, current RunMetadata) string {
	switch {
	case previous.Status != current.Status && current.Status == "Success":
		return directionImproved
	case previous.Status != current.Status && previous.Status == "Success":
		return directionWorsened
	}

	previousScore := previous.Errors*10 + previous.Warnings
	currentScore := current.Errors*10 + current.Warnings
	switch {
	case currentScore < previousScore:
		return directionImproved
	case currentScore > previousScore:
		return directionWorsened
	default:
		return directionUnchanged
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "# Run Comparison: %s\n\n", result.PipelineName)

	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "\n**Status:** %s\n\n", formatDirection(result.Direction))

	fmt.Fprintln(w, "| Metric | Previous | Current | Change |")
	fmt.Fprintln(w, "|--------|----------|---------|--------|")
	fmt.Fprintf(w, "| Date | %s | %s | - |\n",
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04"),
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "| Status | %s | %s | - |\n", result.PreviousRun.Status, result.CurrentRun.Status)
	fmt.Fprintf(w, "| Errors | %d | %d | %s |\n",
		result.PreviousRun.Errors, result.CurrentRun.Errors,
		formatDelta(result.CurrentRun.Errors-result.PreviousRun.Errors))
	fmt.Fprintf(w, "| Warnings | %d | %d | %s |\n",
		result.PreviousRun.Warnings, result.CurrentRun.Warnings,
		formatDelta(result.CurrentRun.Warnings-result.PreviousRun.Warnings))

	if len(result.StateChanges) > 0 {
		fmt.Fprintf(w, "\n## Filter State Changes (%d)\n\n", len(result.StateChanges))
		for _, c := range result.StateChanges {
			fmt.Fprintf(w, "- `[%d] %s`: %s → %s\n", c.Index, c.Filter, c.Previous, c.Current)
		}
	}

	if len(result.NewProblems) > 0 {
		fmt.Fprintf(w, "\n## New Problems (%d)\n\n", len(result.NewProblems))
		for _, m := range result.NewProblems {
			fmt.Fprintf(w, "- **[%s]** %s: %s\n", m.Type, problemLocation(m), m.Text)
		}
	}

	if len(result.ResolvedProblems) > 0 {
		fmt.Fprintf(w, "\n## Resolved Problems (%d)\n\n", len(result.ResolvedProblems))
		for _, m := range result.ResolvedProblems {
			fmt.Fprintf(w, "- ~~**[%s]** %s: %s~~\n", m.Type, problemLocation(m), m.Text)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(w, "\n---\n\n*%d problems unchanged*\n", result.UnchangedCount)
	}
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "Run Comparison: %s\n", result.PipelineName)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nStatus: %s\n", formatDirection(result.Direction))

	fmt.Fprintf(w, "\nPrevious run: %s  %s  %s\n", result.PreviousRun.RunID,
		result.PreviousRun.StartedAt.Format(time.DateTime), result.PreviousRun.Status)
	fmt.Fprintf(w, "Current run:  %s  %s  %s\n", result.CurrentRun.RunID,
		result.CurrentRun.StartedAt.Format(time.DateTime), result.CurrentRun.Status)

	fmt.Fprintln(w, "\nProblems Summary:")
	fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", "Type", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Errors",
		result.PreviousRun.Errors, result.CurrentRun.Errors,
		formatDelta(result.CurrentRun.Errors-result.PreviousRun.Errors))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Warnings",
		result.PreviousRun.Warnings, result.CurrentRun.Warnings,
		formatDelta(result.CurrentRun.Warnings-result.PreviousRun.Warnings))

	if len(result.StateChanges) > 0 {
		fmt.Fprintf(w, "\nFilter State Changes (%d):\n", len(result.StateChanges))
		for _, c := range result.StateChanges {
			fmt.Fprintf(w, "  [%d] %-28s %s -> %s\n", c.Index, c.Filter, c.Previous, c.Current)
		}
	}

	if len(result.NewProblems) > 0 {
		fmt.Fprintf(w, "\nNew Problems (%d):\n", len(result.NewProblems))
		for _, m := range result.NewProblems {
			fmt.Fprintf(w, "  [+] [%s] %s: %s\n", m.Type, problemLocation(m), m.Text)
		}
	}

	if len(result.ResolvedProblems) > 0 {
		fmt.Fprintf(w, "\nResolved Problems (%d):\n", len(result.ResolvedProblems))
		for _, m := range result.ResolvedProblems {
			fmt.Fprintf(w, "  [-] [%s] %s: %s\n", m.Type, problemLocation(m), m.Text)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d problems\n", result.UnchangedCount)
	}
}

func problemLocation(m model.PipelineMessage) string {
	if m.PipelineIndex == model.PipelineIndexNone {
		return "pipeline"
	}
	return fmt.Sprintf("[%d] %s", m.PipelineIndex, m.FilterName)
}

// formatDirection formats the comparison direction for display.
func formatDirection(d string) string {
	switch d {
	case directionImproved:
		return "IMPROVED (fewer problems)"
	case directionWorsened:
		return "WORSENED (more problems)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
