package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/config"
	"github.com/nao1215/filterpipe/internal/database"
	"github.com/nao1215/filterpipe/internal/model"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `History lists the runs recorded by run and preflight, newest first.

Given a run ID, it prints the full report of that run again.

Examples:
  # List the last 20 runs
  filterpipe history

  # List runs of one pipeline
  filterpipe history --pipeline demo --limit 5

  # Show a stored report as Markdown
  filterpipe history -r markdown 6f1c...

  # Show only the problems of a run
  filterpipe history --problems 6f1c...

  # Forget a run
  filterpipe history --delete 6f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("pipeline", "", "Only list runs of this pipeline")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 lists all)")
	cmd.Flags().Bool("pipelines", false, "List the names of recorded pipelines")
	cmd.Flags().StringP("report", "r", config.DefaultReportFormat, "Report format of a shown run: text, json or markdown")
	cmd.Flags().Bool("problems", false, "Show only the errors and warnings of a run")
	cmd.Flags().Bool("delete", false, "Delete the given run")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	listPipelines, err := flags.GetBool("pipelines")
	if err != nil {
		return err
	}
	if listPipelines {
		names, err := db.ListPipelines(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	if len(args) == 0 {
		name, err := flags.GetString("pipeline")
		if err != nil {
			return err
		}
		limit, err := flags.GetInt("limit")
		if err != nil {
			return err
		}
		runs, err := db.ListRuns(ctx, name, limit)
		if err != nil {
			return err
		}
		writeRunList(out, runs)
		return nil
	}

	runID := args[0]
	remove, err := flags.GetBool("delete")
	if err != nil {
		return err
	}
	if remove {
		if err := db.DeleteRun(ctx, runID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", runID)
		return nil
	}

	problems, err := flags.GetBool("problems")
	if err != nil {
		return err
	}
	if problems {
		messages, err := db.GetMessages(ctx, runID, model.MessageError, model.MessageWarning)
		if err != nil {
			return err
		}
		writeProblems(out, messages)
		return nil
	}

	format, err := flags.GetString("report")
	if err != nil {
		return err
	}
	rep, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	rw, err := newReportWriter(format, out, getVerboseFlag(cmd))
	if err != nil {
		return err
	}
	_, err = rw.Write(rep)
	return err
}

// writeRunList prints one line per run.
func writeRunList(w io.Writer, runs []database.RunMetadata) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %-9s %-9s %-24s errors=%d warnings=%d\n",
			run.RunID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Mode,
			run.Status,
			run.PipelineName,
			run.ErrorCount,
			run.WarningCount,
		)
	}
}

// writeProblems prints stored error and warning messages.
func writeProblems(w io.Writer, messages []model.PipelineMessage) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No problems recorded.")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(w, "%-7s %-32s (%d) %s\n", m.Type, problemLocation(m), m.Code, m.Text)
	}
}
