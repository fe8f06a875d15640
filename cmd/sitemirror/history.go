package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "List mirror runs recorded in the crawl journal",
		Long: `History lists the runs recorded in the crawl journal, newest first.

Every mirror run is journaled unless --no-db is given. Use --run to list the
pages attempted by one run.

Examples:
  # List every recorded run
  sitemirror history

  # List the last five runs for one host
  sitemirror history -n 5 example.com

  # Show the pages of run 12
  sitemirror history --run 12

  # Machine-readable output
  sitemirror history --json example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().Int64P("run", "r", 0, "List the pages of this run ID")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the crawl journal")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	journal, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open crawl journal: %w", err)
	}
	defer journal.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if runID > 0 {
		pages, err := journal.RunPages(ctx, runID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, pages)
		}
		printRunPages(out, runID, pages)
		return nil
	}

	var host string
	if len(args) > 0 {
		host = strings.ToLower(args[0])
	}
	runs, err := journal.ListRuns(ctx, host, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if runs == nil {
			runs = []database.Run{}
		}
		return writeJSON(out, runs)
	}
	printRuns(out, host, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, host string, runs []database.Run) {
	if len(runs) == 0 {
		if host != "" {
			fmt.Fprintf(w, "No runs recorded for %s\n", host)
		} else {
			fmt.Fprintln(w, "No runs recorded")
		}
		fmt.Fprintln(w, "\nUse 'sitemirror <url>' to mirror a site.")
		return
	}

	fmt.Fprintf(w, "%d run(s):\n\n", len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-30s  %-6s  %s\n", "ID", "Started", "Root URL", "Depth", "Stored/Disallowed/Failed/Skipped")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, r := range runs {
		status := fmt.Sprintf("%d/%d/%d/%d", r.Stored, r.Disallowed, r.Failed, r.Skipped)
		if r.Error != "" {
			status += "  (error: " + r.Error + ")"
		} else if r.FinishedAt.IsZero() {
			status += "  (unfinished)"
		}
		fmt.Fprintf(w, "  %-6d  %-20s  %-30s  %-6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.RootURL,
			r.DepthReached,
			status,
		)
	}
	fmt.Fprintln(w, "\nUse 'sitemirror history --run <id>' to list the pages of a run.")
}

func printRunPages(w io.Writer, runID int64, pages []model.PageResult) {
	if len(pages) == 0 {
		fmt.Fprintf(w, "Run %d has no recorded pages\n", runID)
		return
	}
	fmt.Fprintf(w, "Run %d (%d page(s)):\n\n", runID, len(pages))
	for _, p := range pages {
		line := fmt.Sprintf("  %-10s  %-3d  %s", p.Outcome, p.Depth, p.URL)
		if p.Error != "" {
			line += "  (" + p.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}
