package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the protexsync run journal",
}

func journalPath(cmd *cobra.Command) (string, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	path, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("journal not found: %s (run a command with --db first)", path)
	}
	return path, nil
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := journalPath(cmd)
		if err != nil {
			return err
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Journal schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints per-command totals of all finished runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := journalPath(cmd)
		if err != nil {
			return err
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No finished runs in the journal.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "COMMAND\tRUNS\tSUCCEEDED\tUNCHANGED\tFAILED\tSKIPPED\tUNRESOLVED\t")

		var total storage.KindStats
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t\n", s.Kind, s.Runs, s.Succeeded, s.Unchanged, s.Failed, s.Skipped, s.Unresolved)
			total.Runs += s.Runs
			total.Succeeded += s.Succeeded
			total.Unchanged += s.Unchanged
			total.Failed += s.Failed
			total.Skipped += s.Skipped
			total.Unresolved += s.Unresolved
		}

		fmt.Fprintln(w, " \t \t \t \t \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t%d\t%d\t%d\t\n", total.Runs, total.Succeeded, total.Unchanged, total.Failed, total.Skipped, total.Unresolved)

		return w.Flush()
	},
}

// runsCmd lists recent runs, or the item outcomes of one run.
var runsCmd = &cobra.Command{
	Use:   "runs [run id]",
	Short: "List recent runs, or the outcomes of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := journalPath(cmd)
		if err != nil {
			return err
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		if len(args) == 1 {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			outcomes, err := db.ListOutcomes(cmd.Context(), runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ITEM\tOUTCOME\tDETAIL")
			for _, o := range outcomes {
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.Key, o.Outcome, o.Detail)
			}
			return w.Flush()
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := db.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tCOMMAND\tTARGET\tSTARTED\tFINISHED\tOK\tSAME\tFAILED\tSKIPPED\tUNRESOLVED")
		for _, r := range runs {
			finished := "-"
			if !r.FinishedAt.IsZero() {
				finished = r.FinishedAt.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n", r.ID, r.Kind, r.Target,
				r.StartedAt.Local().Format(time.DateTime), finished,
				r.Succeeded, r.Unchanged, r.Failed, r.Skipped, r.Unresolved)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "Number of runs to list")
}
