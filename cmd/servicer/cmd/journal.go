package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/internal/id"
	"github.com/rustyeddy/servicer/journal"
	"github.com/rustyeddy/servicer/parity"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled report runs",
	Long: `Query report runs recorded in a SQLite journal.

Subcommands:
  run    - Show a run and its bucket counts
  latest - Show the most recent run
  range  - List runs created between two dates

Examples:
  servicer journal run 01HF3Z...
  servicer journal latest
  servicer journal range 2022-01-01 2022-12-31`,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run and its bucket counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent run",
	Args:  cobra.NoArgs,
	RunE:  runJournalLatest,
}

var journalRangeCmd = &cobra.Command{
	Use:   "range <YYYY-MM-DD> <YYYY-MM-DD>",
	Short: "List runs created between two dates",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalRange,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalLatestCmd)
	journalCmd.AddCommand(journalRangeCmd)

	journalCmd.PersistentFlags().StringVar(&journalDBPath, "db", "", "path to SQLite journal DB (default from config)")
}

func openSQLiteJournal() (*journal.SQLite, error) {
	path := orDefault(journalDBPath, cfg.Journal.DBPath)
	if path == "" {
		return nil, fmt.Errorf("no journal db: set --db or journal.db_path")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if _, err := id.Started(args[0]); err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	rec, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	return printRun(j, rec)
}

func runJournalLatest(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.LatestRun()
	if err != nil {
		return fmt.Errorf("latest run: %w", err)
	}
	return printRun(j, rec)
}

func runJournalRange(cmd *cobra.Command, args []string) error {
	start, err := credit.ParseDate(args[0])
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := credit.ParseDate(args[1])
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRunsBetween(start, end)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs in range.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  loans=%d delinquent=%d outstanding=%.2f\n",
			r.RunID, credit.FormatDate(r.EvalDate), r.Loans, r.Delinquent, r.Outstanding)
	}
	return nil
}

func printRun(j *journal.SQLite, rec journal.RunRecord) error {
	fmt.Printf("Run ID:      %s\n", rec.RunID)
	fmt.Printf("Created:     %s\n", rec.Created.Format(time.RFC3339))
	if started, err := id.Started(rec.RunID); err == nil {
		fmt.Printf("Started:     %s\n", started.Format(time.RFC3339))
	}
	fmt.Printf("As of:       %s\n", credit.FormatDate(rec.EvalDate))
	fmt.Printf("Source:      %s\n", rec.Source)
	fmt.Printf("Loans:       %d\n", rec.Loans)
	fmt.Printf("Payments:    %d\n", rec.Payments)
	fmt.Printf("Outstanding: %.2f\n", rec.Outstanding)
	fmt.Printf("Delinquent:  %d of %d\n", rec.Delinquent, rec.Applicable)
	fmt.Printf("Duration:    %s\n", rec.Duration)

	counts, err := j.BucketCounts(rec.RunID)
	if err != nil {
		return err
	}
	fmt.Println()
	for _, b := range parity.Buckets {
		fmt.Printf("bucket %3d: %d\n", int(b), counts[int(b)])
	}

	parities, err := j.ListParities(rec.RunID)
	if err != nil {
		return err
	}
	late := 0
	for _, p := range parities {
		if p.Status == "late" {
			late++
		}
	}
	fmt.Printf("late:       %d\n", late)

	balances, err := j.ListBalances(rec.RunID)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("%8s  %-14s  %12s  %12s\n", "loan", "convention", "principal", "balance")
	for _, b := range balances {
		fmt.Printf("%8d  %-14s  %12.2f  %12.2f\n", b.LoanID, b.Convention, b.Principal, b.Balance)
	}
	return nil
}
