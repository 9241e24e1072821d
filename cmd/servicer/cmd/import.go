package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load credits and payments from CSV into a SQLite snapshot",
	Long: `Read credits and payments CSV files (with the table column names as
header) and write them to the SQLite source in one transaction. Rows
with an existing id are replaced.

Example:
  servicer import --loans credits.csv --payments payments.csv`,
	RunE: runImport,
}

var (
	importLoans    string
	importPayments string
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importLoans, "loans", "", "credits CSV file (required)")
	importCmd.Flags().StringVar(&importPayments, "payments", "", "payments CSV file")
	importCmd.MarkFlagRequired("loans")
}

func runImport(cmd *cobra.Command, args []string) error {
	if cfg.Source.Type != "sqlite" {
		return fmt.Errorf("import needs a sqlite source, got %q", cfg.Source.Type)
	}

	loans, err := readCSV(importLoans, store.ReadLoansCSV)
	if err != nil {
		return err
	}
	var payments []credit.Payment
	if importPayments != "" {
		if payments, err = readCSV(importPayments, store.ReadPaymentsCSV); err != nil {
			return err
		}
	}

	db, err := store.NewSQLite(cfg.Source.DSN, logger)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer db.Close()

	if err := db.Seed(cmd.Context(), loans, payments); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Printf("✓ Imported %d credits and %d payments into %s\n", len(loans), len(payments), cfg.Source.DSN)
	return nil
}

func readCSV[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
