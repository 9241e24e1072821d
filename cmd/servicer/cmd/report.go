package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the portfolio report",
	Long: `Run the balance, period and delinquency engines over the snapshot,
print the summary and journal the run.

Exports are written when a path is given on the command line or in the
report section of the config.

Examples:
  servicer report --date 2022-05-15
  servicer report --xlsx book.xlsx --pdf book.pdf --org book.org`,
	RunE: runReport,
}

var (
	reportDate string
	reportXLSX string
	reportPDF  string
	reportOrg  string
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportDate, "date", "d", "", "evaluation date YYYY-MM-DD (default today)")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "write an XLSX workbook")
	reportCmd.Flags().StringVar(&reportPDF, "pdf", "", "write a PDF summary")
	reportCmd.Flags().StringVar(&reportOrg, "org", "", "write an Org mode entry")
}

func runReport(cmd *cobra.Command, args []string) error {
	date, err := parseDate(reportDate)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	balances, ledger, err := newEngines()
	if err != nil {
		return err
	}

	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	runner := &report.Runner{
		Balances: balances,
		Periods:  ledger,
		Journal:  j,
		Log:      logger,
		Source:   cfg.Source.Type,
	}
	rep, err := runner.Run(cmd.Context(), snap, date)
	if err != nil {
		return err
	}
	report.Print(os.Stdout, rep)

	if path := orDefault(reportXLSX, cfg.Report.XLSX); path != "" {
		data, err := report.BuildXLSX(rep)
		if err != nil {
			return fmt.Errorf("build xlsx: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Printf("✓ XLSX: %s\n", path)
	}
	if path := orDefault(reportPDF, cfg.Report.PDF); path != "" {
		data, err := report.BuildPDF(rep)
		if err != nil {
			return fmt.Errorf("build pdf: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Printf("✓ PDF: %s\n", path)
	}
	if path := orDefault(reportOrg, cfg.Report.Org); path != "" {
		if err := report.WriteOrg(rep, path); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
		fmt.Printf("✓ Org: %s\n", path)
	}
	return nil
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
