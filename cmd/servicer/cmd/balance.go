package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/credit"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [loan-id]",
	Short: "Print outstanding balances as of a date",
	Long: `Print the lowest post-payment balance reached by each loan on or
before the evaluation date. Loans without payments owe their principal.

Examples:
  servicer balance --date 2022-05-15
  servicer balance 42`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalance,
}

var balanceDate string

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceDate, "date", "d", "", "evaluation date YYYY-MM-DD (default today)")
}

func runBalance(cmd *cobra.Command, args []string) error {
	date, err := parseDate(balanceDate)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	balances, _, err := newEngines()
	if err != nil {
		return err
	}

	only := int64(-1)
	if len(args) == 1 {
		if only, err = parseLoanID(args[0]); err != nil {
			return err
		}
		if _, err := findLoan(snap, only); err != nil {
			return err
		}
	}

	asOf := balances.BalanceAsOf(snap.Payments, snap.Loans, date)
	fmt.Printf("Balances as of %s\n", credit.FormatDate(date))
	fmt.Printf("%8s  %-14s  %12s  %12s\n", "loan", "convention", "principal", "balance")
	for i, l := range snap.Loans {
		if only >= 0 && l.ID != only {
			continue
		}
		fmt.Printf("%8d  %-14s  %12s  %12s\n", l.ID, balances.Convention(l),
			decimal.NewFromFloat(l.Amount).StringFixed(2),
			decimal.NewFromFloat(asOf[i].Balance).StringFixed(2))
	}
	return nil
}
