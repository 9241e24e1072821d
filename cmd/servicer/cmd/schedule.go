package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/amortization"
	"github.com/rustyeddy/servicer/credit"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <loan-id>",
	Short: "Print the theoretical amortization schedule of a loan",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	id, err := parseLoanID(args[0])
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	i, err := findLoan(snap, id)
	if err != nil {
		return err
	}

	entries, err := amortization.Schedule(amortization.ForLoan(snap.Loans[i]))
	if err != nil {
		return fmt.Errorf("schedule loan %d: %w", id, err)
	}

	fmt.Printf("Loan %d\n", id)
	fmt.Println("--------------------------------")
	fmt.Printf("%4s  %-10s  %12s\n", "#", "due", "principal")
	for n, e := range entries {
		if e.IsSentinel() {
			continue
		}
		fmt.Printf("%4d  %-10s  %12s\n", n+1, credit.FormatDate(e.PaymentDate),
			decimal.NewFromFloat(e.PaymentBalance).StringFixed(2))
	}
	installments, principal := amortization.Totals(entries)
	fmt.Println("--------------------------------")
	fmt.Printf("%d installments, %s principal\n", installments, decimal.NewFromFloat(principal).StringFixed(2))
	return nil
}
