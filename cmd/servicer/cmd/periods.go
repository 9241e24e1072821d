package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/credit"
)

var periodsCmd = &cobra.Command{
	Use:   "periods <loan-id>",
	Short: "Print the reconciled installment ledger of a loan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeriods,
}

var periodsDate string

func init() {
	rootCmd.AddCommand(periodsCmd)
	periodsCmd.Flags().StringVarP(&periodsDate, "date", "d", "", "evaluation date YYYY-MM-DD (default today)")
}

func runPeriods(cmd *cobra.Command, args []string) error {
	id, err := parseLoanID(args[0])
	if err != nil {
		return err
	}
	date, err := parseDate(periodsDate)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := findLoan(snap, id); err != nil {
		return err
	}
	_, ledger, err := newEngines()
	if err != nil {
		return err
	}

	rows, err := ledger.ActualPeriodsTable(snap.Payments, snap.Loans, date)
	if err != nil {
		return err
	}

	fmt.Printf("Loan %d as of %s\n", id, credit.FormatDate(date))
	fmt.Printf("%6s  %-10s  %10s  %-10s  %-4s  %6s  %8s\n", "period", "expected", "amount", "paid on", "paid", "delay", "category")
	for _, r := range rows {
		if r.LoanID != id {
			continue
		}
		amount := "-"
		if r.Amount != nil {
			amount = fmt.Sprintf("%.2f", *r.Amount)
		}
		delay, category := "-", "-"
		if r.Delay != nil {
			delay = fmt.Sprint(*r.Delay)
		}
		if r.Category != nil {
			category = fmt.Sprint(*r.Category)
		}
		paid := "no"
		if r.Paid {
			paid = "yes"
		}
		fmt.Printf("%6d  %-10s  %10s  %-10s  %-4s  %6s  %8s\n",
			r.Period, orDash(r.ExpectedDate), amount, orDash(r.Date), paid, delay, category)
	}
	return nil
}

func orDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return credit.FormatDate(*t)
}
