package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/parity"
)

var parityCmd = &cobra.Command{
	Use:   "parity",
	Short: "Classify loans into delinquency aging buckets",
	Long: `Classify every loan into an aging bucket (0, 1, 30, ... 180 days)
as of one date, or as of per-loan dates read from a CSV file with
loan_id,date rows.

Examples:
  servicer parity --date 2022-05-15
  servicer parity --dates eval_dates.csv`,
	RunE: runParity,
}

var (
	parityDate  string
	parityDates string
)

func init() {
	rootCmd.AddCommand(parityCmd)
	parityCmd.Flags().StringVarP(&parityDate, "date", "d", "", "evaluation date YYYY-MM-DD (default today)")
	parityCmd.Flags().StringVar(&parityDates, "dates", "", "CSV of loan_id,date evaluation dates")
}

func runParity(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	var at credit.EvalDates
	if parityDates != "" {
		entries, err := readLoanDates(parityDates)
		if err != nil {
			return err
		}
		if at, err = credit.NewLoanDates(entries, snap.Loans); err != nil {
			return err
		}
	} else {
		date, err := parseDate(parityDate)
		if err != nil {
			return err
		}
		at = credit.On(date)
	}

	results := parity.ParityAt(snap.Payments, snap.Loans, at)
	status := parity.PaymentStatus(snap.Payments, snap.Loans, at)
	missed := parity.MissedPayments(snap.Payments, snap.Loans, at)
	idle := parity.DaysWithoutPayment(snap.Payments, snap.Loans, at)

	fmt.Printf("%8s  %-10s  %-8s  %6s  %6s  %6s\n", "loan", "date", "status", "missed", "idle", "bucket")
	for _, r := range results {
		bucket := "n/a"
		if r.Applicable {
			bucket = fmt.Sprint(int(r.Bucket))
		}
		st := string(status[r.LoanID])
		if st == "" {
			st = "-"
		}
		fmt.Printf("%8d  %-10s  %-8s  %6d  %6d  %6s\n",
			r.LoanID, credit.FormatDate(r.Date), st, missed[r.LoanID], idle[r.LoanID], bucket)
	}

	dist := parity.Distribution(results)
	fmt.Println()
	for _, b := range parity.Buckets {
		fmt.Printf("bucket %3d: %d\n", int(b), dist[b])
	}
	return nil
}

// readLoanDates reads loan_id,date rows. A header row is skipped.
func readLoanDates(path string) ([]credit.LoanDate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	var out []credit.LoanDate
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id, err := parseLoanID(rec[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		date, err := credit.ParseDate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, credit.LoanDate{LoanID: id, Date: date})
	}
	return out, nil
}
