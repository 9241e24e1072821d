package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/parity"
)

const rule = "--------------------------------------------------"

// Print writes a human readable summary of rep.
func Print(w io.Writer, rep *Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Portfolio Report")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", rep.RunID)
	fmt.Fprintf(w, "Created:       %s\n", rep.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "As of:         %s\n", credit.FormatDate(rep.Date))
	if rep.Source != "" {
		fmt.Fprintf(w, "Source:        %s\n", rep.Source)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Snapshot")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Loans:         %d (%d opened)\n", rep.Loans, len(rep.Rows))
	fmt.Fprintf(w, "Payments:      %d\n", rep.Payments)
	fmt.Fprintf(w, "Outstanding:   %s\n", rep.Outstanding.StringFixed(2))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Aging Buckets")
	fmt.Fprintln(w, rule)
	applicable := rep.Applicable()
	for _, b := range parity.Buckets {
		n := rep.Distribution[b]
		share := decimal.Zero
		if applicable > 0 {
			share = decimal.NewFromInt(int64(n)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(applicable)))
		}
		fmt.Fprintf(w, "%-14s %5d  %6s%%\n", bucketLabel(b)+":", n, share.StringFixed(1))
	}
	fmt.Fprintf(w, "Not applicable: %d\n", len(rep.Rows)-applicable)

	if len(rep.Rows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Loans")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%8s %12s %12s %4s %4s %-8s %6s\n", "loan", "principal", "balance", "req", "miss", "status", "bucket")
		for _, row := range rep.Rows {
			bucket := "-"
			if row.Applicable {
				bucket = fmt.Sprint(int(row.Bucket))
			}
			status := string(row.Status)
			if status == "" {
				status = "-"
			}
			fmt.Fprintf(w, "%8d %12s %12s %4d %4d %-8s %6s\n",
				row.LoanID,
				decimal.NewFromFloat(row.Principal).StringFixed(2),
				decimal.NewFromFloat(row.Balance).StringFixed(2),
				row.Required, row.Missed, status, bucket)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Duration:      %s\n", rep.Duration.Round(time.Millisecond))
}

func bucketLabel(b parity.Bucket) string {
	if b == parity.Current {
		return "current"
	}
	return fmt.Sprintf("%d days", int(b))
}
