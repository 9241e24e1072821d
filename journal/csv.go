package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/servicer/credit"
)

var (
	runsHeader     = []string{"run_id", "created", "eval_date", "source", "loans", "payments", "outstanding", "applicable", "delinquent", "duration_ms"}
	balancesHeader = []string{"run_id", "loan_id", "loan_uuid", "convention", "principal", "balance"}
	paritiesHeader = []string{"run_id", "loan_id", "eval_date", "bucket", "status", "missed_payments", "days_without_payment"}
)

type CSVJournal struct {
	runs, balances, parities *csv.Writer
	files                    []*os.File
}

func NewCSV(runsPath, balancesPath, paritiesPath string) (*CSVJournal, error) {
	j := &CSVJournal{}
	open := func(path string, header []string) (*csv.Writer, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)

		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.runs, err = open(runsPath, runsHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.balances, err = open(balancesPath, balancesHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.parities, err = open(paritiesPath, paritiesHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	return write(j.runs, []string{
		r.RunID,
		r.Created.UTC().Format(time.RFC3339),
		credit.FormatDate(r.EvalDate),
		r.Source,
		strconv.Itoa(r.Loans),
		strconv.Itoa(r.Payments),
		money(r.Outstanding),
		strconv.Itoa(r.Applicable),
		strconv.Itoa(r.Delinquent),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
	})
}

func (j *CSVJournal) RecordBalance(b BalanceRecord) error {
	return write(j.balances, []string{
		b.RunID,
		strconv.FormatInt(b.LoanID, 10),
		b.LoanUUID,
		b.Convention,
		money(b.Principal),
		money(b.Balance),
	})
}

func (j *CSVJournal) RecordParity(p ParityRecord) error {
	bucket := ""
	if p.Applicable {
		bucket = strconv.Itoa(p.Bucket)
	}
	return write(j.parities, []string{
		p.RunID,
		strconv.FormatInt(p.LoanID, 10),
		credit.FormatDate(p.EvalDate),
		bucket,
		p.Status,
		strconv.Itoa(p.MissedPayments),
		strconv.Itoa(p.DaysWithoutPayment),
	})
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.runs, j.balances, j.parities} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	return j.closeFiles()
}

func (j *CSVJournal) closeFiles() error {
	var first error
	for _, f := range j.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// money renders an amount with two decimals, rounding half away from zero.
func money(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(2)
}
