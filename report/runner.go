// Package report runs the balance, period and parity engines over a
// snapshot and summarizes the portfolio.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/servicer/balance"
	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/internal/id"
	"github.com/rustyeddy/servicer/internal/metrics"
	"github.com/rustyeddy/servicer/journal"
	"github.com/rustyeddy/servicer/parity"
	"github.com/rustyeddy/servicer/periods"
	"github.com/rustyeddy/servicer/store"
)

// LoanRow is one loan's line in the portfolio report.
type LoanRow struct {
	LoanID     int64
	UUID       uuid.UUID
	Convention balance.Convention
	Principal  float64
	Balance    float64

	Required           int
	Paid               float64
	Missed             int
	Status             parity.Status
	DaysWithoutPayment int

	PaidPeriods int
	Category    *float64 // delay category of the latest period

	Bucket     parity.Bucket
	Applicable bool
}

// Report is the result of one run.
type Report struct {
	RunID    string
	Created  time.Time
	Date     time.Time
	Source   string
	Loans    int
	Payments int

	Rows         []LoanRow
	Ledger       []periods.Record
	Distribution map[parity.Bucket]int
	Outstanding  decimal.Decimal

	Duration time.Duration
}

// Delinquent counts applicable loans at 30 days or worse.
func (r *Report) Delinquent() int {
	n := 0
	for _, row := range r.Rows {
		if row.Applicable && row.Bucket >= parity.Days30 {
			n++
		}
	}
	return n
}

// Applicable counts loans with an aging bucket.
func (r *Report) Applicable() int {
	n := 0
	for _, c := range r.Distribution {
		n += c
	}
	return n
}

// Runner drives the engines over a snapshot.
type Runner struct {
	Balances *balance.Engine
	Periods  *periods.Engine
	Journal  journal.Journal
	Log      *logrus.Logger
	Source   string
}

// Run reports every opened loan of snap as of date. The journal, when set,
// receives the run summary, one balance and one parity record per loan.
func (r *Runner) Run(ctx context.Context, snap *store.Snapshot, date time.Time) (rep *Report, err error) {
	if snap == nil {
		return nil, fmt.Errorf("report: snapshot is required")
	}
	start := time.Now()
	defer func() { metrics.ObserveReport(start, err) }()

	balances := r.Balances
	if balances == nil {
		balances = balance.Default()
	}
	ledger := r.Periods
	if ledger == nil {
		ledger = periods.Default()
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	rep = &Report{
		RunID:    id.NewRun(start),
		Created:  start.UTC(),
		Date:     date,
		Source:   r.Source,
		Loans:    len(snap.Loans),
		Payments: len(snap.Payments),
	}
	entry := log.WithFields(logrus.Fields{"run_id": rep.RunID, "date": credit.FormatDate(date)})

	asOf := balances.BalanceAsOf(snap.Payments, snap.Loans, date)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Ledger, err = ledger.ActualPeriodsTable(snap.Payments, snap.Loans, date)
	if err != nil {
		return nil, fmt.Errorf("periods: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	at := credit.On(date)
	results := parity.Parity(snap.Payments, snap.Loans, date)
	required := parity.RequiredPayments(snap.Loans, at)
	paid := parity.PaidAmount(snap.Payments, snap.Loans, at)
	missed := parity.MissedPayments(snap.Payments, snap.Loans, at)
	status := parity.PaymentStatus(snap.Payments, snap.Loans, at)
	idle := parity.DaysWithoutPayment(snap.Payments, snap.Loans, at)
	rep.Distribution = parity.Distribution(results)

	paidPeriods, latest := summarizeLedger(rep.Ledger)

	rep.Outstanding = decimal.Zero
	for i, l := range snap.Loans {
		if !l.OpenOn(date) {
			continue
		}
		row := LoanRow{
			LoanID:             l.ID,
			UUID:               l.UUID,
			Convention:         balances.Convention(l),
			Principal:          l.Amount,
			Balance:            asOf[i].Balance,
			Required:           required[l.ID],
			Paid:               paid[l.ID],
			Missed:             missed[l.ID],
			Status:             status[l.ID],
			DaysWithoutPayment: idle[l.ID],
			PaidPeriods:        paidPeriods[l.ID],
			Category:           latest[l.ID],
			Bucket:             results[i].Bucket,
			Applicable:         results[i].Applicable,
		}
		rep.Rows = append(rep.Rows, row)
		rep.Outstanding = rep.Outstanding.Add(decimal.NewFromFloat(row.Balance).Round(2))
	}
	rep.Duration = time.Since(start)

	if r.Journal != nil {
		if err := record(r.Journal, rep); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	entry.WithFields(logrus.Fields{
		"loans":       len(rep.Rows),
		"payments":    rep.Payments,
		"delinquent":  rep.Delinquent(),
		"outstanding": rep.Outstanding.StringFixed(2),
		"duration":    rep.Duration.String(),
	}).Info("report complete")

	return rep, nil
}

// summarizeLedger counts paid periods (excluding period 0) and picks the
// category of the last period per loan.
func summarizeLedger(ledger []periods.Record) (map[int64]int, map[int64]*float64) {
	paid := make(map[int64]int)
	latest := make(map[int64]*float64)
	for _, rec := range ledger {
		if rec.Period > 0 && rec.Paid {
			paid[rec.LoanID]++
		}
		if rec.Category != nil {
			latest[rec.LoanID] = rec.Category
		}
	}
	return paid, latest
}

func record(j journal.Journal, rep *Report) error {
	outstanding, _ := rep.Outstanding.Float64()
	if err := j.RecordRun(journal.RunRecord{
		RunID:       rep.RunID,
		Created:     rep.Created,
		EvalDate:    rep.Date,
		Source:      rep.Source,
		Loans:       len(rep.Rows),
		Payments:    rep.Payments,
		Outstanding: outstanding,
		Applicable:  rep.Applicable(),
		Delinquent:  rep.Delinquent(),
		Duration:    rep.Duration,
	}); err != nil {
		return err
	}

	for _, row := range rep.Rows {
		var loanUUID string
		if row.UUID != uuid.Nil {
			loanUUID = row.UUID.String()
		}
		if err := j.RecordBalance(journal.BalanceRecord{
			RunID:      rep.RunID,
			LoanID:     row.LoanID,
			LoanUUID:   loanUUID,
			Convention: row.Convention.String(),
			Principal:  row.Principal,
			Balance:    row.Balance,
		}); err != nil {
			return err
		}
		if err := j.RecordParity(journal.ParityRecord{
			RunID:              rep.RunID,
			LoanID:             row.LoanID,
			EvalDate:           rep.Date,
			Applicable:         row.Applicable,
			Bucket:             int(row.Bucket),
			Status:             string(row.Status),
			MissedPayments:     row.Missed,
			DaysWithoutPayment: row.DaysWithoutPayment,
		}); err != nil {
			return err
		}
	}
	return nil
}
