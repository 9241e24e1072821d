// Package parity classifies loans into delinquency aging buckets.
//
// Every function recomputes from the snapshot for the requested evaluation
// dates; nothing is carried between calls. Evaluation dates are either a
// single date for every loan (credit.On) or a validated per-loan series
// (credit.NewLoanDates). Loans a series does not cover are left out of the
// results.
package parity

import (
	"math"
	"time"

	"github.com/rustyeddy/servicer/credit"
)

// Status compares the amount paid with the amount required so far.
type Status string

const (
	Late   Status = "late"
	OnTime Status = "on_time"
	Ahead  Status = "ahead"
)

const (
	// OnTimeShare is the fraction of the required amount that still counts as on time.
	OnTimeShare = 0.98

	// Epsilon absorbs float round-off before rounding installment counts.
	Epsilon = 1e-10

	// GraceDays are not counted as days without payment after a payment.
	GraceDays = 30
)

// Bucket is an aging bucket in days-overdue terms.
type Bucket int

const (
	Current Bucket = 0
	Days1   Bucket = 1
	Days30  Bucket = 30
	Days60  Bucket = 60
	Days90  Bucket = 90
	Days120 Bucket = 120
	Days150 Bucket = 150
	Days180 Bucket = 180
)

// Buckets lists every bucket in ascending severity.
var Buckets = []Bucket{Current, Days1, Days30, Days60, Days90, Days120, Days150, Days180}

// Result is the classification of one loan. Applicable is false when the
// evaluation date falls outside [opening date, closing date].
type Result struct {
	LoanID     int64
	Date       time.Time
	Bucket     Bucket
	Applicable bool
}

// fact holds the per-loan inputs every rule reads.
type fact struct {
	loan     credit.Loan
	date     time.Time
	paid     float64
	last     time.Time
	hasLast  bool
	required int
	opened   bool
}

func collect(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) []fact {
	byLoan := credit.GroupByLoan(payments)

	out := make([]fact, 0, len(loans))
	for _, l := range loans {
		date, ok := at.For(l.ID)
		if !ok {
			continue
		}
		f := fact{loan: l, date: date, opened: l.OpenOn(date)}
		for _, p := range byLoan[l.ID] {
			if p.Date.After(date) {
				continue
			}
			f.paid += p.Amount
			if !f.hasLast || p.Date.After(f.last) {
				f.last = p.Date
				f.hasLast = true
			}
		}
		if f.opened {
			f.required = requiredPayments(l, date)
		}
		out = append(out, f)
	}
	return out
}

func requiredPayments(l credit.Loan, date time.Time) int {
	n := credit.MonthsBetween(l.FirstPaymentDate, date)
	// due day not reached yet this month
	if !credit.IsMonthEnd(date) && date.Day() < l.FirstPaymentDate.Day() {
		n--
	}
	return min(max(n+1, 0), l.Term)
}

func (f fact) requiredAmount() float64 {
	return float64(f.required) * f.loan.PaymentAmount
}

func (f fact) status() Status {
	required := f.requiredAmount()
	switch {
	case f.paid > required:
		return Ahead
	case f.paid >= required*OnTimeShare:
		return OnTime
	default:
		return Late
	}
}

func (f fact) daysWithoutPayment() int {
	if !f.hasLast {
		return credit.Days(f.loan.OpeningDate, f.date)
	}
	return max(0, credit.Days(f.last, f.date)-GraceDays)
}

func (f fact) missedPayments() int {
	paidInstallments := math.RoundToEven(f.paid/f.loan.PaymentAmount + Epsilon)
	return f.required - int(paidInstallments)
}

func (f fact) applicable() bool {
	if f.date.Before(f.loan.OpeningDate) {
		return false
	}
	return f.loan.ClosingDate == nil || !f.loan.ClosingDate.Before(f.date)
}

// RequiredPayments is the number of installments due by each loan's
// evaluation date, clipped to [0, term]. Loans not yet opened are omitted.
func RequiredPayments(loans []credit.Loan, at credit.EvalDates) map[int64]int {
	out := make(map[int64]int, len(loans))
	for _, f := range collect(nil, loans, at) {
		if f.opened {
			out[f.loan.ID] = f.required
		}
	}
	return out
}

// RequiredAmount is RequiredPayments times the installment amount.
func RequiredAmount(loans []credit.Loan, at credit.EvalDates) map[int64]float64 {
	out := make(map[int64]float64, len(loans))
	for _, f := range collect(nil, loans, at) {
		if f.opened {
			out[f.loan.ID] = f.requiredAmount()
		}
	}
	return out
}

// PaidAmount sums the real payments dated on or before each loan's
// evaluation date. Loans without payments report 0.
func PaidAmount(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) map[int64]float64 {
	out := make(map[int64]float64, len(loans))
	for _, f := range collect(payments, loans, at) {
		out[f.loan.ID] = f.paid
	}
	return out
}

// LastPaymentDate is the latest payment date on or before each loan's
// evaluation date. Loans without one are omitted.
func LastPaymentDate(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) map[int64]time.Time {
	out := make(map[int64]time.Time, len(loans))
	for _, f := range collect(payments, loans, at) {
		if f.hasLast {
			out[f.loan.ID] = f.last
		}
	}
	return out
}

// PaymentStatus reports late, on time or ahead for every opened loan.
func PaymentStatus(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) map[int64]Status {
	out := make(map[int64]Status, len(loans))
	for _, f := range collect(payments, loans, at) {
		if f.opened {
			out[f.loan.ID] = f.status()
		}
	}
	return out
}

// DaysWithoutPayment counts days since the last payment beyond the grace
// period. Loans that never paid count days since opening.
func DaysWithoutPayment(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) map[int64]int {
	out := make(map[int64]int, len(loans))
	for _, f := range collect(payments, loans, at) {
		out[f.loan.ID] = f.daysWithoutPayment()
	}
	return out
}

// MissedPayments is required installments minus installments paid, rounded
// half to even. Loans not yet opened are omitted.
func MissedPayments(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) map[int64]int {
	out := make(map[int64]int, len(loans))
	for _, f := range collect(payments, loans, at) {
		if f.opened {
			out[f.loan.ID] = f.missedPayments()
		}
	}
	return out
}

// Parity classifies every loan at date, in loans order.
func Parity(payments []credit.Payment, loans []credit.Loan, date time.Time) []Result {
	return ParityAt(payments, loans, credit.On(date))
}

// ParityAt classifies every loan the evaluation dates cover, in loans order.
func ParityAt(payments []credit.Payment, loans []credit.Loan, at credit.EvalDates) []Result {
	facts := collect(payments, loans, at)
	out := make([]Result, len(facts))
	for i, f := range facts {
		out[i] = classify(f)
	}
	return out
}

func classify(f fact) Result {
	r := Result{LoanID: f.loan.ID, Date: f.date}
	if !f.applicable() {
		return r
	}
	r.Applicable = true

	missed := f.missedPayments()
	late := f.status() == Late
	switch {
	case missed <= 0 && !late:
		r.Bucket = Current
	case missed <= 0:
		r.Bucket = escalate(f.daysWithoutPayment(), missed, false)
	default:
		r.Bucket = escalate(f.daysWithoutPayment(), missed, true)
	}
	return r
}

var ladder = []struct {
	bucket Bucket
	days   int
	missed int
}{
	{Days180, 180, 7},
	{Days150, 150, 6},
	{Days120, 120, 5},
	{Days90, 90, 4},
	{Days60, 60, 3},
	{Days30, 30, 2},
}

// escalate returns the most severe bucket reached by days without payment
// or, when countMissed is set, by the number of missed installments.
func escalate(days, missed int, countMissed bool) Bucket {
	for _, step := range ladder {
		if days > step.days || (countMissed && missed >= step.missed) {
			return step.bucket
		}
	}
	return Days1
}

// Distribution counts applicable results per bucket.
func Distribution(results []Result) map[Bucket]int {
	out := make(map[Bucket]int, len(Buckets))
	for _, r := range results {
		if r.Applicable {
			out[r.Bucket]++
		}
	}
	return out
}
