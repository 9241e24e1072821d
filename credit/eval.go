package credit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateLoan is returned when a per-loan series references a loan twice.
	ErrDuplicateLoan = errors.New("credit: series contains duplicate loan ids")
	// ErrUnknownLoan is returned when a per-loan series references a loan outside the snapshot.
	ErrUnknownLoan = errors.New("credit: series loan ids must be a subset of the loan snapshot")
)

// EvalDates resolves the evaluation date for a loan. A scalar date applies to
// every loan; a per-loan series only covers the loans it names.
type EvalDates interface {
	For(loanID int64) (time.Time, bool)
}

type scalarDate time.Time

func (d scalarDate) For(int64) (time.Time, bool) { return time.Time(d), true }

// On evaluates every loan at the same date.
func On(date time.Time) EvalDates {
	return scalarDate(date)
}

// LoanDate is one entry of a per-loan date series.
type LoanDate struct {
	LoanID int64
	Date   time.Time
}

// LoanAmount is one entry of a per-loan amount series.
type LoanAmount struct {
	LoanID int64
	Amount float64
}

// LoanDates is a validated per-loan date series.
type LoanDates struct {
	dates map[int64]time.Time
	order []int64
}

// NewLoanDates validates entries against the loan snapshot.
func NewLoanDates(entries []LoanDate, loans []Loan) (LoanDates, error) {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.LoanID
	}
	if err := ValidateSeries("date", ids, loans); err != nil {
		return LoanDates{}, err
	}
	ld := LoanDates{dates: make(map[int64]time.Time, len(entries)), order: ids}
	for _, e := range entries {
		ld.dates[e.LoanID] = e.Date
	}
	return ld, nil
}

func (ld LoanDates) For(loanID int64) (time.Time, bool) {
	d, ok := ld.dates[loanID]
	return d, ok
}

// LoanIDs returns the series loan ids in their original order.
func (ld LoanDates) LoanIDs() []int64 { return ld.order }

// ValidateSeries checks that ids has no duplicates and only references loans
// present in the snapshot. name labels the series in the error.
func ValidateSeries(name string, ids []int64, loans []Loan) error {
	idx := Index(loans)
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%s series, loan %d: %w", name, id, ErrDuplicateLoan)
		}
		seen[id] = true
	}
	for _, id := range ids {
		if _, ok := idx[id]; !ok {
			return fmt.Errorf("%s series, loan %d: %w", name, id, ErrUnknownLoan)
		}
	}
	return nil
}
