package periods

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/servicer/credit"
)

const (
	// EvalAnchorAmount is the negligible amount booked on the evaluation date
	// so every loan's progress reaches it.
	EvalAnchorAmount = 1e-10

	// OpeningAnchorShare is the fraction of the installment booked on the
	// opening date to pin period assignment at the start of the loan.
	OpeningAnchorShare = 0.005
)

// ErrMismatchedAnchors is returned when per-loan dates and amounts cover different loans.
var ErrMismatchedAnchors = errors.New("periods: date and amount series reference different loans")

// Anchor is a synthetic event used to pin reconciliation boundaries. Anchors
// take part in period assignment but are never reported as payments.
type Anchor struct {
	LoanID int64
	Date   time.Time
	Amount float64
	Seq    int64 // tie-break after every real payment on the same date
}

// AnchorSpec describes a batch of anchors. Either side may be a scalar
// applied to every loan or a per-loan series.
type AnchorSpec struct {
	Date    time.Time
	Dates   []credit.LoanDate
	Amount  float64
	Amounts []credit.LoanAmount
}

// NewAnchors builds one anchor per loan covered by spec. Sequence numbers
// start right after `after`, which should be the largest id already in use.
func NewAnchors(loans []credit.Loan, after int64, spec AnchorSpec) ([]Anchor, error) {
	dateIDs := make([]int64, len(spec.Dates))
	for i, d := range spec.Dates {
		dateIDs[i] = d.LoanID
	}
	amountIDs := make([]int64, len(spec.Amounts))
	for i, a := range spec.Amounts {
		amountIDs[i] = a.LoanID
	}

	if spec.Dates != nil {
		if err := credit.ValidateSeries("date", dateIDs, loans); err != nil {
			return nil, err
		}
	}
	if spec.Amounts != nil {
		if err := credit.ValidateSeries("amount", amountIDs, loans); err != nil {
			return nil, err
		}
	}
	if spec.Dates != nil && spec.Amounts != nil && !sameSet(dateIDs, amountIDs) {
		return nil, ErrMismatchedAnchors
	}

	var ids []int64
	switch {
	case spec.Dates != nil:
		ids = dateIDs
	case spec.Amounts != nil:
		ids = amountIDs
	default:
		ids = make([]int64, len(loans))
		for i, l := range loans {
			ids[i] = l.ID
		}
	}

	dates := make(map[int64]time.Time, len(spec.Dates))
	for _, d := range spec.Dates {
		dates[d.LoanID] = d.Date
	}
	amounts := make(map[int64]float64, len(spec.Amounts))
	for _, a := range spec.Amounts {
		amounts[a.LoanID] = a.Amount
	}

	out := make([]Anchor, len(ids))
	for i, id := range ids {
		a := Anchor{LoanID: id, Date: spec.Date, Amount: spec.Amount, Seq: after + int64(i) + 1}
		if spec.Dates != nil {
			a.Date = dates[id]
		}
		if spec.Amounts != nil {
			a.Amount = amounts[id]
		}
		out[i] = a
	}
	return out, nil
}

// DefaultAnchors returns the two standard batches for loans opened by date:
// a negligible anchor on the evaluation date, then 0.5% of the installment on
// each loan's opening date.
func DefaultAnchors(loans []credit.Loan, payments []credit.Payment, date time.Time) ([]Anchor, error) {
	after := credit.MaxPaymentID(payments)
	atDate, err := NewAnchors(loans, after, AnchorSpec{Date: date, Amount: EvalAnchorAmount})
	if err != nil {
		return nil, fmt.Errorf("evaluation anchors: %w", err)
	}

	dates := make([]credit.LoanDate, len(loans))
	amounts := make([]credit.LoanAmount, len(loans))
	for i, l := range loans {
		dates[i] = credit.LoanDate{LoanID: l.ID, Date: l.OpeningDate}
		amounts[i] = credit.LoanAmount{LoanID: l.ID, Amount: l.PaymentAmount * OpeningAnchorShare}
	}
	atOpening, err := NewAnchors(loans, after+int64(len(atDate)), AnchorSpec{Dates: dates, Amounts: amounts})
	if err != nil {
		return nil, fmt.Errorf("opening anchors: %w", err)
	}
	return append(atDate, atOpening...), nil
}

func sameSet(a, b []int64) bool {
	as := make(map[int64]bool, len(a))
	for _, id := range a {
		as[id] = true
	}
	bs := make(map[int64]bool, len(b))
	for _, id := range b {
		if !as[id] {
			return false
		}
		bs[id] = true
	}
	return len(as) == len(bs)
}
