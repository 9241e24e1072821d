package credit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Loan is one row of the loan ("credit") snapshot.
type Loan struct {
	ID   int64
	UUID uuid.UUID // external reference, passed through

	Amount             float64 // principal
	AnnualInterestRate float64 // percent, simple interest over a 360 day year
	PaymentAmount      float64 // scheduled installment
	Term               int     // number of installments

	OpeningDate      time.Time
	FirstPaymentDate time.Time
	ClosingDate      *time.Time // nil while the loan is open

	Status json.RawMessage // opaque status metadata
}

// Validate checks the loan invariants. The engines never call it; loaders do.
func (l Loan) Validate() error {
	if l.FirstPaymentDate.Before(l.OpeningDate) {
		return fmt.Errorf("loan %d: first payment date %s before opening date %s",
			l.ID, FormatDate(l.FirstPaymentDate), FormatDate(l.OpeningDate))
	}
	if l.ClosingDate != nil && l.ClosingDate.Before(l.OpeningDate) {
		return fmt.Errorf("loan %d: closing date %s before opening date %s",
			l.ID, FormatDate(*l.ClosingDate), FormatDate(l.OpeningDate))
	}
	if l.Term < 0 {
		return fmt.Errorf("loan %d: negative term %d", l.ID, l.Term)
	}
	return nil
}

// OpenOn reports whether the loan was opened on or before date.
func (l Loan) OpenOn(date time.Time) bool {
	return !l.OpeningDate.After(date)
}

// Payment is one recorded payment event.
type Payment struct {
	ID     int64
	LoanID int64
	Date   time.Time
	Amount float64

	ClientPaymentDate *time.Time // client reported, passed through
}

// Index maps loan ids to their position in loans.
func Index(loans []Loan) map[int64]int {
	idx := make(map[int64]int, len(loans))
	for i, l := range loans {
		idx[l.ID] = i
	}
	return idx
}
