package credit

import (
	"sort"
	"time"
)

// SortPayments returns a copy of payments ordered by (Date, ID).
func SortPayments(payments []Payment) []Payment {
	out := make([]Payment, len(payments))
	copy(out, payments)
	sort.SliceStable(out, func(i, j int) bool {
		return PaymentLess(out[i], out[j])
	})
	return out
}

// PaymentLess is the canonical payment ordering: date, then id as tie-break.
func PaymentLess(a, b Payment) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.ID < b.ID
}

// PaymentsUpTo returns the payments dated on or before date, in input order.
func PaymentsUpTo(payments []Payment, date time.Time) []Payment {
	var out []Payment
	for _, p := range payments {
		if !p.Date.After(date) {
			out = append(out, p)
		}
	}
	return out
}

// GroupByLoan splits payments by loan id, preserving their relative order.
func GroupByLoan(payments []Payment) map[int64][]Payment {
	out := make(map[int64][]Payment)
	for _, p := range payments {
		out[p.LoanID] = append(out[p.LoanID], p)
	}
	return out
}

// MaxPaymentID returns the largest payment id, or 0 when there are none.
func MaxPaymentID(payments []Payment) int64 {
	var max int64
	for _, p := range payments {
		if p.ID > max {
			max = p.ID
		}
	}
	return max
}
