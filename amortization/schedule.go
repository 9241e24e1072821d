package amortization

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/servicer/credit"
)

const (
	// TaxFactor is the 16% surcharge applied on top of accrued interest.
	TaxFactor = 1.16

	// DayCountBasis turns an annual percentage rate into a daily fraction (360 days x 100).
	DayCountBasis = 36000.0

	// MaxInstallments bounds the schedule; an installment that cannot amortize
	// the principal within this many periods is rejected.
	MaxInstallments = 1200
)

var (
	ErrInvalidParams = errors.New("amortization: invalid parameters")
	ErrNonAmortizing = errors.New("amortization: installment does not amortize the principal")
)

// Params are the inputs of a theoretical schedule.
type Params struct {
	Amount             float64
	AnnualInterestRate float64
	PaymentAmount      float64
	OpeningDate        time.Time
	FirstPaymentDate   time.Time
}

// ForLoan builds schedule parameters from a loan.
func ForLoan(l credit.Loan) Params {
	return Params{
		Amount:             l.Amount,
		AnnualInterestRate: l.AnnualInterestRate,
		PaymentAmount:      l.PaymentAmount,
		OpeningDate:        l.OpeningDate,
		FirstPaymentDate:   l.FirstPaymentDate,
	}
}

func (p Params) validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"amount", p.Amount},
		{"interest rate", p.AnnualInterestRate},
		{"payment", p.PaymentAmount},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%s %v: %w", f.name, f.v, ErrInvalidParams)
		}
	}
	return nil
}

// Entry is one installment of the schedule. Only principal attrition is
// modelled; the interest columns are always zero.
type Entry struct {
	PaymentDate        time.Time
	MoratoriumInterest float64
	OrdinaryInterest   float64
	PaymentBalance     float64 // principal amortized by this installment
}

// IsSentinel reports whether e is the terminal entry closing the schedule.
func (e Entry) IsSentinel() bool {
	return e.PaymentDate.Equal(credit.Never)
}

// Interest is the simple interest accrued on balance between two dates,
// floored at zero.
func Interest(balance, annualRate float64, from, to time.Time) float64 {
	days := credit.Days(from, to)
	return math.Max(0, float64(days)*annualRate/DayCountBasis*balance)
}

// Schedule generates installments until the principal is exhausted, then
// appends the sentinel entry. The final real installment is trimmed so the
// principal amortized across all real entries equals the loan amount.
func Schedule(p Params) ([]Entry, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	balance := p.Amount
	var entries []Entry
	for i := 0; balance >= 0; i++ {
		if i >= MaxInstallments {
			return nil, fmt.Errorf("%d installments of %.2f leave %.2f: %w",
				i, p.PaymentAmount, balance, ErrNonAmortizing)
		}
		due := credit.AddMonths(p.FirstPaymentDate, i)
		prev := p.OpeningDate
		if i > 0 {
			prev = credit.AddMonths(p.FirstPaymentDate, i-1)
		}

		interest := Interest(balance, p.AnnualInterestRate, prev, due)
		principal := p.PaymentAmount - interest*TaxFactor
		balance -= principal
		entries = append(entries, Entry{
			PaymentDate:    due,
			PaymentBalance: principal,
		})
	}

	entries[len(entries)-1].PaymentBalance += balance
	entries = append(entries, Entry{
		PaymentDate:    credit.Never,
		PaymentBalance: math.Inf(1),
	})
	return entries, nil
}

// Totals sums the principal amortized by the real (non-sentinel) entries.
func Totals(entries []Entry) (installments int, principal float64) {
	for _, e := range entries {
		if e.IsSentinel() {
			continue
		}
		installments++
		principal += e.PaymentBalance
	}
	return installments, principal
}
