package balance

import (
	"math"
	"time"

	"github.com/rustyeddy/servicer/amortization"
	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/memo"
)

// Cutover is the opening date from which loans accrue interest-first.
var Cutover = credit.Date(2021, time.December, 1)

// Convention is an interest accrual convention.
type Convention int

const (
	FutureValue Convention = iota
	InterestFirst
)

func (c Convention) String() string {
	if c == InterestFirst {
		return "interest_first"
	}
	return "future_value"
}

// PostPayment is the loan balance immediately after one payment.
type PostPayment struct {
	PaymentID int64
	LoanID    int64
	Date      time.Time
	Balance   float64
}

// LoanBalance is the balance of a loan as of some date.
type LoanBalance struct {
	LoanID  int64
	Balance float64
}

// Engine computes post-payment balances and memoizes them per snapshot.
type Engine struct {
	cutover time.Time
	cache   *memo.Cache[[]PostPayment]
}

// NewEngine returns an engine whose cache keeps up to cacheSize snapshots.
// A zero cutover uses Cutover.
func NewEngine(cacheSize int, cutover time.Time) (*Engine, error) {
	cache, err := memo.New[[]PostPayment]("post_payment_balance", cacheSize)
	if err != nil {
		return nil, err
	}
	if cutover.IsZero() {
		cutover = Cutover
	}
	return &Engine{cutover: cutover, cache: cache}, nil
}

var defaultEngine = &Engine{
	cutover: Cutover,
	cache:   memo.MustNew[[]PostPayment]("post_payment_balance", memo.DefaultSize),
}

// Default returns the process-wide engine.
func Default() *Engine { return defaultEngine }

// Convention picks the accrual convention for a loan by its opening date.
func (e *Engine) Convention(l credit.Loan) Convention {
	if !l.OpeningDate.Before(e.cutover) {
		return InterestFirst
	}
	return FutureValue
}

// CacheStats exposes the memo counters.
func (e *Engine) CacheStats() memo.Stats { return e.cache.Stats() }

// PostPaymentBalance returns, for every payment whose loan is in loans, the
// balance right after it, ordered by (date, id). Results are memoized by a
// fingerprint of both snapshots; callers must not modify the returned slice.
func (e *Engine) PostPaymentBalance(payments []credit.Payment, loans []credit.Loan) []PostPayment {
	key := memo.Combine(memo.Payments(payments), memo.Loans(loans))
	return e.cache.Get(key, func() []PostPayment {
		return e.compute(payments, loans)
	})
}

// BalanceAsOf returns, per loan in loans order, the lowest post-payment
// balance reached by payments dated on or before date. Loans without such a
// payment report their full principal.
func (e *Engine) BalanceAsOf(payments []credit.Payment, loans []credit.Loan, date time.Time) []LoanBalance {
	lowest := make(map[int64]float64)
	for _, pp := range e.PostPaymentBalance(payments, loans) {
		if pp.Date.After(date) {
			continue
		}
		if b, ok := lowest[pp.LoanID]; !ok || pp.Balance < b {
			lowest[pp.LoanID] = pp.Balance
		}
	}

	out := make([]LoanBalance, len(loans))
	for i, l := range loans {
		b, ok := lowest[l.ID]
		if !ok {
			b = l.Amount
		}
		out[i] = LoanBalance{LoanID: l.ID, Balance: b}
	}
	return out
}

func (e *Engine) compute(payments []credit.Payment, loans []credit.Loan) []PostPayment {
	idx := credit.Index(loans)

	out := make([]PostPayment, 0, len(payments))
	byLoan := make(map[int64][]credit.Payment)
	positions := make(map[int64][]int)
	for _, p := range credit.SortPayments(payments) {
		if _, ok := idx[p.LoanID]; !ok {
			continue
		}
		byLoan[p.LoanID] = append(byLoan[p.LoanID], p)
		positions[p.LoanID] = append(positions[p.LoanID], len(out))
		out = append(out, PostPayment{PaymentID: p.ID, LoanID: p.LoanID, Date: p.Date})
	}

	for loanID, ps := range byLoan {
		l := loans[idx[loanID]]
		var balances []float64
		if e.Convention(l) == InterestFirst {
			balances = InterestFirstBalances(l, ps)
		} else {
			balances = FutureValueBalances(l, ps)
		}
		for i, at := range positions[loanID] {
			out[at].Balance = balances[i]
		}
	}
	return out
}

// FV is the future value of an annuity paid at period end: pv compounded
// over n periods at rate, plus pmt per period (numpy-financial sign rules).
func FV(rate, n, pmt, pv float64) float64 {
	if rate == 0 {
		return -(pv + pmt*n)
	}
	growth := math.Pow(1+rate, n)
	return -(pv*growth + pmt*(growth-1)/rate)
}

// FutureValueBalances treats the cumulative amount paid as a fractional count
// of installments on a standard annuity. ps must belong to l, sorted.
func FutureValueBalances(l credit.Loan, ps []credit.Payment) []float64 {
	rate := l.AnnualInterestRate / 1200 * amortization.TaxFactor

	out := make([]float64, len(ps))
	var cumulative float64
	for i, p := range ps {
		cumulative += p.Amount
		n := cumulative / l.PaymentAmount
		out[i] = math.Max(0, FV(rate, n, l.PaymentAmount, -l.Amount))
	}
	return out
}

// InterestFirstBalances replays ps (belonging to l, sorted) in order. Each
// payment first settles accrued interest plus surcharge; only the remainder
// reduces principal. Balances are not floored.
func InterestFirstBalances(l credit.Loan, ps []credit.Payment) []float64 {
	out := make([]float64, len(ps))
	balance := l.Amount
	accrued := 0.0
	prev := l.OpeningDate
	for i, p := range ps {
		gap := max(0, credit.Days(prev, p.Date))
		prev = p.Date
		accrued += math.Max(0, float64(gap)*l.AnnualInterestRate/amortization.DayCountBasis*balance)

		if p.Amount < accrued*amortization.TaxFactor {
			accrued -= p.Amount / amortization.TaxFactor
		} else {
			balance -= p.Amount - accrued*amortization.TaxFactor
			accrued = 0
		}
		out[i] = balance
	}
	return out
}

// PostPaymentBalance runs the default engine.
func PostPaymentBalance(payments []credit.Payment, loans []credit.Loan) []PostPayment {
	return defaultEngine.PostPaymentBalance(payments, loans)
}

// BalanceAsOf runs the default engine.
func BalanceAsOf(payments []credit.Payment, loans []credit.Loan, date time.Time) []LoanBalance {
	return defaultEngine.BalanceAsOf(payments, loans, date)
}
