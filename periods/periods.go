package periods

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/memo"
)

// Record is one (loan, period) row of the installment ledger. Period 0 is
// the opening anchor and has no expected date.
type Record struct {
	LoanID       int64
	Period       int
	ExpectedDate *time.Time

	Amount   *float64   // real payments assigned to this period
	Date     *time.Time // last payment date, forward filled, nil while unpaid
	Paid     bool
	Delay    *int     // days late (negative when early)
	Category *float64 // delay aging label, see DelayCategory
}

// Engine reconciles payments against installment grids and memoizes grids.
type Engine struct {
	cache *memo.Cache[[]Record]
}

func NewEngine(cacheSize int) (*Engine, error) {
	cache, err := memo.New[[]Record]("periods_table", cacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{cache: cache}, nil
}

var defaultEngine = &Engine{
	cache: memo.MustNew[[]Record]("periods_table", memo.DefaultSize),
}

// Default returns the process-wide engine.
func Default() *Engine { return defaultEngine }

func (e *Engine) CacheStats() memo.Stats { return e.cache.Stats() }

// PeriodsTable returns the empty grid: periods 0..term+1 for every loan, in
// loans order. The result is shared; callers must not modify it.
func (e *Engine) PeriodsTable(loans []credit.Loan) []Record {
	return e.cache.Get(memo.Loans(loans), func() []Record {
		var out []Record
		for _, l := range loans {
			for period := 0; period <= l.Term+1; period++ {
				r := Record{LoanID: l.ID, Period: period}
				if period > 0 {
					due := credit.AddMonths(l.FirstPaymentDate, period-1)
					r.ExpectedDate = &due
				}
				out = append(out, r)
			}
		}
		return out
	})
}

// ActualPeriodsTable reconciles payments recorded up to date against each
// open loan's grid, anchored with DefaultAnchors.
func (e *Engine) ActualPeriodsTable(payments []credit.Payment, loans []credit.Loan, date time.Time) ([]Record, error) {
	opened := openedBy(loans, date)
	upTo := credit.PaymentsUpTo(payments, date)
	anchors, err := DefaultAnchors(opened, upTo, date)
	if err != nil {
		return nil, err
	}
	return e.Reconcile(upTo, opened, date, anchors), nil
}

// event is a real payment or an anchor on the reconciliation timeline.
type event struct {
	date   time.Time
	amount float64
	seq    int64
	real   bool
}

type aggregate struct {
	date     time.Time
	real     float64
	realSeen bool
}

// Reconcile assigns every payment and anchor to the period it completes and
// derives paid status, dates, delays and categories per period. Loans not
// opened by date, payments after date, and anchors for unknown loans are
// ignored. Rows are ordered by (loan id, period); period term+1 is dropped.
func (e *Engine) Reconcile(payments []credit.Payment, loans []credit.Loan, date time.Time, anchors []Anchor) []Record {
	opened := openedBy(loans, date)
	sort.SliceStable(opened, func(i, j int) bool { return opened[i].ID < opened[j].ID })

	events := make(map[int64][]event, len(opened))
	for _, p := range credit.PaymentsUpTo(payments, date) {
		events[p.LoanID] = append(events[p.LoanID], event{date: p.Date, amount: p.Amount, seq: p.ID, real: true})
	}
	for _, a := range anchors {
		events[a.LoanID] = append(events[a.LoanID], event{date: a.Date, amount: a.Amount, seq: a.Seq})
	}

	grid := e.PeriodsTable(opened)
	out := make([]Record, 0, len(grid))
	start := 0
	for _, l := range opened {
		rows := grid[start : start+l.Term+2]
		start += l.Term + 2
		out = append(out, reconcileLoan(l, rows, events[l.ID], closingRef(l, date))...)
	}
	return out
}

func reconcileLoan(l credit.Loan, grid []Record, evs []event, ref time.Time) []Record {
	sort.SliceStable(evs, func(i, j int) bool {
		if !evs[i].date.Equal(evs[j].date) {
			return evs[i].date.Before(evs[j].date)
		}
		return evs[i].seq < evs[j].seq
	})

	// each event completes the period after the whole installments paid before it
	aggs := make(map[int]*aggregate)
	cumulative := 0.0
	for _, ev := range evs {
		period := int(math.Floor(cumulative/l.PaymentAmount)) + 1
		cumulative += ev.amount

		agg, ok := aggs[period]
		if !ok {
			agg = &aggregate{date: ev.date}
			aggs[period] = agg
		}
		if ev.date.After(agg.date) {
			agg.date = ev.date
		}
		if ev.real {
			agg.real += ev.amount
			agg.realSeen = true
		}
	}

	last := len(grid) - 1
	watermark := -1
	for i := last; i >= 0; i-- {
		if _, ok := aggs[grid[i].Period]; ok {
			watermark = i
			break
		}
	}

	rows := make([]Record, len(grid))
	raw := make([]*float64, len(grid))
	var filled *time.Time
	for i, g := range grid {
		r := Record{LoanID: g.LoanID, Period: g.Period}
		if g.ExpectedDate != nil {
			due := *g.ExpectedDate
			r.ExpectedDate = &due
		}
		if agg, ok := aggs[g.Period]; ok {
			d := agg.date
			filled = &d
			if agg.realSeen {
				amount := agg.real
				r.Amount = &amount
			}
		}

		r.Paid = watermark < 0 || i < watermark
		if r.Paid && filled != nil {
			d := *filled
			r.Date = &d
		}

		if r.ExpectedDate != nil {
			observed := ref
			if r.Date != nil {
				observed = *r.Date
			}
			delay := credit.Days(*r.ExpectedDate, observed)
			r.Delay = &delay
			c := DelayCategory(delay)
			raw[i] = &c
		}
		rows[i] = r
	}

	// the category sticks at the watermark's value from there on
	for i := range rows {
		rows[i].Category = raw[i]
		if watermark >= 0 && i >= watermark && raw[watermark] != nil {
			c := *raw[watermark]
			rows[i].Category = &c
		}
	}

	return rows[:last]
}

// DelayCategory maps a delay in days onto the aging label, with
// right-inclusive bins.
func DelayCategory(days int) float64 {
	switch {
	case days <= 0:
		return 1
	case days <= 5:
		return 1.5
	case days <= 29:
		return 2
	case days <= 59:
		return 3
	case days <= 89:
		return 4
	case days <= 119:
		return 5
	case days <= 149:
		return 6
	case days <= 179:
		return 7
	default:
		return 8
	}
}

func openedBy(loans []credit.Loan, date time.Time) []credit.Loan {
	var out []credit.Loan
	for _, l := range loans {
		if l.OpenOn(date) {
			out = append(out, l)
		}
	}
	return out
}

// closingRef is the date unpaid periods are measured against: the closing
// date when the loan closed by date, date otherwise.
func closingRef(l credit.Loan, date time.Time) time.Time {
	if l.ClosingDate != nil && !l.ClosingDate.After(date) {
		return *l.ClosingDate
	}
	return date
}

// PeriodsTable runs the default engine.
func PeriodsTable(loans []credit.Loan) []Record {
	return defaultEngine.PeriodsTable(loans)
}

// ActualPeriodsTable runs the default engine.
func ActualPeriodsTable(payments []credit.Payment, loans []credit.Loan, date time.Time) ([]Record, error) {
	return defaultEngine.ActualPeriodsTable(payments, loans, date)
}
