package memo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/servicer/credit"
)

func sampleLoans() []credit.Loan {
	return []credit.Loan{
		{
			ID:                 1,
			Amount:             1000,
			AnnualInterestRate: 20,
			PaymentAmount:      100,
			Term:               12,
			OpeningDate:        credit.Date(2022, time.January, 1),
			FirstPaymentDate:   credit.Date(2022, time.February, 1),
		},
	}
}

func TestLoans_CoversReadColumns(t *testing.T) {
	base := Loans(sampleLoans())
	assert.Equal(t, base, Loans(sampleLoans()))

	mutations := map[string]func(*credit.Loan){
		"id":          func(l *credit.Loan) { l.ID = 2 },
		"amount":      func(l *credit.Loan) { l.Amount++ },
		"rate":        func(l *credit.Loan) { l.AnnualInterestRate++ },
		"installment": func(l *credit.Loan) { l.PaymentAmount++ },
		"term":        func(l *credit.Loan) { l.Term++ },
		"opening":     func(l *credit.Loan) { l.OpeningDate = l.OpeningDate.AddDate(0, 0, 1) },
		"first":       func(l *credit.Loan) { l.FirstPaymentDate = l.FirstPaymentDate.AddDate(0, 0, 1) },
		"closing": func(l *credit.Loan) {
			c := credit.Date(2023, time.January, 1)
			l.ClosingDate = &c
		},
	}
	for name, mutate := range mutations {
		loans := sampleLoans()
		mutate(&loans[0])
		assert.NotEqual(t, base, Loans(loans), name)
	}

	// pass-through columns do not change the key
	loans := sampleLoans()
	loans[0].Status = []byte(`{"state":"active"}`)
	assert.Equal(t, base, Loans(loans))
}

func TestPayments_OrderAndValues(t *testing.T) {
	a := credit.Payment{ID: 1, LoanID: 1, Date: credit.Date(2022, time.March, 1), Amount: 10}
	b := credit.Payment{ID: 2, LoanID: 1, Date: credit.Date(2022, time.April, 1), Amount: 10}

	assert.NotEqual(t, Payments([]credit.Payment{a, b}), Payments([]credit.Payment{b, a}))

	c := b
	c.Amount = 11
	assert.NotEqual(t, Payments([]credit.Payment{a, b}), Payments([]credit.Payment{a, c}))
	assert.NotEqual(t, Payments(nil), Payments([]credit.Payment{a}))
}

func TestCombine(t *testing.T) {
	x := Loans(sampleLoans())
	y := Payments(nil)
	assert.NotEqual(t, Combine(x, y), Combine(y, x))
	assert.Equal(t, Combine(x, y), Combine(x, y))
	assert.Len(t, Combine(x).String(), 64)
}

func TestNew_RejectsNonPositiveSize(t *testing.T) {
	_, err := New[int]("test", 0)
	require.Error(t, err)
	assert.Panics(t, func() { MustNew[int]("test", -1) })
}

func TestCache_HitsMissesAndEviction(t *testing.T) {
	c, err := New[int]("test", 2)
	require.NoError(t, err)

	calls := 0
	compute := func(v int) func() int {
		return func() int {
			calls++
			return v
		}
	}
	k1 := NewHasher().Int64(1).Sum()
	k2 := NewHasher().Int64(2).Sum()
	k3 := NewHasher().Int64(3).Sum()

	assert.Equal(t, 1, c.Get(k1, compute(1)))
	assert.Equal(t, 1, c.Get(k1, compute(100)))
	assert.Equal(t, 2, c.Get(k2, compute(2)))
	assert.Equal(t, 3, c.Get(k3, compute(3))) // evicts k1
	assert.Equal(t, 10, c.Get(k1, compute(10)))
	assert.Equal(t, 4, calls)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(4), s.Misses)
	assert.Equal(t, 2, s.Entries)
	assert.Equal(t, 2, s.Capacity)
	assert.Equal(t, "test", c.Name())

	c.Purge()
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, uint64(4), c.Stats().Misses)
}

func TestCache_ConcurrentCallersComputeOnce(t *testing.T) {
	c := MustNew[[]int]("test", DefaultSize)
	key := NewHasher().Int64(42).Sum()

	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)
	start := make(chan struct{})
	results := make([][]int, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = c.Get(key, func() []int {
				mu.Lock()
				calls++
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				return []int{1, 2, 3}
			})
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, calls)
	for _, r := range results {
		assert.Same(t, &results[0][0], &r[0])
	}
	s := c.Stats()
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(31), s.Hits)
}
