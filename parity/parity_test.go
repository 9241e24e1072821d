package parity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/servicer/credit"
)

func day(y int, m time.Month, d int) time.Time {
	return credit.Date(y, m, d)
}

func newLoan(id int64) credit.Loan {
	return credit.Loan{
		ID:                 id,
		Amount:             10000,
		AnnualInterestRate: 30,
		PaymentAmount:      1000,
		Term:               12,
		OpeningDate:        day(2022, time.January, 1),
		FirstPaymentDate:   day(2022, time.February, 1),
	}
}

func TestRequiredPayments(t *testing.T) {
	mid := newLoan(1)
	mid.Term = 6
	mid.OpeningDate = day(2022, time.January, 10)
	mid.FirstPaymentDate = day(2022, time.February, 15)

	monthEnd := newLoan(2)
	monthEnd.FirstPaymentDate = day(2022, time.January, 31)

	tests := []struct {
		name string
		loan credit.Loan
		date time.Time
		want int
		ok   bool
	}{
		{"not opened", mid, day(2022, time.January, 5), 0, false},
		{"opened before first due", mid, day(2022, time.January, 20), 0, true},
		{"day before first due", mid, day(2022, time.February, 14), 0, true},
		{"first due", mid, day(2022, time.February, 15), 1, true},
		{"day before second due", mid, day(2022, time.March, 14), 1, true},
		{"second due", mid, day(2022, time.March, 15), 2, true},
		{"clipped to term", mid, day(2023, time.December, 1), 6, true},
		{"month end counts as due", monthEnd, day(2022, time.February, 28), 2, true},
		{"before month end", monthEnd, day(2022, time.February, 27), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RequiredPayments([]credit.Loan{tt.loan}, credit.On(tt.date))[tt.loan.ID]
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequiredAmount(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	got := RequiredAmount(loans, credit.On(day(2022, time.April, 1)))
	assert.InDelta(t, 3000.0, got[1], 1e-9)
}

func TestScenarioC_NoPayments(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	at := credit.On(day(2022, time.May, 15))

	assert.Equal(t, 4, RequiredPayments(loans, at)[1])
	assert.Equal(t, 4, MissedPayments(nil, loans, at)[1])
	assert.Equal(t, Late, PaymentStatus(nil, loans, at)[1])
	assert.Equal(t, 0.0, PaidAmount(nil, loans, at)[1])
	_, ok := LastPaymentDate(nil, loans, at)[1]
	assert.False(t, ok)
	// no payment: days since opening, without grace
	assert.Equal(t, 134, DaysWithoutPayment(nil, loans, at)[1])

	results := Parity(nil, loans, day(2022, time.May, 15))
	require.Len(t, results, 1)
	assert.True(t, results[0].Applicable)
	assert.Equal(t, Days120, results[0].Bucket)

	early := Parity(nil, loans, day(2022, time.February, 20))
	assert.Equal(t, Days30, early[0].Bucket)
}

func scheduledPayments(l credit.Loan) []credit.Payment {
	out := make([]credit.Payment, l.Term)
	for i := range out {
		out[i] = credit.Payment{
			ID:     int64(i + 1),
			LoanID: l.ID,
			Date:   credit.AddMonths(l.FirstPaymentDate, i),
			Amount: l.PaymentAmount,
		}
	}
	return out
}

func TestScenarioD_ClosedOnSchedule(t *testing.T) {
	l := newLoan(1)
	l.Term = 3
	closing := day(2022, time.April, 1)
	l.ClosingDate = &closing
	loans := []credit.Loan{l}
	payments := scheduledPayments(l)

	onClosing := Parity(payments, loans, closing)
	assert.True(t, onClosing[0].Applicable)
	assert.Equal(t, Current, onClosing[0].Bucket)

	for _, date := range []time.Time{day(2022, time.April, 2), day(2022, time.June, 30), day(2025, time.January, 1)} {
		r := Parity(payments, loans, date)
		require.Len(t, r, 1)
		assert.False(t, r[0].Applicable, "date %s", credit.FormatDate(date))
	}

	before := Parity(payments, loans, day(2021, time.December, 31))
	assert.False(t, before[0].Applicable)
}

func TestPaymentStatus_Boundaries(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	at := credit.On(day(2022, time.February, 10))

	tests := []struct {
		paid float64
		want Status
	}{
		{0, Late},
		{979.99, Late},
		{980, OnTime},
		{1000, OnTime},
		{1000.01, Ahead},
	}
	for _, tt := range tests {
		payments := []credit.Payment{{ID: 1, LoanID: 1, Date: day(2022, time.February, 1), Amount: tt.paid}}
		assert.Equal(t, tt.want, PaymentStatus(payments, loans, at)[1], "paid=%v", tt.paid)
	}

	notOpen := newLoan(2)
	notOpen.OpeningDate = day(2023, time.January, 1)
	_, ok := PaymentStatus(nil, []credit.Loan{notOpen}, at)[2]
	assert.False(t, ok)
}

func TestPaymentStatus_NothingDueYet(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	r := Parity(nil, loans, day(2022, time.January, 20))
	assert.Equal(t, OnTime, PaymentStatus(nil, loans, credit.On(day(2022, time.January, 20)))[1])
	assert.True(t, r[0].Applicable)
	assert.Equal(t, Current, r[0].Bucket)
}

func TestLastPaymentDateAndDays(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	payments := []credit.Payment{
		{ID: 3, LoanID: 1, Date: day(2022, time.April, 1), Amount: 1000},
		{ID: 1, LoanID: 1, Date: day(2022, time.February, 1), Amount: 1000},
		{ID: 2, LoanID: 1, Date: day(2022, time.January, 20), Amount: 1000},
	}

	at := credit.On(day(2022, time.March, 20))
	assert.Equal(t, day(2022, time.February, 1), LastPaymentDate(payments, loans, at)[1])
	assert.InDelta(t, 2000.0, PaidAmount(payments, loans, at)[1], 1e-9)
	assert.Equal(t, 17, DaysWithoutPayment(payments, loans, at)[1])

	within := credit.On(day(2022, time.February, 15))
	assert.Equal(t, 0, DaysWithoutPayment(payments, loans, within)[1])
}

func TestMissedPayments_Rounding(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	at := credit.On(day(2022, time.April, 1)) // three due

	tests := []struct {
		paid float64
		want int
	}{
		{2499, 1},
		{2500, 0},
		{1400, 2},
		{4000, -1},
	}
	for _, tt := range tests {
		payments := []credit.Payment{{ID: 1, LoanID: 1, Date: day(2022, time.March, 1), Amount: tt.paid}}
		assert.Equal(t, tt.want, MissedPayments(payments, loans, at)[1], "paid=%v", tt.paid)
	}
}

func TestParity_LateWithoutMissedInstallments(t *testing.T) {
	l := newLoan(1)
	l.Term = 2
	loans := []credit.Loan{l}
	payments := []credit.Payment{
		{ID: 1, LoanID: 1, Date: day(2022, time.February, 1), Amount: 1000},
		{ID: 2, LoanID: 1, Date: day(2022, time.March, 1), Amount: 950},
	}

	r := Parity(payments, loans, day(2022, time.March, 10))
	assert.Equal(t, Days1, r[0].Bucket)

	// term reached: still zero missed, but 92 days without payment
	r = Parity(payments, loans, day(2022, time.July, 1))
	assert.Equal(t, Days90, r[0].Bucket)
}

func TestParity_AheadStaysCurrent(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	payments := []credit.Payment{{ID: 1, LoanID: 1, Date: day(2022, time.January, 15), Amount: 5000}}

	r := Parity(payments, loans, day(2022, time.May, 30))
	assert.Equal(t, Ahead, PaymentStatus(payments, loans, credit.On(day(2022, time.May, 30)))[1])
	assert.Equal(t, Current, r[0].Bucket)
}

func TestEscalate(t *testing.T) {
	tests := []struct {
		days, missed int
		countMissed  bool
		want         Bucket
	}{
		{0, 0, false, Days1},
		{30, 0, false, Days1},
		{31, 0, false, Days30},
		{61, 0, false, Days60},
		{91, 0, false, Days90},
		{121, 0, false, Days120},
		{151, 0, false, Days150},
		{181, 9, false, Days180},
		{0, 9, false, Days1},
		{0, 1, true, Days1},
		{0, 2, true, Days30},
		{0, 3, true, Days60},
		{0, 4, true, Days90},
		{0, 5, true, Days120},
		{0, 6, true, Days150},
		{0, 7, true, Days180},
		{100, 2, true, Days90},
		{10, 6, true, Days150},
	}
	for _, tt := range tests {
		got := escalate(tt.days, tt.missed, tt.countMissed)
		assert.Equal(t, tt.want, got, "days=%d missed=%d count=%v", tt.days, tt.missed, tt.countMissed)
	}
}

func TestParity_OrdinalAndNonDecreasing(t *testing.T) {
	loans := []credit.Loan{newLoan(1)}
	payments := []credit.Payment{
		{ID: 1, LoanID: 1, Date: day(2022, time.February, 1), Amount: 1000},
		{ID: 2, LoanID: 1, Date: day(2022, time.March, 1), Amount: 1000},
	}

	valid := make(map[Bucket]bool)
	for _, b := range Buckets {
		valid[b] = true
	}

	prev := Current
	for date := day(2022, time.March, 1); date.Before(day(2024, time.March, 1)); date = date.AddDate(0, 0, 1) {
		r := Parity(payments, loans, date)
		require.Len(t, r, 1)
		require.True(t, r[0].Applicable)
		require.True(t, valid[r[0].Bucket], "bucket %d", r[0].Bucket)
		require.GreaterOrEqual(t, r[0].Bucket, prev, "date %s", credit.FormatDate(date))
		prev = r[0].Bucket
	}
	assert.Equal(t, Days180, prev)
}

func TestParityAt_PerLoanDates(t *testing.T) {
	loans := []credit.Loan{newLoan(1), newLoan(2), newLoan(3)}
	at, err := credit.NewLoanDates([]credit.LoanDate{
		{LoanID: 2, Date: day(2022, time.March, 1)},
		{LoanID: 1, Date: day(2022, time.June, 1)},
	}, loans)
	require.NoError(t, err)

	required := RequiredPayments(loans, at)
	assert.Equal(t, map[int64]int{1: 5, 2: 2}, required)

	results := ParityAt(nil, loans, at)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].LoanID)
	assert.Equal(t, day(2022, time.June, 1), results[0].Date)
	assert.Equal(t, int64(2), results[1].LoanID)
	assert.Equal(t, Days30, results[1].Bucket)

	_, err = credit.NewLoanDates([]credit.LoanDate{{LoanID: 1}, {LoanID: 1}}, loans)
	assert.ErrorIs(t, err, credit.ErrDuplicateLoan)
	_, err = credit.NewLoanDates([]credit.LoanDate{{LoanID: 42}}, loans)
	assert.ErrorIs(t, err, credit.ErrUnknownLoan)
}

func TestDistribution(t *testing.T) {
	results := []Result{
		{LoanID: 1, Bucket: Current, Applicable: true},
		{LoanID: 2, Bucket: Days30, Applicable: true},
		{LoanID: 3, Bucket: Days30, Applicable: true},
		{LoanID: 4},
	}
	d := Distribution(results)
	assert.Equal(t, 1, d[Current])
	assert.Equal(t, 2, d[Days30])
	assert.Len(t, d, 2)
}
