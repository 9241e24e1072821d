package credit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{Date(2021, time.January, 31), 1, Date(2021, time.February, 28)},
		{Date(2024, time.January, 31), 1, Date(2024, time.February, 29)},
		{Date(2021, time.January, 31), 2, Date(2021, time.March, 31)},
		{Date(2021, time.March, 31), -1, Date(2021, time.February, 28)},
		{Date(2021, time.November, 15), 3, Date(2022, time.February, 15)},
		{Date(2021, time.May, 30), 0, Date(2021, time.May, 30)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AddMonths(tt.from, tt.n), "%s + %d", FormatDate(tt.from), tt.n)
	}
}

func TestDays(t *testing.T) {
	assert.Equal(t, 31, Days(Date(2021, time.January, 1), Date(2021, time.February, 1)))
	assert.Equal(t, -31, Days(Date(2021, time.February, 1), Date(2021, time.January, 1)))
	assert.Equal(t, 0, Days(Date(2021, time.February, 1), time.Date(2021, time.February, 1, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 365, Days(Date(2021, time.March, 1), Date(2022, time.March, 1)))
}

func TestMonthHelpers(t *testing.T) {
	assert.True(t, IsMonthEnd(Date(2022, time.February, 28)))
	assert.False(t, IsMonthEnd(Date(2024, time.February, 28)))
	assert.True(t, IsMonthEnd(Date(2024, time.December, 31)))
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 13, MonthsBetween(Date(2021, time.December, 31), Date(2023, time.January, 1)))
	assert.Equal(t, -2, MonthsBetween(Date(2022, time.March, 1), Date(2022, time.January, 30)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2022-03-04")
	require.NoError(t, err)
	assert.Equal(t, Date(2022, time.March, 4), d)
	assert.Equal(t, "2022-03-04", FormatDate(d))

	_, err = ParseDate("03/04/2022")
	assert.Error(t, err)
	assert.Panics(t, func() { MustDate("nope") })
}

func TestLoanValidate(t *testing.T) {
	l := Loan{ID: 1, Term: 12, OpeningDate: Date(2022, time.January, 1), FirstPaymentDate: Date(2022, time.February, 1)}
	require.NoError(t, l.Validate())

	bad := l
	bad.FirstPaymentDate = Date(2021, time.December, 1)
	assert.Error(t, bad.Validate())

	bad = l
	closing := Date(2021, time.June, 1)
	bad.ClosingDate = &closing
	assert.Error(t, bad.Validate())

	bad = l
	bad.Term = -1
	assert.Error(t, bad.Validate())

	assert.True(t, l.OpenOn(Date(2022, time.January, 1)))
	assert.False(t, l.OpenOn(Date(2021, time.December, 31)))
}

func TestSortPayments(t *testing.T) {
	in := []Payment{
		{ID: 3, Date: Date(2022, time.March, 1)},
		{ID: 2, Date: Date(2022, time.February, 1)},
		{ID: 1, Date: Date(2022, time.March, 1)},
	}
	out := SortPayments(in)
	assert.Equal(t, []int64{2, 1, 3}, []int64{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, int64(3), in[0].ID)

	assert.Len(t, PaymentsUpTo(in, Date(2022, time.February, 28)), 1)
	assert.Len(t, PaymentsUpTo(in, Date(2022, time.March, 1)), 3)
	assert.Equal(t, int64(3), MaxPaymentID(in))
	assert.Equal(t, int64(0), MaxPaymentID(nil))
}

func TestLoanDates(t *testing.T) {
	loans := []Loan{{ID: 1}, {ID: 2}}
	ld, err := NewLoanDates([]LoanDate{{LoanID: 2, Date: Date(2022, time.May, 1)}}, loans)
	require.NoError(t, err)

	d, ok := ld.For(2)
	assert.True(t, ok)
	assert.Equal(t, Date(2022, time.May, 1), d)
	_, ok = ld.For(1)
	assert.False(t, ok)
	assert.Equal(t, []int64{2}, ld.LoanIDs())

	scalar := On(Date(2022, time.June, 1))
	d, ok = scalar.For(99)
	assert.True(t, ok)
	assert.Equal(t, Date(2022, time.June, 1), d)
}

func TestValidateSeries(t *testing.T) {
	loans := []Loan{{ID: 1}, {ID: 2}}
	require.NoError(t, ValidateSeries("date", []int64{2, 1}, loans))

	err := ValidateSeries("amount", []int64{1, 1}, loans)
	assert.ErrorIs(t, err, ErrDuplicateLoan)
	assert.Contains(t, err.Error(), "amount series, loan 1")

	err = ValidateSeries("date", []int64{3}, loans)
	assert.ErrorIs(t, err, ErrUnknownLoan)
}
