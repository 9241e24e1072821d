package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/servicer/credit"
)

// csvTable reads a CSV with a header row and hands out columns by name.
type csvTable struct {
	r    *csv.Reader
	cols map[string]int
	line int
	rec  []string
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &csvTable{r: cr, cols: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := t.cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return t, nil
}

func (t *csvTable) next() (bool, error) {
	rec, err := t.r.Read()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	t.line++
	t.rec = rec
	return true, nil
}

func (t *csvTable) get(name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(t.rec) {
		return ""
	}
	return strings.TrimSpace(t.rec[i])
}

func (t *csvTable) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", t.line, fmt.Sprintf(format, args...))
}

func (t *csvTable) integer(name string) (int64, error) {
	v, err := strconv.ParseInt(t.get(name), 10, 64)
	if err != nil {
		return 0, t.errorf("%s: %v", name, err)
	}
	return v, nil
}

func (t *csvTable) number(name string) (float64, error) {
	v, err := strconv.ParseFloat(t.get(name), 64)
	if err != nil {
		return 0, t.errorf("%s: %v", name, err)
	}
	return v, nil
}

func (t *csvTable) date(name string) (time.Time, error) {
	v, err := credit.ParseDate(t.get(name))
	if err != nil {
		return time.Time{}, t.errorf("%s: %v", name, err)
	}
	return v, nil
}

func (t *csvTable) optDate(name string) (*time.Time, error) {
	if t.get(name) == "" {
		return nil, nil
	}
	v, err := t.date(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ReadLoansCSV reads credits with the column names of the credits table.
// uuid and closing_date may be empty.
func ReadLoansCSV(r io.Reader) ([]credit.Loan, error) {
	t, err := newCSVTable(r, "id", "amount", "annual_interest_rate", "payment_amount", "term", "opening_date", "first_payment_date")
	if err != nil {
		return nil, err
	}

	var out []credit.Loan
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}

		var l credit.Loan
		if l.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		if s := t.get("uuid"); s != "" {
			if l.UUID, err = uuid.Parse(s); err != nil {
				return nil, t.errorf("uuid: %v", err)
			}
		}
		if l.Amount, err = t.number("amount"); err != nil {
			return nil, err
		}
		if l.AnnualInterestRate, err = t.number("annual_interest_rate"); err != nil {
			return nil, err
		}
		if l.PaymentAmount, err = t.number("payment_amount"); err != nil {
			return nil, err
		}
		term, err := t.integer("term")
		if err != nil {
			return nil, err
		}
		l.Term = int(term)
		if l.OpeningDate, err = t.date("opening_date"); err != nil {
			return nil, err
		}
		if l.FirstPaymentDate, err = t.date("first_payment_date"); err != nil {
			return nil, err
		}
		if l.ClosingDate, err = t.optDate("closing_date"); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
}

// ReadPaymentsCSV reads payments with the column names of the payments
// table. client_payment_date may be empty.
func ReadPaymentsCSV(r io.Reader) ([]credit.Payment, error) {
	t, err := newCSVTable(r, "id", "credit_id", "date", "amount")
	if err != nil {
		return nil, err
	}

	var out []credit.Payment
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}

		var p credit.Payment
		if p.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		if p.LoanID, err = t.integer("credit_id"); err != nil {
			return nil, err
		}
		if p.Date, err = t.date("date"); err != nil {
			return nil, err
		}
		if p.Amount, err = t.number("amount"); err != nil {
			return nil, err
		}
		if p.ClientPaymentDate, err = t.optDate("client_payment_date"); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
