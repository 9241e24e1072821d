// Package store loads loan and payment snapshots from a database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/internal/metrics"
)

// ErrUnknownSource is returned by Open for an unsupported source type.
var ErrUnknownSource = errors.New("store: unknown source type")

// Snapshot is an immutable view of the loan book at load time.
type Snapshot struct {
	Loans    []credit.Loan
	Payments []credit.Payment
	LoadedAt time.Time
}

// Loader reads a full snapshot.
type Loader interface {
	Ping(ctx context.Context) error
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Open returns the loader for a source type ("sqlite" or "postgres").
func Open(sourceType, dsn string, log *logrus.Logger) (Loader, error) {
	switch sourceType {
	case "sqlite":
		return NewSQLite(dsn, log)
	case "postgres":
		return NewPostgres(dsn, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, sourceType)
	}
}

const (
	loansQuery = `
		SELECT id, uuid, amount, annual_interest_rate, payment_amount, term,
		       opening_date, first_payment_date, closing_date, status
		FROM credits
		ORDER BY id`

	paymentsQuery = `
		SELECT id, credit_id, date, amount, client_payment_date
		FROM payments
		WHERE credit_id IS NOT NULL AND date IS NOT NULL
		ORDER BY date, id`
)

// load runs the snapshot queries shared by every driver.
func load(ctx context.Context, db *sql.DB, source string, log *logrus.Logger) (snap *Snapshot, err error) {
	start := time.Now()
	defer func() {
		n, m := 0, 0
		if snap != nil {
			n, m = len(snap.Loans), len(snap.Payments)
		}
		metrics.ObserveSnapshot(n, m, err)
	}()

	loans, err := loadLoans(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("load credits: %w", err)
	}
	payments, err := loadPayments(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	for _, l := range loans {
		if verr := l.Validate(); verr != nil {
			log.WithError(verr).WithField("loan_id", l.ID).Warn("loan violates date invariants")
		}
	}

	log.WithFields(logrus.Fields{
		"source":   source,
		"loans":    len(loans),
		"payments": len(payments),
		"duration": time.Since(start).String(),
	}).Info("snapshot loaded")

	return &Snapshot{Loans: loans, Payments: payments, LoadedAt: start.UTC()}, nil
}

func loadLoans(ctx context.Context, db *sql.DB) ([]credit.Loan, error) {
	rows, err := db.QueryContext(ctx, loansQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []credit.Loan
	for rows.Next() {
		var (
			l       credit.Loan
			id      uuid.NullUUID
			amount  sql.NullFloat64
			rate    sql.NullFloat64
			payment sql.NullFloat64
			term    sql.NullInt64
			opening dateValue
			first   dateValue
			closing dateValue
			status  []byte
		)
		if err := rows.Scan(&l.ID, &id, &amount, &rate, &payment, &term, &opening, &first, &closing, &status); err != nil {
			return nil, err
		}
		if !opening.Valid || !first.Valid {
			return nil, fmt.Errorf("credit %d: opening and first payment dates are required", l.ID)
		}
		l.UUID = id.UUID
		l.Amount = amount.Float64
		l.AnnualInterestRate = rate.Float64
		l.PaymentAmount = payment.Float64
		l.Term = int(term.Int64)
		l.OpeningDate = opening.Time
		l.FirstPaymentDate = first.Time
		if closing.Valid {
			c := closing.Time
			l.ClosingDate = &c
		}
		if len(status) > 0 {
			l.Status = json.RawMessage(status)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func loadPayments(ctx context.Context, db *sql.DB) ([]credit.Payment, error) {
	rows, err := db.QueryContext(ctx, paymentsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []credit.Payment
	for rows.Next() {
		var (
			p        credit.Payment
			date     dateValue
			amount   sql.NullFloat64
			clientAt dateValue
		)
		if err := rows.Scan(&p.ID, &p.LoanID, &date, &amount, &clientAt); err != nil {
			return nil, err
		}
		p.Date = date.Time
		p.Amount = amount.Float64
		if clientAt.Valid {
			c := clientAt.Time
			p.ClientPaymentDate = &c
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// dateValue scans DATE columns from either driver: time values from
// Postgres, text from SQLite.
type dateValue struct {
	Time  time.Time
	Valid bool
}

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = dateValue{}
		return nil
	case time.Time:
		*d = dateValue{Time: credit.Truncate(v), Valid: true}
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("store: cannot scan %T into a date", src)
	}
}

func (d *dateValue) parse(s string) error {
	if len(s) > len(credit.DateLayout) {
		s = s[:len(credit.DateLayout)]
	}
	t, err := credit.ParseDate(s)
	if err != nil {
		return err
	}
	*d = dateValue{Time: t, Valid: true}
	return nil
}
