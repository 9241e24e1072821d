package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/servicer/credit"
)

// Schema creates the snapshot tables in SQLite.
const Schema = `
CREATE TABLE IF NOT EXISTS credits (
	id INTEGER PRIMARY KEY,
	uuid TEXT,
	amount REAL,
	annual_interest_rate REAL,
	payment_amount REAL,
	term INTEGER,
	opening_date TEXT,
	first_payment_date TEXT,
	closing_date TEXT,
	status TEXT
);

CREATE TABLE IF NOT EXISTS payments (
	id INTEGER PRIMARY KEY,
	credit_id INTEGER REFERENCES credits(id),
	date TEXT,
	amount REAL,
	client_payment_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_payments_credit ON payments(credit_id, date);
`

// SQLite is a snapshot source backed by a SQLite file.
type SQLite struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLite opens (creating if needed) the snapshot database at path. A nil
// log uses the logrus standard logger.
func NewSQLite(path string, log *logrus.Logger) (*SQLite, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, log: log}, nil
}

// Ping checks the database file can be reached.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Load(ctx context.Context) (*Snapshot, error) {
	return load(ctx, s.db, "sqlite", s.log)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertLoan stores a loan row, replacing any row with the same id.
func (s *SQLite) InsertLoan(ctx context.Context, l credit.Loan) error {
	return insertLoan(ctx, s.db, l)
}

// InsertPayment stores a payment row, replacing any row with the same id.
func (s *SQLite) InsertPayment(ctx context.Context, p credit.Payment) error {
	return insertPayment(ctx, s.db, p)
}

// Seed writes a whole snapshot in one transaction.
func (s *SQLite) Seed(ctx context.Context, loans []credit.Loan, payments []credit.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, l := range loans {
		if err := insertLoan(ctx, tx, l); err != nil {
			return fmt.Errorf("credit %d: %w", l.ID, err)
		}
	}
	for _, p := range payments {
		if err := insertPayment(ctx, tx, p); err != nil {
			return fmt.Errorf("payment %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func insertLoan(ctx context.Context, ex execer, l credit.Loan) error {
	var id, closing, status any
	if l.UUID != uuid.Nil {
		id = l.UUID.String()
	}
	if l.ClosingDate != nil {
		closing = credit.FormatDate(*l.ClosingDate)
	}
	if len(l.Status) > 0 {
		status = string(l.Status)
	}
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO credits
		(id, uuid, amount, annual_interest_rate, payment_amount, term, opening_date, first_payment_date, closing_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, id, l.Amount, l.AnnualInterestRate, l.PaymentAmount, l.Term,
		credit.FormatDate(l.OpeningDate), credit.FormatDate(l.FirstPaymentDate), closing, status,
	)
	return err
}

func insertPayment(ctx context.Context, ex execer, p credit.Payment) error {
	var clientAt any
	if p.ClientPaymentDate != nil {
		clientAt = credit.FormatDate(*p.ClientPaymentDate)
	}
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO payments
		(id, credit_id, date, amount, client_payment_date)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.LoanID, credit.FormatDate(p.Date), p.Amount, clientAt,
	)
	return err
}
