package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/servicer/credit"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, eval_date, source, loans, payments, outstanding, applicable, delinquent, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), credit.FormatDate(r.EvalDate), r.Source,
		r.Loans, r.Payments, r.Outstanding, r.Applicable, r.Delinquent, r.Duration.Milliseconds(),
	)
	return err
}

func (j *SQLite) RecordBalance(b BalanceRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO balances
		(run_id, loan_id, loan_uuid, convention, principal, balance)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.RunID, b.LoanID, b.LoanUUID, b.Convention, b.Principal, b.Balance,
	)
	return err
}

func (j *SQLite) RecordParity(p ParityRecord) error {
	var bucket sql.NullInt64
	if p.Applicable {
		bucket = sql.NullInt64{Int64: int64(p.Bucket), Valid: true}
	}
	_, err := j.db.Exec(`
		INSERT INTO parities
		(run_id, loan_id, eval_date, bucket, status, missed_payments, days_without_payment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.LoanID, credit.FormatDate(p.EvalDate), bucket, p.Status,
		p.MissedPayments, p.DaysWithoutPayment,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
