package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/servicer/credit"
)

// ErrNotFound is returned when a run is not in the journal.
var ErrNotFound = errors.New("journal: not found")

const runColumns = `run_id, created, eval_date, source, loans, payments, outstanding, applicable, delinquent, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		rec      RunRecord
		evalDate string
		ms       int64
	)
	err := s.Scan(
		&rec.RunID,
		&rec.Created,
		&evalDate,
		&rec.Source,
		&rec.Loans,
		&rec.Payments,
		&rec.Outstanding,
		&rec.Applicable,
		&rec.Delinquent,
		&ms,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if rec.EvalDate, err = credit.ParseDate(evalDate); err != nil {
		return RunRecord{}, err
	}
	rec.Duration = time.Duration(ms) * time.Millisecond
	return rec, nil
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return rec, err
}

// LatestRun returns the most recently created run.
func (j *SQLite) LatestRun() (RunRecord, error) {
	row := j.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC LIMIT 1`)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	return rec, err
}

// ListRunsBetween returns runs created within [start, end).
func (j *SQLite) ListRunsBetween(start, end time.Time) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		WHERE created >= ? AND created < ?
		ORDER BY created ASC, run_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBalances returns a run's balances ordered by loan id.
func (j *SQLite) ListBalances(runID string) ([]BalanceRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, loan_id, loan_uuid, convention, principal, balance
		FROM balances
		WHERE run_id = ?
		ORDER BY loan_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceRecord
	for rows.Next() {
		var rec BalanceRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.LoanID,
			&rec.LoanUUID,
			&rec.Convention,
			&rec.Principal,
			&rec.Balance,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListParities returns a run's classifications ordered by loan id.
func (j *SQLite) ListParities(runID string) ([]ParityRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, loan_id, eval_date, bucket, status, missed_payments, days_without_payment
		FROM parities
		WHERE run_id = ?
		ORDER BY loan_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ParityRecord
	for rows.Next() {
		var (
			rec      ParityRecord
			evalDate string
			bucket   sql.NullInt64
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.LoanID,
			&evalDate,
			&bucket,
			&rec.Status,
			&rec.MissedPayments,
			&rec.DaysWithoutPayment,
		); err != nil {
			return nil, err
		}
		if rec.EvalDate, err = credit.ParseDate(evalDate); err != nil {
			return nil, err
		}
		rec.Applicable = bucket.Valid
		rec.Bucket = int(bucket.Int64)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BucketCounts counts a run's applicable loans per aging bucket.
func (j *SQLite) BucketCounts(runID string) (map[int]int, error) {
	rows, err := j.db.Query(`
		SELECT bucket, COUNT(*)
		FROM parities
		WHERE run_id = ? AND bucket IS NOT NULL
		GROUP BY bucket`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var bucket, n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, err
		}
		out[bucket] = n
	}
	return out, rows.Err()
}
