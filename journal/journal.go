package journal

import "time"

// RunRecord summarizes one portfolio report run.
type RunRecord struct {
	RunID    string
	Created  time.Time
	EvalDate time.Time
	Source   string

	Loans    int
	Payments int

	Outstanding float64 // sum of balances as of EvalDate
	Applicable  int     // loans with an aging bucket
	Delinquent  int     // applicable loans at 30 days or worse

	Duration time.Duration
}

// BalanceRecord is one loan's balance in a run.
type BalanceRecord struct {
	RunID      string
	LoanID     int64
	LoanUUID   string
	Convention string
	Principal  float64
	Balance    float64
}

// ParityRecord is one loan's delinquency classification in a run.
type ParityRecord struct {
	RunID              string
	LoanID             int64
	EvalDate           time.Time
	Applicable         bool
	Bucket             int
	Status             string
	MissedPayments     int
	DaysWithoutPayment int
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordBalance(BalanceRecord) error
	RecordParity(ParityRecord) error
	Close() error
}

// Discard drops every record.
type Discard struct{}

func (Discard) RecordRun(RunRecord) error         { return nil }
func (Discard) RecordBalance(BalanceRecord) error { return nil }
func (Discard) RecordParity(ParityRecord) error   { return nil }
func (Discard) Close() error                      { return nil }
