package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	eval_date TEXT NOT NULL,
	source TEXT NOT NULL,
	loans INTEGER NOT NULL,
	payments INTEGER NOT NULL,
	outstanding REAL NOT NULL,
	applicable INTEGER NOT NULL,
	delinquent INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
	run_id TEXT NOT NULL,
	loan_id INTEGER NOT NULL,
	loan_uuid TEXT NOT NULL,
	convention TEXT NOT NULL,
	principal REAL NOT NULL,
	balance REAL NOT NULL,
	PRIMARY KEY (run_id, loan_id)
);

CREATE TABLE IF NOT EXISTS parities (
	run_id TEXT NOT NULL,
	loan_id INTEGER NOT NULL,
	eval_date TEXT NOT NULL,
	bucket INTEGER,
	status TEXT NOT NULL,
	missed_payments INTEGER NOT NULL,
	days_without_payment INTEGER NOT NULL,
	PRIMARY KEY (run_id, loan_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
