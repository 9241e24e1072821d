package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/servicer/config"
	"github.com/rustyeddy/servicer/journal"
)

const (
	creditsCSV = `id,uuid,amount,annual_interest_rate,payment_amount,term,opening_date,first_payment_date,closing_date
1,,10000,36,1000,12,2022-01-01,2022-02-01,
2,,10000,36,1000,12,2022-01-01,2022-02-01,
`
	paymentsCSV = `id,credit_id,date,amount,client_payment_date
10,1,2022-02-01,1000,
`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestImportAndReport(t *testing.T) {
	dir := t.TempDir()

	c := config.Default()
	c.Source.DSN = filepath.Join(dir, "book.db")
	c.Journal.Type = "sqlite"
	c.Journal.DBPath = filepath.Join(dir, "journal.db")
	c.Report.XLSX = filepath.Join(dir, "book.xlsx")
	c.Report.Org = filepath.Join(dir, "book.org")
	c.Log.Level = "error"
	cfgPath := filepath.Join(dir, "servicer.yaml")
	require.NoError(t, c.SaveToFile(cfgPath))

	credits := filepath.Join(dir, "credits.csv")
	payments := filepath.Join(dir, "payments.csv")
	writeFile(t, credits, creditsCSV)
	writeFile(t, payments, paymentsCSV)

	require.NoError(t, execute(t, "import", "-c", cfgPath, "--loans", credits, "--payments", payments))
	require.NoError(t, execute(t, "report", "-c", cfgPath, "--date", "2022-05-15"))

	assert.FileExists(t, c.Report.XLSX)
	assert.FileExists(t, c.Report.Org)

	j, err := journal.NewSQLite(c.Journal.DBPath)
	require.NoError(t, err)
	defer j.Close()

	run, err := j.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, 2, run.Loans)
	assert.Equal(t, 2, run.Delinquent)
	assert.InDelta(t, 19359.6, run.Outstanding, 1e-6)

	require.NoError(t, execute(t, "parity", "-c", cfgPath, "--date", "2022-05-15"))
	require.NoError(t, execute(t, "balance", "-c", cfgPath, "--date", "2022-05-15", "1"))
	require.NoError(t, execute(t, "periods", "-c", cfgPath, "--date", "2022-05-15", "2"))
	require.NoError(t, execute(t, "schedule", "-c", cfgPath, "1"))
	require.NoError(t, execute(t, "journal", "-c", cfgPath, "latest"))

	assert.Error(t, execute(t, "schedule", "-c", cfgPath, "42"))
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servicer.yaml")

	require.NoError(t, execute(t, "config", "init", "-o", path))
	assert.FileExists(t, path)
	require.NoError(t, execute(t, "config", "validate", "-f", path))

	writeFile(t, path, "engine:\n  cache_size: 0\n")
	assert.Error(t, execute(t, "config", "validate", "-f", path))
}

func TestReadLoanDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.csv")
	writeFile(t, path, "loan_id,date\n1,2022-05-15\n2,2022-03-01\n")

	entries, err := readLoanDates(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[1].LoanID)

	writeFile(t, path, "1,2022-05-15\n2,15/03/2022\n")
	_, err = readLoanDates(path)
	assert.ErrorContains(t, err, "line 2")
}
