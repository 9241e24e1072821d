package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/balance"
	"github.com/rustyeddy/servicer/config"
	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/internal/metrics"
	"github.com/rustyeddy/servicer/journal"
	"github.com/rustyeddy/servicer/periods"
	"github.com/rustyeddy/servicer/store"
)

var rootCmd = &cobra.Command{
	Use:   "servicer",
	Short: "Loan servicing analytics over a loan book snapshot",
	Long: `Servicer computes amortization schedules, outstanding balances,
installment ledgers and delinquency aging buckets for a book of loans.

Snapshots are read from SQLite or Postgres. Results can be printed,
journaled to CSV or SQLite, exported to XLSX, PDF or Org, or served
over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger = logrus.New()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
		cfg.ApplyEnv()
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	metrics.Register()
	return nil
}

// loadSnapshot reads the configured source once.
func loadSnapshot(ctx context.Context) (*store.Snapshot, error) {
	loader, err := store.Open(cfg.Source.Type, cfg.Source.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer loader.Close()

	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func newEngines() (*balance.Engine, *periods.Engine, error) {
	cutover, err := cfg.Engine.CutoverDate()
	if err != nil {
		return nil, nil, err
	}
	b, err := balance.NewEngine(cfg.Engine.CacheSize, cutover)
	if err != nil {
		return nil, nil, err
	}
	p, err := periods.NewEngine(cfg.Engine.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return b, p, nil
}

func openJournal() (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.RunsFile, cfg.Journal.BalancesFile, cfg.Journal.ParitiesFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return journal.Discard{}, nil
	}
}

// parseDate reads a YYYY-MM-DD flag, defaulting to today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return credit.Truncate(time.Now()), nil
	}
	date, err := credit.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return date, nil
}

func parseLoanID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid loan id %q", s)
	}
	return id, nil
}

func findLoan(snap *store.Snapshot, id int64) (int, error) {
	for i, l := range snap.Loans {
		if l.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("loan %d: %w", id, credit.ErrUnknownLoan)
}
