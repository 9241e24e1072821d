package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// Postgres reads the credits and payments tables of the servicing database.
type Postgres struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgres(dsn string, log *logrus.Logger) (*Postgres, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Postgres{db: db, log: log}, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Load(ctx context.Context) (*Snapshot, error) {
	return load(ctx, p.db, "postgres", p.log)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
