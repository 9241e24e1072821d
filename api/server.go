// Package api serves balances, ledgers, schedules and aging buckets over HTTP
// from an in-memory snapshot of the loan book.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/servicer/balance"
	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/internal/metrics"
	"github.com/rustyeddy/servicer/periods"
	"github.com/rustyeddy/servicer/store"
)

// ErrNoSnapshot is returned when a snapshot has not been loaded yet.
var ErrNoSnapshot = errors.New("api: no snapshot loaded")

// Server holds the current snapshot and the engines that answer queries.
type Server struct {
	loader   store.Loader
	balances *balance.Engine
	periods  *periods.Engine
	log      *logrus.Logger
	source   string

	mu   sync.RWMutex
	snap *store.Snapshot

	// now returns the default evaluation date.
	now func() time.Time
}

// NewServer returns a server reading snapshots from loader. Nil engines use
// the package defaults; a nil log uses the standard logger.
func NewServer(loader store.Loader, balances *balance.Engine, ledger *periods.Engine, log *logrus.Logger) *Server {
	if balances == nil {
		balances = balance.Default()
	}
	if ledger == nil {
		ledger = periods.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		loader:   loader,
		balances: balances,
		periods:  ledger,
		log:      log,
		now:      func() time.Time { return credit.Truncate(time.Now()) },
	}
}

// SetSource names the snapshot source in reports.
func (s *Server) SetSource(name string) { s.source = name }

// Snapshot returns the current snapshot, or nil before the first load.
func (s *Server) Snapshot() *store.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetSnapshot replaces the current snapshot.
func (s *Server) SetSnapshot(snap *store.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Refresh loads a new snapshot. The previous one is kept on error.
func (s *Server) Refresh(ctx context.Context) error {
	if s.loader == nil {
		return errors.New("api: no loader configured")
	}
	snap, err := s.loader.Load(ctx)
	if err != nil {
		s.log.WithError(err).Error("snapshot refresh failed")
		return err
	}
	s.SetSnapshot(snap)
	s.log.WithFields(logrus.Fields{
		"loans":    len(snap.Loans),
		"payments": len(snap.Payments),
	}).Info("snapshot refreshed")
	return nil
}

// StartRefresh reloads the snapshot on the cron spec until the returned
// scheduler is stopped.
func (s *Server) StartRefresh(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		_ = s.Refresh(ctx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	metrics.Register()

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	r.HandleFunc("/parity", s.parityHandler).Methods("GET")
	r.HandleFunc("/report", s.reportHandler).Methods("GET")
	r.HandleFunc("/loans/{id}/balance", s.balanceHandler).Methods("GET")
	r.HandleFunc("/loans/{id}/periods", s.periodsHandler).Methods("GET")
	r.HandleFunc("/loans/{id}/schedule", s.scheduleHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("Starting server on %s", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
