package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "servicer_"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultOK    = "success"
	resultError = "error"
)

var (
	registerOnce sync.Once

	memoLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "memo_lookups_total",
			Help: "Memo cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)
	memoEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: metricPrefix + "memo_entries",
			Help: "Entries currently held by each memo cache",
		},
		[]string{"cache"},
	)
	reportTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "report_runs_total",
			Help: "Portfolio report runs by result",
		},
		[]string{"result"},
	)
	reportLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "report_latency_seconds",
			Help:    "Portfolio report latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	snapshotLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "snapshot_loads_total",
			Help: "Snapshot loads by result",
		},
		[]string{"result"},
	)
	snapshotRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: metricPrefix + "snapshot_rows",
			Help: "Rows in the current snapshot by table",
		},
		[]string{"table"},
	)
)

// Register adds the collectors to the default prometheus registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			memoLookups,
			memoEntries,
			reportTotal,
			reportLatency,
			snapshotLoads,
			snapshotRows,
		)
	})
}

// ObserveMemo records a cache lookup and the cache size after it.
func ObserveMemo(cache string, hit bool, entries int) {
	result := resultMiss
	if hit {
		result = resultHit
	}
	memoLookups.WithLabelValues(cache, result).Inc()
	memoEntries.WithLabelValues(cache).Set(float64(entries))
}

// ObserveReport records a report run.
func ObserveReport(start time.Time, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	reportTotal.WithLabelValues(result).Inc()
	reportLatency.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// ObserveSnapshot records a snapshot load.
func ObserveSnapshot(loans, payments int, err error) {
	if err != nil {
		snapshotLoads.WithLabelValues(resultError).Inc()
		return
	}
	snapshotLoads.WithLabelValues(resultOK).Inc()
	snapshotRows.WithLabelValues("credits").Set(float64(loans))
	snapshotRows.WithLabelValues("payments").Set(float64(payments))
}
