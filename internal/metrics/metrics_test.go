package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveMemo(t *testing.T) {
	before := testutil.ToFloat64(memoLookups.WithLabelValues("test_cache", resultHit))
	ObserveMemo("test_cache", true, 3)
	ObserveMemo("test_cache", false, 4)

	assert.Equal(t, before+1, testutil.ToFloat64(memoLookups.WithLabelValues("test_cache", resultHit)))
	assert.Equal(t, 4.0, testutil.ToFloat64(memoEntries.WithLabelValues("test_cache")))
}

func TestObserveReport(t *testing.T) {
	ok := testutil.ToFloat64(reportTotal.WithLabelValues(resultOK))
	failed := testutil.ToFloat64(reportTotal.WithLabelValues(resultError))

	ObserveReport(time.Now(), nil)
	ObserveReport(time.Now(), errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(reportTotal.WithLabelValues(resultOK)))
	assert.Equal(t, failed+1, testutil.ToFloat64(reportTotal.WithLabelValues(resultError)))
}

func TestObserveSnapshot(t *testing.T) {
	ObserveSnapshot(5, 7, nil)
	assert.Equal(t, 5.0, testutil.ToFloat64(snapshotRows.WithLabelValues("credits")))
	assert.Equal(t, 7.0, testutil.ToFloat64(snapshotRows.WithLabelValues("payments")))

	failed := testutil.ToFloat64(snapshotLoads.WithLabelValues(resultError))
	ObserveSnapshot(0, 0, errors.New("boom"))
	assert.Equal(t, failed+1, testutil.ToFloat64(snapshotLoads.WithLabelValues(resultError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(snapshotRows.WithLabelValues("credits")))
}

func TestRegisterTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}
