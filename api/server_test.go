package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/store"
)

type stubLoader struct {
	snap  *store.Snapshot
	err   error
	calls int
}

func (s *stubLoader) Load(context.Context) (*store.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func (s *stubLoader) Ping(context.Context) error { return nil }

func (s *stubLoader) Close() error { return nil }

func testSnapshot() *store.Snapshot {
	base := credit.Loan{
		Amount:             10000,
		AnnualInterestRate: 36,
		PaymentAmount:      1000,
		Term:               12,
		OpeningDate:        credit.Date(2022, time.January, 1),
		FirstPaymentDate:   credit.Date(2022, time.February, 1),
	}
	l1, l2 := base, base
	l1.ID, l2.ID = 1, 2
	return &store.Snapshot{
		Loans: []credit.Loan{l1, l2},
		Payments: []credit.Payment{
			{ID: 10, LoanID: 1, Date: credit.Date(2022, time.February, 1), Amount: 1000},
		},
		LoadedAt: time.Date(2022, time.May, 15, 8, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, snap *store.Snapshot) (*Server, http.Handler) {
	t.Helper()

	log, _ := test.NewNullLogger()
	s := NewServer(&stubLoader{snap: snap}, nil, nil, log)
	s.now = func() time.Time { return credit.Date(2022, time.May, 15) }
	if snap != nil {
		s.SetSnapshot(snap)
	}
	return s, s.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, nil)
	rr := get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	_, h = newTestServer(t, testSnapshot())
	rr = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[healthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Loans)
	assert.Equal(t, "2022-05-15T08:00:00Z", resp.LoadedAt)
}

func TestBalance(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())

	rr := get(t, h, "/loans/1/balance?date=2022-05-15")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[balanceResponse](t, rr)
	assert.Equal(t, int64(1), resp.LoanID)
	assert.Equal(t, "interest_first", resp.Convention)
	assert.InDelta(t, 9359.6, resp.Balance, 1e-9)

	// before the payment the full principal is owed
	rr = get(t, h, "/loans/1/balance?date=2022-01-31")
	resp = decode[balanceResponse](t, rr)
	assert.Equal(t, 10000.0, resp.Balance)
}

func TestErrors(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())

	tests := []struct {
		path string
		code int
	}{
		{"/loans/1/balance?date=15-05-2022", http.StatusBadRequest},
		{"/loans/abc/balance", http.StatusBadRequest},
		{"/loans/42/balance", http.StatusNotFound},
		{"/loans/42/periods", http.StatusNotFound},
		{"/loans/42/schedule", http.StatusNotFound},
		{"/parity?date=nope", http.StatusBadRequest},
		{"/report?date=2022-13-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := get(t, h, tt.path)
		assert.Equal(t, tt.code, rr.Code, tt.path)
	}

	_, empty := newTestServer(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, empty, "/parity").Code)
}

func TestPeriods(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())

	rr := get(t, h, "/loans/1/periods?date=2022-05-15")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[periodsResponse](t, rr)
	require.Len(t, resp.Periods, 13)

	assert.Equal(t, 0, resp.Periods[0].Period)
	assert.Nil(t, resp.Periods[0].ExpectedDate)
	first := resp.Periods[1]
	require.NotNil(t, first.ExpectedDate)
	assert.Equal(t, "2022-02-01", *first.ExpectedDate)
	assert.True(t, first.Paid)
	require.NotNil(t, first.Amount)
	assert.Equal(t, 1000.0, *first.Amount)
	assert.False(t, resp.Periods[2].Paid)
}

func TestSchedule(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())

	rr := get(t, h, "/loans/2/schedule")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[scheduleResponse](t, rr)
	assert.Equal(t, "10000.00", resp.Principal)
	assert.Len(t, resp.Schedule, resp.Installments)
	assert.Equal(t, "2022-02-01", resp.Schedule[0].PaymentDate)
}

func TestParity(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())

	// no date: today
	rr := get(t, h, "/parity")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[parityResponse](t, rr)
	assert.Equal(t, "2022-05-15", resp.Date)
	require.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Results[0].Bucket)
	assert.Equal(t, 60, *resp.Results[0].Bucket)
	assert.Equal(t, 120, *resp.Results[1].Bucket)
	assert.Equal(t, "late", resp.Results[1].Status)
	assert.Equal(t, map[string]int{"60": 1, "120": 1}, resp.Distribution)

	rr = get(t, h, "/parity?date=2021-12-01")
	resp = decode[parityResponse](t, rr)
	assert.False(t, resp.Results[0].Applicable)
	assert.Nil(t, resp.Results[0].Bucket)
	assert.Empty(t, resp.Distribution)
}

func TestReport(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())

	rr := get(t, h, "/report?date=2022-05-15")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[reportResponse](t, rr)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "19359.60", resp.Outstanding)
	assert.Equal(t, 2, resp.Delinquent)
}

func TestMetrics(t *testing.T) {
	_, h := newTestServer(t, testSnapshot())
	get(t, h, "/loans/1/balance?date=2022-05-15")

	rr := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "servicer_memo_lookups_total"))
}

func TestRefresh(t *testing.T) {
	log, _ := test.NewNullLogger()
	loader := &stubLoader{snap: testSnapshot()}
	s := NewServer(loader, nil, nil, log)
	assert.Nil(t, s.Snapshot())

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.Snapshot().Loans, 2)

	// failed reload keeps the previous snapshot
	loader.snap, loader.err = nil, errors.New("db down")
	assert.Error(t, s.Refresh(context.Background()))
	assert.Len(t, s.Snapshot().Loans, 2)
	assert.Equal(t, 2, loader.calls)

	assert.Error(t, NewServer(nil, nil, nil, log).Refresh(context.Background()))
}

func TestStartRefresh(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewServer(&stubLoader{snap: testSnapshot()}, nil, nil, log)

	_, err := s.StartRefresh(context.Background(), "not a spec")
	assert.Error(t, err)

	c, err := s.StartRefresh(context.Background(), "@every 1h")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
