package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/servicer/amortization"
	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/parity"
	"github.com/rustyeddy/servicer/periods"
	"github.com/rustyeddy/servicer/report"
	"github.com/rustyeddy/servicer/store"
)

type healthResponse struct {
	Status   string `json:"status"`
	Loans    int    `json:"loans"`
	Payments int    `json:"payments"`
	LoadedAt string `json:"loaded_at"`
}

type balanceResponse struct {
	LoanID     int64   `json:"loan_id"`
	Date       string  `json:"date"`
	Convention string  `json:"convention"`
	Principal  float64 `json:"principal"`
	Balance    float64 `json:"balance"`
}

type periodRow struct {
	Period       int      `json:"period"`
	ExpectedDate *string  `json:"expected_date"`
	Amount       *float64 `json:"amount"`
	Date         *string  `json:"date"`
	Paid         bool     `json:"paid"`
	Delay        *int     `json:"delay"`
	Category     *float64 `json:"category"`
}

type periodsResponse struct {
	LoanID  int64       `json:"loan_id"`
	Date    string      `json:"date"`
	Periods []periodRow `json:"periods"`
}

type scheduleRow struct {
	PaymentDate    string  `json:"payment_date"`
	PaymentBalance float64 `json:"payment_balance"`
}

type scheduleResponse struct {
	LoanID       int64         `json:"loan_id"`
	Installments int           `json:"installments"`
	Principal    string        `json:"principal"`
	Schedule     []scheduleRow `json:"schedule"`
}

type parityRow struct {
	LoanID     int64  `json:"loan_id"`
	Applicable bool   `json:"applicable"`
	Bucket     *int   `json:"bucket"`
	Status     string `json:"status,omitempty"`
	Missed     *int   `json:"missed_payments,omitempty"`
}

type parityResponse struct {
	Date         string         `json:"date"`
	Results      []parityRow    `json:"results"`
	Distribution map[string]int `json:"distribution"`
}

type reportResponse struct {
	RunID        string         `json:"run_id"`
	Date         string         `json:"date"`
	Loans        int            `json:"loans"`
	Payments     int            `json:"payments"`
	Outstanding  string         `json:"outstanding"`
	Applicable   int            `json:"applicable"`
	Delinquent   int            `json:"delinquent"`
	Distribution map[string]int `json:"distribution"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// current returns the snapshot or writes 503.
func (s *Server) current(w http.ResponseWriter) *store.Snapshot {
	snap := s.Snapshot()
	if snap == nil {
		http.Error(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
	}
	return snap
}

// evalDate reads ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) evalDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return s.now(), nil
	}
	date, err := credit.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %q", raw)
	}
	return date, nil
}

// loan resolves the {id} route variable, writing 400 or 404 on failure.
func loan(w http.ResponseWriter, r *http.Request, snap *store.Snapshot) (int, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return 0, false
	}
	for i, l := range snap.Loans {
		if l.ID == id {
			return i, true
		}
	}
	http.Error(w, "Loan not found", http.StatusNotFound)
	return 0, false
}

func optDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := credit.FormatDate(*t)
	return &s
}

func distribution(d map[parity.Bucket]int) map[string]int {
	out := make(map[string]int, len(d))
	for b, n := range d {
		out[strconv.Itoa(int(b))] = n
	}
	return out
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Loans:    len(snap.Loans),
		Payments: len(snap.Payments),
		LoadedAt: snap.LoadedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) balanceHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	date, err := s.evalDate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	i, ok := loan(w, r, snap)
	if !ok {
		return
	}

	l := snap.Loans[i]
	asOf := s.balances.BalanceAsOf(snap.Payments, snap.Loans, date)
	writeJSON(w, http.StatusOK, balanceResponse{
		LoanID:     l.ID,
		Date:       credit.FormatDate(date),
		Convention: s.balances.Convention(l).String(),
		Principal:  l.Amount,
		Balance:    asOf[i].Balance,
	})
}

func (s *Server) periodsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	date, err := s.evalDate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	i, ok := loan(w, r, snap)
	if !ok {
		return
	}

	ledger, err := s.periods.ActualPeriodsTable(snap.Payments, snap.Loans, date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := periodsResponse{LoanID: snap.Loans[i].ID, Date: credit.FormatDate(date), Periods: []periodRow{}}
	for _, rec := range ledger {
		if rec.LoanID == resp.LoanID {
			resp.Periods = append(resp.Periods, toPeriodRow(rec))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toPeriodRow(rec periods.Record) periodRow {
	return periodRow{
		Period:       rec.Period,
		ExpectedDate: optDate(rec.ExpectedDate),
		Amount:       rec.Amount,
		Date:         optDate(rec.Date),
		Paid:         rec.Paid,
		Delay:        rec.Delay,
		Category:     rec.Category,
	}
}

func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	i, ok := loan(w, r, snap)
	if !ok {
		return
	}

	l := snap.Loans[i]
	entries, err := amortization.Schedule(amortization.ForLoan(l))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	n, principal := amortization.Totals(entries)
	resp := scheduleResponse{
		LoanID:       l.ID,
		Installments: n,
		Principal:    decimal.NewFromFloat(principal).StringFixed(2),
		Schedule:     make([]scheduleRow, 0, n),
	}
	for _, e := range entries {
		if e.IsSentinel() {
			continue
		}
		resp.Schedule = append(resp.Schedule, scheduleRow{
			PaymentDate:    credit.FormatDate(e.PaymentDate),
			PaymentBalance: e.PaymentBalance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parityHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	date, err := s.evalDate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	at := credit.On(date)
	results := parity.Parity(snap.Payments, snap.Loans, date)
	status := parity.PaymentStatus(snap.Payments, snap.Loans, at)
	missed := parity.MissedPayments(snap.Payments, snap.Loans, at)

	resp := parityResponse{
		Date:         credit.FormatDate(date),
		Results:      make([]parityRow, 0, len(results)),
		Distribution: distribution(parity.Distribution(results)),
	}
	for _, res := range results {
		row := parityRow{LoanID: res.LoanID, Applicable: res.Applicable, Status: string(status[res.LoanID])}
		if res.Applicable {
			b := int(res.Bucket)
			row.Bucket = &b
		}
		if m, ok := missed[res.LoanID]; ok {
			row.Missed = &m
		}
		resp.Results = append(resp.Results, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	date, err := s.evalDate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runner := &report.Runner{Balances: s.balances, Periods: s.periods, Log: s.log, Source: s.source}
	rep, err := runner.Run(r.Context(), snap, date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		RunID:        rep.RunID,
		Date:         credit.FormatDate(rep.Date),
		Loans:        len(rep.Rows),
		Payments:     rep.Payments,
		Outstanding:  rep.Outstanding.StringFixed(2),
		Applicable:   rep.Applicable(),
		Delinquent:   rep.Delinquent(),
		Distribution: distribution(rep.Distribution),
	})
}
