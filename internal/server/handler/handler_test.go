package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/domain"
	"github.com/quantarb/arbot/internal/orchestrator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler()
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "arbot", body["service"])
}

type stubStatusSource struct {
	status orchestrator.Status
}

func (s *stubStatusSource) Status() orchestrator.Status { return s.status }

func TestStatusHandler(t *testing.T) {
	source := &stubStatusSource{status: orchestrator.Status{OpportunitiesTotal: 7}}
	h := NewStatusHandler(source, "run", time.Now().Add(-time.Minute))
	rec := httptest.NewRecorder()

	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Mode   string              `json:"mode"`
		Engine orchestrator.Status `json:"engine"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run", body.Mode)
	assert.Equal(t, 7, body.Engine.OpportunitiesTotal)
}

type stubRiskReporter struct {
	report domain.RiskReport
}

func (s *stubRiskReporter) Report() domain.RiskReport { return s.report }

func TestRiskHandler(t *testing.T) {
	h := NewRiskHandler(&stubRiskReporter{report: domain.RiskReport{
		CurrentExposure: decimal.NewFromInt(1200),
		OpenPositions:   3,
	}})
	rec := httptest.NewRecorder()

	h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/risk", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.RiskReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.OpenPositions)
	assert.True(t, report.CurrentExposure.Equal(decimal.NewFromInt(1200)))
}

func TestTradesHandlerWithoutJournal(t *testing.T) {
	h := NewTradeHandler(nil, testLogger())
	rec := httptest.NewRecorder()

	h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestQuotesHandlerWithoutCache(t *testing.T) {
	h := NewQuoteHandler(nil, testLogger())
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/BTC%2FUSDT", nil)
	h.GetSymbolQuotes(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseListOpts(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/trades?limit=1000&offset=20&since=2026-08-01T00:00:00Z", nil)

	opts := parseListOpts(req)
	assert.Equal(t, 500, opts.Limit, "limit is capped")
	assert.Equal(t, 20, opts.Offset)
	require.NotNil(t, opts.Since)
	assert.Equal(t, 2026, opts.Since.Year())
	assert.Nil(t, opts.Until)
}
