package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/api/handlers"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/realtime"
	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/pkg/logger"
)

type staticSource []contracts.Instrument

func (s staticSource) ListCodes(ctx context.Context) ([]string, error) {
	codes := make([]string, len(s))
	for i, inst := range s {
		codes[i] = inst.Code
	}
	return codes, nil
}

func (s staticSource) LoadSeries(ctx context.Context, codes []string) ([]contracts.Instrument, error) {
	return s, nil
}

func linear(code string, n int, step float64) contracts.Instrument {
	inst := contracts.Instrument{Code: code}
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		inst.Points = append(inst.Points, contracts.PricePoint{Date: d.AddDate(0, 0, i), Close: contracts.Float(1 + step*float64(i))})
	}
	return inst
}

func newTestRouter(t *testing.T) (http.Handler, *service.AnalysisService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logger.Nop()
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	svc := service.NewAnalysisService(staticSource{linear("000001", 30, 0.01), linear("000002", 30, -0.01)}, nil, log,
		service.WithProgress(hub.Publish))

	return NewRouter(Handlers{
		Analysis: handlers.NewAnalysisHandler(ctx, svc, hub, log),
		Hub:      hub,
	}, log), svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAnalysisFlow(t *testing.T) {
	router, svc := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/analysis/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/analysis/run", `{"threads":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/analysis/run", `{"threads":"custom:2"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		_, err := svc.Latest(context.Background())
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, router, http.MethodGet, "/api/analysis/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result contracts.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Workers)

	rec = do(t, router, http.MethodGet, "/api/analysis/records/000002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var record contracts.AnalysisRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "000002", record.Code)

	rec = do(t, router, http.MethodGet, "/api/analysis/records/999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/analysis/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status handlers.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "default", status.ProfileID)
	require.NotNil(t, status.Last)
	assert.Equal(t, 2, status.Last.Progress.Total)

	rec = do(t, router, http.MethodGet, "/api/analysis/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.Greater(t, rec.Body.Len(), 0)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
