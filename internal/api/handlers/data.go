package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/fundquant/internal/collector"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

// DataHandler handles data collection endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	collector *collector.Collector
	source    contracts.SeriesSource
	workers   int
	logger    *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(col *collector.Collector, source contracts.SeriesSource, workers int, log *logger.Logger) *DataHandler {
	return &DataHandler{
		collector: col,
		source:    source,
		workers:   workers,
		logger:    log,
	}
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	Codes    []string `json:"codes"`     // empty = every stored fund
	FundList bool     `json:"fund_list"` // 펀드 목록(코드/이름) 먼저 동기화
	From     string   `json:"from"`      // Optional: date range start (YYYY-MM-DD)
	To       string   `json:"to"`        // Optional: date range end (YYYY-MM-DD)
}

// CollectResponse represents a data collection response
type CollectResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Funds   int         `json:"funds,omitempty"`
	Failed  int         `json:"failed"`
	Results interface{} `json:"results,omitempty"`
}

type collectResult struct {
	Code       string `json:"code"`
	Name       string `json:"name,omitempty"`
	PriceCount int    `json:"price_count"`
	Error      string `json:"error,omitempty"`
}

// Collect fetches NAV history into the store
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CollectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	cfg := collector.Config{Workers: h.workers}
	var err error
	if cfg.From, err = parseOptionalDate(req.From); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	if cfg.To, err = parseOptionalDate(req.To); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}

	resp := CollectResponse{Status: "success"}
	if req.FundList {
		n, err := h.collector.SyncFundList(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to sync fund list")
			respondError(w, http.StatusBadGateway, "Failed to sync fund list")
			return
		}
		resp.Funds = n
	}

	codes := req.Codes
	if len(codes) == 0 {
		codes, err = h.source.ListCodes(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list codes")
			respondError(w, http.StatusInternalServerError, "Failed to list codes")
			return
		}
	}

	h.logger.WithFields(map[string]interface{}{
		"codes": len(codes),
		"from":  req.From,
		"to":    req.To,
	}).Info("Data collection triggered")

	results, err := h.collector.FetchAll(ctx, codes, cfg)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Collection aborted")
		return
	}

	out := make([]collectResult, len(results))
	for i, res := range results {
		out[i] = collectResult{Code: res.Code, Name: res.Name, PriceCount: res.PriceCount}
		if res.Error != nil {
			out[i].Error = res.Error.Error()
			resp.Failed++
		}
	}
	resp.Message = "NAV data collected"
	resp.Results = out
	respondJSON(w, http.StatusOK, resp)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
