package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fundquant/internal/batch"
	"github.com/wonny/fundquant/internal/export/excel"
	"github.com/wonny/fundquant/internal/realtime"
	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/pkg/logger"
)

// AnalysisHandler serves batch results and triggers runs
type AnalysisHandler struct {
	svc    *service.AnalysisService
	hub    *realtime.Hub
	runCtx context.Context // 요청이 끝나도 배치는 계속 (서버 종료 시 취소)
	logger *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler. hub may be nil.
func NewAnalysisHandler(runCtx context.Context, svc *service.AnalysisService, hub *realtime.Hub, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, hub: hub, runCtx: runCtx, logger: log}
}

// RunRequest is the body of POST /api/analysis/run
type RunRequest struct {
	Codes     []string `json:"codes"`
	Reference string   `json:"reference"` // YYYY-MM-DD, empty = 각 시계열 마지막 날짜
	Threads   string   `json:"threads"`   // auto | single | custom:N, empty = profile
}

// StatusResponse is returned by GET /api/analysis/status
type StatusResponse struct {
	Running   bool            `json:"running"`
	ProfileID string          `json:"profile_id"`
	Last      *realtime.Event `json:"last_progress,omitempty"`
}

// GetLatest returns the latest batch result
// GET /api/analysis/latest
func (h *AnalysisHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Latest(r.Context())
	if errors.Is(err, service.ErrNoResult) {
		respondError(w, http.StatusNotFound, "No analysis result yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest result")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve result")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetRecord returns one fund's record from the latest batch
// GET /api/analysis/records/{code}
func (h *AnalysisHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	rec, err := h.svc.Record(r.Context(), code)
	switch {
	case errors.Is(err, service.ErrNoResult), errors.Is(err, service.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "Record not found")
		return
	case err != nil:
		h.logger.WithError(err).WithCode(code).Error("Failed to get record")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve record")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Export streams the latest batch as a spreadsheet
// GET /api/analysis/export
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Latest(r.Context())
	if err != nil {
		respondError(w, http.StatusNotFound, "No analysis result yet")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+excel.FileName(result)+`"`)
	if err := excel.Write(w, result); err != nil {
		h.logger.WithError(err).Error("Failed to export result")
	}
}

// GetStatus reports whether a batch is running and its last progress
// GET /api/analysis/status
func (h *AnalysisHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Running:   h.svc.Running(),
		ProfileID: h.svc.Profile().ProfileID,
	}
	if h.hub != nil {
		resp.Last = h.hub.Last()
	}
	respondJSON(w, http.StatusOK, resp)
}

// Run starts a batch in the background
// POST /api/analysis/run
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	opts := service.RunOptions{Codes: req.Codes}
	var err error
	if opts.Reference, err = parseOptionalDate(req.Reference); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'reference' date format (expected YYYY-MM-DD)")
		return
	}
	if req.Threads != "" {
		c, err := batch.ParseConcurrency(req.Threads)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Concurrency = &c
	}

	if h.svc.Running() {
		respondError(w, http.StatusConflict, "Analysis already running")
		return
	}

	go func() {
		result, err := h.svc.Run(h.runCtx, opts)
		if err != nil {
			h.logger.WithError(err).Error("Triggered analysis failed")
			return
		}
		h.logger.WithField("run_id", result.RunID).Info("Triggered analysis finished")
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Analysis started",
	})
}
