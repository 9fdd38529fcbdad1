package stewardship

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/golden"
	"github.com/auscare-mdm/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	workflow *Workflow
	maxBody  int64
}

func NewHTTPHandler(workflow *Workflow, maxBody int64) *HTTPHandler {
	return &HTTPHandler{workflow: workflow, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/stewardship/queue", h.handleQueue).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/golden/{id}/approve", h.handleApprove).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/golden/{id}/reject", h.handleReject).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.workflow.PendingQueue(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list pending golden records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *HTTPHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.workflow.Approve(r.Context(), id, req.EditedFields, req.Comments, req.ReviewedBy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.AddDecision(models.StatusApproved)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *HTTPHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.workflow.Reject(r.Context(), id, req.Comments, req.ReviewedBy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.AddDecision(models.StatusRejected)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, golden.ErrNotFound):
		http.Error(w, "golden record not found", http.StatusNotFound)
	case errors.Is(err, ErrStateConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.Log.WithError(err).Error("stewardship transition failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
