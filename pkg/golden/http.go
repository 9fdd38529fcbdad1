package golden

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/golden/consolidate", h.handleConsolidate).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/golden", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/golden/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/golden/{id}/sources", h.handleSources).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Consolidate(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("consolidation pass failed")
		http.Error(w, "consolidation failed", http.StatusInternalServerError)
		return
	}
	metrics.AddGoldenCreated(len(resp.Created))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.service.List(r.Context(), status, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list golden records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "golden record not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch golden record")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *HTTPHandler) handleSources(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	records, err := h.service.SourceRecords(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "golden record not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch source records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
