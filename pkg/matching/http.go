package matching

import (
	"encoding/json"
	"net/http"

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
	router.HandleFunc("/api/v1/duplicates", h.handleCandidates).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Candidates(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to produce duplicate candidates")
		http.Error(w, "duplicate detection unavailable", http.StatusBadGateway)
		return
	}
	metrics.ObserveMatching(len(resp.Candidates), resp.Failed)

	if r.URL.Query().Get("highlight") == "true" {
		resp.Candidates = h.service.Highlighted(resp.Candidates)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
