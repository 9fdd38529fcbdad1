package quality

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
	router.HandleFunc("/api/v1/quality", h.handleAssessments).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleAssessments(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Assessments(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to produce quality assessments")
		http.Error(w, "quality assessment unavailable", http.StatusBadGateway)
		return
	}
	metrics.ObserveAssessments(resp.Failed, resp.Total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
