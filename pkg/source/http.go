package source

import (
	"encoding/json"
	"net/http"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/patients", h.handleList).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Records(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch patient records")
		http.Error(w, "record source unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
