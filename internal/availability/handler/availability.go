package handler

import (
	"net/http"
	"strconv"

	"roomly/internal/availability/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

// Search lists resources free for the whole requested window.
// Query parameters: start_time, end_time (RFC3339, required) and
// min_capacity (optional, defaults to 0).
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, err := httputil.ExtractTime(r, "start_time")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	end, err := httputil.ExtractTime(r, "end_time")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	minCapacity := 0
	if raw := r.URL.Query().Get("min_capacity"); raw != "" {
		minCapacity, err = strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, apperrors.InvalidInput("min_capacity must be an integer"))
			return
		}
	}

	resources, err := h.service.FindAvailable(r.Context(), start, end, minCapacity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, resources)
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/resources/search", h.Search)
}
