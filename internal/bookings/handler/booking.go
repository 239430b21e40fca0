package handler

import (
	"encoding/json"
	"net/http"

	"roomly/internal/bookings/service"
	"roomly/pkg/auth"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// Create books a resource for the authenticated user. The owner is
// always taken from the token, never from the request body.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}
	booking.UserID = principal.UserID

	if err := h.service.Book(r.Context(), &booking); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, booking)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin {
		httputil.WriteError(w, apperrors.Forbidden("Only the booking owner may view it"))
		return
	}

	httputil.WriteSuccess(w, booking)
}

// GetAll lists the caller's bookings. Administrators see every booking.
func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var bookings []*model.Booking
	var total int64
	if principal.IsAdmin {
		bookings, total, err = h.service.ListAll(r.Context(), limit, offset)
	} else {
		bookings, total, err = h.service.ListForUser(r.Context(), principal.UserID, limit, offset)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, total, limit, offset)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"), principal.UserID, principal.IsAdmin)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
}
