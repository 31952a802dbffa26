package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

const bookingPathPrefix = "/api/bookings/"

// BookingHandler представляет обработчик бронирований
type BookingHandler struct {
	bookingService BookingService
	log            *logger.Logger
}

// NewBookingHandler создает новый обработчик бронирований
func NewBookingHandler(bookingService BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		log:            log,
	}
}

// CreateBooking создает бронирование (hold) с рассчитанной ценой.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID, err := extractUserID(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, breakdown, err := h.bookingService.Reserve(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create booking")
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"booking":   booking,
		"breakdown": breakdown,
	})
}

// ListBookings возвращает список бронирований с фильтрацией.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var status *models.BookingStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.BookingStatus(s)
		status = &st
	}

	var userID *uuid.UUID
	if u := r.URL.Query().Get("user_id"); u != "" {
		id, err := uuid.Parse(u)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		userID = &id
	}

	limit, offset := parseListParams(r)

	bookings, err := h.bookingService.ListBookings(r.Context(), status, userID, limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list bookings")
		return
	}

	writeJSONResponse(w, http.StatusOK, bookings)
}

// GetBooking возвращает бронирование по референсу.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reference, err := extractReferenceFromPath(r.URL.Path, bookingPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.bookingService.GetBooking(r.Context(), reference)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get booking")
		return
	}

	writeJSONResponse(w, http.StatusOK, booking)
}

// ConfirmBooking подтверждает pending-бронирование.
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reference, err := extractReferenceFromPath(r.URL.Path, bookingPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.bookingService.Confirm(r.Context(), reference)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to confirm booking")
		return
	}

	writeJSONResponse(w, http.StatusOK, booking)
}

// CancelBooking отменяет бронирование.
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reference, err := extractReferenceFromPath(r.URL.Path, bookingPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = "cancelled by user"
	}

	booking, err := h.bookingService.Cancel(r.Context(), reference, req.Reason)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to cancel booking")
		return
	}

	writeJSONResponse(w, http.StatusOK, booking)
}

// CompleteBooking помечает оплаченное бронирование как оказанное.
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reference, err := extractReferenceFromPath(r.URL.Path, bookingPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.bookingService.Complete(r.Context(), reference)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to complete booking")
		return
	}

	writeJSONResponse(w, http.StatusOK, booking)
}

// HandleBookingByReference маршрутизирует /api/bookings/{reference}[/action].
func (h *BookingHandler) HandleBookingByReference(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, bookingPathPrefix)
	parts := strings.Split(rest, "/")

	if len(parts) == 1 || (len(parts) == 2 && parts[1] == "") {
		h.GetBooking(w, r)
		return
	}

	switch parts[1] {
	case "cancel":
		h.CancelBooking(w, r)
	case "confirm":
		h.ConfirmBooking(w, r)
	case "complete":
		h.CompleteBooking(w, r)
	default:
		writeErrorResponse(w, http.StatusNotFound, "Unknown booking action")
	}
}
