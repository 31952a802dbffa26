package handlers

import (
	"encoding/json"
	"net/http"

	"booking-system/internal/logger"
	"booking-system/internal/models"
)

// PricingHandler отдаёт котировки цены без создания бронирования.
type PricingHandler struct {
	bookingService BookingService
	log            *logger.Logger
}

// NewPricingHandler создает новый обработчик котировок.
func NewPricingHandler(bookingService BookingService, log *logger.Logger) *PricingHandler {
	return &PricingHandler{
		bookingService: bookingService,
		log:            log,
	}
}

// Quote возвращает разбивку цены для заказа. Неприменимые скидки
// не прерывают расчёт: они возвращаются в rejections.
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
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

	breakdown, err := h.bookingService.Quote(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to compose price quote")
		return
	}

	writeJSONResponse(w, http.StatusOK, breakdown)
}
