package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"booking-system/internal/logger"
	"booking-system/internal/models"
)

const intentPathPrefix = "/api/payments/intents/"

// PaymentHandler обрабатывает платёжные намерения.
type PaymentHandler struct {
	paymentService PaymentService
	log            *logger.Logger
}

// NewPaymentHandler создаёт новый обработчик платежей.
func NewPaymentHandler(paymentService PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		log:            log,
	}
}

// CreateIntent создаёт платёжное намерение у выбранного провайдера.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.BookingReference) == "" {
		writeErrorResponse(w, http.StatusBadRequest, "booking_reference is required")
		return
	}
	if strings.TrimSpace(req.Provider) == "" {
		writeErrorResponse(w, http.StatusBadRequest, "provider is required")
		return
	}

	intent, err := h.paymentService.CreateIntent(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create payment intent")
		return
	}

	writeJSONResponse(w, http.StatusCreated, intent)
}

// GetIntent возвращает платёжное намерение по ID.
func (h *PaymentHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, intentPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	intent, err := h.paymentService.GetIntent(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get payment intent")
		return
	}

	writeJSONResponse(w, http.StatusOK, intent)
}
