package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"booking-system/internal/logger"
	"booking-system/internal/models"
)

const giftCardPathPrefix = "/api/gift-cards/"

// GiftCardHandler обрабатывает подарочные карты.
type GiftCardHandler struct {
	giftCardService GiftCardService
	log             *logger.Logger
}

// NewGiftCardHandler создаёт новый обработчик подарочных карт.
func NewGiftCardHandler(giftCardService GiftCardService, log *logger.Logger) *GiftCardHandler {
	return &GiftCardHandler{
		giftCardService: giftCardService,
		log:             log,
	}
}

// CreateGiftCard выпускает подарочную карту в статусе pending.
func (h *GiftCardHandler) CreateGiftCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CreateGiftCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Amount <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	card, err := h.giftCardService.CreateGiftCard(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create gift card")
		return
	}

	writeJSONResponse(w, http.StatusCreated, card)
}

// GetGiftCard возвращает карту по коду.
func (h *GiftCardHandler) GetGiftCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	code, err := extractReferenceFromPath(r.URL.Path, giftCardPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.giftCardService.GetGiftCard(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get gift card")
		return
	}

	writeJSONResponse(w, http.StatusOK, card)
}

// ActivateGiftCard активирует карту после оплаты её покупки.
func (h *GiftCardHandler) ActivateGiftCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	code, err := extractReferenceFromPath(r.URL.Path, giftCardPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.giftCardService.ActivateGiftCard(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to activate gift card")
		return
	}

	writeJSONResponse(w, http.StatusOK, card)
}

// HandleGiftCardByCode маршрутизирует /api/gift-cards/{code}[/activate].
func (h *GiftCardHandler) HandleGiftCardByCode(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, giftCardPathPrefix)
	parts := strings.Split(rest, "/")

	if len(parts) == 1 || (len(parts) == 2 && parts[1] == "") {
		h.GetGiftCard(w, r)
		return
	}

	if parts[1] == "activate" {
		h.ActivateGiftCard(w, r)
		return
	}

	writeErrorResponse(w, http.StatusNotFound, "Unknown gift card action")
}
