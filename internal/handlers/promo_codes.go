package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"booking-system/internal/logger"
	"booking-system/internal/models"
)

// PromoHandler обрабатывает промокоды.
type PromoHandler struct {
	promoService PromoService
	log          *logger.Logger
}

// NewPromoHandler создаёт новый обработчик промокодов.
func NewPromoHandler(promoService PromoService, log *logger.Logger) *PromoHandler {
	return &PromoHandler{
		promoService: promoService,
		log:          log,
	}
}

// CreatePromoCode создаёт промокод.
func (h *PromoHandler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CreatePromoCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validatePromoRequest(req.Code, req.Kind, req.Value); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	promo, err := h.promoService.CreatePromoCode(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create promo code")
		return
	}

	writeJSONResponse(w, http.StatusCreated, promo)
}

// ListPromoCodes возвращает список промокодов.
func (h *PromoHandler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, offset := parseListParams(r)

	promos, err := h.promoService.ListPromoCodes(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list promo codes")
		return
	}

	writeJSONResponse(w, http.StatusOK, promos)
}

// GetPromoCode возвращает промокод по коду.
func (h *PromoHandler) GetPromoCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	code, err := extractPromoCodeFromPath(r.URL.Path)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	promo, err := h.promoService.GetPromoCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get promo code")
		return
	}

	writeJSONResponse(w, http.StatusOK, promo)
}

// UpdatePromoCode обновляет промокод.
func (h *PromoHandler) UpdatePromoCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	code, err := extractPromoCodeFromPath(r.URL.Path)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdatePromoCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validatePromoRequest(code, req.Kind, req.Value); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	promo, err := h.promoService.UpdatePromoCode(r.Context(), code, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update promo code")
		return
	}

	writeJSONResponse(w, http.StatusOK, promo)
}

// DeletePromoCode удаляет промокод.
func (h *PromoHandler) DeletePromoCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	code, err := extractPromoCodeFromPath(r.URL.Path)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.promoService.DeletePromoCode(r.Context(), code); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete promo code")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Promo code deleted"})
}

func validatePromoRequest(code string, kind models.PromoKind, value float64) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("promo code is required")
	}
	if len(code) > 64 {
		return fmt.Errorf("promo code is too long")
	}
	// остальное валидирует сервис; процент проверяем сразу
	if kind == models.PromoKindPercentage && (value <= 0 || value > 100) {
		return fmt.Errorf("percentage value must be between 0 and 100")
	}
	return nil
}

func extractPromoCodeFromPath(path string) (string, error) {
	if !strings.HasPrefix(path, "/api/promo-codes/") {
		return "", fmt.Errorf("invalid path format")
	}
	code := strings.TrimPrefix(path, "/api/promo-codes/")
	if code == "" {
		return "", fmt.Errorf("promo code is required")
	}
	// Отрезаем возможный суффикс со слешем
	code = strings.Split(code, "/")[0]
	return code, nil
}
