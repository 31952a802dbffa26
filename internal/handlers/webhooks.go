package handlers

import (
	"io"
	"net/http"
	"strings"

	"booking-system/internal/apperror"
	"booking-system/internal/logger"
)

const (
	webhookPathPrefix = "/webhooks/"
	maxWebhookBody    = 1 << 20
)

// WebhookHandler принимает провайдерские вебхуки: проверяет подпись,
// нормализует событие и durable-фиксирует его. Применение settlement'а
// асинхронное; провайдеру отвечаем 200 сразу после записи.
type WebhookHandler struct {
	registry ProviderRegistry
	payments SettlementRecorder
	log      *logger.Logger
}

// NewWebhookHandler создаёт новый обработчик вебхуков.
func NewWebhookHandler(registry ProviderRegistry, payments SettlementRecorder, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		payments: payments,
		log:      log,
	}
}

// Handle обрабатывает POST /webhooks/{provider}.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name, err := extractReferenceFromPath(r.URL.Path, webhookPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, err := h.registry.Get(strings.ToLower(name))
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := provider.VerifyAndNormalize(r, body)
	if err != nil {
		switch {
		case apperror.Is(err, apperror.KindValidation):
			// Подпись не сошлась: событие не от провайдера, отклоняем.
			h.log.WithError(err).WithField("provider", provider.Name()).Warn("Webhook rejected")
			writeErrorResponse(w, http.StatusBadRequest, err.Error())
		case apperror.Is(err, apperror.KindProviderPermanent):
			// Подпись верна, но событие непригодно к нормализации.
			// Подтверждаем доставку, чтобы провайдер не повторял её,
			// и откладываем сырое тело на ручной разбор.
			h.log.WithError(err).WithField("provider", provider.Name()).Warn("Webhook quarantined")
			if qErr := h.payments.QuarantineWebhook(r.Context(), provider.Name(), body, err.Error()); qErr != nil {
				h.log.WithError(qErr).WithField("provider", provider.Name()).Error("Failed to quarantine webhook")
				writeErrorResponse(w, http.StatusInternalServerError, "Failed to quarantine webhook")
				return
			}
			writeJSONResponse(w, http.StatusOK, map[string]string{"status": "quarantined"})
		default:
			h.log.WithError(err).WithField("provider", provider.Name()).Error("Failed to verify webhook")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to verify webhook")
		}
		return
	}

	recorded, err := h.payments.RecordSettlement(r.Context(), event)
	if err != nil {
		// Событие не записано: отвечаем 5xx, провайдер повторит доставку.
		h.log.WithError(err).WithFields(map[string]interface{}{
			"provider":  event.Provider,
			"reference": event.BookingReference,
		}).Error("Failed to record settlement event")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to record settlement event")
		return
	}

	status := "accepted"
	if !recorded {
		status = "duplicate"
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": status})
}
