package jobs

import (
	"context"
	"encoding/json"

	"booking-system/internal/apperror"
	"booking-system/internal/kafka"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/services"
)

// Handlers объединяет обработчики фоновых задач с их зависимостями.
type Handlers struct {
	log       *logger.Logger
	bookings  *services.BookingService
	payments  *services.PaymentService
	invoices  *services.InvoiceService
	analytics *services.AnalyticsService
	producer  *kafka.Producer
}

// NewHandlers создаёт набор обработчиков задач.
func NewHandlers(log *logger.Logger, bookings *services.BookingService, payments *services.PaymentService,
	invoices *services.InvoiceService, analytics *services.AnalyticsService, producer *kafka.Producer) *Handlers {
	return &Handlers{
		log:       log,
		bookings:  bookings,
		payments:  payments,
		invoices:  invoices,
		analytics: analytics,
		producer:  producer,
	}
}

// RegisterAll регистрирует все обработчики в runner'е.
func (h *Handlers) RegisterAll(runner *Runner) {
	runner.Register(models.JobTypeNotification, h.HandleNotification)
	runner.Register(models.JobTypeInvoice, h.HandleInvoice)
	runner.Register(models.JobTypeAnalytics, h.HandleAnalytics)
	runner.Register(models.JobTypeRefund, h.HandleRefund)
	runner.Register(models.JobTypeSettlement, h.HandleSettlement)
}

// HandleNotification публикует запрос на уведомление в Kafka.
func (h *Handlers) HandleNotification(ctx context.Context, job *models.Job) error {
	var payload models.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return apperror.Validation("malformed notification payload", err)
	}

	if h.producer == nil {
		h.log.WithField("reference", payload.BookingReference).Debug("Kafka producer is not configured, notification skipped")
		return nil
	}
	return h.producer.PublishNotification(payload.BookingReference, payload.Template, payload.Recipient)
}

// HandleInvoice генерирует счёт по оплаченному бронированию.
func (h *Handlers) HandleInvoice(ctx context.Context, job *models.Job) error {
	var payload models.InvoicePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return apperror.Validation("malformed invoice payload", err)
	}
	return h.invoices.CreateInvoice(ctx, payload.BookingReference, payload.Amount)
}

// HandleAnalytics увеличивает счётчик метрик.
func (h *Handlers) HandleAnalytics(ctx context.Context, job *models.Job) error {
	var payload models.AnalyticsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return apperror.Validation("malformed analytics payload", err)
	}
	return h.analytics.IncrementCounter(ctx, payload.Counter, payload.Delta)
}

// HandleRefund компенсирует леджеры и отменяет intent'ы бронирования.
func (h *Handlers) HandleRefund(ctx context.Context, job *models.Job) error {
	var payload models.RefundPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return apperror.Validation("malformed refund payload", err)
	}

	if err := h.bookings.ReverseSettlement(ctx, payload.BookingReference); err != nil {
		return err
	}
	if err := h.payments.CancelIntentsForBooking(ctx, payload.BookingReference); err != nil {
		return err
	}

	if h.producer != nil {
		if err := h.producer.PublishNotification(payload.BookingReference, "booking_refunded", ""); err != nil {
			h.log.WithError(err).Warn("Failed to publish refund notification")
		}
	}
	return nil
}

// HandleSettlement применяет зафиксированное settlement-событие.
func (h *Handlers) HandleSettlement(ctx context.Context, job *models.Job) error {
	var payload models.SettlementPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return apperror.Validation("malformed settlement payload", err)
	}
	return h.payments.ApplySettlement(ctx, &payload.Event)
}
