package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType перечисляет типы фоновых задач.
const (
	JobTypeNotification  = "notification.send"
	JobTypeInvoice       = "invoice.generate"
	JobTypeAnalytics     = "analytics.increment"
	JobTypeRefund        = "booking.refund"
	JobTypeSettlement    = "settlement.apply"
	JobTypeWebhookReview = "webhook.review"
)

// DefaultQueue задаёт единственную логическую очередь задач.
const DefaultQueue = "default"

// Job представляет задачу в durable-очереди.
// available_at управляет отложенным выполнением и backoff-повторами,
// reserved_at арендой (visibility timeout) между конкурирующими воркерами.
type Job struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Queue       string          `json:"queue" db:"queue"`
	Type        string          `json:"type" db:"type"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Attempts    int             `json:"attempts" db:"attempts"`
	MaxAttempts int             `json:"max_attempts" db:"max_attempts"`
	AvailableAt time.Time       `json:"available_at" db:"available_at"`
	ReservedAt  *time.Time      `json:"reserved_at,omitempty" db:"reserved_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// DeadLetterJob представляет задачу, исчерпавшую попытки.
type DeadLetterJob struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	JobID     uuid.UUID       `json:"job_id" db:"job_id"`
	Queue     string          `json:"queue" db:"queue"`
	Type      string          `json:"type" db:"type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	Attempts  int             `json:"attempts" db:"attempts"`
	LastError string          `json:"last_error" db:"last_error"`
	FailedAt  time.Time       `json:"failed_at" db:"failed_at"`
}

// NotificationPayload описывает полезную нагрузку задачи notification.send.
type NotificationPayload struct {
	BookingReference string `json:"booking_reference"`
	Template         string `json:"template"`
	Recipient        string `json:"recipient,omitempty"`
}

// InvoicePayload описывает полезную нагрузку задачи invoice.generate.
type InvoicePayload struct {
	BookingReference string  `json:"booking_reference"`
	Amount           float64 `json:"amount"`
}

// AnalyticsPayload описывает полезную нагрузку задачи analytics.increment.
type AnalyticsPayload struct {
	Counter string  `json:"counter"`
	Delta   float64 `json:"delta"`
}

// RefundPayload описывает полезную нагрузку задачи booking.refund.
type RefundPayload struct {
	BookingReference string `json:"booking_reference"`
	Reason           string `json:"reason"`
}

// SettlementPayload описывает полезную нагрузку задачи settlement.apply.
type SettlementPayload struct {
	Event SettlementEvent `json:"event"`
}

// WebhookReviewPayload сохраняет сырое тело вебхука, прошедшего проверку
// подписи, но не поддающегося нормализации, для ручного разбора.
type WebhookReviewPayload struct {
	Provider string `json:"provider"`
	Body     string `json:"body"`
}
