package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType описывает тип события, публикуемого в Kafka.
type EventType string

const (
	EventTypeBookingCreated   EventType = "booking.created"
	EventTypeBookingPaid      EventType = "booking.paid"
	EventTypeBookingCancelled EventType = "booking.cancelled"
	EventTypeBookingExpired   EventType = "booking.expired"
	EventTypePaymentFailed    EventType = "payment.failed"
	EventTypeNotification     EventType = "notification.requested"
)

// Event представляет событие в шине.
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
