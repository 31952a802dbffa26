package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProvider перечисляет поддерживаемые платёжные провайдеры.
const (
	ProviderCard     = "card"
	ProviderCrypto   = "cryptopay"
	ProviderStars    = "stars"
	ProviderQRBank   = "qrbank"
	ProviderRegional = "regional"
)

// IntentStatus представляет статус платёжного намерения.
type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "pending"
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusCompleted  IntentStatus = "completed"
	IntentStatusFailed     IntentStatus = "failed"
	IntentStatusCancelled  IntentStatus = "cancelled"
)

// PaymentIntent представляет попытку оплаты бронирования.
// У бронирования может быть несколько intent'ов (повторы, смена провайдера),
// но статус completed достигает не более одного.
type PaymentIntent struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	Provider          string       `json:"provider" db:"provider"`
	BookingReference  string       `json:"booking_reference" db:"booking_reference"`
	Amount            float64      `json:"amount" db:"amount"`
	Currency          string       `json:"currency" db:"currency"`
	Status            IntentStatus `json:"status" db:"status"`
	ProviderReference string       `json:"provider_reference" db:"provider_reference"`
	IdempotencyKey    string       `json:"idempotency_key" db:"idempotency_key"`
	PaymentURL        string       `json:"payment_url,omitempty" db:"payment_url"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// SettlementOutcome описывает нормализованный исход провайдерского события.
type SettlementOutcome string

const (
	SettlementPaid    SettlementOutcome = "paid"
	SettlementFailed  SettlementOutcome = "failed"
	SettlementPending SettlementOutcome = "pending"
)

// SettlementEvent представляет провайдерский вебхук, приведённый
// к единой форме после верификации подписи.
type SettlementEvent struct {
	Provider          string            `json:"provider"`
	ProviderReference string            `json:"provider_reference"`
	BookingReference  string            `json:"booking_reference"`
	Outcome           SettlementOutcome `json:"outcome"`
	Amount            float64           `json:"amount"`
	Currency          string            `json:"currency,omitempty"`
	Reason            string            `json:"reason,omitempty"`
}

// CreateIntentRequest описывает запрос на создание платёжного намерения.
type CreateIntentRequest struct {
	BookingReference string `json:"booking_reference"`
	Provider         string `json:"provider"`
}
