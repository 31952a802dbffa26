package models

import "time"

// GiftCardStatus представляет статус подарочной карты.
type GiftCardStatus string

const (
	GiftCardStatusPending   GiftCardStatus = "pending"
	GiftCardStatusActive    GiftCardStatus = "active"
	GiftCardStatusUsed      GiftCardStatus = "used"
	GiftCardStatusExpired   GiftCardStatus = "expired"
	GiftCardStatusCancelled GiftCardStatus = "cancelled"
)

// GiftCard представляет подарочную карту.
// Код карты неугадываемый; баланс меняется только атомарно при погашении.
type GiftCard struct {
	Code             string         `json:"code" db:"code"`
	OriginalAmount   float64        `json:"original_amount" db:"original_amount"`
	RemainingBalance float64        `json:"remaining_balance" db:"remaining_balance"`
	Status           GiftCardStatus `json:"status" db:"status"`
	AppliesTo        DiscountScope  `json:"applies_to" db:"applies_to"`
	ValidUntil       *time.Time     `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// CreateGiftCardRequest описывает запрос на выпуск подарочной карты.
// Карта создаётся в статусе pending и активируется после оплаты покупки.
type CreateGiftCardRequest struct {
	Amount     float64       `json:"amount"`
	AppliesTo  DiscountScope `json:"applies_to,omitempty"`
	ValidUntil *time.Time    `json:"valid_until,omitempty"`
}
