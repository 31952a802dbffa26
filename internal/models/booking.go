package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus представляет статус бронирования
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// BookableType описывает тип бронируемого ресурса.
type BookableType string

const (
	BookableTypeVessel BookableType = "vessel"
	BookableTypeTour   BookableType = "tour"
)

// Booking представляет бронирование в системе
type Booking struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	Reference        string            `json:"reference" db:"reference"`
	UserID           uuid.UUID         `json:"user_id" db:"user_id"`
	BookableType     BookableType      `json:"bookable_type" db:"bookable_type"`
	BookableID       string            `json:"bookable_id" db:"bookable_id"`
	Date             time.Time         `json:"date" db:"date"`
	WindowStart      int               `json:"window_start" db:"window_start"` // минуты от полуночи
	WindowEnd        int               `json:"window_end" db:"window_end"`
	PartySize        int               `json:"party_size" db:"party_size"`
	Subtotal         float64           `json:"subtotal" db:"subtotal"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts"`
	TotalPrice       float64           `json:"total_price" db:"total_price"`
	Status           BookingStatus     `json:"status" db:"status"`
	PaymentMethod    *string           `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference *string           `json:"payment_reference,omitempty" db:"payment_reference"`
	CancelReason     *string           `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
	PaidAt           *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
}

// OrderContext описывает контекст заказа для расчёта цены.
// Не персистится: собирается заново на каждый запрос котировки.
type OrderContext struct {
	UserID         uuid.UUID    `json:"user_id"`
	BookableType   BookableType `json:"bookable_type"`
	BookableID     string       `json:"bookable_id"`
	Date           time.Time    `json:"date"`
	WindowStart    int          `json:"window_start"`
	WindowEnd      int          `json:"window_end"`
	DurationHours  int          `json:"duration_hours"`
	PartySize      int          `json:"party_size"`
	Addons         []Addon      `json:"addons,omitempty"`
	PackageID      *int64       `json:"package_id,omitempty"`
	PromoCode      *string      `json:"promo_code,omitempty"`
	GiftCardCode   *string      `json:"gift_card_code,omitempty"`
	CashbackAmount float64      `json:"cashback_amount,omitempty"`
}

// Addon представляет дополнительную услугу в заказе.
type Addon struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// DiscountKind описывает источник скидки в разбивке цены.
type DiscountKind string

const (
	DiscountKindRule     DiscountKind = "pricing_rule"
	DiscountKindPackage  DiscountKind = "package"
	DiscountKindPromo    DiscountKind = "promo"
	DiscountKindGiftCard DiscountKind = "gift_card"
	DiscountKindCashback DiscountKind = "cashback"
)

// AppliedDiscount описывает одну применённую скидку в разбивке.
type AppliedDiscount struct {
	Kind       DiscountKind `json:"kind"`
	Identifier string       `json:"identifier,omitempty"`
	Amount     float64      `json:"amount"`
}

// RejectionCode описывает причину отказа резолвера скидки.
type RejectionCode string

const (
	RejectionNotFound            RejectionCode = "NOT_FOUND"
	RejectionExpired             RejectionCode = "EXPIRED"
	RejectionInactive            RejectionCode = "INACTIVE"
	RejectionScopeMismatch       RejectionCode = "SCOPE_MISMATCH"
	RejectionUsageLimitReached   RejectionCode = "USAGE_LIMIT_REACHED"
	RejectionBelowMinimum        RejectionCode = "BELOW_MINIMUM"
	RejectionInsufficientBalance RejectionCode = "INSUFFICIENT_BALANCE"
	RejectionPackageConflict     RejectionCode = "PACKAGE_CONFLICT"
)

// DiscountRejection описывает отклонённую скидку: причина возвращается
// значением, а не ошибкой, чтобы котировка могла собрать несколько отказов.
type DiscountRejection struct {
	Kind       DiscountKind  `json:"kind"`
	Identifier string        `json:"identifier,omitempty"`
	Code       RejectionCode `json:"code"`
	Message    string        `json:"message,omitempty"`
}

// PriceBreakdown представляет детальную разбивку цены заказа.
type PriceBreakdown struct {
	BasePrice      float64             `json:"base_price"`
	RuleAdjustment float64             `json:"rule_adjustment"` // сумма процентов динамических правил
	Subtotal       float64             `json:"subtotal"`
	Discounts      []AppliedDiscount   `json:"discounts"`
	Rejections     []DiscountRejection `json:"rejections,omitempty"`
	Total          float64             `json:"total"`
}

// CreateBookingRequest представляет запрос на создание бронирования.
type CreateBookingRequest struct {
	BookableType   BookableType `json:"bookable_type"`
	BookableID     string       `json:"bookable_id"`
	Date           string       `json:"date"` // YYYY-MM-DD
	WindowStart    int          `json:"window_start"`
	WindowEnd      int          `json:"window_end"`
	DurationHours  int          `json:"duration_hours"`
	PartySize      int          `json:"party_size"`
	Addons         []Addon      `json:"addons,omitempty"`
	PackageID      *int64       `json:"package_id,omitempty"`
	PromoCode      *string      `json:"promo_code,omitempty"`
	GiftCardCode   *string      `json:"gift_card_code,omitempty"`
	CashbackAmount float64      `json:"cashback_amount,omitempty"`
}

// CancelBookingRequest представляет запрос на отмену бронирования.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}
