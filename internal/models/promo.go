package models

import "time"

// PromoKind описывает тип промокода.
type PromoKind string

const (
	PromoKindFixed      PromoKind = "fixed"
	PromoKindPercentage PromoKind = "percentage"
)

// DiscountScope описывает область применения скидки.
type DiscountScope string

const (
	ScopeVessel DiscountScope = "vessel"
	ScopeTour   DiscountScope = "tour"
	ScopeAll    DiscountScope = "all"
)

// Matches проверяет применимость области скидки к типу ресурса.
func (s DiscountScope) Matches(bt BookableType) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeVessel:
		return bt == BookableTypeVessel
	case ScopeTour:
		return bt == BookableTypeTour
	default:
		return false
	}
}

// PromoCode представляет промокод в системе.
type PromoCode struct {
	Code           string        `json:"code" db:"code"`
	Kind           PromoKind     `json:"kind" db:"kind"`
	Value          float64       `json:"value" db:"value"`
	AppliesTo      DiscountScope `json:"applies_to" db:"applies_to"`
	UsageLimit     int           `json:"usage_limit" db:"usage_limit"` // 0 = безлимит
	PerUserLimit   int           `json:"per_user_limit" db:"per_user_limit"`
	UsedCount      int           `json:"used_count" db:"used_count"`
	ValidFrom      *time.Time    `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty" db:"valid_until"`
	MinOrderAmount float64       `json:"min_order_amount" db:"min_order_amount"`
	IsActive       bool          `json:"is_active" db:"is_active"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// CreatePromoCodeRequest описывает запрос на создание промокода.
type CreatePromoCodeRequest struct {
	Code           string        `json:"code"`
	Kind           PromoKind     `json:"kind"`
	Value          float64       `json:"value"`
	AppliesTo      DiscountScope `json:"applies_to"`
	UsageLimit     int           `json:"usage_limit,omitempty"`
	PerUserLimit   int           `json:"per_user_limit,omitempty"`
	ValidFrom      *time.Time    `json:"valid_from,omitempty"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty"`
	MinOrderAmount float64       `json:"min_order_amount,omitempty"`
	IsActive       bool          `json:"is_active"`
}

// UpdatePromoCodeRequest описывает запрос на обновление промокода.
type UpdatePromoCodeRequest struct {
	Kind           PromoKind     `json:"kind"`
	Value          float64       `json:"value"`
	AppliesTo      DiscountScope `json:"applies_to"`
	UsageLimit     int           `json:"usage_limit,omitempty"`
	PerUserLimit   int           `json:"per_user_limit,omitempty"`
	ValidFrom      *time.Time    `json:"valid_from,omitempty"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty"`
	MinOrderAmount float64       `json:"min_order_amount,omitempty"`
	IsActive       bool          `json:"is_active"`
}
