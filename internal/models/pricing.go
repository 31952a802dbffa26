package models

import "time"

// PricingRule представляет правило динамического ценообразования.
// Корректировка задаётся процентом (положительный = надбавка, отрицательный = скидка);
// правила суммируются как проценты и применяются к базе один раз.
type PricingRule struct {
	ID         int64         `json:"id" db:"id"`
	Name       string        `json:"name" db:"name"`
	AppliesTo  DiscountScope `json:"applies_to" db:"applies_to"`
	Percent    float64       `json:"percent" db:"percent"`
	Priority   int           `json:"priority" db:"priority"`
	ActiveFrom *time.Time    `json:"active_from,omitempty" db:"active_from"`
	ActiveTo   *time.Time    `json:"active_to,omitempty" db:"active_to"`
	IsActive   bool          `json:"is_active" db:"is_active"`
}

// Package представляет пакетное предложение: связанные допуслуги
// продаются по единой сниженной цене вместо суммы их прайсов.
type Package struct {
	ID           int64        `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	BookableType BookableType `json:"bookable_type" db:"bookable_type"`
	Addons       []string     `json:"addons"`
	BundlePrice  float64      `json:"bundle_price" db:"bundle_price"`
	IsActive     bool         `json:"is_active" db:"is_active"`
}

// Bookable описывает бронируемый ресурс, получаемый из каталога.
type Bookable struct {
	ID       string        `json:"id"`
	Type     BookableType  `json:"type"`
	Scope    DiscountScope `json:"scope"`
	Capacity int           `json:"capacity"`
}

// Invoice представляет сгенерированный счёт по оплаченному бронированию.
type Invoice struct {
	ID               int64     `json:"id" db:"id"`
	Number           string    `json:"number" db:"number"`
	BookingReference string    `json:"booking_reference" db:"booking_reference"`
	Amount           float64   `json:"amount" db:"amount"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
