package models

import "time"

// AnalyticsFilter задаёт временной интервал для агрегации метрик.
type AnalyticsFilter struct {
	From        time.Time
	To          time.Time
	TopBookable int
}

// KPIMetrics описывает бизнес-показатели по оплаченным бронированиям.
type KPIMetrics struct {
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	Revenue       float64       `json:"revenue"`
	BookingsCount int           `json:"bookings_count"`
	AverageCheck  float64       `json:"average_check"`
	TotalDiscount float64       `json:"total_discount"`
	TopBookables  []TopBookable `json:"top_bookables"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// TopBookable описывает популярный ресурс за период.
type TopBookable struct {
	BookableType BookableType `json:"bookable_type"`
	BookableID   string       `json:"bookable_id"`
	Bookings     int          `json:"bookings"`
	Revenue      float64      `json:"revenue"`
}
