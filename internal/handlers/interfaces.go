package handlers

import (
	"context"

	"booking-system/internal/models"
	"booking-system/internal/providers"

	"github.com/google/uuid"
)

// ----- Bookings -----

type BookingService interface {
	Quote(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.PriceBreakdown, error)
	Reserve(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.Booking, *models.PriceBreakdown, error)
	GetBooking(ctx context.Context, reference string) (*models.Booking, error)
	ListBookings(ctx context.Context, status *models.BookingStatus, userID *uuid.UUID, limit, offset int) ([]*models.Booking, error)
	Confirm(ctx context.Context, reference string) (*models.Booking, error)
	Cancel(ctx context.Context, reference, reason string) (*models.Booking, error)
	Complete(ctx context.Context, reference string) (*models.Booking, error)
}

// ----- Payments -----

type PaymentService interface {
	CreateIntent(ctx context.Context, req *models.CreateIntentRequest) (*models.PaymentIntent, error)
	GetIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
}

// SettlementRecorder durable-фиксирует провайдерское событие.
// false означает дубликат: событие уже было записано ранее.
// QuarantineWebhook откладывает подписанное, но непригодное событие
// на ручной разбор.
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, event *models.SettlementEvent) (bool, error)
	QuarantineWebhook(ctx context.Context, provider string, payload []byte, reason string) error
}

// ProviderRegistry отдаёт платёжный адаптер по имени провайдера.
type ProviderRegistry interface {
	Get(name string) (providers.Provider, error)
}

// ----- Promo -----

type PromoService interface {
	CreatePromoCode(ctx context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error)
	GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	UpdatePromoCode(ctx context.Context, code string, req *models.UpdatePromoCodeRequest) (*models.PromoCode, error)
	DeletePromoCode(ctx context.Context, code string) error
	ListPromoCodes(ctx context.Context, limit, offset int) ([]*models.PromoCode, error)
}

// ----- Gift cards -----

type GiftCardService interface {
	CreateGiftCard(ctx context.Context, req *models.CreateGiftCardRequest) (*models.GiftCard, error)
	GetGiftCard(ctx context.Context, code string) (*models.GiftCard, error)
	ActivateGiftCard(ctx context.Context, code string) (*models.GiftCard, error)
}

// ----- Analytics -----

type AnalyticsProvider interface {
	GetKPIs(ctx context.Context, filter *models.AnalyticsFilter) (*models.KPIMetrics, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
