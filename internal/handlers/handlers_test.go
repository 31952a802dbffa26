package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

// ----- Stubs -----

type stubBookingService struct {
	booking   *models.Booking
	breakdown *models.PriceBreakdown
	bookings  []*models.Booking
	err       error

	lastReference string
	lastReason    string
	lastAction    string
	lastUserID    uuid.UUID
	lastLimit     int
	lastOffset    int
}

func (s *stubBookingService) Quote(_ context.Context, userID uuid.UUID, _ *models.CreateBookingRequest) (*models.PriceBreakdown, error) {
	s.lastAction = "quote"
	s.lastUserID = userID
	return s.breakdown, s.err
}

func (s *stubBookingService) Reserve(_ context.Context, userID uuid.UUID, _ *models.CreateBookingRequest) (*models.Booking, *models.PriceBreakdown, error) {
	s.lastAction = "reserve"
	s.lastUserID = userID
	return s.booking, s.breakdown, s.err
}

func (s *stubBookingService) GetBooking(_ context.Context, reference string) (*models.Booking, error) {
	s.lastAction = "get"
	s.lastReference = reference
	return s.booking, s.err
}

func (s *stubBookingService) ListBookings(_ context.Context, status *models.BookingStatus, userID *uuid.UUID, limit, offset int) ([]*models.Booking, error) {
	s.lastAction = "list"
	s.lastLimit = limit
	s.lastOffset = offset
	return s.bookings, s.err
}

func (s *stubBookingService) Confirm(_ context.Context, reference string) (*models.Booking, error) {
	s.lastAction = "confirm"
	s.lastReference = reference
	return s.booking, s.err
}

func (s *stubBookingService) Cancel(_ context.Context, reference, reason string) (*models.Booking, error) {
	s.lastAction = "cancel"
	s.lastReference = reference
	s.lastReason = reason
	return s.booking, s.err
}

func (s *stubBookingService) Complete(_ context.Context, reference string) (*models.Booking, error) {
	s.lastAction = "complete"
	s.lastReference = reference
	return s.booking, s.err
}

type stubPaymentService struct {
	intent *models.PaymentIntent
	err    error
}

func (s *stubPaymentService) CreateIntent(_ context.Context, _ *models.CreateIntentRequest) (*models.PaymentIntent, error) {
	return s.intent, s.err
}

func (s *stubPaymentService) GetIntent(_ context.Context, _ uuid.UUID) (*models.PaymentIntent, error) {
	return s.intent, s.err
}

type stubSettlementRecorder struct {
	recorded bool
	err      error
	event    *models.SettlementEvent

	quarantineErr      error
	quarantinedPayload []byte
	quarantineReason   string
}

func (s *stubSettlementRecorder) RecordSettlement(_ context.Context, event *models.SettlementEvent) (bool, error) {
	s.event = event
	return s.recorded, s.err
}

func (s *stubSettlementRecorder) QuarantineWebhook(_ context.Context, _ string, payload []byte, reason string) error {
	if s.quarantineErr != nil {
		return s.quarantineErr
	}
	s.quarantinedPayload = payload
	s.quarantineReason = reason
	return nil
}

type stubPromoService struct {
	promo  *models.PromoCode
	promos []*models.PromoCode
	err    error

	lastCode string
}

func (s *stubPromoService) CreatePromoCode(_ context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error) {
	s.lastCode = req.Code
	return s.promo, s.err
}

func (s *stubPromoService) GetPromoCode(_ context.Context, code string) (*models.PromoCode, error) {
	s.lastCode = code
	return s.promo, s.err
}

func (s *stubPromoService) UpdatePromoCode(_ context.Context, code string, _ *models.UpdatePromoCodeRequest) (*models.PromoCode, error) {
	s.lastCode = code
	return s.promo, s.err
}

func (s *stubPromoService) DeletePromoCode(_ context.Context, code string) error {
	s.lastCode = code
	return s.err
}

func (s *stubPromoService) ListPromoCodes(_ context.Context, limit, offset int) ([]*models.PromoCode, error) {
	return s.promos, s.err
}

type stubGiftCardService struct {
	card *models.GiftCard
	err  error

	lastCode   string
	lastAction string
}

func (s *stubGiftCardService) CreateGiftCard(_ context.Context, _ *models.CreateGiftCardRequest) (*models.GiftCard, error) {
	s.lastAction = "create"
	return s.card, s.err
}

func (s *stubGiftCardService) GetGiftCard(_ context.Context, code string) (*models.GiftCard, error) {
	s.lastAction = "get"
	s.lastCode = code
	return s.card, s.err
}

func (s *stubGiftCardService) ActivateGiftCard(_ context.Context, code string) (*models.GiftCard, error) {
	s.lastAction = "activate"
	s.lastCode = code
	return s.card, s.err
}

type stubAnalyticsProvider struct {
	metrics *models.KPIMetrics
	err     error
	filter  *models.AnalyticsFilter
}

func (s *stubAnalyticsProvider) GetKPIs(_ context.Context, filter *models.AnalyticsFilter) (*models.KPIMetrics, error) {
	s.filter = filter
	return s.metrics, s.err
}

type stubDBHealth struct{ err error }

func (s *stubDBHealth) Health() error { return s.err }

type stubRedisHealth struct{ err error }

func (s *stubRedisHealth) Health(_ context.Context) error { return s.err }
