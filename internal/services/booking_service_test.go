package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "debug", Format: "json"})
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &database.DB{DB: db}, mock
}

type stubCatalog struct {
	bookable *models.Bookable
	price    float64
	err      error
}

func (c *stubCatalog) GetBookable(ctx context.Context, bookableType models.BookableType, bookableID string) (*models.Bookable, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.bookable, nil
}

func (c *stubCatalog) BasePrice(ctx context.Context, bookableType models.BookableType, bookableID string, durationHours, partySize int) (float64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.price, nil
}

func newBookingTestService(db *database.DB) *BookingService {
	log := newTestLogger()
	pricingCfg := &config.PricingConfig{Currency: "USD", CashbackPercent: 5, CashbackCap: 0.5}
	promo := NewPromoService(db, log)
	gift := NewGiftCardService(db, log)
	cashback := NewCashbackService(db, log, pricingCfg)
	jobs := NewJobService(db, log, &config.JobsConfig{MaxAttempts: 3, BaseDelaySec: 30, LeaseTimeoutSec: 60})
	catalog := &stubCatalog{
		bookable: &models.Bookable{ID: "yacht-1", Type: models.BookableTypeVessel, Scope: models.ScopeVessel, Capacity: 10},
		price:    10000,
	}
	pricing := NewPricingService(db, log, catalog, promo, gift, cashback)
	return NewBookingService(db, log, &config.BookingConfig{HoldTTLHours: 2}, pricing, promo, gift, cashback, jobs, catalog, nil)
}

var bookingTestColumns = []string{
	"id", "reference", "user_id", "bookable_type", "bookable_id", "date", "window_start", "window_end", "party_size",
	"subtotal", "applied_discounts", "total_price", "status", "payment_method", "payment_reference", "cancel_reason",
	"created_at", "updated_at", "paid_at",
}

func bookingRow(id, userID uuid.UUID, reference string, status models.BookingStatus, subtotal, total float64, discountsJSON string, paymentRef *string, paidAt *time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		id, reference, userID, models.BookableTypeVessel, "yacht-1", now, 600, 720, 4,
		subtotal, []byte(discountsJSON), total, status, nil, paymentRef, nil,
		now, now, paidAt,
	)
}

func validBookingRequest() *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		BookableType:  models.BookableTypeVessel,
		BookableID:    "yacht-1",
		Date:          "2026-09-15",
		WindowStart:   600,
		WindowEnd:     720,
		DurationHours: 2,
		PartySize:     4,
	}
}

func pricingRuleColumns() []string {
	return []string{"id", "name", "applies_to", "percent", "priority", "active_from", "active_to", "is_active"}
}

func TestBuildOrderContextValidation(t *testing.T) {
	s := &BookingService{}
	userID := uuid.New()

	tests := []struct {
		name   string
		mutate func(*models.CreateBookingRequest)
	}{
		{"unknown type", func(r *models.CreateBookingRequest) { r.BookableType = "helicopter" }},
		{"empty id", func(r *models.CreateBookingRequest) { r.BookableID = "" }},
		{"bad date", func(r *models.CreateBookingRequest) { r.Date = "15.09.2026" }},
		{"negative window start", func(r *models.CreateBookingRequest) { r.WindowStart = -10 }},
		{"window past midnight", func(r *models.CreateBookingRequest) { r.WindowEnd = 1500 }},
		{"inverted window", func(r *models.CreateBookingRequest) { r.WindowStart = 720; r.WindowEnd = 600 }},
		{"zero duration", func(r *models.CreateBookingRequest) { r.DurationHours = 0 }},
		{"zero party", func(r *models.CreateBookingRequest) { r.PartySize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBookingRequest()
			tt.mutate(req)

			_, err := s.buildOrderContext(userID, req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !apperror.Is(err, apperror.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from    models.BookingStatus
		to      models.BookingStatus
		allowed bool
	}{
		{models.BookingStatusPending, models.BookingStatusConfirmed, true},
		{models.BookingStatusPending, models.BookingStatusPaid, true},
		{models.BookingStatusPending, models.BookingStatusCancelled, true},
		{models.BookingStatusPending, models.BookingStatusExpired, true},
		{models.BookingStatusPending, models.BookingStatusCompleted, false},
		{models.BookingStatusConfirmed, models.BookingStatusPaid, true},
		{models.BookingStatusConfirmed, models.BookingStatusExpired, false},
		{models.BookingStatusPaid, models.BookingStatusCompleted, true},
		{models.BookingStatusPaid, models.BookingStatusRefunded, true},
		{models.BookingStatusPaid, models.BookingStatusCancelled, true},
		{models.BookingStatusCompleted, models.BookingStatusCancelled, false},
		{models.BookingStatusCancelled, models.BookingStatusPaid, false},
		{models.BookingStatusExpired, models.BookingStatusConfirmed, false},
		{models.BookingStatusRefunded, models.BookingStatusPaid, false},
	}

	for _, tt := range tests {
		if got := isValidBookingStatusTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("transition %s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestGenerateBookingReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := generateBookingReference()
		if len(ref) != 15 || ref[:3] != "BK-" {
			t.Fatalf("unexpected reference format: %s", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = true
	}
}

func TestReserveConflictOnOverlap(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectQuery("SELECT id, name, applies_to, percent").
		WillReturnRows(sqlmock.NewRows(pricingRuleColumns()))

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, _, err := s.Reserve(context.Background(), uuid.New(), validBookingRequest())
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReserveSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectQuery("SELECT id, name, applies_to, percent").
		WillReturnRows(sqlmock.NewRows(pricingRuleColumns()))

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, breakdown, err := s.Reserve(context.Background(), uuid.New(), validBookingRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != models.BookingStatusPending {
		t.Errorf("expected pending status, got %s", booking.Status)
	}
	if breakdown.Total != 10000 {
		t.Errorf("expected total 10000, got %.2f", breakdown.Total)
	}
	if booking.Reference == "" {
		t.Error("expected non-empty reference")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReservePartySizeExceedsCapacity(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	req := validBookingRequest()
	req.PartySize = 25

	_, _, err := s.Reserve(context.Background(), uuid.New(), req)
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkPaidCommitsAllDiscounts(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	bookingID := uuid.New()
	userID := uuid.New()
	discounts := `[{"kind":"promo","identifier":"SUMMER10","amount":1000},{"kind":"gift_card","identifier":"GC-TEST","amount":500},{"kind":"cashback","amount":2000}]`

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(bookingID, userID, "BK-TEST12345678", models.BookingStatusPending, 10000, 6500, discounts, nil, nil))

	// Промокод: лочим, считаем использования, резервируем.
	mock.ExpectQuery("SELECT code, kind, value").
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "kind", "value", "applies_to", "usage_limit", "per_user_limit",
			"used_count", "valid_from", "valid_until", "min_order_amount", "is_active",
		}).AddRow("SUMMER10", models.PromoKindFixed, 1000.0, models.ScopeAll, 0, 0, 0, nil, nil, 0.0, true))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE promo_codes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO promo_redemptions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Подарочная карта: лочим и атомарно списываем.
	mock.ExpectQuery("SELECT code, original_amount").
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "original_amount", "remaining_balance", "status", "applies_to", "valid_until", "created_at", "updated_at",
		}).AddRow("GC-TEST", 500.0, 500.0, models.GiftCardStatusActive, models.ScopeAll, nil, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE gift_cards").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Кешбэк: списание под advisory-блокировкой.
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(2500.0))
	mock.ExpectExec("INSERT INTO cashback_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Начисление кешбэка за оплаченный заказ (5% от 6500).
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(500.0))
	mock.ExpectExec("INSERT INTO cashback_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Нотификация, счёт, аналитика встают в очередь той же транзакцией.
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := s.MarkPaid(context.Background(), "BK-TEST12345678", "card", "pay_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != models.BookingStatusPaid {
		t.Errorf("expected paid status, got %s", booking.Status)
	}
	if booking.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}
	if booking.PaymentReference == nil || *booking.PaymentReference != "pay_123" {
		t.Error("expected payment reference to be recorded")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkPaidIdempotentOnSamePayment(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	paidAt := time.Now()
	payRef := "pay_123"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusPaid, 10000, 6500, "[]", &payRef, &paidAt))
	mock.ExpectRollback()

	booking, err := s.MarkPaid(context.Background(), "BK-TEST12345678", "card", "pay_123")
	if err != nil {
		t.Fatalf("expected idempotent no-op, got %v", err)
	}
	if booking.Status != models.BookingStatusPaid {
		t.Errorf("expected paid status, got %s", booking.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkPaidConflictOnDifferentPayment(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	paidAt := time.Now()
	payRef := "pay_123"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusPaid, 10000, 6500, "[]", &payRef, &paidAt))
	mock.ExpectRollback()

	_, err := s.MarkPaid(context.Background(), "BK-TEST12345678", "card", "pay_456")
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelPaidEnqueuesRefund(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	paidAt := time.Now()
	payRef := "pay_123"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusPaid, 10000, 6500, "[]", &payRef, &paidAt))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := s.Cancel(context.Background(), "BK-TEST12345678", "weather")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("expected cancelled status, got %s", booking.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelPendingSkipsRefundJob(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusPending, 10000, 10000, "[]", nil, nil))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := s.Cancel(context.Background(), "BK-TEST12345678", "changed plans"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelAlreadyCancelledIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusCancelled, 10000, 6500, "[]", nil, nil))
	mock.ExpectRollback()

	booking, err := s.Cancel(context.Background(), "BK-TEST12345678", "again")
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("expected cancelled status, got %s", booking.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReverseSettlementAlreadyReversedIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	paidAt := time.Now()
	payRef := "pay_123"
	reversedAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusCancelled, 10000, 6500, "[]", &payRef, &paidAt))
	mock.ExpectQuery("SELECT reversed_at").
		WillReturnRows(sqlmock.NewRows([]string{"reversed_at"}).AddRow(reversedAt))
	mock.ExpectRollback()

	if err := s.ReverseSettlement(context.Background(), "BK-TEST12345678"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReverseSettlementUnpaidIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusCancelled, 10000, 10000, "[]", nil, nil))
	mock.ExpectRollback()

	if err := s.ReverseSettlement(context.Background(), "BK-TEST12345678"); err != nil {
		t.Fatalf("expected no-op for unpaid booking, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReverseSettlementRestoresLedgers(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	bookingID := uuid.New()
	userID := uuid.New()
	paidAt := time.Now()
	payRef := "pay_123"
	discounts := `[{"kind":"promo","identifier":"SUMMER10","amount":1000},{"kind":"gift_card","identifier":"GC-TEST","amount":500}]`

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(bookingID, userID, "BK-TEST12345678", models.BookingStatusRefunded, 10000, 6500, discounts, &payRef, &paidAt))
	mock.ExpectQuery("SELECT reversed_at").
		WillReturnRows(sqlmock.NewRows([]string{"reversed_at"}).AddRow(nil))

	// Промокод: удаляем погашение, возвращаем счётчик.
	mock.ExpectExec("DELETE FROM promo_redemptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE promo_codes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Подарочная карта: возвращаем списанную сумму.
	mock.ExpectExec("UPDATE gift_cards").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Кешбэк: компенсация по сумме записей бронирования.
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(325.0))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(825.0))
	mock.ExpectExec("INSERT INTO cashback_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.ReverseSettlement(context.Background(), "BK-TEST12345678"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectQuery("SELECT id, reference").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetBooking(context.Background(), "BK-MISSING")
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestConfirmInvalidStatus(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, reference").
		WillReturnRows(bookingRow(uuid.New(), uuid.New(), "BK-TEST12345678", models.BookingStatusExpired, 10000, 10000, "[]", nil, nil))
	mock.ExpectRollback()

	_, err := s.Confirm(context.Background(), "BK-TEST12345678")
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExpireAbandoned(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	mock.ExpectQuery("UPDATE bookings").
		WillReturnRows(sqlmock.NewRows([]string{"reference"}).AddRow("BK-AAA111222333").AddRow("BK-BBB444555666"))

	refs, err := s.ExpireAbandoned(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 expired references, got %d", len(refs))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListBookingsFilters(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := newBookingTestService(db)

	status := models.BookingStatusPaid
	userID := uuid.New()

	mock.ExpectQuery("SELECT id, reference").
		WithArgs(status, userID, 10).
		WillReturnRows(bookingRow(uuid.New(), userID, "BK-TEST12345678", status, 10000, 6500, "[]", nil, nil))

	bookings, err := s.ListBookings(context.Background(), &status, &userID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
	if bookings[0].Status != status {
		t.Errorf("expected status %s, got %s", status, bookings[0].Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
