package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func promoTestColumns() []string {
	return []string{
		"code", "kind", "value", "applies_to", "usage_limit", "per_user_limit",
		"used_count", "valid_from", "valid_until", "min_order_amount", "is_active",
		"created_at", "updated_at",
	}
}

func activePromo(code string, kind models.PromoKind, value float64) *models.PromoCode {
	return &models.PromoCode{
		Code:      code,
		Kind:      kind,
		Value:     value,
		AppliesTo: models.ScopeAll,
		IsActive:  true,
	}
}

func TestCreatePromoCodeValidation(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	tests := []struct {
		name string
		req  *models.CreatePromoCodeRequest
	}{
		{"percentage over 100", &models.CreatePromoCodeRequest{Code: "P", Kind: models.PromoKindPercentage, Value: 150}},
		{"percentage zero", &models.CreatePromoCodeRequest{Code: "P", Kind: models.PromoKindPercentage, Value: 0}},
		{"negative fixed", &models.CreatePromoCodeRequest{Code: "P", Kind: models.PromoKindFixed, Value: -10}},
		{"unknown kind", &models.CreatePromoCodeRequest{Code: "P", Kind: "lottery", Value: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreatePromoCode(context.Background(), tt.req)
			if !apperror.Is(err, apperror.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreatePromoCodeDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectExec("INSERT INTO promo_codes").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.CreatePromoCode(context.Background(), &models.CreatePromoCodeRequest{
		Code: "SUMMER10", Kind: models.PromoKindFixed, Value: 1000, IsActive: true,
	})
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetPromoCodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectQuery("SELECT code, kind, value").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetPromoCode(context.Background(), "MISSING")
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUpdatePromoCodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectExec("UPDATE promo_codes").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdatePromoCode(context.Background(), "MISSING", &models.UpdatePromoCodeRequest{
		Kind: models.PromoKindFixed, Value: 500,
	})
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDeletePromoCodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectExec("DELETE FROM promo_codes").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeletePromoCode(context.Background(), "MISSING"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestValidatePromoUsage(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		mutate   func(*models.PromoCode)
		base     float64
		userUses int
		want     models.RejectionCode
	}{
		{"inactive", func(p *models.PromoCode) { p.IsActive = false }, 1000, 0, models.RejectionInactive},
		{"not yet valid", func(p *models.PromoCode) { p.ValidFrom = &future }, 1000, 0, models.RejectionExpired},
		{"expired", func(p *models.PromoCode) { p.ValidUntil = &past }, 1000, 0, models.RejectionExpired},
		{"scope mismatch", func(p *models.PromoCode) { p.AppliesTo = models.ScopeTour }, 1000, 0, models.RejectionScopeMismatch},
		{"usage limit", func(p *models.PromoCode) { p.UsageLimit = 5; p.UsedCount = 5 }, 1000, 0, models.RejectionUsageLimitReached},
		{"per-user limit", func(p *models.PromoCode) { p.PerUserLimit = 1 }, 1000, 1, models.RejectionUsageLimitReached},
		{"below minimum", func(p *models.PromoCode) { p.MinOrderAmount = 5000 }, 1000, 0, models.RejectionBelowMinimum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := activePromo("TEST", models.PromoKindFixed, 100)
			tt.mutate(promo)

			rejection := validatePromoUsage(promo, models.BookableTypeVessel, tt.base, tt.userUses)
			if rejection == nil {
				t.Fatal("expected rejection, got nil")
			}
			if rejection.Code != tt.want {
				t.Errorf("expected rejection %s, got %s", tt.want, rejection.Code)
			}
		})
	}

	if rejection := validatePromoUsage(activePromo("TEST", models.PromoKindFixed, 100), models.BookableTypeVessel, 1000, 0); rejection != nil {
		t.Errorf("expected no rejection for valid promo, got %s", rejection.Code)
	}
}

func TestCalculatePromoDiscount(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.PromoKind
		value float64
		base  float64
		want  float64
	}{
		{"fixed within base", models.PromoKindFixed, 1000, 5000, 1000},
		{"fixed clamped to base", models.PromoKindFixed, 8000, 5000, 5000},
		{"fixed negative", models.PromoKindFixed, -100, 5000, 0},
		{"percentage", models.PromoKindPercentage, 10, 5000, 500},
		{"percentage clamped to 100", models.PromoKindPercentage, 150, 5000, 5000},
		{"percentage zero", models.PromoKindPercentage, 0, 5000, 0},
		{"percentage rounds to cents", models.PromoKindPercentage, 33, 99.99, 33},
		{"unknown kind", "lottery", 50, 5000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculatePromoDiscount(tt.kind, tt.value, tt.base); got != tt.want {
				t.Errorf("calculatePromoDiscount(%s, %.2f, %.2f) = %.2f, want %.2f", tt.kind, tt.value, tt.base, got, tt.want)
			}
		})
	}
}

func TestQuotePromoNotFoundIsRejection(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectQuery("SELECT code, kind, value").
		WillReturnError(sql.ErrNoRows)

	discount, rejection, err := s.QuotePromo(context.Background(), "MISSING", uuid.New(), models.BookableTypeVessel, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 0 {
		t.Errorf("expected zero discount, got %.2f", discount)
	}
	if rejection == nil || rejection.Code != models.RejectionNotFound {
		t.Fatalf("expected NOT_FOUND rejection, got %+v", rejection)
	}
}

func TestQuotePromoInactiveIsRejection(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectQuery("SELECT code, kind, value").
		WillReturnRows(sqlmock.NewRows(promoTestColumns()).
			AddRow("OLD", models.PromoKindFixed, 1000.0, models.ScopeAll, 0, 0, 0, nil, nil, 0.0, false, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, rejection, err := s.QuotePromo(context.Background(), "OLD", uuid.New(), models.BookableTypeVessel, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection == nil || rejection.Code != models.RejectionInactive {
		t.Fatalf("expected INACTIVE rejection, got %+v", rejection)
	}
}

func TestQuotePromoAppliesDiscount(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectQuery("SELECT code, kind, value").
		WillReturnRows(sqlmock.NewRows(promoTestColumns()).
			AddRow("TEN", models.PromoKindPercentage, 10.0, models.ScopeAll, 0, 0, 0, nil, nil, 0.0, true, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	discount, rejection, err := s.QuotePromo(context.Background(), "TEN", uuid.New(), models.BookableTypeVessel, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %+v", rejection)
	}
	if discount != 500 {
		t.Errorf("expected discount 500, got %.2f", discount)
	}
}

func TestCommitPromoWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectBegin()
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
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	discount, err := s.CommitPromoWithTx(context.Background(), tx, "SUMMER10", uuid.New(), uuid.New(), models.BookableTypeVessel, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 1000 {
		t.Errorf("expected discount 1000, got %.2f", discount)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCommitPromoWithTxRejectedIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT code, kind, value").
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "kind", "value", "applies_to", "usage_limit", "per_user_limit",
			"used_count", "valid_from", "valid_until", "min_order_amount", "is_active",
		}).AddRow("LIMITED", models.PromoKindFixed, 1000.0, models.ScopeAll, 5, 0, 5, nil, nil, 0.0, true))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = s.CommitPromoWithTx(context.Background(), tx, "LIMITED", uuid.New(), uuid.New(), models.BookableTypeVessel, 10000)
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestReleasePromoWithTxNoRedemptionIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM promo_redemptions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.ReleasePromoWithTx(context.Background(), tx, "SUMMER10", uuid.New()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestReleasePromoWithTxDecrementsUsage(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM promo_redemptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE promo_codes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	if err := s.ReleasePromoWithTx(context.Background(), tx, "SUMMER10", uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListPromoCodesDefaultLimit(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	s := NewPromoService(db, newTestLogger())

	mock.ExpectQuery("SELECT code, kind, value").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(promoTestColumns()).
			AddRow("A", models.PromoKindFixed, 100.0, models.ScopeAll, 0, 0, 0, nil, nil, 0.0, true, time.Now(), time.Now()))

	promos, err := s.ListPromoCodes(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promos) != 1 {
		t.Fatalf("expected 1 promo code, got %d", len(promos))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
