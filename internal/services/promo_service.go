package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PromoService управляет промокодами и расчётом промо-скидок.
type PromoService struct {
	db  *database.DB
	log *logger.Logger
}

// NewPromoService создаёт сервис промокодов.
func NewPromoService(db *database.DB, log *logger.Logger) *PromoService {
	return &PromoService{
		db:  db,
		log: log,
	}
}

// CreatePromoCode создаёт новый промокод.
func (s *PromoService) CreatePromoCode(ctx context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error) {
	if err := validatePromoCodePayload(req.Kind, req.Value); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	appliesTo := req.AppliesTo
	if appliesTo == "" {
		appliesTo = models.ScopeAll
	}

	promo := &models.PromoCode{
		Code:           req.Code,
		Kind:           req.Kind,
		Value:          req.Value,
		AppliesTo:      appliesTo,
		UsageLimit:     req.UsageLimit,
		PerUserLimit:   req.PerUserLimit,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		MinOrderAmount: req.MinOrderAmount,
		IsActive:       req.IsActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	query := `
		INSERT INTO promo_codes (code, kind, value, applies_to, usage_limit, per_user_limit, used_count, valid_from, valid_until, min_order_amount, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		promo.Code, promo.Kind, promo.Value, promo.AppliesTo, promo.UsageLimit, promo.PerUserLimit,
		promo.ValidFrom, promo.ValidUntil, promo.MinOrderAmount, promo.IsActive, promo.CreatedAt, promo.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperror.Conflict("promo code already exists", err)
		}
		return nil, fmt.Errorf("failed to create promo code: %w", err)
	}

	s.log.WithField("promo_code", promo.Code).Info("Promo code created")
	return promo, nil
}

// UpdatePromoCode обновляет параметры промокода.
func (s *PromoService) UpdatePromoCode(ctx context.Context, code string, req *models.UpdatePromoCodeRequest) (*models.PromoCode, error) {
	if err := validatePromoCodePayload(req.Kind, req.Value); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	query := `
		UPDATE promo_codes
		SET kind = $1, value = $2, applies_to = $3, usage_limit = $4, per_user_limit = $5, valid_from = $6, valid_until = $7, min_order_amount = $8, is_active = $9, updated_at = $10
		WHERE code = $11
	`

	result, err := s.db.ExecContext(ctx, query,
		req.Kind, req.Value, req.AppliesTo, req.UsageLimit, req.PerUserLimit,
		req.ValidFrom, req.ValidUntil, req.MinOrderAmount, req.IsActive, time.Now(), code)
	if err != nil {
		return nil, fmt.Errorf("failed to update promo code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("promo code not found", nil)
	}

	return s.GetPromoCode(ctx, code)
}

// DeletePromoCode удаляет промокод.
func (s *PromoService) DeletePromoCode(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM promo_codes WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("promo code not found", nil)
	}
	return nil
}

// GetPromoCode возвращает промокод по коду.
func (s *PromoService) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	query := `
		SELECT code, kind, value, applies_to, usage_limit, per_user_limit, used_count, valid_from, valid_until, min_order_amount, is_active, created_at, updated_at
		FROM promo_codes
		WHERE code = $1
	`

	promo := &models.PromoCode{}
	if err := s.db.QueryRowContext(ctx, query, code).Scan(
		&promo.Code, &promo.Kind, &promo.Value, &promo.AppliesTo, &promo.UsageLimit, &promo.PerUserLimit,
		&promo.UsedCount, &promo.ValidFrom, &promo.ValidUntil, &promo.MinOrderAmount, &promo.IsActive,
		&promo.CreatedAt, &promo.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("promo code not found", err)
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return promo, nil
}

// ListPromoCodes возвращает список промокодов.
func (s *PromoService) ListPromoCodes(ctx context.Context, limit, offset int) ([]*models.PromoCode, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT code, kind, value, applies_to, usage_limit, per_user_limit, used_count, valid_from, valid_until, min_order_amount, is_active, created_at, updated_at
		FROM promo_codes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer rows.Close()

	var promos []*models.PromoCode
	for rows.Next() {
		p := &models.PromoCode{}
		if err := rows.Scan(&p.Code, &p.Kind, &p.Value, &p.AppliesTo, &p.UsageLimit, &p.PerUserLimit,
			&p.UsedCount, &p.ValidFrom, &p.ValidUntil, &p.MinOrderAmount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan promo code: %w", err)
		}
		promos = append(promos, p)
	}

	return promos, nil
}

// QuotePromo рассчитывает промо-скидку без резервирования использования.
// Отказ возвращается значением DiscountRejection, а не ошибкой: котировка
// должна уметь собрать цену вместе с причинами отклонённых скидок.
func (s *PromoService) QuotePromo(ctx context.Context, code string, userID uuid.UUID, bookableType models.BookableType, discountableBase float64) (float64, *models.DiscountRejection, error) {
	promo, err := s.GetPromoCode(ctx, code)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return 0, rejectPromo(code, models.RejectionNotFound, "promo code not found"), nil
		}
		return 0, nil, err
	}

	userUses, err := s.countUserRedemptions(ctx, s.db.DB, code, userID)
	if err != nil {
		return 0, nil, err
	}

	if rejection := validatePromoUsage(promo, bookableType, discountableBase, userUses); rejection != nil {
		return 0, rejection, nil
	}

	return calculatePromoDiscount(promo.Kind, promo.Value, discountableBase), nil, nil
}

// CommitPromoWithTx повторно валидирует промокод под блокировкой и
// резервирует использование в рамках транзакции бронирования.
func (s *PromoService) CommitPromoWithTx(ctx context.Context, tx *sql.Tx, code string, userID uuid.UUID, bookingID uuid.UUID, bookableType models.BookableType, discountableBase float64) (float64, error) {
	query := `
		SELECT code, kind, value, applies_to, usage_limit, per_user_limit, used_count, valid_from, valid_until, min_order_amount, is_active
		FROM promo_codes
		WHERE code = $1
		FOR UPDATE
	`

	promo := &models.PromoCode{}
	if err := tx.QueryRowContext(ctx, query, code).Scan(
		&promo.Code, &promo.Kind, &promo.Value, &promo.AppliesTo, &promo.UsageLimit, &promo.PerUserLimit,
		&promo.UsedCount, &promo.ValidFrom, &promo.ValidUntil, &promo.MinOrderAmount, &promo.IsActive,
	); err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("promo code not found", err)
		}
		return 0, fmt.Errorf("failed to lock promo code: %w", err)
	}

	userUses, err := s.countUserRedemptions(ctx, tx, code, userID)
	if err != nil {
		return 0, err
	}

	if rejection := validatePromoUsage(promo, bookableType, discountableBase, userUses); rejection != nil {
		return 0, apperror.Conflict(fmt.Sprintf("promo code rejected: %s", rejection.Code), nil)
	}

	discount := calculatePromoDiscount(promo.Kind, promo.Value, discountableBase)

	updateQuery := `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = $1
		WHERE code = $2
	`
	if _, err := tx.ExecContext(ctx, updateQuery, time.Now(), code); err != nil {
		return 0, fmt.Errorf("failed to update promo usage: %w", err)
	}

	insertQuery := `
		INSERT INTO promo_redemptions (promo_code, user_id, booking_id, discount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, insertQuery, code, userID, bookingID, discount, time.Now()); err != nil {
		return 0, fmt.Errorf("failed to record promo redemption: %w", err)
	}

	return discount, nil
}

// ReleasePromoWithTx откатывает использование промокода (возврат оплаты).
func (s *PromoService) ReleasePromoWithTx(ctx context.Context, tx *sql.Tx, code string, bookingID uuid.UUID) error {
	result, err := tx.ExecContext(ctx, "DELETE FROM promo_redemptions WHERE promo_code = $1 AND booking_id = $2", code, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete promo redemption: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE promo_codes SET used_count = used_count - 1, updated_at = $1 WHERE code = $2 AND used_count > 0", time.Now(), code); err != nil {
		return fmt.Errorf("failed to decrement promo usage: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *PromoService) countUserRedemptions(ctx context.Context, q queryRower, code string, userID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM promo_redemptions WHERE promo_code = $1 AND user_id = $2", code, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count promo redemptions: %w", err)
	}
	return count, nil
}

func validatePromoUsage(promo *models.PromoCode, bookableType models.BookableType, discountableBase float64, userUses int) *models.DiscountRejection {
	now := time.Now()

	if !promo.IsActive {
		return rejectPromo(promo.Code, models.RejectionInactive, "promo code is inactive")
	}
	if promo.ValidFrom != nil && promo.ValidFrom.After(now) {
		return rejectPromo(promo.Code, models.RejectionExpired, "promo code is not yet valid")
	}
	if promo.ValidUntil != nil && promo.ValidUntil.Before(now) {
		return rejectPromo(promo.Code, models.RejectionExpired, "promo code expired")
	}
	if !promo.AppliesTo.Matches(bookableType) {
		return rejectPromo(promo.Code, models.RejectionScopeMismatch, "promo code does not apply to this booking type")
	}
	if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return rejectPromo(promo.Code, models.RejectionUsageLimitReached, "promo code usage limit reached")
	}
	if promo.PerUserLimit > 0 && userUses >= promo.PerUserLimit {
		return rejectPromo(promo.Code, models.RejectionUsageLimitReached, "promo code per-user limit reached")
	}
	if promo.MinOrderAmount > 0 && discountableBase < promo.MinOrderAmount {
		return rejectPromo(promo.Code, models.RejectionBelowMinimum, "order total is below promo minimum")
	}
	return nil
}

func rejectPromo(code string, reason models.RejectionCode, message string) *models.DiscountRejection {
	return &models.DiscountRejection{
		Kind:       models.DiscountKindPromo,
		Identifier: code,
		Code:       reason,
		Message:    message,
	}
}

func calculatePromoDiscount(kind models.PromoKind, value, discountableBase float64) float64 {
	switch kind {
	case models.PromoKindFixed:
		if value < 0 {
			return 0
		}
		if value > discountableBase {
			return round2(discountableBase)
		}
		return round2(value)
	case models.PromoKindPercentage:
		if value <= 0 {
			return 0
		}
		if value > 100 {
			value = 100
		}
		return round2(discountableBase * value / 100.0)
	default:
		return 0
	}
}

func validatePromoCodePayload(kind models.PromoKind, value float64) error {
	switch kind {
	case models.PromoKindFixed:
		if value < 0 {
			return fmt.Errorf("value must be non-negative for fixed promo")
		}
	case models.PromoKindPercentage:
		if value <= 0 || value > 100 {
			return fmt.Errorf("percentage value must be between 0 and 100")
		}
	default:
		return fmt.Errorf("invalid promo kind")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
