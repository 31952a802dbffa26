package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// GiftCardService управляет подарочными картами и их погашением.
type GiftCardService struct {
	db  *database.DB
	log *logger.Logger
}

// NewGiftCardService создаёт сервис подарочных карт.
func NewGiftCardService(db *database.DB, log *logger.Logger) *GiftCardService {
	return &GiftCardService{
		db:  db,
		log: log,
	}
}

// CreateGiftCard выпускает карту в статусе pending.
// Активной карта становится после оплаты покупки (Activate).
func (s *GiftCardService) CreateGiftCard(ctx context.Context, req *models.CreateGiftCardRequest) (*models.GiftCard, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("gift card amount must be positive", nil)
	}

	appliesTo := req.AppliesTo
	if appliesTo == "" {
		appliesTo = models.ScopeAll
	}

	card := &models.GiftCard{
		Code:             generateGiftCardCode(),
		OriginalAmount:   round2(req.Amount),
		RemainingBalance: round2(req.Amount),
		Status:           models.GiftCardStatusPending,
		AppliesTo:        appliesTo,
		ValidUntil:       req.ValidUntil,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	query := `
		INSERT INTO gift_cards (code, original_amount, remaining_balance, status, applies_to, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		card.Code, card.OriginalAmount, card.RemainingBalance, card.Status, card.AppliesTo, card.ValidUntil, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperror.Conflict("gift card code collision", err)
		}
		return nil, fmt.Errorf("failed to create gift card: %w", err)
	}

	s.log.WithField("gift_card", card.Code).Info("Gift card created")
	return card, nil
}

// ActivateGiftCard переводит карту из pending в active.
func (s *GiftCardService) ActivateGiftCard(ctx context.Context, code string) (*models.GiftCard, error) {
	query := `
		UPDATE gift_cards
		SET status = $1, updated_at = $2
		WHERE code = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, models.GiftCardStatusActive, time.Now(), code, models.GiftCardStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to activate gift card: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		card, getErr := s.GetGiftCard(ctx, code)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperror.Conflict(fmt.Sprintf("gift card is %s, cannot activate", card.Status), nil)
	}

	s.log.WithField("gift_card", code).Info("Gift card activated")
	return s.GetGiftCard(ctx, code)
}

// GetGiftCard возвращает карту по коду.
func (s *GiftCardService) GetGiftCard(ctx context.Context, code string) (*models.GiftCard, error) {
	query := `
		SELECT code, original_amount, remaining_balance, status, applies_to, valid_until, created_at, updated_at
		FROM gift_cards
		WHERE code = $1
	`

	card := &models.GiftCard{}
	if err := s.db.QueryRowContext(ctx, query, code).Scan(
		&card.Code, &card.OriginalAmount, &card.RemainingBalance, &card.Status,
		&card.AppliesTo, &card.ValidUntil, &card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("gift card not found", err)
		}
		return nil, fmt.Errorf("failed to get gift card: %w", err)
	}
	return card, nil
}

// QuoteGiftCard рассчитывает, сколько карта может покрыть от remainingDue,
// без изменения баланса. Отказ возвращается значением.
func (s *GiftCardService) QuoteGiftCard(ctx context.Context, code string, bookableType models.BookableType, remainingDue float64) (float64, *models.DiscountRejection, error) {
	card, err := s.GetGiftCard(ctx, code)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return 0, rejectGiftCard(code, models.RejectionNotFound, "gift card not found"), nil
		}
		return 0, nil, err
	}

	if rejection := validateGiftCard(card, bookableType); rejection != nil {
		return 0, rejection, nil
	}

	return round2(minFloat(card.RemainingBalance, remainingDue)), nil, nil
}

// RedeemWithTx атомарно списывает amount с баланса карты в рамках транзакции.
// Условие remaining_balance >= amount входит в сам UPDATE: параллельное
// погашение одной карты не может увести баланс в минус.
func (s *GiftCardService) RedeemWithTx(ctx context.Context, tx *sql.Tx, code string, bookableType models.BookableType, amount float64) error {
	query := `
		SELECT code, original_amount, remaining_balance, status, applies_to, valid_until, created_at, updated_at
		FROM gift_cards
		WHERE code = $1
		FOR UPDATE
	`

	card := &models.GiftCard{}
	if err := tx.QueryRowContext(ctx, query, code).Scan(
		&card.Code, &card.OriginalAmount, &card.RemainingBalance, &card.Status,
		&card.AppliesTo, &card.ValidUntil, &card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("gift card not found", err)
		}
		return fmt.Errorf("failed to lock gift card: %w", err)
	}

	if rejection := validateGiftCard(card, bookableType); rejection != nil {
		return apperror.Conflict(fmt.Sprintf("gift card rejected: %s", rejection.Code), nil)
	}

	updateQuery := `
		UPDATE gift_cards
		SET remaining_balance = remaining_balance - $1,
		    status = CASE WHEN remaining_balance - $1 <= 0 THEN $2 ELSE status END,
		    updated_at = $3
		WHERE code = $4 AND remaining_balance >= $1
	`

	result, err := tx.ExecContext(ctx, updateQuery, amount, models.GiftCardStatusUsed, time.Now(), code)
	if err != nil {
		return fmt.Errorf("failed to redeem gift card: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.Conflict("gift card balance is insufficient", nil)
	}

	return nil
}

// RestoreWithTx возвращает amount на баланс карты (возврат оплаты).
func (s *GiftCardService) RestoreWithTx(ctx context.Context, tx *sql.Tx, code string, amount float64) error {
	query := `
		UPDATE gift_cards
		SET remaining_balance = remaining_balance + $1,
		    status = CASE WHEN status = $2 THEN $3 ELSE status END,
		    updated_at = $4
		WHERE code = $5
	`

	result, err := tx.ExecContext(ctx, query, amount, models.GiftCardStatusUsed, models.GiftCardStatusActive, time.Now(), code)
	if err != nil {
		return fmt.Errorf("failed to restore gift card balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("gift card not found", nil)
	}
	return nil
}

// ExpireGiftCards помечает просроченные карты. Вызывается фоновым sweep'ом.
func (s *GiftCardService) ExpireGiftCards(ctx context.Context) (int64, error) {
	query := `
		UPDATE gift_cards
		SET status = $1, updated_at = $2
		WHERE status IN ($3, $4) AND valid_until IS NOT NULL AND valid_until < $2
	`

	result, err := s.db.ExecContext(ctx, query, models.GiftCardStatusExpired, time.Now(), models.GiftCardStatusPending, models.GiftCardStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to expire gift cards: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		s.log.WithField("count", rows).Info("Gift cards expired")
	}
	return rows, nil
}

func validateGiftCard(card *models.GiftCard, bookableType models.BookableType) *models.DiscountRejection {
	now := time.Now()

	switch card.Status {
	case models.GiftCardStatusActive:
	case models.GiftCardStatusPending, models.GiftCardStatusCancelled:
		return rejectGiftCard(card.Code, models.RejectionInactive, "gift card is not active")
	case models.GiftCardStatusExpired:
		return rejectGiftCard(card.Code, models.RejectionExpired, "gift card expired")
	case models.GiftCardStatusUsed:
		return rejectGiftCard(card.Code, models.RejectionInsufficientBalance, "gift card is fully used")
	default:
		return rejectGiftCard(card.Code, models.RejectionInactive, "gift card is not active")
	}

	if card.ValidUntil != nil && card.ValidUntil.Before(now) {
		return rejectGiftCard(card.Code, models.RejectionExpired, "gift card expired")
	}
	if !card.AppliesTo.Matches(bookableType) {
		return rejectGiftCard(card.Code, models.RejectionScopeMismatch, "gift card does not apply to this booking type")
	}
	if card.RemainingBalance <= 0 {
		return rejectGiftCard(card.Code, models.RejectionInsufficientBalance, "gift card balance is empty")
	}
	return nil
}

func rejectGiftCard(code string, reason models.RejectionCode, message string) *models.DiscountRejection {
	return &models.DiscountRejection{
		Kind:       models.DiscountKindGiftCard,
		Identifier: code,
		Code:       reason,
		Message:    message,
	}
}

// generateGiftCardCode генерирует неугадываемый код карты.
func generateGiftCardCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "GC-" + raw[:16]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
