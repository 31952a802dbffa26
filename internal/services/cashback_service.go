package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

// CashbackService ведёт append-only леджер кешбэка.
// Баланс пользователя всегда равен сумме знаковых amount его записей;
// записи не обновляются и не удаляются, только добавляются.
type CashbackService struct {
	db  *database.DB
	log *logger.Logger
	cfg *config.PricingConfig
}

// NewCashbackService создаёт сервис кешбэка.
func NewCashbackService(db *database.DB, log *logger.Logger, cfg *config.PricingConfig) *CashbackService {
	return &CashbackService{
		db:  db,
		log: log,
		cfg: cfg,
	}
}

// Balance возвращает текущий баланс кешбэка пользователя.
func (s *CashbackService) Balance(ctx context.Context, userID uuid.UUID) (float64, error) {
	return s.balance(ctx, s.db.DB, userID)
}

// ListEntries возвращает записи леджера пользователя, новые первыми.
func (s *CashbackService) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CashbackEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, type, amount, balance_after, related_booking_id, created_at
		FROM cashback_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cashback entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CashbackEntry
	for rows.Next() {
		e := &models.CashbackEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.BalanceAfter, &e.RelatedBookingID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cashback entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// QuoteCashback рассчитывает, сколько кешбэка можно применить к заказу.
// Запрошенная сумма прижимается к балансу и к доле CashbackCap от остатка
// к оплате после остальных скидок; запрос сверх баланса не отказ,
// а применение всего доступного. Отказ возвращается значением и случается
// только при пустом балансе.
func (s *CashbackService) QuoteCashback(ctx context.Context, userID uuid.UUID, requested, remainingDue float64) (float64, *models.DiscountRejection, error) {
	if requested <= 0 {
		return 0, nil, nil
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	if balance <= 0 {
		return 0, &models.DiscountRejection{
			Kind:    models.DiscountKindCashback,
			Code:    models.RejectionInsufficientBalance,
			Message: "cashback balance is empty",
		}, nil
	}

	capped := round2(remainingDue * s.cfg.CashbackCap)
	applied := minFloat(requested, minFloat(balance, capped))
	if applied <= 0 {
		return 0, nil, nil
	}
	return round2(applied), nil, nil
}

// UseWithTx списывает amount кешбэка записью типа used в рамках транзакции.
// Сериализация по пользователю идёт через advisory-блокировку: параллельные
// списания одного баланса не могут провести его в минус.
func (s *CashbackService) UseWithTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount float64, bookingID uuid.UUID) error {
	if amount <= 0 {
		return apperror.Validation("cashback amount must be positive", nil)
	}

	if err := s.lockUserLedger(ctx, tx, userID); err != nil {
		return err
	}

	balance, err := s.balance(ctx, tx, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return apperror.Conflict("cashback balance is insufficient", nil)
	}

	return s.appendEntry(ctx, tx, &models.CashbackEntry{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             models.CashbackEntryUsed,
		Amount:           -round2(amount),
		BalanceAfter:     round2(balance - amount),
		RelatedBookingID: &bookingID,
		CreatedAt:        time.Now(),
	})
}

// EarnWithTx начисляет кешбэк записью типа earned в рамках транзакции.
func (s *CashbackService) EarnWithTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount float64, bookingID uuid.UUID) error {
	if amount <= 0 {
		return nil
	}

	if err := s.lockUserLedger(ctx, tx, userID); err != nil {
		return err
	}

	balance, err := s.balance(ctx, tx, userID)
	if err != nil {
		return err
	}

	return s.appendEntry(ctx, tx, &models.CashbackEntry{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             models.CashbackEntryEarned,
		Amount:           round2(amount),
		BalanceAfter:     round2(balance + amount),
		RelatedBookingID: &bookingID,
		CreatedAt:        time.Now(),
	})
}

// ReverseWithTx компенсирует ранее применённые записи по бронированию
// (возврат оплаты): used возвращается на баланс, earned списывается.
func (s *CashbackService) ReverseWithTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, bookingID uuid.UUID) error {
	if err := s.lockUserLedger(ctx, tx, userID); err != nil {
		return err
	}

	// Сумма по всем записям бронирования, включая прежние adjusted:
	// после одной компенсации сумма равна нулю и повтор становится no-op.
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM cashback_entries
		WHERE user_id = $1 AND related_booking_id = $2
	`

	var delta float64
	if err := tx.QueryRowContext(ctx, query, userID, bookingID).Scan(&delta); err != nil {
		return fmt.Errorf("failed to sum cashback for booking: %w", err)
	}
	if delta == 0 {
		return nil
	}

	balance, err := s.balance(ctx, tx, userID)
	if err != nil {
		return err
	}
	if balance-delta < 0 {
		return apperror.LedgerIntegrity("cashback reversal would make balance negative", nil)
	}

	return s.appendEntry(ctx, tx, &models.CashbackEntry{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             models.CashbackEntryAdjusted,
		Amount:           round2(-delta),
		BalanceAfter:     round2(balance - delta),
		RelatedBookingID: &bookingID,
		CreatedAt:        time.Now(),
	})
}

// CashbackFor возвращает сумму начисления за оплаченный заказ.
func (s *CashbackService) CashbackFor(total float64) float64 {
	if total <= 0 || s.cfg.CashbackPercent <= 0 {
		return 0
	}
	return round2(total * s.cfg.CashbackPercent / 100.0)
}

func (s *CashbackService) balance(ctx context.Context, q queryRower, userID uuid.UUID) (float64, error) {
	var balance float64
	err := q.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount), 0) FROM cashback_entries WHERE user_id = $1", userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to get cashback balance: %w", err)
	}
	if balance < -0.005 {
		return 0, apperror.LedgerIntegrity("cashback ledger sum is negative", nil)
	}
	return round2(balance), nil
}

func (s *CashbackService) lockUserLedger(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "cashback:"+userID.String()); err != nil {
		return fmt.Errorf("failed to lock cashback ledger: %w", err)
	}
	return nil
}

func (s *CashbackService) appendEntry(ctx context.Context, tx *sql.Tx, entry *models.CashbackEntry) error {
	query := `
		INSERT INTO cashback_entries (id, user_id, type, amount, balance_after, related_booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Type, entry.Amount, entry.BalanceAfter, entry.RelatedBookingID, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to append cashback entry: %w", err)
	}
	return nil
}
