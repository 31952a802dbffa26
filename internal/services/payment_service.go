package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/kafka"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/providers"

	"github.com/google/uuid"
)

// PaymentService управляет платёжными намерениями и применением
// провайдерских settlement-событий.
type PaymentService struct {
	db       *database.DB
	log      *logger.Logger
	registry *providers.Registry
	bookings *BookingService
	jobs     *JobService
	producer *kafka.Producer
	currency string
	timeout  time.Duration
}

// NewPaymentService создаёт платёжный сервис.
func NewPaymentService(db *database.DB, log *logger.Logger, registry *providers.Registry,
	bookings *BookingService, jobs *JobService, producer *kafka.Producer,
	pricing *config.PricingConfig, provCfg *config.ProvidersConfig) *PaymentService {
	timeout := time.Duration(provCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PaymentService{
		db:       db,
		log:      log,
		registry: registry,
		bookings: bookings,
		jobs:     jobs,
		producer: producer,
		currency: pricing.Currency,
		timeout:  timeout,
	}
}

// CreateIntent создаёт платёжное намерение для бронирования.
// Вызов провайдера ограничен коротким таймаутом: по таймауту intent
// не создаётся, бронирование остаётся в pending и оплату можно повторить.
func (s *PaymentService) CreateIntent(ctx context.Context, req *models.CreateIntentRequest) (*models.PaymentIntent, error) {
	if req.BookingReference == "" {
		return nil, apperror.Validation("booking_reference is required", nil)
	}

	provider, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetBooking(ctx, req.BookingReference)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusConfirmed {
		return nil, apperror.Conflict(fmt.Sprintf("cannot pay booking in status %s", booking.Status), nil)
	}

	intent := &models.PaymentIntent{
		ID:               uuid.New(),
		Provider:         provider.Name(),
		BookingReference: booking.Reference,
		Amount:           booking.TotalPrice,
		Currency:         s.currency,
		Status:           models.IntentStatusPending,
		IdempotencyKey:   uuid.New().String(),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	provCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	providerRef, payURL, err := provider.CreateIntent(provCtx, intent)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ProviderTransient("payment provider timed out", err)
		}
		return nil, err
	}
	intent.ProviderReference = providerRef
	intent.PaymentURL = payURL

	query := `
		INSERT INTO payment_intents (id, provider, booking_reference, amount, currency, status, provider_reference, idempotency_key, payment_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := s.db.ExecContext(ctx, query,
		intent.ID, intent.Provider, intent.BookingReference, intent.Amount, intent.Currency,
		intent.Status, intent.ProviderReference, intent.IdempotencyKey, intent.PaymentURL,
		intent.CreatedAt, intent.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"reference": intent.BookingReference,
		"provider":  intent.Provider,
		"amount":    intent.Amount,
	}).Info("Payment intent created")

	return intent, nil
}

// GetIntent возвращает intent по идентификатору.
func (s *PaymentService) GetIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	query := `
		SELECT id, provider, booking_reference, amount, currency, status, provider_reference, idempotency_key, payment_url, created_at, updated_at
		FROM payment_intents
		WHERE id = $1
	`

	intent := &models.PaymentIntent{}
	if err := s.db.QueryRowContext(ctx, query, id).Scan(
		&intent.ID, &intent.Provider, &intent.BookingReference, &intent.Amount, &intent.Currency,
		&intent.Status, &intent.ProviderReference, &intent.IdempotencyKey, &intent.PaymentURL,
		&intent.CreatedAt, &intent.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("payment intent not found", err)
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return intent, nil
}

// RecordSettlement долговечно фиксирует верифицированное событие: ключ
// (provider, provider_reference) в processed_events плюс задача
// settlement.apply в одной транзакции. Повтор того же события ничего
// не меняет и возвращает false. Вебхук можно подтверждать сразу после COMMIT.
func (s *PaymentService) RecordSettlement(ctx context.Context, event *models.SettlementEvent) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertQuery := `
		INSERT INTO processed_events (provider, provider_reference, booking_reference, outcome, amount, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, provider_reference) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, insertQuery,
		event.Provider, event.ProviderReference, event.BookingReference, event.Outcome, event.Amount, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record processed event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.log.WithFields(map[string]interface{}{
			"provider":  event.Provider,
			"reference": event.ProviderReference,
		}).Debug("Duplicate settlement event ignored")
		return false, nil
	}

	if _, err := s.jobs.EnqueueTx(ctx, tx, models.JobTypeSettlement, models.SettlementPayload{Event: *event}, 0); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// QuarantineWebhook откладывает корректно подписанное, но непригодное
// к нормализации событие в dead letter на ручной разбор. Провайдеру
// при этом отвечают успехом, чтобы остановить повторные доставки.
func (s *PaymentService) QuarantineWebhook(ctx context.Context, provider string, payload []byte, reason string) error {
	return s.jobs.Quarantine(ctx, models.JobTypeWebhookReview, models.WebhookReviewPayload{
		Provider: provider,
		Body:     string(payload),
	}, reason)
}

// ApplySettlement применяет зафиксированное событие к intent'у и
// бронированию. Вызывается воркером очереди: транзиентные ошибки уводят
// задачу в backoff-повтор, постоянные в dead letter на ручной разбор.
// Все шаги идемпотентны, повторное применение безопасно.
func (s *PaymentService) ApplySettlement(ctx context.Context, event *models.SettlementEvent) error {
	intent, err := s.findIntentByProviderRef(ctx, event.Provider, event.ProviderReference)
	if err != nil {
		return err
	}
	if intent == nil {
		return apperror.ProviderPermanent(
			fmt.Sprintf("no payment intent matches %s/%s", event.Provider, event.ProviderReference), nil)
	}

	switch event.Outcome {
	case models.SettlementPaid:
		return s.applyPaid(ctx, intent, event)
	case models.SettlementFailed:
		return s.applyFailed(ctx, intent, event)
	case models.SettlementPending:
		return s.updateIntentStatus(ctx, intent.ID, models.IntentStatusProcessing)
	default:
		return apperror.ProviderPermanent("unknown settlement outcome: "+string(event.Outcome), nil)
	}
}

func (s *PaymentService) applyPaid(ctx context.Context, intent *models.PaymentIntent, event *models.SettlementEvent) error {
	claimed, err := s.claimCompleted(ctx, intent)
	if err != nil {
		return err
	}
	if !claimed {
		return apperror.ProviderPermanent("booking already has a completed payment intent", nil)
	}

	if _, err := s.bookings.MarkPaid(ctx, intent.BookingReference, intent.Provider, intent.ProviderReference); err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			// Бронирование не перешло в paid: intent не должен остаться
			// completed, иначе учёт разойдётся с состоянием бронирования.
			if revertErr := s.updateIntentStatus(ctx, intent.ID, models.IntentStatusFailed); revertErr != nil {
				s.log.WithError(revertErr).WithField("intent_id", intent.ID).Error("Failed to revert intent status after booking conflict")
			}
			return apperror.ProviderPermanent("settlement conflicts with booking state", err)
		}
		return err
	}
	return nil
}

// claimCompleted закрепляет за intent'ом единственный completed
// на бронирование. Инвариант: не более одного completed intent'а
// на бронирование. Проверка и смена статуса выполняются в одной
// транзакции под advisory-блокировкой по бронированию, поэтому два
// воркера с разными intent'ами одного бронирования не пройдут оба.
// Повтор для уже completed intent'а возвращает true.
func (s *PaymentService) claimCompleted(ctx context.Context, intent *models.PaymentIntent) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "settlement:"+intent.BookingReference); err != nil {
		return false, fmt.Errorf("failed to lock booking settlements: %w", err)
	}

	var completedOthers int
	countQuery := `
		SELECT COUNT(*) FROM payment_intents
		WHERE booking_reference = $1 AND status = $2 AND id != $3
	`
	if err := tx.QueryRowContext(ctx, countQuery, intent.BookingReference, models.IntentStatusCompleted, intent.ID).Scan(&completedOthers); err != nil {
		return false, fmt.Errorf("failed to count completed intents: %w", err)
	}
	if completedOthers > 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE payment_intents SET status = $1, updated_at = $2 WHERE id = $3",
		models.IntentStatusCompleted, time.Now(), intent.ID); err != nil {
		return false, fmt.Errorf("failed to update intent status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (s *PaymentService) applyFailed(ctx context.Context, intent *models.PaymentIntent, event *models.SettlementEvent) error {
	if err := s.updateIntentStatus(ctx, intent.ID, models.IntentStatusFailed); err != nil {
		return err
	}

	s.log.WithFields(map[string]interface{}{
		"reference": intent.BookingReference,
		"provider":  intent.Provider,
		"reason":    event.Reason,
	}).Warn("Payment failed")

	if s.producer != nil {
		if err := s.producer.PublishPaymentFailed(intent.BookingReference, intent.Provider, event.Reason); err != nil {
			s.log.WithError(err).Warn("Failed to publish payment failed event")
		}
	}
	return nil
}

// CancelIntentsForBooking отменяет незавершённые intent'ы бронирования
// и закрывает completed при возврате средств.
func (s *PaymentService) CancelIntentsForBooking(ctx context.Context, reference string) error {
	query := `
		UPDATE payment_intents
		SET status = $1, updated_at = $2
		WHERE booking_reference = $3 AND status IN ($4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		models.IntentStatusCancelled, time.Now(), reference,
		models.IntentStatusPending, models.IntentStatusProcessing, models.IntentStatusCompleted); err != nil {
		return fmt.Errorf("failed to cancel payment intents: %w", err)
	}
	return nil
}

func (s *PaymentService) findIntentByProviderRef(ctx context.Context, provider, providerRef string) (*models.PaymentIntent, error) {
	query := `
		SELECT id, provider, booking_reference, amount, currency, status, provider_reference, idempotency_key, payment_url, created_at, updated_at
		FROM payment_intents
		WHERE provider = $1 AND provider_reference = $2
	`

	intent := &models.PaymentIntent{}
	err := s.db.QueryRowContext(ctx, query, provider, providerRef).Scan(
		&intent.ID, &intent.Provider, &intent.BookingReference, &intent.Amount, &intent.Currency,
		&intent.Status, &intent.ProviderReference, &intent.IdempotencyKey, &intent.PaymentURL,
		&intent.CreatedAt, &intent.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment intent: %w", err)
	}
	return intent, nil
}

func (s *PaymentService) updateIntentStatus(ctx context.Context, id uuid.UUID, status models.IntentStatus) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE payment_intents SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update intent status: %w", err)
	}
	return nil
}
