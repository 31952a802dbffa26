package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/kafka"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

const minutesPerDay = 24 * 60

// BookingService управляет жизненным циклом бронирований.
type BookingService struct {
	db       *database.DB
	log      *logger.Logger
	cfg      *config.BookingConfig
	pricing  *PricingService
	promo    *PromoService
	giftCard *GiftCardService
	cashback *CashbackService
	jobs     *JobService
	catalog  Catalog
	producer *kafka.Producer
}

// NewBookingService создает сервис бронирований.
func NewBookingService(db *database.DB, log *logger.Logger, cfg *config.BookingConfig,
	pricing *PricingService, promo *PromoService, giftCard *GiftCardService, cashback *CashbackService,
	jobs *JobService, catalog Catalog, producer *kafka.Producer) *BookingService {
	return &BookingService{
		db:       db,
		log:      log,
		cfg:      cfg,
		pricing:  pricing,
		promo:    promo,
		giftCard: giftCard,
		cashback: cashback,
		jobs:     jobs,
		catalog:  catalog,
		producer: producer,
	}
}

// Quote рассчитывает цену заказа без создания бронирования.
// Отказы резолверов скидок возвращаются внутри разбивки.
func (s *BookingService) Quote(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.PriceBreakdown, error) {
	order, err := s.buildOrderContext(userID, req)
	if err != nil {
		return nil, err
	}
	return s.pricing.Compose(ctx, order)
}

// Reserve создает бронирование в статусе pending.
// Конкурирующие резервы одного ресурса на одну дату сериализуются
// advisory-блокировкой: пересекающиеся окна не могут пройти одновременно.
func (s *BookingService) Reserve(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.Booking, *models.PriceBreakdown, error) {
	order, err := s.buildOrderContext(userID, req)
	if err != nil {
		return nil, nil, err
	}

	bookable, err := s.catalog.GetBookable(ctx, order.BookableType, order.BookableID)
	if err != nil {
		return nil, nil, err
	}
	if bookable.Capacity > 0 && order.PartySize > bookable.Capacity {
		return nil, nil, apperror.Validation(fmt.Sprintf("party size %d exceeds capacity %d", order.PartySize, bookable.Capacity), nil)
	}

	breakdown, err := s.pricing.Compose(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	discountsJSON, err := json.Marshal(breakdown.Discounts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal applied discounts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lockKey := fmt.Sprintf("hold:%s:%s:%s", order.BookableType, order.BookableID, order.Date.Format("2006-01-02"))
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
		return nil, nil, fmt.Errorf("failed to lock resource: %w", err)
	}

	overlapQuery := `
		SELECT COUNT(*)
		FROM bookings
		WHERE bookable_type = $1 AND bookable_id = $2 AND date = $3
		  AND (
			status IN ($4, $5)
			OR (status = $6 AND created_at > $7)
		  )
		  AND window_start < $8 AND window_end > $9
	`

	holdCutoff := time.Now().Add(-time.Duration(s.cfg.HoldTTLHours) * time.Hour)
	var overlapping int
	if err := tx.QueryRowContext(ctx, overlapQuery,
		order.BookableType, order.BookableID, order.Date,
		models.BookingStatusConfirmed, models.BookingStatusPaid,
		models.BookingStatusPending, holdCutoff,
		order.WindowEnd, order.WindowStart,
	).Scan(&overlapping); err != nil {
		return nil, nil, fmt.Errorf("failed to check overlapping holds: %w", err)
	}
	if overlapping > 0 {
		return nil, nil, apperror.Conflict("time window is already held for this resource", nil)
	}

	booking := &models.Booking{
		ID:               uuid.New(),
		Reference:        generateBookingReference(),
		UserID:           userID,
		BookableType:     order.BookableType,
		BookableID:       order.BookableID,
		Date:             order.Date,
		WindowStart:      order.WindowStart,
		WindowEnd:        order.WindowEnd,
		PartySize:        order.PartySize,
		Subtotal:         breakdown.Subtotal,
		AppliedDiscounts: breakdown.Discounts,
		TotalPrice:       breakdown.Total,
		Status:           models.BookingStatusPending,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	insertQuery := `
		INSERT INTO bookings (id, reference, user_id, bookable_type, bookable_id, date, window_start, window_end, party_size, subtotal, applied_discounts, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	if _, err := tx.ExecContext(ctx, insertQuery,
		booking.ID, booking.Reference, booking.UserID, booking.BookableType, booking.BookableID,
		booking.Date, booking.WindowStart, booking.WindowEnd, booking.PartySize,
		booking.Subtotal, discountsJSON, booking.TotalPrice, booking.Status,
		booking.CreatedAt, booking.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"reference":   booking.Reference,
		"bookable_id": booking.BookableID,
		"total_price": booking.TotalPrice,
	}).Info("Booking reserved")

	if s.producer != nil {
		if err := s.producer.PublishBookingCreated(booking); err != nil {
			s.log.WithError(err).Warn("Failed to publish booking created event")
		}
	}

	return booking, breakdown, nil
}

// GetBooking возвращает бронирование по референсу.
func (s *BookingService) GetBooking(ctx context.Context, reference string) (*models.Booking, error) {
	query := bookingSelectColumns + " FROM bookings WHERE reference = $1"
	booking, err := scanBooking(s.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("booking not found", err)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookings возвращает бронирования с фильтрацией по статусу и пользователю.
func (s *BookingService) ListBookings(ctx context.Context, status *models.BookingStatus, userID *uuid.UUID, limit, offset int) ([]*models.Booking, error) {
	query := bookingSelectColumns + " FROM bookings WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}
	if userID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *userID)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	return bookings, nil
}

// Confirm переводит бронирование из pending в confirmed.
func (s *BookingService) Confirm(ctx context.Context, reference string) (*models.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := s.lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}

	if !isValidBookingStatusTransition(booking.Status, models.BookingStatusConfirmed) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot confirm booking in status %s", booking.Status), nil)
	}

	if err := s.updateStatus(ctx, tx, booking.ID, models.BookingStatusConfirmed); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusConfirmed
	return booking, nil
}

// MarkPaid переводит бронирование в paid и фиксирует все скидки
// в одной транзакции: использование промокода, списание подарочной карты,
// списание и начисление кешбэка, постановка фоновых задач. Либо всё, либо
// ничего. Повторная доставка того же платежа ничего не меняет.
func (s *BookingService) MarkPaid(ctx context.Context, reference, paymentMethod, paymentReference string) (*models.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := s.lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusPaid {
		if booking.PaymentReference != nil && *booking.PaymentReference == paymentReference {
			return booking, nil
		}
		return nil, apperror.Conflict("booking is already paid with a different payment", nil)
	}

	if !isValidBookingStatusTransition(booking.Status, models.BookingStatusPaid) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot pay booking in status %s", booking.Status), nil)
	}

	for _, discount := range booking.AppliedDiscounts {
		switch discount.Kind {
		case models.DiscountKindPromo:
			if _, err := s.promo.CommitPromoWithTx(ctx, tx, discount.Identifier, booking.UserID, booking.ID, booking.BookableType, booking.Subtotal); err != nil {
				return nil, err
			}
		case models.DiscountKindGiftCard:
			if err := s.giftCard.RedeemWithTx(ctx, tx, discount.Identifier, booking.BookableType, discount.Amount); err != nil {
				return nil, err
			}
		case models.DiscountKindCashback:
			if err := s.cashback.UseWithTx(ctx, tx, booking.UserID, discount.Amount, booking.ID); err != nil {
				return nil, err
			}
		}
	}

	if earned := s.cashback.CashbackFor(booking.TotalPrice); earned > 0 {
		if err := s.cashback.EarnWithTx(ctx, tx, booking.UserID, earned, booking.ID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	updateQuery := `
		UPDATE bookings
		SET status = $1, payment_method = $2, payment_reference = $3, paid_at = $4, updated_at = $4
		WHERE id = $5
	`
	if _, err := tx.ExecContext(ctx, updateQuery,
		models.BookingStatusPaid, paymentMethod, paymentReference, now, booking.ID); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if _, err := s.jobs.EnqueueTx(ctx, tx, models.JobTypeNotification, models.NotificationPayload{
		BookingReference: booking.Reference,
		Template:         "booking_paid",
	}, 0); err != nil {
		return nil, err
	}
	if _, err := s.jobs.EnqueueTx(ctx, tx, models.JobTypeInvoice, models.InvoicePayload{
		BookingReference: booking.Reference,
		Amount:           booking.TotalPrice,
	}, 0); err != nil {
		return nil, err
	}
	if _, err := s.jobs.EnqueueTx(ctx, tx, models.JobTypeAnalytics, models.AnalyticsPayload{
		Counter: "revenue",
		Delta:   booking.TotalPrice,
	}, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusPaid
	booking.PaymentMethod = &paymentMethod
	booking.PaymentReference = &paymentReference
	booking.PaidAt = &now

	s.log.WithFields(map[string]interface{}{
		"reference": booking.Reference,
		"amount":    booking.TotalPrice,
		"method":    paymentMethod,
	}).Info("Booking paid")

	if s.producer != nil {
		if err := s.producer.PublishBookingPaid(booking.Reference, booking.TotalPrice, paymentMethod); err != nil {
			s.log.WithError(err).Warn("Failed to publish booking paid event")
		}
	}

	return booking, nil
}

// Cancel отменяет бронирование. Отмена оплаченного бронирования
// дополнительно ставит задачу на возврат средств.
func (s *BookingService) Cancel(ctx context.Context, reference, reason string) (*models.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := s.lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}
	if !isValidBookingStatusTransition(booking.Status, models.BookingStatusCancelled) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot cancel booking in status %s", booking.Status), nil)
	}

	wasPaid := booking.Status == models.BookingStatusPaid

	updateQuery := `
		UPDATE bookings
		SET status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, updateQuery, models.BookingStatusCancelled, reason, time.Now(), booking.ID); err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	if wasPaid {
		if _, err := s.jobs.EnqueueTx(ctx, tx, models.JobTypeRefund, models.RefundPayload{
			BookingReference: booking.Reference,
			Reason:           reason,
		}, 0); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelReason = &reason

	s.log.WithFields(map[string]interface{}{
		"reference": booking.Reference,
		"reason":    reason,
		"was_paid":  wasPaid,
	}).Info("Booking cancelled")

	if s.producer != nil {
		if err := s.producer.PublishBookingCancelled(booking.Reference, reason); err != nil {
			s.log.WithError(err).Warn("Failed to publish booking cancelled event")
		}
	}

	return booking, nil
}

// MarkRefunded переводит оплаченное бронирование в refunded
// (возвратный settlement от провайдера) и ставит задачу на возврат.
func (s *BookingService) MarkRefunded(ctx context.Context, reference, reason string) (*models.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := s.lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusRefunded {
		return booking, nil
	}
	if !isValidBookingStatusTransition(booking.Status, models.BookingStatusRefunded) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot refund booking in status %s", booking.Status), nil)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE bookings SET status = $1, cancel_reason = $2, updated_at = $3 WHERE id = $4",
		models.BookingStatusRefunded, reason, time.Now(), booking.ID); err != nil {
		return nil, fmt.Errorf("failed to mark booking refunded: %w", err)
	}

	if _, err := s.jobs.EnqueueTx(ctx, tx, models.JobTypeRefund, models.RefundPayload{
		BookingReference: booking.Reference,
		Reason:           reason,
	}, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusRefunded
	s.log.WithField("reference", booking.Reference).Info("Booking refunded")
	return booking, nil
}

// Complete переводит оплаченное бронирование в completed (услуга оказана).
func (s *BookingService) Complete(ctx context.Context, reference string) (*models.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := s.lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}

	if !isValidBookingStatusTransition(booking.Status, models.BookingStatusCompleted) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot complete booking in status %s", booking.Status), nil)
	}

	if err := s.updateStatus(ctx, tx, booking.ID, models.BookingStatusCompleted); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusCompleted
	return booking, nil
}

// ReverseSettlement компенсирует леджеры отменённого или возвращённого
// бронирования: снимает использование промокода, возвращает баланс
// подарочной карты, компенсирует кешбэк. Идемпотентна, вызывается
// задачей booking.refund.
func (s *BookingService) ReverseSettlement(ctx context.Context, reference string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := s.lockBooking(ctx, tx, reference)
	if err != nil {
		return err
	}
	if booking.Status != models.BookingStatusCancelled && booking.Status != models.BookingStatusRefunded {
		return apperror.Conflict(fmt.Sprintf("cannot reverse settlement for booking in status %s", booking.Status), nil)
	}
	if booking.PaidAt == nil {
		return nil
	}

	// Маркер под блокировкой делает повторную доставку задачи no-op.
	var reversedAt *time.Time
	if err := tx.QueryRowContext(ctx, "SELECT reversed_at FROM bookings WHERE id = $1", booking.ID).Scan(&reversedAt); err != nil {
		return fmt.Errorf("failed to check reversal marker: %w", err)
	}
	if reversedAt != nil {
		return nil
	}

	for _, discount := range booking.AppliedDiscounts {
		switch discount.Kind {
		case models.DiscountKindPromo:
			if err := s.promo.ReleasePromoWithTx(ctx, tx, discount.Identifier, booking.ID); err != nil {
				return err
			}
		case models.DiscountKindGiftCard:
			if err := s.giftCard.RestoreWithTx(ctx, tx, discount.Identifier, discount.Amount); err != nil {
				return err
			}
		}
	}

	if err := s.cashback.ReverseWithTx(ctx, tx, booking.UserID, booking.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE bookings SET reversed_at = $1, updated_at = $1 WHERE id = $2", time.Now(), booking.ID); err != nil {
		return fmt.Errorf("failed to set reversal marker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithField("reference", reference).Info("Booking settlement reversed")
	return nil
}

// ExpireAbandoned помечает истёкшие неоплаченные брони одним UPDATE.
// Идемпотентна: повторный вызов не трогает уже истёкшие. Возвращает
// референсы для публикации событий.
func (s *BookingService) ExpireAbandoned(ctx context.Context) ([]string, error) {
	cutoff := time.Now().Add(-time.Duration(s.cfg.HoldTTLHours) * time.Hour)

	query := `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE status = $3 AND created_at < $4
		RETURNING reference
	`

	rows, err := s.db.QueryContext(ctx, query, models.BookingStatusExpired, time.Now(), models.BookingStatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to expire bookings: %w", err)
	}
	defer rows.Close()

	var references []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan expired reference: %w", err)
		}
		references = append(references, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired references: %w", err)
	}

	if len(references) > 0 {
		s.log.WithField("count", len(references)).Info("Abandoned bookings expired")
		if s.producer != nil {
			for _, ref := range references {
				if err := s.producer.PublishBookingExpired(ref); err != nil {
					s.log.WithError(err).Warn("Failed to publish booking expired event")
				}
			}
		}
	}

	return references, nil
}

const bookingSelectColumns = `
	SELECT id, reference, user_id, bookable_type, bookable_id, date, window_start, window_end, party_size,
	       subtotal, applied_discounts, total_price, status, payment_method, payment_reference, cancel_reason,
	       created_at, updated_at, paid_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var discountsJSON []byte

	if err := row.Scan(
		&booking.ID, &booking.Reference, &booking.UserID, &booking.BookableType, &booking.BookableID,
		&booking.Date, &booking.WindowStart, &booking.WindowEnd, &booking.PartySize,
		&booking.Subtotal, &discountsJSON, &booking.TotalPrice, &booking.Status,
		&booking.PaymentMethod, &booking.PaymentReference, &booking.CancelReason,
		&booking.CreatedAt, &booking.UpdatedAt, &booking.PaidAt,
	); err != nil {
		return nil, err
	}

	if len(discountsJSON) > 0 {
		if err := json.Unmarshal(discountsJSON, &booking.AppliedDiscounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal applied discounts: %w", err)
		}
	}
	return booking, nil
}

func (s *BookingService) lockBooking(ctx context.Context, tx *sql.Tx, reference string) (*models.Booking, error) {
	query := bookingSelectColumns + " FROM bookings WHERE reference = $1 FOR UPDATE"
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, reference))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("booking not found", err)
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return booking, nil
}

func (s *BookingService) updateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.BookingStatus) error {
	if _, err := tx.ExecContext(ctx, "UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3", status, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

func (s *BookingService) buildOrderContext(userID uuid.UUID, req *models.CreateBookingRequest) (*models.OrderContext, error) {
	if req.BookableType != models.BookableTypeVessel && req.BookableType != models.BookableTypeTour {
		return nil, apperror.Validation("bookable_type must be vessel or tour", nil)
	}
	if req.BookableID == "" {
		return nil, apperror.Validation("bookable_id is required", nil)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperror.Validation("date must be in YYYY-MM-DD format", err)
	}
	if req.WindowStart < 0 || req.WindowEnd > minutesPerDay || req.WindowStart >= req.WindowEnd {
		return nil, apperror.Validation("invalid booking window", nil)
	}
	if req.DurationHours <= 0 {
		return nil, apperror.Validation("duration_hours must be positive", nil)
	}
	if req.PartySize <= 0 {
		return nil, apperror.Validation("party_size must be positive", nil)
	}

	return &models.OrderContext{
		UserID:         userID,
		BookableType:   req.BookableType,
		BookableID:     req.BookableID,
		Date:           date,
		WindowStart:    req.WindowStart,
		WindowEnd:      req.WindowEnd,
		DurationHours:  req.DurationHours,
		PartySize:      req.PartySize,
		Addons:         req.Addons,
		PackageID:      req.PackageID,
		PromoCode:      req.PromoCode,
		GiftCardCode:   req.GiftCardCode,
		CashbackAmount: req.CashbackAmount,
	}, nil
}

func isValidBookingStatusTransition(from, to models.BookingStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.BookingStatusPending:
		return to == models.BookingStatusConfirmed || to == models.BookingStatusPaid ||
			to == models.BookingStatusCancelled || to == models.BookingStatusExpired
	case models.BookingStatusConfirmed:
		return to == models.BookingStatusPaid || to == models.BookingStatusCancelled
	case models.BookingStatusPaid:
		return to == models.BookingStatusCompleted || to == models.BookingStatusCancelled ||
			to == models.BookingStatusRefunded
	case models.BookingStatusCompleted, models.BookingStatusCancelled,
		models.BookingStatusExpired, models.BookingStatusRefunded:
		return false
	default:
		return false
	}
}

// generateBookingReference генерирует публичный референс бронирования.
func generateBookingReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "BK-" + raw[:12]
}
