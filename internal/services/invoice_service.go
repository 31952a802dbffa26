package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

// InvoiceService генерирует счета по оплаченным бронированиям.
type InvoiceService struct {
	db  *database.DB
	log *logger.Logger
}

// NewInvoiceService создаёт сервис счетов.
func NewInvoiceService(db *database.DB, log *logger.Logger) *InvoiceService {
	return &InvoiceService{
		db:  db,
		log: log,
	}
}

// CreateInvoice создаёт счёт для бронирования. Идемпотентен:
// на бронирование выпускается не более одного счёта.
func (s *InvoiceService) CreateInvoice(ctx context.Context, bookingReference string, amount float64) error {
	number := generateInvoiceNumber()

	query := `
		INSERT INTO invoices (number, booking_reference, amount, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_reference) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, number, bookingReference, amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		s.log.WithFields(map[string]interface{}{
			"number":    number,
			"reference": bookingReference,
		}).Info("Invoice generated")
	}
	return nil
}

// GetInvoice возвращает счёт по референсу бронирования.
func (s *InvoiceService) GetInvoice(ctx context.Context, bookingReference string) (*models.Invoice, error) {
	query := `
		SELECT id, number, booking_reference, amount, created_at
		FROM invoices
		WHERE booking_reference = $1
	`

	invoice := &models.Invoice{}
	if err := s.db.QueryRowContext(ctx, query, bookingReference).Scan(
		&invoice.ID, &invoice.Number, &invoice.BookingReference, &invoice.Amount, &invoice.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("invoice not found", err)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

func generateInvoiceNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("INV-%s-%s", time.Now().Format("2006"), raw[:10])
}
