package models

import (
	"time"

	"github.com/google/uuid"
)

// CashbackEntryType описывает тип записи в кешбэк-леджере.
type CashbackEntryType string

const (
	CashbackEntryEarned   CashbackEntryType = "earned"
	CashbackEntryUsed     CashbackEntryType = "used"
	CashbackEntryExpired  CashbackEntryType = "expired"
	CashbackEntryAdjusted CashbackEntryType = "adjusted"
)

// CashbackEntry представляет запись append-only леджера кешбэка.
// Текущий баланс пользователя равен сумме знаковых amount всех записей;
// запись типа used никогда не уводит баланс в минус.
type CashbackEntry struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	UserID           uuid.UUID         `json:"user_id" db:"user_id"`
	Type             CashbackEntryType `json:"type" db:"type"`
	Amount           float64           `json:"amount" db:"amount"` // со знаком: used/expired отрицательные
	BalanceAfter     float64           `json:"balance_after" db:"balance_after"`
	RelatedBookingID *uuid.UUID        `json:"related_booking_id,omitempty" db:"related_booking_id"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}
