package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"booking-system/internal/apperror"
	"booking-system/internal/models"
)

// QRBankProvider реализует банковские QR-платежи. Подпись в заголовке
// X-QR-Signature считается не по телу, а по полям:
// hmac-sha256("{amount}:{currency}:{reference}").
type QRBankProvider struct {
	secret string
}

// NewQRBankProvider создаёт QR-провайдер.
func NewQRBankProvider(secret string) *QRBankProvider {
	return &QRBankProvider{secret: secret}
}

func (p *QRBankProvider) Name() string { return models.ProviderQRBank }

// CreateIntent выдаёт референс транзакции и ссылку на QR-код.
func (p *QRBankProvider) CreateIntent(_ context.Context, intent *models.PaymentIntent) (string, string, error) {
	ref := providerRef("qr_")
	return ref, "https://pay.qrbank.example/qr/" + ref, nil
}

// qrNotification описывает входящее уведомление QR-провайдера.
type qrNotification struct {
	TransactionID string  `json:"transaction_id"`
	Reference     string  `json:"reference"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	Reason        string  `json:"reason,omitempty"`
}

func (p *QRBankProvider) VerifyAndNormalize(r *http.Request, body []byte) (*models.SettlementEvent, error) {
	signature := r.Header.Get("X-QR-Signature")
	if signature == "" {
		return nil, apperror.Validation("missing qr signature header", nil)
	}

	var notification qrNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, apperror.Validation("malformed qr notification payload", err)
	}

	signed := fmt.Sprintf("%.2f:%s:%s", notification.Amount, notification.Currency, notification.Reference)
	expected := hmacSHA256Hex(p.secret, []byte(signed))
	if !secureCompare(expected, signature) {
		return nil, apperror.Validation("invalid qr signature", nil)
	}

	var outcome models.SettlementOutcome
	switch notification.Status {
	case "completed":
		outcome = models.SettlementPaid
	case "declined", "expired":
		outcome = models.SettlementFailed
	case "pending":
		outcome = models.SettlementPending
	default:
		return nil, apperror.ProviderPermanent("unsupported qr status: "+notification.Status, nil)
	}

	return &models.SettlementEvent{
		Provider:          p.Name(),
		ProviderReference: notification.TransactionID,
		BookingReference:  notification.Reference,
		Outcome:           outcome,
		Amount:            notification.Amount,
		Currency:          notification.Currency,
		Reason:            notification.Reason,
	}, nil
}
