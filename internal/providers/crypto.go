package providers

import (
	"context"
	"encoding/json"
	"net/http"

	"booking-system/internal/apperror"
	"booking-system/internal/models"
)

// CryptoProvider реализует криптоплатежи с IPN-подписью: заголовок
// X-Crypto-Signature содержит hex(hmac-sha256(body)) по сырому телу.
type CryptoProvider struct {
	secret string
}

// NewCryptoProvider создаёт криптопровайдер.
func NewCryptoProvider(secret string) *CryptoProvider {
	return &CryptoProvider{secret: secret}
}

func (p *CryptoProvider) Name() string { return models.ProviderCrypto }

// CreateIntent выдаёт референс инвойса и ссылку на его оплату.
func (p *CryptoProvider) CreateIntent(_ context.Context, intent *models.PaymentIntent) (string, string, error) {
	ref := providerRef("inv_")
	return ref, "https://pay.crypto.example/invoice/" + ref, nil
}

// cryptoNotification описывает входящее IPN-уведомление.
type cryptoNotification struct {
	InvoiceID string  `json:"invoice_id"`
	OrderID   string  `json:"order_id"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Asset     string  `json:"asset"`
	Comment   string  `json:"comment,omitempty"`
}

func (p *CryptoProvider) VerifyAndNormalize(r *http.Request, body []byte) (*models.SettlementEvent, error) {
	signature := r.Header.Get("X-Crypto-Signature")
	if signature == "" {
		return nil, apperror.Validation("missing crypto signature header", nil)
	}

	expected := hmacSHA256Hex(p.secret, body)
	if !secureCompare(expected, signature) {
		return nil, apperror.Validation("invalid crypto signature", nil)
	}

	var notification cryptoNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, apperror.ProviderPermanent("malformed crypto notification payload", err)
	}

	var outcome models.SettlementOutcome
	switch notification.Status {
	case "paid":
		outcome = models.SettlementPaid
	case "expired", "failed":
		outcome = models.SettlementFailed
	case "active", "pending":
		outcome = models.SettlementPending
	default:
		return nil, apperror.ProviderPermanent("unsupported crypto status: "+notification.Status, nil)
	}

	return &models.SettlementEvent{
		Provider:          p.Name(),
		ProviderReference: notification.InvoiceID,
		BookingReference:  notification.OrderID,
		Outcome:           outcome,
		Amount:            notification.Amount,
		Currency:          notification.Asset,
		Reason:            notification.Comment,
	}, nil
}
