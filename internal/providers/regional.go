package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"booking-system/internal/apperror"
	"booking-system/internal/models"
)

// RegionalProvider реализует легаси региональный шлюз. Подпись передаётся
// полем sign в теле: sha256("{payment_id}:{reference}:{amount}:{status}:{secret}")
// в верхнем регистре hex.
type RegionalProvider struct {
	secret string
}

// NewRegionalProvider создаёт региональный провайдер.
func NewRegionalProvider(secret string) *RegionalProvider {
	return &RegionalProvider{secret: secret}
}

func (p *RegionalProvider) Name() string { return models.ProviderRegional }

// CreateIntent выдаёт референс платежа и ссылку на платёжную форму.
func (p *RegionalProvider) CreateIntent(_ context.Context, intent *models.PaymentIntent) (string, string, error) {
	ref := providerRef("rg_")
	return ref, "https://pay.regional.example/form/" + ref, nil
}

// regionalNotification описывает входящее уведомление легаси-шлюза.
type regionalNotification struct {
	PaymentID string  `json:"payment_id"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	Sign      string  `json:"sign"`
	Message   string  `json:"message,omitempty"`
}

func (p *RegionalProvider) VerifyAndNormalize(_ *http.Request, body []byte) (*models.SettlementEvent, error) {
	var notification regionalNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, apperror.Validation("malformed regional notification payload", err)
	}
	if notification.Sign == "" {
		return nil, apperror.Validation("missing regional sign field", nil)
	}

	expected := regionalSign(p.secret, notification.PaymentID, notification.Reference, notification.Amount, notification.Status)
	if !secureCompare(expected, strings.ToUpper(notification.Sign)) {
		return nil, apperror.Validation("invalid regional sign", nil)
	}

	var outcome models.SettlementOutcome
	switch notification.Status {
	case "success":
		outcome = models.SettlementPaid
	case "fail", "canceled":
		outcome = models.SettlementFailed
	case "waiting":
		outcome = models.SettlementPending
	default:
		return nil, apperror.ProviderPermanent("unsupported regional status: "+notification.Status, nil)
	}

	return &models.SettlementEvent{
		Provider:          p.Name(),
		ProviderReference: notification.PaymentID,
		BookingReference:  notification.Reference,
		Outcome:           outcome,
		Amount:            notification.Amount,
		Currency:          notification.Currency,
		Reason:            notification.Message,
	}, nil
}

// regionalSign считает легаси-подпись по конкатенации полей.
func regionalSign(secret, paymentID, reference string, amount float64, status string) string {
	payload := fmt.Sprintf("%s:%s:%.2f:%s:%s", paymentID, reference, amount, status, secret)
	sum := sha256.Sum256([]byte(payload))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
