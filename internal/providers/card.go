package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/models"
)

// cardSignatureTolerance ограничивает возраст подписи вебхука.
const cardSignatureTolerance = 5 * time.Minute

// CardProvider реализует карточный эквайринг со Stripe-совместимой подписью
// вебхуков: заголовок X-Card-Signature вида t={ts},v1={hmac-sha256(ts.body)}.
type CardProvider struct {
	secret string
}

// NewCardProvider создаёт карточный провайдер.
func NewCardProvider(secret string) *CardProvider {
	return &CardProvider{secret: secret}
}

func (p *CardProvider) Name() string { return models.ProviderCard }

// CreateIntent выдаёт референс формата pi_* и ссылку на платёжную страницу.
func (p *CardProvider) CreateIntent(_ context.Context, intent *models.PaymentIntent) (string, string, error) {
	ref := providerRef("pi_")
	return ref, "https://pay.card.example/checkout/" + ref, nil
}

// cardEvent описывает входящее событие карточного провайдера.
type cardEvent struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	PaymentIntent    string  `json:"payment_intent"`
	BookingReference string  `json:"booking_reference"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	FailureMessage   string  `json:"failure_message,omitempty"`
}

func (p *CardProvider) VerifyAndNormalize(r *http.Request, body []byte) (*models.SettlementEvent, error) {
	header := r.Header.Get("X-Card-Signature")
	if header == "" {
		return nil, apperror.Validation("missing card signature header", nil)
	}

	timestamp, signature, err := parseCardSignature(header)
	if err != nil {
		return nil, apperror.Validation("malformed card signature header", err)
	}

	age := time.Since(time.Unix(timestamp, 0))
	if age > cardSignatureTolerance || age < -cardSignatureTolerance {
		return nil, apperror.Validation("card signature timestamp is outside tolerance", nil)
	}

	expected := hmacSHA256Hex(p.secret, []byte(strconv.FormatInt(timestamp, 10)), []byte("."), body)
	if !secureCompare(expected, signature) {
		return nil, apperror.Validation("invalid card signature", nil)
	}

	var event cardEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, apperror.ProviderPermanent("malformed card event payload", err)
	}

	var outcome models.SettlementOutcome
	switch event.Type {
	case "payment_intent.succeeded":
		outcome = models.SettlementPaid
	case "payment_intent.payment_failed":
		outcome = models.SettlementFailed
	case "payment_intent.processing":
		outcome = models.SettlementPending
	default:
		return nil, apperror.ProviderPermanent("unsupported card event type: "+event.Type, nil)
	}

	return &models.SettlementEvent{
		Provider:          p.Name(),
		ProviderReference: event.PaymentIntent,
		BookingReference:  event.BookingReference,
		Outcome:           outcome,
		Amount:            event.Amount,
		Currency:          event.Currency,
		Reason:            event.FailureMessage,
	}, nil
}

// parseCardSignature разбирает заголовок вида t={ts},v1={hex}.
func parseCardSignature(header string) (int64, string, error) {
	var (
		timestamp int64
		signature string
	)

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			signature = kv[1]
		}
	}

	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("signature header is missing t or v1")
	}
	return timestamp, signature, nil
}
