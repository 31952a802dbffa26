package providers

import (
	"context"
	"encoding/json"
	"net/http"

	"booking-system/internal/apperror"
	"booking-system/internal/models"
)

// StarsProvider реализует оплату Telegram Stars. Вебхук аутентифицируется
// общим секретным токеном в заголовке X-Stars-Token (сравнение за
// константное время).
type StarsProvider struct {
	token string
}

// NewStarsProvider создаёт провайдер Stars.
func NewStarsProvider(token string) *StarsProvider {
	return &StarsProvider{token: token}
}

func (p *StarsProvider) Name() string { return models.ProviderStars }

// CreateIntent выдаёт референс charge и deep-link на оплату в мессенджере.
func (p *StarsProvider) CreateIntent(_ context.Context, intent *models.PaymentIntent) (string, string, error) {
	ref := providerRef("stch_")
	return ref, "tg://invoice?slug=" + ref, nil
}

// starsUpdate описывает входящее уведомление об оплате.
type starsUpdate struct {
	ChargeID         string  `json:"charge_id"`
	BookingReference string  `json:"booking_reference"`
	Status           string  `json:"status"`
	Amount           float64 `json:"amount"`
	Reason           string  `json:"reason,omitempty"`
}

func (p *StarsProvider) VerifyAndNormalize(r *http.Request, body []byte) (*models.SettlementEvent, error) {
	token := r.Header.Get("X-Stars-Token")
	if token == "" {
		return nil, apperror.Validation("missing stars token header", nil)
	}
	if !secureCompare(p.token, token) {
		return nil, apperror.Validation("invalid stars token", nil)
	}

	var update starsUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, apperror.ProviderPermanent("malformed stars update payload", err)
	}

	var outcome models.SettlementOutcome
	switch update.Status {
	case "successful":
		outcome = models.SettlementPaid
	case "failed", "refunded":
		outcome = models.SettlementFailed
	case "pending":
		outcome = models.SettlementPending
	default:
		return nil, apperror.ProviderPermanent("unsupported stars status: "+update.Status, nil)
	}

	return &models.SettlementEvent{
		Provider:          p.Name(),
		ProviderReference: update.ChargeID,
		BookingReference:  update.BookingReference,
		Outcome:           outcome,
		Amount:            update.Amount,
		Currency:          "XTR",
		Reason:            update.Reason,
	}, nil
}
