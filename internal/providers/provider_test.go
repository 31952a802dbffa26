package providers

import (
	"context"
	"strings"
	"testing"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(&config.ProvidersConfig{
		CardSecret:     "card-secret",
		CryptoSecret:   "crypto-secret",
		StarsToken:     "stars-token",
		QRBankSecret:   "qrbank-secret",
		RegionalSecret: "regional-secret",
	})
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Get("paypal")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestRegistryNamesSorted(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, []string{
		models.ProviderCard,
		models.ProviderCrypto,
		models.ProviderQRBank,
		models.ProviderRegional,
		models.ProviderStars,
	}, r.Names())
}

func TestCreateIntentReferences(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		provider  string
		refPrefix string
		urlPart   string
	}{
		{models.ProviderCard, "pi_", "pay.card.example"},
		{models.ProviderCrypto, "inv_", "pay.crypto.example"},
		{models.ProviderStars, "stch_", "tg://invoice"},
		{models.ProviderQRBank, "qr_", "pay.qrbank.example"},
		{models.ProviderRegional, "rg_", "pay.regional.example"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := r.Get(tt.provider)
			require.NoError(t, err)

			ref, payURL, err := p.CreateIntent(context.Background(), &models.PaymentIntent{})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(ref, tt.refPrefix), "reference %s", ref)
			assert.Len(t, ref, len(tt.refPrefix)+24)
			assert.Contains(t, payURL, tt.urlPart)
			assert.Contains(t, payURL, ref)
		})
	}
}

func TestProviderRefUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := providerRef("pi_")
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}
