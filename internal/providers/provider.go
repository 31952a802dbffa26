// Package providers содержит адаптеры платёжных провайдеров: генерацию
// провайдерских референсов для intent'ов и верификацию входящих вебхуков
// с приведением их к единой форме SettlementEvent.
package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

// Provider описывает один платёжный провайдер.
type Provider interface {
	// Name возвращает имя провайдера (ключ реестра и маршрута вебхука).
	Name() string
	// CreateIntent выдаёт провайдерский референс и платёжную ссылку.
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) (providerRef, payURL string, err error)
	// VerifyAndNormalize проверяет подпись вебхука и приводит его
	// к SettlementEvent. Неверная подпись даёт ошибку Validation;
	// непригодное содержимое при верной подписи ProviderPermanent,
	// чтобы вызывающий мог подтвердить доставку и отложить событие
	// на ручной разбор вместо провоцирования повторов.
	VerifyAndNormalize(r *http.Request, body []byte) (*models.SettlementEvent, error)
}

// Registry хранит провайдеров по имени.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry создаёт реестр со всеми поддерживаемыми провайдерами.
func NewRegistry(cfg *config.ProvidersConfig) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(NewCardProvider(cfg.CardSecret))
	r.Register(NewCryptoProvider(cfg.CryptoSecret))
	r.Register(NewStarsProvider(cfg.StarsToken))
	r.Register(NewQRBankProvider(cfg.QRBankSecret))
	r.Register(NewRegionalProvider(cfg.RegionalSecret))
	return r
}

// Register добавляет провайдера в реестр.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get возвращает провайдера по имени.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.NotFound("unknown payment provider: "+name, nil)
	}
	return p, nil
}

// Names возвращает имена зарегистрированных провайдеров.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hmacSHA256Hex возвращает hex-подпись HMAC-SHA256.
func hmacSHA256Hex(secret string, parts ...[]byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, part := range parts {
		mac.Write(part)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// secureCompare сравнивает строки за константное время.
func secureCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// providerRef генерирует провайдерский референс с заданным префиксом.
func providerRef(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
}
