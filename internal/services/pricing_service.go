package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/lib/pq"
)

// Catalog описывает источник карточек бронируемых ресурсов.
type Catalog interface {
	GetBookable(ctx context.Context, bookableType models.BookableType, bookableID string) (*models.Bookable, error)
	BasePrice(ctx context.Context, bookableType models.BookableType, bookableID string, durationHours, partySize int) (float64, error)
}

// PricingService собирает итоговую цену заказа.
// Порядок резолверов фиксирован: база → динамические правила → пакет →
// промокод → подарочная карта → кешбэк. Каждая скидка ограничена текущим
// остатком, итог не бывает отрицательным.
type PricingService struct {
	db       *database.DB
	log      *logger.Logger
	catalog  Catalog
	promo    *PromoService
	giftCard *GiftCardService
	cashback *CashbackService
}

// NewPricingService создаёт сервис ценообразования.
func NewPricingService(db *database.DB, log *logger.Logger, catalog Catalog, promo *PromoService, giftCard *GiftCardService, cashback *CashbackService) *PricingService {
	return &PricingService{
		db:       db,
		log:      log,
		catalog:  catalog,
		promo:    promo,
		giftCard: giftCard,
		cashback: cashback,
	}
}

// Compose рассчитывает разбивку цены для контекста заказа.
// Отклонённые скидки не прерывают расчёт: они накапливаются в Rejections,
// а итог считается по применившимся.
func (s *PricingService) Compose(ctx context.Context, order *models.OrderContext) (*models.PriceBreakdown, error) {
	base, err := s.catalog.BasePrice(ctx, order.BookableType, order.BookableID, order.DurationHours, order.PartySize)
	if err != nil {
		return nil, err
	}

	rules, err := s.ActiveRules(ctx, order.BookableType, order.Date)
	if err != nil {
		return nil, err
	}

	var sumPercent float64
	for _, rule := range rules {
		sumPercent += rule.Percent
	}
	ruleAdjustment := round2(base * sumPercent / 100.0)

	var addonsTotal float64
	for _, addon := range order.Addons {
		addonsTotal += addon.Price
	}

	breakdown := &models.PriceBreakdown{
		BasePrice:      base,
		RuleAdjustment: ruleAdjustment,
		Subtotal:       round2(base + ruleAdjustment + addonsTotal),
	}

	running := breakdown.Subtotal

	// Пакет: связанные допуслуги заменяются единой ценой бандла.
	// Часть суммы, покрытая бандлом, исключается из базы промо-скидки.
	var bundlePortion float64
	if order.PackageID != nil {
		discount, portion, rejection, err := s.quotePackage(ctx, order, running)
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			breakdown.Rejections = append(breakdown.Rejections, *rejection)
		} else if discount > 0 {
			discount = minFloat(discount, running)
			running = round2(running - discount)
			bundlePortion = portion
			breakdown.Discounts = append(breakdown.Discounts, models.AppliedDiscount{
				Kind:       models.DiscountKindPackage,
				Identifier: fmt.Sprintf("%d", *order.PackageID),
				Amount:     discount,
			})
		}
	}

	if order.PromoCode != nil && *order.PromoCode != "" {
		promoBase := maxFloat(0, running-bundlePortion)
		discount, rejection, err := s.promo.QuotePromo(ctx, *order.PromoCode, order.UserID, order.BookableType, promoBase)
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			breakdown.Rejections = append(breakdown.Rejections, *rejection)
		} else if discount > 0 {
			discount = minFloat(discount, running)
			running = round2(running - discount)
			breakdown.Discounts = append(breakdown.Discounts, models.AppliedDiscount{
				Kind:       models.DiscountKindPromo,
				Identifier: *order.PromoCode,
				Amount:     discount,
			})
		}
	}

	if order.GiftCardCode != nil && *order.GiftCardCode != "" {
		discount, rejection, err := s.giftCard.QuoteGiftCard(ctx, *order.GiftCardCode, order.BookableType, running)
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			breakdown.Rejections = append(breakdown.Rejections, *rejection)
		} else if discount > 0 {
			running = round2(running - discount)
			breakdown.Discounts = append(breakdown.Discounts, models.AppliedDiscount{
				Kind:       models.DiscountKindGiftCard,
				Identifier: *order.GiftCardCode,
				Amount:     discount,
			})
		}
	}

	if order.CashbackAmount > 0 {
		discount, rejection, err := s.cashback.QuoteCashback(ctx, order.UserID, order.CashbackAmount, running)
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			breakdown.Rejections = append(breakdown.Rejections, *rejection)
		} else if discount > 0 {
			running = round2(running - discount)
			breakdown.Discounts = append(breakdown.Discounts, models.AppliedDiscount{
				Kind:   models.DiscountKindCashback,
				Amount: discount,
			})
		}
	}

	breakdown.Total = maxFloat(0, running)
	return breakdown, nil
}

// ActiveRules возвращает правила, действующие для типа ресурса на дату,
// в порядке priority, затем id.
func (s *PricingService) ActiveRules(ctx context.Context, bookableType models.BookableType, date time.Time) ([]*models.PricingRule, error) {
	query := `
		SELECT id, name, applies_to, percent, priority, active_from, active_to, is_active
		FROM pricing_rules
		WHERE is_active = true
		  AND (active_from IS NULL OR active_from <= $1)
		  AND (active_to IS NULL OR active_to >= $1)
		ORDER BY priority, id
	`

	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.PricingRule
	for rows.Next() {
		r := &models.PricingRule{}
		if err := rows.Scan(&r.ID, &r.Name, &r.AppliesTo, &r.Percent, &r.Priority, &r.ActiveFrom, &r.ActiveTo, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		if r.AppliesTo.Matches(bookableType) {
			rules = append(rules, r)
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})

	return rules, nil
}

// GetPackage возвращает пакетное предложение по идентификатору.
func (s *PricingService) GetPackage(ctx context.Context, id int64) (*models.Package, error) {
	query := `
		SELECT id, name, bookable_type, addons, bundle_price, is_active
		FROM packages
		WHERE id = $1
	`

	pkg := &models.Package{}
	if err := s.db.QueryRowContext(ctx, query, id).Scan(
		&pkg.ID, &pkg.Name, &pkg.BookableType, pq.Array(&pkg.Addons), &pkg.BundlePrice, &pkg.IsActive,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return pkg, nil
}

// quotePackage рассчитывает скидку бандла: сумма цен входящих в пакет
// допуслуг минус цена бандла. Возвращает скидку и покрытую бандлом часть.
func (s *PricingService) quotePackage(ctx context.Context, order *models.OrderContext, running float64) (float64, float64, *models.DiscountRejection, error) {
	identifier := fmt.Sprintf("%d", *order.PackageID)

	pkg, err := s.GetPackage(ctx, *order.PackageID)
	if err != nil {
		return 0, 0, nil, err
	}
	if pkg == nil {
		return 0, 0, rejectPackage(identifier, models.RejectionNotFound, "package not found"), nil
	}
	if !pkg.IsActive {
		return 0, 0, rejectPackage(identifier, models.RejectionInactive, "package is inactive"), nil
	}
	if pkg.BookableType != order.BookableType {
		return 0, 0, rejectPackage(identifier, models.RejectionScopeMismatch, "package does not apply to this booking type"), nil
	}

	orderAddons := make(map[string]float64, len(order.Addons))
	for _, addon := range order.Addons {
		orderAddons[addon.Name] = addon.Price
	}

	var bundledSum float64
	for _, name := range pkg.Addons {
		price, ok := orderAddons[name]
		if !ok {
			return 0, 0, rejectPackage(identifier, models.RejectionPackageConflict, fmt.Sprintf("package addon %q is not in the order", name)), nil
		}
		bundledSum += price
	}

	discount := round2(bundledSum - pkg.BundlePrice)
	if discount <= 0 {
		return 0, 0, nil, nil
	}
	return discount, minFloat(pkg.BundlePrice, running), nil, nil
}

func rejectPackage(identifier string, reason models.RejectionCode, message string) *models.DiscountRejection {
	return &models.DiscountRejection{
		Kind:       models.DiscountKindPackage,
		Identifier: identifier,
		Code:       reason,
		Message:    message,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
