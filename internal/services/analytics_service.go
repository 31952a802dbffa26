package services

import (
	"context"
	"fmt"
	"time"

	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/redis"
)

const (
	DefaultTopBookablesLimit = 5
	defaultAnalyticsCacheTTL = 10 * time.Minute
)

// AnalyticsService агрегирует бизнес-метрики по оплаченным бронированиям
// и кеширует тяжёлые выборки.
type AnalyticsService struct {
	db         *database.DB
	redis      *redis.Client
	log        *logger.Logger
	cacheTTL   time.Duration
	defaultTop int
}

// NewAnalyticsService создает сервис аналитики.
func NewAnalyticsService(db *database.DB, redisClient *redis.Client, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsService {
	cacheTTL := defaultAnalyticsCacheTTL
	defaultTop := DefaultTopBookablesLimit

	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		if cfg.DefaultTopLimit > 0 {
			defaultTop = cfg.DefaultTopLimit
		}
	}

	return &AnalyticsService{
		db:         db,
		redis:      redisClient,
		log:        log,
		cacheTTL:   cacheTTL,
		defaultTop: defaultTop,
	}
}

// GetKPIs возвращает агрегированные KPI за период с кешированием.
func (s *AnalyticsService) GetKPIs(ctx context.Context, filter *models.AnalyticsFilter) (*models.KPIMetrics, error) {
	filter = s.normalizeFilter(filter)
	cacheKey := s.buildCacheKey("kpi", filter)

	var cached models.KPIMetrics
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	summary, err := s.fetchSummary(ctx, filter)
	if err != nil {
		return nil, err
	}

	topBookables, err := s.fetchTopBookables(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &models.KPIMetrics{
		From:          filter.From,
		To:            filter.To,
		Revenue:       summary.Revenue,
		BookingsCount: summary.BookingsCount,
		AverageCheck:  summary.AverageCheck,
		TotalDiscount: summary.TotalDiscount,
		TopBookables:  topBookables,
		GeneratedAt:   time.Now(),
	}

	s.saveToCache(ctx, cacheKey, result)
	return result, nil
}

// IncrementCounter увеличивает счётчик в Redis (задача analytics.increment).
func (s *AnalyticsService) IncrementCounter(ctx context.Context, counter string, delta float64) error {
	if s.redis == nil {
		return nil
	}
	key := redis.GenerateKey(redis.KeyPrefixCounter, counter)
	if _, err := s.redis.IncrByFloat(ctx, key, delta); err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", counter, err)
	}
	return nil
}

type kpiSummary struct {
	Revenue       float64
	BookingsCount int
	AverageCheck  float64
	TotalDiscount float64
}

func (s *AnalyticsService) fetchSummary(ctx context.Context, filter *models.AnalyticsFilter) (*kpiSummary, error) {
	query := `
		SELECT COALESCE(SUM(total_price), 0) AS revenue,
		       COUNT(*) AS bookings_count,
		       COALESCE(AVG(total_price), 0) AS average_check,
		       COALESCE(SUM(subtotal - total_price), 0) AS total_discount
	FROM bookings
	WHERE status IN ('paid', 'completed') AND paid_at BETWEEN $1 AND $2
	`

	row := s.db.QueryRowContext(ctx, query, filter.From, filter.To)
	summary := &kpiSummary{}
	if err := row.Scan(&summary.Revenue, &summary.BookingsCount, &summary.AverageCheck, &summary.TotalDiscount); err != nil {
		return nil, fmt.Errorf("failed to load KPI summary: %w", err)
	}

	return summary, nil
}

func (s *AnalyticsService) fetchTopBookables(ctx context.Context, filter *models.AnalyticsFilter) ([]models.TopBookable, error) {
	query := `
		SELECT bookable_type,
		       bookable_id,
		       COUNT(*) AS bookings,
		       COALESCE(SUM(total_price), 0) AS revenue
	FROM bookings
	WHERE status IN ('paid', 'completed') AND paid_at BETWEEN $1 AND $2
	GROUP BY bookable_type, bookable_id
	ORDER BY bookings DESC, revenue DESC, bookable_id ASC
	LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, filter.From, filter.To, filter.TopBookable)
	if err != nil {
		return nil, fmt.Errorf("failed to load top bookables: %w", err)
	}
	defer rows.Close()

	var result []models.TopBookable
	for rows.Next() {
		var item models.TopBookable
		if err := rows.Scan(&item.BookableType, &item.BookableID, &item.Bookings, &item.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top bookable: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top bookables: %w", err)
	}

	return result, nil
}

func (s *AnalyticsService) buildCacheKey(kind string, filter *models.AnalyticsFilter) string {
	return redis.GenerateKey(redis.KeyPrefixStats, fmt.Sprintf(
		"%s:%s:%s:%d",
		kind,
		filter.From.Format("2006-01-02"),
		filter.To.Format("2006-01-02"),
		filter.TopBookable,
	))
}

func (s *AnalyticsService) normalizeFilter(filter *models.AnalyticsFilter) *models.AnalyticsFilter {
	if filter.TopBookable <= 0 {
		filter.TopBookable = s.defaultTop
	}
	return filter
}

func (s *AnalyticsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}
	if err := s.redis.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *AnalyticsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache analytics result")
	}
}
