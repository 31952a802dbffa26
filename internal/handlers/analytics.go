package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"
)

const defaultTopLimitFallback = 5

// AnalyticsHandler обрабатывает эндпоинты аналитики.
type AnalyticsHandler struct {
	service AnalyticsProvider
	log     *logger.Logger
	cfg     *config.AnalyticsConfig
}

// NewAnalyticsHandler создает новый обработчик аналитики.
func NewAnalyticsHandler(service AnalyticsProvider, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		log:     log,
		cfg:     cfg,
	}
}

// GetKPIs возвращает KPI по оплаченным бронированиям за период.
func (h *AnalyticsHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter, err := parseAnalyticsFilter(r, h.cfg)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyticsTimeout(h.cfg))
	defer cancel()

	metrics, err := h.service.GetKPIs(ctx, filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to load KPI metrics")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to load analytics")
		return
	}

	writeJSONResponse(w, http.StatusOK, metrics)
}

func parseAnalyticsFilter(r *http.Request, cfg *config.AnalyticsConfig) (*models.AnalyticsFilter, error) {
	query := r.URL.Query()
	now := time.Now().UTC()

	to := endOfDay(now)
	if toParam := query.Get("to"); toParam != "" {
		parsed, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return nil, fmt.Errorf("invalid 'to' date, expected YYYY-MM-DD")
		}
		to = endOfDay(parsed)
	}

	from := startOfDay(now.AddDate(0, 0, -29))
	if fromParam := query.Get("from"); fromParam != "" {
		parsed, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return nil, fmt.Errorf("invalid 'from' date, expected YYYY-MM-DD")
		}
		from = startOfDay(parsed)
	}

	if from.After(to) {
		return nil, fmt.Errorf("'from' date must be before 'to' date")
	}

	topDefault := defaultTopLimitFallback
	if cfg != nil && cfg.DefaultTopLimit > 0 {
		topDefault = cfg.DefaultTopLimit
	}

	return &models.AnalyticsFilter{
		From:        from,
		To:          to,
		TopBookable: parseIntWithDefault(query.Get("top_limit"), topDefault),
	}, nil
}

func parseIntWithDefault(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), time.UTC)
}

func analyticsTimeout(cfg *config.AnalyticsConfig) time.Duration {
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}
