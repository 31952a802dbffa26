package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/handlers"
	"booking-system/internal/jobs"
	"booking-system/internal/kafka"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/providers"
	"booking-system/internal/redis"
	"booking-system/internal/services"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	runner   *jobs.Runner
	bookings *services.BookingService
	giftCard *services.GiftCardService
	mux      *http.ServeMux
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting booking system server...")

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go app.runSweeper(sweepCtx)
	app.runner.Start()

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stopSweeper()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	app.runner.Stop()
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// runSweeper периодически истекает брошенные брони и просроченные карты.
func (app *application) runSweeper(ctx context.Context) {
	interval := time.Duration(app.cfg.Booking.SweepIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.bookings.ExpireAbandoned(ctx); err != nil {
				app.log.WithError(err).Error("Failed to expire abandoned bookings")
			}
			if _, err := app.giftCard.ExpireGiftCards(ctx); err != nil {
				app.log.WithError(err).Error("Failed to expire gift cards")
			}
		}
	}
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	registry := providers.NewRegistry(&cfg.Providers)

	catalogService := services.NewCatalogService(redisClient, log, &cfg.Catalog)
	promoService := services.NewPromoService(db, log)
	giftCardService := services.NewGiftCardService(db, log)
	cashbackService := services.NewCashbackService(db, log, &cfg.Pricing)
	pricingService := services.NewPricingService(db, log, catalogService, promoService, giftCardService, cashbackService)
	jobService := services.NewJobService(db, log, &cfg.Jobs)
	bookingService := services.NewBookingService(db, log, &cfg.Booking,
		pricingService, promoService, giftCardService, cashbackService, jobService, catalogService, producer)
	paymentService := services.NewPaymentService(db, log, registry, bookingService, jobService, producer, &cfg.Pricing, &cfg.Providers)
	invoiceService := services.NewInvoiceService(db, log)
	analyticsService := services.NewAnalyticsService(db, redisClient, log, &cfg.Analytics)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	runner := jobs.NewRunner(jobService, log, &cfg.Jobs)
	jobs.NewHandlers(log, bookingService, paymentService, invoiceService, analyticsService, producer).RegisterAll(runner)

	pricingHandler := handlers.NewPricingHandler(bookingService, log)
	bookingHandler := handlers.NewBookingHandler(bookingService, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, log)
	webhookHandler := handlers.NewWebhookHandler(registry, paymentService, log)
	promoHandler := handlers.NewPromoHandler(promoService, log)
	giftCardHandler := handlers.NewGiftCardHandler(giftCardService, log)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, log, &cfg.Analytics)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck)
	rateLimitHandler := handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit)

	registerEventHandlers(consumer, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(pricingHandler, bookingHandler, paymentHandler, webhookHandler,
		promoHandler, giftCardHandler, analyticsHandler, healthHandler, rateLimitHandler, rateLimiter, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		runner:   runner,
		bookings: bookingService,
		giftCard: giftCardService,
		mux:      mux,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(pricingHandler *handlers.PricingHandler, bookingHandler *handlers.BookingHandler,
	paymentHandler *handlers.PaymentHandler, webhookHandler *handlers.WebhookHandler,
	promoHandler *handlers.PromoHandler, giftCardHandler *handlers.GiftCardHandler,
	analyticsHandler *handlers.AnalyticsHandler, healthHandler *handlers.HealthHandler,
	rateLimitHandler *handlers.RateLimitHandler, rateLimiter *services.RateLimiter, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	applyAPI := func(h http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(rateLimiter, log, h))
	}

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(healthHandler.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(healthHandler.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(healthHandler.Liveness))

	// Pricing endpoints
	mux.HandleFunc("/api/price/quote", applyAPI(pricingHandler.Quote))

	// Booking endpoints
	mux.HandleFunc("/api/bookings", applyAPI(handleBookingsRoute(bookingHandler)))
	mux.HandleFunc("/api/bookings/", applyAPI(bookingHandler.HandleBookingByReference))

	// Payment endpoints
	mux.HandleFunc("/api/payments/intents", applyAPI(paymentHandler.CreateIntent))
	mux.HandleFunc("/api/payments/intents/", applyAPI(paymentHandler.GetIntent))

	// Provider webhooks: без rate limiter, ретраи провайдера не троттлим.
	mux.HandleFunc("/webhooks/", webhookHandler.Handle)

	// Promo codes endpoints
	mux.HandleFunc("/api/promo-codes", applyAPI(handlePromoCodesRoute(promoHandler)))
	mux.HandleFunc("/api/promo-codes/", applyAPI(handlePromoCodeRoute(promoHandler)))

	// Gift card endpoints
	mux.HandleFunc("/api/gift-cards", applyAPI(giftCardHandler.CreateGiftCard))
	mux.HandleFunc("/api/gift-cards/", applyAPI(giftCardHandler.HandleGiftCardByCode))

	// Analytics endpoints
	mux.HandleFunc("/api/analytics/kpi", applyAPI(analyticsHandler.GetKPIs))

	// Rate limit status
	mux.HandleFunc("/api/rate-limit/status", applyAPI(rateLimitHandler.Status))

	return mux
}

// handleBookingsRoute обрабатывает маршруты для коллекции бронирований
func handleBookingsRoute(handler *handlers.BookingHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ListBookings(w, r)
		case http.MethodPost:
			handler.CreateBooking(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handlePromoCodesRoute обрабатывает коллекцию промокодов
func handlePromoCodesRoute(handler *handlers.PromoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ListPromoCodes(w, r)
		case http.MethodPost:
			handler.CreatePromoCode(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handlePromoCodeRoute обрабатывает отдельный промокод
func handlePromoCodeRoute(handler *handlers.PromoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			handler.GetPromoCode(w, r)
			return
		}
		if r.Method == http.MethodPut {
			handler.UpdatePromoCode(w, r)
			return
		}
		if r.Method == http.MethodDelete {
			handler.DeletePromoCode(w, r)
			return
		}
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeBookingCreated, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing booking created event")
		return nil
	})

	consumer.RegisterHandler(models.EventTypeBookingPaid, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing booking paid event")
		return nil
	})
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	type errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
