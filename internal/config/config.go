package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Catalog   CatalogConfig   `json:"catalog"`
	Pricing   PricingConfig   `json:"pricing"`
	Booking   BookingConfig   `json:"booking"`
	Jobs      JobsConfig      `json:"jobs"`
	Providers ProvidersConfig `json:"providers"`
	Analytics AnalyticsConfig `json:"analytics"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Bookings      string `json:"bookings"`
	Payments      string `json:"payments"`
	Notifications string `json:"notifications"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// CatalogConfig описывает настройки клиента каталога (rate card).
type CatalogConfig struct {
	Provider       string `json:"provider"` // offline | http
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// PricingConfig хранит параметры ценообразования и кешбэка.
type PricingConfig struct {
	Currency        string  `json:"currency"`
	CashbackPercent float64 `json:"cashback_percent"`
	CashbackCap     float64 `json:"cashback_cap"` // доля заказа, покрываемая кешбэком
}

// BookingConfig хранит параметры жизненного цикла бронирований.
type BookingConfig struct {
	HoldTTLHours     int `json:"hold_ttl_hours"`
	SweepIntervalSec int `json:"sweep_interval_sec"`
}

// JobsConfig описывает настройки durable-очереди задач.
type JobsConfig struct {
	MaxAttempts     int `json:"max_attempts"`
	BaseDelaySec    int `json:"base_delay_sec"`
	LeaseTimeoutSec int `json:"lease_timeout_sec"`
	PollIntervalSec int `json:"poll_interval_sec"`
	Workers         int `json:"workers"`
}

// ProvidersConfig хранит секреты верификации вебхуков по провайдерам.
type ProvidersConfig struct {
	CardSecret     string `json:"card_secret"`
	CryptoSecret   string `json:"crypto_secret"`
	StarsToken     string `json:"stars_token"`
	QRBankSecret   string `json:"qrbank_secret"`
	RegionalSecret string `json:"regional_secret"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// AnalyticsConfig хранит настройки аналитики
type AnalyticsConfig struct {
	CacheTTLMinutes       int `json:"cache_ttl_minutes"`
	DefaultTopLimit       int `json:"default_top_limit"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// Load загружает конфигурацию из переменных окружения.
// Локальный .env подхватывается, если присутствует (dev-окружение).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "booking_user"),
			Password: getEnv("DB_PASSWORD", "booking_pass"),
			DBName:   getEnv("DB_NAME", "booking_system"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "booking-service"),
			Topics: Topics{
				Bookings:      getEnv("KAFKA_TOPIC_BOOKINGS", "bookings"),
				Payments:      getEnv("KAFKA_TOPIC_PAYMENTS", "payments"),
				Notifications: getEnv("KAFKA_TOPIC_NOTIFICATIONS", "notifications"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Catalog: CatalogConfig{
			Provider:       getEnv("CATALOG_PROVIDER", "offline"),
			BaseURL:        getEnv("CATALOG_BASE_URL", ""),
			APIKey:         getEnv("CATALOG_API_KEY", ""),
			TimeoutSeconds: getEnvAsInt("CATALOG_TIMEOUT_SECONDS", 5),
		},
		Pricing: PricingConfig{
			Currency:        getEnv("PRICING_CURRENCY", "USD"),
			CashbackPercent: getEnvAsFloat("PRICING_CASHBACK_PERCENT", 5.0),
			CashbackCap:     getEnvAsFloat("PRICING_CASHBACK_CAP", 0.5),
		},
		Booking: BookingConfig{
			HoldTTLHours:     getEnvAsInt("BOOKING_HOLD_TTL_HOURS", 24),
			SweepIntervalSec: getEnvAsInt("BOOKING_SWEEP_INTERVAL_SECONDS", 300),
		},
		Jobs: JobsConfig{
			MaxAttempts:     getEnvAsInt("JOBS_MAX_ATTEMPTS", 3),
			BaseDelaySec:    getEnvAsInt("JOBS_BASE_DELAY_SECONDS", 30),
			LeaseTimeoutSec: getEnvAsInt("JOBS_LEASE_TIMEOUT_SECONDS", 120),
			PollIntervalSec: getEnvAsInt("JOBS_POLL_INTERVAL_SECONDS", 2),
			Workers:         getEnvAsInt("JOBS_WORKERS", 2),
		},
		Providers: ProvidersConfig{
			CardSecret:     getEnv("PROVIDER_CARD_SECRET", ""),
			CryptoSecret:   getEnv("PROVIDER_CRYPTO_SECRET", ""),
			StarsToken:     getEnv("PROVIDER_STARS_TOKEN", ""),
			QRBankSecret:   getEnv("PROVIDER_QRBANK_SECRET", ""),
			RegionalSecret: getEnv("PROVIDER_REGIONAL_SECRET", ""),
			TimeoutSeconds: getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 5),
		},
		Analytics: AnalyticsConfig{
			CacheTTLMinutes:       getEnvAsInt("ANALYTICS_CACHE_TTL_MINUTES", 10),
			DefaultTopLimit:       getEnvAsInt("ANALYTICS_DEFAULT_TOP_LIMIT", 5),
			RequestTimeoutSeconds: getEnvAsInt("ANALYTICS_REQUEST_TIMEOUT_SECONDS", 5),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat получает значение переменной окружения как float64 с значением по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}
