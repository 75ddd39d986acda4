package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderModeIntouch = "intouch"
	ProviderModeStub    = "stub"

	EventsBackendRedis    = "redis"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendNone     = "none"
)

type Config struct {
	DBUrl    string
	Port     string
	Env      string
	LogLevel string

	JWTSecret    string
	JWTExpiresIn time.Duration
	OTPExpiry    time.Duration

	ProviderMode         string
	IntouchBaseURL       string
	IntouchAPIKey        string
	IntouchWebhookSecret string
	ProviderTimeout      time.Duration
	WebhookTolerance     time.Duration
	StubSettleAfter      time.Duration

	PhonePrefix     string
	DefaultPageSize int
	MaxPageSize     int

	EventsBackend string
	RedisURL      string
	RedisPassword string
	AMQPURL       string

	ReconcileSchedule string
	ReconcileMinAge   time.Duration
	ReconcileBatch    int

	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
}

func LoadConfig() Config {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_EXPIRES_IN", "168h")
	v.SetDefault("OTP_EXPIRY", "5m")
	v.SetDefault("PROVIDER_MODE", ProviderModeIntouch)
	v.SetDefault("INTOUCH_BASE_URL", "https://sandbox.intouch.api/v1")
	v.SetDefault("PROVIDER_TIMEOUT", "10s")
	v.SetDefault("WEBHOOK_TOLERANCE", "0s")
	v.SetDefault("STUB_SETTLE_AFTER", "5s")
	v.SetDefault("PHONE_PREFIX", "221")
	v.SetDefault("DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("MAX_PAGE_SIZE", 100)
	v.SetDefault("EVENTS_BACKEND", EventsBackendNone)
	v.SetDefault("RECONCILE_MIN_AGE", "2m")
	v.SetDefault("RECONCILE_BATCH", 50)
	v.SetDefault("RATE_LIMIT", 5)
	v.SetDefault("RATE_BURST", 20)
	v.SetDefault("ALLOWED_ORIGINS", "*")

	cfg := Config{
		DBUrl:                required(v, "DATABASE_URL"),
		Port:                 v.GetString("PORT"),
		Env:                  v.GetString("ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		JWTSecret:            required(v, "JWT_SECRET"),
		JWTExpiresIn:         v.GetDuration("JWT_EXPIRES_IN"),
		OTPExpiry:            v.GetDuration("OTP_EXPIRY"),
		ProviderMode:         strings.ToLower(v.GetString("PROVIDER_MODE")),
		IntouchBaseURL:       v.GetString("INTOUCH_BASE_URL"),
		IntouchAPIKey:        v.GetString("INTOUCH_API_KEY"),
		IntouchWebhookSecret: required(v, "INTOUCH_WEBHOOK_SECRET"),
		ProviderTimeout:      v.GetDuration("PROVIDER_TIMEOUT"),
		WebhookTolerance:     v.GetDuration("WEBHOOK_TOLERANCE"),
		StubSettleAfter:      v.GetDuration("STUB_SETTLE_AFTER"),
		PhonePrefix:          v.GetString("PHONE_PREFIX"),
		DefaultPageSize:      v.GetInt("DEFAULT_PAGE_SIZE"),
		MaxPageSize:          v.GetInt("MAX_PAGE_SIZE"),
		EventsBackend:        strings.ToLower(v.GetString("EVENTS_BACKEND")),
		RedisURL:             v.GetString("REDIS_URL"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		AMQPURL:              v.GetString("RABBITMQ_URL"),
		ReconcileSchedule:    v.GetString("RECONCILE_SCHEDULE"),
		ReconcileMinAge:      v.GetDuration("RECONCILE_MIN_AGE"),
		ReconcileBatch:       v.GetInt("RECONCILE_BATCH"),
		RateLimit:            v.GetFloat64("RATE_LIMIT"),
		RateBurst:            v.GetInt("RATE_BURST"),
		AllowedOrigins:       splitList(v.GetString("ALLOWED_ORIGINS")),
	}

	if cfg.ProviderMode == ProviderModeIntouch && cfg.IntouchAPIKey == "" {
		panic("INTOUCH_API_KEY is required when PROVIDER_MODE=intouch")
	}
	if cfg.ProviderTimeout <= 0 {
		panic("PROVIDER_TIMEOUT must be a positive duration")
	}
	if cfg.MaxPageSize <= 0 || cfg.DefaultPageSize <= 0 || cfg.DefaultPageSize > cfg.MaxPageSize {
		panic("DEFAULT_PAGE_SIZE and MAX_PAGE_SIZE must be positive with DEFAULT_PAGE_SIZE <= MAX_PAGE_SIZE")
	}

	return cfg
}

func required(v *viper.Viper, key string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}

	panic(fmt.Sprintf("%s is required", key))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
