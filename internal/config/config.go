// README: Config loader with env defaults for HTTP, storage, messaging, payments, maps and pricing settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}
	// An empty DSN, Redis address, broker list or AMQP URL selects the
	// in-process fallback for that dependency.
	DB struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	AMQP struct {
		URL      string
		Exchange string
	}
	Payments struct {
		StripeKey            string
		Currency             string
		CancellationFeeCents int64
	}
	Maps struct {
		APIKey   string
		Language string
		Region   string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
		// PushTopicPrefix enables FCM ride notifications when set.
		PushTopicPrefix string
	}
	Pricing struct {
		Currency string
		Timezone string
	}
	Matching struct {
		RadiusKm float64
	}
	Lock struct {
		TTL time.Duration
	}
	Log struct {
		Level string
	}
}

func Load() (Config, error) {
	var cfg Config
	var errs []error

	cfg.HTTP.Addr = envOrDefault("RIDESHARE_HTTP_ADDR", ":8080")
	cfg.HTTP.ReadTimeout = envOrDefaultDuration("RIDESHARE_HTTP_READ_TIMEOUT", 5*time.Second, &errs)
	cfg.HTTP.WriteTimeout = envOrDefaultDuration("RIDESHARE_HTTP_WRITE_TIMEOUT", 10*time.Second, &errs)
	cfg.HTTP.IdleTimeout = envOrDefaultDuration("RIDESHARE_HTTP_IDLE_TIMEOUT", 120*time.Second, &errs)
	cfg.HTTP.ShutdownTimeout = envOrDefaultDuration("RIDESHARE_HTTP_SHUTDOWN_TIMEOUT", 15*time.Second, &errs)

	cfg.DB.DSN = strings.TrimSpace(os.Getenv("RIDESHARE_DB_DSN"))
	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("RIDESHARE_REDIS_ADDR"))
	cfg.Redis.Password = os.Getenv("RIDESHARE_REDIS_PASSWORD")
	cfg.Kafka.Brokers = splitAndTrim(os.Getenv("RIDESHARE_KAFKA_BROKERS"))
	cfg.Kafka.Topic = envOrDefault("RIDESHARE_KAFKA_TOPIC", "ride-events")
	cfg.AMQP.URL = strings.TrimSpace(os.Getenv("RIDESHARE_AMQP_URL"))
	cfg.AMQP.Exchange = envOrDefault("RIDESHARE_AMQP_EXCHANGE", "ride_topic")

	cfg.Payments.StripeKey = os.Getenv("RIDESHARE_STRIPE_SECRET_KEY")
	cfg.Payments.Currency = strings.ToLower(envOrDefault("RIDESHARE_PAYMENT_CURRENCY", "usd"))
	cfg.Payments.CancellationFeeCents = envOrDefaultInt64("RIDESHARE_CANCELLATION_FEE_CENTS", 500, &errs)

	cfg.Maps.APIKey = os.Getenv("RIDESHARE_MAPS_API_KEY")
	cfg.Maps.Language = envOrDefault("RIDESHARE_MAPS_LANGUAGE", "en")
	cfg.Maps.Region = os.Getenv("RIDESHARE_MAPS_REGION")

	cfg.Firebase.ProjectID = os.Getenv("RIDESHARE_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("RIDESHARE_FIREBASE_CREDENTIALS")
	cfg.Firebase.PushTopicPrefix = strings.TrimSpace(os.Getenv("RIDESHARE_FCM_TOPIC_PREFIX"))

	cfg.Pricing.Currency = strings.ToUpper(envOrDefault("RIDESHARE_PRICING_CURRENCY", "USD"))
	cfg.Pricing.Timezone = envOrDefault("RIDESHARE_PRICING_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(cfg.Pricing.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid RIDESHARE_PRICING_TIMEZONE: %w", err))
	}

	cfg.Matching.RadiusKm = envOrDefaultFloat("RIDESHARE_MATCH_RADIUS_KM", 5.0, &errs)
	cfg.Lock.TTL = envOrDefaultDuration("RIDESHARE_LOCK_TTL", 10*time.Second, &errs)
	cfg.Log.Level = strings.ToLower(envOrDefault("RIDESHARE_LOG_LEVEL", "info"))

	if cfg.Firebase.ProjectID == "" {
		errs = append(errs, errors.New("RIDESHARE_FIREBASE_PROJECT_ID is required"))
	}
	if cfg.Matching.RadiusKm <= 0 {
		errs = append(errs, errors.New("RIDESHARE_MATCH_RADIUS_KM must be > 0"))
	}
	if cfg.Payments.CancellationFeeCents < 0 {
		errs = append(errs, errors.New("RIDESHARE_CANCELLATION_FEE_CENTS must be >= 0"))
	}
	if cfg.Lock.TTL <= 0 {
		errs = append(errs, errors.New("RIDESHARE_LOCK_TTL must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// PricingLocation is the zone whose wall clock decides peak and night hours.
func (c Config) PricingLocation() *time.Location {
	loc, err := time.LoadLocation(c.Pricing.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt64(key string, def int64, errs *[]error) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return def
		}
		return n
	}
	return def
}

func envOrDefaultFloat(key string, def float64, errs *[]error) float64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return def
		}
		return n
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration, errs *[]error) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return def
		}
		return d
	}
	return def
}

func splitAndTrim(v string) []string {
	var out []string
	for _, r := range strings.Split(v, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
