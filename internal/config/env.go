package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/feedwire/marketbot/internal/core"
)

// Config is the full runtime configuration, loaded from the environment and
// optionally overridden by a YAML document (secrets stay env-only).
type Config struct {
	Output   string
	Telegram TelegramConfig
	Feed     FeedConfig
	Poll     PollConfig
	Seen     SeenConfig
	SMTP     SMTPConfig
	OTel     OTelConfig
}

type TelegramConfig struct {
	Token     string
	ChannelID string
	Timeout   time.Duration
}

type FeedConfig struct {
	// Kind selects the upstream client: "xueqiu" (default) or "rss".
	Kind      string
	URL       string
	Category  int
	Count     int
	Limit     int
	Timeout   time.Duration
	UserAgent string
}

type PollConfig struct {
	Interval    time.Duration
	Schedule    string
	Timezone    string
	RetryBudget int
	Filter      string
}

type SeenConfig struct {
	// Backend is "sqlite" (default, at-most-once across restarts) or
	// "memory" (at-least-once across restarts, duplicates possible).
	Backend   string
	DBPath    string
	Table     string
	Retention time.Duration
}

type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	To                 string
	TLSMode            string
	InsecureSkipVerify bool
}

type OTelConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

func LoadEnv() Config {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	return Config{
		Output: strings.ToLower(envString("OUTPUT", "telegram")),
		Telegram: TelegramConfig{
			Token:     strings.TrimSpace(envString("BOT_TOKEN", "")),
			ChannelID: strings.TrimSpace(envString("CHANNEL_ID", "")),
			Timeout:   envDuration("TELEGRAM_HTTP_TIMEOUT", 10*time.Second),
		},
		Feed: FeedConfig{
			Kind:      strings.ToLower(envString("FEED_KIND", "xueqiu")),
			URL:       strings.TrimSpace(envString("FEED_URL", "")),
			Category:  envInt("FEED_CATEGORY", 6),
			Count:     envInt("FEED_COUNT", 10),
			Limit:     envInt("FEED_LIMIT", 0),
			Timeout:   envDuration("FEED_HTTP_TIMEOUT", 15*time.Second),
			UserAgent: envString("FEED_USER_AGENT", ""),
		},
		Poll: PollConfig{
			Interval:    envDuration("POLL_INTERVAL", 2*time.Minute),
			Schedule:    strings.TrimSpace(envString("POLL_SCHEDULE", "")),
			Timezone:    strings.TrimSpace(envString("POLL_TIMEZONE", "")),
			RetryBudget: envInt("PUBLISH_RETRY_BUDGET", 3),
			Filter:      strings.TrimSpace(envString("ITEM_FILTER", "")),
		},
		Seen: SeenConfig{
			Backend:   strings.ToLower(envString("SEEN_BACKEND", "sqlite")),
			DBPath:    envString("SEEN_DB_PATH", "data/seen.db"),
			Table:     envString("SEEN_TABLE", ""),
			Retention: envDuration("SEEN_RETENTION", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:               strings.TrimSpace(envString("SMTP_HOST", "")),
			Port:               envInt("SMTP_PORT", 587),
			Username:           strings.TrimSpace(envString("SMTP_USER", "")),
			Password:           envString("SMTP_PASSWORD", ""),
			From:               strings.TrimSpace(envString("SMTP_FROM", "")),
			To:                 strings.TrimSpace(envString("SMTP_TO", "")),
			TLSMode:            strings.ToLower(strings.TrimSpace(envString("SMTP_TLS_MODE", "auto"))),
			InsecureSkipVerify: envBool("SMTP_TLS_INSECURE_SKIP_VERIFY", false),
		},
		OTel: OTelConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "marketbot")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

// Validate checks the startup invariants. Missing secrets for the selected
// output are fatal configuration errors.
func (c *Config) Validate() error {
	switch c.Output {
	case "telegram":
		if c.Telegram.Token == "" {
			return &core.ConfigError{Field: "BOT_TOKEN"}
		}
		if c.Telegram.ChannelID == "" {
			return &core.ConfigError{Field: "CHANNEL_ID"}
		}
	case "email":
		if c.SMTP.Host == "" {
			return &core.ConfigError{Field: "SMTP_HOST"}
		}
		if c.SMTP.To == "" {
			return &core.ConfigError{Field: "SMTP_TO"}
		}
	default:
		return &core.ConfigError{Field: "OUTPUT", Err: errUnknownValue(c.Output)}
	}

	switch c.Feed.Kind {
	case "xueqiu":
	case "rss":
		if c.Feed.URL == "" {
			return &core.ConfigError{Field: "FEED_URL"}
		}
	default:
		return &core.ConfigError{Field: "FEED_KIND", Err: errUnknownValue(c.Feed.Kind)}
	}

	switch c.Seen.Backend {
	case "sqlite", "memory":
	default:
		return &core.ConfigError{Field: "SEEN_BACKEND", Err: errUnknownValue(c.Seen.Backend)}
	}
	return nil
}

type errUnknownValue string

func (e errUnknownValue) Error() string { return "unknown value " + strconv.Quote(string(e)) }

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseHeaders handles the OTLP "k1=v1,k2=v2" header convention.
func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.ToLower(strings.TrimSpace(endpoint))
	if endpoint == "" {
		return true
	}
	if strings.HasPrefix(endpoint, "https://") {
		return false
	}
	if strings.HasPrefix(endpoint, "http://") {
		return true
	}
	return strings.Contains(endpoint, "localhost") || strings.Contains(endpoint, "127.0.0.1")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
