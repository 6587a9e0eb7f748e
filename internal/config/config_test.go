package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/feedwire/marketbot/internal/core"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()
	if cfg.Output != "telegram" {
		t.Fatalf("unexpected default output %q", cfg.Output)
	}
	if cfg.Feed.Kind != "xueqiu" {
		t.Fatalf("unexpected default feed kind %q", cfg.Feed.Kind)
	}
	if cfg.Poll.Interval != 2*time.Minute {
		t.Fatalf("unexpected default interval %v", cfg.Poll.Interval)
	}
	if cfg.Seen.Retention != 24*time.Hour {
		t.Fatalf("unexpected default retention %v", cfg.Seen.Retention)
	}
	if cfg.Poll.RetryBudget != 3 {
		t.Fatalf("unexpected default retry budget %d", cfg.Poll.RetryBudget)
	}
}

func TestLoadEnvReadsOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHANNEL_ID", "marketnews")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("FEED_COUNT", "25")
	t.Setenv("SEEN_BACKEND", "memory")

	cfg := LoadEnv()
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("unexpected token %q", cfg.Telegram.Token)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Fatalf("unexpected interval %v", cfg.Poll.Interval)
	}
	if cfg.Feed.Count != 25 {
		t.Fatalf("unexpected count %d", cfg.Feed.Count)
	}
	if cfg.Seen.Backend != "memory" {
		t.Fatalf("unexpected backend %q", cfg.Seen.Backend)
	}
}

func TestValidateRequiresTelegramSecrets(t *testing.T) {
	cfg := Config{Output: "telegram", Feed: FeedConfig{Kind: "xueqiu"}, Seen: SeenConfig{Backend: "sqlite"}}
	err := cfg.Validate()
	var cfgErr *core.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}

	cfg.Telegram = TelegramConfig{Token: "123:abc"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing channel id to fail")
	}

	cfg.Telegram.ChannelID = "marketnews"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresRSSFeedURL(t *testing.T) {
	cfg := Config{
		Output:   "telegram",
		Telegram: TelegramConfig{Token: "123:abc", ChannelID: "marketnews"},
		Feed:     FeedConfig{Kind: "rss"},
		Seen:     SeenConfig{Backend: "sqlite"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing rss url to fail")
	}
	cfg.Feed.URL = "https://example.com/feed.xml"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	cfg := Config{Output: "fax"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown output to fail")
	}
}

func TestDocumentOverlaysConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketbot.yaml")
	body := `
feed:
  kind: rss
  url: https://example.com/feed.xml
poll:
  interval: 5m
  filter: 'Text contains "Fed"'
seen:
  backend: memory
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}

	cfg := LoadEnv()
	doc.ApplyTo(&cfg)

	if cfg.Feed.Kind != "rss" || cfg.Feed.URL != "https://example.com/feed.xml" {
		t.Fatalf("unexpected feed config %+v", cfg.Feed)
	}
	if cfg.Poll.Interval != 5*time.Minute {
		t.Fatalf("unexpected interval %v", cfg.Poll.Interval)
	}
	if cfg.Poll.Filter == "" {
		t.Fatalf("expected filter expression to be set")
	}
	if cfg.Seen.Backend != "memory" {
		t.Fatalf("unexpected backend %q", cfg.Seen.Backend)
	}
	// Fields the document does not mention keep their env defaults.
	if cfg.Seen.Retention != 24*time.Hour {
		t.Fatalf("unexpected retention %v", cfg.Seen.Retention)
	}
}

func TestLoadDocumentRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("feed: ["), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	if _, err := LoadDocument(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("a=1, b = 2,broken")
	if headers["a"] != "1" || headers["b"] != "2" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if _, ok := headers["broken"]; ok {
		t.Fatalf("expected pair without = to be dropped")
	}
	if parseHeaders("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
