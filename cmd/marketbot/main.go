package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedwire/marketbot/internal/config"
	"github.com/feedwire/marketbot/internal/feed"
	"github.com/feedwire/marketbot/internal/feed/rssfeed"
	"github.com/feedwire/marketbot/internal/feed/xueqiu"
	"github.com/feedwire/marketbot/internal/filter"
	"github.com/feedwire/marketbot/internal/observability/otelx"
	"github.com/feedwire/marketbot/internal/poller"
	"github.com/feedwire/marketbot/internal/publish"
	"github.com/feedwire/marketbot/internal/publish/email"
	"github.com/feedwire/marketbot/internal/publish/telegram"
	"github.com/feedwire/marketbot/internal/seen"
	"github.com/feedwire/marketbot/internal/trigger"
)

func main() {
	configPath := flag.String("config", "", `path to config document (default "marketbot.yaml")`)
	runOnce := flag.Bool("run-once", getenvBool("RUN_ONCE", false), "run one poll cycle and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		path = os.Getenv("MARKETBOT_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = "marketbot.yaml"
	}

	cfg := config.LoadEnv()
	if err := applyConfigDocument(&cfg, path, explicit); err != nil {
		log.Fatalf("failed to load config document: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := otelx.Init(ctx, logger, cfg.OTel)
	if err != nil {
		log.Fatalf("failed to init otel: %v", err)
	}
	if shutdownOTel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(shutdownCtx)
		}()
	}

	store, err := newSeenStore(cfg.Seen)
	if err != nil {
		log.Fatalf("failed to open seen store: %v", err)
	}
	defer store.Close()

	fetcher, err := newFetcher(cfg.Feed)
	if err != nil {
		log.Fatalf("failed to build feed client: %v", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatalf("failed to build publisher: %v", err)
	}

	itemFilter, err := filter.Compile(cfg.Poll.Filter)
	if err != nil {
		log.Fatalf("failed to compile item filter: %v", err)
	}

	p, err := poller.New(fetcher, store, publisher, poller.Options{
		Interval:    cfg.Poll.Interval,
		Retention:   cfg.Seen.Retention,
		RetryBudget: cfg.Poll.RetryBudget,
		Filter:      itemFilter,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to build poller: %v", err)
	}

	logger.Info("marketbot started",
		"output", cfg.Output,
		"feed_kind", cfg.Feed.Kind,
		"poll_interval", cfg.Poll.Interval,
		"seen_backend", cfg.Seen.Backend,
	)

	if *runOnce {
		if err := p.RunCycle(ctx); err != nil {
			log.Fatalf("cycle failed: %v", err)
		}
		return
	}

	if cfg.Poll.Schedule != "" {
		cron := trigger.NewCron(cfg.Poll.Schedule, cfg.Poll.Timezone)
		events, err := cron.Start(ctx)
		if err != nil {
			log.Fatalf("failed to start cron trigger: %v", err)
		}
		if err := p.RunOnEvents(ctx, events); err != nil {
			log.Fatalf("poller stopped: %v", err)
		}
	} else {
		if err := p.Run(ctx); err != nil {
			log.Fatalf("poller stopped: %v", err)
		}
	}
	logger.Info("marketbot shut down")
}

// applyConfigDocument overlays the YAML document at path onto cfg. A missing
// file is only tolerated for the implicit default path; a path the user named
// explicitly must exist.
func applyConfigDocument(cfg *config.Config, path string, explicit bool) error {
	doc, err := config.LoadDocument(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return err
	}
	doc.ApplyTo(cfg)
	return nil
}

func newSeenStore(cfg config.SeenConfig) (seen.Store, error) {
	if cfg.Backend == "memory" {
		return seen.NewMemoryStore(), nil
	}
	return seen.NewSQLiteStore(cfg.DBPath, cfg.Table)
}

func newFetcher(cfg config.FeedConfig) (feed.Fetcher, error) {
	if cfg.Kind == "rss" {
		return rssfeed.NewFetcher(rssfeed.Config{
			FeedURL:   cfg.URL,
			Limit:     cfg.Limit,
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}), nil
	}
	return xueqiu.NewClient(xueqiu.Config{
		BaseURL:   cfg.URL,
		Category:  cfg.Category,
		Count:     cfg.Count,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})
}

func newPublisher(cfg config.Config) (publish.Publisher, error) {
	if cfg.Output == "email" {
		return email.NewPublisher(email.Config{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			To:                 cfg.SMTP.To,
			TLSMode:            cfg.SMTP.TLSMode,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	}
	return telegram.NewPublisher(telegram.Config{
		Token:     cfg.Telegram.Token,
		ChannelID: cfg.Telegram.ChannelID,
		Timeout:   cfg.Telegram.Timeout,
	})
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	default:
		return false
	}
}
