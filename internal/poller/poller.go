package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/feedwire/marketbot/internal/core"
	"github.com/feedwire/marketbot/internal/feed"
	"github.com/feedwire/marketbot/internal/filter"
	"github.com/feedwire/marketbot/internal/publish"
	"github.com/feedwire/marketbot/internal/seen"
	"github.com/feedwire/marketbot/internal/trigger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInterval    = 2 * time.Minute
	defaultRetention   = 24 * time.Hour
	defaultRetryBudget = 3
)

// Options tune the poll loop. Zero values fall back to defaults.
type Options struct {
	// Interval between cycles in fixed-interval mode.
	Interval time.Duration
	// Retention is how long seen ids are kept before passive eviction.
	// Must comfortably exceed the upstream window's age span.
	Retention time.Duration
	// RetryBudget is the number of publish attempts per item before it is
	// abandoned as poison (marked seen without a successful publish).
	RetryBudget int
	// Filter drops items that do not match; nil passes everything.
	Filter *filter.Filter
	// Now is the clock; tests inject a fixed one.
	Now func() time.Time

	Logger *slog.Logger
}

// Poller owns the fetch → filter-by-seen → publish → mark-seen cycle.
// Exactly one cycle runs at a time; the seen store has no other writers.
type Poller struct {
	fetcher   feed.Fetcher
	store     seen.Store
	publisher publish.Publisher
	filter    *filter.Filter

	interval    time.Duration
	retention   time.Duration
	retryBudget int
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer

	// Transient publish failures per item id. In-memory on purpose: after
	// a restart the budget resets, which only delays abandonment.
	attempts map[string]int
	cycles   uint64
}

func New(fetcher feed.Fetcher, store seen.Store, publisher publish.Publisher, opts Options) (*Poller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("seen store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	retryBudget := opts.RetryBudget
	if retryBudget <= 0 {
		retryBudget = defaultRetryBudget
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher:     fetcher,
		store:       store,
		publisher:   publisher,
		filter:      opts.Filter,
		interval:    interval,
		retention:   retention,
		retryBudget: retryBudget,
		now:         now,
		logger:      logger,
		tracer:      otel.Tracer("marketbot/poller"),
		attempts:    make(map[string]int),
	}, nil
}

// Run executes cycles on the fixed interval until ctx is cancelled.
// Cancellation is honored during the sleep, so shutdown latency is bounded
// by one in-flight cycle.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if err := p.RunCycle(ctx); err != nil {
			return err
		}
		timer.Reset(p.interval)
	}
}

// RunOnEvents executes one cycle per trigger event (cron mode) until the
// channel closes or ctx is cancelled.
func (p *Poller) RunOnEvents(ctx context.Context, events <-chan trigger.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			p.logger.Info("trigger event", "time", event.Timestamp)
			if err := p.RunCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// RunCycle executes exactly one poll cycle. Fetch failures and per-item
// publish failures are logged and isolated; only seen-store failures (the
// loop cannot make progress without it) propagate.
func (p *Poller) RunCycle(ctx context.Context) error {
	p.cycles++
	cycleStart := p.now()
	cycleID := fmt.Sprintf("cycle-%d", p.cycles)

	logger := p.logger.With("cycle_id", cycleID, "cycle_start", cycleStart)
	ctx = core.WithLogger(core.WithCycleID(ctx, cycleID), logger)

	ctx, span := p.tracer.Start(ctx, "poller.cycle", trace.WithAttributes(
		attribute.String("cycle.id", cycleID),
	))
	defer span.End()

	if err := p.store.EvictOlderThan(ctx, cycleStart.Add(-p.retention)); err != nil {
		span.SetStatus(codes.Error, "evict failed")
		return fmt.Errorf("evict seen store: %w", err)
	}

	items, err := p.fetcher.FetchLatest(ctx)
	if err != nil {
		// One bad fetch must not terminate the loop.
		logger.Warn("fetch failed, skipping cycle", "error", err)
		span.RecordError(err)
		return nil
	}
	span.SetAttributes(attribute.Int("fetch.items", len(items)))

	unseen, err := p.filterUnseen(ctx, items)
	if err != nil {
		span.SetStatus(codes.Error, "seen filter failed")
		return err
	}
	if len(unseen) == 0 {
		logger.Info("no new items", "fetched", len(items))
		return nil
	}

	// The fetcher returns newest-first; publish oldest-first so the channel
	// reads chronologically.
	published := 0
	for i := len(unseen) - 1; i >= 0; i-- {
		ok, err := p.publishOne(ctx, unseen[i], cycleStart)
		if err != nil {
			span.SetStatus(codes.Error, "mark seen failed")
			return err
		}
		if ok {
			published++
		}
	}
	logger.Info("cycle complete", "fetched", len(items), "new", len(unseen), "published", published)
	span.SetAttributes(attribute.Int("publish.count", published))
	return nil
}

// filterUnseen keeps only items whose id is not in the seen store,
// preserving upstream order.
func (p *Poller) filterUnseen(ctx context.Context, items []core.NewsItem) ([]core.NewsItem, error) {
	unseen := make([]core.NewsItem, 0, len(items))
	inBatch := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" || inBatch[item.ID] {
			continue
		}
		has, err := p.store.HasSeen(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("check seen store: %w", err)
		}
		if has {
			continue
		}
		inBatch[item.ID] = true
		unseen = append(unseen, item)
	}
	return unseen, nil
}

// publishOne delivers a single item and settles its seen-store state. The
// returned bool reports a successful publish; the error is only non-nil for
// store failures.
func (p *Poller) publishOne(ctx context.Context, item core.NewsItem, at time.Time) (bool, error) {
	logger := core.LoggerFromContext(ctx).With("item_id", item.ID)

	if p.filter != nil {
		matched, err := p.filter.Match(item)
		if err != nil {
			logger.Error("filter evaluation failed, item passed through", "error", err)
			matched = true
		}
		if !matched {
			logger.Info("item filtered out")
			return false, p.markSeen(ctx, item.ID, at)
		}
	}

	ctx, span := p.tracer.Start(ctx, "poller.publish", trace.WithAttributes(
		attribute.String("item.id", item.ID),
	))
	defer span.End()

	err := p.publisher.Publish(ctx, item)
	if err == nil {
		delete(p.attempts, item.ID)
		logger.Info("published", "published_at", item.PublishedAt)
		return true, p.markSeen(ctx, item.ID, at)
	}
	span.RecordError(err)

	var pubErr *core.PublishError
	if errors.As(err, &pubErr) && pubErr.Permanent {
		// No amount of retrying fixes a permanently rejected item.
		logger.Error("publish permanently failed, abandoning item", "error", err)
		delete(p.attempts, item.ID)
		return false, p.markSeen(ctx, item.ID, at)
	}

	p.attempts[item.ID]++
	if p.attempts[item.ID] >= p.retryBudget {
		logger.Error("publish retry budget exhausted, abandoning poison item",
			"error", err, "attempts", p.attempts[item.ID])
		delete(p.attempts, item.ID)
		return false, p.markSeen(ctx, item.ID, at)
	}
	logger.Warn("publish failed, will retry next cycle",
		"error", err, "attempts", p.attempts[item.ID])
	return false, nil
}

func (p *Poller) markSeen(ctx context.Context, id string, at time.Time) error {
	if err := p.store.MarkSeen(ctx, id, at); err != nil {
		return fmt.Errorf("mark seen %s: %w", id, err)
	}
	return nil
}
