package rssfeed

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/feedwire/marketbot/internal/core"
	"github.com/feedwire/marketbot/internal/retry"
	"github.com/mmcdole/gofeed"
)

// Config controls the RSS/Atom fetcher.
type Config struct {
	FeedURL   string
	Limit     int
	Timeout   time.Duration
	UserAgent string
}

// Fetcher pulls a single RSS or Atom feed and maps entries to NewsItems.
type Fetcher struct {
	feedURL string
	limit   int
	parser  *gofeed.Parser
}

func NewFetcher(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = cfg.UserAgent
	return &Fetcher{
		feedURL: cfg.FeedURL,
		limit:   cfg.Limit,
		parser:  parser,
	}
}

// FetchLatest returns the feed's current entries, newest-first. Feeds that
// publish without a GUID get a deterministic id derived from title and link.
func (f *Fetcher) FetchLatest(ctx context.Context) ([]core.NewsItem, error) {
	var parsed *gofeed.Feed
	err := retry.Do(ctx, retry.Config{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
		if err != nil {
			return err
		}
		parsed = feed
		return nil
	})
	if err != nil {
		return nil, &core.FetchError{Source: f.feedURL, Err: err}
	}

	items := make([]core.NewsItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		item := core.NewsItem{
			Title: entry.Title,
			Text:  entry.Description,
			URL:   entry.Link,
		}
		if entry.Content != "" {
			item.Text = entry.Content
		}
		if entry.GUID != "" {
			item.ID = entry.GUID
		} else {
			item.ID = core.DeriveID(entry.Title, entry.Link)
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = *entry.UpdatedParsed
		} else {
			item.PublishedAt = time.Now().UTC()
		}
		items = append(items, item)
	}

	// Most feeds are already newest-first; normalize so the documented
	// contract holds regardless of publisher quirks.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if f.limit > 0 && len(items) > f.limit {
		items = items[:f.limit]
	}
	return items, nil
}
