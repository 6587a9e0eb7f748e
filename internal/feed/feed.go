package feed

import (
	"context"

	"github.com/feedwire/marketbot/internal/core"
)

// Fetcher retrieves the upstream's current window of recent news items.
//
// Implementations return items newest-first. The window slides: consecutive
// fetches overlap, so callers must dedup by item id.
type Fetcher interface {
	FetchLatest(ctx context.Context) ([]core.NewsItem, error)
}
