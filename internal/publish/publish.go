package publish

import (
	"context"

	"github.com/feedwire/marketbot/internal/core"
)

// Publisher delivers one news item to the destination channel.
//
// The poller calls Publish at most once per item per cycle. Failures are
// reported as *core.PublishError; transient ones are retried on later
// cycles, permanent ones abandon the item.
type Publisher interface {
	Publish(ctx context.Context, item core.NewsItem) error
}
