package seen

import (
	"context"
	"time"
)

// Store tracks item identifiers that have already been published (or
// abandoned). The poller is the only writer.
//
// An id must never be marked seen before its publish attempt completes;
// crashing between mark and publish would silently drop the item.
type Store interface {
	// HasSeen reports whether id was previously marked. O(1).
	HasSeen(ctx context.Context, id string) (bool, error)
	// MarkSeen records id at the given timestamp. Re-marking an already
	// seen id is a no-op beyond refreshing its timestamp.
	MarkSeen(ctx context.Context, id string, at time.Time) error
	// EvictOlderThan drops entries whose mark timestamp is older than
	// horizon. Called once per poll cycle; old ids never reappear in the
	// upstream window, so the store stays bounded.
	EvictOlderThan(ctx context.Context, horizon time.Time) error
	Close() error
}
