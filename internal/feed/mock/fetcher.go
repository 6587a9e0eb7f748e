package mock

import (
	"context"

	"github.com/feedwire/marketbot/internal/core"
)

// Fetcher replays scripted batches, one per FetchLatest call. After the
// script runs out the last batch repeats, mimicking a quiet upstream window.
type Fetcher struct {
	Batches [][]core.NewsItem
	Errs    []error

	calls int
}

func (f *Fetcher) FetchLatest(ctx context.Context) ([]core.NewsItem, error) {
	_ = ctx
	call := f.calls
	f.calls++
	if call < len(f.Errs) && f.Errs[call] != nil {
		return nil, f.Errs[call]
	}
	if len(f.Batches) == 0 {
		return nil, nil
	}
	if call >= len(f.Batches) {
		call = len(f.Batches) - 1
	}
	batch := f.Batches[call]
	out := make([]core.NewsItem, len(batch))
	copy(out, batch)
	return out, nil
}

// Calls reports how many times FetchLatest ran.
func (f *Fetcher) Calls() int { return f.calls }
