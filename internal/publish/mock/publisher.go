package mock

import (
	"context"

	"github.com/feedwire/marketbot/internal/core"
)

// Publisher records every publish call and fails on demand, either a fixed
// number of times per item or permanently.
type Publisher struct {
	Published []core.NewsItem

	// FailCount makes the first N publishes of an id fail transiently.
	FailCount map[string]int
	// PermanentFail makes every publish of an id fail permanently.
	PermanentFail map[string]bool

	attempts map[string]int
}

func (p *Publisher) Publish(_ context.Context, item core.NewsItem) error {
	if p.attempts == nil {
		p.attempts = make(map[string]int)
	}
	p.attempts[item.ID]++

	if p.PermanentFail[item.ID] {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: errFail}
	}
	if remaining := p.FailCount[item.ID]; remaining > 0 {
		p.FailCount[item.ID] = remaining - 1
		return &core.PublishError{ItemID: item.ID, Err: errFail}
	}
	p.Published = append(p.Published, item)
	return nil
}

// PublishedIDs returns the ids of successfully published items in order.
func (p *Publisher) PublishedIDs() []string {
	ids := make([]string, 0, len(p.Published))
	for _, item := range p.Published {
		ids = append(ids, item.ID)
	}
	return ids
}

// Attempts reports publish attempts per item id, including failures.
func (p *Publisher) Attempts(id string) int { return p.attempts[id] }

type failError struct{}

func (failError) Error() string { return "mock publish failure" }

var errFail = failError{}
