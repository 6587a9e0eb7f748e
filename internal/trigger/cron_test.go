package trigger

import (
	"context"
	"testing"
	"time"
)

func TestCronValidateRequiresSchedule(t *testing.T) {
	c := NewCron("", "")
	if err := c.Validate(); err == nil {
		t.Fatalf("expected missing schedule to fail validation")
	}
}

func TestCronValidateRejectsBadTimezone(t *testing.T) {
	c := NewCron("@every 1m", "Not/AZone")
	if err := c.Validate(); err == nil {
		t.Fatalf("expected bad timezone to fail validation")
	}
}

func TestCronEmitsEvents(t *testing.T) {
	c := NewCron("@every 100ms", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case event := <-events:
		if event.Timestamp.IsZero() {
			t.Fatalf("expected event timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a cron event")
	}
}

func TestCronStopClosesChannel(t *testing.T) {
	c := NewCron("@every 1h", "")
	ctx, cancel := context.WithCancel(context.Background())

	events, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected channel to close without events")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected channel to close after cancel")
	}
}
