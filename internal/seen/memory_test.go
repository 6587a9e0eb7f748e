package seen

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTracksSeenIDs(t *testing.T) {
	store := NewMemoryStore()

	seen, err := store.HasSeen(context.Background(), "abc")
	if err != nil {
		t.Fatalf("has seen failed: %v", err)
	}
	if seen {
		t.Fatalf("expected unseen id")
	}

	if err := store.MarkSeen(context.Background(), "abc", time.Now()); err != nil {
		t.Fatalf("mark seen failed: %v", err)
	}

	seen, err = store.HasSeen(context.Background(), "abc")
	if err != nil {
		t.Fatalf("has seen failed: %v", err)
	}
	if !seen {
		t.Fatalf("expected seen id")
	}
}

func TestMemoryStoreEvictsOldEntries(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := store.MarkSeen(context.Background(), "old", base); err != nil {
		t.Fatalf("mark seen failed: %v", err)
	}
	if err := store.MarkSeen(context.Background(), "fresh", base.Add(2*time.Hour)); err != nil {
		t.Fatalf("mark seen failed: %v", err)
	}

	if err := store.EvictOlderThan(context.Background(), base.Add(time.Hour)); err != nil {
		t.Fatalf("evict failed: %v", err)
	}

	if seen, _ := store.HasSeen(context.Background(), "old"); seen {
		t.Fatalf("expected old id to be evicted")
	}
	if seen, _ := store.HasSeen(context.Background(), "fresh"); !seen {
		t.Fatalf("expected fresh id to survive eviction")
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", store.Len())
	}
}

func TestMemoryStoreIgnoresEmptyID(t *testing.T) {
	store := NewMemoryStore()
	if err := store.MarkSeen(context.Background(), "", time.Now()); err != nil {
		t.Fatalf("mark seen failed: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty id to be ignored")
	}
}
