package services

import (
	"testing"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
)

func TestFeedStoreUpsertDeduplicatesByID(t *testing.T) {
	store := NewFeedStore()

	store.Upsert(domain.TimelinePost{ID: "a", Caption: "first"})
	store.Upsert(domain.TimelinePost{ID: "a", Caption: "second"})

	posts := store.Snapshot()
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].Caption != "second" {
		t.Fatalf("expected later event to win, got caption %q", posts[0].Caption)
	}
}

// Un update ne déplace jamais un post : A, B, puis update de A doit laisser
// B en tête (ordre anté-chronologique d'insertion).
func TestFeedStoreOrderStableAcrossUpdate(t *testing.T) {
	store := NewFeedStore()

	store.Upsert(domain.TimelinePost{ID: "a", Caption: "a1"})
	store.Upsert(domain.TimelinePost{ID: "b", Caption: "b1"})
	store.Upsert(domain.TimelinePost{ID: "a", Caption: "a2"})

	posts := store.Snapshot()
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "b" || posts[1].ID != "a" {
		t.Fatalf("expected order [b a], got [%s %s]", posts[0].ID, posts[1].ID)
	}
	if posts[1].Caption != "a2" {
		t.Fatalf("expected updated caption, got %q", posts[1].Caption)
	}
}

func TestFeedStoreObserverFiresOncePerUpsert(t *testing.T) {
	store := NewFeedStore()

	var calls int
	store.SetObserver(func() { calls++ })

	store.Upsert(domain.TimelinePost{ID: "a"})
	store.Upsert(domain.TimelinePost{ID: "a", Caption: "update"})
	store.Upsert(domain.TimelinePost{ID: "b"})

	if calls != 3 {
		t.Fatalf("expected 3 observer calls, got %d", calls)
	}
}

// L'observer peut relire via Snapshot sans deadlock : il est invoqué hors lock.
func TestFeedStoreObserverCanSnapshot(t *testing.T) {
	store := NewFeedStore()

	var seen int
	store.SetObserver(func() { seen = len(store.Snapshot()) })

	store.Upsert(domain.TimelinePost{ID: "a"})
	if seen != 1 {
		t.Fatalf("expected observer to see 1 post, got %d", seen)
	}
}

func TestFeedStoreSetObserverLastWriterWins(t *testing.T) {
	store := NewFeedStore()

	var first, second int
	store.SetObserver(func() { first++ })
	store.SetObserver(func() { second++ })

	store.Upsert(domain.TimelinePost{ID: "a"})
	if first != 0 || second != 1 {
		t.Fatalf("expected only the last observer to fire, got first=%d second=%d", first, second)
	}
}

func TestFeedStoreSnapshotReturnsCopy(t *testing.T) {
	store := NewFeedStore()
	store.Upsert(domain.TimelinePost{ID: "a", Caption: "original"})

	posts := store.Snapshot()
	posts[0].Caption = "mutated"

	again := store.Snapshot()
	if again[0].Caption != "original" {
		t.Fatalf("expected internal data unchanged, got %q", again[0].Caption)
	}
}
