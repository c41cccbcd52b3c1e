package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yair/whats-on/pkg/domain"
)

type mockSource struct {
	fetchEventsFunc    func(ctx context.Context) ([]domain.Event, error)
	fetchEventByIDFunc func(ctx context.Context, id string) (*domain.Event, error)

	listCalls   int
	detailCalls int
}

func (m *mockSource) FetchEvents(ctx context.Context) ([]domain.Event, error) {
	m.listCalls++
	if m.fetchEventsFunc != nil {
		return m.fetchEventsFunc(ctx)
	}
	return []domain.Event{}, nil
}

func (m *mockSource) FetchEventByID(ctx context.Context, id string) (*domain.Event, error) {
	m.detailCalls++
	if m.fetchEventByIDFunc != nil {
		return m.fetchEventByIDFunc(ctx, id)
	}
	return nil, domain.ErrEventNotFound
}

func fixedEvents() []domain.Event {
	return []domain.Event{
		{ID: "1", Title: "Comedy Night"},
		{ID: "2", Title: "Jazz Evening"},
		{ID: "3", Title: "Late Night Comedy Club"},
	}
}

func TestEventCacheFindEvents(t *testing.T) {
	t.Run("filters by title substring case-insensitively", func(t *testing.T) {
		source := &mockSource{fetchEventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			return fixedEvents(), nil
		}}
		cache := NewEventCache(source, time.Minute, 5*time.Minute)

		got, err := cache.FindEvents(context.Background(), 10, "COMEDY")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(got))
		}
		if got[0].ID != "1" || got[1].ID != "3" {
			t.Errorf("expected source order, got %+v", got)
		}
	})

	t.Run("empty query matches all up to limit", func(t *testing.T) {
		source := &mockSource{fetchEventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			return fixedEvents(), nil
		}}
		cache := NewEventCache(source, time.Minute, 5*time.Minute)

		got, err := cache.FindEvents(context.Background(), 2, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected limit of 2, got %d", len(got))
		}
	})

	t.Run("records always carry a non-empty id", func(t *testing.T) {
		source := &mockSource{fetchEventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			return fixedEvents(), nil
		}}
		cache := NewEventCache(source, time.Minute, 5*time.Minute)

		got, _ := cache.FindEvents(context.Background(), 0, "")
		for _, ev := range got {
			if ev.ID == "" {
				t.Errorf("event with empty id: %+v", ev)
			}
		}
	})

	t.Run("upstream error surfaces", func(t *testing.T) {
		source := &mockSource{fetchEventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			return nil, domain.ErrUpstreamUnavailable
		}}
		cache := NewEventCache(source, time.Minute, 5*time.Minute)

		if _, err := cache.FindEvents(context.Background(), 10, ""); !errors.Is(err, domain.ErrUpstreamUnavailable) {
			t.Errorf("expected upstream error, got %v", err)
		}
	})
}

func TestEventCacheListTTL(t *testing.T) {
	source := &mockSource{fetchEventsFunc: func(ctx context.Context) ([]domain.Event, error) {
		return fixedEvents(), nil
	}}
	cache := NewEventCache(source, 60*time.Second, 5*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	cache.now = func() time.Time { return now }

	if _, err := cache.Events(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected 1 fetch, got %d", source.listCalls)
	}

	// Inside the TTL: served from cache.
	now = base.Add(59 * time.Second)
	if _, err := cache.Events(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 1 {
		t.Errorf("expected cached read at +59s, got %d fetches", source.listCalls)
	}

	// Past the TTL: refetched.
	now = base.Add(61 * time.Second)
	if _, err := cache.Events(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 2 {
		t.Errorf("expected refetch at +61s, got %d fetches", source.listCalls)
	}
}

func TestEventCacheInvalidate(t *testing.T) {
	source := &mockSource{
		fetchEventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			return fixedEvents(), nil
		},
		fetchEventByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return &domain.Event{ID: id, Title: "Detail"}, nil
		},
	}
	cache := NewEventCache(source, time.Minute, 5*time.Minute)
	ctx := context.Background()

	if _, err := cache.Events(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetEventByID(ctx, "1"); err != nil {
		t.Fatal(err)
	}

	// Idempotent: twice in a row is equivalent to once.
	cache.InvalidateAll()
	cache.InvalidateAll()

	if _, err := cache.Events(ctx); err != nil {
		t.Fatal(err)
	}
	if source.listCalls != 2 {
		t.Errorf("expected list refetch after invalidation, got %d fetches", source.listCalls)
	}
	if _, err := cache.GetEventByID(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if source.detailCalls != 2 {
		t.Errorf("expected detail refetch after invalidation, got %d fetches", source.detailCalls)
	}
}

func TestEventCacheDetail(t *testing.T) {
	t.Run("caches by id until TTL expires", func(t *testing.T) {
		source := &mockSource{fetchEventByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return &domain.Event{ID: id, Title: "Detail"}, nil
		}}
		cache := NewEventCache(source, time.Minute, 5*time.Minute)

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		cache.now = func() time.Time { return now }
		ctx := context.Background()

		if _, err := cache.GetEventByID(ctx, "7"); err != nil {
			t.Fatal(err)
		}
		now = base.Add(4 * time.Minute)
		if _, err := cache.GetEventByID(ctx, "7"); err != nil {
			t.Fatal(err)
		}
		if source.detailCalls != 1 {
			t.Errorf("expected cached detail read, got %d fetches", source.detailCalls)
		}

		now = base.Add(6 * time.Minute)
		if _, err := cache.GetEventByID(ctx, "7"); err != nil {
			t.Fatal(err)
		}
		if source.detailCalls != 2 {
			t.Errorf("expected detail refetch past TTL, got %d fetches", source.detailCalls)
		}
	})

	t.Run("not found passes through uncached", func(t *testing.T) {
		source := &mockSource{}
		cache := NewEventCache(source, time.Minute, 5*time.Minute)

		if _, err := cache.GetEventByID(context.Background(), "missing"); !errors.Is(err, domain.ErrEventNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if _, err := cache.GetEventByID(context.Background(), "missing"); !errors.Is(err, domain.ErrEventNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if source.detailCalls != 2 {
			t.Errorf("expected failures not to be cached, got %d fetches", source.detailCalls)
		}
	})
}
