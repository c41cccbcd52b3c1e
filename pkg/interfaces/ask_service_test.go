package interfaces

import (
	"context"
	"errors"
	"testing"

	"github.com/yair/whats-on/pkg/collectors"
	"github.com/yair/whats-on/pkg/domain"
	"github.com/yair/whats-on/pkg/intent"
)

type mockStore struct {
	eventsFunc         func(ctx context.Context) ([]domain.Event, error)
	findEventsFunc     func(ctx context.Context, limit int, query string) ([]domain.EventSummary, error)
	getEventByIDFunc   func(ctx context.Context, id string) (*domain.Event, error)
	invalidateAllCalls int
}

func (m *mockStore) Events(ctx context.Context) ([]domain.Event, error) {
	if m.eventsFunc != nil {
		return m.eventsFunc(ctx)
	}
	return []domain.Event{}, nil
}

func (m *mockStore) FindEvents(ctx context.Context, limit int, query string) ([]domain.EventSummary, error) {
	if m.findEventsFunc != nil {
		return m.findEventsFunc(ctx, limit, query)
	}
	return []domain.EventSummary{}, nil
}

func (m *mockStore) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.getEventByIDFunc != nil {
		return m.getEventByIDFunc(ctx, id)
	}
	return nil, domain.ErrEventNotFound
}

func (m *mockStore) InvalidateAll() {
	m.invalidateAllCalls++
}

type mockRecorder struct {
	records []collectors.AskRecord
}

func (m *mockRecorder) Record(ctx context.Context, rec collectors.AskRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func category(name string) *string {
	return &name
}

func poolStore() *mockStore {
	return &mockStore{eventsFunc: func(ctx context.Context) ([]domain.Event, error) {
		return []domain.Event{
			{ID: "1", Title: "Comedy Night", Category: category("comedy")},
			{ID: "2", Title: "Jazz Evening", Category: category("music")},
			{ID: "3", Title: "Comedy Gold Untagged"},
			{ID: "4", Title: "The Maccabees Reunion", Category: category("music")},
		}, nil
	}}
}

func TestAskService(t *testing.T) {
	t.Run("category ask filters on the category field", func(t *testing.T) {
		service := NewAskService(poolStore(), nil)

		result, err := service.Ask(context.Background(), "what comedy is on", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Answer != "I found 2 events for comedy. Showing up to 2." {
			t.Errorf("unexpected answer: %q", result.Answer)
		}
		if len(result.Hits) != 2 || result.Hits[0].ID != "1" || result.Hits[1].ID != "3" {
			t.Errorf("unexpected hits: %+v", result.Hits)
		}
	})

	t.Run("untagged records fall back to title substring", func(t *testing.T) {
		service := NewAskService(poolStore(), nil)

		result, err := service.Ask(context.Background(), "what comedy is on", 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, hit := range result.Hits {
			if hit.ID == "2" {
				t.Error("music event must not match a comedy ask")
			}
		}
	})

	t.Run("quoted name narrows by title", func(t *testing.T) {
		service := NewAskService(poolStore(), nil)

		result, err := service.Ask(context.Background(), `anything about "The Maccabees"?`, 0)
		if err != nil {
			t.Fatal(err)
		}
		if result.Answer != `I found 1 event about "The Maccabees". Showing up to 1.` {
			t.Errorf("unexpected answer: %q", result.Answer)
		}
		if len(result.Hits) != 1 || result.Hits[0].ID != "4" {
			t.Errorf("unexpected hits: %+v", result.Hits)
		}
	})

	t.Run("browse ask returns everything up to the shown limit", func(t *testing.T) {
		service := NewAskService(poolStore(), nil)

		result, err := service.Ask(context.Background(), "what's on?", 2)
		if err != nil {
			t.Fatal(err)
		}
		if result.Answer != "I found 4 events. Showing up to 2." {
			t.Errorf("unexpected answer: %q", result.Answer)
		}
		if len(result.Hits) != 2 {
			t.Errorf("expected 2 hits, got %d", len(result.Hits))
		}
	})

	t.Run("date label is cosmetic only", func(t *testing.T) {
		service := NewAskService(poolStore(), nil)

		result, err := service.Ask(context.Background(), "what comedy is on this weekend", 0)
		if err != nil {
			t.Fatal(err)
		}
		// Same count as without the date: labels annotate, never filter.
		if result.Answer != "I found 2 events for comedy this weekend. Showing up to 2." {
			t.Errorf("unexpected answer: %q", result.Answer)
		}
	})

	t.Run("unrecognized input yields guidance, not an error", func(t *testing.T) {
		store := poolStore()
		service := NewAskService(store, nil)

		result, err := service.Ask(context.Background(), "???", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Answer != intent.GuidanceAnswer {
			t.Errorf("expected guidance answer, got %q", result.Answer)
		}
		if len(result.Hits) != 0 {
			t.Errorf("expected no hits, got %+v", result.Hits)
		}
	})

	t.Run("store errors surface", func(t *testing.T) {
		store := &mockStore{eventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			return nil, domain.ErrUpstreamUnavailable
		}}
		service := NewAskService(store, nil)

		if _, err := service.Ask(context.Background(), "what's on", 0); !errors.Is(err, domain.ErrUpstreamUnavailable) {
			t.Errorf("expected upstream error, got %v", err)
		}
	})

	t.Run("asks are recorded with facets", func(t *testing.T) {
		recorder := &mockRecorder{}
		service := NewAskService(poolStore(), recorder)

		if _, err := service.Ask(context.Background(), "what comedy is on", 0); err != nil {
			t.Fatal(err)
		}
		if len(recorder.records) != 1 {
			t.Fatalf("expected 1 recorded ask, got %d", len(recorder.records))
		}
		rec := recorder.records[0]
		if rec.Category != "comedy" || rec.Total != 2 || rec.ID == "" {
			t.Errorf("unexpected record: %+v", rec)
		}
	})

	t.Run("limit is capped", func(t *testing.T) {
		store := &mockStore{eventsFunc: func(ctx context.Context) ([]domain.Event, error) {
			events := make([]domain.Event, 40)
			for i := range events {
				events[i] = domain.Event{ID: "x", Title: "Show"}
			}
			return events, nil
		}}
		service := NewAskService(store, nil)

		result, err := service.Ask(context.Background(), "what's on", 100)
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Hits) != maxShownLimit {
			t.Errorf("expected %d hits, got %d", maxShownLimit, len(result.Hits))
		}
	})
}
