package interfaces

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/yair/whats-on/pkg/collectors"
	"github.com/yair/whats-on/pkg/domain"
	"github.com/yair/whats-on/pkg/intent"
)

const (
	// defaultShownLimit is the display limit when the caller gives none;
	// requests may raise it up to maxShownLimit.
	defaultShownLimit = 5
	maxShownLimit     = 25
	// candidatePoolLimit bounds the pool the filters run over.
	candidatePoolLimit = 500
)

// EventStore is the cache-backed read path the ask pipeline consumes.
type EventStore interface {
	Events(ctx context.Context) ([]domain.Event, error)
	FindEvents(ctx context.Context, limit int, query string) ([]domain.EventSummary, error)
	GetEventByID(ctx context.Context, id string) (*domain.Event, error)
	InvalidateAll()
}

// AskRecorder persists asked questions; recording is best effort.
type AskRecorder interface {
	Record(ctx context.Context, rec collectors.AskRecord) error
}

// AskResult is the one-shot answer contract: a summary sentence plus a
// compact hit list.
type AskResult struct {
	Answer string                 `json:"answer"`
	Hits   []domain.EventSummary  `json:"hits"`
	Query  domain.ClassifiedQuery `json:"-"`
}

// AskService runs the classify -> cache lookup -> filter -> build answer
// pipeline. It never errors on unrecognized input; that yields a guidance
// answer with empty hits instead.
type AskService struct {
	store  EventStore
	askLog AskRecorder
}

// NewAskService creates the ask pipeline. askLog may be nil to disable
// question logging.
func NewAskService(store EventStore, askLog AskRecorder) *AskService {
	return &AskService{
		store:  store,
		askLog: askLog,
	}
}

func (s *AskService) Ask(ctx context.Context, message string, limit int) (*AskResult, error) {
	query := intent.Classify(message)
	if !query.Recognized {
		return &AskResult{
			Answer: intent.GuidanceAnswer,
			Hits:   []domain.EventSummary{},
			Query:  query,
		}, nil
	}

	if limit <= 0 {
		limit = defaultShownLimit
	}
	if limit > maxShownLimit {
		limit = maxShownLimit
	}

	events, err := s.store.Events(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) > candidatePoolLimit {
		events = events[:candidatePoolLimit]
	}

	filtered := filterEvents(events, query)

	shownCount := limit
	if shownCount > len(filtered) {
		shownCount = len(filtered)
	}
	shown := make([]domain.EventSummary, 0, shownCount)
	for _, ev := range filtered[:shownCount] {
		shown = append(shown, ev.Summary())
	}

	answer, hits := intent.BuildAnswer(intent.AnswerInput{
		Facets: intent.Facets(query),
		Total:  len(filtered),
		Shown:  shown,
	})

	s.recordAsk(ctx, query, len(filtered))

	return &AskResult{Answer: answer, Hits: hits, Query: query}, nil
}

// filterEvents applies the name filter, then the category filter. The
// category filter prefers the record's own category field and falls back to
// a title substring match when the record has none. Date labels never
// filter.
func filterEvents(events []domain.Event, query domain.ClassifiedQuery) []domain.Event {
	filtered := events

	if query.Name != "" {
		needle := strings.ToLower(query.Name)
		kept := make([]domain.Event, 0, len(filtered))
		for _, ev := range filtered {
			if strings.Contains(strings.ToLower(ev.Title), needle) {
				kept = append(kept, ev)
			}
		}
		filtered = kept
	}

	if query.Category != "" {
		kept := make([]domain.Event, 0, len(filtered))
		for _, ev := range filtered {
			if ev.Category != nil {
				if strings.EqualFold(*ev.Category, query.Category) {
					kept = append(kept, ev)
				}
				continue
			}
			if strings.Contains(strings.ToLower(ev.Title), query.Category) {
				kept = append(kept, ev)
			}
		}
		filtered = kept
	}

	return filtered
}

func (s *AskService) recordAsk(ctx context.Context, query domain.ClassifiedQuery, total int) {
	if s.askLog == nil {
		return
	}
	err := s.askLog.Record(ctx, collectors.AskRecord{
		ID:        uuid.New().String(),
		Message:   query.SearchTerm,
		Category:  query.Category,
		Name:      query.Name,
		DateLabel: query.DateLabel,
		Total:     total,
	})
	if err != nil {
		log.Printf("Warning: failed to record ask: %v", err)
	}
}
