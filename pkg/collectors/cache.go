// Package collectors holds the process-wide stateful stores: the event
// cache, the webhook de-dupe ledger and the sqlite ask log.
package collectors

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yair/whats-on/pkg/domain"
)

// UpstreamSource is the read path the cache fills from on a miss.
type UpstreamSource interface {
	FetchEvents(ctx context.Context) ([]domain.Event, error)
	FetchEventByID(ctx context.Context, id string) (*domain.Event, error)
}

type listEntry struct {
	fetchedAt time.Time
	events    []domain.Event
}

type detailEntry struct {
	fetchedAt time.Time
	event     domain.Event
}

// EventCache is a two-tier TTL cache in front of the upstream client: a
// single-slot list cache (short TTL, unfiltered; query filters are applied
// post-fetch) and a detail cache keyed by id (long TTL). Pull-on-miss with
// explicit invalidation: the webhook path only signals "something changed",
// and the next read re-fetches ground truth.
type EventCache struct {
	source    UpstreamSource
	listTTL   time.Duration
	detailTTL time.Duration

	mu     sync.Mutex
	list   *listEntry
	detail map[string]detailEntry

	now func() time.Time
}

func NewEventCache(source UpstreamSource, listTTL, detailTTL time.Duration) *EventCache {
	if listTTL <= 0 {
		listTTL = 60 * time.Second
	}
	if detailTTL <= 0 {
		detailTTL = 5 * time.Minute
	}
	return &EventCache{
		source:    source,
		listTTL:   listTTL,
		detailTTL: detailTTL,
		detail:    make(map[string]detailEntry),
		now:       time.Now,
	}
}

// Events returns the full normalized event set in source order, from cache
// when fresh, refetching synchronously otherwise. In-flight fetches run
// outside the lock; the last write wins.
func (c *EventCache) Events(ctx context.Context) ([]domain.Event, error) {
	c.mu.Lock()
	if c.list != nil && c.now().Sub(c.list.fetchedAt) < c.listTTL {
		events := c.list.events
		c.mu.Unlock()
		return events, nil
	}
	c.mu.Unlock()

	events, err := c.source.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.list = &listEntry{fetchedAt: c.now(), events: events}
	c.mu.Unlock()
	return events, nil
}

// FindEvents returns up to limit lightweight records whose title contains
// query case-insensitively; an empty query matches all.
func (c *EventCache) FindEvents(ctx context.Context, limit int, query string) ([]domain.EventSummary, error) {
	events, err := c.Events(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]domain.EventSummary, 0, limit)
	for _, ev := range events {
		if needle != "" && !strings.Contains(strings.ToLower(ev.Title), needle) {
			continue
		}
		matches = append(matches, ev.Summary())
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// GetEventByID returns a full normalized event record, from the detail
// cache when fresh, resolving against the upstream candidates otherwise.
func (c *EventCache) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	c.mu.Lock()
	if entry, ok := c.detail[id]; ok && c.now().Sub(entry.fetchedAt) < c.detailTTL {
		event := entry.event
		c.mu.Unlock()
		return &event, nil
	}
	c.mu.Unlock()

	event, err := c.source.FetchEventByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.detail[id] = detailEntry{fetchedAt: c.now(), event: *event}
	c.mu.Unlock()
	return event, nil
}

// InvalidateAll clears the list slot and empties the detail map. Idempotent
// and safe to call concurrently with in-flight fetches, which complete and
// repopulate afterwards.
func (c *EventCache) InvalidateAll() {
	c.mu.Lock()
	c.list = nil
	c.detail = make(map[string]detailEntry)
	c.mu.Unlock()
}
