package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yair/whats-on/pkg/domain"
	"github.com/yair/whats-on/pkg/intent"
)

const (
	listPerPage         = 500
	contentMaxRunes     = 1200
	upstreamHTTPTimeout = 10 * time.Second
)

// UpstreamClient fetches raw event records from the content-management
// backend and normalizes its heterogeneous response shapes into the
// canonical event record.
type UpstreamClient struct {
	baseURL       string
	canonicalHost string
	httpClient    *http.Client
}

type UpstreamConfig struct {
	BaseURL string
	// CanonicalHost, when set, replaces the scheme+host of event links that
	// point back at the upstream's own host.
	CanonicalHost string
}

func NewUpstreamClient(config UpstreamConfig) (*UpstreamClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}

	return &UpstreamClient{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		canonicalHost: strings.TrimRight(config.CanonicalHost, "/"),
		httpClient: &http.Client{
			Timeout: upstreamHTTPTimeout,
		},
	}, nil
}

// upstreamEvent tolerates both the whatson plugin shape (flat fields) and
// the generic WordPress REST shape ({rendered} titles, numeric ids).
type upstreamEvent struct {
	ID           json.RawMessage `json:"id"`
	Title        json.RawMessage `json:"title"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Date         string          `json:"date"`
	Venue        string          `json:"venue"`
	Category     string          `json:"category"`
	Terms        []upstreamTerm  `json:"terms"`
	URL          string          `json:"url"`
	Link         string          `json:"link"`
	Availability interface{}     `json:"availability"`
	PriceFrom    interface{}     `json:"price_from"`
	ContentText  string          `json:"content_0_text"`
	Content      json.RawMessage `json:"content"`
}

type upstreamTerm struct {
	Name string `json:"name"`
}

// FetchEvents retrieves the full unfiltered event set, in source order.
func (c *UpstreamClient) FetchEvents(ctx context.Context) ([]domain.Event, error) {
	eventsURL := fmt.Sprintf("%s/wp-json/whatson/v1/events?per_page=%d", c.baseURL, listPerPage)
	req, err := http.NewRequestWithContext(ctx, "GET", eventsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list fetch returned status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	raw, err := decodeEventList(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode event list: %w", err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, ev := range raw {
		event := c.normalize(ev)
		// Every served record carries a non-empty string id; a source record
		// without one is unaddressable and never leaves the boundary.
		if event.ID == "" {
			log.Printf("Warning: skipping upstream record without an id (title %q)", event.Title)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// detailCandidates returns the endpoints tried for a single-event lookup, in
// fixed priority order. The first response that parses into something with
// an id or title wins.
func (c *UpstreamClient) detailCandidates(id string) []string {
	escaped := url.PathEscape(id)
	return []string{
		fmt.Sprintf("%s/wp-json/whatson/v1/events/%s", c.baseURL, escaped),
		fmt.Sprintf("%s/wp-json/wp/v2/event/%s", c.baseURL, escaped),
		fmt.Sprintf("%s/wp-json/wp/v2/posts/%s", c.baseURL, escaped),
	}
}

// FetchEventByID resolves a single event against the candidate endpoints.
// Returns domain.ErrEventNotFound when every candidate answered but none
// produced a usable record, and domain.ErrUpstreamUnavailable when none
// could be reached at all.
func (c *UpstreamClient) FetchEventByID(ctx context.Context, id string) (*domain.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidRequest
	}

	reachable := false
	for _, candidate := range c.detailCandidates(id) {
		req, err := http.NewRequestWithContext(ctx, "GET", candidate, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue
		}
		reachable = true

		var raw upstreamEvent
		decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || decodeErr != nil {
			continue
		}

		event := c.normalize(raw)
		if event.ID != "" || event.Title != "" {
			return &event, nil
		}
	}

	if !reachable {
		return nil, fmt.Errorf("%w: no detail endpoint reachable for id %s", domain.ErrUpstreamUnavailable, id)
	}
	return nil, domain.ErrEventNotFound
}

func decodeEventList(resp *http.Response) ([]upstreamEvent, error) {
	// The plugin returns a bare array; some deployments wrap it.
	var wrapped struct {
		Events []upstreamEvent `json:"events"`
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var list []upstreamEvent
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Events, nil
}

func (c *UpstreamClient) normalize(raw upstreamEvent) domain.Event {
	event := domain.Event{
		ID:           stringifyID(raw.ID),
		Title:        StripHTML(renderedText(raw.Title)),
		Venue:        strings.TrimSpace(raw.Venue),
		Availability: raw.Availability,
		PriceFrom:    raw.PriceFrom,
	}

	if start := firstNonEmpty(raw.Start, raw.Date); start != "" {
		event.Start = &start
	}
	if raw.End != "" {
		end := raw.End
		event.End = &end
	}

	if category := c.resolveCategory(raw, event.Title); category != "" {
		event.Category = &category
	}

	if link := c.rewriteURL(firstNonEmpty(raw.URL, raw.Link)); link != "" {
		event.URL = &link
	}

	body := raw.ContentText
	if body == "" && len(raw.Content) > 0 {
		body = renderedText(raw.Content)
	}
	event.ContentText = TruncateRunes(StripHTML(body), contentMaxRunes)

	return event
}

// resolveCategory prefers the record's own category, then taxonomy terms,
// then a keyword match against the title.
func (c *UpstreamClient) resolveCategory(raw upstreamEvent, title string) string {
	if cat := canonicalCategory(raw.Category); cat != "" {
		return cat
	}
	for _, term := range raw.Terms {
		if cat := canonicalCategory(term.Name); cat != "" {
			return cat
		}
	}
	return intent.MatchCategory(title)
}

// canonicalCategory maps a raw taxonomy label onto the known category table
// where possible ("Comedy Night" -> "comedy") so the exact-match ask filter
// sees canonical keys. Labels matching nothing are kept lowercased verbatim.
func canonicalCategory(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return ""
	}
	if cat := intent.MatchCategory(label); cat != "" {
		return cat
	}
	return label
}

// rewriteURL swaps the upstream's own host for the canonical public host and
// resolves relative links against it.
func (c *UpstreamClient) rewriteURL(link string) string {
	if link == "" || c.canonicalHost == "" {
		return link
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	canonical, err := url.Parse(c.canonicalHost)
	if err != nil {
		return link
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return link
	}

	if parsed.Host == "" || parsed.Host == base.Host {
		parsed.Scheme = canonical.Scheme
		parsed.Host = canonical.Host
	}
	return parsed.String()
}

// stringifyID accepts numeric or string source ids and always produces a
// string. Unknown shapes degrade to "".
func stringifyID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// renderedText accepts either a plain JSON string or the WordPress
// {"rendered": "..."} wrapper.
func renderedText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var wrapped struct {
		Rendered string `json:"rendered"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Rendered
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
