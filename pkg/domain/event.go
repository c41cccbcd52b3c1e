package domain

// Event is the canonical normalized shape for an upstream event record.
// ID is always present and stringified; everything else degrades to a safe
// empty value ("" or nil) so consumers never branch on key absence.
type Event struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Start        *string     `json:"start"`
	End          *string     `json:"end"`
	Venue        string      `json:"venue"`
	Category     *string     `json:"category"`
	URL          *string     `json:"url"`
	Availability interface{} `json:"availability"`
	PriceFrom    interface{} `json:"price_from"`
	ContentText  string      `json:"content_0_text"`
}

// EventSummary is the lightweight transport shape used by list responses and
// answer hit lists. Deliberately minimal: consumers cannot depend on fields
// the core does not guarantee.
type EventSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Summary returns the lightweight view of an event.
func (e Event) Summary() EventSummary {
	return EventSummary{ID: e.ID, Title: e.Title}
}

// ClassifiedQuery is the structured form of a free-text user query. Derived
// once per request, never mutated afterwards.
type ClassifiedQuery struct {
	// SearchTerm is the normalized input text.
	SearchTerm string
	// Category is a detected category key, or "" when none matched.
	Category string
	// Name is a name filter, from quotes, an about/called phrase, or the
	// permissive whole-input fallback.
	Name string
	// NameQuoted reports whether Name came from an explicit quoted phrase.
	NameQuoted bool
	// DateLabel is a relative date label (today, tomorrow, ...). Cosmetic
	// only: it contributes to the summary sentence but never filters.
	DateLabel string
	// Browse reports a generic "what's on" ask with no other filter.
	Browse bool
	// Recognized is false when nothing actionable was detected; callers
	// should answer with guidance rather than an empty query.
	Recognized bool
}
