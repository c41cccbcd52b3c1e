package intent

import (
	"fmt"
	"strings"

	"github.com/yair/whats-on/pkg/domain"
)

// GuidanceAnswer is returned when nothing actionable was detected in the
// input. A terminal branch, not a filter.
const GuidanceAnswer = `I can help with what's on. Ask about a category like comedy or music, a date like this weekend, or an event name in quotes.`

// AnswerInput is the (query facets, total count, shown subset) triple the
// answer builder works from.
type AnswerInput struct {
	Facets []string
	Total  int
	Shown  []domain.EventSummary
}

// BuildAnswer turns a classified result set into a deterministic summary
// sentence plus a compact hit list of id and title only.
func BuildAnswer(in AnswerInput) (string, []domain.EventSummary) {
	facets := ""
	if len(in.Facets) > 0 {
		facets = " for " + strings.Join(in.Facets, " ")
	}

	var answer string
	if in.Total == 0 {
		answer = fmt.Sprintf("I couldn't find any events%s.", facets)
	} else {
		plural := "s"
		if in.Total == 1 {
			plural = ""
		}
		answer = fmt.Sprintf("I found %d event%s%s. Showing up to %d.", in.Total, plural, facets, len(in.Shown))
	}

	hits := make([]domain.EventSummary, 0, len(in.Shown))
	for _, ev := range in.Shown {
		hits = append(hits, domain.EventSummary{ID: ev.ID, Title: ev.Title})
	}
	return answer, hits
}
