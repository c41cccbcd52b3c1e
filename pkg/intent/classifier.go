// Package intent turns free-text "what's on" questions into structured
// queries and deterministic answer sentences.
package intent

import (
	"regexp"
	"strings"

	"github.com/yair/whats-on/pkg/domain"
)

// category table: first matching category in iteration order wins, no
// scoring, no multi-category.
var categories = []struct {
	name     string
	synonyms []string
}{
	{"music", []string{"music", "gig", "gigs", "concert", "band night", "dj "}},
	{"comedy", []string{"comedy", "comedian", "stand-up", "stand up"}},
	{"theatre", []string{"theatre", "theater", "play", "musical", "pantomime"}},
	{"film", []string{"film", "cinema", "movie", "screening"}},
	{"family", []string{"family", "kids", "children"}},
	{"art", []string{"exhibition", "gallery", "art show", "art fair"}},
	{"food", []string{"food", "drink", "tasting", "supper club"}},
	{"sport", []string{"sport", "football", "rugby", "fitness"}},
	{"talks", []string{"talk", "lecture", "workshop", "panel"}},
}

// date labels in priority order; "this weekend" must be tried before
// "this week" since the latter is a prefix of the former.
var dateLabels = []struct {
	label string
	re    *regexp.Regexp
}{
	{"today", regexp.MustCompile(`\b(?:today|tonight)\b`)},
	{"tomorrow", regexp.MustCompile(`\btomorrow\b`)},
	{"this weekend", regexp.MustCompile(`\b(?:this\s+)?weekend\b`)},
	{"this week", regexp.MustCompile(`\bthis week\b`)},
	{"next week", regexp.MustCompile(`\bnext week\b`)},
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	quotedRe     = regexp.MustCompile(`"([^"]+)"`)
	aboutRe      = regexp.MustCompile(`\b(?:about|called|named)\s+(.+)$`)
	browseRe     = regexp.MustCompile(`\b(?:what'?s on|what is on|anything (?:on|happening)|going on|happening|events?|listings|shows?)\b`)
)

var normalizer = strings.NewReplacer(
	"“", `"`, "”", `"`, // curly double quotes
	"‘", "'", "’", "'", // curly single quotes
	"–", "-", "—", "-", // en/em dashes
)

// Normalize unifies curly quotes and dashes to ASCII, collapses whitespace
// and trims the input.
func Normalize(raw string) string {
	s := normalizer.Replace(raw)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Classify parses a free-text user query into a structured query using
// ordered pattern rules. The categories of detection (quoted name, category,
// free-form name, date label, browse intent) are independent of each other;
// within each, the first match wins.
func Classify(raw string) domain.ClassifiedQuery {
	text := Normalize(raw)
	lower := strings.ToLower(text)

	q := domain.ClassifiedQuery{SearchTerm: text}

	// 1. Quoted name pre-empts the free-form name heuristics.
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		q.Name = strings.TrimSpace(m[1])
		q.NameQuoted = true
	}

	// 2. Category by synonym substring.
	for _, cat := range categories {
		for _, syn := range cat.synonyms {
			if strings.Contains(lower, syn) {
				q.Category = cat.name
				break
			}
		}
		if q.Category != "" {
			break
		}
	}

	// 3. Date label, first in priority order only. Annotation-only: it
	// never filters results.
	for _, d := range dateLabels {
		if d.re.MatchString(lower) {
			q.DateLabel = d.label
			break
		}
	}

	// 4. Broad browse intent.
	q.Browse = browseRe.MatchString(lower)

	// 5. Free-form name, only without a quoted one.
	if q.Name == "" {
		if m := aboutRe.FindStringSubmatch(text); m != nil {
			q.Name = trimNamePhrase(m[1])
		} else if q.Category == "" && !q.Browse {
			// Permissive fallback: arbitrary free text narrows results
			// instead of falling through to "I can't help". Known to
			// misfire on chit-chat; kept for compatibility.
			q.Name = trimNamePhrase(text)
		}
	}

	q.Recognized = q.Category != "" || q.Name != "" || q.Browse
	return q
}

func trimNamePhrase(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimRight(s, "?!. ")
}

// MatchCategory returns the category whose synonym list matches the text,
// or "" when none does. Used as the normalization fallback when an upstream
// record carries no taxonomy terms.
func MatchCategory(text string) string {
	lower := strings.ToLower(text)
	for _, cat := range categories {
		for _, syn := range cat.synonyms {
			if strings.Contains(lower, syn) {
				return cat.name
			}
		}
	}
	return ""
}

// Facets assembles the human-readable facet fragments for the summary
// sentence, in the order: category, quoted/free name, date label.
func Facets(q domain.ClassifiedQuery) []string {
	var facets []string
	if q.Category != "" {
		facets = append(facets, q.Category)
	}
	if q.Name != "" {
		facets = append(facets, `about "`+q.Name+`"`)
	}
	if q.DateLabel != "" {
		facets = append(facets, q.DateLabel)
	}
	return facets
}
