package extract

import (
	"regexp"
	"strings"
)

// locationRe captures the phrase after an "at/@/in" marker up to a stop
// boundary. The boundary words keep trailing clauses ("for an hour", "with
// Sam", "about the budget") out of the captured place.
var locationRe = regexp.MustCompile(`(?i)(?:\bat|\bin|@)\s+([^.,;]+?)(?:\s+(?:for|with|about|on|by)\b|[.,;]|$)`)

// locationStopWords are tokens that mark an idiomatic (non-place) "at/in"
// phrase: "at least", "in order to", "at the moment", "in fact", and the
// like. A candidate containing any of them is rejected outright — false
// positives like "meet with the team" are worse than the occasional miss.
var locationStopWords = map[string]struct{}{
	"least": {}, "most": {}, "all": {}, "order": {}, "fact": {},
	"general": {}, "case": {}, "moment": {}, "time": {}, "first": {},
	"addition": {}, "particular": {}, "team": {}, "touch": {},
	"morning": {}, "afternoon": {}, "evening": {}, "advance": {},
}

const (
	locationMinLen = 3
	locationMaxLen = 100
)

// Location extracts a place phrase from segment. The second return value is
// false when no plausible location is present.
//
// Candidates are rejected when shorter than 3 or longer than 100 characters,
// when they begin with a digit (those are clock times, not places), or when
// they contain a stop-word.
func Location(segment string) (string, bool) {
	m := locationRe.FindStringSubmatch(segment)
	if m == nil {
		return "", false
	}

	candidate := strings.TrimSpace(m[1])
	if len(candidate) < locationMinLen || len(candidate) > locationMaxLen {
		return "", false
	}
	if candidate[0] >= '0' && candidate[0] <= '9' {
		return "", false
	}

	for _, w := range strings.Fields(strings.ToLower(candidate)) {
		if _, stop := locationStopWords[strings.Trim(w, ".,;:!?")]; stop {
			return "", false
		}
	}
	return candidate, true
}
