package pipeline

import (
	"regexp"
	"strings"
)

// hardSplitMarkers are clause boundaries that separate independent captured
// items. They are applied recursively: each marker splits the text, then the
// halves are re-examined for the remaining markers.
var hardSplitMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[;\n]+\s*`),
	regexp.MustCompile(`(?i)[,.]?\s+and then\s+`),
	regexp.MustCompile(`(?i)[,.]?\s+after that[,]?\s+`),
	regexp.MustCompile(`(?i)[,.]?\s+then\s+`),
	regexp.MustCompile(`(?i)\.\s+`),
}

// actionVerbs is the fixed lexicon used to retain short "verb + noun" segments
// ("call mom", "buy milk") that would otherwise be dropped as noise.
var actionVerbs = map[string]struct{}{
	"call": {}, "text": {}, "phone": {}, "email": {}, "message": {},
	"buy": {}, "get": {}, "order": {}, "pick": {}, "grab": {},
	"send": {}, "pay": {}, "book": {}, "schedule": {}, "cancel": {},
	"fix": {}, "clean": {}, "wash": {}, "walk": {}, "feed": {},
	"read": {}, "write": {}, "review": {}, "check": {}, "submit": {},
	"finish": {}, "plan": {}, "renew": {}, "update": {}, "water": {},
}

// Segment splits normalized text into candidate item segments.
//
// Hard-split markers ("then", "and then", "after that", semicolons, sentence
// boundaries) are applied recursively. Each resulting fragment is trimmed and
// retained only if it is at least three words long OR matches the two-word
// "verb + noun" shape against the action-verb lexicon — this keeps short but
// meaningful action items ("call mom") while filtering noise fragments.
func Segment(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var fragments []string
	for _, f := range splitRecursive(text, hardSplitMarkers) {
		fragments = append(fragments, splitCommaActions(f)...)
	}

	segments := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.Trim(f, " \t.,;")
		if f == "" {
			continue
		}
		if retainSegment(f) {
			segments = append(segments, f)
		}
	}
	return segments
}

// splitRecursive applies the first matching marker and recurses into the
// pieces with the remaining markers.
func splitRecursive(text string, markers []*regexp.Regexp) []string {
	if len(markers) == 0 {
		return []string{text}
	}

	parts := markers[0].Split(text, -1)
	if len(parts) == 1 {
		return splitRecursive(text, markers[1:])
	}

	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, splitRecursive(p, markers[1:])...)
	}
	return out
}

// splitCommaActions splits f at commas that introduce a fresh action clause
// (the next word is an action verb). Plain list commas are left alone so that
// "invite Sam, Lee and Ada" stays one segment. RE2 has no lookahead, so this
// runs as an explicit token scan rather than a marker regex.
func splitCommaActions(f string) []string {
	parts := strings.Split(f, ",")
	if len(parts) == 1 {
		return []string{f}
	}

	out := []string{strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		words := strings.Fields(p)
		if len(words) > 0 && IsActionVerb(words[0]) {
			out = append(out, p)
		} else {
			out[len(out)-1] += ", " + p
		}
	}
	return out
}

// retainSegment reports whether a trimmed fragment carries enough signal to be
// classified. Fragments of three or more words always pass; two-word
// fragments pass only in "verb + noun" shape.
func retainSegment(f string) bool {
	words := strings.Fields(f)
	switch {
	case len(words) >= 3:
		return true
	case len(words) == 2:
		return IsActionVerb(words[0])
	default:
		return false
	}
}

// IsActionVerb reports whether w (case-insensitively) belongs to the fixed
// action-verb lexicon shared by the segmenter and the post-filter.
func IsActionVerb(w string) bool {
	_, ok := actionVerbs[strings.ToLower(strings.Trim(w, ".,;:!?"))]
	return ok
}
