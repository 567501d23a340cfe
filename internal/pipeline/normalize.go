// Package pipeline implements the deterministic local classification pipeline:
// text normalization, segmentation, type classification, confidence scoring,
// and post-filtering of captured free-form text into canonical items.
//
// Every stage is a pure function over its input — no I/O, no clock reads, no
// shared mutable state — so the whole pipeline is safe for any number of
// concurrent callers and produces byte-identical results for identical input.
// The only rule-based intelligence here is ordered keyword and regex
// taxonomies; there is deliberately no model inference, so every produced item
// can be traced back to the rule that fired.
package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

// substitution pairs a compiled pattern with its replacement. Substitutions
// run in declaration order; each must be idempotent on its own output so that
// Normalize(Normalize(x)) == Normalize(x) holds for the whole chain.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

// misheardFixes corrects speech-recognition confusions that survive into
// otherwise well-formed transcripts. Each entry targets a specific misheard
// phrase rather than a bare homophone so that legitimate uses are untouched
// ("by the store" stays, "by milk" becomes "buy milk").
var misheardFixes = []substitution{
	{regexp.MustCompile(`(?i)\bby (milk|bread|eggs|groceries|flowers|tickets)\b`), "buy $1"},
	{regexp.MustCompile(`(?i)\bbye (milk|bread|eggs|groceries)\b`), "buy $1"},
	{regexp.MustCompile(`(?i)\bmeat (with|up with)\b`), "meet $1"},
	{regexp.MustCompile(`(?i)\bsend male to\b`), "send mail to"},
	{regexp.MustCompile(`(?i)\btomorow\b`), "tomorrow"},
	{regexp.MustCompile(`(?i)\btommorow\b`), "tomorrow"},
	{regexp.MustCompile(`(?i)\bcalender\b`), "calendar"},
	{regexp.MustCompile(`(?i)\bremined\b`), "remind"},
	{regexp.MustCompile(`(?i)\bgonna\b`), "going to"},
	{regexp.MustCompile(`(?i)\bwanna\b`), "want to"},
	{regexp.MustCompile(`(?i)\bgotta\b`), "got to"},
}

// fillerRemoval strips disfluencies that speech engines transcribe verbatim.
var fillerRemoval = []substitution{
	{regexp.MustCompile(`(?i)\b(?:um+|uh+|erm+|hmm+|mhm+)\b[,.]?\s*`), ""},
	{regexp.MustCompile(`(?i)\byou know[,.]?\s+`), ""},
	{regexp.MustCompile(`(?i)^\s*(?:okay|ok|so|well)[,.]\s+`), ""},
}

// timeFixes repairs spoken time formats into the compact forms the extractors
// expect ("2 pm" → "2pm", "2 p.m." → "2pm", "2 30 pm" → "2:30pm").
var timeFixes = []substitution{
	{regexp.MustCompile(`(?i)\b(\d{1,2}) (\d{2}) ?(am|pm)\b`), "$1:$2$3"},
	{regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?) ?p\.?m\.?(\s|$|[,.;])`), "${1}pm$2"},
	{regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?) ?a\.?m\.?(\s|$|[,.;])`), "${1}am$2"},
}

// punctuationFixes removes stray spacing around punctuation left behind by
// the filler removal pass.
var punctuationFixes = []substitution{
	{regexp.MustCompile(`\s+([,.;:!?])`), "$1"},
	{regexp.MustCompile(`([,.;:])([^\s\d])`), "$1 $2"},
	{regexp.MustCompile(`([,.;]){2,}`), "$1"},
}

// Normalize applies the deterministic correction chain to text: misheard-word
// fixes, filler removal, time-format repair, punctuation cleanup, whitespace
// collapse, and first-letter capitalization.
//
// Normalize is a pure, total function. It never fails, returns "" for empty
// or whitespace-only input, and is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	for _, group := range [][]substitution{misheardFixes, fillerRemoval, timeFixes, punctuationFixes} {
		for _, sub := range group {
			s = sub.re.ReplaceAllString(s, sub.repl)
		}
	}

	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return capitalizeFirst(s)
}

// capitalizeFirst upper-cases the first letter of s, leaving the rest intact.
func capitalizeFirst(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
