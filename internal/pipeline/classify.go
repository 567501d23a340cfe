package pipeline

import (
	"regexp"
	"strings"

	"github.com/marchewka/scribeline/pkg/types"
)

// Rule is one entry in the ordered classification taxonomy. Rules are
// evaluated top to bottom and the first match wins, so the slice order is the
// taxonomy's precedence and must stay auditable in one place.
type Rule struct {
	// Name identifies the rule in CanonicalResult.ForcedRules.
	Name string

	// Match reports whether the rule applies to the (lower-cased) segment.
	Match func(segment string) bool

	// Result is the item type assigned when the rule matches.
	Result types.ItemType

	// Strong marks rules whose keywords are considered strong type evidence
	// for confidence scoring.
	Strong bool
}

var (
	eventKeywords = regexp.MustCompile(`\b(?:meet(?:ing)?|appointment|lunch with|dinner with|coffee with|interview|conference|flight|train to|trip to|travel to|visit|party|wedding|dentist|doctor)\b`)

	todoKeywords = regexp.MustCompile(`\b(?:buy|call|text|phone|email|message|send|pay|book|order|pick up|grab|fix|clean|wash|walk|feed|water|renew|cancel|remember to|don'?t forget|need to|have to)\b`)

	taskKeywords = regexp.MustCompile(`\b(?:submit|finish|complete|prepare|draft|deliver|report|review|assignment|project|deadline|presentation|proposal|write up)\b`)

	journalAffect = regexp.MustCompile(`\bi (?:feel|felt|think|thought|realized|realised|wish|hope|wonder|am grateful|was|learned)\b`)
)

// journalMinWords is the segment length above which first-person reflective
// text is classified as Journal rather than Note.
const journalMinWords = 25

// DefaultRules returns the ordered classification taxonomy.
//
// Ordering is a design decision, not an accident: event detection must precede
// to-do detection because many event phrases also contain action verbs ("meet
// Alex" would otherwise match the to-do verb list), and the to-do verb list
// must precede the formal task keywords so that quick errands are not promoted
// to Tasks by incidental words.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "event_keyword",
			Match:  func(s string) bool { return eventKeywords.MatchString(s) },
			Result: types.Event,
			Strong: true,
		},
		{
			Name:   "todo_keyword",
			Match:  func(s string) bool { return todoKeywords.MatchString(s) },
			Result: types.Todo,
			Strong: true,
		},
		{
			Name:   "task_keyword",
			Match:  func(s string) bool { return taskKeywords.MatchString(s) },
			Result: types.Task,
			Strong: true,
		},
		{
			Name: "journal_reflective",
			Match: func(s string) bool {
				return len(strings.Fields(s)) > journalMinWords && journalAffect.MatchString(s)
			},
			Result: types.Journal,
			Strong: true,
		},
		{
			Name:   "note_default",
			Match:  func(string) bool { return true },
			Result: types.Note,
			Strong: false,
		},
	}
}

// Classify assigns an item type to segment by evaluating rules in order and
// returning the first match. The final note_default rule always matches, so a
// result is guaranteed.
func Classify(segment string, rules []Rule) (types.ItemType, Rule) {
	s := strings.ToLower(segment)
	for _, r := range rules {
		if r.Match(s) {
			return r.Result, r
		}
	}
	// Unreachable with DefaultRules; kept for custom rule sets without a
	// catch-all entry.
	return types.Note, Rule{Name: "note_default", Result: types.Note}
}
