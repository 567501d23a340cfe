package pipeline

import (
	"strings"
	"time"

	"github.com/marchewka/scribeline/internal/pipeline/extract"
	"github.com/marchewka/scribeline/pkg/types"
)

// WarnEmptyInput is the warning attached to results produced from empty or
// whitespace-only input.
const WarnEmptyInput = "Empty input text provided"

// warnNoSegments is attached when input survived normalization but yielded no
// classifiable segments (punctuation-only captures, lone filler words).
const warnNoSegments = "No classifiable content found"

// categoryPrecedence orders item types for deriving the overall suggested
// category. Mirrors the classifier's rule precedence.
var categoryPrecedence = []types.ItemType{
	types.Event, types.Todo, types.Task, types.Journal, types.Note,
}

// Config configures a Processor. The zero value is usable: defaults are
// filled by NewProcessor.
type Config struct {
	// MaxItems caps CanonicalResult.Items. Default: 15.
	MaxItems int

	// PostFilter holds the post-filter thresholds.
	PostFilter PostFilterConfig

	// Location resolves relative dates ("tomorrow") and times. Default: UTC.
	Location *time.Location

	// Now supplies the clock used for relative date resolution. Injected so
	// tests can pin it. Default: time.Now.
	Now func() time.Time
}

// ProcessOptions carries per-capture overrides. The zero value applies the
// Processor's configured defaults.
type ProcessOptions struct {
	// Location resolves relative dates ("tomorrow") for this capture. Nil
	// uses the Processor's configured location.
	Location *time.Location

	// MaxItems tightens the item cap for this capture when set below the
	// configured cap. Zero means no override.
	MaxItems int
}

// Processor runs the full local classification pipeline. It is read-only
// after construction and safe for concurrent use.
type Processor struct {
	cfg   Config
	rules []Rule
}

// NewProcessor creates a Processor with the given config and the default
// classification rule set.
func NewProcessor(cfg Config) *Processor {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 15
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{cfg: cfg, rules: DefaultRules()}
}

// Process converts raw captured text into a CanonicalResult. It never fails:
// malformed input produces an empty item list with an explanatory warning and
// a default confidence, and two calls with the same input (and pinned clock)
// yield byte-identical results.
func (p *Processor) Process(text string) types.CanonicalResult {
	return p.ProcessWith(text, ProcessOptions{})
}

// ProcessWith is [Processor.Process] with per-capture overrides. Relative
// dates resolve against the caller's zone, not the server's, when one is
// supplied.
func (p *Processor) ProcessWith(text string, opts ProcessOptions) types.CanonicalResult {
	loc := p.cfg.Location
	if opts.Location != nil {
		loc = opts.Location
	}
	maxItems := p.cfg.MaxItems
	if opts.MaxItems > 0 && opts.MaxItems < maxItems {
		maxItems = opts.MaxItems
	}

	var res types.CanonicalResult

	if strings.TrimSpace(text) == "" {
		res.SuggestedCategory = types.Note
		res.AddWarning(WarnEmptyInput)
		res.Confidence = confidenceEmptyInput
		res.Normalize()
		return res
	}

	// Subtask list lines are line-oriented; pull them out before the
	// normalizer collapses newlines.
	subtasks := extract.Subtasks(text)
	body := stripSubtaskLines(text)

	norm := Normalize(body)
	segments := Segment(norm)

	if len(segments) == 0 && len(subtasks) == 0 {
		res.SuggestedCategory = types.Note
		res.AddWarning(warnNoSegments)
		res.Confidence = confidenceEmptyInput
		res.Normalize()
		return res
	}
	if len(segments) == 0 {
		// List-only capture: the subtask lines themselves are the content.
		segments = []string{"captured checklist items"}
		res.AddRule("subtasks_only")
	}
	if len(segments) > 1 {
		res.AddRule("split_segments")
	}

	now := p.cfg.Now()
	strong := false
	journal := false
	weakNoteRule := false

	items := make([]types.Item, 0, len(segments))
	for _, seg := range segments {
		itemType, rule := Classify(seg, p.rules)
		res.AddRule(rule.Name)
		if rule.Strong {
			strong = true
		}
		if itemType == types.Journal {
			journal = true
		}
		if rule.Name == "note_default" {
			weakNoteRule = true
		}

		item := types.Item{
			Type:  itemType,
			Title: strings.ToLower(strings.Trim(seg, " .,;")),
		}

		if tb, ok := extract.Date(seg); ok {
			tb.TZ = loc.String()
			item.DueISO = extract.ResolveDue(tb, now, loc)
			res.AddRule("date_extracted")
		}
		if mins, ok := extract.Duration(seg); ok {
			item.DurationMin = mins
			res.AddRule("duration_extracted")
		}
		if loc, ok := extract.Location(seg); ok {
			item.Location = loc
			res.AddRule("location_extracted")
		}

		items = append(items, item)
	}

	if len(subtasks) > 0 && len(items) > 0 {
		items[0].Subtasks = subtasks
		res.AddRule("subtasks_extracted")
	}

	items = PostFilter(items, p.cfg.PostFilter)
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	res.Items = items

	res.SuggestedCategory = overallCategory(items)
	res.Confidence = Score(ScoreInput{
		StrongKeyword: strong,
		ItemCount:     len(items),
		Journal:       journal,
		SoleWeakNote:  len(items) == 1 && weakNoteRule && items[0].Type == types.Note && len(strings.Fields(items[0].Title)) < 5,
	})

	res.Normalize()
	return res
}

// overallCategory picks the highest-precedence type present among items.
func overallCategory(items []types.Item) types.ItemType {
	present := make(map[types.ItemType]bool, len(items))
	for _, it := range items {
		present[it.Type] = true
	}
	for _, t := range categoryPrecedence {
		if present[t] {
			return t
		}
	}
	return types.Note
}

// stripSubtaskLines removes structured list lines from text so they are not
// re-classified as segments.
func stripSubtaskLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if subtaskLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// subtaskLine reports whether line is a structured list line. Thin wrapper so
// the pipeline package does not re-export the extract package's regex.
func subtaskLine(line string) bool {
	return extract.IsSubtaskLine(line)
}
