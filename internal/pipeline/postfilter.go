package pipeline

import (
	"strings"

	"github.com/marchewka/scribeline/pkg/types"
)

// PostFilterConfig holds the tunable thresholds of the post-filter. The
// near-duplicate constants are empirical, not load-bearing business logic, so
// they are configuration rather than hard-coded values.
type PostFilterConfig struct {
	// MaxItems caps the final item list. Default: 5.
	MaxItems int

	// ContainmentRatio is the minimum token-containment ratio at which two
	// titles are considered the same underlying item. Default: 0.9.
	ContainmentRatio float64

	// MaxExtraTokens is the maximum number of surplus tokens the longer title
	// may carry while still counting as a near-duplicate. Default: 2. Zero
	// means unset; an explicit zero-slack policy is not supported.
	MaxExtraTokens int
}

// DefaultPostFilterConfig returns the standard thresholds.
func DefaultPostFilterConfig() PostFilterConfig {
	return PostFilterConfig{
		MaxItems:         5,
		ContainmentRatio: 0.9,
		MaxExtraTokens:   2,
	}
}

// withDefaults fills zero-valued fields.
func (c PostFilterConfig) withDefaults() PostFilterConfig {
	d := DefaultPostFilterConfig()
	if c.MaxItems <= 0 {
		c.MaxItems = d.MaxItems
	}
	if c.ContainmentRatio <= 0 {
		c.ContainmentRatio = d.ContainmentRatio
	}
	if c.MaxExtraTokens <= 0 {
		c.MaxExtraTokens = d.MaxExtraTokens
	}
	return c
}

// PostFilter cleans up a produced item list. Steps run in a fixed order:
//
//  1. Split "A and B" titles into two items when both halves keep a
//     verb + noun shape.
//  2. Drop items whose title has fewer than three tokens, unless the title
//     matches the verb + noun exception.
//  3. Remove near-duplicates by token containment (an item is dropped when an
//     already-kept item's token set contains ≥ ContainmentRatio of its tokens
//     with at most MaxExtraTokens surplus in the longer title).
//  4. Remove exact duplicates by normalized title.
//  5. Truncate to MaxItems.
//
// The input slice is not modified.
func PostFilter(items []types.Item, cfg PostFilterConfig) []types.Item {
	cfg = cfg.withDefaults()

	expanded := make([]types.Item, 0, len(items))
	for _, it := range items {
		expanded = append(expanded, splitConjunction(it)...)
	}

	kept := make([]types.Item, 0, len(expanded))
	for _, it := range expanded {
		if !keepTitle(it.Title) {
			continue
		}
		if isNearDuplicate(it, kept, cfg) {
			continue
		}
		kept = append(kept, it)
	}

	deduped := make([]types.Item, 0, len(kept))
	seen := make(map[string]struct{}, len(kept))
	for _, it := range kept {
		key := it.NormalizedTitle()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, it)
	}

	if len(deduped) > cfg.MaxItems {
		deduped = deduped[:cfg.MaxItems]
	}
	return deduped
}

// splitConjunction splits a title containing " and " into two items when both
// halves preserve a verb + noun shape ("buy milk and call mom"). Items whose
// halves would lose shape are returned unchanged.
func splitConjunction(it types.Item) []types.Item {
	left, right, found := strings.Cut(strings.ToLower(it.Title), " and ")
	if !found {
		return []types.Item{it}
	}
	if !verbNounShape(left) || !verbNounShape(right) {
		return []types.Item{it}
	}

	first, second := it, it
	first.Title = strings.TrimSpace(left)
	second.Title = strings.TrimSpace(right)
	return []types.Item{first, second}
}

// verbNounShape reports whether phrase starts with an action verb and has at
// least one following word.
func verbNounShape(phrase string) bool {
	words := strings.Fields(phrase)
	return len(words) >= 2 && IsActionVerb(words[0])
}

// keepTitle applies the short-fragment filter: at least three tokens, or the
// verb + noun exception.
func keepTitle(title string) bool {
	words := strings.Fields(title)
	if len(words) >= 3 {
		return true
	}
	return verbNounShape(strings.ToLower(title))
}

// isNearDuplicate reports whether candidate is a near-duplicate of any
// already-kept item under the containment thresholds.
func isNearDuplicate(candidate types.Item, kept []types.Item, cfg PostFilterConfig) bool {
	candTokens := titleTokens(candidate)
	for _, k := range kept {
		if nearDuplicate(candTokens, titleTokens(k), cfg) {
			return true
		}
	}
	return false
}

// nearDuplicate implements the containment law on two token sets: the smaller
// set must be ≥ ContainmentRatio contained in the larger, and the larger may
// exceed the smaller by at most MaxExtraTokens tokens. This collapses
// paraphrases ("call mom" / "call mom tonight") while preserving genuinely
// disjoint tasks that merely share a verb.
func nearDuplicate(a, b map[string]struct{}, cfg PostFilterConfig) bool {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	if len(small) == 0 {
		return false
	}
	if len(large)-len(small) > cfg.MaxExtraTokens {
		return false
	}

	contained := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			contained++
		}
	}
	return float64(contained)/float64(len(small)) >= cfg.ContainmentRatio
}

// titleTokens returns the normalized token set of an item title.
func titleTokens(it types.Item) map[string]struct{} {
	fields := strings.Fields(it.NormalizedTitle())
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,;:!?")] = struct{}{}
	}
	return set
}
