// Package types defines the shared types used across all scribeline packages.
//
// These types form the lingua franca between the local classification
// pipeline, the remote classifier provider, the speech rescorer, and the save
// queue. They are intentionally minimal — each package defines its own domain
// types, but cross-cutting data structures live here to avoid circular imports.
package types

import (
	"slices"
	"strings"
)

// ItemType is the category assigned to a captured item.
type ItemType string

const (
	// Task is formal, deliverable-oriented work ("finish the report").
	Task ItemType = "Task"

	// Todo is a lightweight action item ("buy milk", "call mom").
	Todo ItemType = "To-do"

	// Event is a scheduled occurrence with a time or place ("meet Alex at 2pm").
	Event ItemType = "Event"

	// Note is informational content with no action attached.
	Note ItemType = "Note"

	// Journal is long-form reflective, first-person content.
	Journal ItemType = "Journal"
)

// IsValid reports whether t is a recognised item type.
func (t ItemType) IsValid() bool {
	switch t {
	case Task, Todo, Event, Note, Journal:
		return true
	}
	return false
}

// TimeBlock represents a point or relative reference in time as extracted from
// captured text. Fields are progressively optional: a fully resolved reference
// carries ISO; a partially resolved one carries Date and/or Time; WhenText
// preserves the raw phrase for anything the extractors could not resolve.
type TimeBlock struct {
	// ISO is the fully resolved ISO-8601 timestamp, when derivable.
	ISO string `json:"iso,omitempty"`

	// Date is the calendar date in YYYY-MM-DD form.
	Date string `json:"date,omitempty"`

	// Time is the 24-hour clock time in HH:mm form. When Time is set without
	// Date, callers resolve the date against their local today.
	Time string `json:"time,omitempty"`

	// TZ is the IANA time zone name the reference was resolved against.
	TZ string `json:"tz,omitempty"`

	// WhenText is the raw temporal phrase as it appeared in the input
	// (e.g., "tomorrow", "next friday").
	WhenText string `json:"when_text,omitempty"`
}

// Item is the canonical form of a single captured productivity item.
type Item struct {
	// Type is the item category. Always one of the ItemType constants.
	Type ItemType `json:"type"`

	// Title is the short actionable summary. Non-empty after trimming.
	Title string `json:"title"`

	// Details carries any residual text not captured by Title. Empty when the
	// segment was fully consumed by the title.
	Details string `json:"details,omitempty"`

	// DueISO is the resolved due timestamp in ISO-8601 form, or empty when no
	// temporal reference was extracted.
	DueISO string `json:"due_iso,omitempty"`

	// DurationMin is the extracted duration in whole minutes. Zero means no
	// duration was found.
	DurationMin int `json:"duration_min,omitempty"`

	// Location is the extracted place phrase, or empty.
	Location string `json:"location,omitempty"`

	// Subtasks is the ordered set of extracted subtask lines. Always
	// lexically sorted and deduplicated so that equal inputs produce
	// byte-identical output.
	Subtasks []string `json:"subtasks,omitempty"`
}

// NormalizedTitle returns the title lower-cased with collapsed whitespace.
// Used for deduplication comparisons.
func (it Item) NormalizedTitle() string {
	return strings.Join(strings.Fields(strings.ToLower(it.Title)), " ")
}

// CanonicalResult is the single JSON shape every classification result must
// conform to, regardless of whether the remote classifier or the local
// pipeline produced it.
type CanonicalResult struct {
	// Items is the produced item list. Never exceeds the configured cap.
	Items []Item `json:"items"`

	// SuggestedCategory is the overall category for the whole capture,
	// derived from the most significant item type present.
	SuggestedCategory ItemType `json:"suggested_overall_category"`

	// ForcedRules lists the names of rules that fired during processing,
	// sorted for determinism. Contains "local_fallback" whenever the result
	// was produced by the local pipeline after a remote failure.
	ForcedRules []string `json:"forced_rules_applied"`

	// Warnings carries human-readable processing notes, sorted.
	Warnings []string `json:"warnings"`

	// Confidence is the overall confidence in [0, 1], rounded to 2 decimals.
	Confidence float64 `json:"confidence"`
}

// Normalize sorts and deduplicates the order-insensitive collections of r so
// that two equal results marshal to identical bytes. It also guarantees the
// slices are non-nil, which keeps the JSON encoding stable ("[]" vs "null").
func (r *CanonicalResult) Normalize() {
	r.ForcedRules = sortedSet(r.ForcedRules)
	r.Warnings = sortedSet(r.Warnings)
	if r.Items == nil {
		r.Items = []Item{}
	}
	for i := range r.Items {
		if r.Items[i].Subtasks != nil {
			r.Items[i].Subtasks = sortedSet(r.Items[i].Subtasks)
		}
	}
}

// AddRule records a fired rule name. Duplicates are removed by Normalize.
func (r *CanonicalResult) AddRule(name string) {
	r.ForcedRules = append(r.ForcedRules, name)
}

// AddWarning records a processing warning. Duplicates are removed by Normalize.
func (r *CanonicalResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Alternative is one candidate recognition of a spoken utterance, as delivered
// by a speech engine. Alternatives arrive in engine-ranked order; Confidence
// may be zero when the engine does not report one.
type Alternative struct {
	// Transcript is the candidate text.
	Transcript string `json:"transcript"`

	// Confidence is the engine's confidence in this candidate (0.0–1.0).
	Confidence float64 `json:"confidence,omitempty"`
}

// sortedSet returns a sorted copy of s with duplicates and empty strings
// removed. Always non-nil.
func sortedSet(s []string) []string {
	out := make([]string, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, v := range s {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
