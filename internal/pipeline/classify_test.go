package pipeline_test

import (
	"strings"
	"testing"

	"github.com/marchewka/scribeline/internal/pipeline"
	"github.com/marchewka/scribeline/pkg/types"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	rules := pipeline.DefaultRules()

	tests := []struct {
		name     string
		segment  string
		wantType types.ItemType
		wantRule string
	}{
		{"event meeting", "meet Alex tomorrow", types.Event, "event_keyword"},
		{"event appointment", "dentist appointment on friday", types.Event, "event_keyword"},
		{"todo verb", "buy milk", types.Todo, "todo_keyword"},
		{"todo reminder phrase", "don't forget to water the plants", types.Todo, "todo_keyword"},
		{"task formal", "submit the quarterly report", types.Task, "task_keyword"},
		{"task deadline", "finish the project proposal before the deadline", types.Task, "task_keyword"},
		{"note default", "interesting article about coral reefs", types.Note, "note_default"},
		{"short reflective stays note", "i feel tired", types.Note, "note_default"},
		{
			"long reflective is journal",
			"i feel like this week has been one of the most interesting weeks in a long time because so many small things finally started falling into place for me at once",
			types.Journal, "journal_reflective",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotType, gotRule := pipeline.Classify(tt.segment, rules)
			if gotType != tt.wantType {
				t.Errorf("type = %q, want %q", gotType, tt.wantType)
			}
			if gotRule.Name != tt.wantRule {
				t.Errorf("rule = %q, want %q", gotRule.Name, tt.wantRule)
			}
		})
	}
}

// Event detection must win over to-do detection: many event phrases contain
// action verbs too.
func TestClassify_EventPrecedesTodo(t *testing.T) {
	t.Parallel()

	gotType, _ := pipeline.Classify("book lunch with Sam", pipeline.DefaultRules())
	if gotType != types.Event {
		t.Errorf("type = %q, want %q", gotType, types.Event)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	t.Parallel()

	for _, segment := range []string{"BUY MILK", "Buy Milk", "buy milk"} {
		gotType, _ := pipeline.Classify(segment, pipeline.DefaultRules())
		if gotType != types.Todo {
			t.Errorf("Classify(%q) = %q, want %q", segment, gotType, types.Todo)
		}
	}
}

func TestClassify_CustomRuleOrder(t *testing.T) {
	t.Parallel()

	// A rule set without a catch-all still yields a Note.
	rules := []pipeline.Rule{
		{
			Name:   "contains_x",
			Match:  func(s string) bool { return strings.Contains(s, "x") },
			Result: types.Task,
		},
	}
	gotType, gotRule := pipeline.Classify("nothing matches here", rules)
	if gotType != types.Note || gotRule.Name != "note_default" {
		t.Errorf("got (%q, %q), want (%q, %q)", gotType, gotRule.Name, types.Note, "note_default")
	}
}
