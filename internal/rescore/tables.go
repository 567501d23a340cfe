package rescore

// Tables holds the static language statistics the rescorer consults:
// a plausibility dictionary, homophone confusion sets, and bigram/trigram
// collocation weights. A Tables value is immutable after construction and is
// injected into the Rescorer, never referenced as a package global — tests
// supply alternate tables the same way production supplies DefaultTables.
type Tables struct {
	dictionary map[string]struct{}
	confusions map[string][]string
	bigrams    map[string]float64
	trigrams   map[string]float64
}

// NewTables builds an immutable Tables value. confusions maps each member of
// a confusion set to its alternates; bigram keys are "a b", trigram keys are
// "a b c" (lower-cased, single-space joined).
func NewTables(dictionary []string, confusionSets [][]string, bigrams, trigrams map[string]float64) *Tables {
	t := &Tables{
		dictionary: make(map[string]struct{}, len(dictionary)),
		confusions: make(map[string][]string),
		bigrams:    make(map[string]float64, len(bigrams)),
		trigrams:   make(map[string]float64, len(trigrams)),
	}
	for _, w := range dictionary {
		t.dictionary[w] = struct{}{}
	}
	for _, set := range confusionSets {
		for _, member := range set {
			for _, other := range set {
				if other != member {
					t.confusions[member] = append(t.confusions[member], other)
				}
			}
			t.dictionary[member] = struct{}{}
		}
	}
	for k, v := range bigrams {
		t.bigrams[k] = v
	}
	for k, v := range trigrams {
		t.trigrams[k] = v
	}
	return t
}

// InDictionary reports whether token is a known word.
func (t *Tables) InDictionary(token string) bool {
	_, ok := t.dictionary[token]
	return ok
}

// Alternates returns the confusion-set alternates of token, or nil when the
// token belongs to no known confusion set.
func (t *Tables) Alternates(token string) []string {
	return t.confusions[token]
}

// Bigram returns the collocation weight of the pair (a, b), zero when unseen.
func (t *Tables) Bigram(a, b string) float64 {
	return t.bigrams[a+" "+b]
}

// Trigram returns the collocation weight of (a, b, c), zero when unseen.
func (t *Tables) Trigram(a, b, c string) float64 {
	return t.trigrams[a+" "+b+" "+c]
}

// DefaultTables returns the built-in language statistics tuned for
// productivity captures: errand verbs, calendar vocabulary, and the homophone
// sets speech engines most often miscalibrate in this domain.
func DefaultTables() *Tables {
	dictionary := []string{
		"a", "an", "the", "i", "me", "my", "we", "us", "our", "you", "your",
		"he", "she", "it", "they", "them", "this", "that", "these", "those",
		"is", "am", "are", "was", "were", "be", "been", "have", "has", "had",
		"do", "does", "did", "will", "would", "can", "could", "should", "must",
		"and", "or", "but", "so", "then", "after", "before", "when", "while",
		"at", "in", "on", "of", "with", "from", "about", "up", "down", "out",
		"not", "no", "yes", "if", "need", "want", "go", "going", "get", "got",
		"call", "text", "phone", "email", "send", "buy", "pay", "book", "pick",
		"order", "fix", "clean", "wash", "walk", "feed", "read", "write",
		"review", "check", "submit", "finish", "plan", "cancel", "schedule",
		"remember", "forget", "remind", "reminder", "note", "notes", "list",
		"meet", "meeting", "appointment", "lunch", "dinner", "coffee",
		"today", "tonight", "tomorrow", "morning", "afternoon", "evening",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
		"sunday", "week", "month", "hour", "hours", "minute", "minutes",
		"mom", "dad", "doctor", "dentist", "office", "home", "work", "school",
		"store", "gym", "bank", "milk", "bread", "eggs", "groceries", "car",
		"keys", "bill", "bills", "rent", "report", "project", "deadline",
		"new", "next", "last", "first", "some", "for", "to", "too", "two",
	}

	confusionSets := [][]string{
		{"to", "two", "too"},
		{"for", "four"},
		{"buy", "by", "bye"},
		{"meet", "meat"},
		{"there", "their", "they're"},
		{"right", "write"},
		{"mail", "male"},
		{"wait", "weight"},
		{"week", "weak"},
		{"hour", "our"},
		{"sun", "son"},
		{"knew", "new"},
		{"know", "no"},
		{"ate", "eight"},
		{"won", "one"},
	}

	bigrams := map[string]float64{
		"buy milk": 3.0, "buy bread": 3.0, "buy eggs": 3.0, "buy groceries": 3.0,
		"call mom": 3.0, "call dad": 3.0, "call the": 1.5, "call doctor": 2.5,
		"meet with": 2.5, "meet at": 2.0, "meet alex": 1.5,
		"send mail": 2.0, "send email": 2.5, "send the": 1.0,
		"write notes": 2.0, "write the": 1.5, "write down": 2.0,
		"their car": 2.5, "their house": 2.5, "their keys": 2.0,
		"there is": 2.5, "there are": 2.5,
		"two hours": 2.5, "two weeks": 2.5, "two days": 2.5,
		"to the": 2.0, "to buy": 2.0, "to call": 2.0, "to meet": 2.0,
		"too late": 2.0, "for two": 1.5, "at two": 1.5,
		"next week": 2.5, "next monday": 2.0, "this week": 2.0,
		"pick up": 3.0, "pay the": 2.0, "pay rent": 2.5,
		"the report": 1.5, "the project": 1.5, "the store": 2.0,
		"an hour": 2.5, "one hour": 2.0, "eight hours": 2.0,
	}

	trigrams := map[string]float64{
		"need to buy": 3.0, "need to call": 3.0, "have to call": 2.5,
		"pick up the": 2.5, "meet with the": 2.0, "go to the": 2.5,
		"remember to buy": 2.5, "remember to call": 2.5,
		"for two hours": 2.5, "in two weeks": 2.0, "at two pm": 1.5,
		"there is a": 2.0, "in their car": 2.0,
	}

	return NewTables(dictionary, confusionSets, bigrams, trigrams)
}
