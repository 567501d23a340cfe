package rescore

// Grammar-consistency penalties. These are known-bad adjacent sequences that
// a correct transcript essentially never contains; each occurrence subtracts
// a fixed penalty from the alternative's score. The lists are deliberately
// conservative — a false penalty on a valid transcript is worse than a missed
// one on a garbled alternative.

// grammarPenalty is the score subtracted per detected bad sequence.
const grammarPenalty = 2.0

var articles = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
}

var prepositions = map[string]struct{}{
	"at": {}, "in": {}, "on": {}, "to": {}, "for": {}, "from": {},
	"with": {}, "of": {}, "by": {},
}

// beVerbs participate in the impossible-verb-pair check ("is are", "am was").
var beVerbs = map[string]struct{}{
	"is": {}, "am": {}, "are": {}, "was": {}, "were": {}, "be": {},
}

// possessiveContextNouns are nouns that, directly after "there", almost
// always indicate a misrecognised "their" ("there car", "there keys").
var possessiveContextNouns = map[string]struct{}{
	"car": {}, "house": {}, "keys": {}, "phone": {}, "dog": {}, "cat": {},
	"mom": {}, "dad": {}, "kids": {}, "office": {}, "desk": {}, "stuff": {},
}

// grammarScore returns the total penalty for tokens: double articles,
// impossible be-verb pairs, "there" followed by a possessive-context noun,
// and double prepositions.
func grammarScore(tokens []string) float64 {
	var penalty float64
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]

		if _, ok := articles[a]; ok {
			if _, ok2 := articles[b]; ok2 {
				penalty += grammarPenalty
			}
		}
		if _, ok := beVerbs[a]; ok {
			if _, ok2 := beVerbs[b]; ok2 && a != b {
				penalty += grammarPenalty
			}
		}
		if a == "there" {
			if _, ok := possessiveContextNouns[b]; ok {
				penalty += grammarPenalty
			}
		}
		if _, ok := prepositions[a]; ok {
			if _, ok2 := prepositions[b]; ok2 && a == b {
				penalty += grammarPenalty
			}
		}
	}
	return penalty
}
