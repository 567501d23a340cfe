// Package rescore selects the most plausible transcript from the weighted
// alternative list a speech engine returns for each recognised utterance.
//
// Engine confidence alone is frequently miscalibrated for homophones — "by
// milk" and "buy milk" sound identical, so the acoustic model cannot prefer
// one. The rescorer recovers the intended words from context instead: each
// alternative is scored on token plausibility, homophone confusion-set
// substitution driven by bigram/trigram collocation statistics, whole-sequence
// collocation bonuses, a cross-utterance context bonus, and grammar
// consistency penalties. The highest-scoring alternative (ties keep the first,
// preserving engine order) is returned with its substitutions applied.
//
// All scoring inputs are immutable [Tables] injected at construction, so a
// Rescorer is read-only after New and safe for concurrent use.
package rescore

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/marchewka/scribeline/pkg/types"
)

const (
	// confidenceWeight scales the engine's own confidence into the score.
	confidenceWeight = 10.0

	// dictionaryBonus rewards each token that is a known word.
	dictionaryBonus = 1.0

	// nearMissBonus rewards tokens that are not dictionary words but are
	// phonetically close to one (Double Metaphone match plus Jaro-Winkler
	// above nearMissThreshold).
	nearMissBonus = 0.5

	// fragmentPenalty is subtracted for tokens that are neither known words
	// nor phonetically close to one.
	fragmentPenalty = 1.0

	// bigramWeight and trigramWeight scale sequence collocation bonuses.
	bigramWeight  = 1.0
	trigramWeight = 1.5

	// contextWeight scales the cross-utterance bonus joining the previous
	// final text to the first token of an alternative.
	contextWeight = 2.0

	// nearMissThreshold is the minimum Jaro-Winkler similarity for the
	// phonetic near-miss bonus.
	nearMissThreshold = 0.90
)

// Option is a functional option for configuring a [Rescorer].
type Option func(*Rescorer)

// WithTables replaces the default language statistics tables.
func WithTables(t *Tables) Option {
	return func(r *Rescorer) {
		r.tables = t
	}
}

// Result is the outcome of refining one batch of alternatives.
type Result struct {
	// Transcript is the selected alternative's text with homophone
	// substitutions applied.
	Transcript string

	// Index is the position of the selected alternative in the input slice.
	Index int

	// Score is the winning total score. Useful for logging and metrics; the
	// absolute value has no meaning outside a single Refine call.
	Score float64
}

// Rescorer rescoring implementation. Read-only after construction; safe for
// concurrent use.
type Rescorer struct {
	tables *Tables
}

// New creates a [Rescorer]. Without options it uses [DefaultTables].
func New(opts ...Option) *Rescorer {
	r := &Rescorer{tables: DefaultTables()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Refine scores every alternative and returns the winner. prevText is the
// previously finalised transcript of the same capture session ("" when none);
// its last token feeds the cross-utterance context bonus.
//
// An empty alternatives slice yields a zero Result. Ties keep the
// earliest-indexed alternative, preserving the engine's own ranking as the
// tiebreak.
func (r *Rescorer) Refine(alternatives []types.Alternative, prevText string) Result {
	if len(alternatives) == 0 {
		return Result{}
	}

	prevTail := lastToken(prevText)

	best := Result{Index: -1}
	for i, alt := range alternatives {
		transcript, score := r.scoreAlternative(alt, prevTail)
		if best.Index == -1 || score > best.Score {
			best = Result{Transcript: transcript, Index: i, Score: score}
		}
	}
	return best
}

// scoreAlternative computes the total score for one alternative and returns
// the (possibly substituted) transcript alongside it.
func (r *Rescorer) scoreAlternative(alt types.Alternative, prevTail string) (string, float64) {
	raw := strings.Fields(alt.Transcript)
	if len(raw) == 0 {
		return alt.Transcript, confidenceWeight * alt.Confidence
	}

	// tokens holds the lower-cased comparison forms; raw keeps the original
	// casing and punctuation for reassembly.
	tokens := make([]string, len(raw))
	for i, w := range raw {
		tokens[i] = comparable(w)
	}

	score := confidenceWeight * alt.Confidence

	// Per-token plausibility and in-place homophone substitution.
	for i, tok := range tokens {
		switch {
		case r.tables.InDictionary(tok):
			score += dictionaryBonus
		case r.phoneticNearMiss(tok):
			score += nearMissBonus
		default:
			score -= fragmentPenalty
		}

		if sub, gain := r.bestConfusionSub(tokens, i); sub != tok {
			tokens[i] = sub
			raw[i] = replaceCore(raw[i], sub)
			score += gain
		}
	}

	// Whole-sequence collocation bonuses.
	for i := 0; i+1 < len(tokens); i++ {
		score += bigramWeight * r.tables.Bigram(tokens[i], tokens[i+1])
	}
	for i := 0; i+2 < len(tokens); i++ {
		score += trigramWeight * r.tables.Trigram(tokens[i], tokens[i+1], tokens[i+2])
	}

	// Cross-utterance context: join the previous final's last token with this
	// alternative's first token.
	if prevTail != "" {
		score += contextWeight * r.tables.Bigram(prevTail, tokens[0])
	}

	score -= grammarScore(tokens)

	return strings.Join(raw, " "), score
}

// bestConfusionSub picks the confusion-set variant of tokens[i] that
// maximises local bigram/trigram collocation with its neighbours. Returns the
// original token with zero gain when no variant improves on it.
func (r *Rescorer) bestConfusionSub(tokens []string, i int) (string, float64) {
	alternates := r.tables.Alternates(tokens[i])
	if len(alternates) == 0 {
		return tokens[i], 0
	}

	bestTok := tokens[i]
	bestScore := r.localCollocation(tokens, i, tokens[i])
	for _, alt := range alternates {
		if s := r.localCollocation(tokens, i, alt); s > bestScore {
			bestTok = alt
			bestScore = s
		}
	}
	return bestTok, bestScore - r.localCollocation(tokens, i, tokens[i])
}

// localCollocation sums the bigram and trigram weights of the windows around
// position i with candidate substituted in.
func (r *Rescorer) localCollocation(tokens []string, i int, candidate string) float64 {
	var s float64
	if i > 0 {
		s += r.tables.Bigram(tokens[i-1], candidate)
	}
	if i+1 < len(tokens) {
		s += r.tables.Bigram(candidate, tokens[i+1])
	}
	if i > 1 {
		s += r.tables.Trigram(tokens[i-2], tokens[i-1], candidate)
	}
	if i > 0 && i+1 < len(tokens) {
		s += r.tables.Trigram(tokens[i-1], candidate, tokens[i+1])
	}
	if i+2 < len(tokens) {
		s += r.tables.Trigram(candidate, tokens[i+1], tokens[i+2])
	}
	return s
}

// phoneticNearMiss reports whether tok is phonetically close to any
// dictionary word: overlapping Double Metaphone codes and Jaro-Winkler
// similarity above the threshold.
func (r *Rescorer) phoneticNearMiss(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	p1, s1 := matchr.DoubleMetaphone(tok)
	for word := range r.tables.dictionary {
		p2, s2 := matchr.DoubleMetaphone(word)
		if p1 == "" || p2 == "" || (p1 != p2 && p1 != s2 && s1 != p2) {
			continue
		}
		if matchr.JaroWinkler(tok, word, false) >= nearMissThreshold {
			return true
		}
	}
	return false
}

// comparable lower-cases a raw token and strips surrounding punctuation.
func comparable(w string) string {
	return strings.Trim(strings.ToLower(w), ".,;:!?\"'")
}

// replaceCore swaps the word core of raw for sub while preserving any
// surrounding punctuation ("By," → "buy,").
func replaceCore(raw, sub string) string {
	core := strings.Trim(raw, ".,;:!?\"'")
	if core == "" {
		return sub
	}
	idx := strings.Index(raw, core)
	return raw[:idx] + sub + raw[idx+len(core):]
}

// lastToken returns the comparison form of the final token of text, or ""
// when text is blank.
func lastToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return comparable(fields[len(fields)-1])
}
