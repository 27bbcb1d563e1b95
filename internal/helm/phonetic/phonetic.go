// Package phonetic normalizes misheard naval vocabulary in raw transcripts
// using Double Metaphone phonetic encoding combined with Jaro-Winkler string
// similarity.
//
// Speech-to-text output for helm commands routinely garbles the standing
// vocabulary: "ruder" for "rudder", "mid ships" for "amidships", "a stern"
// for "astern". The [Normalizer] sweeps the transcript token stream with
// n-gram windows and replaces any window that phonetically aligns with a
// canonical term, so the downstream corrector and interpreter see consistent
// wording.
//
// The matching algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each word in the window and for each canonical term. If any code from
//     the window overlaps with any code from a term, the term becomes a
//     phonetic candidate.
//
//  2. Jaro-Winkler ranking: Among phonetic candidates, the term with the
//     highest Jaro-Winkler similarity (computed on the original strings,
//     case-insensitive) is selected — provided its score exceeds the
//     configurable phonetic threshold. When no phonetic candidate is found,
//     a secondary pass tests pure Jaro-Winkler similarity against all terms
//     using a higher fuzzy threshold (default 0.85).
//
// Digit words ("zero" through "niner") and numerals are never rewritten:
// course and speed values ride on them, and a false substitution there would
// corrupt the command rather than clean it up.
package phonetic

import (
	"slices"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// defaultTerms is the canonical helm vocabulary the normalizer aligns
// against. Multi-word phrases are matched as n-gram windows.
var defaultTerms = []string{
	"rudder",
	"amidships",
	"midships",
	"ahead",
	"astern",
	"steady",
	"course",
	"starboard",
	"port",
	"helm",
	"degrees",
	"flank",
	"emergency",
	"standard",
	"steer",
	"belay",
	"hard",
	"all stop",
	"one third",
	"two thirds",
}

// DefaultTerms returns a copy of the standing helm vocabulary. Useful as
// recognition keyword hints for STT providers.
func DefaultTerms() []string {
	return slices.Clone(defaultTerms)
}

// protectedWords are tokens that must never be substituted, even when a
// canonical term scores above threshold. Spoken digits carry the numeric
// payload of a command.
var protectedWords = map[string]struct{}{
	"zero": {}, "one": {}, "two": {}, "three": {}, "four": {},
	"five": {}, "six": {}, "seven": {}, "eight": {}, "nine": {},
	"niner": {}, "oh": {},
}

// Substitution records a single window-level replacement made by Normalize.
type Substitution struct {
	// Original is the window text as produced by the STT provider.
	Original string

	// Term is the canonical vocabulary term that replaced it.
	Term string

	// Confidence is the Jaro-Winkler score of the accepted match (0.0-1.0).
	Confidence float64
}

// Option is a functional option for configuring a [Normalizer].
type Option func(*Normalizer)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(n *Normalizer) {
		n.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(n *Normalizer) {
		n.fuzzyThreshold = threshold
	}
}

// WithTerms replaces the default canonical vocabulary with terms.
func WithTerms(terms []string) Option {
	return func(n *Normalizer) {
		n.terms = terms
	}
}

// WithExtraTerms appends terms to the current vocabulary.
func WithExtraTerms(terms []string) Option {
	return func(n *Normalizer) {
		n.terms = append(append([]string{}, n.terms...), terms...)
	}
}

// Normalizer rewrites misheard vocabulary in transcript text. It is
// read-only after construction and safe for concurrent use.
type Normalizer struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	terms             []string

	// Precomputed per-term data, built once in New.
	termData        []termEntry
	canonicalTokens map[string]struct{}
	maxWords        int
}

type termEntry struct {
	term   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

// New returns a [Normalizer] configured with the supplied options. Default
// thresholds are 0.70 for phonetic matches and 0.85 for fuzzy fallback
// matches; the default vocabulary is the standing helm term list.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		terms:             defaultTerms,
	}
	for _, o := range opts {
		o(n)
	}

	n.maxWords = 1
	n.canonicalTokens = make(map[string]struct{})
	for _, t := range n.terms {
		lower := strings.ToLower(strings.TrimSpace(t))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		if len(tokens) > n.maxWords {
			n.maxWords = len(tokens)
		}
		for _, tok := range tokens {
			n.canonicalTokens[tok] = struct{}{}
		}
		n.termData = append(n.termData, termEntry{
			term:   t,
			lower:  lower,
			tokens: tokens,
			codes:  codesForTokens(tokens),
		})
	}
	return n
}

// Normalize sweeps text with n-gram windows (longest first, so multi-word
// terms take precedence over partial single-word matches) and replaces every
// window that matches a canonical term. It returns the rewritten text and an
// itemised record of the substitutions applied; when nothing matched, the
// text is returned unchanged and the slice is nil.
func (n *Normalizer) Normalize(text string) (string, []Substitution) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(n.termData) == 0 {
		return text, nil
	}

	var output []string
	var subs []Substitution

	i := 0
	for i < len(tokens) {
		maxN := n.maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for size := maxN; size >= 1; size-- {
			window := strings.Join(tokens[i:i+size], " ")
			term, conf, ok := n.match(window)
			if !ok {
				continue
			}

			if strings.EqualFold(window, term) {
				// Already canonical; emit as-is without recording.
				output = append(output, strings.Fields(term)...)
			} else {
				output = append(output, strings.Fields(term)...)
				subs = append(subs, Substitution{
					Original:   window,
					Term:       term,
					Confidence: conf,
				})
			}
			i += size
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	return strings.Join(output, " "), subs
}

// match tests a single window against the canonical vocabulary. It returns
// the best term, its Jaro-Winkler score, and whether a sufficiently similar
// term was found. Protected (digit) and numeric windows never match.
func (n *Normalizer) match(window string) (term string, confidence float64, matched bool) {
	windowLower := strings.ToLower(strings.TrimSpace(window))
	if windowLower == "" {
		return window, 0, false
	}

	windowTokens := strings.Fields(windowLower)
	for _, t := range windowTokens {
		if _, protected := protectedWords[t]; protected {
			return window, 0, false
		}
		if _, err := strconv.Atoi(t); err == nil {
			return window, 0, false
		}
		// A multi-token window containing an already-canonical word would
		// only ever match by swallowing its neighbours ("rudder a" scoring
		// high against "rudder"). Leave such windows to the size-1 sweep.
		if len(windowTokens) > 1 {
			if _, canonical := n.canonicalTokens[t]; canonical {
				return window, 0, false
			}
		}
	}
	// Very short single tokens ("to", "at") produce too many false
	// positives against the vocabulary.
	if len(windowTokens) == 1 && len(windowTokens[0]) < 3 {
		return window, 0, false
	}

	windowCodes := codesForTokens(windowTokens)

	type candidate struct {
		term     string
		score    float64
		phonetic bool
	}

	var best candidate

	for _, entry := range n.termData {
		// A window shorter than the term would match on a strict prefix
		// ("all" scoring high against "all stop") and splice extra words
		// into the command.
		if len(entry.tokens) > len(windowTokens) {
			continue
		}

		phoneticMatch := codesOverlap(windowCodes, entry.codes)
		jwScore := bestJWScore(windowTokens, entry.tokens, windowLower, entry.lower)

		if phoneticMatch {
			if jwScore >= n.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{term: entry.term, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= n.fuzzyThreshold && jwScore > best.score {
				best = candidate{term: entry.term, score: jwScore, phonetic: false}
			}
		}
	}

	if best.term != "" {
		return best.term, best.score, true
	}
	return window, 0, false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or contains
// no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the
// window and the term using two strategies:
//
//  1. Full-string comparison ("hard wright" vs "hard right").
//  2. Space-stripped comparison ("mid ships" vs "midships").
//
// Per-token pairwise scoring is deliberately not used: one perfectly
// matching token would let a window like "right rudder" collapse onto the
// bare term "rudder" and drop the qualifier.
func bestJWScore(windowTokens, termTokens []string, windowFull, termFull string) float64 {
	score := matchr.JaroWinkler(windowFull, termFull, false)

	if len(windowTokens) > 1 || len(termTokens) > 1 {
		concat1 := strings.Join(windowTokens, "")
		concat2 := strings.Join(termTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	return score
}
