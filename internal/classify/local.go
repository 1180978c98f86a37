package classify

import (
	"regexp"
	"strings"

	"github.com/mailsift/mailsift/internal/lexicon"
)

// Local is the heuristic classifier used when the remote tier is unavailable
// or disabled. Deterministic for a fixed input and table, and never fails:
// degenerate input yields Improdutivo at 0.6.
type Local struct {
	table *lexicon.Table
}

func NewLocal(table *lexicon.Table) *Local {
	return &Local{table: table}
}

// Classify runs the full heuristic pipeline: strong-social pre-filter,
// weighted lexical scoring, linguistic pattern bonuses, contextual
// adjustment, then margin-derived confidence.
func (l *Local) Classify(text string) Result {
	if len(strings.TrimSpace(text)) == 0 {
		return Result{Category: CategoryUnproductive, Confidence: 0.6}
	}

	lower := strings.ToLower(text)
	cleaned := lexicon.Clean(text)

	// Unambiguous courtesy short-circuits scoring entirely. A social message
	// that still smuggles a request keeps the courtesy category but at lower
	// confidence.
	if matchesAny(lower, lexicon.StrongSocial) || matchesAny(lower, lexicon.CourtesySocial) {
		if lexicon.ContainsAny(cleaned, lexicon.RequestMarkers) {
			return Result{Category: CategoryUnproductive, Confidence: 0.7}
		}
		return Result{Category: CategoryUnproductive, Confidence: 0.9}
	}

	productive, unproductive := l.scoreLexical(cleaned, lower)

	bonusP, bonusU := scorePatterns(lower)
	productive += bonusP
	unproductive += bonusU

	unproductive += contextualAdjustment(lower)

	confidence := confidenceFromScores(productive, unproductive)
	confidence = clamp(confidence, 0.55, 0.98)

	if productive >= unproductive {
		return Result{Category: CategoryProductive, Confidence: confidence}
	}
	return Result{Category: CategoryUnproductive, Confidence: confidence}
}

// scoreLexical adds each matched phrase weight to its accumulator. A
// productive phrase sitting within three tokens of a gratitude term is
// suppressed: "problema" right after "obrigado pelo" describes a resolved
// issue, not an open request.
func (l *Local) scoreLexical(cleaned, lower string) (productive, unproductive float64) {
	for phrase, weight := range l.table.Productive {
		if !strings.Contains(cleaned, phrase) {
			continue
		}
		if inGratitudeWindow(phrase, lower) {
			continue
		}
		productive += weight
	}
	for phrase, weight := range l.table.Unproductive {
		if strings.Contains(cleaned, phrase) {
			unproductive += weight
		}
	}
	return productive, unproductive
}

// inGratitudeWindow reports whether word occurs as a token within ±3 tokens
// of a known gratitude/praise term in the raw lowercase text.
func inGratitudeWindow(word, lower string) bool {
	tokens := strings.Fields(lower)
	for i, tok := range tokens {
		if tok != word {
			continue
		}
		lo := i - 3
		if lo < 0 {
			lo = 0
		}
		hi := i + 4
		if hi > len(tokens) {
			hi = len(tokens)
		}
		window := strings.Join(tokens[lo:hi], " ")
		for _, ctx := range lexicon.GratitudeContexts {
			if ctx != word && strings.Contains(window, ctx) {
				return true
			}
		}
	}
	return false
}

// scorePatterns awards independent additive bonuses for linguistic shape:
// questions, urgency and technical vocabulary point at a request; greetings,
// exclamations and praise point at courtesy.
func scorePatterns(lower string) (productive, unproductive float64) {
	if lexicon.ContainsAny(lower, lexicon.QuestionMarkers) {
		productive += 1.5
	}
	if lexicon.ContainsAny(lower, lexicon.ImperativeWords) {
		productive += 1.2
	}
	if lexicon.ContainsAny(lower, lexicon.TechnicalWords) {
		productive += 1.3
	}

	if lexicon.ContainsAny(lower, lexicon.GreetingWords) {
		unproductive += 0.5
	}
	if strings.Count(lower, "!") > 2 {
		unproductive += 0.8
	}
	if lexicon.ContainsAny(lower, lexicon.PraiseWords) {
		unproductive += 1.0
	}
	return productive, unproductive
}

// contextualAdjustment applies compound rules that bias toward courtesy.
// Isolated keyword scoring misreads "obrigado pelo suporte, o problema foi
// resolvido" as a request without them.
func contextualAdjustment(lower string) float64 {
	var adjust float64

	if strings.Contains(lower, "obrigado") && strings.Contains(lower, "suporte") {
		adjust += 2.0
	}

	praise := strings.Contains(lower, "parabéns") || strings.Contains(lower, "excelente")
	if praise && strings.Contains(lower, "problema") {
		adjust += 1.5
	}

	var positives int
	for _, word := range lexicon.PositiveWords {
		if strings.Contains(lower, word) {
			positives++
		}
	}
	if positives >= 2 {
		adjust += 1.0
	}

	return adjust
}

// confidenceFromScores derives confidence from the normalized margin between
// the two accumulators, with a bonus for wide margins and a penalty for
// uncertain ones.
func confidenceFromScores(productive, unproductive float64) float64 {
	diff := productive - unproductive
	if diff < 0 {
		diff = -diff
	}
	sum := productive + unproductive

	if sum == 0 {
		return 0.6
	}

	confidence := diff / sum
	if confidence > 0.95 {
		confidence = 0.95
	}

	switch {
	case diff > 3:
		confidence += 0.15
	case diff > 1.5:
		confidence += 0.08
	default:
		confidence -= 0.10
	}

	return clamp(confidence, 0.5, 0.98)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
