package classify

import (
	"strings"

	"github.com/mailsift/mailsift/internal/lexicon"
)

// ClassifyFast is the fallback variant used by the orchestrator when the
// remote tier is exhausted. It works only on the raw lowercase text: a strong
// context match decides immediately, otherwise the regex-weighted scorers
// decide by margin.
//
// A near-tie (|margin| <= 1.0) resolves to Produtivo at flat 0.65. The
// asymmetry is intentional and preserved as-is: an uncertain email is cheaper
// to triage as actionable than to drop as courtesy.
func ClassifyFast(text string) Result {
	lower := strings.ToLower(text)

	if matchesAny(lower, lexicon.StrongSocial) {
		return Result{Category: CategoryUnproductive, Confidence: 0.92}
	}
	if matchesAny(lower, lexicon.Urgent) {
		return Result{Category: CategoryProductive, Confidence: 0.88}
	}

	productive := scoreWeighted(lower, lexicon.FastProductive)
	if strings.Contains(lower, "?") {
		productive += 1.0
	}
	if lexicon.ContainsAny(lower, []string{"por favor", "urgente", "prioridade"}) {
		productive += 1.2
	}

	unproductive := scoreWeighted(lower, lexicon.FastUnproductive)

	diff := productive - unproductive
	switch {
	case diff > 1.0:
		return Result{Category: CategoryProductive, Confidence: fastConfidence(diff)}
	case diff < -1.0:
		return Result{Category: CategoryUnproductive, Confidence: fastConfidence(-diff)}
	default:
		return Result{Category: CategoryProductive, Confidence: 0.65}
	}
}

func scoreWeighted(lower string, patterns []lexicon.WeightedPattern) float64 {
	var score float64
	for _, wp := range patterns {
		if wp.Pattern.MatchString(lower) {
			score += wp.Weight
		}
	}
	return score
}

func fastConfidence(margin float64) float64 {
	c := 0.7 + margin*0.1
	if c > 0.95 {
		c = 0.95
	}
	return c
}
