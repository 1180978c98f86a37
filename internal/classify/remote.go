package classify

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/mailsift/mailsift/internal/hfapi"
)

// maxRemoteInput bounds the text sent to the inference API; zero-shot
// accuracy does not improve past the opening of an email.
const maxRemoteInput = 400

// candidateLabels are the two zero-shot hypotheses, in the models' language.
var candidateLabels = []string{"produtivo", "improdutivo"}

// Remote classifies via an ordered list of zero-shot models. The first model
// to answer wins; ErrAllModelsFailed is returned only when every model call
// failed.
type Remote struct {
	client *hfapi.Client
	models []string
}

func NewRemote(client *hfapi.Client, models []string) *Remote {
	return &Remote{client: client, models: models}
}

func (r *Remote) Classify(ctx context.Context, text string) (Result, error) {
	input := truncateRunes(text, maxRemoteInput)

	for _, model := range r.models {
		zs, err := r.client.ZeroShot(ctx, model, input, candidateLabels)
		if err != nil {
			log.Printf("remote classify: model %s failed: %v", model, err)
			continue
		}

		label, score, err := zs.Best()
		if err != nil {
			log.Printf("remote classify: model %s returned unusable response: %v", model, err)
			continue
		}

		category, err := ParseCategory(label)
		if err != nil {
			log.Printf("remote classify: model %s returned unknown label %q", model, label)
			continue
		}

		// The legacy distilbert checkpoint reports inflated scores.
		if strings.Contains(model, "distilbert") {
			score *= 0.95
		}

		return Result{Category: category, Confidence: round3(score)}, nil
	}

	return Result{}, ErrAllModelsFailed
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
