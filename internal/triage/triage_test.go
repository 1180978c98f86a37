package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mailsift/mailsift/internal/classify"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/lexicon"
	"github.com/mailsift/mailsift/internal/respond"
)

func newTestEngine() *Engine {
	classifier := classify.NewEngine(nil, classify.NewLocal(lexicon.New(nil, nil)), 10)
	return NewEngine(classifier, respond.New(nil), config.Limits{MinTextLength: 10, MaxTextLength: 15000}, nil)
}

func TestProcess(t *testing.T) {
	engine := newTestEngine()

	resp, err := engine.Process(context.Background(), "Preciso de ajuda urgente, o sistema está fora do ar")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if resp.Category != classify.CategoryProductive {
		t.Errorf("category = %s, want Produtivo", resp.Category)
	}
	if resp.Confidence < 0.55 || resp.Confidence > 0.98 {
		t.Errorf("confidence = %v, want within [0.55, 0.98]", resp.Confidence)
	}
	if resp.Reply == "" {
		t.Error("suggested reply is empty")
	}
	if !strings.HasPrefix(resp.RequestID, "req_") || len(resp.RequestID) != len("req_")+8 {
		t.Errorf("request id = %q, want req_ prefix plus 8 hex chars", resp.RequestID)
	}
	if resp.ModelUsed != modelUsedLocal {
		t.Errorf("model used = %q, want %q", resp.ModelUsed, modelUsedLocal)
	}
	if resp.ConfidenceLevel == "" {
		t.Error("confidence level is empty")
	}
}

func TestValidation(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name string
		text string
		code string
	}{
		{name: "empty", text: "", code: classify.ReasonEmptyText},
		{name: "whitespace only", text: "   \n\t ", code: classify.ReasonEmptyText},
		{name: "too short", text: "oi", code: classify.ReasonTooShort},
		{name: "too long", text: strings.Repeat("a", 15001), code: classify.ReasonTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Process(context.Background(), tt.text)
			var ve *classify.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Code != tt.code {
				t.Errorf("code = %s, want %s", ve.Code, tt.code)
			}
		})
	}
}

// One failing item becomes an inline error record; the other items are
// processed and order is preserved.
func TestProcessBatchIsolation(t *testing.T) {
	engine := newTestEngine()

	texts := []string{
		"Preciso de ajuda urgente, o sistema está fora do ar",
		"", // invalid: empty
		"Muito obrigado pela atenção de sempre",
	}

	result := engine.ProcessBatch(context.Background(), texts)

	if result.Total != 3 || len(result.Records) != 3 {
		t.Fatalf("total = %d, records = %d, want 3/3", result.Total, len(result.Records))
	}
	if result.Successes != 2 || result.Failures != 1 {
		t.Errorf("successes/failures = %d/%d, want 2/1", result.Successes, result.Failures)
	}

	if result.Records[0].Category != classify.CategoryProductive {
		t.Errorf("record 0 category = %s, want Produtivo", result.Records[0].Category)
	}

	errRec := result.Records[1]
	if errRec.Category != batchErrorTag {
		t.Errorf("record 1 category = %s, want %s", errRec.Category, batchErrorTag)
	}
	if errRec.Confidence != 0 {
		t.Errorf("record 1 confidence = %v, want 0", errRec.Confidence)
	}
	if errRec.Reply != batchErrorReply {
		t.Errorf("record 1 reply = %q, want %q", errRec.Reply, batchErrorReply)
	}
	if errRec.Error == "" {
		t.Error("record 1 error detail is empty")
	}

	if result.Records[2].Category != classify.CategoryUnproductive {
		t.Errorf("record 2 category = %s, want Improdutivo", result.Records[2].Category)
	}

	if !strings.HasPrefix(result.BatchID, "batch_") {
		t.Errorf("batch id = %q, want batch_ prefix", result.BatchID)
	}
	if got := result.SuccessRate(); got < 0.66 || got > 0.67 {
		t.Errorf("success rate = %v, want 2/3", got)
	}
}

func TestMetrics(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	engine.Process(ctx, "Preciso de ajuda urgente, o sistema está fora do ar")
	engine.Process(ctx, "Muito obrigado pela atenção de sempre")
	engine.Process(ctx, "Feliz Natal e boas festas para todos vocês")

	m := engine.Metrics()
	if m.TotalProcessed != 3 {
		t.Errorf("total = %d, want 3", m.TotalProcessed)
	}
	if m.Productive != 1 || m.Unproductive != 2 {
		t.Errorf("productive/unproductive = %d/%d, want 1/2", m.Productive, m.Unproductive)
	}
	if m.ProductiveRate < 0.33 || m.ProductiveRate > 0.34 {
		t.Errorf("productive rate = %v, want 1/3", m.ProductiveRate)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{
			name:  "fits whole",
			text:  "texto curto",
			limit: 50,
			want:  "texto curto",
		},
		{
			name:  "first paragraph",
			text:  "primeiro parágrafo aqui\n\nsegundo parágrafo muito mais longo que não cabe de jeito nenhum no limite",
			limit: 30,
			want:  "primeiro parágrafo aqui",
		},
		{
			name:  "sentence packing",
			text:  "Primeira frase. Segunda frase um pouco maior. Terceira frase que já não cabe mais no limite dado aqui.",
			limit: 50,
			want:  "Primeira frase. Segunda frase um pouco maior...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.text, tt.limit); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarizeWordBoundaryCut(t *testing.T) {
	text := strings.Repeat("palavracomprida ", 30)
	got := Summarize(text, 50)
	if len(got) > 54 {
		t.Errorf("summary too long: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ... suffix", got)
	}
}

// A space-free run of multibyte characters must still cut on a rune
// boundary, never mid-byte.
func TestSummarizeMultibyteCut(t *testing.T) {
	text := strings.Repeat("ç", 40)
	got := Summarize(text, 25)

	if !utf8.ValidString(got) {
		t.Fatalf("summary is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ... suffix", got)
	}
	if len(got) > 28 {
		t.Errorf("summary too long: %d bytes", len(got))
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{0.95, "Muito Alta"},
		{0.9, "Muito Alta"},
		{0.8, "Alta"},
		{0.7, "Alta"},
		{0.6, "Média"},
		{0.4, "Baixa"},
	}

	for _, tt := range tests {
		if got := confidenceLevel(tt.confidence); got != tt.want {
			t.Errorf("confidenceLevel(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}
