// Package triage combines the classification engine and the response
// generator into the service callers consume: single emails, files and
// batches in, category + confidence + suggested reply out.
package triage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mailsift/mailsift/internal/classify"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/extract"
	"github.com/mailsift/mailsift/internal/history"
	"github.com/mailsift/mailsift/internal/respond"
)

const (
	excerptLimit      = 200
	batchEchoLimit    = 150
	batchErrorReply   = "Não foi possível processar este email."
	batchErrorTag     = "ERROR"
	modelUsedTwoTier  = "HuggingFace + análise heurística local"
	modelUsedLocal    = "Análise heurística local"
)

// Response is the envelope returned for one processed email.
type Response struct {
	RequestID       string            `json:"request_id"`
	Category        classify.Category `json:"category"`
	Confidence      float64           `json:"confidence"`
	ConfidenceLevel string            `json:"confidence_level"`
	Reply           string            `json:"suggested_reply"`
	Excerpt         string            `json:"processed_text"`
	ModelUsed       string            `json:"model_used"`
	ProcessingTime  string            `json:"processing_time"`
	Timestamp       time.Time         `json:"timestamp"`
}

// BatchRecord is either a success envelope or an inline error record; Error
// is empty on success and Category is "ERROR" on failure.
type BatchRecord struct {
	Response
	Error string `json:"error,omitempty"`
}

// BatchResult preserves input order; item i's failure never removes or
// reorders other items.
type BatchResult struct {
	BatchID   string        `json:"batch_id"`
	Records   []BatchRecord `json:"results"`
	Total     int           `json:"total_processed"`
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
	Elapsed   string        `json:"elapsed"`
}

// SuccessRate is derived, not stored.
func (b BatchResult) SuccessRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Successes) / float64(b.Total)
}

// Metrics is a read-only snapshot of the engine counters.
type Metrics struct {
	TotalProcessed   int       `json:"total_processed"`
	Productive       int       `json:"productive"`
	Unproductive     int       `json:"unproductive"`
	ProductiveRate   float64   `json:"productive_rate"`
	AvgProcessingSec float64   `json:"avg_processing_sec"`
	Timestamp        time.Time `json:"timestamp"`
}

// Engine is the top-level triage service. Safe for concurrent use: the
// running counters are mutex-guarded, batch items share no mutable state.
type Engine struct {
	classifier *classify.Engine
	generator  *respond.Generator
	limits     config.Limits
	store      *history.Store // optional

	mu             sync.Mutex
	totalProcessed int
	productive     int
	unproductive   int
	totalElapsed   time.Duration
}

func NewEngine(classifier *classify.Engine, generator *respond.Generator, limits config.Limits, store *history.Store) *Engine {
	return &Engine{
		classifier: classifier,
		generator:  generator,
		limits:     limits,
		store:      store,
	}
}

// Classifier exposes the underlying classification engine for introspection.
func (e *Engine) Classifier() *classify.Engine { return e.classifier }

// Process classifies one email and produces a suggested reply. The only
// error class returned is ValidationError; every transient failure inside
// the tiers has a local fallback.
func (e *Engine) Process(ctx context.Context, text string) (*Response, error) {
	return e.process(ctx, text, "text")
}

// ProcessFrom is Process with an explicit source tag ("web", "api", "imap")
// recorded in the history log.
func (e *Engine) ProcessFrom(ctx context.Context, text, source string) (*Response, error) {
	return e.process(ctx, text, source)
}

func (e *Engine) process(ctx context.Context, text, source string) (*Response, error) {
	if err := e.validate(text); err != nil {
		return nil, err
	}

	start := time.Now()
	text = strings.TrimSpace(text)

	classified := e.classifier.Classify(ctx, text)

	// Boundary check: scorers clamp internally, so anything outside [0,1]
	// here is a programming error worth surfacing loudly.
	result, err := classify.NewResult(classified.Category, classified.Confidence)
	if err != nil {
		return nil, err
	}

	reply := e.generator.Reply(ctx, result.Category, text, result.Confidence)
	elapsed := time.Since(start)

	e.updateMetrics(result.Category, elapsed)

	resp := &Response{
		RequestID:       newID("req"),
		Category:        result.Category,
		Confidence:      result.Confidence,
		ConfidenceLevel: confidenceLevel(result.Confidence),
		Reply:           reply,
		Excerpt:         Summarize(text, excerptLimit),
		ModelUsed:       e.modelUsed(),
		ProcessingTime:  fmt.Sprintf("%.3fs", elapsed.Seconds()),
		Timestamp:       time.Now(),
	}

	e.persist(resp, source, elapsed)
	return resp, nil
}

// ProcessFile extracts text from a .txt or .pdf file and processes it.
func (e *Engine) ProcessFile(ctx context.Context, path string) (*Response, error) {
	text, err := extract.FromFile(path)
	if err != nil {
		return nil, err
	}
	return e.process(ctx, text, "file")
}

// ProcessBatch applies Process to each text in order. A failing item becomes
// an inline error record; the batch never aborts.
func (e *Engine) ProcessBatch(ctx context.Context, texts []string) *BatchResult {
	start := time.Now()
	result := &BatchResult{
		BatchID: newID("batch"),
		Records: make([]BatchRecord, 0, len(texts)),
		Total:   len(texts),
	}

	for i, text := range texts {
		resp, err := e.process(ctx, text, "batch")
		if err != nil {
			log.Printf("batch item %d/%d failed: %v", i+1, len(texts), err)
			result.Records = append(result.Records, BatchRecord{
				Response: Response{
					Category:   batchErrorTag,
					Confidence: 0.0,
					Reply:      batchErrorReply,
					Excerpt:    Summarize(text, batchEchoLimit),
					Timestamp:  time.Now(),
				},
				Error: err.Error(),
			})
			result.Failures++
			continue
		}
		result.Records = append(result.Records, BatchRecord{Response: *resp})
		result.Successes++
	}

	result.Elapsed = fmt.Sprintf("%.2fs", time.Since(start).Seconds())
	return result
}

// Metrics returns a snapshot of the running counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := Metrics{
		TotalProcessed: e.totalProcessed,
		Productive:     e.productive,
		Unproductive:   e.unproductive,
		Timestamp:      time.Now(),
	}
	if e.totalProcessed > 0 {
		m.ProductiveRate = float64(e.productive) / float64(e.totalProcessed)
		m.AvgProcessingSec = e.totalElapsed.Seconds() / float64(e.totalProcessed)
	}
	return m
}

func (e *Engine) validate(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &classify.ValidationError{Code: classify.ReasonEmptyText, Detail: "email text must not be empty"}
	}
	if len(trimmed) < e.limits.MinTextLength {
		return &classify.ValidationError{
			Code:   classify.ReasonTooShort,
			Detail: fmt.Sprintf("email text too short: %d characters (minimum %d)", len(trimmed), e.limits.MinTextLength),
		}
	}
	if len(trimmed) > e.limits.MaxTextLength {
		return &classify.ValidationError{
			Code:   classify.ReasonTooLong,
			Detail: fmt.Sprintf("email text too long: %d characters (maximum %d)", len(trimmed), e.limits.MaxTextLength),
		}
	}
	return nil
}

func (e *Engine) updateMetrics(category classify.Category, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.totalProcessed++
	e.totalElapsed += elapsed
	switch category {
	case classify.CategoryProductive:
		e.productive++
	case classify.CategoryUnproductive:
		e.unproductive++
	}
}

func (e *Engine) modelUsed() string {
	entries := e.classifier.History()
	if len(entries) > 0 && entries[len(entries)-1].Method == classify.MethodRemote {
		return modelUsedTwoTier
	}
	return modelUsedLocal
}

func (e *Engine) persist(resp *Response, source string, elapsed time.Duration) {
	if e.store == nil {
		return
	}

	method := classify.MethodLocal
	if resp.ModelUsed == modelUsedTwoTier {
		method = classify.MethodRemote
	}

	record := &history.Record{
		RequestID:    resp.RequestID,
		Source:       source,
		Category:     string(resp.Category),
		Confidence:   resp.Confidence,
		Method:       method,
		Reply:        resp.Reply,
		Excerpt:      resp.Excerpt,
		ProcessingMs: elapsed.Milliseconds(),
	}
	if err := e.store.Add(record); err != nil {
		log.Printf("failed to persist triage record: %v", err)
	}
}

// Summarize shortens text for echoing back in responses: whole text when it
// fits, otherwise first paragraph, otherwise packed sentences, otherwise a
// hard word-boundary cut.
func Summarize(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}

	if paragraphs := strings.SplitN(text, "\n\n", 2); len(paragraphs[0]) <= limit {
		return strings.TrimSpace(paragraphs[0])
	}

	var sb strings.Builder
	for _, sentence := range strings.Split(text, ". ") {
		if sb.Len()+len(sentence) >= limit-3 {
			break
		}
		sb.WriteString(sentence)
		sb.WriteString(". ")
	}

	summary := strings.TrimSpace(sb.String())
	if summary != "" {
		return strings.TrimRight(summary, ".,!?") + "..."
	}

	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	} else {
		// No space to cut on: back off to a rune boundary so multibyte
		// text never yields an invalid excerpt.
		for len(cut) > 0 && !utf8.RuneStart(text[len(cut)]) {
			cut = cut[:len(cut)-1]
		}
	}
	return cut + "..."
}

// confidenceLevel maps numeric confidence to the label shown to users.
func confidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "Muito Alta"
	case confidence >= 0.7:
		return "Alta"
	case confidence >= 0.5:
		return "Média"
	default:
		return "Baixa"
	}
}

func newID(prefix string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return prefix + "_00000000"
	}
	return prefix + "_" + hex.EncodeToString(buf)
}
