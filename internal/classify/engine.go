package classify

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Method tags how a classification was produced.
const (
	MethodRemote = "remote"
	MethodLocal  = "local"
)

// HistoryEntry records one classification for introspection. History is never
// consulted by classification logic.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Category   Category  `json:"category"`
	Confidence float64   `json:"confidence"`
}

const historyLimit = 100

// RemoteClassifier is the remote tier as the engine sees it.
type RemoteClassifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Engine is the two-tier classification orchestrator: remote models first
// when enabled, fast local heuristics on any remote failure.
type Engine struct {
	remote    RemoteClassifier // nil when the remote tier is disabled
	local     *Local
	minLength int

	mu      sync.Mutex
	history []HistoryEntry
}

func NewEngine(remote RemoteClassifier, local *Local, minLength int) *Engine {
	return &Engine{remote: remote, local: local, minLength: minLength}
}

// Classify is the single entry point for callers. Degenerate input resolves
// immediately without touching either tier; every other input always gets a
// result because the local fallback cannot fail.
func (e *Engine) Classify(ctx context.Context, text string) Result {
	if len(strings.TrimSpace(text)) < e.minLength {
		return Result{Category: CategoryUnproductive, Confidence: 0.6}
	}

	if e.remote != nil {
		result, err := e.remote.Classify(ctx, text)
		if err == nil {
			e.record(MethodRemote, result)
			return result
		}
	}

	result := ClassifyFast(text)
	e.record(MethodLocal, result)
	return result
}

// ClassifyLocal runs the full heuristic pipeline, bypassing the remote tier.
func (e *Engine) ClassifyLocal(text string) Result {
	if len(strings.TrimSpace(text)) < e.minLength {
		return Result{Category: CategoryUnproductive, Confidence: 0.6}
	}
	result := e.local.Classify(text)
	e.record(MethodLocal, result)
	return result
}

// Local returns the underlying full heuristic classifier.
func (e *Engine) Local() *Local { return e.local }

func (e *Engine) record(method string, result Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, HistoryEntry{
		Timestamp:  time.Now(),
		Method:     method,
		Category:   result.Category,
		Confidence: result.Confidence,
	})
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
}

// History returns a snapshot of the bounded classification history, oldest
// first.
func (e *Engine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}
