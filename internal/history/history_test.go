package history

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "mailsift.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndRecent(t *testing.T) {
	store := newTestStore(t)

	record := &Record{
		RequestID:    "req_deadbeef",
		Source:       "web",
		Category:     "Produtivo",
		Confidence:   0.91,
		Method:       "remote",
		Reply:        "Recebemos sua solicitação.",
		Excerpt:      "sistema fora do ar",
		ProcessingMs: 120,
	}
	if err := store.Add(record); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if record.ID == 0 {
		t.Error("Add did not set record ID")
	}

	records, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.RequestID != record.RequestID {
		t.Errorf("request id = %q, want %q", got.RequestID, record.RequestID)
	}
	if got.Category != "Produtivo" || got.Confidence != 0.91 {
		t.Errorf("got %s/%v, want Produtivo/0.91", got.Category, got.Confidence)
	}
	if got.Method != "remote" || got.Source != "web" {
		t.Errorf("method/source = %s/%s, want remote/web", got.Method, got.Source)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at was not set")
	}
}

func TestRecentLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		err := store.Add(&Record{
			RequestID:  fmt.Sprintf("req_%08d", i),
			Source:     "text",
			Category:   "Improdutivo",
			Confidence: 0.9,
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	records, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	seed := []struct {
		category string
		ms       int64
	}{
		{"Produtivo", 100},
		{"Produtivo", 200},
		{"Improdutivo", 50},
		{"ERROR", 10},
	}
	for i, s := range seed {
		err := store.Add(&Record{
			RequestID:    fmt.Sprintf("req_%08d", i),
			Source:       "api",
			Category:     s.category,
			Confidence:   0.8,
			ProcessingMs: s.ms,
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.Productive != 2 || stats.Unproductive != 1 || stats.Errors != 1 {
		t.Errorf("productive/unproductive/errors = %d/%d/%d, want 2/1/1",
			stats.Productive, stats.Unproductive, stats.Errors)
	}
	if stats.AvgProcessingMs != 90 {
		t.Errorf("avg processing = %v, want 90", stats.AvgProcessingMs)
	}
}

func TestStatsEmpty(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 0 || stats.AvgProcessingMs != 0 {
		t.Errorf("got %+v, want zeroed stats", stats)
	}
}
