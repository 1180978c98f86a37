package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mailsift/mailsift/internal/lexicon"
)

type fakeRemote struct {
	result Result
	err    error
	calls  int
}

func (f *fakeRemote) Classify(ctx context.Context, text string) (Result, error) {
	f.calls++
	return f.result, f.err
}

func newTestEngine(remote RemoteClassifier) *Engine {
	return NewEngine(remote, NewLocal(lexicon.New(nil, nil)), 10)
}

func TestEngineShortInput(t *testing.T) {
	remote := &fakeRemote{result: Result{Category: CategoryProductive, Confidence: 0.9}}
	engine := newTestEngine(remote)

	got := engine.Classify(context.Background(), "oi")
	if got.Category != CategoryUnproductive || got.Confidence != 0.6 {
		t.Errorf("got %s/%v, want Improdutivo/0.6", got.Category, got.Confidence)
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times for short input, want 0", remote.calls)
	}
}

func TestEngineRemoteFirst(t *testing.T) {
	remote := &fakeRemote{result: Result{Category: CategoryProductive, Confidence: 0.91}}
	engine := newTestEngine(remote)

	got := engine.Classify(context.Background(), "Obrigado pelo excelente trabalho de todos")
	if got != remote.result {
		t.Errorf("got %+v, want remote result %+v", got, remote.result)
	}
	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1", remote.calls)
	}

	history := engine.History()
	if len(history) != 1 || history[0].Method != MethodRemote {
		t.Errorf("history = %+v, want one remote entry", history)
	}
}

func TestEngineFallsBackOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{err: ErrAllModelsFailed}
	engine := newTestEngine(remote)

	got := engine.Classify(context.Background(), "Preciso de ajuda urgente, o sistema está fora do ar")
	if got.Category != CategoryProductive {
		t.Errorf("fallback category = %s, want Produtivo", got.Category)
	}

	history := engine.History()
	if len(history) != 1 || history[0].Method != MethodLocal {
		t.Errorf("history = %+v, want one local entry", history)
	}
}

// With the remote tier disabled the engine must never construct a remote
// call; a nil RemoteClassifier guarantees that statically.
func TestEngineRemoteDisabled(t *testing.T) {
	engine := newTestEngine(nil)

	got := engine.Classify(context.Background(), "Feliz Natal e boas festas para toda a equipe")
	if got.Category != CategoryUnproductive {
		t.Errorf("got %s, want Improdutivo", got.Category)
	}
}

func TestEngineHistoryBounded(t *testing.T) {
	engine := newTestEngine(nil)

	for i := 0; i < historyLimit+20; i++ {
		engine.Classify(context.Background(), fmt.Sprintf("mensagem de teste número %d com conteúdo", i))
	}

	if got := len(engine.History()); got != historyLimit {
		t.Errorf("history length = %d, want %d", got, historyLimit)
	}
}

func TestEngineClassifyLocalFullPath(t *testing.T) {
	remote := &fakeRemote{err: errors.New("should not be called")}
	engine := newTestEngine(remote)

	got := engine.ClassifyLocal("Muito obrigado pela atenção de sempre")
	if got.Category != CategoryUnproductive || got.Confidence != 0.9 {
		t.Errorf("got %s/%v, want Improdutivo/0.9", got.Category, got.Confidence)
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times by ClassifyLocal, want 0", remote.calls)
	}
}
