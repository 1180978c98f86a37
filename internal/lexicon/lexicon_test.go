package lexicon

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and strips punctuation",
			input: "Preciso de AJUDA!",
			want:  "preciso ajuda",
		},
		{
			name:  "removes stopwords",
			input: "o sistema está com um problema",
			want:  "sistema problema",
		},
		{
			name:  "keeps negation",
			input: "não funciona",
			want:  "não funciona",
		},
		{
			name:  "stems plural",
			input: "erros nos sistemas",
			want:  "erro sistema",
		},
		{
			name:  "stems ões to ão",
			input: "solicitações",
			want:  "solicitação",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "erros", want: "erro"},
		{input: "solicitações", want: "solicitação"},
		{input: "stress", want: "stress"}, // ss suffix untouched
		{input: "mas", want: "mas"},       // too short
		{input: "ajuda", want: "ajuda"},
	}

	for _, tt := range tests {
		if got := stem(tt.input); got != tt.want {
			t.Errorf("stem(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Custom terms go through the same normalization as input text, so multi-word
// phrases with stopwords still match after cleaning.
func TestNewCustomTerms(t *testing.T) {
	table := New([]string{"Pedido de Reembolso"}, []string{"abraços"})

	if w, ok := table.Productive["pedido reembolso"]; !ok || w != 1.5 {
		t.Errorf("custom productive term = (%v, %v), want (1.5, true)", w, ok)
	}
	if w, ok := table.Unproductive["abraço"]; !ok || w != 1.5 {
		t.Errorf("custom unproductive term = (%v, %v), want (1.5, true)", w, ok)
	}
}

// A custom term colliding with a base phrase keeps the base weight.
func TestNewCustomDoesNotOverrideBase(t *testing.T) {
	table := New([]string{"problema"}, nil)
	if w := table.Productive["problema"]; w != 2.0 {
		t.Errorf("base weight for 'problema' = %v, want 2.0", w)
	}
}

func TestStrongSocialPatterns(t *testing.T) {
	matching := []string{
		"feliz natal a todos",
		"próspero ano novo",
		"boas festas",
		"parabéns pelo projeto",
		"muito obrigada pela atenção",
		"desejo a você um feliz aniversário",
	}
	for _, text := range matching {
		found := false
		for _, p := range StrongSocial {
			if p.MatchString(text) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no strong-social pattern matched %q", text)
		}
	}

	for _, p := range StrongSocial {
		if p.MatchString("o sistema apresentou um erro grave") {
			t.Errorf("pattern %v matched a problem report", p)
		}
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("preciso de ajuda", RequestMarkers) {
		t.Error("request marker not detected")
	}
	if ContainsAny("tudo certo por aqui", RequestMarkers) {
		t.Error("false positive on neutral text")
	}
}

// "saudações" stems onto the same key as "saudação"; the collision must
// resolve to the higher weight on every build, not whatever the map range
// happened to visit last.
func TestNewCollisionResolvesToMaxWeight(t *testing.T) {
	for i := 0; i < 100; i++ {
		table := New(nil, nil)
		if got := table.Unproductive["saudação"]; got != 1.5 {
			t.Fatalf("build %d: weight for %q = %v, want 1.5", i, "saudação", got)
		}
		if got := len(table.Unproductive); got != 23 {
			t.Fatalf("build %d: unproductive entries = %d, want 23", i, got)
		}
	}
}
