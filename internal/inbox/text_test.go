package inbox

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		email Email
		want  string
	}{
		{
			name:  "plain text wins",
			email: Email{Body: "corpo em texto", HTMLBody: "<p>corpo em html</p>"},
			want:  "corpo em texto",
		},
		{
			name:  "html fallback",
			email: Email{HTMLBody: "<html><body><p>Olá, preciso de ajuda.</p></body></html>"},
			want:  "Olá, preciso de ajuda.",
		},
		{
			name:  "whitespace-only plain falls through",
			email: Email{Body: "  \n ", HTMLBody: "<p>conteúdo real</p>"},
			want:  "conteúdo real",
		},
		{
			name:  "empty email",
			email: Email{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.email.Text(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFullText(t *testing.T) {
	tests := []struct {
		name  string
		email Email
		want  string
	}{
		{
			name:  "subject and body",
			email: Email{Subject: "Erro no sistema", Body: "O login parou de funcionar."},
			want:  "Erro no sistema\n\nO login parou de funcionar.",
		},
		{
			name:  "subject only",
			email: Email{Subject: "Feliz Natal"},
			want:  "Feliz Natal",
		},
		{
			name:  "body only",
			email: Email{Body: "sem assunto mas com conteúdo"},
			want:  "sem assunto mas com conteúdo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.email.FullText(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Erro no sistema", "Re: Erro no sistema"},
		{"Re: Erro no sistema", "Re: Erro no sistema"},
		{"RE: Erro no sistema", "RE: Erro no sistema"},
		{"  Status do chamado  ", "Re: Status do chamado"},
		{"", "Re: sua mensagem"},
	}

	for _, tt := range tests {
		if got := ReplySubject(tt.subject); got != tt.want {
			t.Errorf("ReplySubject(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
