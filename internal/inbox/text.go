package inbox

import (
	"strings"

	"github.com/mailsift/mailsift/internal/extract"
)

// Text returns the best plain-text rendering of the email body. Plain text
// parts win; HTML-only messages are stripped down to text.
func (e *Email) Text() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	if e.HTMLBody != "" {
		return extract.HTMLToText(e.HTMLBody)
	}
	return ""
}

// FullText prepends the subject so classification sees it too. Subjects alone
// often carry the request ("Erro no sistema", "Feliz Natal").
func (e *Email) FullText() string {
	subject := strings.TrimSpace(e.Subject)
	body := e.Text()
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	default:
		return subject + "\n\n" + body
	}
}

// ReplySubject builds the subject line for an automated reply.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Re: sua mensagem"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
