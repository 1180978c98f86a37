// Package respond produces the suggested reply for a classified email. The
// generation chain degrades gracefully: remote generative model, then
// confidence/keyword templates, then a deterministic template bank. It never
// fails and never returns an empty string.
package respond

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"strings"

	"github.com/mailsift/mailsift/internal/classify"
	"github.com/mailsift/mailsift/internal/lexicon"
)

// TextGenerator is the remote generation tier as the generator sees it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator builds suggested replies. A nil remote skips straight to the
// templated tier.
type Generator struct {
	remote TextGenerator
}

func New(remote TextGenerator) *Generator {
	return &Generator{remote: remote}
}

const (
	promptExcerptLimit = 300
	minRemoteReplyLen  = 15
	minReplyLineLen    = 10
)

// Reply returns a suggested reply for the classified text. Remote generation
// failures fall through to the templated tier silently.
func (g *Generator) Reply(ctx context.Context, category classify.Category, text string, confidence float64) string {
	if g.remote != nil {
		reply, err := g.remoteReply(ctx, category, text)
		if err == nil {
			return reply
		}
		log.Printf("remote generation failed, using templates: %v", err)
	}
	return g.Templated(category, text, confidence)
}

func (g *Generator) remoteReply(ctx context.Context, category classify.Category, text string) (string, error) {
	prompt := buildPrompt(category, text)

	generated, err := g.remote.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	reply := cleanGenerated(generated, prompt)
	if len(reply) <= minRemoteReplyLen {
		return "", fmt.Errorf("generated reply too short (%d chars)", len(reply))
	}
	return reply, nil
}

func buildPrompt(category classify.Category, text string) string {
	excerpt := text
	if runes := []rune(excerpt); len(runes) > promptExcerptLimit {
		excerpt = string(runes[:promptExcerptLimit])
	}

	if category == classify.CategoryProductive {
		return fmt.Sprintf(`Como assistente de suporte técnico, responda este email de forma profissional e útil:

Email: "%s"

Gere uma resposta curta que:
- Agradece o contato
- Indica que a solicitação será analisada
- Oferece um prazo aproximado
- Seja profissional e direta

Resposta:`, excerpt)
	}

	return fmt.Sprintf(`Como assistente de relacionamento, responda este email de forma educada e amigável:

Email: "%s"

Gere uma resposta curta que:
- Agradece a mensagem
- Retribui a gentileza
- Seja breve e cordial

Resposta:`, excerpt)
}

// cleanGenerated strips the prompt echo and assembles at most the first two
// substantive lines into a closed sentence.
func cleanGenerated(generated, prompt string) string {
	reply := strings.TrimSpace(strings.ReplaceAll(generated, prompt, ""))

	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minReplyLineLen && !strings.HasPrefix(line, "Email:") {
			lines = append(lines, line)
		}
		if len(lines) == 2 {
			break
		}
	}

	final := strings.ReplaceAll(strings.Join(lines, " "), `"`, "")
	if final != "" && !strings.ContainsAny(final[len(final)-1:], ".!?") {
		final += "."
	}
	return final
}

// Keyword families consulted by the templated tier.
var (
	errorWords    = []string{"erro", "bug", "não funciona", "fora do ar"}
	questionWords = []string{"dúvida", "como fazer", "configurar"}
	urgencyWords  = []string{"urgente", "prioridade", "crítico"}
	festiveWords  = []string{"natal", "ano novo", "festas"}
	praiseReplies = []string{"parabéns", "elogio", "excelente"}
)

// Template banks for inputs outside every keyword family. Selection is by a
// stable hash of the lowercase text, so identical input always yields the
// identical reply.
var (
	productiveBank = []string{
		"Solicitação recebida: confirmamos o recebimento de sua requisição. Ticket #%d criado com sucesso.",
		"Sua solicitação está sendo processada por nossa equipe. Retornaremos em até 2 horas úteis.",
		"Já iniciamos a análise do seu caso. Você receberá atualizações em breve.",
	}

	unproductiveBank = []string{
		"Agradecemos seu contato! Desejamos um excelente dia.",
		"Sua mensagem foi recebida com alegria. Estamos sempre à disposição!",
		"Valorizamos muito sua interação conosco. Tenha um ótimo dia!",
	}
)

// Templated produces a reply from the confidence/keyword tier, falling back
// to the deterministic bank. Pure function of (category, lowercase text,
// confidence).
func (g *Generator) Templated(category classify.Category, text string, confidence float64) string {
	lower := strings.ToLower(text)

	if category == classify.CategoryProductive {
		return productiveReply(lower, confidence)
	}
	return unproductiveReply(lower, confidence)
}

func productiveReply(lower string, confidence float64) string {
	if confidence > 0.8 {
		switch {
		case lexicon.ContainsAny(lower, errorWords):
			return "Problema identificado: nossa equipe técnica já está analisando esta falha. Você receberá uma atualização em até 1 hora útil."
		case lexicon.ContainsAny(lower, questionWords):
			return "Consulta recebida: nossa equipe especializada está preparando um guia detalhado para sua dúvida. Retornaremos em breve."
		case lexicon.ContainsAny(lower, urgencyWords):
			return "Caso prioritário: sua solicitação foi marcada como urgente. Atualizações em até 30 minutos."
		}
	}

	h := textHash(lower)
	template := productiveBank[h%uint32(len(productiveBank))]
	if strings.Contains(template, "%d") {
		// Ticket number derives from the same hash; no randomness in this path.
		return fmt.Sprintf(template, 1000+h%9000)
	}
	return template
}

func unproductiveReply(lower string, confidence float64) string {
	if confidence > 0.85 {
		switch {
		case lexicon.ContainsAny(lower, festiveWords):
			return "Agradecemos as felicitações! Retribuímos os votos de um feliz natal e um ano novo repleto de conquistas para você e toda equipe."
		case lexicon.ContainsAny(lower, praiseReplies):
			return "Muito obrigado pelo reconhecimento! Sua satisfação é nossa maior motivação para continuar evoluindo."
		}
	}

	h := textHash(lower)
	return unproductiveBank[h%uint32(len(unproductiveBank))]
}

// textHash is FNV-1a over the lowercase text. The selection must be
// reproducible across runs and platforms, so no map iteration or seeded
// hashing here.
func textHash(lower string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(lower))
	return h.Sum32()
}
