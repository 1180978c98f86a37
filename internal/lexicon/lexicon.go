package lexicon

import (
	"regexp"
	"strings"
)

// Table holds the weighted phrase maps and pattern groups used by the
// classifiers. Immutable after construction; custom terms are appended to the
// base set, never replace it.
type Table struct {
	Productive   map[string]float64 // request/problem-bearing phrases -> weight
	Unproductive map[string]float64 // courtesy/social phrases -> weight
}

// Pattern groups on the raw lowercase text. Order matters for the
// strong-social pre-filter (first match wins).
var (
	StrongSocial = []*regexp.Regexp{
		regexp.MustCompile(`feliz\s+natal`),
		regexp.MustCompile(`ano\s+novo`),
		regexp.MustCompile(`boas\s+festas`),
		regexp.MustCompile(`parab[ée]ns\s+pelo`),
		regexp.MustCompile(`agradeço\s+pelo`),
		regexp.MustCompile(`muito\s+obrigad[ao]`),
		regexp.MustCompile(`desejo.*feliz`),
		regexp.MustCompile(`felicidades`),
		regexp.MustCompile(`gostaria\s+de\s+parabenizar`),
		regexp.MustCompile(`quero\s+parabenizar`),
	}

	// CourtesySocial extends the pre-filter for the full tier only: bare
	// praise and "obrigado pelo" short-circuit there, while the fast fallback
	// keeps scoring them so a lone "excelente" cannot flip a problem report.
	CourtesySocial = []*regexp.Regexp{
		regexp.MustCompile(`parab[ée]ns`),
		regexp.MustCompile(`parabenizar`),
		regexp.MustCompile(`excelente`),
		regexp.MustCompile(`maravilhoso`),
		regexp.MustCompile(`perfeito`),
		regexp.MustCompile(`obrigad[ao]\s+pel[oa]`),
	}

	Urgent = []*regexp.Regexp{
		regexp.MustCompile(`urgente`),
		regexp.MustCompile(`cr[ií]tico`),
		regexp.MustCompile(`emerg[êe]ncia`),
		regexp.MustCompile(`fora\s+do\s+ar`),
		regexp.MustCompile(`n[aã]o\s+funciona`),
		regexp.MustCompile(`erro\s+\d+`),
		regexp.MustCompile(`sistema\s+parou`),
		regexp.MustCompile(`prioridade`),
		regexp.MustCompile(`imediato`),
		regexp.MustCompile(`bloqueado`),
	}

	Technical = []*regexp.Regexp{
		regexp.MustCompile(`\bbug\b`),
		regexp.MustCompile(`falha`),
		regexp.MustCompile(`exception`),
		regexp.MustCompile(`stack\s+trace`),
		regexp.MustCompile(`\blog\b`),
		regexp.MustCompile(`debug`),
		regexp.MustCompile(`troubleshoot`),
	}
)

// Word groups consulted by the local classifier on the raw lowercase text.
var (
	// RequestMarkers flag a request smuggled inside a social message.
	RequestMarkers = []string{"preciso", "necessito", "ajuda", "problema", "erro", "bug", "falha"}

	// GratitudeContexts suppress productive phrases occurring near them.
	GratitudeContexts = []string{
		"obrigado", "agradeço", "parabéns", "gostaria de agradecer",
		"quero agradecer", "excelente", "maravilhoso", "muito obrigado",
	}

	QuestionMarkers = []string{"?", "como", "por que", "porque", "quando"}
	ImperativeWords = []string{"preciso", "necessito", "urgente", "por favor"}
	TechnicalWords  = []string{"código", "log", "erro", "exceção", "configuração"}
	GreetingWords   = []string{"olá", "oi ", "bom dia", "boa tarde", "boa noite"}
	PraiseWords     = []string{"excelente", "maravilhoso", "perfeito", "incrível"}

	// PositiveWords feed the multiple-courtesy-words contextual adjustment.
	PositiveWords = []string{"obrigado", "parabéns", "excelente", "maravilhoso", "perfeito"}
)

// WeightedPattern pairs a compiled regex with its score contribution.
// Used by the fast fallback scorers on the raw lowercase text.
type WeightedPattern struct {
	Pattern *regexp.Regexp
	Weight  float64
}

var (
	// FastProductive covers problem reports and explicit requests.
	FastProductive = []WeightedPattern{
		{regexp.MustCompile(`erro\s+\d{3}`), 3.0},
		{regexp.MustCompile(`n[aã]o\s+funciona`), 2.8},
		{regexp.MustCompile(`fora\s+do\s+ar`), 2.8},
		{regexp.MustCompile(`bug`), 2.5},
		{regexp.MustCompile(`falha`), 2.5},
		{regexp.MustCompile(`quebrado`), 2.5},
		{regexp.MustCompile(`parou`), 2.5},
		{regexp.MustCompile(`travando`), 2.0},
		{regexp.MustCompile(`lento`), 1.8},
		{regexp.MustCompile(`problema`), 2.0},
		{regexp.MustCompile(`preciso\s+de`), 2.0},
		{regexp.MustCompile(`necessito\s+de`), 2.0},
		{regexp.MustCompile(`como\s+faço`), 1.8},
		{regexp.MustCompile(`como\s+configurar`), 1.8},
		{regexp.MustCompile(`d[uú]vida`), 1.5},
		{regexp.MustCompile(`ajuda`), 1.5},
		{regexp.MustCompile(`solicita[cç][aã]o`), 1.8},
		{regexp.MustCompile(`requisi[cç][aã]o`), 1.8},
	}

	// FastUnproductive covers gratitude, praise and festive wishes.
	FastUnproductive = []WeightedPattern{
		{regexp.MustCompile(`muito\s+obrigad[ao]`), 3.0},
		{regexp.MustCompile(`agradeço\s+pelo`), 2.8},
		{regexp.MustCompile(`obrigad[ao]\s+pelo`), 2.5},
		{regexp.MustCompile(`agradecimento`), 2.0},
		{regexp.MustCompile(`parab[ée]ns`), 3.0},
		{regexp.MustCompile(`excelente`), 2.5},
		{regexp.MustCompile(`maravilhoso`), 2.5},
		{regexp.MustCompile(`perfeito`), 2.5},
		{regexp.MustCompile(`incr[ií]vel`), 2.0},
		{regexp.MustCompile(`fant[aá]stico`), 2.0},
		{regexp.MustCompile(`feliz\s+natal`), 3.0},
		{regexp.MustCompile(`ano\s+novo`), 2.8},
		{regexp.MustCompile(`boas\s+festas`), 2.5},
		{regexp.MustCompile(`felicidades`), 1.5},
		{regexp.MustCompile(`sa[uú]de\s+e\s+paz`), 1.5},
	}
)

// baseProductive weights phrases that carry an open request or problem.
var baseProductive = map[string]float64{
	"erro 500": 3.0, "erro 503": 3.0, "não funciona": 2.8, "fora do ar": 2.8,
	"bug": 2.5, "falha": 2.5, "quebrado": 2.5, "parou": 2.5,

	"preciso de ajuda": 2.5, "necessito de ajuda": 2.5, "problema": 2.0,
	"não consigo": 2.0, "como configurar": 1.8, "dúvida": 1.5,
	"solicitação": 1.8, "requisição": 1.8, "chamado": 1.5,

	"configurar": 1.2, "instalar": 1.2, "integrar": 1.2, "atualizar": 1.0,
}

// baseUnproductive weights courtesy and social phrases.
var baseUnproductive = map[string]float64{
	"obrigado": 2.5, "obrigada": 2.5, "agradeço": 2.5, "agradecimento": 2.0,
	"muito obrigado": 3.0, "muito obrigada": 3.0,

	"parabéns": 3.0, "parabenizar": 3.0, "excelente": 2.5, "maravilhoso": 2.5,
	"perfeito": 2.5, "incrível": 2.0, "fantástico": 2.0, "ótimo": 2.0,

	"feliz natal": 3.0, "ano novo": 2.8, "boas festas": 2.5,
	"cumprimentos": 1.5, "saudações": 1.5, "saudação": 1.2,

	"gostei": 2.0, "satisfeito": 2.0, "contente": 1.8, "feliz": 1.5,
}

// customTermWeight is the weight assigned to config-supplied terms.
const customTermWeight = 1.5

// addPhrase inserts a normalized phrase, resolving key collisions to the
// highest weight. Base phrases that stem onto the same key ("saudações" and
// "saudação") must land on one weight regardless of map iteration order.
func addPhrase(m map[string]float64, phrase string, weight float64) {
	key := Clean(phrase)
	if key == "" {
		return
	}
	if current, ok := m[key]; !ok || weight > current {
		m[key] = weight
	}
}

// New builds a table from the base set plus custom terms. Custom phrases are
// normalized the same way input text is, so multi-word phrases keep matching
// after stopword removal.
func New(customProductive, customUnproductive []string) *Table {
	t := &Table{
		Productive:   make(map[string]float64, len(baseProductive)+len(customProductive)),
		Unproductive: make(map[string]float64, len(baseUnproductive)+len(customUnproductive)),
	}
	for phrase, w := range baseProductive {
		addPhrase(t.Productive, phrase, w)
	}
	for phrase, w := range baseUnproductive {
		addPhrase(t.Unproductive, phrase, w)
	}
	for _, phrase := range customProductive {
		phrase = Clean(phrase)
		if phrase == "" {
			continue
		}
		if _, ok := t.Productive[phrase]; !ok {
			t.Productive[phrase] = customTermWeight
		}
	}
	for _, phrase := range customUnproductive {
		phrase = Clean(phrase)
		if phrase == "" {
			continue
		}
		if _, ok := t.Unproductive[phrase]; !ok {
			t.Unproductive[phrase] = customTermWeight
		}
	}
	return t
}

// Portuguese stopwords stripped from the cleaned form. Negations are kept on
// purpose: dropping "não" would make "não funciona" indistinguishable from
// "funciona".
var stopWords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "um": true, "uma": true,
	"de": true, "do": true, "da": true, "dos": true, "das": true,
	"em": true, "no": true, "na": true, "nos": true, "nas": true,
	"e": true, "ou": true, "que": true, "se": true, "por": true,
	"para": true, "com": true, "ao": true, "aos": true, "à": true, "às": true,
	"é": true, "são": true, "foi": true, "ser": true, "está": true, "estão": true,
	"eu": true, "você": true, "ele": true, "ela": true, "nós": true, "vocês": true,
	"meu": true, "minha": true, "seu": true, "sua": true, "este": true, "esta": true,
	"isso": true, "esse": true, "essa": true, "já": true, "também": true,
}

var nonWord = regexp.MustCompile(`[^\wáàâãéèêíïóôõöúçñ]+`)

// Clean produces the stopword-filtered, lightly stemmed token form used for
// lexicon matching. Contextual and regex checks run on the raw lowercase text
// instead, because stemming destroys multi-word patterns.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")

	var out []string
	for _, tok := range strings.Fields(text) {
		if stopWords[tok] {
			continue
		}
		out = append(out, stem(tok))
	}
	return strings.Join(out, " ")
}

// stem applies light plural stripping. A full stemmer buys little here since
// the lexicon passes through the same normalization.
func stem(tok string) string {
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ões"):
		return tok[:len(tok)-len("ões")] + "ão"
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1]
	}
	return tok
}

// ContainsAny reports whether any of the given words occurs in text.
func ContainsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
