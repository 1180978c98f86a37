package hfapi

import "context"

const (
	replyMaxNewTokens = 80
	replyTemperature  = 0.7
)

// Generator binds a Client to one text-generation model with the reply
// generation parameters.
type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, g.model, prompt, replyMaxNewTokens, replyTemperature)
}
