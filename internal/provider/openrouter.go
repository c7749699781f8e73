package provider

import "context"

type OpenRouter struct {
	c *compatClient
}

func NewOpenRouter(apiKey string) *OpenRouter {
	return &OpenRouter{c: newCompatClient("openrouter", "https://openrouter.ai/api/v1", apiKey, map[string]string{
		"X-Title": "streamchat",
	})}
}

func NewOpenRouterWithBaseURL(apiKey, baseURL string) *OpenRouter {
	return &OpenRouter{c: newCompatClient("openrouter", baseURL, apiKey, nil)}
}

func (p *OpenRouter) Name() string { return "openrouter" }

func (p *OpenRouter) ValidateKey(ctx context.Context) bool {
	return p.c.validateKey(ctx)
}

func (p *OpenRouter) ListModels(ctx context.Context) ([]Model, error) {
	list, err := p.c.listModels(ctx)
	if err != nil {
		return []Model{
			{ID: "openai/gpt-4", Name: "GPT-4 (via OpenRouter)", Provider: "openrouter", Description: "OpenAI GPT-4 via OpenRouter"},
			{ID: "anthropic/claude-3-opus", Name: "Claude 3 Opus (via OpenRouter)", Provider: "openrouter", Description: "Anthropic Claude 3 Opus via OpenRouter"},
		}, nil
	}

	out := make([]Model, 0, len(list.Data))
	for _, m := range list.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		desc := m.Description
		if desc == "" {
			desc = "OpenRouter " + m.ID
		}
		out = append(out, Model{ID: m.ID, Name: name, Provider: "openrouter", Description: desc})
	}
	return out, nil
}

func (p *OpenRouter) Generate(ctx context.Context, req Request) (string, []ToolCall, error) {
	return p.c.generate(ctx, req)
}

func (p *OpenRouter) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	return p.c.generateStream(ctx, req)
}
