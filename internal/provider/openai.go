package provider

import (
	"context"
	"strings"
)

type OpenAI struct {
	c *compatClient
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{c: newCompatClient("openai", "https://api.openai.com/v1", apiKey, nil)}
}

// NewOpenAIWithBaseURL exists for tests against a local endpoint.
func NewOpenAIWithBaseURL(apiKey, baseURL string) *OpenAI {
	return &OpenAI{c: newCompatClient("openai", baseURL, apiKey, nil)}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) ValidateKey(ctx context.Context) bool {
	return p.c.validateKey(ctx)
}

func (p *OpenAI) ListModels(ctx context.Context) ([]Model, error) {
	list, err := p.c.listModels(ctx)
	if err != nil {
		// Common chat models as fallback, matching the validate-failure path.
		return []Model{
			{ID: "gpt-4", Name: "GPT-4", Provider: "openai", Description: "OpenAI GPT-4"},
			{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: "openai", Description: "OpenAI GPT-3.5 Turbo"},
		}, nil
	}

	var out []Model
	for _, m := range list.Data {
		if !strings.Contains(strings.ToLower(m.ID), "gpt") {
			continue
		}
		out = append(out, Model{
			ID:          m.ID,
			Name:        m.ID,
			Provider:    "openai",
			Description: "OpenAI " + m.ID,
		})
	}
	return out, nil
}

func (p *OpenAI) Generate(ctx context.Context, req Request) (string, []ToolCall, error) {
	return p.c.generate(ctx, req)
}

func (p *OpenAI) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	return p.c.generateStream(ctx, req)
}
