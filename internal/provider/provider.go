package provider

import "context"

// Request carries one generation call to a provider.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Tools       []Tool
}

// Tool is an OpenAI-style function definition offered to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Chunk is one streamed fragment. ToolCalls is only populated on the final
// chunk of a stream that ended because the model wants a tool executed.
type Chunk struct {
	Content   string
	ToolCalls []ToolCall
}

// Model describes an available model for listing.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
}

// Provider is one LLM backend. Streaming returns two channels, both closed
// when the stream ends; at most one error is sent.
type Provider interface {
	Name() string
	ValidateKey(ctx context.Context) bool
	ListModels(ctx context.Context) ([]Model, error)
	Generate(ctx context.Context, req Request) (string, []ToolCall, error)
	GenerateStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)
}
