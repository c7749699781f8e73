// Package tools wires function-calling tools offered to providers to their
// implementations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"streamchat/internal/provider"
	"streamchat/internal/search"
)

const SearchToolName = "search_internet"

// Definitions returns the tool schemas advertised to providers.
func Definitions() []provider.Tool {
	return []provider.Tool{
		{
			Type: "function",
			Function: provider.ToolFunction{
				Name:        SearchToolName,
				Description: "Search the internet for current information, news, facts, or any query. Use this when you need up-to-date information that might not be in your training data.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "The search query to look up on the internet",
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

// Executor runs tool calls against their backing services.
type Executor struct {
	Search       *search.Client
	SearchAPIKey string
}

// Execute runs one tool call and returns its text result. Failures come back
// as error text for the model, not as Go errors; a broken tool must not kill
// the stream around it.
func (e *Executor) Execute(ctx context.Context, call provider.ToolCall) string {
	switch call.Function.Name {
	case SearchToolName:
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			log.Printf("tools: bad arguments for %s: %v", call.Function.Name, err)
		}
		if args.Query == "" {
			return "Error: Search query is required"
		}
		results := e.Search.Search(ctx, args.Query, e.SearchAPIKey, 5)
		return search.FormatResults(results)
	default:
		return fmt.Sprintf("Error: Unknown tool '%s'", call.Function.Name)
	}
}
