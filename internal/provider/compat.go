package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// compatClient speaks the OpenAI chat-completions wire format, shared by the
// openai and openrouter adapters.
type compatClient struct {
	name    string
	baseURL string
	apiKey  string
	headers map[string]string
	client  *http.Client
}

func newCompatClient(name, baseURL, apiKey string, headers map[string]string) *compatClient {
	return &compatClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		headers: headers,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type compatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatChatReq struct {
	Model       string      `json:"model"`
	Messages    []compatMsg `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream"`
	Tools       []Tool      `json:"tools,omitempty"`
}

type compatChatResp struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type compatStreamResp struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *compatClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (c *compatClient) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("%s: %s", c.name, msg)
}

func (c *compatClient) validateKey(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type compatModelList struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"data"`
}

func (c *compatClient) listModels(ctx context.Context) (compatModelList, error) {
	var out compatModelList

	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return out, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, c.errorFromResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *compatClient) generate(ctx context.Context, greq Request) (string, []ToolCall, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, fmt.Errorf("%s: api key is required", c.name)
	}

	body := compatChatReq{
		Model:       greq.Model,
		Messages:    []compatMsg{{Role: "user", Content: greq.Prompt}},
		Temperature: greq.Temperature,
		MaxTokens:   greq.MaxTokens,
		Tools:       greq.Tools,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, c.errorFromResponse(resp)
	}

	var decoded compatChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", nil, errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", nil, fmt.Errorf("%s: empty response", c.name)
	}

	msg := decoded.Choices[0].Message
	return msg.Content, msg.ToolCalls, nil
}

// generateStream streams delta content over SSE. Tool-call deltas are
// accumulated and delivered on the final chunk when the model stops to call a
// tool.
func (c *compatClient) generateStream(ctx context.Context, greq Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if strings.TrimSpace(c.apiKey) == "" {
			errs <- fmt.Errorf("%s: api key is required", c.name)
			return
		}

		body := compatChatReq{
			Model:       greq.Model,
			Messages:    []compatMsg{{Role: "user", Content: greq.Prompt}},
			Temperature: greq.Temperature,
			MaxTokens:   greq.MaxTokens,
			Stream:      true,
			Tools:       greq.Tools,
		}
		b, err := json.Marshal(body)
		if err != nil {
			errs <- err
			return
		}

		req, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(b))
		if err != nil {
			errs <- err
			return
		}

		// Streams can outlive the default client timeout; ctx controls it.
		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errs <- c.errorFromResponse(resp)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		// Tool-call fragments arrive spread over many deltas, keyed by index.
		pending := map[int]*ToolCall{}
		toolStop := false

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				break
			}

			var decoded compatStreamResp
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				continue
			}
			if decoded.Error != nil && decoded.Error.Message != "" {
				errs <- errors.New(decoded.Error.Message)
				return
			}
			if len(decoded.Choices) == 0 {
				continue
			}

			choice := decoded.Choices[0]
			if choice.Delta.Content != "" {
				chunks <- Chunk{Content: choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				cur, ok := pending[tc.Index]
				if !ok {
					cur = &ToolCall{}
					pending[tc.Index] = cur
				}
				if tc.ID != "" {
					cur.ID = tc.ID
				}
				if tc.Function.Name != "" {
					cur.Function.Name = tc.Function.Name
				}
				cur.Function.Arguments += tc.Function.Arguments
			}
			if choice.FinishReason == "tool_calls" {
				toolStop = true
			}
		}

		if err := sc.Err(); err != nil {
			errs <- err
			return
		}

		if toolStop && len(pending) > 0 {
			calls := make([]ToolCall, 0, len(pending))
			for i := 0; i < len(pending); i++ {
				if tc, ok := pending[i]; ok {
					calls = append(calls, *tc)
				}
			}
			chunks <- Chunk{ToolCalls: calls}
		}
	}()

	return chunks, errs
}
