// Package api is the HTTP client of the streamchat server. It implements the
// chat core's Store and Streamer collaborators plus key validation and model
// listing.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamchat/internal/chat"
	"streamchat/internal/news"
	"streamchat/internal/provider"
	"streamchat/internal/stream"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope is the server's standard response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("server: status %d: %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return errors.New(env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type sessionPayload struct {
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int64     `json:"message_count"`
}

func (p sessionPayload) toSession() *chat.Session {
	return &chat.Session{
		ID:           p.SessionID,
		Name:         p.Name,
		CreatedAt:    p.CreatedAt,
		MessageCount: p.MessageCount,
	}
}

func (c *Client) CreateSession(ctx context.Context, name string) (*chat.Session, error) {
	var out sessionPayload
	err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"name": name}, &out)
	if err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

func (c *Client) ListSessions(ctx context.Context) ([]chat.Session, error) {
	var out struct {
		Sessions []sessionPayload `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	sessions := make([]chat.Session, 0, len(out.Sessions))
	for _, p := range out.Sessions {
		sessions = append(sessions, *p.toSession())
	}
	return sessions, nil
}

func (c *Client) GetMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var out struct {
		Messages []struct {
			ID        uint64    `json:"id"`
			Role      string    `json:"role"`
			Content   string    `json:"content"`
			ModelUsed *string   `json:"model_used"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/messages", nil, &out); err != nil {
		return nil, err
	}

	msgs := make([]chat.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		model := ""
		if m.ModelUsed != nil {
			model = *m.ModelUsed
		}
		msgs = append(msgs, chat.Message{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			ModelUsed: model,
			CreatedAt: m.CreatedAt,
		})
	}
	return msgs, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

func (c *Client) RenameSession(ctx context.Context, sessionID, name string) (*chat.Session, error) {
	var out sessionPayload
	err := c.do(ctx, http.MethodPatch, "/api/sessions/"+sessionID, map[string]string{"name": name}, &out)
	if err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

func (c *Client) DuplicateSession(ctx context.Context, sessionID string) (*chat.Session, error) {
	var out sessionPayload
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/duplicate", nil, &out)
	if err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// ValidateKey checks a provider credential through the server.
func (c *Client) ValidateKey(ctx context.Context, providerName, apiKey string) (bool, string, error) {
	var out struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/validate-key",
		map[string]string{"provider": providerName, "api_key": apiKey}, &out)
	if err != nil {
		return false, "", err
	}
	return out.Valid, out.Message, nil
}

func (c *Client) ListModels(ctx context.Context, providerName, apiKey string) ([]provider.Model, error) {
	var out struct {
		Models []provider.Model `json:"models"`
	}
	err := c.do(ctx, http.MethodPost, "/api/models",
		map[string]string{"provider": providerName, "api_key": apiKey}, &out)
	if err != nil {
		return nil, err
	}
	return out.Models, nil
}

// ProcessURLs asks the server to fetch the given pages and extract their text.
func (c *Client) ProcessURLs(ctx context.Context, urls []string) ([]news.Article, error) {
	var out struct {
		Articles []news.Article `json:"articles"`
	}
	err := c.do(ctx, http.MethodPost, "/api/news/process-urls",
		map[string][]string{"urls": urls}, &out)
	if err != nil {
		return nil, err
	}
	return out.Articles, nil
}

type streamReq struct {
	Provider     string  `json:"provider"`
	APIKey       string  `json:"api_key"`
	Model        string  `json:"model"`
	Prompt       string  `json:"prompt"`
	SessionID    string  `json:"session_id,omitempty"`
	Temperature  float64 `json:"temperature"`
	EnableSearch bool    `json:"enable_search"`
}

// StreamChat opens the streaming chat endpoint and returns the decoded event
// channel. The decoder owns the response body and guarantees a terminal
// event.
func (c *Client) StreamChat(ctx context.Context, req chat.StreamRequest) (<-chan stream.Event, error) {
	b, err := json.Marshal(streamReq{
		Provider:     req.Provider,
		APIKey:       req.APIKey,
		Model:        req.Model,
		Prompt:       req.Prompt,
		SessionID:    req.SessionID,
		Temperature:  req.Temperature,
		EnableSearch: req.EnableTools,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	// Streams outlive the default client timeout; rely on ctx instead.
	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	dec := stream.FromResponse(resp)
	go dec.Run(ctx)
	return dec.Events(), nil
}
