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
	"net/url"
	"strings"
	"time"
)

// Gemini talks to the Google Generative Language REST API. Tool calling is
// not offered through this adapter; tools in the request are ignored.
type Gemini struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func NewGeminiWithBaseURL(apiKey, baseURL string) *Gemini {
	g := NewGemini(apiKey)
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

func (p *Gemini) Name() string { return "gemini" }

type geminiContent struct {
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

type geminiGenReq struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiGenResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newGeminiBody(req Request) ([]byte, error) {
	var body geminiGenReq
	body.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	body.Contents[0].Parts = []struct {
		Text string `json:"text"`
	}{{Text: req.Prompt}}
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	return json.Marshal(body)
}

func (r geminiGenResp) text() string {
	var b strings.Builder
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func (p *Gemini) ValidateKey(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/models?key="+url.QueryEscape(p.apiKey), nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *Gemini) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/models?key="+url.QueryEscape(p.apiKey), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return geminiFallbackModels(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geminiFallbackModels(), nil
	}

	var decoded struct {
		Models []struct {
			Name                       string   `json:"name"`
			DisplayName                string   `json:"displayName"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	var out []Model
	for _, m := range decoded.Models {
		supported := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supported = true
				break
			}
		}
		if !supported {
			continue
		}
		id := m.Name
		if i := strings.LastIndex(id, "/"); i >= 0 {
			id = id[i+1:]
		}
		name := m.DisplayName
		if name == "" {
			name = id
		}
		out = append(out, Model{ID: id, Name: name, Provider: "gemini", Description: "Google " + name})
	}
	return out, nil
}

func geminiFallbackModels() []Model {
	return []Model{
		{ID: "gemini-pro", Name: "Gemini Pro", Provider: "gemini", Description: "Google Gemini Pro"},
		{ID: "gemini-pro-vision", Name: "Gemini Pro Vision", Provider: "gemini", Description: "Google Gemini Pro Vision"},
	}
}

func (p *Gemini) Generate(ctx context.Context, greq Request) (string, []ToolCall, error) {
	b, err := newGeminiBody(greq)
	if err != nil {
		return "", nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(greq.Model), url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", nil, fmt.Errorf("gemini: %s", msg)
	}

	var decoded geminiGenResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", nil, errors.New(decoded.Error.Message)
	}
	return decoded.text(), nil, nil
}

func (p *Gemini) GenerateStream(ctx context.Context, greq Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		b, err := newGeminiBody(greq)
		if err != nil {
			errs <- err
			return
		}

		endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
			p.baseURL, url.PathEscape(greq.Model), url.QueryEscape(p.apiKey))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
			msg := strings.TrimSpace(string(body))
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			errs <- fmt.Errorf("gemini: %s", msg)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var decoded geminiGenResp
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				continue
			}
			if decoded.Error != nil && decoded.Error.Message != "" {
				errs <- errors.New(decoded.Error.Message)
				return
			}
			if text := decoded.text(); text != "" {
				chunks <- Chunk{Content: text}
			}
		}

		if err := sc.Err(); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
