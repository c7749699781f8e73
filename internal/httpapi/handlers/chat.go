package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"streamchat/internal/common"
	"streamchat/internal/events"
	"streamchat/internal/provider"
	"streamchat/internal/tools"
)

type chatReq struct {
	Provider     string  `json:"provider" binding:"required"`
	APIKey       string  `json:"api_key" binding:"required"`
	Model        string  `json:"model" binding:"required"`
	Prompt       string  `json:"prompt" binding:"required"`
	SessionID    string  `json:"session_id"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	EnableSearch bool    `json:"enable_search"`
	SearchAPIKey string  `json:"search_api_key"`
}

func (r *chatReq) applyDefaults() {
	if r.Temperature == 0 {
		r.Temperature = 0.7
	}
}

func (h *Handler) executor(req chatReq) *tools.Executor {
	key := req.SearchAPIKey
	if key == "" {
		key = h.SearchAPIKey
	}
	return &tools.Executor{Search: h.Search, SearchAPIKey: key}
}

// followupPrompt re-asks the original question with the tool output inlined,
// for the round after a tool call.
func followupPrompt(original, toolOutput string) string {
	return fmt.Sprintf("Based on the search results, please provide a comprehensive answer to: %s\n\n%s",
		original, toolOutput)
}

// Chat is the non-streaming endpoint: generate, run requested tools, persist
// both turns when a session is attached.
func (h *Handler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	req.applyDefaults()

	p, err := h.Registry.Get(req.Provider, req.APIKey)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, err.Error())
		return
	}

	ctx := c.Request.Context()

	if req.SessionID != "" {
		if _, err := h.Sessions.GetSession(ctx, req.SessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				common.Fail(c, http.StatusNotFound, 40401, "session not found")
				return
			}
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
	}

	exec := h.executor(req)
	toolDefs := tools.Definitions()
	if !req.EnableSearch {
		toolDefs = nil
	}

	prompt := req.Prompt
	var reply string
	const maxRounds = 5
	for round := 0; round < maxRounds; round++ {
		text, calls, err := p.Generate(ctx, provider.Request{
			Model:       req.Model,
			Prompt:      prompt,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Tools:       toolDefs,
		})
		if err != nil {
			common.Fail(c, http.StatusInternalServerError, 50007, "Error generating response: "+err.Error())
			return
		}
		if len(calls) == 0 {
			reply = text
			break
		}

		var results strings.Builder
		for _, call := range calls {
			results.WriteString(exec.Execute(ctx, call))
			results.WriteString("\n")
		}
		prompt = followupPrompt(req.Prompt, results.String())
		toolDefs = nil // only offer tools on the first round
	}

	if req.SessionID != "" {
		h.persistTurn(ctx, req.SessionID, req.Prompt, reply, req.Model)
	}

	common.OK(c, gin.H{
		"response":   reply,
		"model_used": req.Model,
		"session_id": req.SessionID,
	})
}

// ChatStream is the SSE endpoint behind the client's StreamDecoder. Wire
// format: "data: " + JSON{type, content} per event, one terminal done/error.
func (h *Handler) ChatStream(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	req.applyDefaults()

	p, err := h.Registry.Get(req.Provider, req.APIKey)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fmt.Fprint(c.Writer, "data: {\"type\":\"error\",\"content\":\"streaming unsupported\"}\n\n")
		return
	}

	writeEvent := func(eventType, content string) {
		b, err := json.Marshal(gin.H{"type": eventType, "content": content})
		if err != nil {
			fmt.Fprint(c.Writer, "data: {\"type\":\"error\",\"content\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	ctx := c.Request.Context()

	// Persist the user turn up front so history reflects the submission even
	// if the provider fails mid-stream.
	persist := false
	if req.SessionID != "" {
		if _, err := h.Sessions.GetSession(ctx, req.SessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeEvent("error", "Session not found")
				return
			}
			log.Printf("chat stream: session lookup failed: %v", err)
		} else {
			persist = true
			if _, err := h.Sessions.AddMessage(ctx, req.SessionID, "user", req.Prompt, nil); err != nil {
				log.Printf("chat stream: user message insert failed: %v", err)
				persist = false
			}
		}
	}

	exec := h.executor(req)
	toolDefs := tools.Definitions()
	if !req.EnableSearch {
		toolDefs = nil
	}

	prompt := req.Prompt
	var full strings.Builder

	// At most one tool round: first pass offers tools, a requested call runs
	// and its output is folded into a follow-up pass without tools.
	for round := 0; round < 2; round++ {
		chunks, errs := p.GenerateStream(ctx, provider.Request{
			Model:       req.Model,
			Prompt:      prompt,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Tools:       toolDefs,
		})

		var calls []provider.ToolCall
		for ch := range chunks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ch.Content != "" {
				full.WriteString(ch.Content)
				writeEvent("chunk", ch.Content)
			}
			if len(ch.ToolCalls) > 0 {
				calls = ch.ToolCalls
			}
		}

		select {
		case err := <-errs:
			if err != nil {
				writeEvent("error", "Error in streaming: "+err.Error())
				return
			}
		default:
		}

		if len(calls) == 0 {
			break
		}

		var results strings.Builder
		for _, call := range calls {
			writeEvent("tool_call", call.Function.Name)
			out := exec.Execute(ctx, call)
			writeEvent("search_results", out)
			results.WriteString(out)
			results.WriteString("\n")
		}
		prompt = followupPrompt(req.Prompt, results.String())
		toolDefs = nil
	}

	reply := full.String()

	if persist {
		h.persistTurn(ctx, req.SessionID, "", reply, req.Model)
	}

	writeEvent("done", reply)
}

// persistTurn stores the turn's messages; userText empty means the user
// message was already written. Store failures degrade to an unsaved turn.
func (h *Handler) persistTurn(ctx context.Context, sessionID, userText, reply, model string) {
	if userText != "" {
		if _, err := h.Sessions.AddMessage(ctx, sessionID, "user", userText, nil); err != nil {
			log.Printf("chat: user message insert failed: %v", err)
			return
		}
	}

	msg, err := h.Sessions.AddMessage(ctx, sessionID, "assistant", reply, &model)
	if err != nil {
		log.Printf("chat: assistant message insert failed: %v", err)
		return
	}

	if h.Publisher != nil {
		ev := events.Completed{
			SessionID: sessionID,
			MessageID: msg.ID,
			Model:     model,
			Completed: time.Now(),
		}
		if err := h.Publisher.PublishCompleted(ctx, ev); err != nil {
			log.Printf("chat: publish completed event failed: %v", err)
		}
	}
}
