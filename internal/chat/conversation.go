// Package chat is the client-side streaming core: it owns the conversation
// state machine, reconciles optimistic state with the server's history, and
// drives one submission from send to finalize.
package chat

import (
	"log"
	"strings"
	"sync"

	"streamchat/internal/search"
	"streamchat/internal/stream"
)

// Phase is the conversation lifecycle state. sending covers submit to first
// event; streaming covers chunk arrival until the terminal event.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
)

func (p Phase) String() string {
	switch p {
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Callbacks deliver conversation progress to the UI. All callbacks fire from
// the stream's event loop goroutine; nil callbacks are skipped.
type Callbacks struct {
	// OnChunkProgress reports the approximate token count of the text
	// accumulated so far (length/4, rounded up).
	OnChunkProgress func(approxTokens int)
	// OnStreamingStateChange fires with true at the first stream event and
	// false exactly once at the terminal event.
	OnStreamingStateChange func(streaming bool)
	// OnResults fires when the stream delivers search results for this turn.
	OnResults func(results []search.Result)
	// OnToolCall fires when the stream announces a tool invocation. The
	// content is the tool's name; results follow in a later event.
	OnToolCall func(name string)
}

// Outcome is the single finalize-or-error signal of one submission.
type Outcome struct {
	Err  string // non-empty on error; Text is empty then
	Text string // final assistant text on success
}

// Conversation owns one conversation's transient streaming state. Within a
// stream liveText only grows; it is reset exactly at stream start and at the
// terminal event.
type Conversation struct {
	mu      sync.Mutex
	phase   Phase
	live    strings.Builder
	pending []search.Result
	cb      Callbacks
}

func NewConversation(cb Callbacks) *Conversation {
	return &Conversation{cb: cb}
}

func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LiveText is the partial assistant text of the in-flight stream.
func (c *Conversation) LiveText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live.String()
}

// PendingResults are the current turn's search results, if any.
func (c *Conversation) PendingResults() []search.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]search.Result(nil), c.pending...)
}

// BeginSend moves idle -> sending. It returns false, changing nothing, when a
// submission is already in flight.
func (c *Conversation) BeginSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return false
	}
	c.phase = PhaseSending
	c.live.Reset()
	c.pending = nil
	return true
}

// Abort returns the conversation to idle without a terminal event, for
// submissions that fail before any stream is opened.
func (c *Conversation) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Apply folds one stream event into the conversation. When the event is
// terminal it returns the submission's single outcome; otherwise the second
// return is false. Events after the terminal one are ignored.
func (c *Conversation) Apply(ev stream.Event) (Outcome, bool) {
	c.mu.Lock()

	if c.phase == PhaseIdle {
		c.mu.Unlock()
		return Outcome{}, false
	}

	if c.phase == PhaseSending {
		c.phase = PhaseStreaming
		c.notifyStreaming(true)
	}

	switch {
	case ev.Type == stream.EventChunk:
		c.live.WriteString(ev.Content)
		tokens := (c.live.Len() + 3) / 4
		cb := c.cb.OnChunkProgress
		c.mu.Unlock()
		if cb != nil {
			cb(tokens)
		}
		return Outcome{}, false

	case ev.Type.ToolPayload():
		c.pending = search.ExtractResults(ev.Content)
		results := append([]search.Result(nil), c.pending...)
		cb := c.cb.OnResults
		c.mu.Unlock()
		if cb != nil {
			cb(results)
		}
		return Outcome{}, false

	case ev.Type == stream.EventToolCall:
		// Invocation echo only; pending results stay until a result arrives.
		cb := c.cb.OnToolCall
		c.mu.Unlock()
		if cb != nil {
			cb(ev.Content)
		}
		return Outcome{}, false

	case ev.Type == stream.EventDone:
		final := ev.Content
		if final == "" {
			final = c.live.String()
		} else if accumulated := c.live.String(); accumulated != "" && accumulated != final {
			log.Printf("chat: terminal content diverges from accumulated text (%d vs %d bytes), keeping terminal",
				len(final), len(accumulated))
		}
		c.reset()
		c.notifyStreaming(false)
		c.mu.Unlock()
		return Outcome{Text: final}, true

	case ev.Type == stream.EventError:
		msg := ev.Content
		c.reset()
		c.notifyStreaming(false)
		c.mu.Unlock()
		return Outcome{Err: msg}, true

	default:
		log.Printf("chat: ignoring unknown event type %q", ev.Type)
		c.mu.Unlock()
		return Outcome{}, false
	}
}

// reset requires c.mu held.
func (c *Conversation) reset() {
	c.phase = PhaseIdle
	c.live.Reset()
	c.pending = nil
}

// notifyStreaming requires c.mu held; the callback itself must not call back
// into the conversation.
func (c *Conversation) notifyStreaming(on bool) {
	if c.cb.OnStreamingStateChange != nil {
		c.cb.OnStreamingStateChange(on)
	}
}
