package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"streamchat/internal/stream"
)

// Session is the client's view of a persisted session.
type Session struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	MessageCount int64
}

// Message is the client's view of a persisted message.
type Message struct {
	ID        uint64
	Role      string
	Content   string
	ModelUsed string
	CreatedAt time.Time
}

// Attachment is extra content folded into the prompt under a delimiter header.
type Attachment struct {
	Name    string
	Content string
}

// Store is the persistence collaborator (server-backed).
type Store interface {
	CreateSession(ctx context.Context, name string) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
	RenameSession(ctx context.Context, sessionID, name string) (*Session, error)
	DuplicateSession(ctx context.Context, sessionID string) (*Session, error)
}

// StreamRequest is one provider stream call.
type StreamRequest struct {
	Provider    string
	APIKey      string
	Model       string
	Prompt      string
	SessionID   string
	Temperature float64
	EnableTools bool
}

// Streamer opens the event stream for one submission.
type Streamer interface {
	StreamChat(ctx context.Context, req StreamRequest) (<-chan stream.Event, error)
}

// Settings selects the provider for outgoing submissions.
type Settings struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	EnableTools bool
}

// Notify carries the orchestrator's terminal callbacks. Both fire from the
// stream's event loop goroutine.
type Notify struct {
	// OnComplete delivers the finished turn. newSessionID is non-empty only
	// when this submission created the session.
	OnComplete func(userText, assistantText, newSessionID string)
	OnError    func(message string)
	// OnHistory delivers a reloaded message list, fully replacing prior state.
	OnHistory func(sessionID string, msgs []Message)
}

// Orchestrator is the single entry point for sending a message: it ensures a
// session exists, opens the stream, feeds events to the conversation, and
// hands reconciliation to the scheduler. At most one stream is in flight;
// concurrent submissions are dropped, not queued.
type Orchestrator struct {
	store    Store
	streamer Streamer
	conv     *Conversation
	sched    *Scheduler
	notify   Notify

	mu        sync.Mutex
	settings  Settings
	sessionID string
	lastUser  string
}

func NewOrchestrator(store Store, streamer Streamer, conv *Conversation, notify Notify) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		streamer: streamer,
		conv:     conv,
		notify:   notify,
	}
	o.sched = NewScheduler(conv.Phase, o.reloadHistory)
	return o
}

// Scheduler exposes the reload scheduler, mainly so callers can tune settle
// delays.
func (o *Orchestrator) Scheduler() *Scheduler { return o.sched }

func (o *Orchestrator) SetSettings(s Settings) {
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
}

func (o *Orchestrator) Settings() Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// SessionID returns the active session id, empty while the session is still
// pending creation.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// SwitchSession makes sessionID current and asks the scheduler for its
// history. An empty id starts a fresh, not-yet-persisted conversation.
func (o *Orchestrator) SwitchSession(sessionID string) {
	o.mu.Lock()
	o.sessionID = sessionID
	o.lastUser = ""
	o.mu.Unlock()
	o.sched.OnSessionSwitch(sessionID)
}

// Submit starts one send. Violated preconditions (no model, empty input, busy)
// are silently ignored. Progress arrives via the conversation callbacks and
// the orchestrator's Notify.
func (o *Orchestrator) Submit(ctx context.Context, text string, attachments []Attachment) {
	o.submit(ctx, text, attachments)
}

// Regenerate resends the last user turn without attachments.
func (o *Orchestrator) Regenerate(ctx context.Context) {
	o.mu.Lock()
	last := o.lastUser
	o.mu.Unlock()
	if last == "" {
		return
	}
	o.submit(ctx, last, nil)
}

func (o *Orchestrator) submit(ctx context.Context, text string, attachments []Attachment) {
	o.mu.Lock()
	settings := o.settings
	o.mu.Unlock()

	if settings.Model == "" {
		return
	}
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return
	}
	if !o.conv.BeginSend() {
		return
	}

	// Session may not exist yet; create it before the stream so the turn can
	// be persisted server-side. Creation failure degrades to an unsaved turn.
	o.mu.Lock()
	sessionID := o.sessionID
	o.mu.Unlock()

	newSessionID := ""
	if sessionID == "" {
		sess, err := o.store.CreateSession(ctx, sessionName(text))
		if err != nil {
			log.Printf("chat: session create failed, turn will not be saved: %v", err)
		} else {
			sessionID = sess.ID
			newSessionID = sess.ID
			o.mu.Lock()
			o.sessionID = sessionID
			o.mu.Unlock()
		}
	}

	o.mu.Lock()
	o.lastUser = text
	o.mu.Unlock()

	events, err := o.streamer.StreamChat(ctx, StreamRequest{
		Provider:    settings.Provider,
		APIKey:      settings.APIKey,
		Model:       settings.Model,
		Prompt:      composePrompt(text, attachments),
		SessionID:   sessionID,
		Temperature: settings.Temperature,
		EnableTools: settings.EnableTools,
	})
	if err != nil {
		o.conv.Abort()
		if o.notify.OnError != nil {
			o.notify.OnError(err.Error())
		}
		return
	}

	go o.consume(events, text, newSessionID)
}

// consume runs the event loop for one stream. Events are applied strictly in
// arrival order; the conversation guarantees a single terminal outcome.
func (o *Orchestrator) consume(events <-chan stream.Event, userText, newSessionID string) {
	for ev := range events {
		outcome, terminal := o.conv.Apply(ev)
		if !terminal {
			continue
		}

		o.mu.Lock()
		sessionID := o.sessionID
		o.mu.Unlock()

		if outcome.Err != "" {
			if o.notify.OnError != nil {
				o.notify.OnError(outcome.Err)
			}
		} else {
			if o.notify.OnComplete != nil {
				o.notify.OnComplete(userText, outcome.Text, newSessionID)
			}
			o.sched.OnFinalize(sessionID)
		}
		o.sched.OnStreamIdle()
		return
	}

	// Channel closed without a terminal event: the decoder synthesizes one in
	// every path, so this only happens when the context died first.
	o.conv.Abort()
	o.sched.OnStreamIdle()
}

func (o *Orchestrator) reloadHistory(sessionID string) {
	msgs, err := o.store.GetMessages(context.Background(), sessionID)
	if err != nil {
		log.Printf("chat: history reload failed for %s: %v", sessionID, err)
		return
	}
	if o.notify.OnHistory != nil {
		o.notify.OnHistory(sessionID, msgs)
	}
}

// composePrompt concatenates attachment content under per-attachment
// delimiter headers.
func composePrompt(text string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	for _, a := range attachments {
		fmt.Fprintf(&b, "\n\n--- Attachment: %s ---\n%s", a.Name, a.Content)
	}
	return b.String()
}

// sessionName derives a session title from the first submission.
func sessionName(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "New Session"
	}
	const max = 40
	if runes := []rune(text); len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return text
}
