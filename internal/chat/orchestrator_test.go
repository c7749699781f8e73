package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"streamchat/internal/stream"
)

type fakeStore struct {
	mu        sync.Mutex
	created   int
	createErr error
	messages  []Message
}

func (s *fakeStore) CreateSession(ctx context.Context, name string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created++
	return &Session{ID: "sess-created", Name: name}, nil
}

func (s *fakeStore) ListSessions(ctx context.Context) ([]Session, error) { return nil, nil }

func (s *fakeStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages, nil
}

func (s *fakeStore) DeleteSession(ctx context.Context, sessionID string) error { return nil }

func (s *fakeStore) RenameSession(ctx context.Context, sessionID, name string) (*Session, error) {
	return nil, nil
}

func (s *fakeStore) DuplicateSession(ctx context.Context, sessionID string) (*Session, error) {
	return nil, nil
}

func (s *fakeStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

type fakeStreamer struct {
	mu       sync.Mutex
	requests []StreamRequest
	events   [][]stream.Event
	err      error
}

func (f *fakeStreamer) StreamChat(ctx context.Context, req StreamRequest) (<-chan stream.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)

	var events []stream.Event
	if len(f.events) > 0 {
		events = f.events[0]
		f.events = f.events[1:]
	}

	ch := make(chan stream.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (f *fakeStreamer) lastRequest(t *testing.T) StreamRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no stream request recorded")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeStreamer) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func doneStream(text string) []stream.Event {
	return []stream.Event{
		{Type: stream.EventChunk, Content: text},
		{Type: stream.EventDone, Content: text},
	}
}

type completion struct {
	user, assistant, newSessionID string
}

func newTestOrchestrator(store *fakeStore, streamer *fakeStreamer) (*Orchestrator, chan completion, chan string) {
	completions := make(chan completion, 4)
	errs := make(chan string, 4)

	orch := NewOrchestrator(store, streamer, NewConversation(Callbacks{}), Notify{
		OnComplete: func(user, assistant, newSessionID string) {
			completions <- completion{user, assistant, newSessionID}
		},
		OnError: func(msg string) { errs <- msg },
	})
	orch.Scheduler().SetSettleDelays(time.Millisecond, time.Millisecond)
	orch.SetSettings(Settings{Provider: "openai", APIKey: "k", Model: "gpt-4"})
	return orch, completions, errs
}

func waitCompletion(t *testing.T, ch chan completion) completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no completion within deadline")
		return completion{}
	}
}

func TestOrchestrator_SubmitCreatesSessionOnce(t *testing.T) {
	store := &fakeStore{}
	streamer := &fakeStreamer{events: [][]stream.Event{doneStream("first"), doneStream("second")}}
	orch, completions, _ := newTestOrchestrator(store, streamer)

	orch.Submit(context.Background(), "hello", nil)
	c := waitCompletion(t, completions)

	if c.newSessionID != "sess-created" {
		t.Fatalf("newSessionID = %q, want sess-created", c.newSessionID)
	}
	if c.user != "hello" || c.assistant != "first" {
		t.Fatalf("completion = %+v", c)
	}
	if orch.SessionID() != "sess-created" {
		t.Fatalf("SessionID = %q", orch.SessionID())
	}

	orch.Submit(context.Background(), "again", nil)
	c = waitCompletion(t, completions)

	if c.newSessionID != "" {
		t.Fatalf("second submit reported newSessionID %q", c.newSessionID)
	}
	if store.createdCount() != 1 {
		t.Fatalf("created %d sessions, want 1", store.createdCount())
	}
	if got := streamer.lastRequest(t).SessionID; got != "sess-created" {
		t.Fatalf("second request session = %q", got)
	}
}

func TestOrchestrator_CreateFailureDegradesToUnsavedTurn(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	streamer := &fakeStreamer{events: [][]stream.Event{doneStream("answer")}}
	orch, completions, _ := newTestOrchestrator(store, streamer)

	orch.Submit(context.Background(), "hello", nil)
	c := waitCompletion(t, completions)

	if c.newSessionID != "" {
		t.Fatalf("newSessionID = %q, want empty", c.newSessionID)
	}
	if c.assistant != "answer" {
		t.Fatalf("assistant = %q", c.assistant)
	}
	if got := streamer.lastRequest(t).SessionID; got != "" {
		t.Fatalf("request session = %q, want empty", got)
	}
}

func TestOrchestrator_PreconditionsDropSilently(t *testing.T) {
	store := &fakeStore{}
	streamer := &fakeStreamer{}
	orch, _, _ := newTestOrchestrator(store, streamer)

	orch.Submit(context.Background(), "   ", nil)
	if streamer.requestCount() != 0 {
		t.Fatal("blank submit reached the streamer")
	}

	orch.SetSettings(Settings{Provider: "openai", APIKey: "k"})
	orch.Submit(context.Background(), "hello", nil)
	if streamer.requestCount() != 0 {
		t.Fatal("submit without model reached the streamer")
	}
}

func TestOrchestrator_BusyDropsConcurrentSubmit(t *testing.T) {
	store := &fakeStore{}

	// First stream stays open until released.
	hold := make(chan stream.Event)
	streamer := &fakeStreamer{}
	orch, completions, _ := newTestOrchestrator(store, streamer)

	var mu sync.Mutex
	requests := 0
	holdStreamer := streamerFunc(func(ctx context.Context, req StreamRequest) (<-chan stream.Event, error) {
		mu.Lock()
		requests++
		mu.Unlock()
		return hold, nil
	})
	orch = NewOrchestrator(store, holdStreamer, NewConversation(Callbacks{}), Notify{
		OnComplete: func(user, assistant, newSessionID string) {
			completions <- completion{user, assistant, newSessionID}
		},
	})
	orch.Scheduler().SetSettleDelays(time.Millisecond, time.Millisecond)
	orch.SetSettings(Settings{Provider: "openai", APIKey: "k", Model: "gpt-4"})

	orch.Submit(context.Background(), "first", nil)
	orch.Submit(context.Background(), "second", nil)

	mu.Lock()
	n := requests
	mu.Unlock()
	if n != 1 {
		t.Fatalf("streamer called %d times, want 1", n)
	}

	hold <- stream.Event{Type: stream.EventDone, Content: "ok"}
	close(hold)
	waitCompletion(t, completions)
}

type streamerFunc func(ctx context.Context, req StreamRequest) (<-chan stream.Event, error)

func (f streamerFunc) StreamChat(ctx context.Context, req StreamRequest) (<-chan stream.Event, error) {
	return f(ctx, req)
}

func TestOrchestrator_RegenerateResendsLastUserText(t *testing.T) {
	store := &fakeStore{}
	streamer := &fakeStreamer{events: [][]stream.Event{doneStream("v1"), doneStream("v2")}}
	orch, completions, _ := newTestOrchestrator(store, streamer)

	orch.Submit(context.Background(), "explain goroutines", nil)
	waitCompletion(t, completions)

	orch.Regenerate(context.Background())
	c := waitCompletion(t, completions)

	if c.user != "explain goroutines" || c.assistant != "v2" {
		t.Fatalf("regenerated completion = %+v", c)
	}
	if got := streamer.lastRequest(t).Prompt; got != "explain goroutines" {
		t.Fatalf("regenerated prompt = %q", got)
	}
}

func TestOrchestrator_RegenerateWithoutHistoryIsNoOp(t *testing.T) {
	store := &fakeStore{}
	streamer := &fakeStreamer{}
	orch, _, _ := newTestOrchestrator(store, streamer)

	orch.Regenerate(context.Background())
	if streamer.requestCount() != 0 {
		t.Fatal("regenerate without prior submit reached the streamer")
	}
}

func TestOrchestrator_AttachmentsFoldedIntoPrompt(t *testing.T) {
	store := &fakeStore{}
	streamer := &fakeStreamer{events: [][]stream.Event{doneStream("ok")}}
	orch, completions, _ := newTestOrchestrator(store, streamer)

	orch.Submit(context.Background(), "review this", []Attachment{
		{Name: "main.go", Content: "package main"},
		{Name: "notes.txt", Content: "remember the nil check"},
	})
	waitCompletion(t, completions)

	prompt := streamer.lastRequest(t).Prompt
	if !strings.HasPrefix(prompt, "review this") {
		t.Fatalf("prompt = %q", prompt)
	}
	for _, want := range []string{
		"\n\n--- Attachment: main.go ---\npackage main",
		"\n\n--- Attachment: notes.txt ---\nremember the nil check",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestOrchestrator_StreamErrorReachesOnError(t *testing.T) {
	store := &fakeStore{}
	streamer := &fakeStreamer{events: [][]stream.Event{{
		{Type: stream.EventError, Content: "provider down"},
	}}}
	orch, _, errs := newTestOrchestrator(store, streamer)

	orch.Submit(context.Background(), "hello", nil)

	select {
	case msg := <-errs:
		if msg != "provider down" {
			t.Fatalf("error = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error within deadline")
	}
}

func TestOrchestrator_FinalizeReloadsHistory(t *testing.T) {
	store := &fakeStore{messages: []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "answer"},
	}}
	streamer := &fakeStreamer{events: [][]stream.Event{doneStream("answer")}}

	history := make(chan []Message, 1)
	orch := NewOrchestrator(store, streamer, NewConversation(Callbacks{}), Notify{
		OnHistory: func(sessionID string, msgs []Message) { history <- msgs },
	})
	orch.Scheduler().SetSettleDelays(time.Millisecond, time.Millisecond)
	orch.SetSettings(Settings{Provider: "openai", APIKey: "k", Model: "gpt-4"})

	orch.Submit(context.Background(), "hello", nil)

	select {
	case msgs := <-history:
		if len(msgs) != 2 {
			t.Fatalf("history = %+v", msgs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no history reload within deadline")
	}
}

func TestOrchestrator_ClosedStreamWithoutTerminalAborts(t *testing.T) {
	store := &fakeStore{}
	// Channel closes after one chunk; no terminal event ever arrives.
	streamer := &fakeStreamer{events: [][]stream.Event{{
		{Type: stream.EventChunk, Content: "half"},
	}}}
	conv := NewConversation(Callbacks{})
	orch := NewOrchestrator(store, streamer, conv, Notify{})
	orch.Scheduler().SetSettleDelays(time.Millisecond, time.Millisecond)
	orch.SetSettings(Settings{Provider: "openai", APIKey: "k", Model: "gpt-4"})

	orch.Submit(context.Background(), "hello", nil)

	deadline := time.After(2 * time.Second)
	for conv.Phase() != PhaseIdle {
		select {
		case <-deadline:
			t.Fatal("conversation never returned to idle")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !conv.BeginSend() {
		t.Fatal("BeginSend rejected after aborted stream")
	}
}
