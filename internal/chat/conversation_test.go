package chat

import (
	"testing"

	"streamchat/internal/search"
	"streamchat/internal/stream"
)

func TestConversation_PhaseTransitions(t *testing.T) {
	conv := NewConversation(Callbacks{})

	if got := conv.Phase(); got != PhaseIdle {
		t.Fatalf("initial phase = %v, want idle", got)
	}
	if !conv.BeginSend() {
		t.Fatal("BeginSend on idle conversation failed")
	}
	if got := conv.Phase(); got != PhaseSending {
		t.Fatalf("phase after BeginSend = %v, want sending", got)
	}

	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "hi"})
	if got := conv.Phase(); got != PhaseStreaming {
		t.Fatalf("phase after first event = %v, want streaming", got)
	}

	_, terminal := conv.Apply(stream.Event{Type: stream.EventDone, Content: "hi"})
	if !terminal {
		t.Fatal("done event not reported terminal")
	}
	if got := conv.Phase(); got != PhaseIdle {
		t.Fatalf("phase after done = %v, want idle", got)
	}
}

func TestConversation_BeginSendRejectsWhileBusy(t *testing.T) {
	conv := NewConversation(Callbacks{})

	if !conv.BeginSend() {
		t.Fatal("first BeginSend failed")
	}
	if conv.BeginSend() {
		t.Fatal("BeginSend accepted while sending")
	}

	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "x"})
	if conv.BeginSend() {
		t.Fatal("BeginSend accepted while streaming")
	}

	conv.Apply(stream.Event{Type: stream.EventDone})
	if !conv.BeginSend() {
		t.Fatal("BeginSend rejected after terminal event")
	}
}

func TestConversation_ChunkProgressGrows(t *testing.T) {
	var progress []int
	conv := NewConversation(Callbacks{
		OnChunkProgress: func(n int) { progress = append(progress, n) },
	})
	conv.BeginSend()

	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "abcd"})     // 4 bytes -> 1
	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "e"})        // 5 -> 2
	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "fghijklm"}) // 13 -> 4

	want := []int{1, 2, 4}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress = %v, want %v", progress, want)
		}
	}
	if got := conv.LiveText(); got != "abcdefghijklm" {
		t.Fatalf("LiveText = %q", got)
	}
}

func TestConversation_TerminalContentWins(t *testing.T) {
	conv := NewConversation(Callbacks{})
	conv.BeginSend()

	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "partial answ"})
	outcome, terminal := conv.Apply(stream.Event{Type: stream.EventDone, Content: "full answer"})

	if !terminal {
		t.Fatal("done not terminal")
	}
	if outcome.Text != "full answer" {
		t.Fatalf("outcome.Text = %q, want terminal content", outcome.Text)
	}
}

func TestConversation_EmptyTerminalFallsBackToAccumulated(t *testing.T) {
	conv := NewConversation(Callbacks{})
	conv.BeginSend()

	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "Hello"})
	conv.Apply(stream.Event{Type: stream.EventChunk, Content: " world"})
	outcome, _ := conv.Apply(stream.Event{Type: stream.EventDone, Content: ""})

	if outcome.Text != "Hello world" {
		t.Fatalf("outcome.Text = %q, want accumulated text", outcome.Text)
	}
}

func TestConversation_ErrorOutcome(t *testing.T) {
	var states []bool
	conv := NewConversation(Callbacks{
		OnStreamingStateChange: func(on bool) { states = append(states, on) },
	})
	conv.BeginSend()

	outcome, terminal := conv.Apply(stream.Event{Type: stream.EventError, Content: "provider down"})

	if !terminal {
		t.Fatal("error not terminal")
	}
	if outcome.Err != "provider down" || outcome.Text != "" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(states) != 2 || states[0] != true || states[1] != false {
		t.Fatalf("streaming states = %v, want [true false]", states)
	}
}

func TestConversation_SearchResultsEvent(t *testing.T) {
	var got []search.Result
	conv := NewConversation(Callbacks{
		OnResults: func(r []search.Result) { got = r },
	})
	conv.BeginSend()

	block := "Search Results:\n\n1. Go\n   URL: https://go.dev\n   The language.\n\n"
	conv.Apply(stream.Event{Type: stream.EventSearchResults, Content: block})

	if len(got) != 1 || got[0].Title != "Go" || got[0].URL != "https://go.dev" {
		t.Fatalf("results = %+v", got)
	}
	if pending := conv.PendingResults(); len(pending) != 1 {
		t.Fatalf("PendingResults = %+v", pending)
	}
}

func TestConversation_ToolCallKeepsPendingResults(t *testing.T) {
	var resultCalls [][]search.Result
	var toolCalls []string
	conv := NewConversation(Callbacks{
		OnResults:  func(r []search.Result) { resultCalls = append(resultCalls, r) },
		OnToolCall: func(name string) { toolCalls = append(toolCalls, name) },
	})
	conv.BeginSend()

	block := "Search Results:\n\n1. Go\n   URL: https://go.dev\n   The language.\n\n"
	conv.Apply(stream.Event{Type: stream.EventSearchResults, Content: block})
	conv.Apply(stream.Event{Type: stream.EventToolCall, Content: "search_internet"})

	if len(resultCalls) != 1 {
		t.Fatalf("OnResults fired %d times, want 1", len(resultCalls))
	}
	if pending := conv.PendingResults(); len(pending) != 1 || pending[0].Title != "Go" {
		t.Fatalf("pending results after tool_call = %+v", pending)
	}
	if len(toolCalls) != 1 || toolCalls[0] != "search_internet" {
		t.Fatalf("tool calls = %v", toolCalls)
	}
}

func TestConversation_EventsAfterTerminalIgnored(t *testing.T) {
	conv := NewConversation(Callbacks{})
	conv.BeginSend()
	conv.Apply(stream.Event{Type: stream.EventDone, Content: "final"})

	outcome, terminal := conv.Apply(stream.Event{Type: stream.EventDone, Content: "again"})
	if terminal {
		t.Fatalf("second terminal accepted: %+v", outcome)
	}

	_, terminal = conv.Apply(stream.Event{Type: stream.EventChunk, Content: "late"})
	if terminal || conv.LiveText() != "" {
		t.Fatalf("idle conversation mutated by late chunk: %q", conv.LiveText())
	}
}

func TestConversation_AbortResets(t *testing.T) {
	conv := NewConversation(Callbacks{})
	conv.BeginSend()
	conv.Apply(stream.Event{Type: stream.EventChunk, Content: "x"})

	conv.Abort()

	if conv.Phase() != PhaseIdle || conv.LiveText() != "" {
		t.Fatalf("abort left phase=%v live=%q", conv.Phase(), conv.LiveText())
	}
	if !conv.BeginSend() {
		t.Fatal("BeginSend rejected after abort")
	}
}
