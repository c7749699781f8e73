package stream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// slowReader yields at most chunk bytes per Read, so line boundaries land at
// arbitrary offsets.
type slowReader struct {
	data  []byte
	chunk int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func (r *slowReader) Close() error { return nil }

func decodeAll(t *testing.T, src string, chunk int) []Event {
	t.Helper()
	dec := NewDecoder(&slowReader{data: []byte(src), chunk: chunk})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go dec.Run(ctx)

	var events []Event
	for ev := range dec.Events() {
		events = append(events, ev)
	}
	return events
}

func TestDecoder_DeliversEventsInOrder(t *testing.T) {
	src := "data: {\"type\":\"chunk\",\"content\":\"Hello\"}\n\n" +
		"data: {\"type\":\"chunk\",\"content\":\" world\"}\n\n" +
		"data: {\"type\":\"done\",\"content\":\"Hello world\"}\n\n"

	events := decodeAll(t, src, 4096)

	want := []Event{
		{Type: EventChunk, Content: "Hello"},
		{Type: EventChunk, Content: " world"},
		{Type: EventDone, Content: "Hello world"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestDecoder_SplitBoundariesDoNotChangeEvents(t *testing.T) {
	src := "data: {\"type\":\"chunk\",\"content\":\"alpha\"}\r\n\r\n" +
		"data: {\"type\":\"search_results\",\"content\":\"Search Results:\\n\\n1. t\\n   URL: u\\n\"}\n\n" +
		"data: {\"type\":\"done\",\"content\":\"alpha\"}\n\n"

	baseline := decodeAll(t, src, 4096)

	for _, chunk := range []int{1, 2, 3, 7, 16, len(src)} {
		events := decodeAll(t, src, chunk)
		if len(events) != len(baseline) {
			t.Fatalf("chunk=%d: got %d events, want %d", chunk, len(events), len(baseline))
		}
		for i := range baseline {
			if events[i] != baseline[i] {
				t.Fatalf("chunk=%d: event %d = %v, want %v", chunk, i, events[i], baseline[i])
			}
		}
	}
}

func TestDecoder_SynthesizesDoneFromAccumulatedChunks(t *testing.T) {
	// Source ends without a terminal event, last line has no trailing newline.
	src := "data: {\"type\":\"chunk\",\"content\":\"par\"}\n" +
		"data: {\"type\":\"chunk\",\"content\":\"tial\"}"

	events := decodeAll(t, src, 4096)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %v", len(events), events)
	}
	last := events[2]
	if last.Type != EventDone || last.Content != "partial" {
		t.Fatalf("terminal = %v, want done %q", last, "partial")
	}
}

func TestDecoder_EmptySourceYieldsError(t *testing.T) {
	events := decodeAll(t, "", 4096)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(events), events)
	}
	if events[0].Type != EventError || events[0].Content != ErrNoData {
		t.Fatalf("terminal = %v, want error %q", events[0], ErrNoData)
	}
}

func TestDecoder_SkipsControlAndMalformedLines(t *testing.T) {
	src := ": keepalive comment\n" +
		"event: message\n" +
		"data: {not json}\n" +
		"  data: {\"type\":\"chunk\",\"content\":\"indented, not payload\"}\n" +
		"data: {\"type\":\"chunk\",\"content\":\"ok\"}\n" +
		"data: {\"type\":\"done\",\"content\":\"ok\"}\n"

	events := decodeAll(t, src, 4096)

	want := []Event{
		{Type: EventChunk, Content: "ok"},
		{Type: EventDone, Content: "ok"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestDecoder_StopsAtFirstTerminalEvent(t *testing.T) {
	src := "data: {\"type\":\"error\",\"content\":\"boom\"}\n" +
		"data: {\"type\":\"chunk\",\"content\":\"after\"}\n"

	events := decodeAll(t, src, 4096)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(events), events)
	}
	if events[0].Type != EventError || events[0].Content != "boom" {
		t.Fatalf("terminal = %v, want error %q", events[0], "boom")
	}
}

func TestFromResponse_NonSuccessBecomesErrorEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail field", `{"detail":"Session not found"}`, "Session not found"},
		{"message field", `{"message":"bad provider"}`, "bad provider"},
		{"opaque body", "<html>nope</html>", "Request failed with status 500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: 500,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}

			dec := FromResponse(resp)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			go dec.Run(ctx)

			var events []Event
			for ev := range dec.Events() {
				events = append(events, ev)
			}
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1: %v", len(events), events)
			}
			if events[0].Type != EventError || events[0].Content != tt.want {
				t.Fatalf("event = %v, want error %q", events[0], tt.want)
			}
		})
	}
}

func TestDecoder_ContextCancelStopsRun(t *testing.T) {
	// A source that never returns EOF; cancellation must end Run anyway.
	pr, pw := io.Pipe()
	defer pw.Close()

	dec := NewDecoder(pr)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		dec.Run(ctx)
		close(done)
	}()

	if _, err := pw.Write([]byte("data: {\"type\":\"chunk\",\"content\":\"x\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-dec.Events()

	cancel()
	pr.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
