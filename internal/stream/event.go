// Package stream decodes the line-delimited chat event protocol into typed
// events.
package stream

// EventType tags one decoded stream event.
type EventType string

const (
	EventChunk         EventType = "chunk"
	EventSearchResults EventType = "search_results"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// Event is one decoded payload line. Done and Error are terminal; a stream
// carries exactly one terminal event and nothing after it.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// Terminal reports whether the event ends its stream.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// ToolPayload reports whether the event carries an out-of-band tool result
// block rather than answer text. A tool_call is an invocation echo, not a
// result, and is excluded.
func (t EventType) ToolPayload() bool {
	return t == EventSearchResults || t == EventToolResult
}
