package stream

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
)

// eventPrefix marks payload lines; everything else on the wire is control
// framing we skip for forward compatibility.
const eventPrefix = "data:"

// ErrNoData is the message surfaced when a source closes without delivering
// anything.
const ErrNoData = "No data received from stream"

// Decoder turns an arbitrarily chunked byte source into an ordered, finite
// sequence of events ending in exactly one terminal event. It is single use:
// one Run per decoder.
type Decoder struct {
	src io.ReadCloser
	out chan Event

	// immediate, when set, replaces reading entirely (failed HTTP exchange).
	immediate *Event
}

// NewDecoder decodes from src. The source is closed when decoding finishes.
func NewDecoder(src io.ReadCloser) *Decoder {
	return &Decoder{src: src, out: make(chan Event, 16)}
}

// FromResponse builds a decoder for an HTTP exchange. A non-success status is
// turned into a single error event carrying the server's detail message.
func FromResponse(resp *http.Response) *Decoder {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return NewDecoder(resp.Body)
	}

	msg := errorDetail(resp)
	resp.Body.Close()
	return &Decoder{
		out:       make(chan Event, 1),
		immediate: &Event{Type: EventError, Content: msg},
	}
}

func errorDetail(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	if err == nil && len(body) > 0 {
		var decoded struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &decoded) == nil {
			if decoded.Detail != "" {
				return decoded.Detail
			}
			if decoded.Message != "" {
				return decoded.Message
			}
		}
	}
	return "Request failed with status " + resp.Status
}

// Events returns the decoded event channel. It is closed after the terminal
// event.
func (d *Decoder) Events() <-chan Event {
	return d.out
}

// Run consumes the source until a terminal event, the source ends, or ctx is
// cancelled. If the source ends without a terminal event, one is synthesized:
// done with the concatenated chunk text seen so far, or an error when nothing
// arrived at all.
func (d *Decoder) Run(ctx context.Context) {
	defer close(d.out)

	if d.immediate != nil {
		d.emit(ctx, *d.immediate)
		return
	}
	defer d.src.Close()

	var (
		carry    []byte // partial line retained across reads
		accum    strings.Builder
		sawChunk bool
	)

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, readErr := d.src.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			for {
				i := indexNewline(carry)
				if i < 0 {
					break
				}
				line := string(carry[:i])
				carry = carry[i+1:]

				ev, ok := d.decodeLine(line)
				if !ok {
					continue
				}
				if ev.Type == EventChunk {
					sawChunk = true
					accum.WriteString(ev.Content)
				}
				if !d.emit(ctx, ev) {
					return
				}
				if ev.Type.Terminal() {
					return
				}
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				log.Printf("stream: read error: %v", readErr)
			}
			break
		}
	}

	// Trailing bytes without a newline still form a final line.
	if len(carry) > 0 {
		if ev, ok := d.decodeLine(string(carry)); ok {
			if ev.Type == EventChunk {
				sawChunk = true
				accum.WriteString(ev.Content)
			}
			if !d.emit(ctx, ev) {
				return
			}
			if ev.Type.Terminal() {
				return
			}
		}
	}

	if sawChunk {
		d.emit(ctx, Event{Type: EventDone, Content: accum.String()})
	} else {
		d.emit(ctx, Event{Type: EventError, Content: ErrNoData})
	}
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}

// decodeLine classifies one complete line. Blank lines are SSE framing;
// non-payload lines are logged and dropped; malformed payloads are skipped
// without ending the stream.
func (d *Decoder) decodeLine(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Event{}, false
	}
	// Only lines that begin with the prefix are payload; an indented one is a
	// control line like any other.
	if !strings.HasPrefix(line, eventPrefix) {
		log.Printf("stream: skipping control line: %.80s", line)
		return Event{}, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
	if payload == "" {
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("stream: malformed payload line: %v", err)
		return Event{}, false
	}
	return ev, true
}

func (d *Decoder) emit(ctx context.Context, ev Event) bool {
	select {
	case d.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
