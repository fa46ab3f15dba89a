package domain

// Event types carried by the feedback stream, shared by the SSE and
// WebSocket transports.
const (
	EventFragment = "fragment"
	EventDone     = "done"
	EventError    = "error"
)

// DoneMarker is the data payload of the terminal SSE event.
const DoneMarker = "[DONE]"

// StreamEvent is one message of the feedback stream as seen by a client
type StreamEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// Set only on error events, which are sent before the stream opens.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// FragmentEvent builds a fragment event
func FragmentEvent(text string) StreamEvent {
	return StreamEvent{Type: EventFragment, Text: text}
}

// DoneEvent builds the terminal event
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// ErrorEvent builds a pre-stream error event
func ErrorEvent(code, message string) StreamEvent {
	return StreamEvent{Type: EventError, Code: code, Message: message}
}
