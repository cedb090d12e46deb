package session

// Push event names emitted through the EventSink. Each transition emits
// its event exactly once.
const (
	EventSessionQR           = "session:qr"
	EventSessionReady        = "session:ready"
	EventSessionDisconnected = "session:disconnected"
	EventSessionError        = "session:error"
	EventMessageSent         = "message:sent"
	EventMessageError        = "message:error"
	EventMessageReceived     = "message:received"
)

// EventSink receives push events for connected UIs. Implementations must
// not block; the manager calls Emit from its event loops.
type EventSink interface {
	Emit(event string, payload map[string]any)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(string, map[string]any) {}
