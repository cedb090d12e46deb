package messaging

import (
	"context"
	"time"
)

// EventType tags the variants of Event. Exactly one payload field is set
// per type.
type EventType string

const (
	EventQR           EventType = "qr"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventLoggedOut    EventType = "logged_out"
	EventMessage      EventType = "message"
	EventError        EventType = "error"
)

// Event is a tagged union delivered on the client's event channel.
type Event struct {
	Type    EventType
	QRCode  string    // EventQR
	Message *Incoming // EventMessage
	Err     error     // EventError
}

// Incoming is a received chat message, already stripped of protocol noise.
type Incoming struct {
	MessageID  string
	Sender     string // full JID
	SenderName string
	Text       string
	IsGroup    bool
	IsFromMe   bool
	Timestamp  time.Time
}

// Media is an outbound attachment.
type Media struct {
	Data     []byte
	MimeType string
	FileName string
	Caption  string
}

// SendResult reports a successful delivery.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Client is the transport capability a session consumes. Implementations
// must close the Events channel when the connection is torn down for good.
type Client interface {
	// Connect establishes the socket. For unauthenticated devices it also
	// starts QR emission on the event channel.
	Connect(ctx context.Context) error
	// Disconnect closes the socket without discarding credentials.
	Disconnect()
	// Logout discards credentials and closes the socket.
	Logout(ctx context.Context) error

	SendText(ctx context.Context, to, text string) (SendResult, error)
	SendMedia(ctx context.Context, to string, media Media) (SendResult, error)

	// Events returns the tagged event stream for this client.
	Events() <-chan Event
	// PhoneNumber returns the authenticated account number, or empty.
	PhoneNumber() string
	IsConnected() bool
}

// ClientFactory builds a transport client for a session ID. Injected into
// the session manager so tests can substitute fakes.
type ClientFactory func(sessionID string) (Client, error)
