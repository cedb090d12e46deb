package session

import (
	"context"
	"time"
)

// Status is the lifecycle state of a messaging session.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusAwaitingScan Status = "awaiting_scan"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Session is a read snapshot of a managed session.
type Session struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Status       Status     `json:"status"`
	QRCode       string     `json:"qr_code,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

type CreateRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

type MediaPayload struct {
	Data     string `json:"data"` // base64 encoded
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type SendMessageRequest struct {
	SessionID string        `json:"session_id"`
	Phone     string        `json:"phone"`
	Message   string        `json:"message"`
	Media     *MediaPayload `json:"media,omitempty"`
}

type SendMessageResponse struct {
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

type ISessionUsecase interface {
	Create(ctx context.Context, request CreateRequest) (Session, error)
	List(ctx context.Context) []Session
	Get(ctx context.Context, sessionID string) (Session, error)
	SendMessage(ctx context.Context, request SendMessageRequest) (SendMessageResponse, error)
	Disconnect(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}
