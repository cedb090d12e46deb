package campaign

import (
	"context"
	"time"
)

// Status is the lifecycle state of a bulk campaign.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
)

// RecipientStatus is the per-recipient delivery state.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

type Campaign struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	Name         string     `json:"name"`
	Template     string     `json:"template"`
	DelaySeconds int        `json:"delay_seconds"`
	Status       Status     `json:"status"`
	Total        int        `json:"total"`
	Sent         int        `json:"sent"`
	Failed       int        `json:"failed"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type Recipient struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Email      string          `json:"email,omitempty"`
	Status     RecipientStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
}

type RecipientInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type CreateRequest struct {
	SessionID    string           `json:"session_id"`
	Name         string           `json:"name"`
	Template     string           `json:"template"`
	DelaySeconds *int             `json:"delay_seconds,omitempty"` // nil = configured default
	Recipients   []RecipientInput `json:"recipients"`
}

type ICampaignUsecase interface {
	Create(ctx context.Context, request CreateRequest) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	Get(ctx context.Context, campaignID string) (Campaign, []Recipient, error)
	Start(ctx context.Context, campaignID string) error
	Pause(ctx context.Context, campaignID string) error
	Resume(ctx context.Context, campaignID string) error
	Stop(ctx context.Context, campaignID string) error
}
