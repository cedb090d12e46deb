package autoreply

import (
	"context"
	"time"
)

// MatchType decides how a rule keyword is compared against incoming text.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
	MatchEndsWith   MatchType = "ends_with"
	MatchRegex      MatchType = "regex"
)

// Priority orders rule evaluation. High rules win over normal, normal over low.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rule is an auto-reply rule. SessionID empty means the rule is global.
type Rule struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	Keyword        string    `json:"keyword"`
	MatchType      MatchType `json:"match_type"`
	CaseSensitive  bool      `json:"case_sensitive"`
	Response       string    `json:"response"`
	Priority       Priority  `json:"priority"`
	UseAI          bool      `json:"use_ai"`
	AIPrompt       string    `json:"ai_prompt,omitempty"`
	AllowedSenders string    `json:"allowed_senders,omitempty"` // comma separated bare numbers, empty = everyone
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateRequest struct {
	SessionID      string    `json:"session_id"`
	Keyword        string    `json:"keyword"`
	MatchType      MatchType `json:"match_type"`
	CaseSensitive  bool      `json:"case_sensitive"`
	Response       string    `json:"response"`
	Priority       Priority  `json:"priority"`
	UseAI          bool      `json:"use_ai"`
	AIPrompt       string    `json:"ai_prompt"`
	AllowedSenders string    `json:"allowed_senders"`
	Active         *bool     `json:"active"`
}

type UpdateRequest struct {
	Keyword        string     `json:"keyword"`
	MatchType      MatchType  `json:"match_type"`
	CaseSensitive  *bool      `json:"case_sensitive"`
	Response       string     `json:"response"`
	Priority       Priority   `json:"priority"`
	UseAI          *bool      `json:"use_ai"`
	AIPrompt       *string    `json:"ai_prompt"`
	AllowedSenders *string    `json:"allowed_senders"`
	Active         *bool      `json:"active"`
}

type IAutoReplyUsecase interface {
	Create(ctx context.Context, request CreateRequest) (Rule, error)
	List(ctx context.Context, sessionID string) ([]Rule, error)
	Update(ctx context.Context, ruleID string, request UpdateRequest) (Rule, error)
	Delete(ctx context.Context, ruleID string) error
}
