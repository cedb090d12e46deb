package app

import "context"

// Settings is the runtime-tunable configuration exposed over the API.
// The AI API key itself is never returned, only whether one is set.
type Settings struct {
	AIModel        string `json:"ai_model"`
	AISystemPrompt string `json:"ai_system_prompt"`
	AIKeySet       bool   `json:"ai_key_set"`
}

type UpdateSettingsRequest struct {
	AIAPIKey       *string `json:"ai_api_key,omitempty"`
	AIModel        *string `json:"ai_model,omitempty"`
	AISystemPrompt *string `json:"ai_system_prompt,omitempty"`
}

type IAppUsecase interface {
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, request UpdateSettingsRequest) (Settings, error)
}
