package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/multiwa/multiwa/pkg/crypto"
)

const (
	SettingAIAPIKey       = "ai_api_key"
	SettingAIModel        = "ai_model"
	SettingAISystemPrompt = "ai_global_system_prompt"
)

// SettingsStore is a key/value table for runtime-tunable settings. The
// AI API key is encrypted at rest.
type SettingsStore struct {
	db     *sql.DB
	driver string
}

func NewSettingsStore(db *sql.DB, driver string) (*SettingsStore, error) {
	store := &SettingsStore{db: db, driver: driver}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_settings (key TEXT PRIMARY KEY, value TEXT)`)
	if err != nil {
		return nil, fmt.Errorf("failed to init settings schema: %w", err)
	}
	return store, nil
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, rebind(s.driver,
		`SELECT value FROM global_settings WHERE key = ?`), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !value.Valid {
		return "", nil
	}
	return value.String, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, rebind(s.driver,
		`INSERT INTO global_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`), key, value)
	return err
}

// SetAIAPIKey seals the key before writing it.
func (s *SettingsStore) SetAIAPIKey(ctx context.Context, apiKey string) error {
	sealed, err := crypto.Encrypt(apiKey)
	if err != nil {
		return err
	}
	return s.Set(ctx, SettingAIAPIKey, sealed)
}

// GetAIAPIKey returns the decrypted key, or empty when unset.
func (s *SettingsStore) GetAIAPIKey(ctx context.Context) (string, error) {
	sealed, err := s.Get(ctx, SettingAIAPIKey)
	if err != nil {
		return "", err
	}
	if sealed == "" {
		return "", nil
	}
	return crypto.Decrypt(sealed)
}
