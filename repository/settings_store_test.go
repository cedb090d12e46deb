package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiwa/multiwa/pkg/crypto"
)

func newTestSettingsStore(t *testing.T) (*SettingsStore, *sql.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSettingsStore(db, "sqlite")
	require.NoError(t, err)
	return store, db
}

func TestSettingsStore_GetMissingIsEmpty(t *testing.T) {
	store, _ := newTestSettingsStore(t)
	value, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSettingsStore_SetOverwrites(t *testing.T) {
	store, _ := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, SettingAIModel, "gpt-4o-mini"))
	require.NoError(t, store.Set(ctx, SettingAIModel, "gpt-4o"))

	value, err := store.Get(ctx, SettingAIModel)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", value)
}

func TestSettingsStore_AIKeyEncryptedAtRest(t *testing.T) {
	crypto.SetEncryptionKey("unit-test-secret-key")
	store, db := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetAIAPIKey(ctx, "sk-verysecret"))

	var raw string
	require.NoError(t, db.QueryRow(`SELECT value FROM global_settings WHERE key = ?`, SettingAIAPIKey).Scan(&raw))
	assert.NotEqual(t, "sk-verysecret", raw)

	plain, err := store.GetAIAPIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-verysecret", plain)
}

func TestSettingsStore_AIKeyUnset(t *testing.T) {
	store, _ := newTestSettingsStore(t)
	plain, err := store.GetAIAPIKey(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plain)
}
