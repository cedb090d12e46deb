package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
)

func newTestCampaignStore(t *testing.T) *CampaignStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewCampaignStore(db, "sqlite")
	require.NoError(t, err)
	return store
}

func seedCampaign(t *testing.T, store *CampaignStore, id string, recipientCount int) {
	t.Helper()
	recipients := make([]domainCampaign.Recipient, 0, recipientCount)
	for i := 0; i < recipientCount; i++ {
		recipients = append(recipients, domainCampaign.Recipient{
			ID:    id + "-r" + string(rune('1'+i)),
			Name:  "User",
			Phone: "62811" + string(rune('1'+i)),
		})
	}
	err := store.CreateCampaign(context.Background(), domainCampaign.Campaign{
		ID:           id,
		SessionID:    "work",
		Name:         "Promo",
		Template:     "Hi {name}",
		DelaySeconds: 5,
		Status:       domainCampaign.StatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}, recipients)
	require.NoError(t, err)
}

func TestCampaignStore_CreateAndGet(t *testing.T) {
	store := newTestCampaignStore(t)
	seedCampaign(t, store, "c1", 3)

	campaign, err := store.GetCampaign(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Promo", campaign.Name)
	assert.Equal(t, domainCampaign.StatusProcessing, campaign.Status)
	assert.Equal(t, 5, campaign.DelaySeconds)
	assert.Equal(t, 3, campaign.Total)
	assert.Equal(t, 0, campaign.Sent)
	assert.Nil(t, campaign.CompletedAt)

	pending, err := store.PendingRecipients(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestCampaignStore_GetMissing(t *testing.T) {
	store := newTestCampaignStore(t)
	_, err := store.GetCampaign(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCampaignStore_MarkRecipient(t *testing.T) {
	store := newTestCampaignStore(t)
	seedCampaign(t, store, "c1", 2)
	ctx := context.Background()

	pending, err := store.PendingRecipients(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, store.MarkRecipient(ctx, "c1", pending[0].ID, domainCampaign.RecipientSent, ""))
	require.NoError(t, store.MarkRecipient(ctx, "c1", pending[1].ID, domainCampaign.RecipientFailed, "not connected"))

	campaign, err := store.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.Sent)
	assert.Equal(t, 1, campaign.Failed)
	assert.LessOrEqual(t, campaign.Sent+campaign.Failed, campaign.Total)

	remaining, err := store.PendingRecipients(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	all, err := store.GetRecipients(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domainCampaign.RecipientSent, all[0].Status)
	assert.NotNil(t, all[0].SentAt)
	assert.Equal(t, "not connected", all[1].Error)
}

func TestCampaignStore_MarkRecipientTwiceDoesNotDoubleCount(t *testing.T) {
	store := newTestCampaignStore(t)
	seedCampaign(t, store, "c1", 1)
	ctx := context.Background()

	pending, err := store.PendingRecipients(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, store.MarkRecipient(ctx, "c1", pending[0].ID, domainCampaign.RecipientSent, ""))
	require.NoError(t, store.MarkRecipient(ctx, "c1", pending[0].ID, domainCampaign.RecipientFailed, "late error"))

	campaign, err := store.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.Sent)
	assert.Equal(t, 0, campaign.Failed)
}

func TestCampaignStore_TransitionStatus(t *testing.T) {
	store := newTestCampaignStore(t)
	seedCampaign(t, store, "c1", 1)
	ctx := context.Background()

	changed, err := store.TransitionStatus(ctx, "c1", domainCampaign.StatusProcessing, domainCampaign.StatusPaused)
	require.NoError(t, err)
	assert.True(t, changed)

	// Stale expectation loses.
	changed, err = store.TransitionStatus(ctx, "c1", domainCampaign.StatusProcessing, domainCampaign.StatusStopped)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = store.TransitionStatus(ctx, "c1", domainCampaign.StatusPaused, domainCampaign.StatusProcessing)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = store.TransitionStatus(ctx, "c1", domainCampaign.StatusProcessing, domainCampaign.StatusCompleted)
	require.NoError(t, err)
	require.True(t, changed)

	campaign, err := store.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domainCampaign.StatusCompleted, campaign.Status)
	assert.NotNil(t, campaign.CompletedAt)
}

func TestCampaignStore_ListByStatus(t *testing.T) {
	store := newTestCampaignStore(t)
	seedCampaign(t, store, "c1", 1)
	seedCampaign(t, store, "c2", 1)
	ctx := context.Background()

	_, err := store.TransitionStatus(ctx, "c2", domainCampaign.StatusProcessing, domainCampaign.StatusPaused)
	require.NoError(t, err)

	processing, err := store.ListByStatus(ctx, domainCampaign.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "c1", processing[0].ID)

	all, err := store.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?", rebind("sqlite", "SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", rebind("postgres", "SELECT * FROM t WHERE a = ? AND b = ?"))
}
