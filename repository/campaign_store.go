package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

// CampaignStore persists campaigns and their recipients with raw SQL so
// counter updates and recipient state changes stay in one transaction.
type CampaignStore struct {
	db     *sql.DB
	driver string
}

func NewCampaignStore(db *sql.DB, driver string) (*CampaignStore, error) {
	store := &CampaignStore{db: db, driver: driver}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init campaign schema: %w", err)
	}
	return store, nil
}

func (s *CampaignStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			template TEXT NOT NULL,
			delay_seconds INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			sent INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS campaign_recipients (
			id TEXT PRIMARY KEY,
			campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			sent_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaign_recipients_campaign
			ON campaign_recipients (campaign_id, status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateCampaign inserts the campaign and its recipient snapshot in one
// transaction. Total is fixed at creation time.
func (s *CampaignStore) CreateCampaign(ctx context.Context, campaign domainCampaign.Campaign, recipients []domainCampaign.Recipient) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, rebind(s.driver,
		`INSERT INTO campaigns (id, session_id, name, template, delay_seconds, status, total, sent, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`),
		campaign.ID, campaign.SessionID, campaign.Name, campaign.Template, campaign.DelaySeconds,
		string(campaign.Status), len(recipients), campaign.CreatedAt)
	if err != nil {
		return err
	}

	for _, recipient := range recipients {
		_, err = tx.ExecContext(ctx, rebind(s.driver,
			`INSERT INTO campaign_recipients (id, campaign_id, name, phone, email, status)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			recipient.ID, campaign.ID, recipient.Name, recipient.Phone, recipient.Email,
			string(domainCampaign.RecipientPending))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *CampaignStore) ListCampaigns(ctx context.Context) ([]domainCampaign.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver,
		`SELECT id, session_id, name, template, delay_seconds, status, total, sent, failed, created_at, completed_at
		 FROM campaigns ORDER BY created_at DESC`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (s *CampaignStore) ListByStatus(ctx context.Context, status domainCampaign.Status) ([]domainCampaign.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver,
		`SELECT id, session_id, name, template, delay_seconds, status, total, sent, failed, created_at, completed_at
		 FROM campaigns WHERE status = ? ORDER BY created_at`), string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (s *CampaignStore) GetCampaign(ctx context.Context, campaignID string) (domainCampaign.Campaign, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.driver,
		`SELECT id, session_id, name, template, delay_seconds, status, total, sent, failed, created_at, completed_at
		 FROM campaigns WHERE id = ?`), campaignID)

	campaign, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return domainCampaign.Campaign{}, pkgError.NotFoundError(fmt.Sprintf("campaign %s not found", campaignID))
	}
	return campaign, err
}

func (s *CampaignStore) GetRecipients(ctx context.Context, campaignID string) ([]domainCampaign.Recipient, error) {
	return s.queryRecipients(ctx,
		`SELECT id, campaign_id, name, phone, email, status, error, sent_at
		 FROM campaign_recipients WHERE campaign_id = ? ORDER BY rowid`, campaignID)
}

func (s *CampaignStore) PendingRecipients(ctx context.Context, campaignID string) ([]domainCampaign.Recipient, error) {
	return s.queryRecipients(ctx,
		`SELECT id, campaign_id, name, phone, email, status, error, sent_at
		 FROM campaign_recipients WHERE campaign_id = ? AND status = 'pending' ORDER BY rowid`, campaignID)
}

func (s *CampaignStore) queryRecipients(ctx context.Context, query string, campaignID string) ([]domainCampaign.Recipient, error) {
	if s.driver == "postgres" {
		// rowid is a sqlite-ism; postgres rows keep insertion order via id.
		query = replaceRowidOrder(query)
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.driver, query), campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domainCampaign.Recipient
	for rows.Next() {
		var r domainCampaign.Recipient
		var sentAt sql.NullTime
		var status string
		if err := rows.Scan(&r.ID, &r.CampaignID, &r.Name, &r.Phone, &r.Email, &status, &r.Error, &sentAt); err != nil {
			return nil, err
		}
		r.Status = domainCampaign.RecipientStatus(status)
		if sentAt.Valid {
			t := sentAt.Time
			r.SentAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkRecipient flips one pending recipient to sent or failed and bumps
// the matching campaign counter, all in one transaction. A recipient
// that is no longer pending is left untouched so sent+failed can never
// exceed total.
func (s *CampaignStore) MarkRecipient(ctx context.Context, campaignID, recipientID string, status domainCampaign.RecipientStatus, sendErr string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, rebind(s.driver,
		`UPDATE campaign_recipients SET status = ?, error = ?, sent_at = ?
		 WHERE id = ? AND campaign_id = ? AND status = 'pending'`),
		string(status), sendErr, time.Now().UTC(), recipientID, campaignID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		logrus.Warnf("[CAMPAIGN] Recipient %s of campaign %s already resolved, skipping", recipientID, campaignID)
		return tx.Commit()
	}

	counter := "sent"
	if status == domainCampaign.RecipientFailed {
		counter = "failed"
	}
	_, err = tx.ExecContext(ctx, rebind(s.driver,
		fmt.Sprintf(`UPDATE campaigns SET %s = %s + 1 WHERE id = ? AND sent + failed < total`, counter, counter)),
		campaignID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// TransitionStatus updates the status only when the row still holds the
// expected current status and reports whether anything changed.
func (s *CampaignStore) TransitionStatus(ctx context.Context, campaignID string, from, to domainCampaign.Status) (bool, error) {
	var result sql.Result
	var err error

	if to == domainCampaign.StatusCompleted {
		result, err = s.db.ExecContext(ctx, rebind(s.driver,
			`UPDATE campaigns SET status = ?, completed_at = ? WHERE id = ? AND status = ?`),
			string(to), time.Now().UTC(), campaignID, string(from))
	} else {
		result, err = s.db.ExecContext(ctx, rebind(s.driver,
			`UPDATE campaigns SET status = ? WHERE id = ? AND status = ?`),
			string(to), campaignID, string(from))
	}
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanCampaigns(rows *sql.Rows) ([]domainCampaign.Campaign, error) {
	var out []domainCampaign.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, campaign)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (domainCampaign.Campaign, error) {
	var c domainCampaign.Campaign
	var status string
	var completedAt sql.NullTime
	err := row.Scan(&c.ID, &c.SessionID, &c.Name, &c.Template, &c.DelaySeconds, &status,
		&c.Total, &c.Sent, &c.Failed, &c.CreatedAt, &completedAt)
	if err != nil {
		return domainCampaign.Campaign{}, err
	}
	c.Status = domainCampaign.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return c, nil
}

func replaceRowidOrder(query string) string {
	const suffix = "ORDER BY rowid"
	if idx := len(query) - len(suffix); idx >= 0 && query[idx:] == suffix {
		return query[:idx] + "ORDER BY id"
	}
	return query
}
