package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Message directions as stored in message_records.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// MessageRecord is one message crossing a session, in either direction.
// Remote holds the counterparty: the recipient for outbound sends, the
// sender for inbound messages.
type MessageRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index;not null"`
	Direction string `gorm:"index;not null;default:outbound"`
	Remote    string `gorm:"not null"`
	Body      string
	MediaType string
	MessageID string
	Success   bool
	Error     string
	CreatedAt time.Time `gorm:"index"`
}

func (MessageRecord) TableName() string { return "message_records" }

// AutoReplyLog records one matched rule and the reply that went out.
type AutoReplyLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index;not null"`
	RuleID    string `gorm:"index;not null"`
	Sender    string `gorm:"not null"`
	Trigger   string
	Reply     string
	UsedAI    bool
	CreatedAt time.Time `gorm:"index"`
}

func (AutoReplyLog) TableName() string { return "auto_reply_logs" }

// MessageLogStore keeps the delivery history used by the REST API.
type MessageLogStore struct {
	db *gorm.DB
}

func NewMessageLogStore(db *gorm.DB) (*MessageLogStore, error) {
	if err := db.AutoMigrate(&MessageRecord{}, &AutoReplyLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate message logs: %w", err)
	}
	return &MessageLogStore{db: db}, nil
}

func (s *MessageLogStore) RecordMessage(ctx context.Context, record MessageRecord) error {
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *MessageLogStore) RecordAutoReply(ctx context.Context, log AutoReplyLog) error {
	return s.db.WithContext(ctx).Create(&log).Error
}

// RecentMessages returns the newest sends for a session, capped at limit.
func (s *MessageLogStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []MessageRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// RecentAutoReplies returns the newest auto-reply hits for a session.
func (s *MessageLogStore) RecentAutoReplies(ctx context.Context, sessionID string, limit int) ([]AutoReplyLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []AutoReplyLog
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
