package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

// ruleRecord is the persisted shape of an auto-reply rule.
type ruleRecord struct {
	ID             string `gorm:"primaryKey"`
	SessionID      string `gorm:"index"`
	Keyword        string `gorm:"not null"`
	MatchType      string `gorm:"not null"`
	CaseSensitive  bool
	Response       string
	Priority       string `gorm:"not null;default:normal"`
	UseAI          bool
	AIPrompt       string
	AllowedSenders string
	Active         bool `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ruleRecord) TableName() string { return "auto_reply_rules" }

// AutoReplyStore persists auto-reply rules through GORM.
type AutoReplyStore struct {
	db *gorm.DB
}

func NewAutoReplyStore(db *gorm.DB) (*AutoReplyStore, error) {
	if err := db.AutoMigrate(&ruleRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate auto reply rules: %w", err)
	}
	return &AutoReplyStore{db: db}, nil
}

func (s *AutoReplyStore) Create(ctx context.Context, rule domainAutoReply.Rule) error {
	record := toRuleRecord(rule)
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *AutoReplyStore) Get(ctx context.Context, ruleID string) (domainAutoReply.Rule, error) {
	var record ruleRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", ruleID).Error
	if err == gorm.ErrRecordNotFound {
		return domainAutoReply.Rule{}, pkgError.NotFoundError(fmt.Sprintf("auto reply rule %s not found", ruleID))
	}
	if err != nil {
		return domainAutoReply.Rule{}, err
	}
	return toRule(record), nil
}

func (s *AutoReplyStore) List(ctx context.Context) ([]domainAutoReply.Rule, error) {
	var records []ruleRecord
	if err := s.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return toRules(records), nil
}

// ListForSession returns the rules visible to a session: its own plus
// the global ones (empty session id).
func (s *AutoReplyStore) ListForSession(ctx context.Context, sessionID string) ([]domainAutoReply.Rule, error) {
	var records []ruleRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? OR session_id = ''", sessionID).
		Order("created_at").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return toRules(records), nil
}

func (s *AutoReplyStore) Update(ctx context.Context, rule domainAutoReply.Rule) error {
	record := toRuleRecord(rule)
	result := s.db.WithContext(ctx).
		Model(&ruleRecord{}).
		Where("id = ?", rule.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.NotFoundError(fmt.Sprintf("auto reply rule %s not found", rule.ID))
	}
	return nil
}

func (s *AutoReplyStore) Delete(ctx context.Context, ruleID string) error {
	result := s.db.WithContext(ctx).Delete(&ruleRecord{}, "id = ?", ruleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.NotFoundError(fmt.Sprintf("auto reply rule %s not found", ruleID))
	}
	return nil
}

func toRuleRecord(rule domainAutoReply.Rule) ruleRecord {
	return ruleRecord{
		ID:             rule.ID,
		SessionID:      rule.SessionID,
		Keyword:        rule.Keyword,
		MatchType:      string(rule.MatchType),
		CaseSensitive:  rule.CaseSensitive,
		Response:       rule.Response,
		Priority:       string(rule.Priority),
		UseAI:          rule.UseAI,
		AIPrompt:       rule.AIPrompt,
		AllowedSenders: rule.AllowedSenders,
		Active:         rule.Active,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}

func toRule(record ruleRecord) domainAutoReply.Rule {
	return domainAutoReply.Rule{
		ID:             record.ID,
		SessionID:      record.SessionID,
		Keyword:        record.Keyword,
		MatchType:      domainAutoReply.MatchType(record.MatchType),
		CaseSensitive:  record.CaseSensitive,
		Response:       record.Response,
		Priority:       domainAutoReply.Priority(record.Priority),
		UseAI:          record.UseAI,
		AIPrompt:       record.AIPrompt,
		AllowedSenders: record.AllowedSenders,
		Active:         record.Active,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func toRules(records []ruleRecord) []domainAutoReply.Rule {
	rules := make([]domainAutoReply.Rule, 0, len(records))
	for _, record := range records {
		rules = append(rules, toRule(record))
	}
	return rules
}
