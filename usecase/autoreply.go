package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	"github.com/multiwa/multiwa/repository"
	"github.com/multiwa/multiwa/validations"
)

type serviceAutoReply struct {
	store *repository.AutoReplyStore
}

func NewAutoReplyService(store *repository.AutoReplyStore) domainAutoReply.IAutoReplyUsecase {
	return &serviceAutoReply{store: store}
}

func (service serviceAutoReply) Create(ctx context.Context, request domainAutoReply.CreateRequest) (domainAutoReply.Rule, error) {
	if err := validations.ValidateCreateAutoReply(ctx, request); err != nil {
		return domainAutoReply.Rule{}, err
	}

	now := time.Now().UTC()
	rule := domainAutoReply.Rule{
		ID:             uuid.NewString(),
		SessionID:      request.SessionID,
		Keyword:        request.Keyword,
		MatchType:      request.MatchType,
		CaseSensitive:  request.CaseSensitive,
		Response:       request.Response,
		Priority:       request.Priority,
		UseAI:          request.UseAI,
		AIPrompt:       request.AIPrompt,
		AllowedSenders: request.AllowedSenders,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rule.Priority == "" {
		rule.Priority = domainAutoReply.PriorityNormal
	}
	if request.Active != nil {
		rule.Active = *request.Active
	}

	if err := service.store.Create(ctx, rule); err != nil {
		return domainAutoReply.Rule{}, err
	}

	logrus.Infof("[AUTOREPLY] Created rule %s (%s %q)", rule.ID, rule.MatchType, rule.Keyword)
	return rule, nil
}

// List returns every rule, or only the ones visible to a session when a
// session id is given.
func (service serviceAutoReply) List(ctx context.Context, sessionID string) ([]domainAutoReply.Rule, error) {
	if sessionID == "" {
		return service.store.List(ctx)
	}
	return service.store.ListForSession(ctx, sessionID)
}

func (service serviceAutoReply) Update(ctx context.Context, ruleID string, request domainAutoReply.UpdateRequest) (domainAutoReply.Rule, error) {
	if err := validations.ValidateUpdateAutoReply(ctx, request); err != nil {
		return domainAutoReply.Rule{}, err
	}

	rule, err := service.store.Get(ctx, ruleID)
	if err != nil {
		return domainAutoReply.Rule{}, err
	}

	if request.Keyword != "" {
		rule.Keyword = request.Keyword
	}
	if request.MatchType != "" {
		rule.MatchType = request.MatchType
	}
	if request.CaseSensitive != nil {
		rule.CaseSensitive = *request.CaseSensitive
	}
	if request.Response != "" {
		rule.Response = request.Response
	}
	if request.Priority != "" {
		rule.Priority = request.Priority
	}
	if request.UseAI != nil {
		rule.UseAI = *request.UseAI
	}
	if request.AIPrompt != nil {
		rule.AIPrompt = *request.AIPrompt
	}
	if request.AllowedSenders != nil {
		rule.AllowedSenders = *request.AllowedSenders
	}
	if request.Active != nil {
		rule.Active = *request.Active
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := service.store.Update(ctx, rule); err != nil {
		return domainAutoReply.Rule{}, err
	}
	return rule, nil
}

func (service serviceAutoReply) Delete(ctx context.Context, ruleID string) error {
	if err := service.store.Delete(ctx, ruleID); err != nil {
		return err
	}
	logrus.Infof("[AUTOREPLY] Deleted rule %s", ruleID)
	return nil
}
