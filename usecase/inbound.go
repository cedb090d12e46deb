package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/multiwa/multiwa/autoreply"
	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/messaging"
	"github.com/multiwa/multiwa/repository"
	"github.com/multiwa/multiwa/session"
)

// AutoReplyPipeline turns inbound chat messages into rule-driven
// replies. It hangs off the session manager's inbound handler.
type AutoReplyPipeline struct {
	rules     *repository.AutoReplyStore
	logs      *repository.MessageLogStore
	manager   *session.Manager
	generator autoreply.ReplyGenerator
}

func NewAutoReplyPipeline(rules *repository.AutoReplyStore, logs *repository.MessageLogStore, manager *session.Manager, generator autoreply.ReplyGenerator) *AutoReplyPipeline {
	return &AutoReplyPipeline{
		rules:     rules,
		logs:      logs,
		manager:   manager,
		generator: generator,
	}
}

// Handle is the session manager's inbound handler. Every inbound
// message is recorded first; rule evaluation only happens after the
// write, and only for messages carrying text.
func (p *AutoReplyPipeline) Handle(ctx context.Context, sessionID string, msg messaging.Incoming) {
	p.recordInbound(ctx, sessionID, msg)

	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	rules, err := p.rules.ListForSession(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).Error("[AUTOREPLY] Failed to load rules")
		return
	}

	match := autoreply.FindMatch(msg.Text, rules)
	if match == nil {
		return
	}
	if !autoreply.SenderAllowed(match.AllowedSenders, msg.Sender) {
		logrus.Debugf("[AUTOREPLY] Sender %s not in allow-list of rule %s", msg.Sender, match.ID)
		return
	}

	vars := autoreply.TemplateVars{
		SenderName:   msg.SenderName,
		SenderNumber: senderNumber(msg.Sender),
		Message:      msg.Text,
		Now:          time.Now(),
	}
	reply := autoreply.RenderReply(ctx, *match, vars, p.generator)
	if strings.TrimSpace(reply) == "" {
		return
	}

	_, err = p.manager.SendMessage(ctx, domainSession.SendMessageRequest{
		SessionID: sessionID,
		Phone:     msg.Sender,
		Message:   reply,
	})
	if err != nil {
		logrus.WithError(err).Warnf("[AUTOREPLY] Failed to send reply for rule %s", match.ID)
		return
	}

	logrus.Infof("[AUTOREPLY] Rule %s replied to %s on session %s", match.ID, msg.Sender, sessionID)
	p.record(sessionID, *match, msg, reply)
}

// recordInbound persists the inbound message itself. A write failure is
// logged and swallowed so it never blocks rule evaluation.
func (p *AutoReplyPipeline) recordInbound(ctx context.Context, sessionID string, msg messaging.Incoming) {
	if p.logs == nil {
		return
	}
	err := p.logs.RecordMessage(ctx, repository.MessageRecord{
		SessionID: sessionID,
		Direction: repository.DirectionInbound,
		Remote:    msg.Sender,
		Body:      msg.Text,
		MessageID: msg.MessageID,
		Success:   true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		logrus.WithError(err).Warn("[AUTOREPLY] Failed to record inbound message")
	}
}

func (p *AutoReplyPipeline) record(sessionID string, rule domainAutoReply.Rule, msg messaging.Incoming, reply string) {
	if p.logs == nil {
		return
	}
	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.logs.RecordAutoReply(logCtx, repository.AutoReplyLog{
		SessionID: sessionID,
		RuleID:    rule.ID,
		Sender:    msg.Sender,
		Trigger:   msg.Text,
		Reply:     reply,
		UsedAI:    rule.UseAI,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		logrus.WithError(err).Warn("[AUTOREPLY] Failed to record reply log")
	}
}

func senderNumber(jid string) string {
	if at := strings.Index(jid, "@"); at >= 0 {
		return jid[:at]
	}
	return jid
}
