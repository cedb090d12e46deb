package usecase

import (
	"context"

	"github.com/multiwa/multiwa/campaign"
	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/session"
)

type managerSender struct {
	manager *session.Manager
}

// NewCampaignSender adapts the session manager to the campaign
// scheduler's sender port.
func NewCampaignSender(manager *session.Manager) campaign.Sender {
	return managerSender{manager: manager}
}

func (s managerSender) SendText(ctx context.Context, sessionID, phone, message string) error {
	_, err := s.manager.SendMessage(ctx, domainSession.SendMessageRequest{
		SessionID: sessionID,
		Phone:     phone,
		Message:   message,
	})
	return err
}
