package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/multiwa/multiwa/campaign"
	"github.com/multiwa/multiwa/core/config"
	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	domainSession "github.com/multiwa/multiwa/domains/session"
	pkgError "github.com/multiwa/multiwa/pkg/error"
	"github.com/multiwa/multiwa/repository"
	"github.com/multiwa/multiwa/session"
	"github.com/multiwa/multiwa/validations"
)

type serviceCampaign struct {
	store   *repository.CampaignStore
	manager *session.Manager
}

func NewCampaignService(store *repository.CampaignStore, manager *session.Manager) domainCampaign.ICampaignUsecase {
	return &serviceCampaign{
		store:   store,
		manager: manager,
	}
}

// Create persists the campaign with its recipient snapshot. When the
// session is already connected the campaign starts right away,
// otherwise it waits in pending until started explicitly.
func (service serviceCampaign) Create(ctx context.Context, request domainCampaign.CreateRequest) (domainCampaign.Campaign, error) {
	if err := validations.ValidateCreateCampaign(ctx, request); err != nil {
		return domainCampaign.Campaign{}, err
	}

	sess, err := service.manager.GetSession(request.SessionID)
	if err != nil {
		return domainCampaign.Campaign{}, err
	}

	status := domainCampaign.StatusPending
	if sess.Status == domainSession.StatusConnected {
		status = domainCampaign.StatusProcessing
	}

	delaySeconds := int(config.Global.Campaign.RecipientDelay / time.Second)
	if request.DelaySeconds != nil {
		delaySeconds = *request.DelaySeconds
	}

	newCampaign := domainCampaign.Campaign{
		ID:           uuid.NewString(),
		SessionID:    request.SessionID,
		Name:         request.Name,
		Template:     request.Template,
		DelaySeconds: delaySeconds,
		Status:       status,
		Total:        len(request.Recipients),
		CreatedAt:    time.Now().UTC(),
	}

	recipients := make([]domainCampaign.Recipient, 0, len(request.Recipients))
	for _, input := range request.Recipients {
		recipients = append(recipients, domainCampaign.Recipient{
			ID:     uuid.NewString(),
			Name:   input.Name,
			Phone:  input.Phone,
			Email:  input.Email,
			Status: domainCampaign.RecipientPending,
		})
	}

	if err := service.store.CreateCampaign(ctx, newCampaign, recipients); err != nil {
		return domainCampaign.Campaign{}, err
	}

	logrus.Infof("[CAMPAIGN] Created campaign %s (%s) with %d recipients, status %s",
		newCampaign.ID, newCampaign.Name, newCampaign.Total, newCampaign.Status)
	return newCampaign, nil
}

func (service serviceCampaign) List(ctx context.Context) ([]domainCampaign.Campaign, error) {
	return service.store.ListCampaigns(ctx)
}

func (service serviceCampaign) Get(ctx context.Context, campaignID string) (domainCampaign.Campaign, []domainCampaign.Recipient, error) {
	found, err := service.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return domainCampaign.Campaign{}, nil, err
	}
	recipients, err := service.store.GetRecipients(ctx, campaignID)
	if err != nil {
		return domainCampaign.Campaign{}, nil, err
	}
	return found, recipients, nil
}

func (service serviceCampaign) Start(ctx context.Context, campaignID string) error {
	return service.apply(ctx, campaignID, campaign.ActionStart)
}

func (service serviceCampaign) Pause(ctx context.Context, campaignID string) error {
	return service.apply(ctx, campaignID, campaign.ActionPause)
}

func (service serviceCampaign) Resume(ctx context.Context, campaignID string) error {
	return service.apply(ctx, campaignID, campaign.ActionResume)
}

func (service serviceCampaign) Stop(ctx context.Context, campaignID string) error {
	return service.apply(ctx, campaignID, campaign.ActionStop)
}

// apply validates the action against the transition table and performs
// a conditional update, so a concurrent status change can never be
// overwritten blindly.
func (service serviceCampaign) apply(ctx context.Context, campaignID string, action campaign.Action) error {
	current, err := service.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	next, err := campaign.NextStatus(current.Status, action)
	if err != nil {
		return err
	}

	changed, err := service.store.TransitionStatus(ctx, campaignID, current.Status, next)
	if err != nil {
		return err
	}
	if !changed {
		return pkgError.BadRequestError(fmt.Sprintf("campaign %s changed concurrently, retry", campaignID))
	}

	logrus.Infof("[CAMPAIGN] Campaign %s: %s -> %s", campaignID, current.Status, next)
	return nil
}
