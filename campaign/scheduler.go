package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/multiwa/multiwa/core/config"
	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	"github.com/multiwa/multiwa/pkg/jobpool"
)

// Store is the persistence surface the scheduler needs. MarkRecipient
// must update the recipient row and the campaign counters in one
// transaction; TransitionStatus must be conditional on the expected
// current status and report whether the row changed.
type Store interface {
	ListByStatus(ctx context.Context, status domainCampaign.Status) ([]domainCampaign.Campaign, error)
	GetCampaign(ctx context.Context, campaignID string) (domainCampaign.Campaign, error)
	PendingRecipients(ctx context.Context, campaignID string) ([]domainCampaign.Recipient, error)
	MarkRecipient(ctx context.Context, campaignID, recipientID string, status domainCampaign.RecipientStatus, sendErr string) error
	TransitionStatus(ctx context.Context, campaignID string, from, to domainCampaign.Status) (bool, error)
}

// Sender delivers one campaign message through a connected session.
type Sender interface {
	SendText(ctx context.Context, sessionID, phone, message string) error
}

// Scheduler sweeps processing campaigns on a fixed interval and
// advances each one on a worker pool sharded by campaign id, so a
// single campaign is never advanced by two sweeps at once.
type Scheduler struct {
	cfg    config.CampaignConfig
	store  Store
	sender Sender
	pool   *jobpool.Pool

	mu       sync.Mutex
	inflight map[string]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	done     sync.WaitGroup
}

func NewScheduler(cfg config.CampaignConfig, store Store, sender Sender) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		sender:   sender,
		pool:     jobpool.NewPool(4, 50),
		inflight: make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the worker pool and the sweep loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.pool.Start(ctx)

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		logrus.Infof("[CAMPAIGN] Scheduler started, sweep interval %s", s.cfg.SweepInterval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweep loop and waits for in-flight advances.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.done.Wait()
		s.pool.Stop()
		logrus.Info("[CAMPAIGN] Scheduler stopped")
	})
}

// Sweep lists processing campaigns and dispatches an advance for each
// one not already being advanced.
func (s *Scheduler) Sweep(ctx context.Context) {
	campaigns, err := s.store.ListByStatus(ctx, domainCampaign.StatusProcessing)
	if err != nil {
		logrus.WithError(err).Error("[CAMPAIGN] Sweep failed to list campaigns")
		return
	}

	for _, c := range campaigns {
		campaignID := c.ID
		if !s.acquire(campaignID) {
			continue
		}

		accepted := s.pool.TryDispatch(jobpool.Job{
			Key: campaignID,
			Handler: func(jobCtx context.Context) error {
				defer s.release(campaignID)
				if err := s.advance(jobCtx, campaignID); err != nil {
					s.failCampaign(campaignID, err)
					return err
				}
				return nil
			},
		})
		if !accepted {
			s.release(campaignID)
		}
	}
}

// acquire marks a campaign as being advanced. Check and insert happen
// under one lock so two sweeps cannot both win.
func (s *Scheduler) acquire(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.inflight[campaignID]; exists {
		return false
	}
	s.inflight[campaignID] = struct{}{}
	return true
}

func (s *Scheduler) release(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, campaignID)
}

// advance sends to the campaign's pending recipients one at a time,
// re-reading the campaign status before every send so pause and stop
// take effect within one delay interval.
func (s *Scheduler) advance(ctx context.Context, campaignID string) error {
	defer func() {
		if r := recover(); r != nil {
			s.failCampaign(campaignID, fmt.Errorf("panic: %v", r))
		}
	}()

	recipients, err := s.store.PendingRecipients(ctx, campaignID)
	if err != nil {
		return err
	}

	for _, recipient := range recipients {
		current, err := s.store.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if current.Status != domainCampaign.StatusProcessing {
			logrus.Infof("[CAMPAIGN] Campaign %s is %s, leaving remaining recipients pending", campaignID, current.Status)
			return nil
		}

		message := RenderMessage(current.Template, recipient)
		sendErr := s.sender.SendText(ctx, current.SessionID, recipient.Phone, message)
		if sendErr != nil {
			logrus.WithError(sendErr).Warnf("[CAMPAIGN] Send to %s failed for campaign %s", recipient.Phone, campaignID)
			if err := s.store.MarkRecipient(ctx, campaignID, recipient.ID, domainCampaign.RecipientFailed, sendErr.Error()); err != nil {
				return err
			}
		} else {
			if err := s.store.MarkRecipient(ctx, campaignID, recipient.ID, domainCampaign.RecipientSent, ""); err != nil {
				return err
			}
		}

		if delay := time.Duration(current.DelaySeconds) * time.Second; delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stopCh:
				return nil
			case <-time.After(delay):
			}
		}
	}

	return s.finishIfDone(ctx, campaignID)
}

// failCampaign converts an advancement error into a failed campaign so
// the sweep stops retrying it until a manual restart. Context
// cancellation is shutdown, not a campaign failure.
func (s *Scheduler) failCampaign(campaignID string, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return
	}
	logrus.WithError(cause).Errorf("[CAMPAIGN] Advancing campaign %s failed", campaignID)
	if _, err := s.store.TransitionStatus(context.Background(), campaignID,
		domainCampaign.StatusProcessing, domainCampaign.StatusFailed); err != nil {
		logrus.WithError(err).Errorf("[CAMPAIGN] Failed to mark campaign %s as failed", campaignID)
	}
}

// finishIfDone completes a processing campaign once no pending
// recipients remain. The status is re-checked so a stop that landed
// during the last delay wins over completion.
func (s *Scheduler) finishIfDone(ctx context.Context, campaignID string) error {
	remaining, err := s.store.PendingRecipients(ctx, campaignID)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}

	changed, err := s.store.TransitionStatus(ctx, campaignID,
		domainCampaign.StatusProcessing, domainCampaign.StatusCompleted)
	if err != nil {
		return err
	}
	if changed {
		logrus.Infof("[CAMPAIGN] Campaign %s completed", campaignID)
	}
	return nil
}

// RenderMessage substitutes recipient placeholders in a single pass,
// so substituted values are never re-expanded.
func RenderMessage(template string, recipient domainCampaign.Recipient) string {
	replacer := strings.NewReplacer(
		"{name}", recipient.Name,
		"{phone}", recipient.Phone,
		"{email}", recipient.Email,
	)
	return replacer.Replace(template)
}
