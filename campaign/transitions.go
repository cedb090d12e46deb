package campaign

import (
	"fmt"

	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

// Action is a control operation applied to a campaign.
type Action string

const (
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionStop     Action = "stop"
	ActionComplete Action = "complete"
	ActionFail     Action = "fail"
)

// transitions is the full table of permitted status changes. Completed,
// stopped and failed-without-retry are terminal for control actions;
// complete and fail are scheduler-internal and only leave processing.
var transitions = map[domainCampaign.Status]map[Action]domainCampaign.Status{
	domainCampaign.StatusDraft: {
		ActionStart: domainCampaign.StatusProcessing,
	},
	domainCampaign.StatusPending: {
		ActionStart: domainCampaign.StatusProcessing,
	},
	domainCampaign.StatusProcessing: {
		ActionPause:    domainCampaign.StatusPaused,
		ActionStop:     domainCampaign.StatusStopped,
		ActionComplete: domainCampaign.StatusCompleted,
		ActionFail:     domainCampaign.StatusFailed,
	},
	domainCampaign.StatusPaused: {
		ActionResume: domainCampaign.StatusProcessing,
		ActionStop:   domainCampaign.StatusStopped,
	},
	domainCampaign.StatusFailed: {
		ActionStart: domainCampaign.StatusProcessing,
	},
}

// NextStatus validates an action against the transition table and
// returns the resulting status. Any pair not in the table is rejected
// before any state is touched.
func NextStatus(from domainCampaign.Status, action Action) (domainCampaign.Status, error) {
	if actions, ok := transitions[from]; ok {
		if to, ok := actions[action]; ok {
			return to, nil
		}
	}
	return "", pkgError.BadRequestError(fmt.Sprintf("cannot %s campaign in status %s", action, from))
}
