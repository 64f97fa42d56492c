package domain

import "fmt"

type LifecycleAction string

const (
	ActionSubmit   LifecycleAction = "submit"
	ActionLaunch   LifecycleAction = "launch"
	ActionReject   LifecycleAction = "reject"
	ActionPause    LifecycleAction = "pause"
	ActionResume   LifecycleAction = "resume"
	ActionComplete LifecycleAction = "complete"
	ActionArchive  LifecycleAction = "archive"
)

type transition struct {
	from []CampaignStatus
	to   CampaignStatus
}

var transitions = map[LifecycleAction]transition{
	ActionSubmit:   {from: []CampaignStatus{CampaignStatusDraft}, to: CampaignStatusPendingApproval},
	ActionLaunch:   {from: []CampaignStatus{CampaignStatusPendingApproval}, to: CampaignStatusActive},
	ActionReject:   {from: []CampaignStatus{CampaignStatusPendingApproval}, to: CampaignStatusRejected},
	ActionPause:    {from: []CampaignStatus{CampaignStatusActive}, to: CampaignStatusPaused},
	ActionResume:   {from: []CampaignStatus{CampaignStatusPaused}, to: CampaignStatusActive},
	ActionComplete: {from: []CampaignStatus{CampaignStatusActive, CampaignStatusPaused}, to: CampaignStatusCompleted},
	ActionArchive: {
		from: []CampaignStatus{CampaignStatusDraft, CampaignStatusPaused, CampaignStatusRejected, CampaignStatusCompleted},
		to:   CampaignStatusArchived,
	},
}

// NextStatus returns the status reached by applying action to from.
func NextStatus(action LifecycleAction, from CampaignStatus) (CampaignStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a %s campaign", ErrIllegalTransition, action, from)
}

// Settles reports whether reaching status releases the unspent budget.
func (a LifecycleAction) Settles() bool {
	return a == ActionComplete || a == ActionArchive
}
