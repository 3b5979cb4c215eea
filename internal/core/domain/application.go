package domain

import "time"

// ApplicationStatus is the decision state of a campaign application.
// Transitions are pending -> approved|rejected and terminal once set.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a creator's request to join a campaign. After approval
// the creator submits the tracked post that metrics ingestion follows.
type Application struct {
	ID               string
	CampaignID       string
	CreatorAddress   string
	ProposedContent  string
	Status           ApplicationStatus
	TweetID          string
	TweetURL         string
	TweetSubmittedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Decide moves a pending application to its terminal status. There is no
// undo path: deciding twice fails with ErrAlreadyDecided.
func (a *Application) Decide(status ApplicationStatus, now time.Time) error {
	if status != ApplicationApproved && status != ApplicationRejected {
		return ErrInvalidStatus
	}
	if a.Status != ApplicationPending {
		return ErrAlreadyDecided
	}
	a.Status = status
	a.UpdatedAt = now
	return nil
}

// SubmitTweet records the tracked post reference. Only approved
// applications accept a submission.
func (a *Application) SubmitTweet(tweetID, tweetURL string, now time.Time) error {
	if a.Status != ApplicationApproved {
		return ErrNotApproved
	}
	if tweetID == "" && tweetURL == "" {
		return ErrMissingTweet
	}
	a.TweetID = tweetID
	a.TweetURL = tweetURL
	a.TweetSubmittedAt = &now
	a.UpdatedAt = now
	return nil
}
