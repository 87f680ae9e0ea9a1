package models

import "time"

type InvitationStatus string

const (
	InvitationActive    InvitationStatus = "Active"
	InvitationCompleted InvitationStatus = "Completed"
	InvitationExpired   InvitationStatus = "Expired"
)

// Invitation is a single-use test invite. Read-only to the test taker;
// it transitions to Completed when the session submits.
type Invitation struct {
	ID          string           `bson:"_id,omitempty" json:"_id"`
	Email       string           `bson:"email" json:"email"`
	TestID      string           `bson:"testId" json:"testId"`
	TestName    string           `bson:"testName" json:"testName"`
	CompanyName string           `bson:"companyName" json:"companyName"`
	Token       string           `bson:"token" json:"token"`
	Status      InvitationStatus `bson:"status" json:"status"`
	ExpiresAt   time.Time        `bson:"expiresAt" json:"expiresAt"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
}

func (i *Invitation) ExpiredAt(now time.Time) bool {
	if i.Status == InvitationExpired {
		return true
	}
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
