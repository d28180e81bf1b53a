package store

import (
	"time"

	"meetings-service/internal/schedule"
)

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"username"`
	PasswordHash string `json:"-"`
}

type Invitation struct {
	MeetingID   int64  `json:"meeting_id"`
	InviteeID   int64  `json:"invitee_id"`
	InviteeName string `json:"username"`
	// Answer is nil until the invitee responds.
	Answer *bool `json:"accepted_invitation"`
}

// Meeting stores the first occurrence only; later ones are derived by the
// schedule package from Repeat.
type Meeting struct {
	ID          int64               `json:"id"`
	CreatorID   int64               `json:"creator_id"`
	CreatorName string              `json:"creator"`
	Start       int64               `json:"start"`
	End         int64               `json:"end"`
	Description *string             `json:"description"`
	IsPrivate   bool                `json:"is_private"`
	Repeat      schedule.RepeatType `json:"repeat_type"`
	Invitations []Invitation        `json:"invitations"`
}

func (m Meeting) Span() (int64, int64) {
	return m.Start, m.End
}

func (m Meeting) Repetition() schedule.RepeatType {
	if m.Repeat == "" {
		return schedule.RepeatNone
	}
	return m.Repeat
}

func (m Meeting) StartTime() time.Time { return time.Unix(m.Start, 0).UTC() }
func (m Meeting) EndTime() time.Time   { return time.Unix(m.End, 0).UTC() }

// HasParticipant reports whether the user created the meeting or was invited to it.
func (m Meeting) HasParticipant(userID int64) bool {
	if m.CreatorID == userID {
		return true
	}
	for _, inv := range m.Invitations {
		if inv.InviteeID == userID {
			return true
		}
	}
	return false
}
