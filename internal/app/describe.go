package app

import (
	"github.com/gin-gonic/gin"

	"meetings-service/internal/store"
)

// DescribeMeeting renders a meeting for API responses. Private meetings are
// reduced to their id and times unless the viewer takes part in them.
func DescribeMeeting(m store.Meeting, viewer *store.User) gin.H {
	desc := gin.H{
		"id":             m.ID,
		"start_datetime": formatTimestamp(m.Start),
		"end_datetime":   formatTimestamp(m.End),
	}
	if m.IsPrivate && (viewer == nil || !m.HasParticipant(viewer.ID)) {
		return desc
	}

	invitees := make([]gin.H, 0, len(m.Invitations))
	for _, inv := range m.Invitations {
		invitees = append(invitees, gin.H{
			"username":            inv.InviteeName,
			"accepted_invitation": inv.Answer,
		})
	}
	desc["creator"] = m.CreatorName
	desc["description"] = m.Description
	desc["repeat_type"] = m.Repetition()
	desc["is_private"] = m.IsPrivate
	desc["invitees"] = invitees
	return desc
}
