package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the persistence boundary of the service. Meetings returned by the
// list operations have creator names and invitations loaded.
type Store interface {
	CreateUser(ctx context.Context, name, passwordHash string) (*User, error)
	UserByName(ctx context.Context, name string) (*User, error)

	CreateMeeting(ctx context.Context, m *Meeting, inviteeIDs []int64) error
	MeetingByID(ctx context.Context, id int64) (*Meeting, error)

	Invitation(ctx context.Context, meetingID, inviteeID int64) (*Invitation, error)
	SetInvitationAnswer(ctx context.Context, meetingID, inviteeID int64, answer bool) error

	// MeetingsForUsers returns the meetings any of the users takes part in
	// (declined invitations excluded) that end after start or repeat.
	MeetingsForUsers(ctx context.Context, userIDs []int64, start int64) ([]Meeting, error)
	// UserMeetingsForRange returns the user's meetings whose first occurrence
	// starts before end and that either end after start or repeat.
	UserMeetingsForRange(ctx context.Context, userID, start, end int64) ([]Meeting, error)

	Close()
}

// Open picks a backend from the URL scheme: postgres:// and postgresql://
// use pgx, sqlite:// and file: use SQLite.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return NewSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func attachInvitations(meetings []Meeting, invs []Invitation) {
	idx := make(map[int64]int, len(meetings))
	for i := range meetings {
		idx[meetings[i].ID] = i
		meetings[i].Invitations = []Invitation{}
	}
	for _, inv := range invs {
		if i, ok := idx[inv.MeetingID]; ok {
			meetings[i].Invitations = append(meetings[i].Invitations, inv)
		}
	}
}
