package app

import (
	"context"
	"errors"

	"github.com/samber/mo"

	"meetings-service/internal/schedule"
	"meetings-service/internal/store"
)

func (a *App) userByName(ctx context.Context, name string) (*store.User, error) {
	u, err := a.Store.UserByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, userNotFound(name)
	}
	return u, err
}

func (a *App) usersByName(ctx context.Context, names []string) ([]*store.User, error) {
	users := make([]*store.User, 0, len(names))
	for _, name := range names {
		u, err := a.userByName(ctx, name)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// FindFreeWindow returns the start of the earliest gap of windowSize seconds,
// at or after start, in which none of the named users is busy.
func (a *App) FindFreeWindow(ctx context.Context, usernames []string, windowSize, start int64) (mo.Option[int64], error) {
	users, err := a.usersByName(ctx, usernames)
	if err != nil {
		return mo.None[int64](), err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	meetings, err := a.Store.MeetingsForUsers(ctx, ids, start)
	if err != nil {
		return mo.None[int64](), err
	}

	var opts []schedule.SearchOption
	if a.SearchHorizon > 0 {
		opts = append(opts, schedule.WithHorizon(a.SearchHorizon))
	}
	window := schedule.FindFirstFreeWindow(meetings, windowSize, start, opts...)
	a.Metrics.windowSearch(window.IsPresent())
	return window, nil
}

// UserOccurrences expands the user's meetings into the occurrences that
// overlap (start, end), in chronological order.
func (a *App) UserOccurrences(ctx context.Context, username string, start, end int64) ([]schedule.Occurrence[store.Meeting], error) {
	user, err := a.userByName(ctx, username)
	if err != nil {
		return nil, err
	}
	meetings, err := a.Store.UserMeetingsForRange(ctx, user.ID, start, end)
	if err != nil {
		return nil, err
	}
	occurrences := schedule.OccurrencesInRange(meetings, start, end)
	a.Metrics.rangeOccurrences.Observe(float64(len(occurrences)))
	return occurrences, nil
}

// userMeetings returns the stored meetings behind the occurrences, once each.
func userMeetings(occurrences []schedule.Occurrence[store.Meeting]) []store.Meeting {
	seen := make(map[int64]struct{}, len(occurrences))
	var out []store.Meeting
	for _, occ := range occurrences {
		if _, ok := seen[occ.Meeting.ID]; ok {
			continue
		}
		seen[occ.Meeting.ID] = struct{}{}
		out = append(out, occ.Meeting)
	}
	return out
}
