package app

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"meetings-service/internal/schedule"
	"meetings-service/internal/store"
)

// POST /users
func (a *App) CreateUserHandler(c *gin.Context) {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.PasswordCost)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := a.Store.CreateUser(c.Request.Context(), req.Username.String(), string(hash)); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			respondError(c, &AlreadyExistsError{Message: "user already exists"})
			return
		}
		respondError(c, err)
		return
	}
	ok(c, nil)
}

// POST /meetings
func (a *App) CreateMeetingHandler(c *gin.Context) {
	var req createMeetingReq
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}

	verr := &ValidationError{}
	start, end := parseRange(verr, req.Start.String(), req.End.String())
	if err := verr.OrNil(); err != nil {
		respondError(c, err)
		return
	}

	creatorName := req.CreatorUsername.String()
	if err := actingAs(c, creatorName); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	creator, err := a.userByName(ctx, creatorName)
	if err != nil {
		respondError(c, err)
		return
	}
	invitees, err := a.usersByName(ctx, splitList(req.Invitees.String()))
	if err != nil {
		respondError(c, err)
		return
	}
	inviteeIDs := make([]int64, 0, len(invitees))
	for _, u := range invitees {
		inviteeIDs = append(inviteeIDs, u.ID)
	}

	m := &store.Meeting{
		CreatorID: creator.ID,
		Start:     start,
		End:       end,
		Repeat:    schedule.RepeatNone,
	}
	if req.Description != "" {
		desc := req.Description.String()
		m.Description = &desc
	}
	if req.RepeatType != "" {
		m.Repeat = schedule.RepeatType(req.RepeatType)
	}
	if req.IsPrivate != "" {
		// already checked by the boolean tag
		m.IsPrivate, _ = strconv.ParseBool(req.IsPrivate.String())
	}

	if err := a.Store.CreateMeeting(ctx, m, inviteeIDs); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"meeting_id": m.ID})
}

// GET /meetings/:id
func (a *App) GetMeetingHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, &NotFoundError{Message: "The requested URL was not found on the server."})
		return
	}
	m, err := a.Store.MeetingByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, meetingNotFound(id))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"meeting_description": DescribeMeeting(*m, requester(c))})
}

// POST /invitations
func (a *App) AnswerInvitationHandler(c *gin.Context) {
	var req answerInvitationReq
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	meetingID, err := strconv.ParseInt(req.MeetingID.String(), 10, 64)
	if err != nil {
		verr := &ValidationError{}
		verr.Add("meeting_id", "value is not a valid integer")
		respondError(c, verr)
		return
	}
	answer, _ := strconv.ParseBool(req.Answer.String())

	username := req.Username.String()
	if err := actingAs(c, username); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	invitee, err := a.userByName(ctx, username)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := a.Store.MeetingByID(ctx, meetingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = meetingNotFound(meetingID)
		}
		respondError(c, err)
		return
	}
	if err := a.Store.SetInvitationAnswer(ctx, meetingID, invitee.ID, answer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = &NotFoundError{Message: "User was not invited to this meeting"}
		}
		respondError(c, err)
		return
	}
	ok(c, nil)
}

// bindRange reads the path username and the start/end query into unix seconds.
func bindRange(c *gin.Context) (string, int64, int64, error) {
	verr := &ValidationError{}
	var req rangeReq
	verr.Merge(bind(c, &req))
	username := c.Param("username")
	verr.Merge(validateUsername("username", username))
	if err := verr.OrNil(); err != nil {
		return "", 0, 0, err
	}

	start, end := parseRange(verr, req.Start.String(), req.End.String())
	if err := verr.OrNil(); err != nil {
		return "", 0, 0, err
	}
	return username, start, end, nil
}

// GET /users/:username/meetings?start=DT&end=DT
func (a *App) UserMeetingsForRangeHandler(c *gin.Context) {
	username, start, end, err := bindRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	occurrences, err := a.UserOccurrences(c.Request.Context(), username, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	viewer := requester(c)
	meetings := make([]gin.H, 0, len(occurrences))
	for _, occ := range occurrences {
		m := occ.Meeting
		m.Start, m.End = occ.Start, occ.End
		meetings = append(meetings, DescribeMeeting(m, viewer))
	}
	ok(c, gin.H{"meetings": meetings})
}

// GET /find_free_window_for_users?usernames=a,b&window_size=SECONDS&start=DT
func (a *App) FindFreeWindowHandler(c *gin.Context) {
	var req freeWindowReq
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}

	verr := &ValidationError{}
	windowSize, err := strconv.ParseInt(req.WindowSize.String(), 10, 64)
	switch {
	case err != nil:
		verr.Add("window_size", "value is not a valid integer")
	case windowSize <= 0:
		verr.Add("window_size", "ensure this value is greater than 0")
	}
	startTime, err := parseDateTime(req.Start.String())
	if err != nil {
		verr.Add("start", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		respondError(c, err)
		return
	}

	usernames := splitList(req.Usernames.String())
	start := startTime.Unix()
	window, err := a.FindFreeWindow(c.Request.Context(), usernames, windowSize, start)
	if err != nil {
		respondError(c, err)
		return
	}
	windowStart, found := window.Get()
	if !found {
		a.log(c).Info("no free window within search horizon",
			zap.Strings("usernames", usernames),
			zap.Int64("start", start),
			zap.Int64("window_size", windowSize))
		respondError(c, &NotFoundError{Message: "Impossible to find window for meeting"})
		return
	}
	ok(c, gin.H{"window": Window{
		Start: formatTimestamp(windowStart),
		End:   formatTimestamp(windowStart + windowSize),
	}})
}
