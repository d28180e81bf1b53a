package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"meetings-service/internal/schedule"
	"meetings-service/internal/store"
)

const maxImportedEvents = 250

// GoogleCalendarConfig holds OAuth2 configuration
type GoogleCalendarConfig struct {
	Config *oauth2.Config
	// Endpoint overrides the Calendar API base URL; empty uses Google's.
	Endpoint string
}

// NewGoogleCalendarConfig returns nil unless all three settings are present,
// which leaves the calendar routes disabled.
func NewGoogleCalendarConfig(clientID, clientSecret, redirectURL string) *GoogleCalendarConfig {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &GoogleCalendarConfig{Config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}}
}

func (g *GoogleCalendarConfig) service(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(g.Config.Client(ctx, token))}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

var errCalendarDisabled = &NotFoundError{Message: "Google Calendar not configured"}

// GET /calendar/auth
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Google == nil {
		respondError(c, errCalendarDisabled)
		return
	}

	who := c.Query("username")
	if u := requester(c); u != nil {
		who = u.Name
	}
	state := fmt.Sprintf("user_%s_%d", who, time.Now().Unix())
	ok(c, gin.H{
		"auth_url": a.Google.Config.AuthCodeURL(state, oauth2.AccessTypeOffline),
		"state":    state,
	})
}

// GET /oauth2callback
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Google == nil {
		respondError(c, errCalendarDisabled)
		return
	}
	code := c.Query("code")
	if code == "" {
		verr := &ValidationError{}
		verr.Add("code", "field required")
		respondError(c, verr)
		return
	}

	token, err := a.Google.Config.Exchange(c.Request.Context(), code)
	if err != nil {
		a.log(c).Warn("oauth2 code exchange failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": "error", "error": "failed to exchange code for token"})
		return
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		respondError(c, err)
		return
	}
	// the client passes this back in X-Google-Token when importing
	ok(c, gin.H{
		"state": c.Query("state"),
		"token": string(tokenJSON),
	})
}

// POST /users/:username/calendar/import?calendar_id=primary&time_min=DT&time_max=DT
func (a *App) ImportGoogleCalendarHandler(c *gin.Context) {
	if a.Google == nil {
		respondError(c, errCalendarDisabled)
		return
	}

	username := c.Param("username")
	verr := &ValidationError{}
	verr.Merge(validateUsername("username", username))
	var req importReq
	verr.Merge(bind(c, &req))
	timeMin, timeMax := optionalTime(verr, "time_min", req.TimeMin), optionalTime(verr, "time_max", req.TimeMax)
	tokenStr := c.GetHeader("X-Google-Token")
	if tokenStr == "" {
		verr.Add("X-Google-Token", "field required")
	}
	var token oauth2.Token
	if tokenStr != "" && json.Unmarshal([]byte(tokenStr), &token) != nil {
		verr.Add("X-Google-Token", "invalid token format")
	}
	if err := verr.OrNil(); err != nil {
		respondError(c, err)
		return
	}
	if err := actingAs(c, username); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := a.userByName(ctx, username)
	if err != nil {
		respondError(c, err)
		return
	}

	srv, err := a.Google.service(ctx, &token)
	if err != nil {
		respondError(c, fmt.Errorf("failed to create calendar service: %w", err))
		return
	}
	calendarID := req.CalendarID.String()
	if calendarID == "" {
		calendarID = "primary"
	}
	eventsCall := srv.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxImportedEvents).
		Context(ctx)
	if timeMin != "" {
		eventsCall = eventsCall.TimeMin(timeMin)
	}
	if timeMax != "" {
		eventsCall = eventsCall.TimeMax(timeMax)
	}
	events, err := eventsCall.Do()
	if err != nil {
		a.log(c).Warn("google calendar request failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"status": "error", "error": "failed to retrieve events"})
		return
	}

	ids := make([]int64, 0, len(events.Items))
	for _, item := range events.Items {
		m, imported := meetingFromEvent(item, user.ID)
		if !imported {
			continue
		}
		if err := a.Store.CreateMeeting(ctx, m, nil); err != nil {
			respondError(c, err)
			return
		}
		ids = append(ids, m.ID)
	}
	a.Metrics.importedEvents.Add(float64(len(ids)))
	ok(c, gin.H{"imported": len(ids), "meeting_ids": ids})
}

func optionalTime(verr *ValidationError, field string, value param) string {
	if value == "" {
		return ""
	}
	t, err := parseDateTime(value.String())
	if err != nil {
		verr.Add(field, err.Error())
		return ""
	}
	return t.Format(time.RFC3339)
}

// meetingFromEvent converts a Google event to a one-off meeting. Cancelled
// and malformed events are skipped.
func meetingFromEvent(item *calendar.Event, creatorID int64) (*store.Meeting, bool) {
	if item.Status == "cancelled" || item.Start == nil || item.End == nil {
		return nil, false
	}
	start, ok1 := eventTime(item.Start)
	end, ok2 := eventTime(item.End)
	if !ok1 || !ok2 || end.Before(start) {
		return nil, false
	}

	m := &store.Meeting{
		CreatorID: creatorID,
		Start:     start.Unix(),
		End:       end.Unix(),
		Repeat:    schedule.RepeatNone,
		IsPrivate: item.Visibility == "private" || item.Visibility == "confidential",
	}
	if item.Summary != "" {
		desc := []rune(item.Summary)
		if len(desc) > 200 {
			desc = desc[:200]
		}
		s := string(desc)
		m.Description = &s
	}
	return m, true
}

func eventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t.UTC(), err == nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, time.UTC)
		return t, err == nil
	}
	return time.Time{}, false
}
