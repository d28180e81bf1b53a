package app

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetings-service/internal/schedule"
	"meetings-service/internal/store"
)

func rangeFixture(t *testing.T) *testEnv {
	e := newTestEnv(t)
	user1 := e.user(t, "user1", "")
	user2 := e.user(t, "user2", "")
	user3 := e.user(t, "user3", "")

	e.meeting(t, user1, "2022-06-22T15:00+00:00", "2022-06-22T16:00+00:00", meetingOpts{invitees: []*store.User{user2, user3}})
	e.meeting(t, user2, "2022-06-22T17:00+00:00", "2022-06-22T18:00+00:00", meetingOpts{invitees: []*store.User{user1}, private: true})
	e.meeting(t, user3, "2022-06-22T19:00+00:00", "2022-06-22T20:00+00:00", meetingOpts{invitees: []*store.User{user2}})
	return e
}

var rangeQuery = url.Values{"start": {"2022-06-22T14:00+00:00"}, "end": {"2022-06-22T22:00+00:00"}}

const (
	firstMeetingJSON = `{"id":1,"creator":"user1","description":null,
		"start_datetime":"2022-06-22T15:00:00+00:00","end_datetime":"2022-06-22T16:00:00+00:00",
		"repeat_type":"none","is_private":false,
		"invitees":[{"username":"user2","accepted_invitation":null},{"username":"user3","accepted_invitation":null}]}`
	privateFullJSON = `{"id":2,"creator":"user2","description":null,
		"start_datetime":"2022-06-22T17:00:00+00:00","end_datetime":"2022-06-22T18:00:00+00:00",
		"repeat_type":"none","is_private":true,
		"invitees":[{"username":"user1","accepted_invitation":null}]}`
	privateHiddenJSON = `{"id":2,"start_datetime":"2022-06-22T17:00:00+00:00","end_datetime":"2022-06-22T18:00:00+00:00"}`
)

func TestUserMeetingsForRange(t *testing.T) {
	e := rangeFixture(t)

	tests := []struct {
		name string
		opts []reqOpt
		want string
	}{
		{"participant", []reqOpt{basicAuth("user1", "")}, `[` + firstMeetingJSON + `,` + privateFullJSON + `]`},
		{"anonymous", nil, `[` + firstMeetingJSON + `,` + privateHiddenJSON + `]`},
		{"not a participant", []reqOpt{basicAuth("user3", "")}, `[` + firstMeetingJSON + `,` + privateHiddenJSON + `]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.get("/users/user1/meetings", rangeQuery, tt.opts...)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"ok","meetings":`+tt.want+`}`, rec.Body.String())
		})
	}
}

func TestUserMeetingsForRangeRepeating(t *testing.T) {
	e := newTestEnv(t)
	u := e.user(t, "daily_user", "")
	e.meeting(t, u, "2022-06-20T09:00+00:00", "2022-06-20T10:00+00:00", meetingOpts{repeat: schedule.RepeatDaily})

	rec := e.get("/users/daily_user/meetings", url.Values{
		"start": {"2022-06-21T00:00"},
		"end":   {"2022-06-24T00:00"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	meetings := decode(t, rec)["meetings"].([]any)
	require.Len(t, meetings, 3)
	for i, day := range []string{"21", "22", "23"} {
		m := meetings[i].(map[string]any)
		assert.Equal(t, float64(1), m["id"])
		assert.Equal(t, "2022-06-"+day+"T09:00:00+00:00", m["start_datetime"])
		assert.Equal(t, "2022-06-"+day+"T10:00:00+00:00", m["end_datetime"])
	}
}

func TestUserMeetingsForRangeErrors(t *testing.T) {
	e := rangeFixture(t)

	rec := e.get("/users/nobody/meetings", rangeQuery)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"User \"nobody\" does not exist"}`, rec.Body.String())

	rec = e.get("/users/a/meetings", url.Values{"foo": {"bar"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":{
		"username":["ensure this value has at least 2 characters"],
		"start":["field required"],"end":["field required"]}}`, rec.Body.String())

	rec = e.get("/users/user1/meetings", url.Values{"start": {"2022-06-22T14:00"}, "end": {"2022-06-22T13:00"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":{"__root__":["end should not be earlier than start"]}}`, rec.Body.String())
}

func freeWindowFixture(t *testing.T) *testEnv {
	e := newTestEnv(t)
	creator1 := e.user(t, "creator1", "")
	creator2 := e.user(t, "creator2", "")
	creator3 := e.user(t, "creator3", "")

	e.meeting(t, creator1, "2022-06-22T12:00+00:00", "2022-06-22T13:00+00:00", meetingOpts{})
	e.meeting(t, creator1, "2022-06-22T12:00+00:00", "2022-06-22T15:00+00:00", meetingOpts{})
	e.meeting(t, creator2, "2022-06-22T15:30+00:00", "2022-06-22T17:00+00:00", meetingOpts{})
	e.meeting(t, creator2, "2022-06-22T18:00+00:00", "2022-06-22T19:00+00:00", meetingOpts{})
	e.meeting(t, creator3, "2022-06-22T00:00+00:00", "2022-06-22T23:30+00:00", meetingOpts{repeat: schedule.RepeatDaily})
	return e
}

func TestFindFreeWindow(t *testing.T) {
	e := freeWindowFixture(t)

	tests := []struct {
		name       string
		usernames  string
		windowSize string
		start      string
		want       string
	}{
		{"before all meetings", "creator2", "3600", "2022-06-22T11:00+00:00",
			`{"start":"2022-06-22T11:00:00+00:00","end":"2022-06-22T12:00:00+00:00"}`},
		{"after all meetings", "creator1", "7200", "2022-06-22T11:00+00:00",
			`{"start":"2022-06-22T15:00:00+00:00","end":"2022-06-22T17:00:00+00:00"}`},
		{"between meetings", "creator1,creator2", "3600", "2022-06-22T11:30+00:00",
			`{"start":"2022-06-22T17:00:00+00:00","end":"2022-06-22T18:00:00+00:00"}`},
		{"inside a daily gap", "creator3", "1800", "2022-06-22T11:30+00:00",
			`{"start":"2022-06-22T23:30:00+00:00","end":"2022-06-23T00:00:00+00:00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.get("/find_free_window_for_users", url.Values{
				"usernames":   {tt.usernames},
				"window_size": {tt.windowSize},
				"start":       {tt.start},
			})
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"ok","window":`+tt.want+`}`, rec.Body.String())
		})
	}
}

func TestFindFreeWindowNotFound(t *testing.T) {
	e := freeWindowFixture(t)
	e.app.SearchHorizon = 90 * 24 * time.Hour

	rec := e.get("/find_free_window_for_users", url.Values{
		"usernames":   {"creator3"},
		"window_size": {"3600"},
		"start":       {"2022-06-22T11:30+00:00"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"Impossible to find window for meeting"}`, rec.Body.String())

	metrics := e.get("/metrics", nil).Body.String()
	assert.Contains(t, metrics, `scheduler_free_window_searches_total{result="not_found"} 1`)
}

func TestFindFreeWindowValidation(t *testing.T) {
	e := freeWindowFixture(t)

	tests := []struct {
		name   string
		query  url.Values
		status int
		want   string
	}{
		{
			name:   "nothing given",
			query:  url.Values{"foo": {"bar"}},
			status: http.StatusBadRequest,
			want: `{"status":"error","error":{"start":["field required"],
				"usernames":["field required"],"window_size":["field required"]}}`,
		},
		{
			name:   "zero window",
			query:  url.Values{"usernames": {"creator1"}, "window_size": {"0"}, "start": {"2022-06-22T11:00"}},
			status: http.StatusBadRequest,
			want:   `{"status":"error","error":{"window_size":["ensure this value is greater than 0"]}}`,
		},
		{
			name:   "not a number",
			query:  url.Values{"usernames": {"creator1"}, "window_size": {"1h"}, "start": {"2022-06-22T11:00"}},
			status: http.StatusBadRequest,
			want:   `{"status":"error","error":{"window_size":["value is not a valid integer"]}}`,
		},
		{
			name:   "unknown user",
			query:  url.Values{"usernames": {"creator1,ghost"}, "window_size": {"60"}, "start": {"2022-06-22T11:00"}},
			status: http.StatusNotFound,
			want:   `{"status":"error","error":"User \"ghost\" does not exist"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.get("/find_free_window_for_users", tt.query)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestMetricsCountSearches(t *testing.T) {
	e := freeWindowFixture(t)
	for range 2 {
		rec := e.get("/find_free_window_for_users", url.Values{
			"usernames": {"creator2"}, "window_size": {"60"}, "start": {"2022-06-22T11:00"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	e.get("/users/creator1/meetings", rangeQuery)

	rec := e.get("/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `scheduler_free_window_searches_total{result="found"} 2`)
	assert.Contains(t, body, "scheduler_range_occurrences_count 1")
}

func TestTokens(t *testing.T) {
	e := rangeFixture(t)

	rec := e.postForm("/tokens", url.Values{}, basicAuth("user1", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	rec = e.get("/meetings/2", nil, bearer(token))
	assert.JSONEq(t, `{"status":"ok","meeting_description":`+privateFullJSON+`}`, rec.Body.String())

	rec = e.get("/meetings/2", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := expired.SignedString([]byte(e.app.JWTSecret))
	require.NoError(t, err)
	rec = e.get("/meetings/2", nil, bearer(signed))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.postForm("/tokens", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.get("/ping", nil, header("Authorization", "Digest abc"))
	assert.Equal(t, http.StatusOK, rec.Code, "ping is not behind authentication")

	rec = e.get("/meetings/1", nil, header("Authorization", "Digest abc"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	e.app.JWTSecret = ""
	rec = e.postForm("/tokens", url.Values{}, basicAuth("user1", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.get("/meetings/1", nil, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "disabled"))
}
