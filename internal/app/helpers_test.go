package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"meetings-service/internal/schedule"
	"meetings-service/internal/store"
)

type testEnv struct {
	app    *App
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	a := New(s, zap.NewNop())
	a.PasswordCost = bcrypt.MinCost
	a.JWTSecret = "test-secret"
	return &testEnv{app: a, router: a.Router()}
}

func (e *testEnv) user(t *testing.T, name, password string) *store.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := e.app.Store.CreateUser(context.Background(), name, string(hash))
	require.NoError(t, err)
	return u
}

type meetingOpts struct {
	repeat      schedule.RepeatType
	private     bool
	description string
	invitees    []*store.User
}

func (e *testEnv) meeting(t *testing.T, creator *store.User, start, end string, opts meetingOpts) *store.Meeting {
	t.Helper()
	s, err := parseDateTime(start)
	require.NoError(t, err)
	en, err := parseDateTime(end)
	require.NoError(t, err)

	m := &store.Meeting{
		CreatorID: creator.ID,
		Start:     s.Unix(),
		End:       en.Unix(),
		IsPrivate: opts.private,
		Repeat:    opts.repeat,
	}
	if opts.description != "" {
		m.Description = &opts.description
	}
	ids := make([]int64, 0, len(opts.invitees))
	for _, u := range opts.invitees {
		ids = append(ids, u.ID)
	}
	require.NoError(t, e.app.Store.CreateMeeting(context.Background(), m, ids))
	return m
}

type reqOpt func(*http.Request)

func basicAuth(name, password string) reqOpt {
	return func(r *http.Request) { r.SetBasicAuth(name, password) }
}

func bearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func header(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (e *testEnv) get(path string, query url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	if query != nil {
		path += "?" + query.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return e.serve(req, opts)
}

func (e *testEnv) postForm(path string, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, opts)
}

func (e *testEnv) postJSON(path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.serve(req, opts)
}

func (e *testEnv) serve(req *http.Request, opts []reqOpt) *httptest.ResponseRecorder {
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
