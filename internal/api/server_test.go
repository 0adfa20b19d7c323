package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconalert/beacon/internal/api/handler"
	"github.com/beaconalert/beacon/internal/config"
	"github.com/beaconalert/beacon/internal/notify"
)

type memStore struct {
	contacts map[string][]notify.Recipient
	roleIDs  []string
	err      error
}

func (m *memStore) ContactsForUser(_ context.Context, id string) ([]notify.Recipient, error) {
	return m.contacts[id], m.err
}

func (m *memStore) UserIDsWithRoles(_ context.Context, _ []string) ([]string, error) {
	return m.roleIDs, m.err
}

type memDirectory []notify.DirectoryUser

func (d memDirectory) ListUsers(context.Context) ([]notify.DirectoryUser, error) { return d, nil }

type recordingSender struct {
	channel notify.Channel
	fail    bool

	mu sync.Mutex
	to []string
}

func (s *recordingSender) Channel() notify.Channel { return s.channel }

func (s *recordingSender) Send(_ context.Context, to string, _ notify.Message) error {
	s.mu.Lock()
	s.to = append(s.to, to)
	s.mu.Unlock()
	if s.fail {
		return errors.New("provider rejected")
	}
	return nil
}

type pinger struct{ err error }

func (p pinger) HealthCheck(context.Context) error { return p.err }

func testConfig() *config.Config {
	return &config.Config{
		CORSAllowOrigins:  []string{"*"},
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
	}
}

func newTestRouter(t *testing.T, deps notify.Deps, db handler.Pinger) http.Handler {
	t.Helper()
	svc, err := notify.NewService(deps, notify.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return NewRouter(svc, db, testConfig())
}

func contactsDeps(smsFails bool) notify.Deps {
	return notify.Deps{
		Store: &memStore{contacts: map[string][]notify.Recipient{
			"u1": {
				{ID: "c1", Name: "Ann", Email: "ann@example.com"},
				{ID: "c2", Name: "Bob", Email: "bob@example.com", Phone: "+15550002"},
			},
		}},
		Senders: []notify.Sender{
			&recordingSender{channel: notify.ChannelEmail},
			&recordingSender{channel: notify.ChannelSMS, fail: smsFails},
		},
	}
}

const contactsBody = `{"emergency_id":"e1","emergency_type":"medical","latitude":40.7,"longitude":-74.0,"user_id":"u1","reporter_name":"Dana"}`

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNotifyContactsEndpoint(t *testing.T) {
	r := newTestRouter(t, contactsDeps(false), nil)

	for _, path := range []string{"/functions/v1/notify-contacts", "/api/v1/notify/contacts"} {
		rec := post(t, r, path, contactsBody)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"success":true,"emailsSent":2,"smsSent":1,"totalContacts":2}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
	}
}

func TestNotifyContactsPartialFailureIs200(t *testing.T) {
	r := newTestRouter(t, contactsDeps(true), nil)

	rec := post(t, r, "/functions/v1/notify-contacts", contactsBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp notify.ContactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.EmailsSent)
	assert.Equal(t, 0, resp.SMSSent)
	assert.Equal(t, []string{"SMS to Bob"}, resp.Failures)
}

func TestNotifyMissingStoreIs500(t *testing.T) {
	r := newTestRouter(t, notify.Deps{}, nil)

	rec := post(t, r, "/functions/v1/notify-contacts", contactsBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "DATABASE_URL")
}

func TestNotifyResolutionErrorIs500(t *testing.T) {
	r := newTestRouter(t, notify.Deps{Store: &memStore{err: errors.New("connection refused")}}, nil)

	rec := post(t, r, "/functions/v1/notify-contacts", contactsBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestNotifyBadRequests(t *testing.T) {
	r := newTestRouter(t, contactsDeps(false), nil)

	cases := map[string]string{
		"malformed":       `{"emergency_id":`,
		"empty":           ``,
		"missing type":    `{"emergency_id":"e1","user_id":"u1"}`,
		"missing user":    `{"emergency_id":"e1","emergency_type":"fire"}`,
		"latitude bounds": `{"emergency_id":"e1","emergency_type":"fire","latitude":91,"user_id":"u1"}`,
	}
	for name, body := range cases {
		rec := post(t, r, "/functions/v1/notify-contacts", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Contains(t, rec.Body.String(), `"error"`, name)
	}
}

func TestNotifyRespondersEndpoint(t *testing.T) {
	email := &recordingSender{channel: notify.ChannelEmail}
	deps := notify.Deps{
		Store: &memStore{roleIDs: []string{"r1", "r2"}},
		Directory: memDirectory{
			{ID: "r1", Email: "r1@example.com"},
			{ID: "r2", Email: "r2@example.com"},
			{ID: "x", Email: "x@example.com"},
		},
		Senders: []notify.Sender{email},
	}
	r := newTestRouter(t, deps, nil)

	rec := post(t, r, "/functions/v1/notify-responders", `{"emergency_id":"e1","emergency_type":"fire","latitude":1,"longitude":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Notifications sent","successful":2,"failed":0,"total":2}`, rec.Body.String())
	assert.ElementsMatch(t, []string{"r1@example.com", "r2@example.com"}, email.to)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, contactsDeps(false), nil)

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/notify-contacts", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "authorization")
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t, contactsDeps(false), pinger{})

	for _, path := range []string{"/", "/health", "/health/db"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	down := newTestRouter(t, contactsDeps(false), pinger{err: errors.New("down")})
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	none := newTestRouter(t, contactsDeps(false), nil)
	rec = httptest.NewRecorder()
	none.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCapabilities(t *testing.T) {
	r := newTestRouter(t, contactsDeps(false), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/capabilities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Strategies map[string]struct {
			Ready bool   `json:"ready"`
			Email bool   `json:"email"`
			SMS   bool   `json:"sms"`
			Error string `json:"error"`
		} `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Strategies["contacts"].Ready)
	assert.True(t, body.Strategies["contacts"].SMS)
	assert.False(t, body.Strategies["responders"].Ready)
	assert.Contains(t, body.Strategies["responders"].Error, "SUPABASE_URL")
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusNoContent, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1])
}
