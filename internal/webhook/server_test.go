package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warden/internal/config"
	"warden/internal/votes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	events []votes.Event
}

func (s *recordingSink) ReceiveVote(_ context.Context, event votes.Event) {
	s.events = append(s.events, event)
}

func newTestServer() (*Server, *recordingSink) {
	sink := &recordingSink{}
	cfg := config.WebhookConfig{Enabled: true, Addr: ":0", Secret: "s3cret"}
	return NewServer(cfg, zap.NewNop(), sink), sink
}

func postVote(server *Server, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/vote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", secret)
	}
	rec := httptest.NewRecorder()
	server.Engine().ServeHTTP(rec, req)
	return rec
}

func TestVoteAccepted(t *testing.T) {
	server, sink := newTestServer()

	rec := postVote(server, "s3cret", `{"user":"u1","bot":"b1","type":"upvote","isWeekend":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "u1", sink.events[0].UserID)
	assert.True(t, sink.events[0].IsWeekend)
}

func TestWrongSecretRejected(t *testing.T) {
	server, sink := newTestServer()

	rec := postVote(server, "wrong", `{"user":"u1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sink.events)

	rec = postVote(server, "", `{"user":"u1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmptySecretRejectsEverything(t *testing.T) {
	sink := &recordingSink{}
	server := NewServer(config.WebhookConfig{Addr: ":0"}, zap.NewNop(), sink)

	rec := postVote(server, "", `{"user":"u1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMalformedBodyRejected(t *testing.T) {
	server, sink := newTestServer()

	rec := postVote(server, "s3cret", `{"user":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sink.events)

	// Missing required user field.
	rec = postVote(server, "s3cret", `{"isWeekend":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
