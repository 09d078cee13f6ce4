package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/internal/ratelimit"
	"github.com/shehryarbajwa/crossbrowse/internal/runner"
)

type staticProgress runner.Progress

func (p staticProgress) Progress() runner.Progress {
	return runner.Progress(p)
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *httptest.Server {
	t.Helper()
	ctrl := agent.NewController("http://127.0.0.1:8040", 0)
	t.Cleanup(ctrl.Close)

	h := NewHandler(ctrl, staticProgress{Running: true, SitesTotal: 10, SitesCompleted: 3})
	srv := httptest.NewServer(h.SetupRoutes(limiter))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetProgress(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var p runner.Progress
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.True(t, p.Running)
	assert.Equal(t, 10, p.SitesTotal)
	assert.Equal(t, 3, p.SitesCompleted)
}

func TestGetAgents(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/agents")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body["awaiting"])
}

func TestAgentStartPage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/firefox-agent/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<title>firefox-agent:ws://")
	assert.Contains(t, string(body), "/firefox-agent/abc</title>")
}

func TestAgentRouteIsRateLimited(t *testing.T) {
	srv := newTestServer(t, ratelimit.NewLimiter(1, 1))

	resp, err := http.Get(srv.URL + "/firefox-agent/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/firefox-agent/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// the api is not throttled
	resp, err = http.Get(srv.URL + "/v1/progress")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
