package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

func newController(t *testing.T) *agent.Controller {
	t.Helper()

	var ctrl *agent.Controller
	r := mux.NewRouter()
	r.HandleFunc("/"+agent.PathPrefix+"/{agentId}", func(w http.ResponseWriter, r *http.Request) {
		ctrl.ServeAgent(w, r, mux.Vars(r)["agentId"])
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctrl = agent.NewController(srv.URL, 0)
	t.Cleanup(ctrl.Close)
	return ctrl
}

// connect pairs a Client with the orchestrator side Channel
func connect(t *testing.T, ctrl *agent.Controller, handler Handler) (*Client, *agent.Channel) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := ctrl.GenerateAgentID()
	channels := make(chan *agent.Channel, 1)
	go func() {
		ch, err := ctrl.WaitForAgent(ctx, id)
		if assert.NoError(t, err) {
			channels <- ch
		}
	}()
	require.Eventually(t, func() bool { return ctrl.Awaiting() == 1 }, 3*time.Second, 10*time.Millisecond)

	client, err := Dial(ctx, ctrl.ConnectURL(id), handler)
	require.NoError(t, err)

	select {
	case ch := <-channels:
		t.Cleanup(func() { ch.Close() })
		return client, ch
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for agent channel")
	}
	return nil, nil
}

func TestClient_RunAnalysisThenShutdown(t *testing.T) {
	ctrl := newController(t)
	handler := HandlerFunc(func(ctx context.Context, params models.RunAnalysisParams) (*models.Detail, error) {
		return &models.Detail{Frames: []models.Frame{{FrameID: "0", URL: params.URL}}}, nil
	})
	client, ch := connect(t, ctrl, handler)

	var shutdownCalled atomic.Bool
	client.OnShutdown(func(context.Context) error {
		shutdownCalled.Store(true)
		return nil
	})

	served := make(chan error, 1)
	go func() { served <- client.Serve(context.Background()) }()

	result, err := ch.AssignTask(context.Background(), models.CommandRunAnalysis, models.RunAnalysisParams{URL: "http://a.test/", IsFoxhound: true})
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccess, result.Status)

	var detail models.Detail
	require.NoError(t, json.Unmarshal(result.Detail, &detail))
	require.Len(t, detail.Frames, 1)
	assert.Equal(t, "http://a.test/", detail.Frames[0].URL)

	result, err = ch.AssignTask(context.Background(), models.CommandShutdown, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Serve to return")
	}
	assert.Equal(t, StateClosed, client.State())
	assert.True(t, shutdownCalled.Load())

	select {
	case <-ch.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("orchestrator channel not closed after shutdown")
	}
}

func TestClient_HandlerErrorBecomesFailureResult(t *testing.T) {
	ctrl := newController(t)
	handler := HandlerFunc(func(ctx context.Context, params models.RunAnalysisParams) (*models.Detail, error) {
		return nil, errors.New("Navigation error: NS_ERROR_UNKNOWN_HOST")
	})
	client, ch := connect(t, ctrl, handler)
	go client.Serve(context.Background())

	result, err := ch.AssignTask(context.Background(), models.CommandRunAnalysis, models.RunAnalysisParams{URL: "http://gone.test/"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailure, result.Status)
	assert.Contains(t, result.Reason, "NS_ERROR_UNKNOWN_HOST")
	assert.Equal(t, StateServing, client.State())
}

func TestClient_UnknownCommandFails(t *testing.T) {
	ctrl := newController(t)
	client, ch := connect(t, ctrl, HandlerFunc(func(context.Context, models.RunAnalysisParams) (*models.Detail, error) {
		return &models.Detail{}, nil
	}))
	go client.Serve(context.Background())

	result, err := ch.AssignTask(context.Background(), "Reload", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailure, result.Status)
	assert.Contains(t, result.Reason, "unknown command")
}

func TestResolveConnectURL(t *testing.T) {
	got, err := ResolveConnectURL(context.Background(), "ws://127.0.0.1:8040/firefox-agent/x")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8040/firefox-agent/x", got)

	_, err = ResolveConnectURL(context.Background(), "ftp://example.test/")
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "shutdown-requested", StateShutdownRequested.String())
	assert.Equal(t, "closed", StateClosed.String())
}
