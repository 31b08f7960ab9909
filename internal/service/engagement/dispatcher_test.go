package engagement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/config"
)

func TestDispatcher_SendsTrigger(t *testing.T) {
	received := make(chan Trigger, 1)
	var secret atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret.Store(r.Header.Get("X-Scheduler-Secret"))
		var trigger Trigger
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&trigger)) {
			received <- trigger
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewDispatcher(&config.EngagementConfig{Enabled: true, URL: srv.URL, Timeout: "2s"}, "s3cret", zap.NewNop())
	d.Dispatch(Trigger{
		PublishedPostID:     "rec-1",
		ExternalPostID:      "urn:li:activity:1",
		PostContent:         "hello",
		PostAuthorProfileID: "author-1",
	})

	require.NoError(t, d.Wait(context.Background()))

	select {
	case got := <-received:
		assert.Equal(t, "rec-1", got.PublishedPostID)
		assert.Equal(t, "urn:li:activity:1", got.ExternalPostID)
		assert.Equal(t, "author-1", got.PostAuthorProfileID)
	default:
		t.Fatal("trigger not delivered")
	}
	assert.Equal(t, "s3cret", secret.Load())
}

func TestDispatcher_FailureDoesNotPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(&config.EngagementConfig{Enabled: true, URL: srv.URL, Timeout: "2s"}, "s", zap.NewNop())
	d.Dispatch(Trigger{ExternalPostID: "x"})

	assert.NoError(t, d.Wait(context.Background()))
}

func TestDispatcher_Disabled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	d := NewDispatcher(&config.EngagementConfig{Enabled: false, URL: srv.URL}, "s", zap.NewNop())
	d.Dispatch(Trigger{ExternalPostID: "x"})

	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDispatcher_WaitHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := NewDispatcher(&config.EngagementConfig{Enabled: true, URL: srv.URL, Timeout: "5s"}, "s", zap.NewNop())
	d.Dispatch(Trigger{ExternalPostID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
}

func TestDispatcher_DropsWhenSaturated(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
	}))
	defer srv.Close()

	d := NewDispatcher(&config.EngagementConfig{Enabled: true, URL: srv.URL, Timeout: "5s", MaxInFlight: 1}, "s", zap.NewNop())
	d.Dispatch(Trigger{ExternalPostID: "first"})
	d.Dispatch(Trigger{ExternalPostID: "second"})

	close(release)
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
