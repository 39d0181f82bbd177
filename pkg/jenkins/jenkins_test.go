package jenkins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return New(logrus.New(), &config.CIConfig{
		BuildURL: url,
		Timeout:  "5s",
	})
}

func TestBuildStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/job/nightly/412/api/json", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"result": "UNSTABLE",
			"building": false,
			"duration": 84000,
			"timestamp": 1755900000000,
			"actions": [
				{},
				{"causes": [{"_class": "hudson.triggers.TimerTrigger$TimerTriggerCause",
					"shortDescription": "Started by timer"}]}
			]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/job/nightly/412/")

	status, err := c.BuildStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "UNSTABLE", status.Result)
	assert.False(t, status.Building)
	assert.Equal(t, int64(84000), status.DurationMS)
	assert.Equal(t, time.UnixMilli(1755900000000).UTC(), status.StartedAt)
	assert.Equal(t, "timer", status.Trigger)
	assert.Equal(t, "Started by timer", status.Description)
}

func TestBuildStatusBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, token, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "qa-bot", user)
		assert.Equal(t, "secret-token", token)

		_, _ = w.Write([]byte(`{"result": "SUCCESS"}`))
	}))
	defer srv.Close()

	c := New(logrus.New(), &config.CIConfig{
		BuildURL: srv.URL,
		Username: "qa-bot",
		APIToken: "secret-token",
		Timeout:  "5s",
	})

	status, err := c.BuildStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", status.Result)
	assert.Equal(t, "unknown", status.Trigger)
}

func TestBuildStatusNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).BuildStatus(context.Background())
	assert.ErrorContains(t, err, "404")
}

func TestBuildStatusNoURL(t *testing.T) {
	_, err := newTestClient("").BuildStatus(context.Background())
	assert.Error(t, err)
}

func TestTriggerFromClass(t *testing.T) {
	tests := []struct {
		class string
		want  string
	}{
		{"hudson.model.Cause$UserIdCause", "manual"},
		{"hudson.triggers.TimerTrigger$TimerTriggerCause", "timer"},
		{"hudson.triggers.SCMTrigger$SCMTriggerCause", "scm"},
		{"hudson.model.Cause$UpstreamCause", "upstream"},
		{"com.example.WeirdCause", "other"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, triggerFromClass(tt.class))
		})
	}
}
