package redact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	f := &store.Failure{ErrorMessage: "user jane@example.com not found"}

	n, err := Noop{}.RedactFailure(context.Background(), f)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "user jane@example.com not found", f.ErrorMessage)
}

func TestHTTPRedactor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/redact", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var doc store.Failure
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "user jane@example.com not found", doc.ErrorMessage)

		doc.ErrorMessage = "user <EMAIL> not found"

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"document":         doc,
			"total_redactions": 1,
		})
	}))
	defer srv.Close()

	r := NewHTTPRedactor(logrus.New(), &config.RedactionConfig{
		Enabled:  true,
		Endpoint: srv.URL,
		Timeout:  "5s",
	})

	f := &store.Failure{
		TestName:     "Create Volume",
		ErrorMessage: "user jane@example.com not found",
	}

	n, err := r.RedactFailure(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "user <EMAIL> not found", f.ErrorMessage)
	assert.Equal(t, "Create Volume", f.TestName)
}

func TestHTTPRedactorServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRedactor(logrus.New(), &config.RedactionConfig{
		Endpoint: srv.URL,
		Timeout:  "5s",
	})

	f := &store.Failure{ErrorMessage: "boom"}

	_, err := r.RedactFailure(context.Background(), f)
	assert.ErrorContains(t, err, "503")

	// Document untouched on failure.
	assert.Equal(t, "boom", f.ErrorMessage)
}
