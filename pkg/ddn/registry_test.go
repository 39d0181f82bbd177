package ddn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywords(t *testing.T, status int, body string, last *recordedRequest) *Keywords {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Method = r.Method
		last.Path = r.URL.Path
		last.Body = nil
		_ = json.NewDecoder(r.Body).Decode(&last.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Products = config.ProductsConfig{
		EXAScaler:    srv.URL,
		AI400X:       srv.URL,
		Infinia:      srv.URL,
		IntelliFlash: srv.URL,
		EMF:          srv.URL,
		Timeout:      "5s",
	}

	return NewKeywords(logrus.New(), cfg)
}

func TestRunUnknownKeyword(t *testing.T) {
	var last recordedRequest
	k := newTestKeywords(t, http.StatusOK, `{}`, &last)

	_, err := k.Run(context.Background(), "reticulate_splines", nil)
	assert.ErrorContains(t, err, "unknown keyword")
}

func TestRunRawKeyword(t *testing.T) {
	var last recordedRequest
	k := newTestKeywords(t, http.StatusOK, `{"status":"healthy"}`, &last)

	out, err := k.Run(context.Background(), "get_exascaler_health", nil)
	require.NoError(t, err)

	body, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", body["status"])
}

func TestRunDecodesWeaklyTypedArgs(t *testing.T) {
	var last recordedRequest
	k := newTestKeywords(t, http.StatusCreated, `{"file_id":"f-9"}`, &last)

	// Robot Framework passes every argument as a string.
	out, err := k.Run(context.Background(), "create_lustre_striped_file", map[string]any{
		"path":         "/lustre/qa/file",
		"stripe_count": "8",
		"size_mb":      "250",
	})
	require.NoError(t, err)

	assert.Equal(t, "f-9", out)
	assert.Equal(t, "/lustre/qa/file", last.Body["path"])
	assert.Equal(t, float64(8), last.Body["stripe_count"])
	assert.Equal(t, float64(250), last.Body["size_mb"])
}

func TestRunRequiresStringArg(t *testing.T) {
	var last recordedRequest
	k := newTestKeywords(t, http.StatusOK, `{}`, &last)

	_, err := k.Run(context.Background(), "verify_file_striping", map[string]any{})
	assert.ErrorContains(t, err, "file_id")
}

func TestNamesSortedAndComplete(t *testing.T) {
	names := Names()

	assert.GreaterOrEqual(t, len(names), 25)
	assert.Contains(t, names, "get_exascaler_health")
	assert.Contains(t, names, "create_intelliflash_volume")
	assert.Contains(t, names, "create_s3_bucket")

	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
