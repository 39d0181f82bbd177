// Package redact strips personally identifiable information from failure
// documents before persistence. The actual redaction is performed by an
// external service; this package only carries the document across.
package redact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/store"
	"github.com/sirupsen/logrus"
)

// Redactor redacts PII from a failure document in place and reports how
// many entities were redacted.
type Redactor interface {
	RedactFailure(ctx context.Context, f *store.Failure) (int, error)
}

// Noop passes documents through unchanged. Used when redaction is disabled.
type Noop struct{}

// RedactFailure is a no-op.
func (Noop) RedactFailure(context.Context, *store.Failure) (int, error) {
	return 0, nil
}

// Compile-time interface checks.
var (
	_ Redactor = Noop{}
	_ Redactor = (*httpRedactor)(nil)
)

type httpRedactor struct {
	log      logrus.FieldLogger
	endpoint string
	hc       *http.Client
}

// NewHTTPRedactor creates a redactor backed by the external PII service.
func NewHTTPRedactor(log logrus.FieldLogger, cfg *config.RedactionConfig) Redactor {
	return &httpRedactor{
		log:      log.WithField("component", "redactor"),
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		hc: &http.Client{
			Timeout: config.ParseTimeout(cfg.Timeout, 10*time.Second),
		},
	}
}

// redactionResponse is the external service's reply.
type redactionResponse struct {
	Document        store.Failure `json:"document"`
	TotalRedactions int           `json:"total_redactions"`
}

// RedactFailure posts the failure document to the redaction service and
// replaces it with the redacted copy.
func (r *httpRedactor) RedactFailure(ctx context.Context, f *store.Failure) (int, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return 0, fmt.Errorf("encoding failure document: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, r.endpoint+"/api/v1/redact", bytes.NewReader(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling redaction service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return 0, fmt.Errorf("redaction service returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rr redactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return 0, fmt.Errorf("decoding redaction response: %w", err)
	}

	*f = rr.Document

	return rr.TotalRedactions, nil
}
