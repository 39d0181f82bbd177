// Package ddn wraps the REST and S3 surfaces of the DDN storage products
// under test. Every operation is a single outbound call: no retries, no
// batching, no caching. Non-success statuses surface as a StatusError
// carrying the HTTP status code.
package ddn

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
	"github.com/sirupsen/logrus"
)

// StatusError reports a non-success HTTP status from a product endpoint.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

// Response is the raw outcome of one product API call.
type Response struct {
	StatusCode int
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}

// Client issues authenticated REST calls against the DDN product endpoints.
type Client struct {
	log logrus.FieldLogger
	cfg *config.ProductsConfig
	hc  *http.Client
}

// NewClient creates a product API client with the fixed call timeout.
func NewClient(log logrus.FieldLogger, cfg *config.ProductsConfig) *Client {
	return &Client{
		log: log.WithField("component", "ddn"),
		cfg: cfg,
		hc: &http.Client{
			Timeout: config.ParseTimeout(cfg.Timeout, 30*time.Second),
		},
	}
}

// do issues one HTTP call with the standard auth headers. Transport errors
// are returned directly; the response is returned for any status code.
func (c *Client) do(ctx context.Context, method, url string, payload any) (*Response, error) {
	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-API-Secret", c.cfg.APISecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.DefaultUserAgent)

	c.log.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
	}).Debug("Calling product API")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// statusErr builds the StatusError for a failed call.
func statusErr(method, url string, resp *Response) *StatusError {
	return &StatusError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(resp.Body)),
	}
}

// get issues a GET and requires a 2xx status.
func (c *Client) get(ctx context.Context, url string) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusErr(http.MethodGet, url, resp)
	}

	return resp, nil
}

// getJSON issues a GET, requires 200, and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return statusErr(http.MethodGet, url, resp)
	}

	return resp.JSON(out)
}

// send issues a write call (POST/PATCH/DELETE) and requires a 2xx status.
func (c *Client) send(ctx context.Context, method, url string, payload any) (*Response, error) {
	resp, err := c.do(ctx, method, url, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusErr(method, url, resp)
	}

	return resp, nil
}

// postCreated issues a POST, requires 201, and extracts the named string
// identifier from the JSON response.
func (c *Client) postCreated(ctx context.Context, url string, payload any, idField string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusCreated {
		return "", statusErr(http.MethodPost, url, resp)
	}

	var body map[string]any
	if err := resp.JSON(&body); err != nil {
		return "", err
	}

	id, _ := body[idField].(string)
	if id == "" {
		return "", fmt.Errorf("response from %s is missing %q", url, idField)
	}

	return id, nil
}
