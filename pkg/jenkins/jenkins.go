// Package jenkins fetches the CI verdict for one build from the Jenkins
// JSON status endpoint. Single call, fixed timeout, no retries.
package jenkins

import (
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

// BuildStatus is the CI-reported outcome of one build.
type BuildStatus struct {
	Result      string
	Building    bool
	DurationMS  int64
	StartedAt   time.Time
	Trigger     string
	Description string
}

// Client queries the Jenkins build status endpoint.
type Client struct {
	log      logrus.FieldLogger
	buildURL string
	username string
	apiToken string
	hc       *http.Client
}

// New creates a Jenkins client for the configured build URL.
func New(log logrus.FieldLogger, cfg *config.CIConfig) *Client {
	return &Client{
		log:      log.WithField("component", "jenkins"),
		buildURL: cfg.BuildURL,
		username: cfg.Username,
		apiToken: cfg.APIToken,
		hc: &http.Client{
			Timeout: config.ParseTimeout(cfg.Timeout, 10*time.Second),
		},
	}
}

// buildResponse mirrors the fields we consume from the Jenkins build JSON.
type buildResponse struct {
	Result    string `json:"result"`
	Building  bool   `json:"building"`
	Duration  int64  `json:"duration"`
	Timestamp int64  `json:"timestamp"`
	Actions   []struct {
		Causes []struct {
			Class            string `json:"_class"`
			ShortDescription string `json:"shortDescription"`
		} `json:"causes"`
	} `json:"actions"`
}

// BuildStatus fetches {build_url}/api/json and returns the parsed verdict.
func (c *Client) BuildStatus(ctx context.Context) (*BuildStatus, error) {
	if c.buildURL == "" {
		return nil, fmt.Errorf("no build url configured")
	}

	url := strings.TrimRight(c.buildURL, "/") + "/api/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if c.username != "" && c.apiToken != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching build status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("build status endpoint returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var br buildResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decoding build status: %w", err)
	}

	status := &BuildStatus{
		Result:     br.Result,
		Building:   br.Building,
		DurationMS: br.Duration,
	}

	if br.Timestamp > 0 {
		status.StartedAt = time.UnixMilli(br.Timestamp).UTC()
	}

	status.Trigger, status.Description = parseTrigger(&br)

	c.log.WithFields(logrus.Fields{
		"result":   status.Result,
		"building": status.Building,
		"trigger":  status.Trigger,
	}).Debug("Fetched build status")

	return status, nil
}

// parseTrigger derives a trigger type from the first build cause.
func parseTrigger(br *buildResponse) (trigger, description string) {
	for _, action := range br.Actions {
		for _, cause := range action.Causes {
			return triggerFromClass(cause.Class), cause.ShortDescription
		}
	}

	return "unknown", ""
}

// triggerFromClass maps a Jenkins cause class to a stable trigger name.
func triggerFromClass(class string) string {
	switch {
	case strings.HasSuffix(class, "UserIdCause"):
		return "manual"
	case strings.HasSuffix(class, "TimerTriggerCause"):
		return "timer"
	case strings.HasSuffix(class, "SCMTriggerCause"):
		return "scm"
	case strings.HasSuffix(class, "UpstreamCause"):
		return "upstream"
	case class == "":
		return "unknown"
	default:
		return "other"
	}
}
