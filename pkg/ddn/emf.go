package ddn

import (
	"context"
	"net/url"
	"time"
)

// DomainRequest describes a tenant isolation domain.
type DomainRequest struct {
	DomainName     string `json:"domain_name" mapstructure:"domain_name"`
	VLANID         int    `json:"vlan_id" mapstructure:"vlan_id"`
	IsolationLevel string `json:"isolation_level" mapstructure:"isolation_level"`
	NetworkSegment string `json:"network_segment" mapstructure:"network_segment"`
}

// AuditEntry is one tenant audit log record.
type AuditEntry = map[string]any

// CreateDomain creates a tenant isolation domain and returns its domain ID.
func (c *Client) CreateDomain(ctx context.Context, req DomainRequest) (string, error) {
	if req.IsolationLevel == "" {
		req.IsolationLevel = "strict"
	}

	return c.postCreated(ctx, c.cfg.EMF+"/api/v1/domains/create", req, "domain_id")
}

// AuditLogs fetches the audit log entries for a tenant domain over the
// trailing window.
func (c *Client) AuditLogs(
	ctx context.Context, tenantDomain string, window time.Duration,
) ([]AuditEntry, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}

	now := time.Now().UTC()

	q := url.Values{}
	q.Set("tenant_domain", tenantDomain)
	q.Set("start_time", now.Add(-window).Format(time.RFC3339))
	q.Set("end_time", now.Format(time.RFC3339))

	var body struct {
		AuditEntries []AuditEntry `json:"audit_entries"`
	}

	if err := c.getJSON(ctx, c.cfg.EMF+"/api/v1/audit/logs?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	return body.AuditEntries, nil
}
