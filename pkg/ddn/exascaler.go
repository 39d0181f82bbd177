package ddn

import (
	"context"
	"fmt"
	"net/http"
)

// ThroughputBenchmarkRequest configures an EXAScaler throughput benchmark.
type ThroughputBenchmarkRequest struct {
	FileSizeGB      int `json:"file_size_gb" mapstructure:"file_size_gb"`
	ParallelStreams int `json:"parallel_streams" mapstructure:"parallel_streams"`
}

// StripedFileRequest describes a Lustre striped file to create.
type StripedFileRequest struct {
	Path        string `json:"path" mapstructure:"path"`
	StripeCount int    `json:"stripe_count" mapstructure:"stripe_count"`
	StripeSize  string `json:"stripe_size" mapstructure:"stripe_size"`
	SizeMB      int    `json:"size_mb" mapstructure:"size_mb"`
}

// NamespaceRequest describes an isolated tenant namespace.
type NamespaceRequest struct {
	NamespaceName string `json:"namespace_name" mapstructure:"namespace_name"`
	RootPath      string `json:"root_path" mapstructure:"root_path"`
	MountType     string `json:"mount_type" mapstructure:"mount_type"`
	OwnerDomain   string `json:"owner_domain" mapstructure:"owner_domain"`
}

// QuotaRequest describes a storage quota for a namespace.
type QuotaRequest struct {
	Namespace        string  `json:"namespace" mapstructure:"namespace"`
	QuotaType        string  `json:"quota_type" mapstructure:"quota_type"`
	SoftLimitGB      float64 `json:"soft_limit_gb" mapstructure:"soft_limit_gb"`
	HardLimitGB      float64 `json:"hard_limit_gb" mapstructure:"hard_limit_gb"`
	GracePeriodHours int     `json:"grace_period_hours" mapstructure:"grace_period_hours"`
}

// ExascalerHealth fetches the EXAScaler health status.
func (c *Client) ExascalerHealth(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.EXAScaler+"/api/v1/health")
}

// ExascalerClusterStatus fetches cluster status including MDS and OSS servers.
func (c *Client) ExascalerClusterStatus(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.EXAScaler+"/api/v1/cluster/status")
}

// RunThroughputBenchmark starts an EXAScaler throughput benchmark.
func (c *Client) RunThroughputBenchmark(
	ctx context.Context, req ThroughputBenchmarkRequest,
) (*Response, error) {
	if req.FileSizeGB == 0 {
		req.FileSizeGB = 10
	}

	if req.ParallelStreams == 0 {
		req.ParallelStreams = 8
	}

	payload := map[string]any{
		"operation":        "benchmark",
		"test_type":        "throughput",
		"file_size_gb":     req.FileSizeGB,
		"parallel_streams": req.ParallelStreams,
	}

	return c.send(ctx, http.MethodPost, c.cfg.EXAScaler+"/api/v1/performance/benchmark", payload)
}

// CreateStripedFile creates a Lustre striped file and returns its file ID.
func (c *Client) CreateStripedFile(ctx context.Context, req StripedFileRequest) (string, error) {
	if req.StripeCount == 0 {
		req.StripeCount = 4
	}

	if req.StripeSize == "" {
		req.StripeSize = "1M"
	}

	if req.SizeMB == 0 {
		req.SizeMB = 100
	}

	return c.postCreated(ctx, c.cfg.EXAScaler+"/api/v1/files/create", req, "file_id")
}

// VerifyFileStriping fetches the stripe configuration of a file.
func (c *Client) VerifyFileStriping(ctx context.Context, fileID string) (map[string]any, error) {
	var info map[string]any

	url := fmt.Sprintf("%s/api/v1/files/%s/stripe-info", c.cfg.EXAScaler, fileID)
	if err := c.getJSON(ctx, url, &info); err != nil {
		return nil, err
	}

	return info, nil
}

// CreateNamespace creates an isolated tenant namespace and returns its ID.
func (c *Client) CreateNamespace(ctx context.Context, req NamespaceRequest) (string, error) {
	if req.MountType == "" {
		req.MountType = "subdirectory"
	}

	return c.postCreated(ctx, c.cfg.EXAScaler+"/api/v1/namespaces/create", req, "namespace_id")
}

// SetStorageQuota sets a storage quota on a namespace and returns the quota ID.
func (c *Client) SetStorageQuota(ctx context.Context, req QuotaRequest) (string, error) {
	req.QuotaType = "storage"

	if req.GracePeriodHours == 0 {
		req.GracePeriodHours = 24
	}

	return c.postCreated(ctx, c.cfg.EXAScaler+"/api/v1/quotas/set", req, "quota_id")
}

// QuotaUsage fetches quota usage statistics for a namespace.
func (c *Client) QuotaUsage(ctx context.Context, namespace string) (map[string]any, error) {
	var usage map[string]any

	url := fmt.Sprintf("%s/api/v1/quotas/%s/usage", c.cfg.EXAScaler, namespace)
	if err := c.getJSON(ctx, url, &usage); err != nil {
		return nil, err
	}

	return usage, nil
}
