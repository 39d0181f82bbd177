package ddn

import (
	"context"
	"fmt"
	"net/http"
)

// CheckpointRequest describes an AI model checkpoint to store on AI400X.
type CheckpointRequest struct {
	ModelName       string         `json:"model_name" mapstructure:"model_name"`
	CheckpointEpoch int            `json:"checkpoint_epoch" mapstructure:"checkpoint_epoch"`
	SizeGB          int            `json:"checkpoint_size_gb" mapstructure:"checkpoint_size_gb"`
	Metadata        map[string]any `json:"metadata" mapstructure:"metadata"`
}

// DataLoadingBenchmarkRequest configures an AI data loading benchmark.
type DataLoadingBenchmarkRequest struct {
	DatasetSizeGB   int    `json:"dataset_size_gb" mapstructure:"dataset_size_gb"`
	BatchSize       int    `json:"batch_size" mapstructure:"batch_size"`
	DataFormat      string `json:"data_format" mapstructure:"data_format"`
	TestDurationSec int    `json:"test_duration_sec" mapstructure:"test_duration_sec"`
}

// AI400XHealth fetches the AI400X platform health status.
func (c *Client) AI400XHealth(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.AI400X+"/api/v1/health")
}

// AI400XGPUMetrics fetches GPU-optimized storage metrics.
func (c *Client) AI400XGPUMetrics(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.AI400X+"/api/v1/gpu/storage-metrics")
}

// StoreCheckpoint stores an AI model checkpoint and returns its checkpoint ID.
func (c *Client) StoreCheckpoint(ctx context.Context, req CheckpointRequest) (string, error) {
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}

	return c.postCreated(ctx, c.cfg.AI400X+"/api/v1/checkpoints/store", req, "checkpoint_id")
}

// RetrieveCheckpoint fetches a stored AI model checkpoint.
func (c *Client) RetrieveCheckpoint(ctx context.Context, checkpointID string) (*Response, error) {
	return c.get(ctx, fmt.Sprintf("%s/api/v1/checkpoints/%s", c.cfg.AI400X, checkpointID))
}

// RunDataLoadingBenchmark starts an AI data loading performance benchmark.
func (c *Client) RunDataLoadingBenchmark(
	ctx context.Context, req DataLoadingBenchmarkRequest,
) (*Response, error) {
	if req.DataFormat == "" {
		req.DataFormat = "tfrecord"
	}

	if req.TestDurationSec == 0 {
		req.TestDurationSec = 60
	}

	return c.send(ctx, http.MethodPost, c.cfg.AI400X+"/api/v1/benchmark/data-loading", req)
}
