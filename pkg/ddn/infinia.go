package ddn

import (
	"context"
	"net/http"
)

// LLMWorkloadRequest describes an LLM training workload to optimize.
type LLMWorkloadRequest struct {
	ModelSize            string `json:"model_size" mapstructure:"model_size"`
	GPUs                 int    `json:"gpus" mapstructure:"gpus"`
	ExpectedTokensPerSec int    `json:"expected_tokens_per_sec" mapstructure:"expected_tokens_per_sec"`
}

// CheckpointBenchmarkRequest configures a checkpointing benchmark.
type CheckpointBenchmarkRequest struct {
	ModelSizeGB    int    `json:"model_size_gb" mapstructure:"model_size_gb"`
	CheckpointType string `json:"checkpoint_type" mapstructure:"checkpoint_type"`
	TargetTimeSec  int    `json:"target_time_sec" mapstructure:"target_time_sec"`
}

// OrchestrationRequest describes an edge-core-cloud data orchestration setup.
type OrchestrationRequest struct {
	EdgeNodes      int    `json:"edge_nodes" mapstructure:"edge_nodes"`
	CoreDatacenter string `json:"core_datacenter" mapstructure:"core_datacenter"`
	CloudProvider  string `json:"cloud_provider" mapstructure:"cloud_provider"`
	DatasetSizeTB  int    `json:"dataset_size_tb" mapstructure:"dataset_size_tb"`
}

// InfiniaStatus fetches the Infinia orchestration platform status.
func (c *Client) InfiniaStatus(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.Infinia+"/api/v1/status")
}

// OptimizeLLMWorkload requests an optimization profile for an LLM workload.
func (c *Client) OptimizeLLMWorkload(ctx context.Context, req LLMWorkloadRequest) (*Response, error) {
	payload := map[string]any{
		"workload_type":           "llm_training",
		"model_size":              req.ModelSize,
		"gpus":                    req.GPUs,
		"expected_tokens_per_sec": req.ExpectedTokensPerSec,
	}

	return c.send(ctx, http.MethodPost, c.cfg.Infinia+"/api/v1/workload/optimize", payload)
}

// RunCheckpointBenchmark starts a checkpointing performance benchmark.
func (c *Client) RunCheckpointBenchmark(
	ctx context.Context, req CheckpointBenchmarkRequest,
) (*Response, error) {
	if req.CheckpointType == "" {
		req.CheckpointType = "full"
	}

	if req.TargetTimeSec == 0 {
		req.TargetTimeSec = 60
	}

	return c.send(ctx, http.MethodPost, c.cfg.Infinia+"/api/v1/benchmark/checkpoint", req)
}

// SetupOrchestration sets up bidirectional edge-core-cloud data orchestration
// and returns the orchestration ID.
func (c *Client) SetupOrchestration(ctx context.Context, req OrchestrationRequest) (string, error) {
	payload := map[string]any{
		"edge_nodes":      req.EdgeNodes,
		"core_datacenter": req.CoreDatacenter,
		"cloud_provider":  req.CloudProvider,
		"data_flow":       "bidirectional",
		"dataset_size_tb": req.DatasetSizeTB,
	}

	return c.postCreated(ctx, c.cfg.Infinia+"/api/v1/orchestration/setup", payload, "orchestration_id")
}
