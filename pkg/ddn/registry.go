package ddn

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// Keywords bundles the product REST client and the S3 object store behind a
// flat, name-addressable keyword surface for the test runner.
type Keywords struct {
	log      logrus.FieldLogger
	Products *Client
	Objects  *ObjectStore
}

// NewKeywords creates the keyword surface from the configuration.
func NewKeywords(log logrus.FieldLogger, cfg *config.Config) *Keywords {
	return &Keywords{
		log:      log.WithField("component", "keywords"),
		Products: NewClient(log, &cfg.Products),
		Objects:  NewObjectStore(log, &cfg.S3),
	}
}

// handler executes one keyword against the given arguments.
type handler func(ctx context.Context, k *Keywords, args map[string]any) (any, error)

// decodeArgs decodes a loosely typed argument map into a request struct.
// Weak typing matters: Robot Framework passes everything as strings.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("building argument decoder: %w", err)
	}

	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decoding keyword arguments: %w", err)
	}

	return nil
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("argument %q is required", name)
	}

	return v, nil
}

// rawJSON returns the decoded JSON body of a raw response, falling back to
// the body text when it is not JSON.
func rawJSON(resp *Response) any {
	var v any
	if err := resp.JSON(&v); err != nil {
		return string(resp.Body)
	}

	return v
}

// rawHandler wraps an operation that returns a raw response.
func rawHandler(call func(context.Context, *Keywords) (*Response, error)) handler {
	return func(ctx context.Context, k *Keywords, _ map[string]any) (any, error) {
		resp, err := call(ctx, k)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	}
}

var keywordHandlers = map[string]handler{
	// EXAScaler.
	"get_exascaler_health": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.ExascalerHealth(ctx)
	}),
	"get_exascaler_cluster_status": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.ExascalerClusterStatus(ctx)
	}),
	"run_exascaler_throughput_benchmark": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req ThroughputBenchmarkRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		resp, err := k.Products.RunThroughputBenchmark(ctx, req)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"create_lustre_striped_file": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req StripedFileRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.CreateStripedFile(ctx, req)
	},
	"verify_file_striping": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		fileID, err := stringArg(args, "file_id")
		if err != nil {
			return nil, err
		}

		return k.Products.VerifyFileStriping(ctx, fileID)
	},
	"create_namespace": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req NamespaceRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.CreateNamespace(ctx, req)
	},
	"set_storage_quota": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req QuotaRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.SetStorageQuota(ctx, req)
	},
	"get_quota_usage": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		namespace, err := stringArg(args, "namespace")
		if err != nil {
			return nil, err
		}

		return k.Products.QuotaUsage(ctx, namespace)
	},

	// AI400X.
	"get_ai400x_health": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.AI400XHealth(ctx)
	}),
	"get_ai400x_gpu_metrics": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.AI400XGPUMetrics(ctx)
	}),
	"store_ai_checkpoint": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req CheckpointRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.StoreCheckpoint(ctx, req)
	},
	"retrieve_ai_checkpoint": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		id, err := stringArg(args, "checkpoint_id")
		if err != nil {
			return nil, err
		}

		resp, err := k.Products.RetrieveCheckpoint(ctx, id)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"run_ai_data_loading_benchmark": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req DataLoadingBenchmarkRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		resp, err := k.Products.RunDataLoadingBenchmark(ctx, req)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},

	// Infinia.
	"get_infinia_status": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.InfiniaStatus(ctx)
	}),
	"optimize_llm_workload": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req LLMWorkloadRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		resp, err := k.Products.OptimizeLLMWorkload(ctx, req)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"run_checkpoint_benchmark": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req CheckpointBenchmarkRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		resp, err := k.Products.RunCheckpointBenchmark(ctx, req)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"setup_edge_core_cloud_orchestration": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req OrchestrationRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.SetupOrchestration(ctx, req)
	},

	// IntelliFlash.
	"get_intelliflash_system_info": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.IntelliflashSystemInfo(ctx)
	}),
	"create_intelliflash_volume": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req VolumeRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.CreateVolume(ctx, req)
	},
	"get_intelliflash_volume": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		id, err := stringArg(args, "volume_id")
		if err != nil {
			return nil, err
		}

		resp, err := k.Products.Volume(ctx, id)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"update_intelliflash_volume": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req struct {
			VolumeID string `mapstructure:"volume_id"`
			SizeGB   int    `mapstructure:"size_gb"`
		}

		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		resp, err := k.Products.ResizeVolume(ctx, req.VolumeID, req.SizeGB)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"delete_intelliflash_volume": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		id, err := stringArg(args, "volume_id")
		if err != nil {
			return nil, err
		}

		resp, err := k.Products.DeleteVolume(ctx, id)
		if err != nil {
			return nil, err
		}

		return rawJSON(resp), nil
	},
	"get_storage_efficiency_metrics": rawHandler(func(ctx context.Context, k *Keywords) (*Response, error) {
		return k.Products.StorageEfficiency(ctx)
	}),

	// EMF.
	"create_domain": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req DomainRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.CreateDomain(ctx, req)
	},
	"get_audit_logs": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req struct {
			TenantDomain string `mapstructure:"tenant_domain"`
			Hours        int    `mapstructure:"hours"`
		}

		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Products.AuditLogs(ctx, req.TenantDomain, time.Duration(req.Hours)*time.Hour)
	},

	// S3.
	"create_s3_client": func(_ context.Context, k *Keywords, args map[string]any) (any, error) {
		var req struct {
			Tenant    string `mapstructure:"tenant_name"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
		}

		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		if req.Tenant == "" {
			return nil, fmt.Errorf("argument %q is required", "tenant_name")
		}

		k.Objects.CreateClient(req.Tenant, req.AccessKey, req.SecretKey)

		return "ok", nil
	},
	"create_s3_bucket": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req struct {
			Tenant             string `mapstructure:"tenant_name"`
			Bucket             string `mapstructure:"bucket_name"`
			LocationConstraint string `mapstructure:"location_constraint"`
		}

		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Objects.CreateBucket(ctx, req.Tenant, req.Bucket, req.LocationConstraint)
	},
	"list_s3_objects": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req struct {
			Tenant string `mapstructure:"tenant_name"`
			Bucket string `mapstructure:"bucket_name"`
		}

		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		return k.Objects.ListObjects(ctx, req.Tenant, req.Bucket)
	},
	"put_s3_object": func(ctx context.Context, k *Keywords, args map[string]any) (any, error) {
		var req struct {
			Tenant      string `mapstructure:"tenant_name"`
			Bucket      string `mapstructure:"bucket_name"`
			Key         string `mapstructure:"key"`
			Content     string `mapstructure:"content"`
			ContentType string `mapstructure:"content_type"`
		}

		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		err := k.Objects.PutObject(ctx, req.Tenant, req.Bucket, req.Key, []byte(req.Content), req.ContentType)
		if err != nil {
			return nil, err
		}

		return "ok", nil
	},
}

// Run executes the named keyword with the given arguments.
func (k *Keywords) Run(ctx context.Context, name string, args map[string]any) (any, error) {
	h, ok := keywordHandlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown keyword %q", name)
	}

	k.log.WithField("keyword", name).Debug("Running keyword")

	return h(ctx, k, args)
}

// Names returns all registered keyword names, sorted.
func Names() []string {
	names := make([]string, 0, len(keywordHandlers))
	for name := range keywordHandlers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
