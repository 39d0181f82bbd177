package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultDatabase is the default MongoDB database name.
	DefaultDatabase = "ddn_tests"

	// DefaultFailuresCollection is the collection receiving per-test failure documents.
	DefaultFailuresCollection = "test_failures"

	// DefaultBuildsCollection is the collection receiving per-build summary documents.
	DefaultBuildsCollection = "build_results"

	// DefaultBuildNumber is used when no CI build number is configured.
	DefaultBuildNumber = "local"

	// DefaultJobName is used when no CI job name is configured.
	DefaultJobName = "robot-framework-tests"

	// DefaultListen is the default event-ingest listen address.
	DefaultListen = ":8700"

	// DefaultAPITimeout is the fixed timeout applied to outbound product API calls.
	DefaultAPITimeout = "30s"

	// DefaultCITimeout is the fixed timeout applied to the CI status fetch.
	DefaultCITimeout = "10s"

	// DefaultUserAgent is sent on every product API request.
	DefaultUserAgent = "DDN-Robot-Framework-Tests/1.0"
)

// Config is the root configuration for robotel.
type Config struct {
	Global    GlobalConfig    `yaml:"global"`
	Mongo     MongoConfig     `yaml:"mongo"`
	CI        CIConfig        `yaml:"ci"`
	Redaction RedactionConfig `yaml:"redaction"`
	Server    ServerConfig    `yaml:"server"`
	Products  ProductsConfig  `yaml:"products"`
	S3        S3Config        `yaml:"s3"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// MongoConfig contains MongoDB connection settings. An empty URI disables
// persistence: the listener still tracks counters but stores nothing.
type MongoConfig struct {
	URI                string `yaml:"uri"`
	Database           string `yaml:"database"`
	FailuresCollection string `yaml:"failures_collection"`
	BuildsCollection   string `yaml:"builds_collection"`
	ConnectTimeout     string `yaml:"connect_timeout"`
}

// CIConfig contains the Jenkins build identity and status endpoint.
type CIConfig struct {
	BuildURL    string `yaml:"build_url"`
	BuildNumber string `yaml:"build_number"`
	JobName     string `yaml:"job_name"`
	Username    string `yaml:"username,omitempty"`
	APIToken    string `yaml:"api_token,omitempty"`
	Timeout     string `yaml:"timeout"`
}

// RedactionConfig controls the external PII redaction collaborator.
type RedactionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

// ServerConfig contains event-ingest HTTP server settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// TokenHash is a bcrypt hash of the bearer token required on ingest
	// requests. Empty disables authentication.
	TokenHash   string          `yaml:"token_hash,omitempty"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig controls per-IP rate limiting on the ingest endpoint.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// ProductsConfig contains the DDN product endpoints and shared API credentials.
type ProductsConfig struct {
	EXAScaler    string `yaml:"exascaler"`
	AI400X       string `yaml:"ai400x"`
	Infinia      string `yaml:"infinia"`
	IntelliFlash string `yaml:"intelliflash"`
	EMF          string `yaml:"emf"`
	APIKey       string `yaml:"api_key,omitempty"`
	APISecret    string `yaml:"api_secret,omitempty"`
	Timeout      string `yaml:"timeout"`
}

// S3Config contains the S3-compatible object API settings.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// Load reads and parses a configuration file from the given path. An empty
// path yields a configuration built from environment variables and defaults
// only, so the listener can run without a config file on CI agents.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// envOverride replaces dst with the value of the environment variable when set.
func envOverride(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// applyEnv overlays environment variables onto the configuration. Environment
// values win over file values so CI agents can inject per-build identity.
func (c *Config) applyEnv() {
	envOverride(&c.Mongo.URI, "MONGODB_URI")
	envOverride(&c.Mongo.Database, "MONGODB_DB")

	envOverride(&c.CI.BuildURL, "BUILD_URL")
	envOverride(&c.CI.BuildNumber, "BUILD_NUMBER")
	envOverride(&c.CI.JobName, "JOB_NAME")

	if v, ok := os.LookupEnv("PII_REDACTION_ENABLED"); ok {
		c.Redaction.Enabled = v == "true" || v == "1"
	}

	envOverride(&c.Redaction.Endpoint, "PII_REDACTION_ENDPOINT")

	envOverride(&c.Products.EXAScaler, "DDN_EXASCALER_ENDPOINT")
	envOverride(&c.Products.AI400X, "DDN_AI400X_ENDPOINT")
	envOverride(&c.Products.Infinia, "DDN_INFINIA_ENDPOINT")
	envOverride(&c.Products.IntelliFlash, "DDN_INTELLIFLASH_ENDPOINT")
	envOverride(&c.Products.EMF, "DDN_EMF_ENDPOINT")
	envOverride(&c.Products.APIKey, "DDN_API_KEY")
	envOverride(&c.Products.APISecret, "DDN_API_SECRET")

	envOverride(&c.S3.Endpoint, "DDN_S3_ENDPOINT")
	envOverride(&c.S3.AccessKeyID, "DDN_S3_ACCESS_KEY")
	envOverride(&c.S3.SecretAccessKey, "DDN_S3_SECRET_KEY")
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Mongo.Database == "" {
		c.Mongo.Database = DefaultDatabase
	}

	if c.Mongo.FailuresCollection == "" {
		c.Mongo.FailuresCollection = DefaultFailuresCollection
	}

	if c.Mongo.BuildsCollection == "" {
		c.Mongo.BuildsCollection = DefaultBuildsCollection
	}

	if c.Mongo.ConnectTimeout == "" {
		c.Mongo.ConnectTimeout = DefaultCITimeout
	}

	if c.CI.BuildNumber == "" {
		c.CI.BuildNumber = DefaultBuildNumber
	}

	if c.CI.JobName == "" {
		c.CI.JobName = DefaultJobName
	}

	if c.CI.Timeout == "" {
		c.CI.Timeout = DefaultCITimeout
	}

	if c.Redaction.Timeout == "" {
		c.Redaction.Timeout = DefaultCITimeout
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute == 0 {
		c.Server.RateLimit.RequestsPerMinute = 120
	}

	if c.Products.EXAScaler == "" {
		c.Products.EXAScaler = "http://exascaler.ddn.local"
	}

	if c.Products.AI400X == "" {
		c.Products.AI400X = "http://ai400x.ddn.local"
	}

	if c.Products.Infinia == "" {
		c.Products.Infinia = "http://infinia.ddn.local"
	}

	if c.Products.IntelliFlash == "" {
		c.Products.IntelliFlash = "http://intelliflash.ddn.local"
	}

	if c.Products.EMF == "" {
		c.Products.EMF = "http://emf.ddn.local"
	}

	if c.Products.Timeout == "" {
		c.Products.Timeout = DefaultAPITimeout
	}

	if c.S3.Endpoint == "" {
		c.S3.Endpoint = "http://s3.exascaler.ddn.local"
	}

	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for _, entry := range []struct {
		name  string
		value string
	}{
		{"mongo.connect_timeout", c.Mongo.ConnectTimeout},
		{"ci.timeout", c.CI.Timeout},
		{"redaction.timeout", c.Redaction.Timeout},
		{"products.timeout", c.Products.Timeout},
	} {
		if _, err := time.ParseDuration(entry.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", entry.name, entry.value, err)
		}
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit enabled but requests_per_minute is %d",
			c.Server.RateLimit.RequestsPerMinute)
	}

	if c.Redaction.Enabled && c.Redaction.Endpoint == "" {
		return fmt.Errorf("redaction enabled but no endpoint configured")
	}

	return nil
}

// ParseTimeout parses a duration string, falling back to def when empty or
// invalid. Used at call sites that already validated the config.
func ParseTimeout(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}

	return d
}

// BuildID returns the standardized build identifier for this run.
func (c *CIConfig) BuildID() string {
	return c.JobName + "-" + c.BuildNumber
}
