// Package config provides configuration management for the carbon toolkit.
// It handles loading, validation, and management of configuration settings
// from files and environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode controls whether the loader and sorter run in read-optimized mode.
type Mode string

const (
	// ModeDefault preserves insertion order in the CIM; no sort pass runs.
	ModeDefault Mode = "default"
	// ModeReadOptimized runs the CIM sorter so every non-array primitive
	// group's values are non-decreasing under the type's natural order.
	ModeReadOptimized Mode = "read-optimized"
)

// Config represents the complete carbon configuration.
type Config struct {
	// Core settings
	Mode     Mode   `json:"mode" yaml:"mode"`
	Version  string `json:"version" yaml:"version"`
	StateDir string `json:"state_dir" yaml:"state_dir"`
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// Archive settings
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Storage settings (where archives are fetched from)
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// String dictionary / string-id cache settings
	StringDict StringDictConfig `json:"string_dict" yaml:"string_dict"`

	// Metrics settings
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Watch mode settings (cmd/carbon watch)
	Watch WatchConfig `json:"watch" yaml:"watch"`

	// CLI settings
	CLI CLIConfig `json:"cli" yaml:"cli"`
}

// ArchiveConfig controls how archives are opened and traversed by default.
type ArchiveConfig struct {
	// DefaultMask is the property-iterator visit mask applied when the CLI
	// is not given an explicit --mask flag. Bit layout matches
	// internal/archive.Mask.
	DefaultMask uint32 `json:"default_mask" yaml:"default_mask"`

	// MaxRecordTableSize is a record-table size limit that Validate requires
	// to be positive. No archive open path reads it; memory-mapping is not
	// bounded by it.
	MaxRecordTableSize int64 `json:"max_record_table_size" yaml:"max_record_table_size"`

	// StageDir is a staging directory that EnsureDirectories creates. The
	// CLI pipeline builds archives in memory and writes nothing to it.
	StageDir string `json:"stage_dir" yaml:"stage_dir"`
}

// StorageConfig defines the backend archives are fetched from.
type StorageConfig struct {
	Backend   string `json:"backend" yaml:"backend"` // local, s3, gcs
	LocalPath string `json:"local_path" yaml:"local_path"`

	S3  S3Config  `json:"s3,omitempty" yaml:"s3,omitempty"`
	GCS GCSConfig `json:"gcs,omitempty" yaml:"gcs,omitempty"`
}

// S3Config contains S3-specific configuration.
type S3Config struct {
	Region          string `json:"region" yaml:"region"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	AccessKeyID     string `json:"-" yaml:"-"` // Sensitive
	SecretAccessKey string `json:"-" yaml:"-"` // Sensitive
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	BucketName      string `json:"bucket_name" yaml:"bucket_name"`
	ProjectID       string `json:"project_id" yaml:"project_id"`
	CredentialsFile string `json:"-" yaml:"-"` // Sensitive
}

// StringDictConfig describes the ristretto id→string cache in
// internal/strdict. strdict.New does not read it; the cache is sized by
// constants in New.
type StringDictConfig struct {
	Enabled    bool  `json:"enabled" yaml:"enabled"`
	NumCounters int64 `json:"num_counters" yaml:"num_counters"`
	MaxCostBytes int64 `json:"max_cost_bytes" yaml:"max_cost_bytes"`
}

// MetricsConfig holds Prometheus exposition settings. cmd/carbon stat does
// not read it; stat serves metrics only when given --metrics-addr.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// WatchConfig controls cmd/carbon watch's fsnotify-driven re-run behavior.
type WatchConfig struct {
	DebounceInterval time.Duration `json:"debounce_interval" yaml:"debounce_interval"`
}

// CLIConfig contains general CLI behavior settings.
type CLIConfig struct {
	DefaultFormat string `json:"default_format" yaml:"default_format"` // text, json
	Parallel      int    `json:"parallel" yaml:"parallel"`             // 0 = GOMAXPROCS
}

// Default returns a default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".carbon")

	return &Config{
		Mode:     ModeDefault,
		Version:  "0.1.0",
		StateDir: stateDir,
		CacheDir: filepath.Join(stateDir, "cache"),

		Archive: ArchiveConfig{
			DefaultMask:        0xFFFFFFFF, // all primitive + array + object-array groups
			MaxRecordTableSize: 4 << 30,    // 4 GiB
			StageDir:           filepath.Join(stateDir, "stage"),
		},

		Storage: StorageConfig{
			Backend:   "local",
			LocalPath: filepath.Join(stateDir, "archives"),
		},

		StringDict: StringDictConfig{
			Enabled:      true,
			NumCounters:  1e6,
			MaxCostBytes: 32 << 20, // 32 MiB
		},

		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},

		Watch: WatchConfig{
			DebounceInterval: 200 * time.Millisecond,
		},

		CLI: CLIConfig{
			DefaultFormat: "text",
			Parallel:      0,
		},
	}
}

// Load loads configuration from file or environment.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			fmt.Printf("Warning: Failed to load config file, using defaults: %v\n", err)
		}
	}

	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	data = []byte(substituteEnvVars(string(data)))

	if strings.HasSuffix(strings.ToLower(path), ".yml") || strings.HasSuffix(strings.ToLower(path), ".yaml") {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if mode := os.Getenv("CARBON_MODE"); mode != "" {
		c.Mode = Mode(mode)
	}

	if mask := os.Getenv("CARBON_DEFAULT_MASK"); mask != "" {
		if val, err := strconv.ParseUint(mask, 0, 32); err == nil {
			c.Archive.DefaultMask = uint32(val)
		}
	}
	if stageDir := os.Getenv("CARBON_STAGE_DIR"); stageDir != "" {
		c.Archive.StageDir = stageDir
	}

	if backend := os.Getenv("CARBON_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if localPath := os.Getenv("CARBON_STORAGE_PATH"); localPath != "" {
		c.Storage.LocalPath = localPath
	}

	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		c.Storage.S3.AccessKeyID = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		c.Storage.S3.SecretAccessKey = secret
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		c.Storage.S3.Region = region
	}
	if bucket := os.Getenv("CARBON_S3_BUCKET"); bucket != "" {
		c.Storage.S3.Bucket = bucket
	}
	if endpoint := os.Getenv("CARBON_S3_ENDPOINT"); endpoint != "" {
		c.Storage.S3.Endpoint = endpoint
	}

	if bucket := os.Getenv("CARBON_GCS_BUCKET"); bucket != "" {
		c.Storage.GCS.BucketName = bucket
	}
	if project := os.Getenv("CARBON_GCS_PROJECT"); project != "" {
		c.Storage.GCS.ProjectID = project
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		c.Storage.GCS.CredentialsFile = creds
	}

	if enabled := os.Getenv("CARBON_STRDICT_ENABLED"); enabled == "true" || enabled == "false" {
		c.StringDict.Enabled = enabled == "true"
	}
	if n := os.Getenv("CARBON_STRDICT_NUM_COUNTERS"); n != "" {
		if val, err := strconv.ParseInt(n, 10, 64); err == nil {
			c.StringDict.NumCounters = val
		}
	}
	if n := os.Getenv("CARBON_STRDICT_MAX_COST_BYTES"); n != "" {
		if val, err := strconv.ParseInt(n, 10, 64); err == nil {
			c.StringDict.MaxCostBytes = val
		}
	}

	if enabled := os.Getenv("CARBON_METRICS_ENABLED"); enabled == "true" || enabled == "false" {
		c.Metrics.Enabled = enabled == "true"
	}
	if addr := os.Getenv("CARBON_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}

	if interval := os.Getenv("CARBON_WATCH_DEBOUNCE"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Watch.DebounceInterval = d
		}
	}

	if format := os.Getenv("CARBON_FORMAT"); format != "" {
		c.CLI.DefaultFormat = format
	}
	if parallel := os.Getenv("CARBON_PARALLEL"); parallel != "" {
		if val, err := strconv.Atoi(parallel); err == nil {
			c.CLI.Parallel = val
		}
	}
}

// Validate checks if the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDefault, ModeReadOptimized:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}

	switch c.Storage.Backend {
	case "local", "s3", "gcs":
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Storage.Backend == "local" && c.Storage.LocalPath == "" {
		return fmt.Errorf("local storage path required for local backend")
	}
	if c.Storage.Backend == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket required for s3 backend")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCS.BucketName == "" {
		return fmt.Errorf("gcs bucket name required for gcs backend")
	}

	switch c.CLI.DefaultFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid default_format: %s (must be text or json)", c.CLI.DefaultFormat)
	}

	if c.CLI.Parallel < 0 {
		return fmt.Errorf("parallel must be >= 0")
	}

	if c.Archive.MaxRecordTableSize <= 0 {
		return fmt.Errorf("archive.max_record_table_size must be positive")
	}

	return nil
}

// EnsureDirectories creates necessary directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.StateDir,
		c.CacheDir,
		c.Archive.StageDir,
	}
	if c.Storage.Backend == "local" {
		dirs = append(dirs, c.Storage.LocalPath)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Save saves the configuration to a file, omitting sensitive fields.
func (c *Config) Save(path string) error {
	configCopy := *c
	configCopy.Storage.S3.AccessKeyID = ""
	configCopy.Storage.S3.SecretAccessKey = ""
	configCopy.Storage.GCS.CredentialsFile = ""

	data, err := json.MarshalIndent(configCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	if path := os.Getenv("CARBON_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("carbon.yml"); err == nil {
		return "carbon.yml"
	}
	if _, err := os.Stat("carbon.yaml"); err == nil {
		return "carbon.yaml"
	}
	if _, err := os.Stat("carbon.json"); err == nil {
		return "carbon.json"
	}

	homeDir, _ := os.UserHomeDir()
	yamlPath := filepath.Join(homeDir, ".carbon", "config.yml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return filepath.Join(homeDir, ".carbon", "config.json")
}

// substituteEnvVars replaces environment variable references in
// configuration strings. Supports ${VAR} and ${VAR:-default} syntax.
func substituteEnvVars(content string) string {
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::-(.*?))?\}`)

	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		start := strings.Index(match, "${") + 2
		end := strings.Index(match, "}")
		if end == -1 {
			return match
		}

		varPart := match[start:end]
		var varName, defaultValue string

		if colonIndex := strings.Index(varPart, ":-"); colonIndex != -1 {
			varName = varPart[:colonIndex]
			defaultValue = varPart[colonIndex+2:]
		} else {
			varName = varPart
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
