package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigLoader loads configuration from one or more sources, merging them
// by priority (highest wins per field).
type ConfigLoader struct {
	sources []ConfigSource
}

// ConfigSource represents a configuration source.
type ConfigSource interface {
	Load() (*Config, error)
	Priority() int // Higher priority sources override lower priority ones
	Name() string
}

// FileConfigSource loads configuration from a file.
type FileConfigSource struct {
	path     string
	priority int
}

// EnvironmentConfigSource loads configuration from environment variables
// under a given prefix.
type EnvironmentConfigSource struct {
	prefix   string
	priority int
}

// DefaultConfigSource provides default configuration values.
type DefaultConfigSource struct {
	priority int
}

// NewConfigLoader creates a new configuration loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		sources: make([]ConfigSource, 0),
	}
}

// AddSource adds a configuration source.
func (cl *ConfigLoader) AddSource(source ConfigSource) {
	cl.sources = append(cl.sources, source)
}

// Load loads configuration from all sources, merging them by priority.
func (cl *ConfigLoader) Load() (*Config, error) {
	cl.sortSourcesByPriority()

	cfg := Default()

	for _, source := range cl.sources {
		sourceConfig, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load from source %s: %w", source.Name(), err)
		}

		cfg = cl.mergeConfigs(cfg, sourceConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file.
func (cl *ConfigLoader) LoadFromFile(filePath string) (*Config, error) {
	source := &FileConfigSource{
		path:     filePath,
		priority: 100, // High priority for explicit file loading
	}

	cl.sources = []ConfigSource{source}
	return cl.Load()
}

// LoadFromEnvironment loads configuration from environment variables.
func (cl *ConfigLoader) LoadFromEnvironment(prefix string) (*Config, error) {
	source := &EnvironmentConfigSource{
		prefix:   prefix,
		priority: 50, // Medium priority for environment variables
	}

	cl.sources = []ConfigSource{source}
	return cl.Load()
}

// LoadFromMultipleSources loads configuration from multiple sources.
func (cl *ConfigLoader) LoadFromMultipleSources(sources []ConfigSource) (*Config, error) {
	cl.sources = sources
	return cl.Load()
}

// Private methods

func (cl *ConfigLoader) sortSourcesByPriority() {
	// Simple bubble sort by priority (lowest first, so Load merges the
	// highest-priority source last and it wins); the source count is
	// small (file/env/default) so this never matters for performance.
	for i := 0; i < len(cl.sources)-1; i++ {
		for j := 0; j < len(cl.sources)-i-1; j++ {
			if cl.sources[j].Priority() > cl.sources[j+1].Priority() {
				cl.sources[j], cl.sources[j+1] = cl.sources[j+1], cl.sources[j]
			}
		}
	}
}

func (cl *ConfigLoader) mergeConfigs(base, override *Config) *Config {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}

	merged := cl.deepCopyConfig(base)

	if override.Mode != "" {
		merged.Mode = override.Mode
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.StateDir != "" {
		merged.StateDir = override.StateDir
	}
	if override.CacheDir != "" {
		merged.CacheDir = override.CacheDir
	}

	merged.Archive = cl.mergeArchiveConfig(merged.Archive, override.Archive)
	merged.Storage = cl.mergeStorageConfig(merged.Storage, override.Storage)
	merged.StringDict = cl.mergeStringDictConfig(merged.StringDict, override.StringDict)
	merged.Metrics = cl.mergeMetricsConfig(merged.Metrics, override.Metrics)
	merged.Watch = cl.mergeWatchConfig(merged.Watch, override.Watch)
	merged.CLI = cl.mergeCLIConfig(merged.CLI, override.CLI)

	return merged
}

func (cl *ConfigLoader) deepCopyConfig(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}

	var cp Config
	if err := json.Unmarshal(data, &cp); err != nil {
		return cfg
	}

	return &cp
}

func (cl *ConfigLoader) mergeArchiveConfig(base, override ArchiveConfig) ArchiveConfig {
	merged := base

	if override.DefaultMask != 0 {
		merged.DefaultMask = override.DefaultMask
	}
	if override.MaxRecordTableSize != 0 {
		merged.MaxRecordTableSize = override.MaxRecordTableSize
	}
	if override.StageDir != "" {
		merged.StageDir = override.StageDir
	}

	return merged
}

func (cl *ConfigLoader) mergeStorageConfig(base, override StorageConfig) StorageConfig {
	merged := base

	if override.Backend != "" {
		merged.Backend = override.Backend
	}
	if override.LocalPath != "" {
		merged.LocalPath = override.LocalPath
	}

	if override.S3.Bucket != "" || override.S3.Region != "" || override.S3.Endpoint != "" {
		merged.S3 = override.S3
	}
	if override.GCS.BucketName != "" || override.GCS.ProjectID != "" {
		merged.GCS = override.GCS
	}

	return merged
}

func (cl *ConfigLoader) mergeStringDictConfig(base, override StringDictConfig) StringDictConfig {
	merged := base

	merged.Enabled = override.Enabled
	if override.NumCounters != 0 {
		merged.NumCounters = override.NumCounters
	}
	if override.MaxCostBytes != 0 {
		merged.MaxCostBytes = override.MaxCostBytes
	}

	return merged
}

func (cl *ConfigLoader) mergeMetricsConfig(base, override MetricsConfig) MetricsConfig {
	merged := base

	merged.Enabled = override.Enabled
	if override.Addr != "" {
		merged.Addr = override.Addr
	}

	return merged
}

func (cl *ConfigLoader) mergeWatchConfig(base, override WatchConfig) WatchConfig {
	merged := base

	if override.DebounceInterval != 0 {
		merged.DebounceInterval = override.DebounceInterval
	}

	return merged
}

func (cl *ConfigLoader) mergeCLIConfig(base, override CLIConfig) CLIConfig {
	merged := base

	if override.DefaultFormat != "" {
		merged.DefaultFormat = override.DefaultFormat
	}
	if override.Parallel != 0 {
		merged.Parallel = override.Parallel
	}

	return merged
}

// FileConfigSource implementation

func (fcs *FileConfigSource) Load() (*Config, error) {
	file, err := os.Open(fcs.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config

	if strings.HasSuffix(strings.ToLower(fcs.path), ".yml") || strings.HasSuffix(strings.ToLower(fcs.path), ".yaml") {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}

	return &cfg, nil
}

func (fcs *FileConfigSource) Priority() int {
	return fcs.priority
}

func (fcs *FileConfigSource) Name() string {
	return fmt.Sprintf("file:%s", fcs.path)
}

// EnvironmentConfigSource implementation

func (ecs *EnvironmentConfigSource) Load() (*Config, error) {
	cfg := &Config{}

	cfg.Mode = Mode(os.Getenv(ecs.prefix + "MODE"))
	cfg.Version = os.Getenv(ecs.prefix + "VERSION")
	cfg.StateDir = os.Getenv(ecs.prefix + "STATE_DIR")
	cfg.CacheDir = os.Getenv(ecs.prefix + "CACHE_DIR")

	if os.Getenv(ecs.prefix+"DEFAULT_MASK") != "" {
		cfg.Archive = ArchiveConfig{
			DefaultMask:        uint32(ecs.getEnvInt(ecs.prefix+"DEFAULT_MASK", 0)),
			MaxRecordTableSize: int64(ecs.getEnvInt(ecs.prefix+"MAX_RECORD_TABLE_SIZE", 0)),
			StageDir:           os.Getenv(ecs.prefix + "STAGE_DIR"),
		}
	}

	if backend := os.Getenv(ecs.prefix + "STORAGE_BACKEND"); backend != "" {
		cfg.Storage = StorageConfig{
			Backend:   backend,
			LocalPath: os.Getenv(ecs.prefix + "STORAGE_PATH"),
			S3: S3Config{
				Bucket: os.Getenv(ecs.prefix + "S3_BUCKET"),
				Region: os.Getenv(ecs.prefix + "S3_REGION"),
			},
			GCS: GCSConfig{
				BucketName: os.Getenv(ecs.prefix + "GCS_BUCKET"),
				ProjectID:  os.Getenv(ecs.prefix + "GCS_PROJECT"),
			},
		}
	}

	cfg.StringDict = StringDictConfig{
		Enabled:      ecs.getEnvBool(ecs.prefix+"STRDICT_ENABLED", true),
		NumCounters:  int64(ecs.getEnvInt(ecs.prefix+"STRDICT_NUM_COUNTERS", 0)),
		MaxCostBytes: int64(ecs.getEnvInt(ecs.prefix+"STRDICT_MAX_COST_BYTES", 0)),
	}

	if os.Getenv(ecs.prefix+"METRICS_ENABLED") != "" {
		cfg.Metrics = MetricsConfig{
			Enabled: ecs.getEnvBool(ecs.prefix+"METRICS_ENABLED", false),
			Addr:    os.Getenv(ecs.prefix + "METRICS_ADDR"),
		}
	}

	if os.Getenv(ecs.prefix+"WATCH_DEBOUNCE") != "" {
		cfg.Watch = WatchConfig{
			DebounceInterval: ecs.getEnvDuration(ecs.prefix+"WATCH_DEBOUNCE", 0),
		}
	}

	cfg.CLI = CLIConfig{
		DefaultFormat: os.Getenv(ecs.prefix + "FORMAT"),
		Parallel:      ecs.getEnvInt(ecs.prefix+"PARALLEL", 0),
	}

	return cfg, nil
}

func (ecs *EnvironmentConfigSource) Priority() int {
	return ecs.priority
}

func (ecs *EnvironmentConfigSource) Name() string {
	return fmt.Sprintf("environment:%s", ecs.prefix)
}

// DefaultConfigSource implementation

func (dcs *DefaultConfigSource) Load() (*Config, error) {
	return Default(), nil
}

func (dcs *DefaultConfigSource) Priority() int {
	return dcs.priority
}

func (dcs *DefaultConfigSource) Name() string {
	return "default"
}

// Helper functions for environment variable parsing

func (ecs *EnvironmentConfigSource) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func (ecs *EnvironmentConfigSource) getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func (ecs *EnvironmentConfigSource) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
