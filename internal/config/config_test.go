package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ModeDefault, cfg.Mode)
	assert.Equal(t, "0.1.0", cfg.Version)
	assert.NotEmpty(t, cfg.StateDir)
	assert.NotEmpty(t, cfg.CacheDir)

	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Storage.LocalPath)

	assert.True(t, cfg.StringDict.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "text", cfg.CLI.DefaultFormat)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	testConfig := &Config{
		Mode:     ModeReadOptimized,
		Version:  "1.0.0",
		StateDir: "/test/state",
		CacheDir: "/test/cache",
		Archive: ArchiveConfig{
			DefaultMask:        0xFF,
			MaxRecordTableSize: 1024,
		},
		Storage: StorageConfig{
			Backend: "s3",
			S3: S3Config{
				Bucket: "test-bucket",
				Region: "us-east-1",
			},
		},
		StringDict: StringDictConfig{
			Enabled:      true,
			NumCounters:  100,
			MaxCostBytes: 1024,
		},
		CLI: CLIConfig{
			DefaultFormat: "json",
		},
	}

	data, err := json.Marshal(testConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	cfg := Default()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, ModeReadOptimized, cfg.Mode)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "test-bucket", cfg.Storage.S3.Bucket)
	assert.Equal(t, "json", cfg.CLI.DefaultFormat)
}

func TestLoadFromFileYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	yamlContent := `
mode: read-optimized
version: "2.0.0"
storage:
  backend: gcs
  gcs:
    bucket_name: archives
cli:
  default_format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg := Default()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, ModeReadOptimized, cfg.Mode)
	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, "gcs", cfg.Storage.Backend)
	assert.Equal(t, "archives", cfg.Storage.GCS.BucketName)
}

func TestLoadFromFileEnvSubstitution(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	os.Setenv("CARBON_TEST_BUCKET", "from-env-bucket")
	defer os.Unsetenv("CARBON_TEST_BUCKET")

	yamlContent := `
storage:
  backend: s3
  s3:
    bucket: ${CARBON_TEST_BUCKET}
    region: ${CARBON_TEST_REGION:-us-west-2}
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg := Default()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, "from-env-bucket", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-west-2", cfg.Storage.S3.Region)
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("CARBON_MODE", "read-optimized")
	os.Setenv("CARBON_STORAGE_BACKEND", "s3")
	os.Setenv("CARBON_S3_BUCKET", "env-bucket")
	os.Setenv("CARBON_FORMAT", "json")
	defer func() {
		os.Unsetenv("CARBON_MODE")
		os.Unsetenv("CARBON_STORAGE_BACKEND")
		os.Unsetenv("CARBON_S3_BUCKET")
		os.Unsetenv("CARBON_FORMAT")
	}()

	cfg := Default()
	cfg.LoadFromEnv()

	assert.Equal(t, ModeReadOptimized, cfg.Mode)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "env-bucket", cfg.Storage.S3.Bucket)
	assert.Equal(t, "json", cfg.CLI.DefaultFormat)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"invalid mode", func(c *Config) { c.Mode = "bogus" }, true},
		{"invalid backend", func(c *Config) { c.Storage.Backend = "azure" }, true},
		{"s3 missing bucket", func(c *Config) { c.Storage.Backend = "s3" }, true},
		{"gcs missing bucket", func(c *Config) { c.Storage.Backend = "gcs" }, true},
		{"invalid format", func(c *Config) { c.CLI.DefaultFormat = "xml" }, true},
		{"negative parallel", func(c *Config) { c.CLI.Parallel = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.StateDir = filepath.Join(tmpDir, "state")
	cfg.CacheDir = filepath.Join(tmpDir, "cache")
	cfg.Archive.StageDir = filepath.Join(tmpDir, "stage")
	cfg.Storage.LocalPath = filepath.Join(tmpDir, "archives")

	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.StateDir, cfg.CacheDir, cfg.Archive.StageDir, cfg.Storage.LocalPath} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSaveOmitsSensitiveFields(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "saved.json")

	cfg := Default()
	cfg.Storage.S3.AccessKeyID = "AKIA_SECRET"
	cfg.Storage.S3.SecretAccessKey = "shh"

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "AKIA_SECRET")
	assert.NotContains(t, string(data), "shh")
}

func TestGetConfigPathEnvOverride(t *testing.T) {
	os.Setenv("CARBON_CONFIG", "/custom/path.yaml")
	defer os.Unsetenv("CARBON_CONFIG")

	assert.Equal(t, "/custom/path.yaml", GetConfigPath())
}

func TestConfigLoaderMergesByPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	fileConfig := &Config{
		CLI: CLIConfig{DefaultFormat: "json"},
	}
	data, err := json.Marshal(fileConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	loader := NewConfigLoader()
	cfg, err := loader.LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.CLI.DefaultFormat)
	// Storage.Backend, which the file source leaves empty, keeps its
	// Default() value. The StringDict and Metrics Enabled flags are the
	// exception: every source's value replaces them, set or not.
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestConfigLoaderSourcePriorityOrder(t *testing.T) {
	low := &stubSource{name: "low", priority: 1, cfg: &Config{CLI: CLIConfig{DefaultFormat: "text"}}}
	high := &stubSource{name: "high", priority: 10, cfg: &Config{CLI: CLIConfig{DefaultFormat: "json"}}}

	loader := NewConfigLoader()
	loader.AddSource(low)
	loader.AddSource(high)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.CLI.DefaultFormat)
}

type stubSource struct {
	name     string
	priority int
	cfg      *Config
}

func (s *stubSource) Load() (*Config, error) { return s.cfg, nil }
func (s *stubSource) Priority() int          { return s.priority }
func (s *stubSource) Name() string           { return s.name }
