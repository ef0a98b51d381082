package config

import (
	"os"
	"path/filepath"
	"testing"

	benchErrors "github.com/arkilian/groupbench/internal/errors"
)

func resolved(mutate func(*Config)) Config {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/groupbench-test"
	if mutate != nil {
		mutate(&cfg)
	}
	cfg.Resolve()
	return cfg
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := resolved(nil)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.WorkerPoolSize < 1 {
		t.Errorf("Resolve should set worker pool size, got %d", cfg.WorkerPoolSize)
	}
	if cfg.PlainPath != filepath.Join("/tmp/groupbench-test", "plain.db") {
		t.Errorf("unexpected plain path %s", cfg.PlainPath)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative records", func(c *Config) { c.RecordCount = -1 }, "record_count"},
		{"zero groups", func(c *Config) { c.RecordCount = 10; c.GroupCount = 0 }, "group_count"},
		{"more groups than records", func(c *Config) { c.RecordCount = 3; c.GroupCount = 4 }, "group_count"},
		{"negative payload", func(c *Config) { c.PayloadSize = -5 }, "payload_size"},
		{"bad level", func(c *Config) { c.CompressionLevel = 12 }, "compression_level"},
		{"bad codec", func(c *Config) { c.Codec = "lz4" }, "codec"},
		{"bad distribution", func(c *Config) { c.Distribution = "zipf" }, "distribution"},
		{"bad payload mode", func(c *Config) { c.PayloadMode = "json" }, "payload_mode"},
		{"same paths", func(c *Config) { c.PlainPath = "/tmp/x.db"; c.CompressedPath = "/tmp/x.db" }, "compressed_path"},
		{"s3 without bucket", func(c *Config) { c.Publish.Enabled = true; c.Publish.Type = "s3" }, "publish.s3.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := resolved(tt.mutate)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if benchErrors.GetCategory(err) != benchErrors.ErrCategoryConfig {
				t.Errorf("expected CONFIG category, got %q", benchErrors.GetCategory(err))
			}
			if v, _ := benchErrors.GetDetail(err, benchErrors.DetailField); v != tt.field {
				t.Errorf("expected field %q, got %v", tt.field, v)
			}
		})
	}
}

func TestValidate_ZeroRecords(t *testing.T) {
	cfg := resolved(func(c *Config) { c.RecordCount = 0; c.GroupCount = 5 })
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero records should be valid: %v", err)
	}
}

func TestValidate_SnappyIgnoresLevel(t *testing.T) {
	cfg := resolved(func(c *Config) { c.Codec = CodecSnappy; c.CompressionLevel = 42 })
	if err := cfg.Validate(); err != nil {
		t.Errorf("snappy should ignore compression level: %v", err)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := `
record_count: 500
group_count: 5
payload_size: 16
compression_level: 9
worker_pool_size: 2
random_seed: 7
codec: flate
distribution: round_robin
payload_mode: constant
publish:
  enabled: true
  type: s3
  s3:
    bucket: bench-artifacts
    use_path_style: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.RecordCount != 500 || cfg.GroupCount != 5 || cfg.PayloadSize != 16 {
		t.Errorf("unexpected sizes: %+v", cfg)
	}
	if cfg.CompressionLevel != 9 || cfg.WorkerPoolSize != 2 || cfg.RandomSeed != 7 {
		t.Errorf("unexpected tuning: %+v", cfg)
	}
	if cfg.Codec != CodecFlate || cfg.Distribution != DistributionRoundRobin || cfg.PayloadMode != PayloadConstant {
		t.Errorf("unexpected modes: %+v", cfg)
	}
	if !cfg.DecodeOnRead {
		t.Error("unset fields should keep defaults")
	}
	if cfg.Publish.S3.Bucket != "bench-artifacts" || !cfg.Publish.S3.UsePathStyle {
		t.Errorf("unexpected s3 config %+v", cfg.Publish.S3)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	if err := os.WriteFile(path, []byte(`{"record_count": 42, "group_count": 2}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.RecordCount != 42 || cfg.GroupCount != 2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.toml")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GROUPBENCH_RECORD_COUNT", "1234")
	t.Setenv("GROUPBENCH_RANDOM_SEED", "99")
	t.Setenv("GROUPBENCH_CODEC", "snappy")
	t.Setenv("GROUPBENCH_DECODE_ON_READ", "false")

	cfg := DefaultConfig()
	if err := LoadFromEnv(&cfg); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.RecordCount != 1234 || cfg.RandomSeed != 99 || cfg.Codec != CodecSnappy {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DecodeOnRead {
		t.Error("expected DecodeOnRead=false")
	}
}

func TestLoadFromEnv_Publish(t *testing.T) {
	t.Setenv("GROUPBENCH_PUBLISH_ENABLED", "true")
	t.Setenv("GROUPBENCH_PUBLISH_TYPE", "s3")
	t.Setenv("GROUPBENCH_PUBLISH_PREFIX", "nightly/bench")
	t.Setenv("GROUPBENCH_S3_BUCKET", "artifacts")
	t.Setenv("GROUPBENCH_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("GROUPBENCH_S3_USE_PATH_STYLE", "1")

	cfg := DefaultConfig()
	if err := LoadFromEnv(&cfg); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	p := cfg.Publish
	if !p.Enabled || p.Type != "s3" || p.Prefix != "nightly/bench" {
		t.Errorf("unexpected publish config: %+v", p)
	}
	if p.S3.Bucket != "artifacts" || p.S3.Endpoint != "http://localhost:9000" || !p.S3.UsePathStyle {
		t.Errorf("unexpected s3 config: %+v", p.S3)
	}
}

func TestLoadFromEnv_InvalidNumber(t *testing.T) {
	t.Setenv("GROUPBENCH_GROUP_COUNT", "many")

	cfg := DefaultConfig()
	if err := LoadFromEnv(&cfg); err == nil {
		t.Error("expected error for malformed number")
	}
}
