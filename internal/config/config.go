// Package config provides the benchmark configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"gopkg.in/yaml.v3"
)

// Distribution selects how group keys are assigned to records.
type Distribution string

const (
	DistributionRandom     Distribution = "random"
	DistributionRoundRobin Distribution = "round_robin"
)

// PayloadMode selects how record payloads are generated.
type PayloadMode string

const (
	// PayloadTrade renders a synthetic trade (side, symbol, quantity, price).
	PayloadTrade PayloadMode = "trade"
	// PayloadRandom fills payloads with random letters.
	PayloadRandom PayloadMode = "random"
	// PayloadConstant gives every record of a group the same payload.
	PayloadConstant PayloadMode = "constant"
)

// Codec names.
const (
	CodecZlib   = "zlib"
	CodecFlate  = "flate"
	CodecSnappy = "snappy"
)

// Config holds the configuration for one benchmark run. It is passed by
// value; nothing in the module reads process-wide settings.
type Config struct {
	// RecordCount is the number of records to generate
	RecordCount int `json:"record_count" yaml:"record_count"`

	// GroupCount is the number of distinct group keys
	GroupCount int `json:"group_count" yaml:"group_count"`

	// PayloadSize is the payload length in bytes
	PayloadSize int `json:"payload_size" yaml:"payload_size"`

	// CompressionLevel is passed to the codec (-1 = codec default)
	CompressionLevel int `json:"compression_level" yaml:"compression_level"`

	// WorkerPoolSize caps parallel compression (0 = number of CPUs)
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"`

	// RandomSeed fixes the generated dataset
	RandomSeed int64 `json:"random_seed" yaml:"random_seed"`

	// Codec is zlib, flate or snappy
	Codec string `json:"codec" yaml:"codec"`

	Distribution Distribution `json:"distribution" yaml:"distribution"`
	PayloadMode  PayloadMode  `json:"payload_mode" yaml:"payload_mode"`

	// InsertBatchSize is the number of rows per transaction (0 = one transaction)
	InsertBatchSize int `json:"insert_batch_size" yaml:"insert_batch_size"`

	// DecodeOnRead includes block decompression in the compressed read timing
	DecodeOnRead bool `json:"decode_on_read" yaml:"decode_on_read"`

	// DataDir is the base directory for store artifacts
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// PlainPath is the plain store file (default <data_dir>/plain.db)
	PlainPath string `json:"plain_path" yaml:"plain_path"`

	// CompressedPath is the compressed store file (default <data_dir>/compressed.db)
	CompressedPath string `json:"compressed_path" yaml:"compressed_path"`

	// Publish configures artifact upload after a run
	Publish PublishConfig `json:"publish" yaml:"publish"`
}

// PublishConfig holds artifact publishing configuration.
type PublishConfig struct {
	// Enabled turns on artifact upload after REPORT
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to every object path
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle addresses buckets as <endpoint>/<bucket> (MinIO, LocalStack)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration. One million records
// keeps a run to a few seconds.
func DefaultConfig() Config {
	return Config{
		RecordCount:      1_000_000,
		GroupCount:       1000,
		PayloadSize:      32,
		CompressionLevel: -1,
		WorkerPoolSize:   0,
		RandomSeed:       1,
		Codec:            CodecZlib,
		Distribution:     DistributionRandom,
		PayloadMode:      PayloadTrade,
		InsertBatchSize:  0,
		DecodeOnRead:     true,
		DataDir:          "./data/groupbench",
		Publish: PublishConfig{
			Type:   "local",
			Prefix: "runs",
		},
	}
}

// Resolve fills derived defaults: store paths from DataDir and the pool
// size from the CPU count.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/groupbench"
	}
	if c.PlainPath == "" {
		c.PlainPath = filepath.Join(c.DataDir, "plain.db")
	}
	if c.CompressedPath == "" {
		c.CompressedPath = filepath.Join(c.DataDir, "compressed.db")
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = runtime.NumCPU()
	}
	if c.Codec == "" {
		c.Codec = CodecZlib
	}
	if c.Distribution == "" {
		c.Distribution = DistributionRandom
	}
	if c.PayloadMode == "" {
		c.PayloadMode = PayloadTrade
	}
	if c.Publish.Enabled && c.Publish.Type == "local" && c.Publish.Path == "" {
		c.Publish.Path = filepath.Join(c.DataDir, "artifacts")
	}
}

// Validate checks the configuration. Every failure is a CONFIG error naming
// the offending field.
func (c Config) Validate() error {
	if c.RecordCount < 0 {
		return benchErrors.NewConfigError("record_count",
			fmt.Sprintf("record_count must be >= 0, got %d", c.RecordCount))
	}
	if c.RecordCount > 0 {
		if c.GroupCount < 1 {
			return benchErrors.NewConfigError("group_count",
				fmt.Sprintf("group_count must be >= 1, got %d", c.GroupCount))
		}
		if c.GroupCount > c.RecordCount {
			return benchErrors.NewConfigError("group_count",
				fmt.Sprintf("group_count (%d) must not exceed record_count (%d) so that every group is non-empty",
					c.GroupCount, c.RecordCount))
		}
	} else if c.GroupCount < 0 {
		return benchErrors.NewConfigError("group_count",
			fmt.Sprintf("group_count must be >= 0, got %d", c.GroupCount))
	}
	if c.PayloadSize < 0 {
		return benchErrors.NewConfigError("payload_size",
			fmt.Sprintf("payload_size must be >= 0, got %d", c.PayloadSize))
	}
	if c.WorkerPoolSize < 1 {
		return benchErrors.NewConfigError("worker_pool_size",
			fmt.Sprintf("worker_pool_size must be >= 1, got %d", c.WorkerPoolSize))
	}
	if c.InsertBatchSize < 0 {
		return benchErrors.NewConfigError("insert_batch_size",
			fmt.Sprintf("insert_batch_size must be >= 0, got %d", c.InsertBatchSize))
	}

	switch c.Codec {
	case CodecZlib, CodecFlate:
		if c.CompressionLevel < -1 || c.CompressionLevel > 9 {
			return benchErrors.NewConfigError("compression_level",
				fmt.Sprintf("compression_level must be between -1 and 9, got %d", c.CompressionLevel))
		}
	case CodecSnappy:
		// snappy has no levels
	default:
		return benchErrors.NewConfigError("codec",
			fmt.Sprintf("invalid codec: %s (must be zlib, flate, or snappy)", c.Codec))
	}

	switch c.Distribution {
	case DistributionRandom, DistributionRoundRobin:
	default:
		return benchErrors.NewConfigError("distribution",
			fmt.Sprintf("invalid distribution: %s (must be random or round_robin)", c.Distribution))
	}

	switch c.PayloadMode {
	case PayloadTrade, PayloadRandom, PayloadConstant:
	default:
		return benchErrors.NewConfigError("payload_mode",
			fmt.Sprintf("invalid payload_mode: %s (must be trade, random, or constant)", c.PayloadMode))
	}

	if c.PlainPath == "" || c.CompressedPath == "" {
		return benchErrors.NewConfigError("data_dir", "store paths are required")
	}
	if filepath.Clean(c.PlainPath) == filepath.Clean(c.CompressedPath) {
		return benchErrors.NewConfigError("compressed_path", "plain and compressed store paths must differ")
	}

	if c.Publish.Enabled {
		if c.Publish.Type != "local" && c.Publish.Type != "s3" {
			return benchErrors.NewConfigError("publish.type",
				fmt.Sprintf("invalid publish type: %s (must be local or s3)", c.Publish.Type))
		}
		if c.Publish.Type == "s3" && c.Publish.S3.Bucket == "" {
			return benchErrors.NewConfigError("publish.s3.bucket", "publish.s3.bucket is required when publish type is s3")
		}
		if c.Publish.Type == "local" && c.Publish.Path == "" {
			return benchErrors.NewConfigError("publish.path", "publish.path is required when publish type is local")
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeConfigLoad,
			"failed to read config file", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeConfigLoad,
				"failed to parse YAML config", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeConfigLoad,
				"failed to parse JSON config", err)
		}
	default:
		return cfg, benchErrors.New(benchErrors.ErrCategoryConfig, benchErrors.CodeConfigLoad,
			fmt.Sprintf("unsupported config file format: %s", ext))
	}

	return cfg, nil
}

// LoadFromEnv applies GROUPBENCH_* environment variables to cfg.
// Malformed numbers are reported rather than ignored.
func LoadFromEnv(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"GROUPBENCH_RECORD_COUNT", &cfg.RecordCount},
		{"GROUPBENCH_GROUP_COUNT", &cfg.GroupCount},
		{"GROUPBENCH_PAYLOAD_SIZE", &cfg.PayloadSize},
		{"GROUPBENCH_COMPRESSION_LEVEL", &cfg.CompressionLevel},
		{"GROUPBENCH_WORKER_POOL_SIZE", &cfg.WorkerPoolSize},
		{"GROUPBENCH_INSERT_BATCH_SIZE", &cfg.InsertBatchSize},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeConfigLoad,
					fmt.Sprintf("invalid %s", e.name), err)
			}
			*e.dst = n
		}
	}

	if v := os.Getenv("GROUPBENCH_RANDOM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeConfigLoad,
				"invalid GROUPBENCH_RANDOM_SEED", err)
		}
		cfg.RandomSeed = n
	}
	if v := os.Getenv("GROUPBENCH_DECODE_ON_READ"); v != "" {
		cfg.DecodeOnRead = v == "true" || v == "1"
	}
	if v := os.Getenv("GROUPBENCH_CODEC"); v != "" {
		cfg.Codec = v
	}
	if v := os.Getenv("GROUPBENCH_DISTRIBUTION"); v != "" {
		cfg.Distribution = Distribution(v)
	}
	if v := os.Getenv("GROUPBENCH_PAYLOAD_MODE"); v != "" {
		cfg.PayloadMode = PayloadMode(v)
	}
	if v := os.Getenv("GROUPBENCH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Publish configuration
	if v := os.Getenv("GROUPBENCH_PUBLISH_ENABLED"); v != "" {
		cfg.Publish.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("GROUPBENCH_PUBLISH_TYPE"); v != "" {
		cfg.Publish.Type = v
	}
	if v := os.Getenv("GROUPBENCH_PUBLISH_PATH"); v != "" {
		cfg.Publish.Path = v
	}
	if v := os.Getenv("GROUPBENCH_PUBLISH_PREFIX"); v != "" {
		cfg.Publish.Prefix = v
	}
	if v := os.Getenv("GROUPBENCH_S3_BUCKET"); v != "" {
		cfg.Publish.S3.Bucket = v
	}
	if v := os.Getenv("GROUPBENCH_S3_REGION"); v != "" {
		cfg.Publish.S3.Region = v
	}
	if v := os.Getenv("GROUPBENCH_S3_ENDPOINT"); v != "" {
		cfg.Publish.S3.Endpoint = v
	}
	if v := os.Getenv("GROUPBENCH_S3_USE_PATH_STYLE"); v != "" {
		cfg.Publish.S3.UsePathStyle = v == "true" || v == "1"
	}

	return nil
}

// EnsureDirectories creates the parent directories of both store artifacts.
func (c Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.PlainPath),
		filepath.Dir(c.CompressedPath),
	}
	if c.Publish.Enabled && c.Publish.Type == "local" {
		dirs = append(dirs, c.Publish.Path)
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
