// Package main implements the groupbench binary.
// It runs one plain-versus-compressed storage benchmark and prints the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arkilian/groupbench/internal/bench"
	"github.com/arkilian/groupbench/internal/config"
	"github.com/arkilian/groupbench/internal/storage"
	"github.com/joho/godotenv"
)

var (
	version = "dev"
	commit  = "unknown"
)

type flags struct {
	configFile   string
	envFile      string
	dataDir      string
	records      int
	groups       int
	payloadSize  int
	level        int
	workers      int
	seed         int64
	codec        string
	distribution string
	payloadMode  string
	batchSize    int
	noDecode     bool
	jsonOut      string
	publish      bool
	prefix       string
	listRuns     bool
	showRun      string
	quiet        bool
	showVersion  bool
	showHelp     bool
}

func main() {
	os.Exit(run())
}

// run executes the command and returns the process exit code: 0 for a
// verified run, 1 on error and 2 when the stores did not match.
func run() int {
	var f flags

	flag.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&f.envFile, "env-file", ".env", "Optional .env file with GROUPBENCH_* variables")
	flag.StringVar(&f.dataDir, "data-dir", "", "Directory for the store artifacts")
	flag.IntVar(&f.records, "records", 0, "Number of records to generate")
	flag.IntVar(&f.groups, "groups", 0, "Number of distinct group keys")
	flag.IntVar(&f.payloadSize, "payload-size", 0, "Payload size in bytes")
	flag.IntVar(&f.level, "level", 0, "Compression level (-1 = codec default)")
	flag.IntVar(&f.workers, "workers", 0, "Compression worker pool size (0 = number of CPUs)")
	flag.Int64Var(&f.seed, "seed", 0, "Random seed")
	flag.StringVar(&f.codec, "codec", "", "Codec: zlib, flate, snappy")
	flag.StringVar(&f.distribution, "distribution", "", "Group distribution: random, round_robin")
	flag.StringVar(&f.payloadMode, "payload", "", "Payload mode: trade, random, constant")
	flag.IntVar(&f.batchSize, "batch-size", 0, "Rows per insert transaction (0 = one transaction)")
	flag.BoolVar(&f.noDecode, "no-decode", false, "Exclude block decoding from the compressed read")
	flag.StringVar(&f.jsonOut, "json", "", "Write the result as JSON to this file")
	flag.BoolVar(&f.publish, "publish", false, "Publish artifacts after the run")
	flag.StringVar(&f.prefix, "publish-prefix", "", "Object prefix for published runs")
	flag.BoolVar(&f.listRuns, "list-runs", false, "List published runs and exit")
	flag.StringVar(&f.showRun, "show-run", "", "Print the report of a published run and exit")
	flag.BoolVar(&f.quiet, "quiet", false, "Suppress stage progress logging")
	flag.BoolVar(&f.showVersion, "version", false, "Show version information")
	flag.BoolVar(&f.showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "groupbench - plain rows versus compressed group blobs in SQLite\n\n")
		fmt.Fprintf(os.Stderr, "Usage: groupbench [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  groupbench --records 1000000 --groups 1000\n")
		fmt.Fprintf(os.Stderr, "  groupbench --config bench.yaml --json result.json\n")
		fmt.Fprintf(os.Stderr, "  groupbench --publish --publish-prefix nightly\n")
		fmt.Fprintf(os.Stderr, "  groupbench --list-runs --publish-prefix nightly\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GROUPBENCH_RECORD_COUNT      Number of records\n")
		fmt.Fprintf(os.Stderr, "  GROUPBENCH_GROUP_COUNT       Number of groups\n")
		fmt.Fprintf(os.Stderr, "  GROUPBENCH_CODEC             Codec (zlib, flate, snappy)\n")
		fmt.Fprintf(os.Stderr, "  GROUPBENCH_DATA_DIR          Directory for store artifacts\n")
		fmt.Fprintf(os.Stderr, "  GROUPBENCH_PUBLISH_TYPE      Artifact storage (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  GROUPBENCH_PUBLISH_PREFIX    Object prefix for published runs\n")
	}

	flag.Parse()

	if f.showHelp {
		flag.Usage()
		return 0
	}

	if f.showVersion {
		fmt.Printf("groupbench version %s (commit: %s)\n", version, commit)
		return 0
	}

	cfg, err := loadConfig(f)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	browsing := f.listRuns || f.showRun != ""
	if browsing {
		// read from where -publish writes
		cfg.Publish.Enabled = true
	}
	cfg.Resolve()

	if browsing {
		if err := browse(ctx, cfg.Publish, f); err != nil {
			log.Printf("Failed to read published runs: %v", err)
			return 1
		}
		return 0
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 1
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Printf("Failed to create directories: %v", err)
		return 1
	}

	printBanner(cfg)

	opts := []bench.RunnerOption{}
	if !f.quiet {
		opts = append(opts, bench.WithLogger(log.Default()))
	}
	runner, err := bench.NewRunner(cfg, opts...)
	if err != nil {
		log.Printf("Failed to create runner: %v", err)
		return 1
	}

	res, err := runner.Run(ctx)
	if err != nil {
		log.Printf("Benchmark aborted: %v", err)
		return 1
	}

	if err := res.WriteTable(os.Stdout); err != nil {
		log.Printf("Failed to write report: %v", err)
		return 1
	}

	if f.jsonOut != "" {
		if err := writeJSON(f.jsonOut, res); err != nil {
			log.Printf("Failed to write result: %v", err)
			return 1
		}
		log.Printf("Result written to %s", f.jsonOut)
	}

	if cfg.Publish.Enabled {
		if err := publish(ctx, cfg.Publish, res); err != nil {
			log.Printf("Failed to publish artifacts: %v", err)
			return 1
		}
	}

	if !res.Verified() {
		return 2
	}
	return 0
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(f flags) (config.Config, error) {
	// a missing .env file is not an error
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil && !os.IsNotExist(err) {
			return config.Config{}, fmt.Errorf("failed to load %s: %w", f.envFile, err)
		}
	}

	cfg := config.DefaultConfig()
	if f.configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(f.configFile)
		if err != nil {
			return cfg, err
		}
	}

	if err := config.LoadFromEnv(&cfg); err != nil {
		return cfg, err
	}

	// Apply command line flags (highest priority)
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data-dir":
			cfg.DataDir = f.dataDir
			cfg.PlainPath, cfg.CompressedPath = "", ""
		case "records":
			cfg.RecordCount = f.records
		case "groups":
			cfg.GroupCount = f.groups
		case "payload-size":
			cfg.PayloadSize = f.payloadSize
		case "level":
			cfg.CompressionLevel = f.level
		case "workers":
			cfg.WorkerPoolSize = f.workers
		case "seed":
			cfg.RandomSeed = f.seed
		case "codec":
			cfg.Codec = f.codec
		case "distribution":
			cfg.Distribution = config.Distribution(f.distribution)
		case "payload":
			cfg.PayloadMode = config.PayloadMode(f.payloadMode)
		case "batch-size":
			cfg.InsertBatchSize = f.batchSize
		case "no-decode":
			cfg.DecodeOnRead = !f.noDecode
		case "publish":
			cfg.Publish.Enabled = f.publish
		case "publish-prefix":
			cfg.Publish.Prefix = f.prefix
		}
	})

	return cfg, nil
}

func writeJSON(path string, res *bench.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WriteJSON(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// openStorage connects to the configured artifact storage.
func openStorage(ctx context.Context, cfg config.PublishConfig) (storage.ArtifactStorage, error) {
	if cfg.Type == "s3" {
		return storage.NewS3Storage(ctx, cfg.S3.Bucket, storage.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	}
	return storage.NewLocalStorage(cfg.Path)
}

// publish uploads the run artifacts to the configured object storage.
func publish(ctx context.Context, cfg config.PublishConfig, res *bench.Result) error {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	artifacts, err := bench.Publish(ctx, st, cfg.Prefix, res)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		log.Printf("Published %s (md5 %s)", a.ObjectPath, a.MD5)
	}
	return nil
}

// browse lists published runs or prints the report of one of them.
func browse(ctx context.Context, cfg config.PublishConfig, f flags) error {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	if f.showRun != "" {
		res, err := bench.LoadPublished(ctx, st, cfg.Prefix, f.showRun)
		if err != nil {
			return err
		}
		return res.WriteTable(os.Stdout)
	}

	runIDs, err := bench.ListPublished(ctx, st, cfg.Prefix)
	if err != nil {
		return err
	}
	for _, id := range runIDs {
		fmt.Println(id)
	}
	return nil
}

// printBanner prints the run configuration summary.
func printBanner(cfg config.Config) {
	log.Printf("groupbench %s", version)
	log.Printf("Configuration:")
	log.Printf("  Records:    %d", cfg.RecordCount)
	log.Printf("  Groups:     %d", cfg.GroupCount)
	log.Printf("  Payload:    %d bytes (%s)", cfg.PayloadSize, cfg.PayloadMode)
	log.Printf("  Codec:      %s (level %d)", cfg.Codec, cfg.CompressionLevel)
	log.Printf("  Workers:    %d", cfg.WorkerPoolSize)
	log.Printf("  Seed:       %d", cfg.RandomSeed)
	log.Printf("  Plain:      %s", cfg.PlainPath)
	log.Printf("  Compressed: %s", cfg.CompressedPath)
	if cfg.Publish.Enabled {
		log.Printf("  Publish:    %s %s", cfg.Publish.Type, cfg.Publish.Prefix)
	}
	log.Printf("")
}
