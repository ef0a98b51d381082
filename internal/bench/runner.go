// Package bench drives a benchmark run through its stages and collects the
// measurements of both storage pipelines.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/arkilian/groupbench/internal/codec"
	"github.com/arkilian/groupbench/internal/compressor"
	"github.com/arkilian/groupbench/internal/config"
	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"github.com/arkilian/groupbench/internal/generator"
	"github.com/arkilian/groupbench/internal/store"
	"github.com/arkilian/groupbench/internal/verify"
	"github.com/arkilian/groupbench/pkg/types"
	"github.com/google/uuid"
)

// maxMismatchesPerGroup caps verifier output for a single group.
const maxMismatchesPerGroup = 10

// Runner executes the benchmark state machine. A single goroutine drives
// the stages; only compression and block decoding fan out to the pool.
type Runner struct {
	cfg     config.Config
	logger  *log.Logger
	onStage func(Stage)

	codec      codec.Codec
	gen        *generator.Generator
	compressor *compressor.Compressor
	plain      store.Store[types.PlainRow]
	compressed store.Store[types.CompressedRow]
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger for stage progress. A nil logger discards output.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithStageObserver registers fn to be called on entry to every stage,
// including ABORTED.
func WithStageObserver(fn func(Stage)) RunnerOption {
	return func(r *Runner) {
		r.onStage = fn
	}
}

// WithPlainStore replaces the SQLite plain store.
func WithPlainStore(s store.Store[types.PlainRow]) RunnerOption {
	return func(r *Runner) {
		r.plain = s
	}
}

// WithCompressedStore replaces the SQLite compressed store.
func WithCompressedStore(s store.Store[types.CompressedRow]) RunnerOption {
	return func(r *Runner) {
		r.compressed = s
	}
}

// WithCodec replaces the codec selected by the configuration.
func WithCodec(c codec.Codec) RunnerOption {
	return func(r *Runner) {
		r.codec = c
	}
}

// NewRunner resolves and validates cfg. Invalid configuration is reported
// here, before any stage runs.
func NewRunner(cfg config.Config, opts ...RunnerOption) (*Runner, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}
	if r.codec == nil {
		c, err := codec.New(cfg.Codec, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		r.codec = c
	}
	if r.plain == nil {
		r.plain = store.NewPlainStore(cfg.PlainPath, cfg.InsertBatchSize)
	}
	if r.compressed == nil {
		r.compressed = store.NewCompressedStore(cfg.CompressedPath, cfg.InsertBatchSize)
	}

	r.gen = generator.New(generator.OptionsFromConfig(cfg))
	r.compressor = compressor.New(r.codec, cfg.WorkerPoolSize)
	return r, nil
}

// Config returns the resolved configuration.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run executes every stage in order. A fatal error aborts the run and is
// returned together with the partial result; a verification failure is not
// an error and is reported in Result.Verification.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    r.cfg,
		Plain: PipelineResult{
			Store: r.plain.Name(),
			Path:  r.plain.Path(),
		},
		Compressed: PipelineResult{
			Store: r.compressed.Name(),
			Path:  r.compressed.Path(),
		},
	}
	defer r.closeStores()

	r.logger.Printf("Run %s: %d records, %d groups, codec %s, %d workers",
		res.RunID, r.cfg.RecordCount, r.cfg.GroupCount, r.codec.Name(), r.compressor.PoolSize())

	// GENERATE: artifacts are recreated first, outside the timed section.
	r.enter(StageGenerate)
	if err := r.createStores(ctx); err != nil {
		return r.abort(res, StageGenerate, err)
	}
	var records []types.Record
	d, _ := timed(func() error {
		records = r.gen.Generate()
		return nil
	})
	res.GeneratedRecords = int64(len(records))
	r.finish(res, StageGenerate, d)

	r.enter(StageCompressGroup)
	var blocks *compressor.Result
	d, err := timed(func() error {
		var err error
		blocks, err = r.compressor.Compress(ctx, records)
		return err
	})
	if err != nil {
		return r.abort(res, StageCompressGroup, err)
	}
	res.Groups = len(blocks.Keys)
	res.Compressed.Compress = d
	r.finish(res, StageCompressGroup, d)

	// Row conversion happens before the clock starts so both writes time
	// only the store.
	plainRows := make([]types.PlainRow, len(records))
	for i, rec := range records {
		plainRows[i] = rec.ToPlainRow()
	}
	compressedRows := blocks.Rows()

	r.enter(StageWritePlain)
	d, err = timed(func() error { return r.plain.WriteAll(ctx, plainRows) })
	if err != nil {
		return r.abort(res, StageWritePlain, err)
	}
	res.Plain.Write = d
	r.finish(res, StageWritePlain, d)

	r.enter(StageWriteCompressed)
	d, err = timed(func() error { return r.compressed.WriteAll(ctx, compressedRows) })
	if err != nil {
		return r.abort(res, StageWriteCompressed, err)
	}
	res.Compressed.Write = d
	r.finish(res, StageWriteCompressed, d)

	r.enter(StageReadPlain)
	var readPlain []types.PlainRow
	d, err = timed(func() error {
		var err error
		readPlain, err = r.plain.ReadAll(ctx)
		return err
	})
	if err != nil {
		return r.abort(res, StageReadPlain, err)
	}
	res.Plain.Read = d
	res.Plain.Rows = int64(len(readPlain))
	r.finish(res, StageReadPlain, d)

	r.enter(StageReadCompressed)
	var readCompressed []types.CompressedRow
	d, err = timed(func() error {
		var err error
		readCompressed, err = r.compressed.ReadAll(ctx)
		return err
	})
	if err != nil {
		return r.abort(res, StageReadCompressed, err)
	}
	res.Compressed.Read = d
	res.Compressed.Rows = int64(len(readCompressed))
	if r.cfg.DecodeOnRead {
		// A corrupt block is a verification finding, not a fatal error.
		res.Compressed.Decode, err = timed(func() error {
			_, err := r.compressor.DecodeRows(ctx, readCompressed)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return r.abort(res, StageReadCompressed, err)
			}
			res.DecodeError = err.Error()
			r.logger.Printf("Decode during %s failed: %v", StageReadCompressed, err)
		}
	}
	r.finish(res, StageReadCompressed, res.Compressed.ReadTotal())

	r.enter(StageVerify)
	verifier := verify.New(r.codec, maxMismatchesPerGroup)
	d, _ = timed(func() error {
		res.Verification = verifier.Verify(readPlain, readCompressed)
		return nil
	})
	r.finish(res, StageVerify, d)
	if !res.Verification.Passed {
		r.logger.Printf("Verification failed with %d mismatches", len(res.Verification.Mismatches))
	}

	r.enter(StageReport)
	d, err = timed(func() error { return r.measure(res) })
	if err != nil {
		return r.abort(res, StageReport, err)
	}
	r.finish(res, StageReport, d)
	res.State = StageReport
	return res, nil
}

// measure closes both stores and records their on-disk sizes.
func (r *Runner) measure(res *Result) error {
	if err := r.closeStores(); err != nil {
		return err
	}
	size, err := r.plain.SizeOnDisk()
	if err != nil {
		return err
	}
	res.Plain.SizeBytes = size

	size, err = r.compressed.SizeOnDisk()
	if err != nil {
		return err
	}
	res.Compressed.SizeBytes = size

	res.Metrics = ComputeMetrics(res.Plain, res.Compressed)
	return nil
}

func (r *Runner) createStores(ctx context.Context) error {
	if err := r.plain.Create(ctx); err != nil {
		return err
	}
	return r.compressed.Create(ctx)
}

func (r *Runner) closeStores() error {
	var errs []error
	if err := r.plain.Close(); err != nil {
		errs = append(errs, benchErrors.NewStoreError(benchErrors.CodeCloseFailed, r.plain.Name(), "failed to close store", err))
	}
	if err := r.compressed.Close(); err != nil {
		errs = append(errs, benchErrors.NewStoreError(benchErrors.CodeCloseFailed, r.compressed.Name(), "failed to close store", err))
	}
	return errors.Join(errs...)
}

func (r *Runner) enter(s Stage) {
	r.logger.Printf("Stage %s started", s)
	if r.onStage != nil {
		r.onStage(s)
	}
}

func (r *Runner) finish(res *Result, s Stage, d time.Duration) {
	res.Stages = append(res.Stages, StageTiming{Stage: s, Duration: d})
	r.logger.Printf("Stage %s finished in %v", s, d)
}

// abort moves the run to ABORTED and returns err annotated with the stage.
func (r *Runner) abort(res *Result, s Stage, err error) (*Result, error) {
	res.State = StageAborted
	r.logger.Printf("Stage %s failed: %v", s, err)
	if r.onStage != nil {
		r.onStage(StageAborted)
	}
	return res, stageError(s, err)
}

func stageError(s Stage, err error) error {
	stage := map[string]interface{}{benchErrors.DetailStage: s.String()}
	var be *benchErrors.BenchError
	if errors.As(err, &be) {
		return fmt.Errorf("stage %s: %w", s, be.WithDetails(stage))
	}
	return fmt.Errorf("stage %s: %w", s, benchErrors.NewInternalError("stage failed", err).WithDetails(stage))
}

func timed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
