package bench

import (
	"context"
	"errors"
	"testing"

	"github.com/arkilian/groupbench/internal/config"
	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"github.com/arkilian/groupbench/internal/store"
	"github.com/arkilian/groupbench/internal/verify"
	"github.com/arkilian/groupbench/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, records, groups int) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RecordCount = records
	cfg.GroupCount = groups
	cfg.WorkerPoolSize = 4
	cfg.DataDir = t.TempDir()
	return cfg
}

func runWithStages(t *testing.T, cfg config.Config, opts ...RunnerOption) (*Result, []Stage, error) {
	t.Helper()
	var stages []Stage
	opts = append(opts, WithStageObserver(func(s Stage) { stages = append(stages, s) }))
	r, err := NewRunner(cfg, opts...)
	require.NoError(t, err)
	res, err := r.Run(context.Background())
	return res, stages, err
}

func TestRunner_ConstantGroups(t *testing.T) {
	cfg := testConfig(t, 100, 5)
	cfg.PayloadMode = config.PayloadConstant
	cfg.PayloadSize = 64

	res, stages, err := runWithStages(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, Stages, stages)
	assert.Equal(t, StageReport, res.State)
	assert.NotEmpty(t, res.RunID)
	assert.EqualValues(t, 100, res.GeneratedRecords)
	assert.Equal(t, 5, res.Groups)
	assert.EqualValues(t, 100, res.Plain.Rows)
	assert.EqualValues(t, 5, res.Compressed.Rows)

	assert.True(t, res.Verification.Passed, "mismatches: %v", res.Verification.Mismatches)
	assert.True(t, res.Verified())
	assert.Empty(t, res.DecodeError)
	assert.EqualValues(t, 100, res.Verification.CompressedRecords)

	assert.Greater(t, res.Plain.SizeBytes, int64(0))
	assert.Less(t, res.Compressed.SizeBytes, res.Plain.SizeBytes)
	assert.Greater(t, res.Metrics.StorageRatio, 1.0)
	assert.Greater(t, res.Metrics.StorageSavingsPct, 0.0)

	require.Len(t, res.Stages, len(Stages))
	for i, st := range res.Stages {
		assert.Equal(t, Stages[i], st.Stage)
		assert.GreaterOrEqual(t, int64(st.Duration), int64(0))
	}
}

func TestRunner_NoRecords(t *testing.T) {
	cfg := testConfig(t, 0, 0)

	res, stages, err := runWithStages(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, Stages, stages)
	assert.Zero(t, res.Plain.Rows)
	assert.Zero(t, res.Compressed.Rows)
	assert.Zero(t, res.Groups)
	assert.True(t, res.Verification.Passed)

	// both artifacts exist even though they are empty
	assert.FileExists(t, res.Plain.Path)
	assert.FileExists(t, res.Compressed.Path)
	assert.Greater(t, res.Plain.SizeBytes, int64(0))
	assert.Greater(t, res.Compressed.SizeBytes, int64(0))

	for _, d := range []int64{
		int64(res.Plain.Write), int64(res.Plain.Read),
		int64(res.Compressed.Compress), int64(res.Compressed.Write),
		int64(res.Compressed.Read), int64(res.Compressed.Decode),
	} {
		assert.GreaterOrEqual(t, d, int64(0))
	}
}

func TestRunner_OneRecordPerGroup(t *testing.T) {
	cfg := testConfig(t, 2000, 2000)
	cfg.PayloadSize = 32

	res, _, err := runWithStages(t, cfg)
	require.NoError(t, err)

	assert.True(t, res.Verification.Passed)
	assert.EqualValues(t, 2000, res.Plain.Rows)
	assert.EqualValues(t, 2000, res.Compressed.Rows)

	// per-blob overhead makes the compressed store larger
	assert.Greater(t, res.Compressed.SizeBytes, res.Plain.SizeBytes)
	assert.Less(t, res.Metrics.StorageRatio, 1.0)
	assert.Less(t, res.Metrics.StorageSavingsPct, 0.0)
	assert.True(t, res.Metrics.IsDefined(MetricStorageSavings))
}

func TestRunner_RecreatesArtifacts(t *testing.T) {
	cfg := testConfig(t, 50, 5)

	first, _, err := runWithStages(t, cfg)
	require.NoError(t, err)
	second, _, err := runWithStages(t, cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.EqualValues(t, 50, second.Plain.Rows)
	assert.EqualValues(t, 5, second.Compressed.Rows)
	assert.True(t, second.Verification.Passed)
}

func TestRunner_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, 10, 20)
	called := false

	_, err := NewRunner(cfg, WithStageObserver(func(Stage) { called = true }))
	require.Error(t, err)
	assert.Equal(t, benchErrors.ErrCategoryConfig, benchErrors.GetCategory(err))
	field, ok := benchErrors.GetDetail(err, benchErrors.DetailField)
	require.True(t, ok)
	assert.Equal(t, "group_count", field)
	assert.False(t, called)
}

// failingPlainStore wraps the SQLite plain store and fails on write.
type failingPlainStore struct {
	*store.PlainStore
}

func (s failingPlainStore) WriteAll(ctx context.Context, rows []types.PlainRow) error {
	return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, s.Name(), "disk full", nil)
}

func TestRunner_StoreFailureAborts(t *testing.T) {
	cfg := testConfig(t, 20, 4)
	cfg.Resolve()
	plain := failingPlainStore{store.NewPlainStore(cfg.PlainPath, 0)}

	res, stages, err := runWithStages(t, cfg, WithPlainStore(plain))
	require.Error(t, err)

	assert.Equal(t, []Stage{StageGenerate, StageCompressGroup, StageWritePlain, StageAborted}, stages)
	assert.Equal(t, StageAborted, res.State)
	assert.False(t, res.Verified())

	assert.Equal(t, benchErrors.ErrCategoryStore, benchErrors.GetCategory(err))
	assert.Equal(t, benchErrors.CodeWriteFailed, benchErrors.GetCode(err))
	stage, ok := benchErrors.GetDetail(err, benchErrors.DetailStage)
	require.True(t, ok)
	assert.Equal(t, "WRITE_PLAIN", stage)
	storeName, ok := benchErrors.GetDetail(err, benchErrors.DetailStore)
	require.True(t, ok)
	assert.Equal(t, store.NamePlain, storeName)
	assert.Contains(t, err.Error(), "stage WRITE_PLAIN")

	// stages before the failure were timed
	_, ok = res.StageDuration(StageCompressGroup)
	assert.True(t, ok)
	_, ok = res.StageDuration(StageWritePlain)
	assert.False(t, ok)
}

// unclosableStore releases the database but reports a close failure.
type unclosableStore struct {
	*store.CompressedStore
}

func (s unclosableStore) Close() error {
	_ = s.CompressedStore.Close()
	return errors.New("fsync failed")
}

func TestRunner_CloseFailureAborts(t *testing.T) {
	cfg := testConfig(t, 40, 4)
	cfg.Resolve()
	compressed := unclosableStore{store.NewCompressedStore(cfg.CompressedPath, 0)}

	res, stages, err := runWithStages(t, cfg, WithCompressedStore(compressed))
	require.Error(t, err)

	assert.Equal(t, append(append([]Stage{}, Stages...), StageAborted), stages)
	assert.Equal(t, StageAborted, res.State)
	assert.True(t, res.Verification.Passed)

	assert.Equal(t, benchErrors.ErrCategoryStore, benchErrors.GetCategory(err))
	assert.Equal(t, benchErrors.CodeCloseFailed, benchErrors.GetCode(err))
	stage, ok := benchErrors.GetDetail(err, benchErrors.DetailStage)
	require.True(t, ok)
	assert.Equal(t, "REPORT", stage)
	storeName, ok := benchErrors.GetDetail(err, benchErrors.DetailStore)
	require.True(t, ok)
	assert.Equal(t, store.NameCompressed, storeName)
	assert.Contains(t, err.Error(), "fsync failed")
}

// corruptingStore flips one byte of the first block it reads back.
type corruptingStore struct {
	*store.CompressedStore
}

func (s corruptingStore) ReadAll(ctx context.Context) ([]types.CompressedRow, error) {
	rows, err := s.CompressedStore.ReadAll(ctx)
	if err != nil || len(rows) == 0 {
		return rows, err
	}
	data := rows[0].Data
	data[len(data)/2] ^= 0xFF
	return rows, nil
}

func TestRunner_CorruptBlockReported(t *testing.T) {
	cfg := testConfig(t, 200, 4)
	cfg.Resolve()
	compressed := corruptingStore{store.NewCompressedStore(cfg.CompressedPath, 0)}

	res, stages, err := runWithStages(t, cfg, WithCompressedStore(compressed))
	require.NoError(t, err, "verification failure must not abort the run")

	assert.Equal(t, Stages, stages)
	assert.Equal(t, StageReport, res.State)
	assert.False(t, res.Verification.Passed)
	assert.False(t, res.Verified())
	assert.NotEmpty(t, res.DecodeError)

	require.NotEmpty(t, res.Verification.Mismatches)
	m := res.Verification.Mismatches[0]
	assert.NotEmpty(t, m.GroupKey)
	assert.Contains(t, []verify.MismatchKind{
		verify.KindCorruptBlock, verify.KindFieldMismatch,
		verify.KindMissingRecord, verify.KindExtraRecord,
	}, m.Kind)

	// metrics are still reported
	assert.Greater(t, res.Compressed.SizeBytes, int64(0))
}

func TestRunner_WithoutDecodeOnRead(t *testing.T) {
	cfg := testConfig(t, 60, 3)
	cfg.DecodeOnRead = false

	res, _, err := runWithStages(t, cfg)
	require.NoError(t, err)
	assert.Zero(t, res.Compressed.Decode)
	assert.Equal(t, res.Compressed.Read, res.Compressed.ReadTotal())
	assert.True(t, res.Verification.Passed)
}

func TestRunner_Codecs(t *testing.T) {
	for _, name := range []string{config.CodecZlib, config.CodecFlate, config.CodecSnappy} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t, 120, 6)
			cfg.Codec = name

			res, _, err := runWithStages(t, cfg)
			require.NoError(t, err)
			assert.True(t, res.Verification.Passed)
			assert.Equal(t, name, res.Config.Codec)
		})
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	cfg := testConfig(t, 100, 10)
	r, err := NewRunner(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StageAborted, res.State)
}
