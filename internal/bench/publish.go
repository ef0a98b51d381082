package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arkilian/groupbench/internal/storage"
)

// ResultObjectName is the object name of the serialized result.
const ResultObjectName = "result.json"

// ErrAlreadyPublished is returned when a run's objects already exist.
var ErrAlreadyPublished = errors.New("run already published")

// Artifact describes one published object.
type Artifact struct {
	Name       string `json:"name"`
	ObjectPath string `json:"object_path"`
	MD5        string `json:"md5"`
}

// Publish uploads both store files, named after their store, and the JSON
// result under <prefix>/<run_id>/. It should be called after a completed run,
// once the stores are closed.
//
// Existing objects are never overwritten. If an upload fails, the objects
// already uploaded by this call are deleted again.
func Publish(ctx context.Context, st storage.ArtifactStorage, prefix string, res *Result) ([]Artifact, error) {
	if res.State != StageReport {
		return nil, fmt.Errorf("cannot publish run %s in state %s", res.RunID, res.State)
	}

	tmpDir, err := os.MkdirTemp("", "groupbench-publish-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	resultPath := filepath.Join(tmpDir, ResultObjectName)
	f, err := os.Create(resultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	if err := res.WriteJSON(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write result file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write result file: %w", err)
	}

	base := path.Join(prefix, res.RunID)
	files := []struct{ name, local, object string }{
		{name: res.Plain.Store + filepath.Ext(res.Plain.Path), local: res.Plain.Path},
		{name: res.Compressed.Store + filepath.Ext(res.Compressed.Path), local: res.Compressed.Path},
		{name: ResultObjectName, local: resultPath},
	}
	for i := range files {
		files[i].object = path.Join(base, files[i].name)
		exists, err := st.Exists(ctx, files[i].object)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", files[i].object, err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyPublished, files[i].object)
		}
	}

	artifacts := make([]Artifact, 0, len(files))
	for _, file := range files {
		digest, err := st.Upload(ctx, file.local, file.object)
		if err != nil {
			err = fmt.Errorf("failed to publish %s: %w", file.name, err)
			return nil, errors.Join(err, rollback(context.WithoutCancel(ctx), st, artifacts))
		}
		artifacts = append(artifacts, Artifact{Name: file.name, ObjectPath: file.object, MD5: digest})
	}
	return artifacts, nil
}

// rollback deletes uploaded artifacts.
func rollback(ctx context.Context, st storage.ArtifactStorage, artifacts []Artifact) error {
	var errs []error
	for _, a := range artifacts {
		if err := st.Delete(ctx, a.ObjectPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to roll back %s: %w", a.ObjectPath, err))
		}
	}
	return errors.Join(errs...)
}

// ListPublished returns the IDs of the runs published under prefix, sorted.
// A run counts once its result object exists.
func ListPublished(ctx context.Context, st storage.ArtifactStorage, prefix string) ([]string, error) {
	listPrefix := prefix
	if listPrefix != "" && !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}
	keys, err := st.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runIDs []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, listPrefix)
		runID, name, ok := strings.Cut(rest, "/")
		if ok && runID != "" && name == ResultObjectName {
			runIDs = append(runIDs, runID)
		}
	}
	sort.Strings(runIDs)
	return runIDs, nil
}

// LoadPublished downloads and decodes the result of a published run.
func LoadPublished(ctx context.Context, st storage.ArtifactStorage, prefix, runID string) (*Result, error) {
	tmpDir, err := os.MkdirTemp("", "groupbench-load-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	local := filepath.Join(tmpDir, ResultObjectName)
	objectPath := path.Join(prefix, runID, ResultObjectName)
	if err := st.Download(ctx, objectPath, local); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", objectPath, err)
	}

	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectPath, err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", objectPath, err)
	}
	return &res, nil
}
