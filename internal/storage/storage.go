// Package storage publishes benchmark artifacts (store files and results)
// to object storage.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ArtifactStorage stores run artifacts. Implementations exist for the local
// filesystem and S3.
type ArtifactStorage interface {
	// Upload copies a local file to objectPath and returns its MD5 hex digest.
	Upload(ctx context.Context, localPath, objectPath string) (string, error)

	// Download copies objectPath to a local file.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
