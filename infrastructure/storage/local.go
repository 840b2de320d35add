package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/stylusfm/stylus/domain/model"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
)

// LocalStore implements ports.ArtifactStore on the local filesystem,
// with one directory per artifact namespace.
type LocalStore struct {
	uploadDir    string
	processedDir string
}

// NewLocalStore creates both artifact directories if needed.
func NewLocalStore(uploadDir, processedDir string) (*LocalStore, error) {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if processedDir == "" {
		processedDir = "processed"
	}
	for _, dir := range []string{uploadDir, processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pkgerrors.NewStorageError("mkdir", dir, "failed to create artifact directory", err)
		}
	}
	return &LocalStore{
		uploadDir:    uploadDir,
		processedDir: processedDir,
	}, nil
}

// SaveUpload streams an upload into the input namespace and returns
// the stored path. A failed write leaves no partial artifact behind.
func (s *LocalStore) SaveUpload(_ context.Context, name string, r io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", pkgerrors.NewStorageError("create", path, "failed to create upload artifact", err)
	}

	// Hide f's ReaderFrom so the copy really runs through the bounded
	// buffer instead of an arbitrarily sized kernel transfer.
	buf := make([]byte, model.UploadChunkSize)
	if _, err := io.CopyBuffer(struct{ io.Writer }{f}, r, buf); err != nil {
		f.Close()
		os.Remove(path)
		return "", pkgerrors.NewStorageError("write", path, "failed to write upload artifact", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", pkgerrors.NewStorageError("close", path, "failed to finish upload artifact", err)
	}
	return path, nil
}

// ProcessedPath returns the path an output artifact name maps to.
func (s *LocalStore) ProcessedPath(name string) string {
	return filepath.Join(s.processedDir, filepath.Base(name))
}

// FindUpload returns the name of the first input artifact with the
// given prefix, or "" when there is none.
func (s *LocalStore) FindUpload(_ context.Context, prefix string) (string, error) {
	return scanDir(s.uploadDir, prefix)
}

// FindProcessed returns the name of the first output artifact with the
// given prefix, or "" when there is none.
func (s *LocalStore) FindProcessed(_ context.Context, prefix string) (string, error) {
	return scanDir(s.processedDir, prefix)
}

// scanDir picks the lexically first regular file whose name starts
// with prefix.
func scanDir(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", pkgerrors.NewStorageError("scan", dir, "failed to scan artifact directory", err)
	}
	prefix = filepath.Base(prefix)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			return e.Name(), nil
		}
	}
	return "", nil
}

// OpenProcessed opens an output artifact for streaming and reports its
// size.
func (s *LocalStore) OpenProcessed(_ context.Context, name string) (io.ReadCloser, int64, error) {
	path := s.ProcessedPath(name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, pkgerrors.NewNotFoundError("audio", name)
		}
		return nil, 0, pkgerrors.NewStorageError("open", path, "failed to open output artifact", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, pkgerrors.NewStorageError("stat", path, "failed to stat output artifact", err)
	}
	return f, info.Size(), nil
}

// Exists checks if a file exists
func (s *LocalStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Size returns file size in bytes
func (s *LocalStore) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes a file
func (s *LocalStore) Remove(_ context.Context, path string) error {
	return os.Remove(path)
}

// RemoveTask deletes every artifact of a task in both namespaces and
// returns the combined error of whatever could not be removed.
func (s *LocalStore) RemoveTask(_ context.Context, taskID string) error {
	var errs error
	prefix := filepath.Base(taskID)
	for _, dir := range []string{s.uploadDir, s.processedDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = multierr.Append(errs, pkgerrors.NewStorageError("scan", dir, "failed to scan artifact directory", err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}
