package mocks

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/stylusfm/stylus/domain/model"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
)

// MockAudioDecoder is a test double for ports.AudioDecoder
type MockAudioDecoder struct {
	DecodeFunc func(ctx context.Context, path string) (*model.Buffer, error)
	ProbeFunc  func(ctx context.Context, path string) (*model.AudioMetadata, error)

	mu           sync.Mutex
	DecodedPaths []string
}

func (m *MockAudioDecoder) Decode(ctx context.Context, path string) (*model.Buffer, error) {
	m.mu.Lock()
	m.DecodedPaths = append(m.DecodedPaths, path)
	m.mu.Unlock()
	if m.DecodeFunc != nil {
		return m.DecodeFunc(ctx, path)
	}
	return model.NewBuffer(make([]float64, model.SampleRate), model.SampleRate), nil
}

func (m *MockAudioDecoder) Probe(ctx context.Context, path string) (*model.AudioMetadata, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, path)
	}
	return &model.AudioMetadata{
		Duration:   2 * time.Second,
		SampleRate: model.SampleRate,
		Channels:   2,
		Bitrate:    192000,
		Codec:      "mp3",
		Format:     "mp3",
		Size:       48000,
	}, nil
}

// MockArtifactStore is a test double for ports.ArtifactStore
type MockArtifactStore struct {
	SaveUploadFunc    func(ctx context.Context, name string, r io.Reader) (string, error)
	ProcessedPathFunc func(name string) string
	FindUploadFunc    func(ctx context.Context, prefix string) (string, error)
	FindProcessedFunc func(ctx context.Context, prefix string) (string, error)
	OpenProcessedFunc func(ctx context.Context, name string) (io.ReadCloser, int64, error)
	ExistsFunc        func(ctx context.Context, path string) (bool, error)
	SizeFunc          func(ctx context.Context, path string) (int64, error)
	RemoveFunc        func(ctx context.Context, path string) error
	RemoveTaskFunc    func(ctx context.Context, taskID string) error

	mu      sync.Mutex
	Saved   []string
	Removed []string
}

func (m *MockArtifactStore) SaveUpload(ctx context.Context, name string, r io.Reader) (string, error) {
	m.mu.Lock()
	m.Saved = append(m.Saved, name)
	m.mu.Unlock()
	if m.SaveUploadFunc != nil {
		return m.SaveUploadFunc(ctx, name, r)
	}
	if r != nil {
		io.Copy(io.Discard, r)
	}
	return "uploads/" + name, nil
}

func (m *MockArtifactStore) ProcessedPath(name string) string {
	if m.ProcessedPathFunc != nil {
		return m.ProcessedPathFunc(name)
	}
	return "processed/" + name
}

func (m *MockArtifactStore) FindUpload(ctx context.Context, prefix string) (string, error) {
	if m.FindUploadFunc != nil {
		return m.FindUploadFunc(ctx, prefix)
	}
	return "", nil
}

func (m *MockArtifactStore) FindProcessed(ctx context.Context, prefix string) (string, error) {
	if m.FindProcessedFunc != nil {
		return m.FindProcessedFunc(ctx, prefix)
	}
	return "", nil
}

func (m *MockArtifactStore) OpenProcessed(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if m.OpenProcessedFunc != nil {
		return m.OpenProcessedFunc(ctx, name)
	}
	return io.NopCloser(strings.NewReader("RIFF")), 4, nil
}

func (m *MockArtifactStore) Exists(ctx context.Context, path string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, path)
	}
	return true, nil
}

func (m *MockArtifactStore) Size(ctx context.Context, path string) (int64, error) {
	if m.SizeFunc != nil {
		return m.SizeFunc(ctx, path)
	}
	return 1024, nil
}

func (m *MockArtifactStore) Remove(ctx context.Context, path string) error {
	m.mu.Lock()
	m.Removed = append(m.Removed, path)
	m.mu.Unlock()
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, path)
	}
	return nil
}

func (m *MockArtifactStore) RemoveTask(ctx context.Context, taskID string) error {
	if m.RemoveTaskFunc != nil {
		return m.RemoveTaskFunc(ctx, taskID)
	}
	return nil
}

// RemovedPaths returns a snapshot of every path handed to Remove.
func (m *MockArtifactStore) RemovedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Removed))
	copy(out, m.Removed)
	return out
}

// StatusChange records one SetStatus call.
type StatusChange struct {
	ID     string
	Status model.TaskStatus
	Reason string
}

// MockTaskStore is a test double for ports.TaskStore
type MockTaskStore struct {
	CreateFunc    func(ctx context.Context, t *model.Task) error
	GetFunc       func(ctx context.Context, id string) (*model.Task, error)
	SetStatusFunc func(ctx context.Context, id string, status model.TaskStatus, reason string) error
	DeleteFunc    func(ctx context.Context, id string) error

	mu      sync.Mutex
	Created []string
	Changes []StatusChange
}

func (m *MockTaskStore) Create(ctx context.Context, t *model.Task) error {
	m.mu.Lock()
	if t != nil {
		m.Created = append(m.Created, t.ID)
	}
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil
}

func (m *MockTaskStore) Get(ctx context.Context, id string) (*model.Task, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, pkgerrors.NewNotFoundError("task", id)
}

func (m *MockTaskStore) SetStatus(ctx context.Context, id string, status model.TaskStatus, reason string) error {
	m.mu.Lock()
	m.Changes = append(m.Changes, StatusChange{ID: id, Status: status, Reason: reason})
	m.mu.Unlock()
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status, reason)
	}
	return nil
}

func (m *MockTaskStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// StatusChanges returns a snapshot of recorded transitions.
func (m *MockTaskStore) StatusChanges() []StatusChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StatusChange, len(m.Changes))
	copy(out, m.Changes)
	return out
}
