package mocks

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/notify"
	"github.com/content-threads-api/internal/service"
	"github.com/content-threads-api/internal/storage"
)

// Verify interface compliance
var (
	_ storage.ObjectStore = (*MockObjectStore)(nil)
	_ notify.Dispatcher   = (*MockDispatcher)(nil)
	_ service.Scheduler   = (*MockScheduler)(nil)
)

const mockFileBase = "http://files.test/files/"

// MockObjectStore keeps blobs in memory
type MockObjectStore struct {
	mu        sync.Mutex
	Objects   map[primitive.ObjectID]models.Blob
	Deleted   []string
	StoreErr  error
	DeleteErr error
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: make(map[primitive.ObjectID]models.Blob)}
}

func (m *MockObjectStore) Store(ctx context.Context, blob models.Blob) (string, error) {
	if m.StoreErr != nil {
		return "", m.StoreErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := primitive.NewObjectID()
	m.Objects[key] = blob
	return mockFileBase + key.Hex(), nil
}

func (m *MockObjectStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, url)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if key, err := m.KeyFromURL(url); err == nil {
		delete(m.Objects, key)
	}
	return nil
}

func (m *MockObjectStore) KeyFromURL(url string) (primitive.ObjectID, error) {
	if !strings.HasPrefix(url, mockFileBase) {
		return primitive.NilObjectID, storage.ErrInvalidURL
	}
	key, err := primitive.ObjectIDFromHex(strings.TrimPrefix(url, mockFileBase))
	if err != nil {
		return primitive.NilObjectID, storage.ErrInvalidURL
	}
	return key, nil
}

func (m *MockObjectStore) Open(ctx context.Context, key primitive.ObjectID) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.Objects[key]
	if !ok {
		return nil, "", apperr.New(apperr.KindNotFound, apperr.NotFound, "file not found")
	}
	return io.NopCloser(bytes.NewReader(blob.Data)), blob.ContentType, nil
}

// SentNotification is one recorded dispatch
type SentNotification struct {
	Template string
	Payload  interface{}
}

// MockDispatcher records notifications instead of delivering them
type MockDispatcher struct {
	mu   sync.Mutex
	Sent []SentNotification
	Err  error
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Send(ctx context.Context, template string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentNotification{Template: template, Payload: payload})
	return m.Err
}

// Count returns the number of recorded dispatches
func (m *MockDispatcher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockScheduler is a mock implementation of Scheduler
type MockScheduler struct {
	RunFunc  func(ctx context.Context, year, month int) (*models.RollupReport, error)
	State    models.SchedulerSnapshot
	Started  bool
	Stopped  bool
	Requests []models.RollupRequest
}

func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

func (m *MockScheduler) Start(ctx context.Context) {
	m.Started = true
}

func (m *MockScheduler) Stop() {
	m.Stopped = true
}

func (m *MockScheduler) RunNow(ctx context.Context, year, month int) (*models.RollupReport, error) {
	m.Requests = append(m.Requests, models.RollupRequest{Year: year, Month: month})
	if m.RunFunc != nil {
		return m.RunFunc(ctx, year, month)
	}
	return &models.RollupReport{
		Run: models.RollupRun{Year: year, Month: month, Status: models.RollupStatusCompleted},
	}, nil
}

func (m *MockScheduler) Snapshot(ctx context.Context) models.SchedulerSnapshot {
	return m.State
}
