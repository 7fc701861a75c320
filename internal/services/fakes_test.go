package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memStore is an in-memory ObjectStore holding encoded CSV bytes.
type memStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	generations map[string]int64
	nextGen     int64

	headerReads int
	fullReads   int
	writes      int

	// failures injected per operation; a key-scoped entry wins over "".
	failCopy   map[string]error
	failDelete map[string]error
	failWrite  error
	failRead   error
}

var _ ObjectStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		objects:     map[string][]byte{},
		generations: map[string]int64{},
		failCopy:    map[string]error{},
		failDelete:  map[string]error{},
	}
}

func (s *memStore) putDoc(t *testing.T, key string, doc *tabular.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tabular.Write(&buf, doc))
	s.putRaw(key, buf.Bytes())
	return buf.Bytes()
}

func (s *memStore) putRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	s.objects[key] = append([]byte(nil), data...)
	s.generations[key] = s.nextGen
}

func (s *memStore) raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

func (s *memStore) has(key string) bool {
	_, ok := s.raw(key)
	return ok
}

func (s *memStore) keysWithPrefix(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *memStore) doc(t *testing.T, key string) *tabular.Document {
	t.Helper()
	b, ok := s.raw(key)
	require.True(t, ok, "object %s missing", key)
	doc, err := tabular.Read(bytes.NewReader(b))
	require.NoError(t, err)
	return doc
}

func injected(m map[string]error, key string) error {
	if err, ok := m[key]; ok {
		return err
	}
	return m[""]
}

func (s *memStore) ReadHeader(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.headerReads++
	b, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrObjectNotFound
	}
	return tabular.ReadHeader(bytes.NewReader(b))
}

func (s *memStore) ReadDocument(ctx context.Context, key string) (*tabular.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.fullReads++
	b, ok := s.objects[key]
	failRead := s.failRead
	s.mu.Unlock()
	if failRead != nil {
		return nil, failRead
	}
	if !ok {
		return nil, models.ErrObjectNotFound
	}
	return tabular.Read(bytes.NewReader(b))
}

func (s *memStore) WriteDocument(ctx context.Context, key string, doc *tabular.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes++
	failWrite := s.failWrite
	_, exists := s.objects[key]
	s.mu.Unlock()
	if failWrite != nil {
		return failWrite
	}
	if exists {
		return models.ErrObjectExists
	}
	var buf bytes.Buffer
	if err := tabular.Write(&buf, doc); err != nil {
		return err
	}
	s.putRaw(key, buf.Bytes())
	return nil
}

func (s *memStore) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	err := injected(s.failCopy, src)
	b, ok := s.objects[src]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrObjectNotFound
	}
	s.putRaw(dst, b)
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := injected(s.failDelete, key); err != nil {
		return err
	}
	if _, ok := s.objects[key]; !ok {
		return models.ErrObjectNotFound
	}
	delete(s.objects, key)
	delete(s.generations, key)
	return nil
}

func (s *memStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.has(key), nil
}

func (s *memStore) List(ctx context.Context, prefix string) ([]models.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.ObjectInfo
	for _, k := range s.keysWithPrefix(prefix) {
		s.mu.Lock()
		out = append(out, models.ObjectInfo{Key: k, Generation: s.generations[k], Size: int64(len(s.objects[k]))})
		s.mu.Unlock()
	}
	return out, nil
}

// memStatus records every status transition per job.
type memStatus struct {
	mu      sync.Mutex
	updates map[string][]models.StatusUpdate
	err     error
}

func newMemStatus() *memStatus {
	return &memStatus{updates: map[string][]models.StatusUpdate{}}
}

func (m *memStatus) RecordStatus(_ context.Context, jobID string, update models.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.updates[jobID] = append(m.updates[jobID], update)
	return nil
}

func (m *memStatus) statuses(jobID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, u := range m.updates[jobID] {
		out = append(out, u.Status)
	}
	return out
}

func (m *memStatus) last(jobID string) models.StatusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.updates[jobID]
	if len(u) == 0 {
		return models.StatusUpdate{}
	}
	return u[len(u)-1]
}

// memJobs is an in-memory JobRegistry.
type memJobs struct {
	mu          sync.Mutex
	jobs        map[string]models.TranslationJob
	registerErr error
	releaseErr  error
	released    []string
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]models.TranslationJob{}}
}

func (m *memJobs) Register(_ context.Context, jobID string, job models.TranslationJob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return false, m.registerErr
	}
	if _, ok := m.jobs[jobID]; ok {
		return false, nil
	}
	m.jobs[jobID] = job
	return true, nil
}

func (m *memJobs) AttachExecution(_ context.Context, jobID, executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return errors.New("no such job")
	}
	job.ExecutionID = executionID
	m.jobs[jobID] = job
	return nil
}

func (m *memJobs) Release(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return m.releaseErr
	}
	delete(m.jobs, jobID)
	m.released = append(m.released, jobID)
	return nil
}

func (m *memJobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// memQueue records enqueued jobs.
type memQueue struct {
	mu   sync.Mutex
	reqs []models.TranslateDocumentRequest
	err  error
}

func (q *memQueue) Enqueue(_ context.Context, req models.TranslateDocumentRequest) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.reqs = append(q.reqs, req)
	return "executions/" + req.JobID[:8], nil
}

func (q *memQueue) keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var keys []string
	for _, r := range q.reqs {
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	return keys
}
