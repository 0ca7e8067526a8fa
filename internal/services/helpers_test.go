// internal/services/helpers_test.go
package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/storage"
)

var testEntitlementConfig = config.EntitlementConfig{
	DefaultCodeExpiryHours: 24,
	MaxDownloads:           5,
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (m *memBlobStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memBlobStore) Open(_ context.Context, key string) (*storage.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Blob{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		Size:        int64(len(data)),
		ContentType: "audio/mpeg",
	}, nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type publishedEvent struct {
	eventType string
	key       string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func stringsReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}
