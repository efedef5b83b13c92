// Package storage holds generated files (report workbooks) in an object
// store.
package storage

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("object not found")

type Blobs interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_.]+`)

func sanitize(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = nonSafe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-_.")
	if name == "" {
		name = "file"
	}
	return name
}

// Key joins sanitized path segments into an object key, e.g.
// Key("reports", userID, "health summary.xlsx").
func Key(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		clean = append(clean, sanitize(p))
	}
	return path.Join(clean...)
}

// Memory keeps objects in process memory.
type Memory struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objs: map[string][]byte{}}
}

func (m *Memory) Put(_ context.Context, key string, body []byte, _ string) error {
	cp := append([]byte(nil), body...)
	m.mu.Lock()
	m.objs[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objs, key)
	m.mu.Unlock()
	return nil
}
