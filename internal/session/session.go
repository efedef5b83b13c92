// Package session keeps browser login state server-side. The cookie only
// carries an opaque id.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Data struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	// Flash is shown once on the next rendered page.
	Flash string `json:"flash,omitempty"`
}

type Store interface {
	Create(ctx context.Context, d Data) (string, error)
	Get(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, d Data) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string) error
	Close() error
}

func newID() string { return uuid.New().String() }

// Memory is a process-local Store for development and tests.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]memItem
}

type memItem struct {
	data    Data
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, items: map[string]memItem{}}
}

func (m *Memory) Create(_ context.Context, d Data) (string, error) {
	id := newID()
	m.mu.Lock()
	m.items[id] = memItem{data: d, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) get(id string) (memItem, bool) {
	it, ok := m.items[id]
	if !ok {
		return it, false
	}
	if !m.now().Before(it.expires) {
		delete(m.items, id)
		return it, false
	}
	return it, true
}

func (m *Memory) Get(_ context.Context, id string) (*Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	d := it.data
	return &d, nil
}

func (m *Memory) Save(_ context.Context, id string, d Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.get(id)
	if !ok {
		return ErrNotFound
	}
	it.data = d
	m.items[id] = it
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Extend(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.get(id)
	if !ok {
		return ErrNotFound
	}
	it.expires = m.now().Add(m.ttl)
	m.items[id] = it
	return nil
}

func (m *Memory) Close() error { return nil }
