package cache

import (
	"context"
	"sync"
	"time"
)

// Store almacén de valores serializados con expiración fija por entrada.
// Las entradas expiran estrictamente al cumplir su TTL; leer no renueva el plazo.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// InvalidateAll descarta todas las entradas del almacén.
	InvalidateAll(ctx context.Context) error
}

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryStore almacén en proceso. Una entrada es válida mientras now - storedAt < ttl.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// MemoryOption configura un MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore crea un almacén en memoria con el TTL indicado.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().Sub(e.storedAt) >= s.ttl {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: buf, storedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}

// Len cantidad de entradas guardadas (vencidas incluidas hasta su próxima lectura).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
