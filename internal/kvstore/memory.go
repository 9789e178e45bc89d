package kvstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	timestamp time.Time
}

// Memory is a thread-safe in-process KV with optional expiry
type Memory struct {
	mu    sync.RWMutex
	data  map[string]memoryEntry
	ttl   time.Duration
	clock func() time.Time
}

// NewMemory creates an in-memory KV. A ttl of zero or less never expires entries.
func NewMemory(ttl time.Duration) *Memory {
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{
		data:  make(map[string]memoryEntry),
		ttl:   ttl,
		clock: time.Now,
	}
}

// Get returns the value stored under key
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if m.ttl == 0 {
		return entry.value, true, nil
	}

	now := m.clock()
	if !m.expired(entry, now) {
		return entry.value, true, nil
	}

	// A Set may have refreshed the key since the read lock was released
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !m.expired(cur, now) {
		return cur.value, true, nil
	}
	delete(m.data, key)
	return "", false, nil
}

func (m *Memory) expired(e memoryEntry, now time.Time) bool {
	return now.Sub(e.timestamp) > m.ttl
}

// Set stores value under key
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = memoryEntry{value: value, timestamp: m.clock()}
	return nil
}

// Len returns the number of entries, expired ones included
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

var _ KV = (*Memory)(nil)
