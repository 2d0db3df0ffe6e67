// Package store provides KV implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/storemap/catalog"
)

// =============================================================================
// MEMORY STORE - In-memory KV (for testing/dev)
// =============================================================================

// Memory is a KV held in a map. A positive Quota caps the summed length
// of keys and values, like browser local storage.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int

	// FailWrites makes every Set fail, to exercise best-effort callers.
	FailWrites error
}

var _ catalog.KV = (*Memory)(nil)

// NewMemory returns an empty store. quota <= 0 means unlimited.
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string]string), quota: quota}
}

// Get returns the value for key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key unless that would exceed the quota.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if m.quota > 0 {
		used := m.usedLocked() - m.sizeLocked(key) + len(key) + len(value)
		if used > m.quota {
			return catalog.ErrQuotaExceeded
		}
	}
	m.data[key] = value
	return nil
}

// Delete removes key. Missing keys are not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Put writes value bypassing the quota, for seeding corrupt slots in tests.
func (m *Memory) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) usedLocked() int {
	n := 0
	for k, v := range m.data {
		n += len(k) + len(v)
	}
	return n
}

func (m *Memory) sizeLocked(key string) int {
	v, ok := m.data[key]
	if !ok {
		return 0
	}
	return len(key) + len(v)
}
