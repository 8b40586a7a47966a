// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"
)

// Memory is a process-local Store. Open returns it when no backend is named.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Get decodes the slot into v.
func (m *Memory) Get(_ context.Context, slot string, v any) (bool, error) {
	m.mu.RLock()
	data, ok := m.slots[slot]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(slot, data, v)
}

// Set replaces the slot with v.
func (m *Memory) Set(_ context.Context, slot string, v any) error {
	data, err := encode(slot, v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.slots[slot] = data
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
