package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is a map-backed Archive for development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Contains reports whether key has been written.
func (a *Memory) Contains(_ context.Context, key string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.data[key]
	return ok, nil
}

// Get returns the stored blob or ErrNotFound.
func (a *Memory) Get(_ context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data under key.
func (a *Memory) Put(_ context.Context, key string, data []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[key] = append([]byte(nil), data...)
	return nil
}

// Keys returns every stored key in lexical order.
func (a *Memory) Keys(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.data))
	for k := range a.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
