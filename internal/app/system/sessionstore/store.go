// Package sessionstore defines the three-key store that holds a console
// session's access token, refresh token, and cached user profile.
//
// The gateway depends only on the Store interface. The Memory
// implementation backs tests and single-instance deployments; the MongoDB
// implementation in store/sessions backs multi-instance deployments.
package sessionstore

import (
	"context"
	"sync"
)

// Key names one of the values held for a console session.
type Key string

const (
	AccessToken  Key = "token"
	RefreshToken Key = "refreshToken"
	UserProfile  Key = "user"
)

// AllKeys lists every key a session may hold.
var AllKeys = []Key{AccessToken, RefreshToken, UserProfile}

// Store reads and writes the values of one console session.
//
// Clear with no keys removes every key.
type Store interface {
	Get(ctx context.Context, key Key) (string, bool, error)
	Set(ctx context.Context, key Key, value string) error
	Clear(ctx context.Context, keys ...Key) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[Key]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[Key]string, len(AllKeys))}
}

func (m *Memory) Get(_ context.Context, key Key) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Clear(_ context.Context, keys ...Key) error {
	if len(keys) == 0 {
		keys = AllKeys
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len reports how many keys are set.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
