// Package storage is the persistence gateway: typed get/set of JSON values
// under string keys on top of a durable backend.
package storage

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Keys used by the application.
const (
	KeySettings              = "settings"
	KeyConversations         = "conversations"
	KeyCurrentConversationID = "current_conversation_id"
)

// Backend stores raw values by key.
type Backend interface {
	// Load returns the value for key and whether it exists.
	Load(key string) ([]byte, bool, error)
	Store(key string, value []byte) error
	Remove(key string) error
	Close() error
}

// Gateway wraps a Backend with JSON encoding and default fallback.
type Gateway struct {
	backend Backend
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewGateway creates a Gateway over backend. A nil logger discards output.
func NewGateway(backend Backend, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backend: backend, logger: logger}
}

// Get decodes the value at key into T. A missing, unreadable or corrupt value
// yields def; corruption is logged, never returned.
func Get[T any](g *Gateway, key string, def T) T {
	g.mu.Lock()
	raw, ok, err := g.backend.Load(key)
	g.mu.Unlock()

	if err != nil {
		g.logger.Warn("storage read failed, using default", zap.String("key", key), zap.Error(err))
		return def
	}
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		g.logger.Warn("stored value is corrupt, using default", zap.String("key", key), zap.Error(err))
		return def
	}
	return v
}

// Set encodes value as JSON and stores it at key.
func Set[T any](g *Gateway, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.backend.Store(key, data); err != nil {
		return errors.Wrapf(err, "storing %s", key)
	}
	return nil
}

// Delete removes key. Removing a missing key is not an error.
func (g *Gateway) Delete(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Wrapf(g.backend.Remove(key), "deleting %s", key)
}

// Close releases the backend.
func (g *Gateway) Close() error {
	return g.backend.Close()
}
