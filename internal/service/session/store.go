package session

import (
	"context"
	"errors"
)

// Common errors for session store construction.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
)

// Store keeps per-conversation key/value state for the lifetime of a
// conversation.
type Store interface {
	// Get returns the value stored under key for the conversation.
	// A missing value is reported with ok=false, not an error.
	Get(ctx context.Context, conversationID, key string) (value string, ok bool, err error)

	// Set stores value under key for the conversation.
	Set(ctx context.Context, conversationID, key, value string) error

	// Delete discards all state of the conversation.
	Delete(ctx context.Context, conversationID string) error

	// Close releases any resources held by the store.
	Close() error
}

// Scoped binds a Store to one conversation.
type Scoped struct {
	store          Store
	conversationID string
}

// Scope returns the state of a single conversation.
func Scope(store Store, conversationID string) *Scoped {
	return &Scoped{store: store, conversationID: conversationID}
}

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.conversationID, key)
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.conversationID, key, value)
}
