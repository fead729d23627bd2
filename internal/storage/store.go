package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Keys of the two persisted collections.
const (
	KeyMembers = "members"
	KeyOrders  = "orders"
)

// Store is the key-value collaborator the ledger persists through. Values are
// whole JSON documents; there is no partial update.
type Store interface {
	// Get returns the value stored under key. ok is false when the key was
	// never written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON decodes the value under key into v. It reports false, leaving v
// untouched, when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
