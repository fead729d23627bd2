package ledger

import (
	"context"

	"github.com/google/uuid"

	"tiffin/internal/core"
	"tiffin/internal/storage"
)

// IDGenerator returns a fresh opaque identifier.
type IDGenerator func() string

func orDefault(gen IDGenerator) IDGenerator {
	if gen == nil {
		return uuid.NewString
	}
	return gen
}

// load decodes the whole collection under key. An absent key is an empty
// collection.
func load(ctx context.Context, s storage.Store, key string, v any) error {
	if _, err := storage.GetJSON(ctx, s, key, v); err != nil {
		return &core.PersistenceError{Op: "load", Key: key, Err: err}
	}
	return nil
}

// save writes the whole collection under key.
func save(ctx context.Context, s storage.Store, key string, v any) error {
	if err := storage.PutJSON(ctx, s, key, v); err != nil {
		return &core.PersistenceError{Op: "save", Key: key, Err: err}
	}
	return nil
}
