package repo

import (
	"context"
	"errors"
)

var (
	ErrorNotFound = errors.New("not found")
)

// Store is a synchronous string-keyed string store. Values are opaque to it.
type Store interface {
	// Get returns ErrorNotFound when the key has never been set or was deleted.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
