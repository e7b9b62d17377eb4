package kvstore

import (
	"context"
	"errors"
)

// ErrInvalidKey is returned for keys an adapter cannot address (empty, or
// containing characters outside [A-Za-z0-9._-]).
var ErrInvalidKey = errors.New("invalid store key")

// Store is a persistent key-value store holding opaque values under fixed keys.
//
// Put replaces the whole value (last write wins). Get reports ok=false when the
// key has never been written.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// ValidKey reports whether key is safe for every adapter.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
