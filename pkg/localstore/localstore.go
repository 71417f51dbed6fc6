// Package localstore provides the gateway's durable key-value storage: small
// JSON payloads written synchronously under fixed, namespaced keys. Carts,
// the catalog cache, and the reconciliation journal all live here so a
// visitor's state survives restarts regardless of the backend chosen.
package localstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its entry has expired.
var ErrNotFound = errors.New("localstore: key not found")

// Store is the durable key-value surface shared by the cart, the catalog
// cache, and the reconciliation journal. A ttl of zero means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
