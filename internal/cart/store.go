package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/royaliq/storefront/pkg/localstore"
	"github.com/royaliq/storefront/pkg/logger"
)

// Store persists cart lines under the visitor's fixed bag key. The payload
// is the JSON line array itself, so an operator inspecting the backing store
// sees the same shape the storefront always saved.
type Store struct {
	kv   localstore.Store
	logg *logger.Logger
}

func NewStore(kv localstore.Store, logg *logger.Logger) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("cart key-value store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("cart logger required")
	}
	return &Store{kv: kv, logg: logg}, nil
}

// Load rehydrates a visitor's lines. A missing key means a fresh bag; a
// corrupt payload is treated the same way rather than failing the session,
// and the next save overwrites it.
func (s *Store) Load(ctx context.Context, visitorID string) ([]Line, error) {
	raw, err := s.kv.Get(ctx, localstore.CartKey(visitorID))
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return []Line{}, nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		ctx = s.logg.WithVisitorID(ctx, visitorID)
		s.logg.Warn(ctx, "discarding corrupt cart payload")
		return []Line{}, nil
	}
	return lines, nil
}

// Save writes the full line array. Carts never expire on their own.
func (s *Store) Save(ctx context.Context, visitorID string, lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := s.kv.Set(ctx, localstore.CartKey(visitorID), raw, 0); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}
