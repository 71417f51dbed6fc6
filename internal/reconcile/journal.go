// Package reconcile closes the gap left when a provider charge succeeds but
// the verification call cannot be confirmed. Failed verifies are journaled
// durably and replayed in the background until they resolve or exhaust
// their retry budget.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/localstore"
)

// Entry is one unconfirmed payment verification. The cart behind it is never
// touched by replay; only a confirmed verify clears carts, and that happens
// in the payment flow, not here.
type Entry struct {
	AttemptID    string                `json:"attempt_id"`
	VisitorID    string                `json:"visitor_id"`
	SessionToken string                `json:"session_token"`
	Params       upstream.VerifyParams `json:"params"`
	Attempts     int                   `json:"attempts"`
	Parked       bool                  `json:"parked"`
	LastError    string                `json:"last_error,omitempty"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

// Journal stores the pending entries as a single JSON document under the
// fixed reconciliation key.
type Journal struct {
	mu sync.Mutex
	kv localstore.Store
}

func NewJournal(kv localstore.Store) (*Journal, error) {
	if kv == nil {
		return nil, fmt.Errorf("journal key-value store required")
	}
	return &Journal{kv: kv}, nil
}

// Record appends an unconfirmed verification.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.load(ctx)
	if err != nil {
		return err
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	return j.save(ctx, append(entries, entry))
}

// Pending returns every journaled entry, parked ones included.
func (j *Journal) Pending(ctx context.Context) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load(ctx)
}

// Resolve drops the entry for an attempt that finally verified.
func (j *Journal) Resolve(ctx context.Context, attemptID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.AttemptID != attemptID {
			kept = append(kept, entry)
		}
	}
	return j.save(ctx, kept)
}

// Update rewrites the entry for an attempt after a replay round.
func (j *Journal) Update(ctx context.Context, updated Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.load(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].AttemptID == updated.AttemptID {
			entries[i] = updated
		}
	}
	return j.save(ctx, entries)
}

func (j *Journal) load(ctx context.Context) ([]Entry, error) {
	raw, err := j.kv.Get(ctx, localstore.ReconcileKey)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("loading reconcile journal: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding reconcile journal: %w", err)
	}
	return entries, nil
}

func (j *Journal) save(ctx context.Context, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding reconcile journal: %w", err)
	}
	if err := j.kv.Set(ctx, localstore.ReconcileKey, raw, 0); err != nil {
		return fmt.Errorf("saving reconcile journal: %w", err)
	}
	return nil
}
