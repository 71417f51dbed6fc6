package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/royaliq/storefront/internal/upstream"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

// Service exposes the bag operations the storefront drawer performs.
type Service interface {
	Get(ctx context.Context, visitorID string) (Snapshot, error)
	AddItem(ctx context.Context, visitorID string, product upstream.Product, qty int) (Snapshot, error)
	RemoveItem(ctx context.Context, visitorID, sku string) (Snapshot, error)
	Clear(ctx context.Context, visitorID string) (Snapshot, error)
	SetDrawerOpen(ctx context.Context, visitorID string, open bool) (Snapshot, error)
}

type service struct {
	store *Store
	logg  *logger.Logger

	// Drawer visibility is session UI state, not part of the persisted bag.
	mu      sync.Mutex
	drawers map[string]bool
}

func NewService(store *Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("cart logger required")
	}
	return &service{
		store:   store,
		logg:    logg,
		drawers: map[string]bool{},
	}, nil
}

func (s *service) Get(ctx context.Context, visitorID string) (Snapshot, error) {
	if err := requireVisitor(visitorID); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(visitorID, lines), nil
}

// AddItem merges the product into the bag. Quantities below one are clamped
// to one, a repeat SKU bumps the existing line instead of adding a second
// one, and the drawer opens so the shopper sees the result.
func (s *service) AddItem(ctx context.Context, visitorID string, product upstream.Product, qty int) (Snapshot, error) {
	if err := requireVisitor(visitorID); err != nil {
		return Snapshot{}, err
	}
	if strings.TrimSpace(product.SKU) == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product sku is required")
	}
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return Snapshot{}, err
	}

	merged := false
	for i := range lines {
		if lines[i].Product.SKU == product.SKU {
			lines[i].Qty += qty
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, Line{Product: product, Qty: qty})
	}

	if err := s.store.Save(ctx, visitorID, lines); err != nil {
		return Snapshot{}, err
	}
	s.drawers[visitorID] = true

	ctx = s.logg.WithVisitorID(s.logg.WithSKU(ctx, product.SKU), visitorID)
	s.logg.Debug(ctx, "cart item added")
	return s.snapshot(visitorID, lines), nil
}

// RemoveItem drops every line carrying the SKU. Removing an absent SKU is a
// no-op, not an error.
func (s *service) RemoveItem(ctx context.Context, visitorID, sku string) (Snapshot, error) {
	if err := requireVisitor(visitorID); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return Snapshot{}, err
	}

	kept := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Product.SKU != sku {
			kept = append(kept, line)
		}
	}

	if err := s.store.Save(ctx, visitorID, kept); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(visitorID, kept), nil
}

// Clear empties the bag but keeps the key, so the persisted state reads as
// "empty cart" rather than "never had one".
func (s *service) Clear(ctx context.Context, visitorID string) (Snapshot, error) {
	if err := requireVisitor(visitorID); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, visitorID, []Line{}); err != nil {
		return Snapshot{}, err
	}
	s.logg.Debug(s.logg.WithVisitorID(ctx, visitorID), "cart cleared")
	return s.snapshot(visitorID, []Line{}), nil
}

func (s *service) SetDrawerOpen(ctx context.Context, visitorID string, open bool) (Snapshot, error) {
	if err := requireVisitor(visitorID); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawers[visitorID] = open
	lines, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(visitorID, lines), nil
}

func (s *service) snapshot(visitorID string, lines []Line) Snapshot {
	return Snapshot{
		Lines:      append([]Line{}, lines...),
		DrawerOpen: s.drawers[visitorID],
	}
}

func requireVisitor(visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	return nil
}
