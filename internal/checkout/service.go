package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/royaliq/storefront/internal/cart"
	"github.com/royaliq/storefront/internal/upstream"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
	"github.com/royaliq/storefront/pkg/metrics"
	"github.com/royaliq/storefront/pkg/notify"
)

type orderClient interface {
	CreateOrder(ctx context.Context, req upstream.OrderRequest) (*upstream.Order, error)
}

// Service drives the drawer flow for every visitor.
type Service interface {
	State(ctx context.Context, visitorID string) (State, error)
	// Begin moves from bag review to the buyer form. It refuses on an
	// empty bag.
	Begin(ctx context.Context, visitorID string) (State, error)
	// Back returns to bag review without touching the draft.
	Back(ctx context.Context, visitorID string) (State, error)
	// Close dismisses the drawer, resets the step, and discards the draft.
	Close(ctx context.Context, visitorID string) (State, error)
	SetDraft(ctx context.Context, visitorID string, draft Draft) (State, error)
	// Submit places the order for the bag's current lines. At most one
	// submission runs per visitor at a time.
	Submit(ctx context.Context, visitorID string, draft Draft) (*upstream.Order, error)
}

type service struct {
	orders   orderClient
	carts    cart.Service
	notifier notify.Notifier
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics

	mu       sync.Mutex
	visitors map[string]*flowState
}

// ServiceParams collects the flow's dependencies.
type ServiceParams struct {
	Orders   orderClient
	Carts    cart.Service
	Notifier notify.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order client required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   params.Orders,
		carts:    params.Carts,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		visitors: map[string]*flowState{},
	}, nil
}

func (s *service) State(ctx context.Context, visitorID string) (State, error) {
	if err := requireVisitor(visitorID); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(visitorID).view(), nil
}

func (s *service) Begin(ctx context.Context, visitorID string) (State, error) {
	if err := requireVisitor(visitorID); err != nil {
		return State{}, err
	}

	snap, err := s.carts.Get(ctx, visitorID)
	if err != nil {
		return State{}, err
	}
	if snap.IsEmpty() {
		s.notifier.Error(ctx, "Your bag is empty")
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot check out an empty bag")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(visitorID)
	st.step = StepCheckout
	return st.view(), nil
}

func (s *service) Back(ctx context.Context, visitorID string) (State, error) {
	if err := requireVisitor(visitorID); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(visitorID)
	st.step = StepCart
	return st.view(), nil
}

func (s *service) Close(ctx context.Context, visitorID string) (State, error) {
	if err := requireVisitor(visitorID); err != nil {
		return State{}, err
	}
	if _, err := s.carts.SetDrawerOpen(ctx, visitorID, false); err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(visitorID)
	st.step = StepCart
	st.draft = Draft{}
	return st.view(), nil
}

func (s *service) SetDraft(ctx context.Context, visitorID string, draft Draft) (State, error) {
	if err := requireVisitor(visitorID); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(visitorID)
	st.draft = draft
	return st.view(), nil
}

func (s *service) Submit(ctx context.Context, visitorID string, draft Draft) (*upstream.Order, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithVisitorID(ctx, visitorID)

	if !draft.complete() {
		s.notifier.Error(ctx, "Please provide your name and phone")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer name and phone are required")
	}

	snap, err := s.carts.Get(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if snap.IsEmpty() {
		s.notifier.Error(ctx, "Your bag is empty")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot submit an empty bag")
	}

	if err := s.beginSubmit(visitorID, draft); err != nil {
		return nil, err
	}
	defer s.endSubmit(visitorID)

	items := make([]upstream.OrderItem, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		price := 0.0
		if line.Product.Price != nil {
			price = *line.Product.Price
		}
		items = append(items, upstream.OrderItem{SKU: line.Product.SKU, Qty: line.Qty, Price: price})
	}

	started := time.Now()
	order, err := s.orders.CreateOrder(ctx, upstream.OrderRequest{
		CustomerName:  strings.TrimSpace(draft.Name),
		CustomerPhone: strings.TrimSpace(draft.Phone),
		Items:         items,
	})
	if err != nil {
		s.metrics.ObserveSubmit(metrics.OutcomeFailed, time.Since(started))
		s.metrics.IncOrder(metrics.OutcomeFailed)
		s.notifier.Error(ctx, "Failed to place order")
		return nil, err
	}

	s.metrics.ObserveSubmit(metrics.OutcomePlaced, time.Since(started))
	s.metrics.IncOrder(metrics.OutcomePlaced)
	s.notifier.Success(ctx, "Order placed successfully!")

	if _, err := s.carts.Clear(ctx, visitorID); err != nil {
		s.logg.Error(ctx, "clearing bag after placed order", err)
	}
	if _, err := s.carts.SetDrawerOpen(ctx, visitorID, false); err != nil {
		s.logg.Error(ctx, "closing drawer after placed order", err)
	}

	s.mu.Lock()
	st := s.state(visitorID)
	st.step = StepCart
	st.draft = Draft{}
	s.mu.Unlock()

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID), "order placed")
	return order, nil
}

func (s *service) beginSubmit(visitorID string, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(visitorID)
	if st.submitting {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "an order submission is already in flight")
	}
	st.submitting = true
	st.draft = draft
	return nil
}

func (s *service) endSubmit(visitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(visitorID).submitting = false
}

// state returns the visitor's flow, creating the initial cart-step state on
// first touch. Callers hold s.mu.
func (s *service) state(visitorID string) *flowState {
	st, ok := s.visitors[visitorID]
	if !ok {
		st = &flowState{step: StepCart}
		s.visitors[visitorID] = st
	}
	return st
}

func requireVisitor(visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	return nil
}
