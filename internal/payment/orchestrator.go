// Package payment drives the two-phase create/verify handoff to the hosted
// payment gateway. Every checkout attempt gets a fresh gateway descriptor;
// a verify is only accepted against a live attempt from the same visitor.
package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/royaliq/storefront/internal/cart"
	"github.com/royaliq/storefront/internal/reconcile"
	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
	"github.com/royaliq/storefront/pkg/metrics"
	"github.com/royaliq/storefront/pkg/notify"
)

const themeColor = "#D4AF37"

type paymentClient interface {
	CreatePaymentOrder(ctx context.Context, session string, amount float64) (*upstream.PaymentOrder, error)
	VerifyPayment(ctx context.Context, session string, params upstream.VerifyParams) (*upstream.VerifyResult, error)
}

type customerSource interface {
	Current(visitorID string) *upstream.Customer
}

// Attempt is one live create/verify cycle. It exists from a successful
// Create until the matching Complete or Fail consumes it; a cancelled or
// failed attempt is never reopened, the shopper starts over.
type Attempt struct {
	ID         string     `json:"id"`
	Descriptor Descriptor `json:"descriptor"`
	Prefill    Prefill    `json:"prefill"`

	visitorID string
	total     decimal.Decimal
	session   string
}

// Orchestrator sequences widget load, order creation, and verification.
type Orchestrator struct {
	client   paymentClient
	widget   Widget
	carts    cart.Service
	sessions customerSource
	journal  *reconcile.Journal
	notifier notify.Notifier
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics

	storeName  string
	storeBlurb string

	mu       sync.Mutex
	attempts map[string]*Attempt
}

// OrchestratorParams collects the orchestrator's dependencies.
type OrchestratorParams struct {
	Client   paymentClient
	Widget   Widget
	Carts    cart.Service
	Sessions customerSource
	Journal  *reconcile.Journal
	Notifier notify.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
	Upstream config.UpstreamConfig
}

func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("payment client required")
	}
	if params.Widget == nil {
		return nil, fmt.Errorf("payment widget required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("customer source required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("reconcile journal required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Orchestrator{
		client:     params.Client,
		widget:     params.Widget,
		carts:      params.Carts,
		sessions:   params.Sessions,
		journal:    params.Journal,
		notifier:   params.Notifier,
		logg:       params.Logger,
		metrics:    params.Metrics,
		storeName:  params.Upstream.StoreName,
		storeBlurb: params.Upstream.StoreBlurb,
		attempts:   map[string]*Attempt{},
	}, nil
}

// Start gates on an authenticated customer and a non-empty bag, probes the
// widget, and creates a fresh gateway order. The returned attempt holds the
// descriptor and prefill the widget opens with.
func (o *Orchestrator) Start(ctx context.Context, visitorID, sessionToken string) (*Attempt, error) {
	if strings.TrimSpace(visitorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	ctx = o.logg.WithVisitorID(ctx, visitorID)

	customer := o.sessions.Current(visitorID)
	if customer == nil {
		o.notifier.Error(ctx, "Please login to proceed")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment requires a signed-in customer")
	}

	snap, err := o.carts.Get(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if snap.IsEmpty() {
		o.notifier.Error(ctx, "Your bag is empty")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot pay for an empty bag")
	}

	if err := o.widget.Load(ctx); err != nil {
		o.metrics.IncPayment(metrics.PaymentGatewayUnavailable)
		o.notifier.Error(ctx, "Failed to load payment gateway")
		return nil, err
	}

	total := snap.Total()
	order, err := o.client.CreatePaymentOrder(ctx, sessionToken, total.InexactFloat64())
	if err != nil {
		o.metrics.IncPayment(metrics.PaymentFailed)
		o.notifier.Error(ctx, "Could not initiate payment")
		return nil, err
	}

	attempt := &Attempt{
		ID: uuid.NewString(),
		Descriptor: Descriptor{
			Key:         order.KeyID,
			Amount:      order.Amount,
			Currency:    order.Currency,
			OrderID:     order.OrderID,
			Name:        o.storeName,
			Description: o.storeBlurb,
			ThemeColor:  themeColor,
		},
		Prefill: Prefill{
			Name:    customer.Name,
			Contact: customer.Phone,
		},
		visitorID: visitorID,
		total:     total,
		session:   sessionToken,
	}

	o.mu.Lock()
	o.attempts[attempt.ID] = attempt
	o.mu.Unlock()

	o.metrics.IncPayment(metrics.PaymentCreated)
	o.logg.Info(o.logg.WithAttemptID(ctx, attempt.ID), "payment attempt created")
	return attempt, nil
}

// Complete verifies the widget's success callback against the attempt it
// belongs to. The attempt is consumed either way: a verify that cannot be
// confirmed goes to the reconciliation journal and the bag stays intact.
func (o *Orchestrator) Complete(ctx context.Context, visitorID, attemptID string, result Result) (*upstream.VerifyResult, error) {
	attempt, err := o.consume(visitorID, attemptID)
	if err != nil {
		return nil, err
	}
	ctx = o.logg.WithAttemptID(o.logg.WithVisitorID(ctx, visitorID), attemptID)

	params := upstream.VerifyParams{
		ProviderOrderID:   result.ProviderOrderID,
		ProviderPaymentID: result.ProviderPaymentID,
		ProviderSignature: result.ProviderSignature,
		TotalAmount:       attempt.total.InexactFloat64(),
	}

	verified, err := o.client.VerifyPayment(ctx, attempt.session, params)
	if err != nil {
		o.metrics.IncPayment(metrics.PaymentVerifyFailed)
		o.notifier.Error(ctx, "Payment verification failed")
		if journalErr := o.journal.Record(ctx, reconcile.Entry{
			AttemptID:    attempt.ID,
			VisitorID:    visitorID,
			SessionToken: attempt.session,
			Params:       params,
			LastError:    err.Error(),
		}); journalErr != nil {
			o.logg.Error(ctx, "journaling unconfirmed payment", journalErr)
		}
		return nil, err
	}

	if _, err := o.carts.Clear(ctx, visitorID); err != nil {
		// The payment is confirmed; a bag that fails to clear must not
		// resurface as a second charge, so log and move on.
		o.logg.Error(ctx, "clearing bag after verified payment", err)
	}

	o.metrics.IncPayment(metrics.PaymentVerified)
	o.notifier.Success(ctx, "Payment Successful!")
	o.logg.Info(ctx, "payment verified")
	return verified, nil
}

// Fail consumes the attempt after the widget reported failure or the
// shopper dismissed it. The bag is untouched; retrying runs a fresh Start.
func (o *Orchestrator) Fail(ctx context.Context, visitorID, attemptID, providerMessage string) error {
	if _, err := o.consume(visitorID, attemptID); err != nil {
		return err
	}
	ctx = o.logg.WithAttemptID(o.logg.WithVisitorID(ctx, visitorID), attemptID)

	message := strings.TrimSpace(providerMessage)
	if message == "" {
		message = "Payment failed"
	}
	o.metrics.IncPayment(metrics.PaymentFailed)
	o.notifier.Error(ctx, message)
	o.logg.Warn(ctx, "payment attempt failed")
	return nil
}

// Pay runs the whole cycle against an in-process widget: Start, Open, then
// Complete or Fail depending on what the widget reports. The hosted widget
// collects card details on the shopper's device, so the HTTP surface drives
// Start, Complete and Fail individually; Pay serves Widget implementations
// that can open without a round trip to the shopper.
func (o *Orchestrator) Pay(ctx context.Context, visitorID, sessionToken string) (*upstream.VerifyResult, error) {
	attempt, err := o.Start(ctx, visitorID, sessionToken)
	if err != nil {
		return nil, err
	}

	result, err := o.widget.Open(ctx, attempt.Descriptor, attempt.Prefill)
	if err != nil {
		if failErr := o.Fail(ctx, visitorID, attempt.ID, providerMessage(err)); failErr != nil {
			return nil, failErr
		}
		return nil, err
	}
	return o.Complete(ctx, visitorID, attempt.ID, *result)
}

func (o *Orchestrator) consume(visitorID, attemptID string) (*Attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempt, ok := o.attempts[attemptID]
	if !ok || attempt.visitorID != visitorID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no live payment attempt")
	}
	delete(o.attempts, attemptID)
	return attempt, nil
}

func providerMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
