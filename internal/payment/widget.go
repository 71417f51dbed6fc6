package payment

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

// Descriptor carries everything the hosted widget needs to open one payment
// attempt: the gateway key, the gateway-issued order id, and the display
// fields shown in the widget chrome.
type Descriptor struct {
	Key         string  `json:"key"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ThemeColor  string  `json:"theme_color"`
}

// Prefill seeds the widget's contact form with the signed-in customer.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Result is what the widget's success callback hands back.
type Result struct {
	ProviderOrderID   string `json:"razorpay_order_id"`
	ProviderPaymentID string `json:"razorpay_payment_id"`
	ProviderSignature string `json:"razorpay_signature"`
}

// Widget abstracts the third-party checkout surface. Load must be cheap to
// call repeatedly: the first success is cached, failures are not, so a
// gateway blip does not poison later checkouts.
type Widget interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, descriptor Descriptor, prefill Prefill) (*Result, error)
}

// HostedWidget fronts the real gateway. Load probes the checkout script so
// a dead gateway is caught before a payment order is created; the actual
// widget renders on the shopper's device, so Open is not reachable here.
type HostedWidget struct {
	scriptURL  string
	httpClient *http.Client
	logg       *logger.Logger

	mu     sync.Mutex
	loaded bool
}

func NewHostedWidget(cfg config.GatewayConfig, logg *logger.Logger) (*HostedWidget, error) {
	if cfg.CheckoutScriptURL == "" {
		return nil, fmt.Errorf("checkout script url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("widget logger required")
	}
	return &HostedWidget{
		scriptURL:  cfg.CheckoutScriptURL,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		logg:       logg,
	}, nil
}

func (w *HostedWidget) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.scriptURL, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway probe")
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logg.Warn(w.logg.WithField(ctx, "script_url", w.scriptURL), "payment gateway probe failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		w.logg.Warn(w.logg.WithField(ctx, "status", resp.StatusCode), "payment gateway probe rejected")
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	w.loaded = true
	w.logg.Info(ctx, "payment gateway script available")
	return nil
}

func (w *HostedWidget) Open(ctx context.Context, _ Descriptor, _ Prefill) (*Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hosted widget completes on the shopper's device")
}
