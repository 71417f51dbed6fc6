package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
	"github.com/royaliq/storefront/pkg/metrics"
)

type verifier interface {
	VerifyPayment(ctx context.Context, session string, params upstream.VerifyParams) (*upstream.VerifyResult, error)
}

// Service replays journaled verifications on a fixed cadence. A replay that
// confirms the charge resolves the entry; one that keeps failing parks it
// for manual review once the attempt budget runs out. Carts are never
// cleared from here: by the time an entry lands in the journal the shopper
// has already seen the failure, and silently emptying their bag later would
// be worse than the duplicate-order risk it avoids.
type Service struct {
	journal  *Journal
	verifier verifier
	logg     *logger.Logger
	metrics  *metrics.ReconcileMetrics
	cfg      config.ReconcileConfig
}

func NewService(journal *Journal, verifier verifier, cfg config.ReconcileConfig, logg *logger.Logger, m *metrics.ReconcileMetrics) (*Service, error) {
	if journal == nil {
		return nil, fmt.Errorf("reconcile journal required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("reconcile verifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("reconcile logger required")
	}
	return &Service{
		journal:  journal,
		verifier: verifier,
		logg:     logg,
		metrics:  m,
		cfg:      cfg,
	}, nil
}

// Run sweeps until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			s.logg.Error(ctx, "reconciliation sweep failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep replays every live journal entry once.
func (s *Service) Sweep(ctx context.Context) error {
	started := time.Now()
	defer func() {
		s.metrics.ObserveRun("journal", time.Since(started))
	}()

	entries, err := s.journal.Pending(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Parked {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.replay(ctx, entry)
	}
	return nil
}

func (s *Service) replay(ctx context.Context, entry Entry) {
	ctx = s.logg.WithAttemptID(s.logg.WithVisitorID(ctx, entry.VisitorID), entry.AttemptID)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialBackoff
	policy.MaxElapsedTime = s.cfg.MaxElapsed

	operation := func() error {
		_, err := s.verifier.VerifyPayment(ctx, entry.SessionToken, entry.Params)
		if err == nil {
			return nil
		}
		// A definitive provider rejection will not change on retry.
		if pkgerrors.Is(err, pkgerrors.CodePaymentFailed) || pkgerrors.Is(err, pkgerrors.CodeValidation) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err == nil {
		if resolveErr := s.journal.Resolve(ctx, entry.AttemptID); resolveErr != nil {
			s.logg.Error(ctx, "resolving replayed entry", resolveErr)
			return
		}
		s.metrics.IncEntry(metrics.ReconcileReplayed)
		s.logg.Info(ctx, "payment verification reconciled")
		return
	}

	entry.Attempts++
	entry.LastError = err.Error()

	rejected := pkgerrors.Is(err, pkgerrors.CodePaymentFailed) || pkgerrors.Is(err, pkgerrors.CodeValidation)
	if rejected || entry.Attempts >= s.cfg.MaxAttempts {
		entry.Parked = true
		s.metrics.IncEntry(metrics.ReconcileParked)
		s.logg.Warn(ctx, "parking unreconcilable payment for manual review")
	} else {
		s.metrics.IncEntry(metrics.ReconcileRetry)
		s.logg.Warn(ctx, "payment verification still unconfirmed")
	}

	if updateErr := s.journal.Update(ctx, entry); updateErr != nil {
		s.logg.Error(ctx, "updating journal entry", updateErr)
	}
}
