package reconcile

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/localstore"
	"github.com/royaliq/storefront/pkg/logger"
)

type stubVerifier struct {
	calls int
	errs  []error
}

func (s *stubVerifier) VerifyPayment(_ context.Context, _ string, _ upstream.VerifyParams) (*upstream.VerifyResult, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &upstream.VerifyResult{OK: true, OrderID: "ord-1", Status: "PAID"}, nil
}

func testEntry(attemptID string) Entry {
	return Entry{
		AttemptID:    attemptID,
		VisitorID:    "visitor-1",
		SessionToken: "token-1",
		Params: upstream.VerifyParams{
			ProviderOrderID:   "order_rzp_1",
			ProviderPaymentID: "pay_1",
			ProviderSignature: "sig_1",
			TotalAmount:       90000,
		},
	}
}

func newService(t *testing.T, journal *Journal, verifier *stubVerifier, maxAttempts int) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	cfg := config.ReconcileConfig{
		Interval:       time.Minute,
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxElapsed:     20 * time.Millisecond,
	}
	svc, err := NewService(journal, verifier, cfg, logg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSweepResolvesConfirmedEntry(t *testing.T) {
	journal, err := NewJournal(localstore.NewMemory())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	if err := journal.Record(ctx, testEntry("attempt-1")); err != nil {
		t.Fatalf("record: %v", err)
	}

	verifier := &stubVerifier{}
	svc := newService(t, journal, verifier, 3)

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	entries, err := journal.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected resolved journal, got %+v", entries)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected one verify call, got %d", verifier.calls)
	}
}

func TestSweepRetriesTransientFailure(t *testing.T) {
	journal, err := NewJournal(localstore.NewMemory())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	if err := journal.Record(ctx, testEntry("attempt-1")); err != nil {
		t.Fatalf("record: %v", err)
	}

	// The first verify fails transiently; the in-sweep backoff retries and
	// the second succeeds.
	verifier := &stubVerifier{errs: []error{pkgerrors.New(pkgerrors.CodeDependency, "backend down")}}
	svc := newService(t, journal, verifier, 3)

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	entries, err := journal.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected resolved journal, got %+v", entries)
	}
	if verifier.calls < 2 {
		t.Fatalf("expected retried verify, got %d calls", verifier.calls)
	}
}

func TestSweepCountsFailedRounds(t *testing.T) {
	journal, err := NewJournal(localstore.NewMemory())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	if err := journal.Record(ctx, testEntry("attempt-1")); err != nil {
		t.Fatalf("record: %v", err)
	}

	verifier := &stubVerifier{errs: []error{
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
	}}
	svc := newService(t, journal, verifier, 5)

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	entries, err := journal.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected entry retained, got %+v", entries)
	}
	if entries[0].Attempts != 1 {
		t.Fatalf("expected one failed round, got %d", entries[0].Attempts)
	}
	if entries[0].Parked {
		t.Fatal("entry must not park before the attempt budget is spent")
	}
	if entries[0].LastError == "" {
		t.Fatal("expected recorded failure reason")
	}
}

func TestSweepParksAfterAttemptBudget(t *testing.T) {
	journal, err := NewJournal(localstore.NewMemory())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	entry := testEntry("attempt-1")
	if err := journal.Record(ctx, entry); err != nil {
		t.Fatalf("record: %v", err)
	}

	svc := newService(t, journal, &stubVerifier{errs: []error{
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
		pkgerrors.New(pkgerrors.CodeDependency, "down"),
	}}, 2)

	for i := 0; i < 3; i++ {
		if err := svc.Sweep(ctx); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}

	entries, err := journal.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(entries) != 1 || !entries[0].Parked {
		t.Fatalf("expected parked entry, got %+v", entries)
	}
	if entries[0].Attempts != 2 {
		t.Fatalf("expected two failed rounds, got %d", entries[0].Attempts)
	}
}

func TestSweepParksDefinitiveRejection(t *testing.T) {
	journal, err := NewJournal(localstore.NewMemory())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	if err := journal.Record(ctx, testEntry("attempt-1")); err != nil {
		t.Fatalf("record: %v", err)
	}

	verifier := &stubVerifier{errs: []error{pkgerrors.New(pkgerrors.CodePaymentFailed, "signature rejected")}}
	svc := newService(t, journal, verifier, 5)

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	entries, err := journal.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(entries) != 1 || !entries[0].Parked {
		t.Fatalf("expected immediate park on rejection, got %+v", entries)
	}
	if verifier.calls != 1 {
		t.Fatalf("rejection must not be retried, got %d calls", verifier.calls)
	}
}

func TestSweepSkipsParkedEntries(t *testing.T) {
	journal, err := NewJournal(localstore.NewMemory())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	parked := testEntry("attempt-1")
	parked.Parked = true
	if err := journal.Record(ctx, parked); err != nil {
		t.Fatalf("record: %v", err)
	}

	verifier := &stubVerifier{}
	svc := newService(t, journal, verifier, 5)

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("parked entries must not replay, got %d calls", verifier.calls)
	}
}
