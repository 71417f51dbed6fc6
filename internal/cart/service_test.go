package cart

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/royaliq/storefront/internal/upstream"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/localstore"
	"github.com/royaliq/storefront/pkg/logger"
)

const testVisitor = "visitor-1"

func newTestService(t *testing.T) (Service, localstore.Store) {
	t.Helper()
	kv := localstore.NewMemory()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	store, err := NewStore(kv, logg)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc, err := NewService(store, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, kv
}

func ringProduct(price float64) upstream.Product {
	return upstream.Product{SKU: "RIQ-RING-1", Name: "Gold Ring", Price: &price}
}

func TestAddItemAggregatesQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ring := ringProduct(45000)

	for _, qty := range []int{1, 1, 2} {
		if _, err := svc.AddItem(ctx, testVisitor, ring, qty); err != nil {
			t.Fatalf("add item: %v", err)
		}
	}

	snap, err := svc.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("expected a single aggregated line, got %d", len(snap.Lines))
	}
	if snap.Lines[0].Qty != 4 {
		t.Fatalf("expected qty 4, got %d", snap.Lines[0].Qty)
	}
	if snap.Count() != 4 {
		t.Fatalf("expected count 4, got %d", snap.Count())
	}
}

func TestAddItemClampsNonPositiveQty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	snap, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), -3)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if snap.Lines[0].Qty != 1 {
		t.Fatalf("expected clamped qty 1, got %d", snap.Lines[0].Qty)
	}
}

func TestAddItemOpensDrawer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	snap, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 1)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !snap.DrawerOpen {
		t.Fatal("expected drawer to open after add")
	}

	snap, err = svc.SetDrawerOpen(ctx, testVisitor, false)
	if err != nil {
		t.Fatalf("set drawer: %v", err)
	}
	if snap.DrawerOpen {
		t.Fatal("expected drawer to close")
	}
}

func TestAddItemKeepsFirstProductSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	// Same SKU arrives again with a new price; the locked-in snapshot wins.
	snap, err := svc.AddItem(ctx, testVisitor, ringProduct(52000), 1)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got := *snap.Lines[0].Product.Price; got != 45000 {
		t.Fatalf("expected first-add price 45000, got %v", got)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 2); err != nil {
		t.Fatalf("add item: %v", err)
	}

	snap, err := svc.RemoveItem(ctx, testVisitor, "RIQ-RING-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !snap.IsEmpty() {
		t.Fatalf("expected empty bag, got %+v", snap.Lines)
	}

	// Removing again, or removing a SKU that never existed, stays a no-op.
	if _, err := svc.RemoveItem(ctx, testVisitor, "RIQ-RING-1"); err != nil {
		t.Fatalf("repeat remove: %v", err)
	}
	if _, err := svc.RemoveItem(ctx, testVisitor, "NEVER-ADDED"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	svc, kv := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 3); err != nil {
		t.Fatalf("add item: %v", err)
	}

	// A second service over the same backing store sees the saved bag, the
	// way a fresh page load rehydrates from storage.
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	store, err := NewStore(kv, logg)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	reloaded, err := NewService(store, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	snap, err := reloaded.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(snap.Lines) != 1 || snap.Lines[0].Qty != 3 {
		t.Fatalf("unexpected rehydrated bag: %+v", snap.Lines)
	}
	// Drawer visibility is per-session and does not survive the reload.
	if snap.DrawerOpen {
		t.Fatal("expected drawer closed after rehydrate")
	}
}

func TestCorruptStorageResetsToEmpty(t *testing.T) {
	svc, kv := newTestService(t)
	ctx := context.Background()

	if err := kv.Set(ctx, localstore.CartKey(testVisitor), []byte("{not json"), 0); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	snap, err := svc.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !snap.IsEmpty() {
		t.Fatalf("expected empty bag after corrupt payload, got %+v", snap.Lines)
	}

	// The next mutation persists cleanly over the corrupt value.
	if _, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	snap, err = svc.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("expected one line, got %+v", snap.Lines)
	}
}

func TestClearKeepsTheKey(t *testing.T) {
	svc, kv := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	snap, err := svc.Clear(ctx, testVisitor)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !snap.IsEmpty() {
		t.Fatalf("expected empty bag, got %+v", snap.Lines)
	}

	raw, err := kv.Get(ctx, localstore.CartKey(testVisitor))
	if err != nil {
		t.Fatalf("expected cart key to survive clear: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected empty array payload, got %s", raw)
	}
}

func TestTotalTreatsMissingPriceAsZero(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, testVisitor, ringProduct(45000), 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	onRequest := upstream.Product{SKU: "RIQ-NECK-1", Name: "Bridal Necklace"}
	if _, err := svc.AddItem(ctx, testVisitor, onRequest, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	snap, err := svc.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := decimal.NewFromInt(90000); !snap.Total().Equal(want) {
		t.Fatalf("expected total %s, got %s", want, snap.Total())
	}
	if snap.AllOnRequest() {
		t.Fatal("bag with a priced line is not all on-request")
	}
}

func TestAllOnRequest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	snap, err := svc.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.AllOnRequest() {
		t.Fatal("empty bag is not on-request")
	}

	if _, err := svc.AddItem(ctx, testVisitor, upstream.Product{SKU: "RIQ-NECK-1"}, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	snap, err = svc.Get(ctx, testVisitor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !snap.AllOnRequest() {
		t.Fatal("expected all-on-request bag")
	}
	if !snap.Total().IsZero() {
		t.Fatalf("expected zero total, got %s", snap.Total())
	}
}

func TestVisitorsAreIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "visitor-a", ringProduct(45000), 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	snap, err := svc.Get(ctx, "visitor-b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !snap.IsEmpty() {
		t.Fatalf("expected empty bag for other visitor, got %+v", snap.Lines)
	}
}

func TestOperationsRequireVisitor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, " ", ringProduct(45000), 1); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Get(ctx, ""); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddItemRequiresSKU(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), testVisitor, upstream.Product{Name: "No SKU"}, 1)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
