// Package cart owns the per-visitor shopping bag: quantity aggregation,
// durable persistence of the line snapshot, and the derived totals the
// checkout flow reads.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/royaliq/storefront/internal/upstream"
)

// Line pairs the product snapshot captured when the item was first added
// with its aggregated quantity. Later adds of the same SKU only bump Qty;
// the snapshot is deliberately never refreshed mid-session.
type Line struct {
	Product upstream.Product `json:"product"`
	Qty     int              `json:"qty"`
}

// Subtotal is the line's contribution to the bag total. A missing price
// means price-on-request and counts as zero.
func (l Line) Subtotal() decimal.Decimal {
	if l.Product.Price == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*l.Product.Price).Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Snapshot is a read-only view of one visitor's bag.
type Snapshot struct {
	Lines      []Line `json:"lines"`
	DrawerOpen bool   `json:"drawer_open"`
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Count is the number of units across all lines, not distinct SKUs.
func (s Snapshot) Count() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Qty
	}
	return total
}

func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// AllOnRequest reports whether every line in a non-empty bag is
// price-on-request, in which case the total is meaningless and checkout
// routes to an enquiry instead of payment.
func (s Snapshot) AllOnRequest() bool {
	if len(s.Lines) == 0 {
		return false
	}
	for _, line := range s.Lines {
		if line.Product.Price != nil {
			return false
		}
	}
	return true
}
