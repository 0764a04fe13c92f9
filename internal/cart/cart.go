// Package cart implements the session-scoped shopping cart. A Cart is a plain
// value: every operation takes the current cart and returns the new one, the
// caller decides where it is persisted.
package cart

import (
	"sort"

	"github.com/shopspring/decimal"
)

type Entry struct {
	ProductID uint            `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"` // price when the product was added
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"` // live stock seen at the last validation
}

type Cart struct {
	Entries map[uint]Entry `json:"entries"`
}

func New() Cart {
	return Cart{Entries: map[uint]Entry{}}
}

func (c Cart) Clone() Cart {
	out := New()
	for id, e := range c.Entries {
		out.Entries[id] = e
	}
	return out
}

func (c Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

func (c Cart) Len() int {
	return len(c.Entries)
}

func (c Cart) Get(productID uint) (Entry, bool) {
	e, ok := c.Entries[productID]
	return e, ok
}

// ProductIDs returns the ids in ascending order.
func (c Cart) ProductIDs() []uint {
	ids := make([]uint, 0, len(c.Entries))
	for id := range c.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sorted returns the entries ordered by product id.
func (c Cart) Sorted() []Entry {
	ids := c.ProductIDs()
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.Entries[id])
	}
	return out
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.Entries {
		total = total.Add(e.Total())
	}
	return total
}

func (e Entry) Total() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}
