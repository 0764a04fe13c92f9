package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/exchange"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

// Catalog is the live view of products the cart validates against.
type Catalog interface {
	PublishedProduct(ctx context.Context, id uint) (*models.Product, error)
	LiveStock(ctx context.Context, ids []uint) (map[uint]int, error)
}

type Service struct {
	catalog Catalog
	rates   exchange.RateProvider
}

func NewService(catalog Catalog, rates exchange.RateProvider) *Service {
	if rates == nil {
		rates = exchange.Unavailable
	}
	return &Service{catalog: catalog, rates: rates}
}

// Add puts requested units of a published product in the cart. When the
// cart would exceed live stock the entry is clamped to the stock and a
// warning is returned; with no headroom left the cart is returned unchanged.
func (s *Service) Add(ctx context.Context, c Cart, productID uint, requested int) (Cart, Notice, error) {
	if requested < 1 {
		return c, Notice{}, apperrors.Validation("quantity", "must be at least 1")
	}

	product, err := s.catalog.PublishedProduct(ctx, productID)
	if err != nil {
		return c, Notice{}, err
	}

	out := c.Clone()
	stock := product.Quantity
	entry, exists := out.Entries[productID]
	inCart := entry.Quantity

	if inCart+requested > stock {
		allowed := stock - inCart
		if allowed <= 0 {
			return c, failure(productID, "You cannot add more units of %s. You already have the maximum stock (%d) in your cart.", product.Title, stock), nil
		}
		if !exists {
			entry = newEntry(product)
		}
		entry.Quantity = stock
		entry.Stock = stock
		out.Entries[productID] = entry
		return out, warning(productID, "Only %d units of %s were added. The maximum stock is %d.", allowed, product.Title, stock), nil
	}

	if !exists {
		entry = newEntry(product)
	}
	entry.Quantity = inCart + requested
	entry.Stock = stock
	out.Entries[productID] = entry
	return out, success(productID, "%d units of %s added to the cart.", requested, product.Title), nil
}

// Update sets the quantity of an existing entry, clamped to live stock.
func (s *Service) Update(ctx context.Context, c Cart, productID uint, quantity int) (Cart, Notice, error) {
	entry, ok := c.Entries[productID]
	if !ok {
		return c, Notice{}, apperrors.NotFound("cart item", productID)
	}
	if quantity < 1 {
		return c, Notice{}, apperrors.Validation("quantity", "must be at least 1")
	}

	product, err := s.catalog.PublishedProduct(ctx, productID)
	if err != nil {
		return c, Notice{}, err
	}

	out := c.Clone()
	stock := product.Quantity
	notice := success(productID, "Quantity of %s updated to %d.", entry.Title, quantity)
	if quantity > stock {
		quantity = stock
		notice = warning(productID, "The maximum quantity for %s is %d. Quantity adjusted.", product.Title, stock)
	}

	entry.Stock = stock
	entry.Quantity = quantity
	out.Entries[productID] = entry
	return out, notice, nil
}

func (s *Service) Remove(c Cart, productID uint) Cart {
	out := c.Clone()
	delete(out.Entries, productID)
	return out
}

func (s *Service) Clear() Cart {
	return New()
}

type Line struct {
	ProductID          uint             `json:"product_id"`
	Title              string           `json:"title"`
	ImageURL           string           `json:"image_url,omitempty"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	UnitPriceConverted *decimal.Decimal `json:"unit_price_converted,omitempty"`
	Quantity           int              `json:"quantity"`
	Total              decimal.Decimal  `json:"total"`
	TotalConverted     *decimal.Decimal `json:"total_converted,omitempty"`
	MaxStock           int              `json:"max_stock"`
	Unavailable        bool             `json:"unavailable"`
}

type Summary struct {
	Items             []Line           `json:"items"`
	Subtotal          decimal.Decimal  `json:"subtotal"`
	SubtotalConverted *decimal.Decimal `json:"subtotal_converted,omitempty"`
	Rate              *decimal.Decimal `json:"rate,omitempty"`
}

// View re-validates every entry against current live stock, clamping entries
// whose stock shrank since they were added, and computes the totals. Products
// that disappeared from the catalog count as zero stock.
func (s *Service) View(ctx context.Context, c Cart) (Cart, Summary, []Notice, error) {
	stock, err := s.catalog.LiveStock(ctx, c.ProductIDs())
	if err != nil {
		return c, Summary{}, nil, fmt.Errorf("failed to read live stock: %w", err)
	}

	rate := exchange.Lookup(ctx, s.rates)
	out := c.Clone()
	summary := Summary{Items: []Line{}, Subtotal: decimal.Zero, Rate: rate}
	var notices []Notice

	for _, entry := range c.Sorted() {
		live := stock[entry.ProductID]
		if entry.Quantity > live {
			entry.Quantity = live
			notices = append(notices, warning(entry.ProductID, "The quantity of %s was adjusted to its maximum stock of %d.", entry.Title, live))
		}
		entry.Stock = live
		out.Entries[entry.ProductID] = entry

		if live == 0 {
			notices = append(notices, failure(entry.ProductID, "%s is temporarily unavailable. Please remove it.", entry.Title))
		}

		total := entry.Total()
		summary.Subtotal = summary.Subtotal.Add(total)
		summary.Items = append(summary.Items, Line{
			ProductID:          entry.ProductID,
			Title:              entry.Title,
			ImageURL:           entry.ImageURL,
			UnitPrice:          entry.UnitPrice,
			UnitPriceConverted: exchange.Convert(entry.UnitPrice, rate),
			Quantity:           entry.Quantity,
			Total:              total,
			TotalConverted:     exchange.Convert(total, rate),
			MaxStock:           live,
			Unavailable:        live == 0,
		})
	}
	summary.SubtotalConverted = exchange.Convert(summary.Subtotal, rate)

	return out, summary, notices, nil
}

func newEntry(p *models.Product) Entry {
	return Entry{
		ProductID: p.ID,
		Title:     p.Title,
		UnitPrice: p.Price,
		ImageURL:  p.CoverImage,
	}
}
