package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DaniDevGS/triven-shop/internal/exchange"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

// Filter holds the raw storefront query. Prices only apply when they are
// plain digit strings; anything else is ignored.
type Filter struct {
	Category string
	MinPrice string
	MaxPrice string
	Query    string
}

type ProductView struct {
	models.Product
	PriceConverted *decimal.Decimal `json:"price_converted,omitempty"`
}

type Listing struct {
	Products   []ProductView    `json:"products"`
	Count      int              `json:"count"`
	Rate       *decimal.Decimal `json:"rate,omitempty"`
	Categories interface{}      `json:"categories"`
	Active     ActiveFilter     `json:"filters"`
}

type ActiveFilter struct {
	Category string           `json:"category,omitempty"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
	Query    string           `json:"q,omitempty"`
}

func (s *Service) Storefront(ctx context.Context, f Filter) (*Listing, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("published_at IS NOT NULL")
	active := ActiveFilter{Category: f.Category, Query: f.Query}

	if f.Query != "" {
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(f.Query))+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if min, ok := parseDigits(f.MinPrice); ok {
		q = q.Where("price >= ?", min)
		active.MinPrice = &min
	}
	if max, ok := parseDigits(f.MaxPrice); ok {
		q = q.Where("price <= ?", max)
		active.MaxPrice = &max
	}

	var products []models.Product
	if err := q.Order("published_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list storefront products: %w", err)
	}

	rate := exchange.Lookup(ctx, s.rates)
	return &Listing{
		Products:   convertAll(products, rate),
		Count:      len(products),
		Rate:       rate,
		Categories: models.Categories,
		Active:     active,
	}, nil
}

// Featured returns every published product, newest publication first.
func (s *Service) Featured(ctx context.Context) ([]ProductView, error) {
	products, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	return convertAll(products, exchange.Lookup(ctx, s.rates)), nil
}

// PublishedDetail loads a listed product with its gallery.
func (s *Service) PublishedDetail(ctx context.Context, id uint) (*ProductView, error) {
	if _, err := s.PublishedProduct(ctx, id); err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rate := exchange.Lookup(ctx, s.rates)
	return &ProductView{Product: *product, PriceConverted: exchange.Convert(product.Price, rate)}, nil
}

func convertAll(products []models.Product, rate *decimal.Decimal) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{Product: p, PriceConverted: exchange.Convert(p.Price, rate)})
	}
	return views
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func parseDigits(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
