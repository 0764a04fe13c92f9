// Package catalog manages products: the admin side (drafts, publishing,
// gallery images) and the storefront side (published listings, live stock).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/exchange"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/uploads"
)

var maxPrice = decimal.RequireFromString("9999.99")

type ProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    models.Category
}

func (in ProductInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return apperrors.Validation("title", "is required")
	case len([]rune(title)) > 100:
		return apperrors.Validation("title", "must be at most 100 characters")
	case in.Price.IsNegative():
		return apperrors.Validation("price", "must not be negative")
	case in.Price.GreaterThan(maxPrice):
		return apperrors.Validation("price", "must not exceed %s", maxPrice)
	case in.Price.Exponent() < -2 && !in.Price.Equal(in.Price.Round(2)):
		return apperrors.Validation("price", "must have at most 2 decimal places")
	case in.Quantity < 0:
		return apperrors.Validation("quantity", "must not be negative")
	}
	if _, err := models.ParseCategory(string(in.Category)); err != nil {
		return apperrors.Validation("category", "%v", err)
	}
	return nil
}

// Files carries the images attached to a create or update. Nil readers are skipped.
type Files struct {
	Cover   io.Reader
	Gallery []io.Reader
}

type Service struct {
	db      *gorm.DB
	uploads *uploads.Store
	rates   exchange.RateProvider
	now     func() time.Time
}

func NewService(db *gorm.DB, store *uploads.Store, rates exchange.RateProvider) *Service {
	if rates == nil {
		rates = exchange.Unavailable
	}
	return &Service{db: db, uploads: store, rates: rates, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID uint, in ProductInput, files Files) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = models.CategoryOther
	}

	cover, gallery, err := s.storeFiles(files)
	if err != nil {
		return nil, err
	}

	product := models.Product{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		Category:    in.Category,
		CoverImage:  cover,
		UserID:      ownerID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return addGallery(tx, product.ID, gallery)
	})
	if err != nil {
		s.discard(append(gallery, cover)...)
		return nil, err
	}

	return s.Get(ctx, product.ID)
}

// Update rewrites the product fields. A new cover replaces the old one and
// new gallery images are appended to the existing ones.
func (s *Service) Update(ctx context.Context, id uint, in ProductInput, files Files) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = existing.Category
	}

	cover, gallery, err := s.storeFiles(files)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"title":       strings.TrimSpace(in.Title),
		"description": in.Description,
		"price":       in.Price.Round(2),
		"quantity":    in.Quantity,
		"category":    in.Category,
	}
	if cover != "" {
		updates["cover_image"] = cover
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return addGallery(tx, id, gallery)
	})
	if err != nil {
		s.discard(append(gallery, cover)...)
		return nil, err
	}

	if cover != "" && existing.CoverImage != "" {
		s.discard(existing.CoverImage)
	}
	return s.Get(ctx, id)
}

// Publish lists the product on the storefront.
func (s *Service) Publish(ctx context.Context, id uint) (*models.Product, error) {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("published_at", s.now())
	if res.Error != nil {
		return nil, fmt.Errorf("failed to publish product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("product", id)
	}
	return s.Get(ctx, id)
}

// Delete removes the product and its gallery. Order line items that referenced
// it keep their snapshot and lose the reference.
func (s *Service) Delete(ctx context.Context, id uint) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OrderLineItem{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach order items: %w", err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete product images: %w", err)
		}
		if err := tx.Delete(&models.Product{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	paths := []string{product.CoverImage}
	for _, img := range product.Images {
		paths = append(paths, img.Path)
	}
	s.discard(paths...)
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Images").First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

// ListDrafts returns products not yet published, oldest first.
func (s *Service) ListDrafts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("published_at IS NULL").Order("created_at").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return products, nil
}

// ListPublished returns published products, most recently published first.
func (s *Service) ListPublished(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("published_at IS NOT NULL").Order("published_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list published products: %w", err)
	}
	return products, nil
}

// PublishedProduct loads a product only when it is listed for sale.
func (s *Service) PublishedProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Where("published_at IS NOT NULL").First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

// LiveStock reads the current quantity-on-hand of the given products.
// Missing products are absent from the map.
func (s *Service) LiveStock(ctx context.Context, ids []uint) (map[uint]int, error) {
	stock := make(map[uint]int, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}

	var rows []struct {
		ID       uint
		Quantity int
	}
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("id", "quantity").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}

	for _, r := range rows {
		stock[r.ID] = r.Quantity
	}
	return stock, nil
}

func (s *Service) storeFiles(files Files) (string, []string, error) {
	var cover string
	var gallery []string

	if files.Cover != nil {
		p, err := s.uploads.Save(uploads.KindProduct, "", files.Cover)
		if err != nil {
			return "", nil, apperrors.Validation("imagen", "%v", err)
		}
		cover = p
	}

	for _, r := range files.Gallery {
		if r == nil {
			continue
		}
		p, err := s.uploads.Save(uploads.KindGallery, "", r)
		if err != nil {
			s.discard(append(gallery, cover)...)
			return "", nil, apperrors.Validation("imagenes_extra", "%v", err)
		}
		gallery = append(gallery, p)
	}

	return cover, gallery, nil
}

func (s *Service) discard(paths ...string) {
	for _, p := range paths {
		if err := s.uploads.Remove(p); err != nil {
			slog.Warn("failed to remove stored image", slog.String("path", p), slog.String(logkey.ERROR, err.Error()))
		}
	}
}

func addGallery(tx *gorm.DB, productID uint, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	images := make([]models.ProductImage, 0, len(paths))
	for _, p := range paths {
		images = append(images, models.ProductImage{ProductID: productID, Path: p})
	}
	if err := tx.CreateInBatches(&images, len(images)).Error; err != nil {
		return fmt.Errorf("failed to create product images: %w", err)
	}
	return nil
}
