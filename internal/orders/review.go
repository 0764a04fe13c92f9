package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/db"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

// Approve marks a pending order as paid.
func (s *Service) Approve(ctx context.Context, id uint, note string) (*models.Order, error) {
	return s.review(ctx, id, note, models.OrderApproved)
}

// Reject marks a pending order as rejected and puts every purchased unit back
// on the shelf. Line items whose product was deleted are skipped.
func (s *Service) Reject(ctx context.Context, id uint, note string) (*models.Order, error) {
	return s.review(ctx, id, note, models.OrderRejected)
}

func (s *Service) review(ctx context.Context, id uint, note string, to models.OrderStatus) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := db.ForUpdate(tx).First(&order, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if order.Status != models.OrderPending {
			return &apperrors.StateConflictError{Code: order.Code, Status: string(order.Status)}
		}

		if to == models.OrderRejected {
			var items []models.OrderLineItem
			if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
				return fmt.Errorf("failed to load order items: %w", err)
			}
			for _, item := range items {
				if item.ProductID == nil {
					continue
				}
				err := tx.Model(&models.Product{}).
					Where("id = ?", *item.ProductID).
					Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error
				if err != nil {
					return fmt.Errorf("failed to restock product %d: %w", *item.ProductID, err)
				}
			}
		}

		updates := map[string]interface{}{"status": to}
		if note != "" {
			updates["manager_note"] = note
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Info("order reviewed",
		slog.String(logkey.OrderCode, order.Code),
		slog.String(logkey.Status, string(order.Status)))
	return order, nil
}
