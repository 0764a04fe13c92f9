package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

// ParseStatus accepts a status name in any case. Empty means PENDING.
func ParseStatus(raw string) (models.OrderStatus, error) {
	switch status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case "":
		return models.OrderPending, nil
	case models.OrderPending, models.OrderApproved, models.OrderRejected:
		return status, nil
	default:
		return "", apperrors.Validation("status", "unknown order status %q", raw)
	}
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Preload("User").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// ListByStatus returns every order in the given status, newest first.
func (s *Service) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("status = ?", status).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// History is a user's orders split by review outcome.
type History struct {
	Pending  []models.Order `json:"pending"`
	Approved []models.Order `json:"approved"`
	Rejected []models.Order `json:"rejected"`
}

func (s *Service) ListForUser(ctx context.Context, userID uint) (*History, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}

	h := &History{
		Pending:  []models.Order{},
		Approved: []models.Order{},
		Rejected: []models.Order{},
	}
	for _, o := range orders {
		switch o.Status {
		case models.OrderPending:
			h.Pending = append(h.Pending, o)
		case models.OrderApproved:
			h.Approved = append(h.Approved, o)
		case models.OrderRejected:
			h.Rejected = append(h.Rejected, o)
		}
	}
	return h, nil
}
