// Package orders turns a session cart into a persisted order and runs the
// manager review that approves or rejects it.
package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/cart"
	"github.com/DaniDevGS/triven-shop/internal/db"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/session"
	"github.com/DaniDevGS/triven-shop/internal/uploads"
)

type Service struct {
	db      *gorm.DB
	uploads *uploads.Store
}

func NewService(db *gorm.DB, store *uploads.Store) *Service {
	return &Service{db: db, uploads: store}
}

// Result is what a successful checkout hands back to the caller.
type Result struct {
	Order   models.Order
	Receipt Receipt
}

// NewCode returns an 8 character uppercase hex code.
func NewCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// AssignToken gives the session a confirmation token if it has none yet.
// The same token is reused until a checkout succeeds.
func AssignToken(st session.State) session.State {
	if st.CheckoutToken == "" {
		st.CheckoutToken = NewCode()
	}
	return st
}

// Checkout places the order for the cart held in st. On success the returned
// state has an empty cart and no token. On any error nothing was persisted and
// st is returned as is, except that a confirmation code already taken by
// another order is dropped so a fresh one can be assigned.
func (s *Service) Checkout(ctx context.Context, st session.State, buyer models.User, submittedToken string, proof io.Reader) (session.State, *Result, error) {
	if st.Cart.IsEmpty() {
		return st, nil, apperrors.Validation("cart", "your cart is empty")
	}
	if st.CheckoutToken == "" {
		return st, nil, apperrors.Validation("confirmation_token", "no confirmation code has been assigned, reload the checkout page")
	}
	if strings.TrimSpace(submittedToken) != st.CheckoutToken {
		return st, nil, apperrors.Validation("confirmation_token", "the confirmation code does not match the one assigned")
	}
	if proof == nil {
		return st, nil, apperrors.Validation("proof_image", "a payment proof image is required")
	}
	for _, entry := range st.Cart.Sorted() {
		if entry.Quantity < 1 {
			return st, nil, apperrors.Validation("cart", "%s is no longer available, remove it from your cart", entry.Title)
		}
	}

	order := models.Order{
		Code:     st.CheckoutToken,
		UserID:   buyer.ID,
		Subtotal: decimal.Zero,
		Status:   models.OrderPending,
	}
	var proofPath string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Items").Create(&order).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return &apperrors.IntegrityError{
					Message: fmt.Sprintf("confirmation code %s is already in use, request a new one", order.Code),
					Err:     err,
				}
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		subtotal := decimal.Zero
		// Sorted walks the cart by product id so concurrent checkouts take
		// row locks in the same order.
		for _, entry := range st.Cart.Sorted() {
			var product models.Product
			err := db.ForUpdate(tx).First(&product, entry.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("product", entry.ProductID)
			}
			if err != nil {
				return fmt.Errorf("failed to lock product %d: %w", entry.ProductID, err)
			}

			if product.Quantity < entry.Quantity {
				return &apperrors.StockShortageError{
					ProductID: product.ID,
					Title:     product.Title,
					Remaining: product.Quantity,
					Requested: entry.Quantity,
				}
			}

			err = tx.Model(&models.Product{}).
				Where("id = ?", product.ID).
				Update("quantity", gorm.Expr("quantity - ?", entry.Quantity)).Error
			if err != nil {
				return fmt.Errorf("failed to decrement stock of product %d: %w", product.ID, err)
			}

			productID := product.ID
			item := models.OrderLineItem{
				OrderID:   order.ID,
				ProductID: &productID,
				LineItemSnapshot: models.LineItemSnapshot{
					ProductName: product.Title,
					Description: product.Description,
					Quantity:    entry.Quantity,
					UnitPrice:   entry.UnitPrice,
				},
			}
			if err := tx.Omit("Product").Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			order.Items = append(order.Items, item)
			subtotal = subtotal.Add(item.Total())
		}

		path, err := s.uploads.Save(uploads.KindProof, "comprobante_"+order.Code, proof)
		if err != nil {
			return apperrors.Validation("proof_image", "%v", err)
		}
		proofPath = path

		order.Subtotal = subtotal
		order.ProofImage = path
		err = tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"subtotal":    subtotal,
			"proof_image": path,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to finalize order: %w", err)
		}
		return nil
	})
	if err != nil {
		if proofPath != "" {
			if rmErr := s.uploads.Remove(proofPath); rmErr != nil {
				slog.Warn("failed to remove proof image of aborted checkout",
					slog.String(logkey.OrderCode, order.Code),
					slog.String(logkey.ERROR, rmErr.Error()))
			}
		}
		if apperrors.IsIntegrity(err) {
			// The code is spent; the next checkout visit assigns a new one.
			st.CheckoutToken = ""
		}
		return st, nil, err
	}

	order.User = &buyer
	slog.Info("order placed",
		slog.Uint64(logkey.OrderID, uint64(order.ID)),
		slog.String(logkey.OrderCode, order.Code),
		slog.Uint64(logkey.UserID, uint64(buyer.ID)),
		slog.String("subtotal", order.Subtotal.StringFixed(2)))

	next := st
	next.Cart = cart.New()
	next.CheckoutToken = ""

	return next, &Result{Order: order, Receipt: NewReceipt(order, buyer)}, nil
}
