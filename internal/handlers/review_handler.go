package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/orders"
)

type ReviewRequest struct {
	Note string `json:"note"`
}

// GET /api/admin/orders?status=PENDING|APPROVED|REJECTED
func (h *handler) ListOrders(c *gin.Context) {
	status, err := orders.ParseStatus(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.Orders.ListByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "orders": list})
}

func (h *handler) ApproveOrder(c *gin.Context) {
	h.review(c, h.Orders.Approve)
}

// Rejecting puts the purchased units back in stock.
func (h *handler) RejectOrder(c *gin.Context) {
	h.review(c, h.Orders.Reject)
}

func (h *handler) review(c *gin.Context, transition func(ctx context.Context, id uint, note string) (*models.Order, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	order, err := transition(c.Request.Context(), id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	h.Notifier.OrderReviewed(*order)
	c.JSON(http.StatusOK, gin.H{"message": "order " + string(order.Status), "order": order})
}
