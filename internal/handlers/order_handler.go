package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/auth"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/middleware"
	"github.com/DaniDevGS/triven-shop/internal/notifier"
	"github.com/DaniDevGS/triven-shop/internal/orders"
	"github.com/DaniDevGS/triven-shop/internal/session"
)

// GET /api/checkout
// Assigns the confirmation code the buyer must type back when paying.
func (h *handler) GetCheckout(c *gin.Context) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	if st.Cart.IsEmpty() {
		respondError(c, apperrors.Validation("cart", "your cart is empty"))
		return
	}

	st = orders.AssignToken(st)
	clamped, summary, notices, err := h.Cart.View(c.Request.Context(), st.Cart)
	if err != nil {
		respondError(c, err)
		return
	}
	st.Cart = clamped
	if !h.saveState(c, id, st) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"confirmation_token": st.CheckoutToken,
		"cart":               summary,
		"notices":            notices,
	})
}

// POST /api/checkout (multipart: confirmation_token, proof_image)
func (h *handler) Checkout(c *gin.Context) {
	user := auth.CurrentUser(c)

	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	var proof io.Reader
	if fh, err := c.FormFile("proof_image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			respondError(c, apperrors.Validation("proof_image", "could not read the uploaded file"))
			return
		}
		defer f.Close()
		proof = f
	}

	next, res, err := h.Orders.Checkout(c.Request.Context(), st, *user, c.PostForm("confirmation_token"), proof)
	if err != nil {
		if apperrors.IsIntegrity(err) {
			h.storeCheckoutState(c, id, next)
		}
		respondError(c, err)
		return
	}
	// The order is committed at this point, so a failed session write is
	// logged and the buyer still gets the receipt.
	h.storeCheckoutState(c, id, next)

	h.Notifier.OrderPlaced(res.Order, res.Receipt)

	c.JSON(http.StatusCreated, gin.H{
		"message":      "order placed, send the payment capture through WhatsApp",
		"order":        res.Order,
		"receipt":      res.Receipt,
		"whatsapp_url": notifier.WhatsAppLink(h.WhatsAppNumber, res.Receipt.Message()),
	})
}

func (h *handler) storeCheckoutState(c *gin.Context, id string, st session.State) {
	if err := h.Sessions.Save(c.Request.Context(), id, st); err != nil {
		slog.Warn("failed to store session state after checkout",
			slog.String(logkey.TraceID, middleware.TraceID(c)),
			slog.String(logkey.ERROR, err.Error()))
	}
}

// GET /api/account/orders
func (h *handler) AccountOrders(c *gin.Context) {
	user := auth.CurrentUser(c)
	history, err := h.Orders.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "orders": history})
}

// GET /api/orders/:id/receipt
// Only the buyer or a manager may download the receipt.
func (h *handler) OrderReceipt(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	order, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != user.ID && !h.Auth.IsManager(user) {
		respondError(c, apperrors.NotFound("order", orderID))
		return
	}

	buyer := *user
	if order.User != nil {
		buyer = *order.User
	}

	var buf bytes.Buffer
	if err := notifier.WriteReceiptPDF(&buf, orders.NewReceipt(*order, buyer)); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=receipt-"+order.Code+".pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
