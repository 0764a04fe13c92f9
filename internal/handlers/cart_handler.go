package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DaniDevGS/triven-shop/internal/auth"
	"github.com/DaniDevGS/triven-shop/internal/cart"
	"github.com/DaniDevGS/triven-shop/internal/session"
)

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// loadState reads the visitor's server-side state. On failure it has already
// written the response.
func (h *handler) loadState(c *gin.Context) (string, session.State, bool) {
	id, err := auth.SessionID(c)
	if err != nil {
		respondError(c, err)
		return "", session.State{}, false
	}
	st, err := h.Sessions.Load(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return "", session.State{}, false
	}
	return id, st, true
}

func (h *handler) saveState(c *gin.Context, id string, st session.State) bool {
	if err := h.Sessions.Save(c.Request.Context(), id, st); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// respondCart revalidates the cart, persists the clamped result and writes it.
func (h *handler) respondCart(c *gin.Context, status int, id string, st session.State, notices ...cart.Notice) {
	clamped, summary, viewNotices, err := h.Cart.View(c.Request.Context(), st.Cart)
	if err != nil {
		respondError(c, err)
		return
	}
	st.Cart = clamped
	if !h.saveState(c, id, st) {
		return
	}
	c.JSON(status, gin.H{"cart": summary, "notices": append(notices, viewNotices...)})
}

// GET /api/cart
func (h *handler) GetCart(c *gin.Context) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	h.respondCart(c, http.StatusOK, id, st)
}

// POST /api/cart/items
func (h *handler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	next, notice, err := h.Cart.Add(c.Request.Context(), st.Cart, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	st.Cart = next
	h.respondCart(c, http.StatusOK, id, st, notice)
}

// PUT /api/cart/items/:id
func (h *handler) UpdateCartItem(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	next, notice, err := h.Cart.Update(c.Request.Context(), st.Cart, productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	st.Cart = next
	h.respondCart(c, http.StatusOK, id, st, notice)
}

// DELETE /api/cart/items/:id
func (h *handler) RemoveCartItem(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	st.Cart = h.Cart.Remove(st.Cart, productID)
	h.respondCart(c, http.StatusOK, id, st)
}

// POST /api/cart/clear
func (h *handler) ClearCart(c *gin.Context) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	st.Cart = h.Cart.Clear()
	h.respondCart(c, http.StatusOK, id, st)
}
