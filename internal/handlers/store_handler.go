package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DaniDevGS/triven-shop/internal/catalog"
)

// GET /api/store/products?category=&min_price=&max_price=&q=
func (h *handler) ListStoreProducts(c *gin.Context) {
	listing, err := h.Catalog.Storefront(c.Request.Context(), catalog.Filter{
		Category: c.Query("category"),
		MinPrice: c.Query("min_price"),
		MaxPrice: c.Query("max_price"),
		Query:    c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *handler) GetStoreProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.Catalog.PublishedDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handler) FeaturedProducts(c *gin.Context) {
	products, err := h.Catalog.Featured(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
