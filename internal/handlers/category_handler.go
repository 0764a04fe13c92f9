package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DaniDevGS/triven-shop/internal/models"
)

// GET /api/store/categories
func (h *handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}
