package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/auth"
	"github.com/DaniDevGS/triven-shop/internal/catalog"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

// Product forms are multipart: title, description, price, quantity,
// category, an optional "imagen" cover and any number of "imagenes_extra".
func bindProductForm(c *gin.Context) (catalog.ProductInput, error) {
	in := catalog.ProductInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    models.Category(strings.ToUpper(strings.TrimSpace(c.PostForm("category")))),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		return in, apperrors.Validation("price", "must be a decimal number")
	}
	in.Price = price

	in.Quantity = 1
	if raw := strings.TrimSpace(c.PostForm("quantity")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return in, apperrors.Validation("quantity", "must be a whole number")
		}
		in.Quantity = qty
	}
	return in, nil
}

// openFiles opens the uploaded images. The returned closer releases them.
func openFiles(c *gin.Context) (catalog.Files, func(), error) {
	var files catalog.Files
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	open := func(fh *multipart.FileHeader) (io.Reader, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		opened = append(opened, f)
		return f, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		// Plain urlencoded forms carry no files.
		return files, closeAll, nil
	}
	if covers := form.File["imagen"]; len(covers) > 0 {
		r, err := open(covers[0])
		if err != nil {
			closeAll()
			return files, func() {}, apperrors.Validation("imagen", "could not read the uploaded file")
		}
		files.Cover = r
	}
	for _, fh := range form.File["imagenes_extra"] {
		r, err := open(fh)
		if err != nil {
			closeAll()
			return files, func() {}, apperrors.Validation("imagenes_extra", "could not read the uploaded file")
		}
		files.Gallery = append(files.Gallery, r)
	}
	return files, closeAll, nil
}

// GET /api/admin/products?status=draft|published
func (h *handler) ListAdminProducts(c *gin.Context) {
	var (
		products []models.Product
		err      error
	)
	switch c.DefaultQuery("status", "draft") {
	case "draft":
		products, err = h.Catalog.ListDrafts(c.Request.Context())
	case "published":
		products, err = h.Catalog.ListPublished(c.Request.Context())
	default:
		respondError(c, apperrors.Validation("status", "must be draft or published"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// POST /api/admin/products
func (h *handler) CreateProduct(c *gin.Context) {
	in, err := bindProductForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	files, closeFiles, err := openFiles(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()

	product, err := h.Catalog.Create(c.Request.Context(), auth.CurrentUser(c).ID, in, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *handler) GetAdminProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// PUT /api/admin/products/:id
func (h *handler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, err := bindProductForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	files, closeFiles, err := openFiles(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()

	product, err := h.Catalog.Update(c.Request.Context(), id, in, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// POST /api/admin/products/:id/publish
func (h *handler) PublishProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.Catalog.Publish(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
