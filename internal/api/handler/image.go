package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/beamhq/adgallery/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ImageHandler handles catalog listing and detail endpoints.
type ImageHandler struct {
	catalogService *service.CatalogService
}

// NewImageHandler creates a new image handler.
// Parameters:
//   - catalogService: catalog fetcher instance.
// Returns:
//   - *ImageHandler: initialized handler.
func NewImageHandler(catalogService *service.CatalogService) *ImageHandler {
	return &ImageHandler{
		catalogService: catalogService,
	}
}

// ListImages handles GET /api/images.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageHandler) ListImages(c *gin.Context) {
	page := intQuery(c, "page", 1)
	perPage := perPageQuery(c)
	query := c.Query("q")

	result, err := h.catalogService.List(c.Request.Context(), page, perPage, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list images: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetImage handles GET /api/images/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageHandler) GetImage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid image ID",
		})
		return
	}

	image, err := h.catalogService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Image not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get image: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, image)
}
