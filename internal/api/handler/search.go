package handler

import (
	"net/http"
	"strconv"

	"github.com/beamhq/adgallery/internal/service"
	"github.com/gin-gonic/gin"
)

// SearchHandler handles the semantic search endpoint.
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searchService: search gateway instance.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search handles GET /api/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	page := intQuery(c, "page", 1)
	perPage := perPageQuery(c)

	result, err := h.searchService.Search(c.Request.Context(), query, page, perPage)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": "Search failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// perPageQuery reads the page size, accepting both spellings seen from
// clients. Zero lets the service apply its default.
func perPageQuery(c *gin.Context) int {
	if v := intQuery(c, "per_page", 0); v != 0 {
		return v
	}
	return intQuery(c, "perPage", 0)
}

// intQuery parses an integer query parameter, falling back on absence or
// garbage.
func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	if service.IsInvalidArgument(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
