package handler

import (
	"net/http"

	"github.com/beamhq/adgallery/internal/service"
	"github.com/gin-gonic/gin"
)

// EmbeddingHandler exposes the embedding client over HTTP.
type EmbeddingHandler struct {
	embedding service.EmbeddingProvider
}

// NewEmbeddingHandler creates a new embedding handler.
// Parameters:
//   - embedding: embedding provider.
// Returns:
//   - *EmbeddingHandler: initialized handler.
func NewEmbeddingHandler(embedding service.EmbeddingProvider) *EmbeddingHandler {
	return &EmbeddingHandler{
		embedding: embedding,
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

// Embed handles POST /api/embeddings.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *EmbeddingHandler) Embed(c *gin.Context) {
	var req embedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	vector, err := h.embedding.Embed(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": "Embedding failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"embedding": vector,
	})
}
