package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// GraphHandler exposes read-only graph inspection endpoints.
type GraphHandler struct {
	store graph.Store
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(store graph.Store) *GraphHandler {
	return &GraphHandler{store: store}
}

// GetEntity handles GET /api/v1/entities/:id
func (h *GraphHandler) GetEntity(c *gin.Context) {
	entity, err := h.store.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entity)
}

// ListCommunities handles GET /api/v1/communities
func (h *GraphHandler) ListCommunities(c *gin.Context) {
	communities, err := h.store.Communities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": communities, "count": len(communities)})
}

// Stats handles GET /api/v1/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
