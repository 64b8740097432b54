package handlers

import (
	"net/http"

	"newsdesk/internal/apperr"
	"newsdesk/internal/auth"
	"newsdesk/internal/features"

	"github.com/gin-gonic/gin"
)

// FeatureHandler serves the feature board endpoints: pinning articles
// into placement slots and listing the current board.
type FeatureHandler struct {
	features *features.Service
}

// NewFeatureHandler creates a new feature board handler
func NewFeatureHandler(featuresSvc *features.Service) *FeatureHandler {
	return &FeatureHandler{features: featuresSvc}
}

type pinRequest struct {
	FeatureType string `json:"feature_type" binding:"required"`
	Section     string `json:"section"`
	Rank        int    `json:"rank"`
}

// PinArticle handles POST /api/cms/articles/:id/feature
func (h *FeatureHandler) PinArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var in pinRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	result, err := h.features.Pin(c.Request.Context(), actor, id, in.FeatureType, in.Section, in.Rank)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UnpinArticle handles DELETE /api/cms/articles/:id/feature
func (h *FeatureHandler) UnpinArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	removed, err := h.features.Unpin(c.Request.Context(), actor, id, c.Query("feature_type"), c.Query("section"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "removed": removed})
}

// ListFeatured handles GET /api/articles/featured
func (h *FeatureHandler) ListFeatured(c *gin.Context) {
	filter := &features.ListFilter{
		FeatureType: c.Query("feature_type"),
		Section:     c.Query("section"),
		Lang:        c.Query("lang"),
		Cursor:      cursorQuery(c),
		Limit:       limitQuery(c),
	}

	page, err := h.features.List(filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
