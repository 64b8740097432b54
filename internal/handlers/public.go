package handlers

import (
	"net/http"
	"strconv"
	"time"

	"newsdesk/internal/database"
	"newsdesk/internal/feeds"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the unauthenticated read API: feeds, listings,
// article detail, and view tracking.
type PublicHandler struct {
	feeds *feeds.Service
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(feedsSvc *feeds.Service) *PublicHandler {
	return &PublicHandler{feeds: feedsSvc}
}

// HomeFeed handles GET /api/articles/home
func (h *PublicHandler) HomeFeed(c *gin.Context) {
	resp, err := h.feeds.HomeFeed(c.Request.Context(), c.Query("lang"), cursorQuery(c), limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SectionFeed handles GET /api/articles/section/:section
func (h *PublicHandler) SectionFeed(c *gin.Context) {
	resp, err := h.feeds.SectionFeed(c.Request.Context(), c.Param("section"), c.Query("lang"), cursorQuery(c), limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Trending handles GET /api/articles/trending
func (h *PublicHandler) Trending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	resp, err := h.feeds.Trending(c.Request.Context(), c.Query("section"), c.Query("lang"), page, limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListArticles handles GET /api/articles
func (h *PublicHandler) ListArticles(c *gin.Context) {
	resp, err := h.feeds.List(c.Request.Context(), c.Query("section"), cursorQuery(c), limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CategoryBlocks handles GET /api/articles/category-block
func (h *PublicHandler) CategoryBlocks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))

	resp, err := h.feeds.CategoryBlocks(c.Request.Context(), c.Query("section"), c.Query("lang"), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PublishedArticles handles GET /api/articles/published
func (h *PublicHandler) PublishedArticles(c *gin.Context) {
	resp, err := h.feeds.Published(c.Request.Context(),
		c.Query("section"), c.Query("category"), c.Query("lang"), cursorQuery(c), limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Filters handles GET /api/articles/filters
func (h *PublicHandler) Filters(c *gin.Context) {
	resp, err := h.feeds.Filters(c.Query("section"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchSuggestions handles GET /api/articles/search-suggestions
func (h *PublicHandler) SearchSuggestions(c *gin.Context) {
	suggestions, err := h.feeds.Suggestions(c.Query("section"), c.Query("lang"), c.Query("q"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// ArticleDetail handles GET /api/articles/:section/:slug
func (h *PublicHandler) ArticleDetail(c *gin.Context) {
	resp, err := h.feeds.Detail(c.Request.Context(), c.Param("section"), c.Param("slug"), c.Query("lang"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TrackView handles POST /api/articles/:section/:slug/view
func (h *PublicHandler) TrackView(c *gin.Context) {
	if err := h.feeds.TrackView(c.Request.Context(), c.Param("section"), c.Param("slug")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracked": true})
}

// HealthCheck handles GET /health
func (h *PublicHandler) HealthCheck(c *gin.Context) {
	status := "ok"
	dbStatus := "up"
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "down"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
