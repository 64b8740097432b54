package handlers

import (
	"net/http"
	"strconv"

	"newsdesk/internal/apperr"
	"newsdesk/internal/articles"
	"newsdesk/internal/auth"
	"newsdesk/internal/workflow"

	"github.com/gin-gonic/gin"
)

// CMSHandler serves the authenticated editorial API: article CRUD,
// translations, categories, media links, and the publishing workflow.
type CMSHandler struct {
	articles *articles.Service
	workflow *workflow.Service
}

// NewCMSHandler creates a new CMS handler
func NewCMSHandler(articlesSvc *articles.Service, workflowSvc *workflow.Service) *CMSHandler {
	return &CMSHandler{
		articles: articlesSvc,
		workflow: workflowSvc,
	}
}

func articleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abortWithError(c, apperr.Validationf("invalid article id"))
		return 0, false
	}
	return uint(id), true
}

func cursorQuery(c *gin.Context) uint {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	return uint(cursor)
}

func limitQuery(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

// CreateArticle handles POST /api/cms/articles
func (h *CMSHandler) CreateArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)

	var in articles.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	article, err := h.articles.Create(c.Request.Context(), actor, &in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// GetArticle handles GET /api/cms/articles/:id
func (h *CMSHandler) GetArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	article, err := h.articles.Get(actor, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// UpdateArticle handles PATCH /api/cms/articles/:id
func (h *CMSHandler) UpdateArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var in articles.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	article, err := h.articles.Update(c.Request.Context(), actor, id, &in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// DeleteArticle handles DELETE /api/cms/articles/:id
func (h *CMSHandler) DeleteArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.articles.Delete(c.Request.Context(), actor, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// DeleteArticles handles POST /api/cms/articles/delete
func (h *CMSHandler) DeleteArticles(c *gin.Context) {
	actor := auth.IdentityFrom(c)

	var body struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	deleted, err := h.articles.DeleteMulti(c.Request.Context(), actor, body.IDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "requested": len(body.IDs)})
}

// UpsertTranslation handles PUT /api/cms/articles/:id/translations
func (h *CMSHandler) UpsertTranslation(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var in articles.TranslationUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.articles.UpsertTranslation(c.Request.Context(), actor, id, &in); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "language": in.Language})
}

// AssignCategories handles PUT /api/cms/articles/:id/categories
func (h *CMSHandler) AssignCategories(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var body struct {
		CategoryIDs []uint `json:"category_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.articles.AssignCategories(c.Request.Context(), actor, id, body.CategoryIDs); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "categories": len(body.CategoryIDs)})
}

// AttachMedia handles POST /api/cms/articles/:id/media
func (h *CMSHandler) AttachMedia(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var in articles.MediaAttachment
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.articles.AttachMedia(c.Request.Context(), actor, id, &in); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "media_id": in.MediaID, "usage": in.Usage})
}

// SubmitForReview handles PATCH /api/cms/articles/:id/review
func (h *CMSHandler) SubmitForReview(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.workflow.SubmitForReview(c.Request.Context(), actor, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "status": "REVIEW"})
}

// PublishArticle handles PATCH /api/cms/articles/:id/publish
func (h *CMSHandler) PublishArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.workflow.Publish(c.Request.Context(), actor, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "status": "PUBLISHED"})
}

// DirectPublish handles PATCH /api/cms/articles/:id/direct-publish
func (h *CMSHandler) DirectPublish(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var body struct {
		ScheduledAt string `json:"scheduled_at"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	result, err := h.workflow.DirectPublish(c.Request.Context(), actor, id, body.ScheduledAt)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"article_id":   id,
		"status":       result.Status,
		"published_at": result.PublishedAt,
	})
}

// RejectArticle handles PATCH /api/cms/articles/:id/reject
func (h *CMSHandler) RejectArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		abortWithError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.workflow.Reject(c.Request.Context(), actor, id, body.Reason); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "status": "REJECTED"})
}

// DeactivateArticle handles PATCH /api/cms/articles/:id/deactivate
func (h *CMSHandler) DeactivateArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.workflow.Deactivate(c.Request.Context(), actor, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "status": "INACTIVE"})
}

// ActivateArticle handles PATCH /api/cms/articles/:id/activate
func (h *CMSHandler) ActivateArticle(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.workflow.Activate(c.Request.Context(), actor, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "status": "DRAFT"})
}

// ListArticles handles GET /api/cms/articles
func (h *CMSHandler) ListArticles(c *gin.Context) {
	actor := auth.IdentityFrom(c)

	filter := &articles.AdminListFilter{
		Section: c.Query("section"),
		Status:  c.Query("status"),
		Query:   c.Query("q"),
		Cursor:  cursorQuery(c),
		Limit:   limitQuery(c),
	}

	page, err := h.articles.AdminList(actor, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SearchArticles handles GET /api/cms/articles/search
func (h *CMSHandler) SearchArticles(c *gin.Context) {
	actor := auth.IdentityFrom(c)

	page, err := h.articles.Search(actor, c.Query("q"), cursorQuery(c), limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SuggestArticles handles GET /api/cms/articles/suggestions
func (h *CMSHandler) SuggestArticles(c *gin.Context) {
	actor := auth.IdentityFrom(c)

	suggestions, err := h.articles.Suggestions(actor, c.Query("q"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": suggestions})
}

// ListRevisions handles GET /api/cms/articles/:id/revisions
func (h *CMSHandler) ListRevisions(c *gin.Context) {
	actor := auth.IdentityFrom(c)
	id, ok := articleID(c)
	if !ok {
		return
	}

	page, err := h.articles.Revisions(actor, id, c.Query("language"), cursorQuery(c), limitQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
