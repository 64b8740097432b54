// Package articles is the transactional persistence layer for articles and
// their translations, categories, revisions and media links, plus the CMS
// read surface (admin list, search, revision history).
package articles

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/auth"
	"newsdesk/internal/cache"
	"newsdesk/internal/models"
	"newsdesk/internal/notify"
	"newsdesk/internal/workflow"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Service handles article persistence and the CMS read endpoints.
type Service struct {
	db       *gorm.DB
	versions *cache.Versions
	notifier *notify.Client
}

// NewService creates an articles service.
func NewService(db *gorm.DB, versions *cache.Versions, notifier *notify.Client) *Service {
	return &Service{db: db, versions: versions, notifier: notifier}
}

// TranslationInput is one language variant in a create/update request.
type TranslationInput struct {
	Language string `json:"language" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
}

// CreateInput is the create-article request body. Status/ScheduledAt are
// honored only for PUBLISHER+ actors (direct publish on create).
type CreateInput struct {
	Slug         string             `json:"slug" binding:"required"`
	Section      string             `json:"section" binding:"required"`
	Translations []TranslationInput `json:"translations"`
	CategoryIDs  []uint             `json:"category_ids"`
	Tags         []string           `json:"tags"`
	Keywords     []string           `json:"keywords"`

	CanonicalURL    string `json:"canonical_url"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	OGTitle         string `json:"og_title"`
	OGDescription   string `json:"og_description"`
	OGImageURL      string `json:"og_image_url"`

	ExpiresAt *time.Time `json:"expires_at"`

	Status      string `json:"status"`
	ScheduledAt string `json:"scheduled_at"`
}

// Create persists a new DRAFT article with its translations and categories
// in one transaction. When the actor is PUBLISHER+ and requested a publish
// or a schedule, the article is published/scheduled within the same
// transaction.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, in *CreateInput) (*models.Article, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleContributor); err != nil {
		return nil, err
	}

	for _, tr := range in.Translations {
		if len(strings.TrimSpace(tr.Language)) != 2 {
			return nil, apperr.Validationf("language must be a 2-letter tag, got %q", tr.Language)
		}
	}

	article := &models.Article{
		Slug:            strings.TrimSpace(in.Slug),
		Section:         strings.TrimSpace(in.Section),
		Status:          models.StatusDraft,
		Tags:            pq.StringArray(in.Tags),
		Keywords:        pq.StringArray(in.Keywords),
		CanonicalURL:    in.CanonicalURL,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		OGTitle:         in.OGTitle,
		OGDescription:   in.OGDescription,
		OGImageURL:      in.OGImageURL,
		ExpiresAt:       in.ExpiresAt,
		CreatedBy:       actor.UserID,
		UpdatedBy:       actor.UserID,
	}

	wantsPublish := (in.Status == models.StatusPublished || in.ScheduledAt != "") &&
		actor.Role.Level() >= auth.RolePublisher.Level()

	var publishedAt time.Time
	if wantsPublish {
		if len(in.Translations) == 0 {
			return nil, apperr.Validationf("At least 1 translation required to publish")
		}
		var err error
		publishedAt, err = workflow.ResolvePublishTime(in.ScheduledAt)
		if err != nil {
			return nil, err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(article).Error; err != nil {
			return fmt.Errorf("failed to create article: %w", err)
		}
		for _, tr := range in.Translations {
			row := models.ArticleTranslation{
				ArticleID: article.ID,
				Language:  strings.ToLower(strings.TrimSpace(tr.Language)),
				Title:     tr.Title,
				Content:   tr.Content,
				Summary:   tr.Summary,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create translation %s: %w", tr.Language, err)
			}
			article.Translations = append(article.Translations, row)
		}
		for _, cid := range in.CategoryIDs {
			link := models.ArticleCategory{ArticleID: article.ID, CategoryID: cid}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("failed to assign category %d: %w", cid, err)
			}
		}

		if wantsPublish {
			status := models.StatusPublished
			if publishedAt.After(time.Now()) {
				status = models.StatusScheduled
			}
			article.Status = status
			article.Noindex = false
			article.PublishedAt = &publishedAt
			if err := tx.Model(article).Updates(map[string]interface{}{
				"status":       status,
				"noindex":      false,
				"published_at": publishedAt,
			}).Error; err != nil {
				return fmt.Errorf("failed to publish on create: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wantsPublish {
		s.notifier.OnPublish(article.ID, article.Translations[0].Title, actor)
	} else {
		s.notifier.OnCreate(article.ID, article.Slug, actor)
	}
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return article, nil
}

// Get loads one article with all its relations for the CMS detail view.
func (s *Service) Get(actor *auth.Identity, id uint) (*models.Article, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return nil, err
	}
	return s.load(id)
}

func (s *Service) load(id uint) (*models.Article, error) {
	var article models.Article
	err := s.db.
		Preload("Translations").
		Preload("ArticleCategories.Category").
		Preload("MediaLinks", func(db *gorm.DB) *gorm.DB {
			return db.Order("usage, position")
		}).
		Preload("MediaLinks.Media").
		First(&article, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFoundf("article %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article %d: %w", id, err)
	}
	return &article, nil
}

// UpdateInput is the generic CMS PATCH body. Nil pointers leave fields
// untouched. Translations given here replace content without recording
// revisions; the dedicated translation endpoint is the revisioned path.
type UpdateInput struct {
	Slug    *string `json:"slug"`
	Section *string `json:"section"`

	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`

	CanonicalURL    *string `json:"canonical_url"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
	OGTitle         *string `json:"og_title"`
	OGDescription   *string `json:"og_description"`
	OGImageURL      *string `json:"og_image_url"`

	ExpiresAt *time.Time `json:"expires_at"`

	Translations []TranslationInput `json:"translations"`
	CategoryIDs  []uint             `json:"category_ids"`
}

// Update applies a partial metadata update.
func (s *Service) Update(ctx context.Context, actor *auth.Identity, id uint, in *UpdateInput) (*models.Article, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return nil, err
	}

	article, err := s.load(id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_by": actor.UserID}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	setString("slug", in.Slug)
	setString("section", in.Section)
	setString("canonical_url", in.CanonicalURL)
	setString("meta_title", in.MetaTitle)
	setString("meta_description", in.MetaDescription)
	setString("og_title", in.OGTitle)
	setString("og_description", in.OGDescription)
	setString("og_image_url", in.OGImageURL)
	if in.Tags != nil {
		fields["tags"] = pq.StringArray(in.Tags)
	}
	if in.Keywords != nil {
		fields["keywords"] = pq.StringArray(in.Keywords)
	}
	if in.ExpiresAt != nil {
		fields["expires_at"] = in.ExpiresAt
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(article).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update article %d: %w", id, err)
		}
		for _, tr := range in.Translations {
			lang := strings.ToLower(strings.TrimSpace(tr.Language))
			if len(lang) != 2 {
				return apperr.Validationf("language must be a 2-letter tag, got %q", tr.Language)
			}
			if err := upsertTranslation(tx, article.ID, lang, tr.Title, tr.Content, tr.Summary); err != nil {
				return err
			}
		}
		if in.CategoryIDs != nil {
			if err := replaceCategories(tx, article.ID, in.CategoryIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.versions.Bump(ctx, cache.ArticlesDomain)
	return s.load(id)
}

func upsertTranslation(tx *gorm.DB, articleID uint, lang, title, content, summary string) error {
	var existing models.ArticleTranslation
	err := tx.Where("article_id = ? AND language = ?", articleID, lang).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		row := models.ArticleTranslation{
			ArticleID: articleID,
			Language:  lang,
			Title:     title,
			Content:   content,
			Summary:   summary,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create translation %s: %w", lang, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up translation %s: %w", lang, err)
	}
	err = tx.Model(&existing).Updates(map[string]interface{}{
		"title":   title,
		"content": content,
		"summary": summary,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update translation %s: %w", lang, err)
	}
	return nil
}

// The category set is replaced wholesale, not diffed.
func replaceCategories(tx *gorm.DB, articleID uint, categoryIDs []uint) error {
	if err := tx.Where("article_id = ?", articleID).Delete(&models.ArticleCategory{}).Error; err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	for _, cid := range categoryIDs {
		link := models.ArticleCategory{ArticleID: articleID, CategoryID: cid}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to assign category %d: %w", cid, err)
		}
	}
	return nil
}

// TranslationUpdate is the dedicated translation endpoint body.
type TranslationUpdate struct {
	Language string `json:"language"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
	Note     string `json:"note"`
}

// UpsertTranslation saves a translation and records an immutable revision
// snapshot in the same transaction. This is the only write path that
// creates revisions.
func (s *Service) UpsertTranslation(ctx context.Context, actor *auth.Identity, id uint, in *TranslationUpdate) error {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return err
	}

	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if lang == "" || in.Title == "" || (in.Content == "" && in.Summary == "") {
		return apperr.Validationf("language, title, content/summary required")
	}
	if len(lang) != 2 {
		return apperr.Validationf("language must be a 2-letter tag, got %q", in.Language)
	}

	article, err := s.load(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertTranslation(tx, article.ID, lang, in.Title, in.Content, in.Summary); err != nil {
			return err
		}
		rev := models.ArticleRevision{
			ArticleID:    article.ID,
			Language:     lang,
			Title:        in.Title,
			Content:      in.Content,
			Summary:      in.Summary,
			EditorUserID: actor.UserID,
			Note:         in.Note,
		}
		if err := tx.Create(&rev).Error; err != nil {
			return fmt.Errorf("failed to record revision: %w", err)
		}
		return tx.Model(article).Update("updated_by", actor.UserID).Error
	})
	if err != nil {
		return err
	}

	s.notifier.OnUpdate(article.ID, in.Title, actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// AssignCategories replaces the article's category set transactionally.
func (s *Service) AssignCategories(ctx context.Context, actor *auth.Identity, id uint, categoryIDs []uint) error {
	if err := auth.RequireMin(actor.Role, auth.RoleContributor); err != nil {
		return err
	}

	article, err := s.load(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := replaceCategories(tx, article.ID, categoryIDs); err != nil {
			return err
		}
		return tx.Model(article).Update("updated_by", actor.UserID).Error
	})
	if err != nil {
		return err
	}

	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// MediaAttachment is the attach-media request body.
type MediaAttachment struct {
	MediaID  uint   `json:"media_id"`
	Usage    string `json:"usage"`
	Position uint   `json:"position"`
}

var validUsages = map[string]bool{
	models.MediaUsageBanner:     true,
	models.MediaUsageMain:       true,
	models.MediaUsageInline:     true,
	models.MediaUsageGallery:    true,
	models.MediaUsageAttachment: true,
}

// AttachMedia links a stored media asset to the article for a usage slot.
func (s *Service) AttachMedia(ctx context.Context, actor *auth.Identity, id uint, in *MediaAttachment) error {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return err
	}
	usage := strings.ToUpper(strings.TrimSpace(in.Usage))
	if !validUsages[usage] {
		return apperr.Validationf("invalid media usage %q", in.Usage)
	}

	article, err := s.load(id)
	if err != nil {
		return err
	}

	var media models.MediaAsset
	if err := s.db.First(&media, in.MediaID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFoundf("media %d not found", in.MediaID)
		}
		return fmt.Errorf("failed to load media %d: %w", in.MediaID, err)
	}

	var link models.ArticleMedia
	err = s.db.Where("article_id = ? AND media_id = ? AND usage = ?", article.ID, media.ID, usage).
		First(&link).Error
	if err == gorm.ErrRecordNotFound {
		link = models.ArticleMedia{
			ArticleID: article.ID,
			MediaID:   media.ID,
			Usage:     usage,
			Position:  in.Position,
		}
		err = s.db.Create(&link).Error
	} else if err == nil {
		err = s.db.Model(&link).Update("position", in.Position).Error
	}
	if err != nil {
		return fmt.Errorf("failed to attach media: %w", err)
	}

	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// Delete removes the article and everything cascading from it. Revisions
// cascade with the parent for referential integrity.
func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id uint) error {
	if err := auth.RequireMin(actor.Role, auth.RoleAdmin); err != nil {
		return err
	}

	article, err := s.load(id)
	if err != nil {
		return err
	}
	title := article.PrioritizedTitle()
	if title == "" {
		title = fmt.Sprintf("Article %d", article.ID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.ArticleTranslation{}, &models.ArticleCategory{},
			&models.ArticleMedia{}, &models.ArticleFeature{}, &models.ArticleRevision{},
		} {
			if err := tx.Where("article_id = ?", article.ID).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to cascade delete: %w", err)
			}
		}
		return tx.Delete(&models.Article{}, article.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete article %d: %w", id, err)
	}

	s.notifier.OnDelete(id, title, actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// DeleteMulti removes a batch of articles. Missing ids are skipped.
func (s *Service) DeleteMulti(ctx context.Context, actor *auth.Identity, ids []uint) (int, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleAdmin); err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// AdminListFilter narrows the CMS article list.
type AdminListFilter struct {
	Section string
	Status  string
	Query   string
	Cursor  uint
	Limit   int
}

// AdminArticle augments the raw model with the resolved display title.
type AdminArticle struct {
	models.Article
	Title string `json:"title"`
}

// AdminList returns all articles regardless of status for the CMS,
// newest first, cursor-paginated.
func (s *Service) AdminList(actor *auth.Identity, f *AdminListFilter) (*CursorPage, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleContributor); err != nil {
		return nil, err
	}

	limit := ClampLimit(f.Limit, 20, 100)
	q := s.db.Model(&models.Article{}).
		Preload("Translations").
		Preload("ArticleCategories.Category").
		Preload("MediaLinks.Media").
		Order("id DESC")

	if f.Section != "" {
		q = q.Where("section = ?", f.Section)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Query != "" {
		needle := "%" + strings.ToLower(strings.TrimSpace(f.Query)) + "%"
		sub := s.db.Model(&models.ArticleTranslation{}).
			Select("article_id").
			Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", needle, needle)
		cond := s.db.Where("LOWER(slug) LIKE ?", needle).Or("id IN (?)", sub)
		if n, err := strconv.Atoi(strings.TrimSpace(f.Query)); err == nil {
			cond = cond.Or("id = ?", n)
		}
		q = q.Where(cond)
	}
	if f.Cursor > 0 {
		q = q.Where("id < ?", f.Cursor)
	}

	var rows []models.Article
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return adminPage(rows, limit), nil
}

func adminPage(rows []models.Article, limit int) *CursorPage {
	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	out := make([]AdminArticle, len(rows))
	for i := range rows {
		out[i] = AdminArticle{Article: rows[i], Title: rows[i].PrioritizedTitle()}
	}
	page := &CursorPage{Results: out, HasNext: hasNext, Limit: limit}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		page.NextCursor = &last
	}
	return page
}

// SearchHit is one translation-search result row.
type SearchHit struct {
	ArticleID uint   `json:"article_id"`
	Language  string `json:"language"`
	Title     string `json:"title"`
}

// Search matches translations by title substring, or by article id when
// the query is numeric.
func (s *Service) Search(actor *auth.Identity, query string, cursor uint, limit int) (*CursorPage, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return nil, err
	}

	limit = ClampLimit(limit, 20, 100)
	query = strings.TrimSpace(query)
	if query == "" {
		return &CursorPage{Results: []SearchHit{}, Limit: limit}, nil
	}

	needle := "%" + strings.ToLower(query) + "%"
	q := s.db.Model(&models.ArticleTranslation{}).Order("id DESC")
	cond := s.db.Where("LOWER(title) LIKE ?", needle)
	if n, err := strconv.Atoi(query); err == nil {
		cond = cond.Or("article_id = ?", n)
	}
	q = q.Where(cond)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var rows []models.ArticleTranslation
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search translations: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	hits := make([]SearchHit, len(rows))
	for i, r := range rows {
		hits[i] = SearchHit{ArticleID: r.ArticleID, Language: r.Language, Title: r.Title}
	}
	page := &CursorPage{Results: hits, HasNext: hasNext, Limit: limit}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

// Suggestion is one admin autocomplete entry.
type Suggestion struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Suggestions returns up to 15 quick matches across all statuses. Queries
// under 2 characters return nothing.
func (s *Service) Suggestions(actor *auth.Identity, query string) ([]Suggestion, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []Suggestion{}, nil
	}

	needle := "%" + strings.ToLower(query) + "%"
	sub := s.db.Model(&models.ArticleTranslation{}).
		Select("article_id").
		Where("LOWER(title) LIKE ?", needle)
	cond := s.db.Where("LOWER(slug) LIKE ?", needle).Or("id IN (?)", sub)
	if n, err := strconv.Atoi(query); err == nil {
		cond = cond.Or("id = ?", n)
	}

	var rows []models.Article
	err := s.db.Model(&models.Article{}).
		Preload("Translations").
		Where(cond).
		Order("id DESC").
		Limit(15).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}

	out := make([]Suggestion, len(rows))
	for i := range rows {
		out[i] = Suggestion{ID: rows[i].ID, Title: rows[i].PrioritizedTitle(), Status: rows[i].Status}
	}
	return out, nil
}

// RevisionEntry is one row of the revision history listing; content is
// omitted from the list view.
type RevisionEntry struct {
	ID           uint      `json:"id"`
	Language     string    `json:"language"`
	Title        string    `json:"title"`
	Note         string    `json:"note"`
	EditorUserID string    `json:"editor_user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Revisions lists an article's revision history, newest first, optionally
// filtered by language.
func (s *Service) Revisions(actor *auth.Identity, articleID uint, language string, cursor uint, limit int) (*CursorPage, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return nil, err
	}

	limit = ClampLimit(limit, 50, 100)
	q := s.db.Model(&models.ArticleRevision{}).
		Where("article_id = ?", articleID).
		Order("id DESC")
	if language != "" {
		q = q.Where("language = ?", strings.ToLower(strings.TrimSpace(language)))
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var rows []models.ArticleRevision
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	entries := make([]RevisionEntry, len(rows))
	for i, r := range rows {
		entries[i] = RevisionEntry{
			ID:           r.ID,
			Language:     r.Language,
			Title:        r.Title,
			Note:         r.Note,
			EditorUserID: r.EditorUserID,
			CreatedAt:    r.CreatedAt,
		}
	}
	page := &CursorPage{Results: entries, HasNext: hasNext, Limit: limit}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}
