package feeds

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/cache"
	"newsdesk/internal/models"

	"gorm.io/gorm"
)

// Category blocks change slowly; they get their own TTL class.
const blockTTL = 300 * time.Second

// CategoryBlock is the block of recent articles under one root category.
type CategoryBlock struct {
	Category CardCategory `json:"category"`
	Articles []*Card      `json:"articles"`
}

// CategoryBlocks builds one block per active root category of a section,
// each holding the most recent published articles in that category.
func (s *Service) CategoryBlocks(ctx context.Context, section, lang string, limit int) ([]CategoryBlock, error) {
	section = strings.TrimSpace(section)
	if section == "" {
		return nil, apperr.Validationf("section is required")
	}
	lang = normalizeLang(lang)
	if limit <= 0 {
		limit = 6
	}
	if limit > 20 {
		limit = 20
	}
	key := s.versions.Key(ctx, cache.ArticlesDomain, "category_blocks", section, lang, strconv.Itoa(limit))

	var cached []CategoryBlock
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	var roots []models.Category
	err := s.db.
		Where("section = ? AND parent_id IS NULL AND is_active = ?", section, true).
		Order("name").
		Find(&roots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load root categories: %w", err)
	}

	blocks := make([]CategoryBlock, 0, len(roots))
	for i := range roots {
		cat := &roots[i]

		var rows []models.Article
		err := s.publishedScope(time.Now()).
			Where("articles.id IN (?)", s.db.Model(&models.ArticleCategory{}).
				Select("article_id").Where("category_id = ?", cat.ID)).
			Preload("Translations").
			Preload("ArticleCategories.Category").
			Preload("MediaLinks", func(db *gorm.DB) *gorm.DB {
				return db.Order("usage, position")
			}).
			Preload("MediaLinks.Media").
			Order("published_at DESC, id DESC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load block for category %d: %w", cat.ID, err)
		}

		block := CategoryBlock{
			Category: CardCategory{ID: cat.ID, Name: cat.Name, Slug: cat.Slug, Section: cat.Section},
			Articles: make([]*Card, 0, len(rows)),
		}
		for j := range rows {
			if card := PrepareCard(&rows[j], lang, s.resolver); card != nil {
				block.Articles = append(block.Articles, card)
			}
		}
		blocks = append(blocks, block)
	}

	s.storeCached(ctx, key, blocks, blockTTL)
	return blocks, nil
}

// categoryTreeIDs walks the category tree breadth-first, collecting the
// root and every descendant.
func (s *Service) categoryTreeIDs(root uint) ([]uint, error) {
	ids := []uint{root}
	frontier := []uint{root}
	for len(frontier) > 0 {
		var children []uint
		err := s.db.Model(&models.Category{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, fmt.Errorf("failed to walk category tree: %w", err)
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}

// Published lists published articles filtered by section and/or category
// slug. The category filter covers the whole subtree under the matched
// category; an unknown slug yields an empty page, not an error.
func (s *Service) Published(ctx context.Context, section, categorySlug, lang string, cursor uint, limit int) (*LatestPage, error) {
	section = strings.TrimSpace(section)
	categorySlug = strings.TrimSpace(categorySlug)
	lang = normalizeLang(lang)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	key := s.versions.Key(ctx, cache.ArticlesDomain, "published", section, categorySlug, lang, cursorParam(cursor))

	var cached LatestPage
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	q := s.publishedScope(time.Now()).
		Preload("Translations").
		Preload("ArticleCategories.Category").
		Preload("MediaLinks", func(db *gorm.DB) *gorm.DB {
			return db.Order("usage, position")
		}).
		Preload("MediaLinks.Media").
		Order("id DESC")
	if section != "" {
		q = q.Where("LOWER(articles.section) = LOWER(?)", section)
	}
	if categorySlug != "" {
		catQ := s.db.Where("slug = ?", categorySlug)
		if section != "" {
			catQ = catQ.Where("LOWER(section) = LOWER(?)", section)
		}
		var category models.Category
		err := catQ.First(&category).Error
		if err == gorm.ErrRecordNotFound {
			return &LatestPage{Results: []*Card{}, Limit: limit}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up category %s: %w", categorySlug, err)
		}
		treeIDs, err := s.categoryTreeIDs(category.ID)
		if err != nil {
			return nil, err
		}
		q = q.Where("articles.id IN (?)", s.db.Model(&models.ArticleCategory{}).
			Select("article_id").Where("category_id IN ?", treeIDs))
	}
	if cursor > 0 {
		q = q.Where("articles.id < ?", cursor)
	}

	var rows []models.Article
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load published articles: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	page := &LatestPage{Results: make([]*Card, 0, len(rows)), HasNext: hasNext, Limit: limit}
	for i := range rows {
		if card := PrepareCard(&rows[i], lang, s.resolver); card != nil {
			page.Results = append(page.Results, card)
		}
	}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		page.NextCursor = &last
	}

	s.storeCached(ctx, key, page, listTTL)
	return page, nil
}

// CategoryCount is one entry of the filters facet.
type CategoryCount struct {
	CategoryID uint  `json:"category_id"`
	Count      int64 `json:"count"`
}

// FiltersResponse is the facet payload backing the public filter UI.
type FiltersResponse struct {
	Section        string          `json:"section"`
	TotalPublished int64           `json:"total_published"`
	TopCategories  []CategoryCount `json:"top_categories"`
}

// Filters reports how many published articles a section holds and which
// active categories they cluster under.
func (s *Service) Filters(section string) (*FiltersResponse, error) {
	section = strings.TrimSpace(section)
	now := time.Now()

	base := s.db.Model(&models.Article{}).
		Where("status = ? AND noindex = ?", models.StatusPublished, false).
		Where("expires_at IS NULL OR expires_at >= ?", now)
	if section != "" {
		base = base.Where("section = ?", section)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count published articles: %w", err)
	}

	articleIDs := s.db.Model(&models.Article{}).
		Select("id").
		Where("status = ? AND noindex = ?", models.StatusPublished, false).
		Where("expires_at IS NULL OR expires_at >= ?", now)
	if section != "" {
		articleIDs = articleIDs.Where("section = ?", section)
	}

	var counts []CategoryCount
	err := s.db.Model(&models.ArticleCategory{}).
		Select("article_categories.category_id AS category_id, COUNT(article_categories.id) AS count").
		Joins("JOIN categories ON categories.id = article_categories.category_id").
		Where("categories.is_active = ?", true).
		Where("article_categories.article_id IN (?)", articleIDs).
		Group("article_categories.category_id").
		Order("count DESC").
		Limit(25).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	if counts == nil {
		counts = []CategoryCount{}
	}

	return &FiltersResponse{Section: section, TotalPublished: total, TopCategories: counts}, nil
}

// PublicSuggestion is one typeahead hit of the public search.
type PublicSuggestion struct {
	ID      uint   `json:"id"`
	Slug    string `json:"slug"`
	Section string `json:"section"`
	Title   string `json:"title"`
}

// Suggestions serves search typeahead over published articles, matching
// translation titles and summaries. Queries under two characters answer
// an empty list.
func (s *Service) Suggestions(section, lang, query string) ([]PublicSuggestion, error) {
	query = strings.TrimSpace(query)
	lang = normalizeLang(lang)
	if len([]rune(query)) < 2 {
		return []PublicSuggestion{}, nil
	}
	now := time.Now()
	pattern := "%" + strings.ToLower(query) + "%"

	q := s.db.Model(&models.Article{}).
		Where("status = ? AND noindex = ?", models.StatusPublished, false).
		Where("expires_at IS NULL OR expires_at >= ?", now).
		Where("id IN (?)", s.db.Model(&models.ArticleTranslation{}).
			Select("article_id").
			Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", pattern, pattern)).
		Preload("Translations").
		Order("views_count DESC, id DESC").
		Limit(10)
	if section != "" {
		q = q.Where("section = ?", section)
	}

	var rows []models.Article
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}

	out := make([]PublicSuggestion, 0, len(rows))
	for i := range rows {
		a := &rows[i]
		title := a.PrioritizedTitle()
		if tr := a.TranslationFor(lang); tr != nil {
			title = tr.Title
		}
		out = append(out, PublicSuggestion{ID: a.ID, Slug: a.Slug, Section: a.Section, Title: title})
	}
	return out, nil
}
