// Package feeds composes the public read surface: home and section feeds
// built from the feature board, trending and chronological listings, and
// the article detail view. Every endpoint is served through the versioned
// cache.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/cache"
	"newsdesk/internal/models"

	"gorm.io/gorm"
)

// Cache TTLs. Version bumps invalidate earlier; the TTL is the upper bound.
const (
	feedTTL   = 60 * time.Second
	listTTL   = 300 * time.Second
	detailTTL = 300 * time.Second
)

// Slot limits for feed composition.
const (
	heroLimit     = 5
	breakingLimit = 1
	topLimit      = 10
	mustReadLimit = 10
)

// Service composes feeds and serves the public article endpoints.
type Service struct {
	db       *gorm.DB
	store    cache.Store
	versions *cache.Versions
	resolver MediaResolver
}

// NewService creates a feed composer.
func NewService(db *gorm.DB, store cache.Store, versions *cache.Versions, resolver MediaResolver) *Service {
	return &Service{db: db, store: store, versions: versions, resolver: resolver}
}

// LatestPage is the cursor-paginated chronological block of a feed.
type LatestPage struct {
	Results    []*Card `json:"results"`
	NextCursor *uint   `json:"next_cursor"`
	HasNext    bool    `json:"has_next"`
	Limit      int     `json:"limit"`
}

// HomeFeedResponse is the combined home feed payload.
type HomeFeedResponse struct {
	Hero       []*Card    `json:"hero"`
	Breaking   []*Card    `json:"breaking"`
	TopStories []*Card    `json:"top_stories"`
	MustRead   []*Card    `json:"must_read"`
	Latest     LatestPage `json:"latest"`
}

// SectionFeedResponse is the per-section variant of the home feed.
type SectionFeedResponse struct {
	Section string `json:"section"`
	HomeFeedResponse
}

func (s *Service) cached(ctx context.Context, key string, out interface{}) bool {
	raw, ok := s.store.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("discarding malformed cache entry %s: %v", key, err)
		return false
	}
	return true
}

func (s *Service) storeCached(ctx context.Context, key string, payload interface{}, ttl time.Duration) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to encode cache entry %s: %v", key, err)
		return
	}
	s.store.Set(ctx, key, string(raw), ttl)
}

// publishedScope returns the base query for publicly servable articles.
func (s *Service) publishedScope(now time.Time) *gorm.DB {
	return s.db.Model(&models.Article{}).
		Where("status = ? AND noindex = ? AND published_at IS NOT NULL AND published_at <= ?",
			models.StatusPublished, false, now).
		Where("expires_at IS NULL OR expires_at > ?", now)
}

// featuredIDs returns the article ids live in a feature slot, in rank
// order, up to limit. Liveness (time window) is evaluated now, not cached.
func (s *Service) featuredIDs(section, featureType string, limit int) ([]uint, error) {
	now := time.Now()
	q := s.db.
		Joins("JOIN articles ON articles.id = article_features.article_id").
		Where("article_features.feature_type = ? AND article_features.is_active = ?", featureType, true)
	// Feed slots use exact scoping: global pins (section "") fill the home
	// feed, section pins fill their section feed, never each other's.
	q = q.Where("article_features.section = ?", section)

	var rows []models.ArticleFeature
	err := q.
		Where("articles.status = ? AND articles.noindex = ? AND articles.published_at <= ?",
			models.StatusPublished, false, now).
		Order("article_features.rank ASC, article_features.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s features: %w", featureType, err)
	}

	ids := make([]uint, 0, limit)
	for i := range rows {
		if !rows[i].IsLive(now) {
			continue
		}
		ids = append(ids, rows[i].ArticleID)
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

// fetchCardsPreserveOrder loads cards for ids, keeping the input order and
// dropping ids that no longer resolve to a servable article.
func (s *Service) fetchCardsPreserveOrder(ids []uint, lang string) ([]*Card, error) {
	cards := make([]*Card, 0, len(ids))
	if len(ids) == 0 {
		return cards, nil
	}

	var rows []models.Article
	err := s.publishedScope(time.Now()).
		Where("articles.id IN ?", ids).
		Preload("Translations").
		Preload("ArticleCategories.Category").
		Preload("MediaLinks", func(db *gorm.DB) *gorm.DB {
			return db.Order("usage, position")
		}).
		Preload("MediaLinks.Media").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load featured articles: %w", err)
	}

	byID := make(map[uint]*models.Article, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			continue
		}
		if card := PrepareCard(a, lang, s.resolver); card != nil {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// dedupe drops ids already claimed by a higher-priority slot. First seen
// wins; the order inside each list is preserved.
func dedupe(used map[uint]bool, ids []uint) []uint {
	out := ids[:0]
	for _, id := range ids {
		if used[id] {
			continue
		}
		used[id] = true
		out = append(out, id)
	}
	return out
}

func (s *Service) composeFeed(section, lang string, cursor uint, limit int) (*HomeFeedResponse, error) {
	heroIDs, err := s.featuredIDs(section, models.FeatureHero, heroLimit)
	if err != nil {
		return nil, err
	}
	breakingIDs, err := s.featuredIDs(section, models.FeatureBreaking, breakingLimit)
	if err != nil {
		return nil, err
	}
	topIDs, err := s.featuredIDs(section, models.FeatureTop, topLimit)
	if err != nil {
		return nil, err
	}
	mustReadIDs, err := s.featuredIDs(section, models.FeatureMustRead, mustReadLimit)
	if err != nil {
		return nil, err
	}

	// Placement priority: HERO > BREAKING > TOP > MUST_READ.
	used := make(map[uint]bool)
	heroIDs = dedupe(used, heroIDs)
	breakingIDs = dedupe(used, breakingIDs)
	topIDs = dedupe(used, topIDs)
	mustReadIDs = dedupe(used, mustReadIDs)

	resp := &HomeFeedResponse{}
	if resp.Hero, err = s.fetchCardsPreserveOrder(heroIDs, lang); err != nil {
		return nil, err
	}
	if resp.Breaking, err = s.fetchCardsPreserveOrder(breakingIDs, lang); err != nil {
		return nil, err
	}
	if resp.TopStories, err = s.fetchCardsPreserveOrder(topIDs, lang); err != nil {
		return nil, err
	}
	if resp.MustRead, err = s.fetchCardsPreserveOrder(mustReadIDs, lang); err != nil {
		return nil, err
	}

	latest, err := s.latestPage(section, lang, cursor, limit)
	if err != nil {
		return nil, err
	}
	resp.Latest = *latest
	return resp, nil
}

func (s *Service) latestPage(section, lang string, cursor uint, limit int) (*LatestPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
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
		q = q.Where("section = ?", section)
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var rows []models.Article
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest articles: %w", err)
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
	return page, nil
}

// HomeFeed serves the global home feed: feature slots plus the latest
// page, cached for a minute under the current cache version.
func (s *Service) HomeFeed(ctx context.Context, lang string, cursor uint, limit int) (*HomeFeedResponse, error) {
	lang = normalizeLang(lang)
	key := s.versions.Key(ctx, cache.ArticlesDomain, "home", lang, cursorParam(cursor))

	var cached HomeFeedResponse
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	resp, err := s.composeFeed("", lang, cursor, limit)
	if err != nil {
		return nil, err
	}
	s.storeCached(ctx, key, resp, feedTTL)
	return resp, nil
}

// SectionFeed serves the per-section feed; feature lookups and the latest
// page are both scoped to the section.
func (s *Service) SectionFeed(ctx context.Context, section, lang string, cursor uint, limit int) (*SectionFeedResponse, error) {
	lang = normalizeLang(lang)
	key := s.versions.Key(ctx, cache.ArticlesDomain, "section_feed", section, lang, cursorParam(cursor))

	var cached SectionFeedResponse
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	feed, err := s.composeFeed(section, lang, cursor, limit)
	if err != nil {
		return nil, err
	}
	resp := &SectionFeedResponse{Section: section, HomeFeedResponse: *feed}
	s.storeCached(ctx, key, resp, feedTTL)
	return resp, nil
}

// Trending lists published articles by view count, optionally scoped to a
// section.
func (s *Service) Trending(ctx context.Context, section, lang string, page, limit int) (*LatestPage, error) {
	lang = normalizeLang(lang)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	key := s.versions.Key(ctx, cache.ArticlesDomain, "trending", section, lang, strconv.Itoa(page))

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
		Order("views_count DESC, published_at DESC, id DESC").
		Offset((page - 1) * limit)
	if section != "" {
		q = q.Where("section = ?", section)
	}

	var rows []models.Article
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load trending articles: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	resp := &LatestPage{Results: make([]*Card, 0, len(rows)), HasNext: hasNext, Limit: limit}
	for i := range rows {
		if card := PrepareCard(&rows[i], lang, s.resolver); card != nil {
			resp.Results = append(resp.Results, card)
		}
	}

	s.storeCached(ctx, key, resp, listTTL)
	return resp, nil
}

// ListEntry is one row of the lightweight public list.
type ListEntry struct {
	ID          uint       `json:"id"`
	Slug        string     `json:"slug"`
	Section     string     `json:"section"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListResponse is the public list payload.
type ListResponse struct {
	Results    []ListEntry `json:"results"`
	NextCursor *uint       `json:"next_cursor"`
	HasNext    bool        `json:"has_next"`
	Limit      int         `json:"limit"`
}

// List serves the lightweight chronological index of published articles.
func (s *Service) List(ctx context.Context, section string, cursor uint, limit int) (*ListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	key := s.versions.Key(ctx, cache.ArticlesDomain, "list", section, cursorParam(cursor))

	var cached ListResponse
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	q := s.publishedScope(time.Now()).Order("id DESC")
	if section != "" {
		q = q.Where("section = ?", section)
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var rows []models.Article
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load article list: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	resp := &ListResponse{Results: make([]ListEntry, len(rows)), HasNext: hasNext, Limit: limit}
	for i, a := range rows {
		resp.Results[i] = ListEntry{
			ID:          a.ID,
			Slug:        a.Slug,
			Section:     a.Section,
			PublishedAt: a.PublishedAt,
			CreatedAt:   a.CreatedAt,
		}
	}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		resp.NextCursor = &last
	}

	s.storeCached(ctx, key, resp, listTTL)
	return resp, nil
}

// DetailResponse is the full public article payload.
type DetailResponse struct {
	Card
	Content  string      `json:"content"`
	Language string      `json:"language"`
	Tags     []string    `json:"tags"`
	Keywords []string    `json:"keywords"`
	Media    []CardMedia `json:"media"`
}

// Detail serves one article by (section, slug). Articles that exist but
// are not currently servable answer 410; scheduled ones answer 404 until
// their publish time arrives.
func (s *Service) Detail(ctx context.Context, section, slug, lang string) (*DetailResponse, error) {
	lang = normalizeLang(lang)
	key := s.versions.Key(ctx, cache.ArticlesDomain, "detail", section, slug, lang)

	var cached DetailResponse
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	var article models.Article
	err := s.db.
		Where("section = ? AND slug = ?", section, slug).
		Preload("Translations").
		Preload("ArticleCategories.Category").
		Preload("MediaLinks", func(db *gorm.DB) *gorm.DB {
			return db.Order("usage, position")
		}).
		Preload("MediaLinks.Media").
		First(&article).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFoundf("not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article %s/%s: %w", section, slug, err)
	}

	now := time.Now()
	if article.Status != models.StatusPublished && article.Status != models.StatusScheduled {
		return nil, apperr.Gonef("not available")
	}
	if article.PublishedAt != nil && article.PublishedAt.After(now) {
		return nil, apperr.NotFoundf("scheduled")
	}
	if article.IsExpired(now) {
		return nil, apperr.Gonef("expired")
	}

	tr := translationFor(&article, lang)
	if tr == nil {
		return nil, apperr.NotFoundf("content not available in this language")
	}

	card := PrepareCard(&article, lang, s.resolver)
	resp := &DetailResponse{
		Card:     *card,
		Content:  tr.Content,
		Language: tr.Language,
		Tags:     article.Tags,
		Keywords: article.Keywords,
		Media:    make([]CardMedia, 0, len(article.MediaLinks)),
	}
	for _, link := range article.MediaLinks {
		if link.Media == nil {
			continue
		}
		url := ""
		if s.resolver != nil {
			url = s.resolver.ResolveURL(link.Media)
		}
		resp.Media = append(resp.Media, CardMedia{
			MediaID:   link.Media.ID,
			URL:       url,
			MediaType: link.Media.MediaType,
		})
	}

	s.storeCached(ctx, key, resp, detailTTL)
	return resp, nil
}

// TrackView counts one view with an atomic in-place increment, tolerating
// concurrent hits without lost updates.
func (s *Service) TrackView(ctx context.Context, section, slug string) error {
	res := s.db.Model(&models.Article{}).
		Where("section = ? AND slug = ? AND status = ? AND noindex = ?",
			section, slug, models.StatusPublished, false).
		Updates(map[string]interface{}{
			"views_count":    gorm.Expr("views_count + 1"),
			"last_viewed_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to track view for %s/%s: %w", section, slug, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("not found")
	}
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = "te"
	}
	return lang
}

func cursorParam(cursor uint) string {
	if cursor == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(cursor), 10)
}
