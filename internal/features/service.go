// Package features manages the feature board: pinning published articles
// into bounded-capacity homepage/section slots and demoting overflow.
package features

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/articles"
	"newsdesk/internal/auth"
	"newsdesk/internal/cache"
	"newsdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Capacities per (feature_type, section) slot. A pin that pushes a slot
// over its capacity deactivates the lowest-priority overflow.
var Capacities = map[string]int{
	models.FeatureHero:       5,
	models.FeatureTop:        10,
	models.FeatureBreaking:   1,
	models.FeatureEditorPick: 10,
	models.FeatureMustRead:   10,
}

// AllowedTypes are the pinnable slot types, in no particular order.
var AllowedTypes = []string{
	models.FeatureHero,
	models.FeatureTop,
	models.FeatureBreaking,
	models.FeatureEditorPick,
	models.FeatureMustRead,
}

// Service operates the feature board.
type Service struct {
	db       *gorm.DB
	versions *cache.Versions
}

// NewService creates a feature board service.
func NewService(db *gorm.DB, versions *cache.Versions) *Service {
	return &Service{db: db, versions: versions}
}

func normalizeType(featureType string) (string, error) {
	featureType = strings.ToUpper(strings.TrimSpace(featureType))
	if _, ok := Capacities[featureType]; !ok {
		return "", apperr.Validationf("invalid feature_type, allowed: %s", strings.Join(AllowedTypes, ", "))
	}
	return featureType, nil
}

// PinResult reports the stored feature after a pin.
type PinResult struct {
	FeatureID   uint   `json:"feature_id"`
	FeatureType string `json:"feature_type"`
	Section     string `json:"section"`
	Rank        uint   `json:"rank"`
}

// Pin upserts a feature for a PUBLISHED article and enforces the slot
// capacity in the same transaction, so a concurrent reader never observes
// an over-capacity board. BREAKING pins are forced to rank 0; other types
// are clamped to rank >= 1.
func (s *Service) Pin(ctx context.Context, actor *auth.Identity, articleID uint, featureType, section string, rank int) (*PinResult, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return nil, err
	}

	featureType, err := normalizeType(featureType)
	if err != nil {
		return nil, err
	}
	section = strings.TrimSpace(section)

	var article models.Article
	if err := s.db.First(&article, articleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("article %d not found", articleID)
		}
		return nil, fmt.Errorf("failed to load article %d: %w", articleID, err)
	}
	if article.Status != models.StatusPublished {
		return nil, apperr.Validationf("only PUBLISHED articles can be featured")
	}

	if featureType == models.FeatureBreaking {
		rank = 0
	} else if rank < 1 {
		rank = 1
	}

	var feature models.ArticleFeature
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent pins into the same slot so the capacity
		// check below sees a settled board.
		slot := tx.Where("feature_type = ? AND section = ?", featureType, section)
		if tx.Dialector.Name() == "postgres" {
			slot = slot.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var all []models.ArticleFeature
		if err := slot.Find(&all).Error; err != nil {
			return fmt.Errorf("failed to lock feature slot: %w", err)
		}

		err := tx.Where("article_id = ? AND feature_type = ? AND section = ?",
			article.ID, featureType, section).First(&feature).Error
		if err == gorm.ErrRecordNotFound {
			feature = models.ArticleFeature{
				ArticleID:   article.ID,
				FeatureType: featureType,
				Section:     section,
				Rank:        uint(rank),
				IsActive:    true,
			}
			if err := tx.Create(&feature).Error; err != nil {
				return fmt.Errorf("failed to create feature: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up feature: %w", err)
		} else {
			err = tx.Model(&feature).Updates(map[string]interface{}{
				"rank":      rank,
				"is_active": true,
				"end_at":    nil,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to update feature: %w", err)
			}
			feature.Rank = uint(rank)
			feature.IsActive = true
			feature.EndAt = nil
		}

		return enforceCapacity(tx, featureType, section)
	})
	if err != nil {
		return nil, err
	}

	s.versions.Bump(ctx, cache.ArticlesDomain)
	return &PinResult{
		FeatureID:   feature.ID,
		FeatureType: feature.FeatureType,
		Section:     feature.Section,
		Rank:        feature.Rank,
	}, nil
}

// enforceCapacity deactivates active rows beyond the slot capacity,
// ordered by (rank asc, id desc). Demoted rows keep their history: they
// are stamped with end_at, never deleted.
func enforceCapacity(tx *gorm.DB, featureType, section string) error {
	limit := Capacities[featureType]

	var active []models.ArticleFeature
	err := tx.Where("feature_type = ? AND section = ? AND is_active = ?", featureType, section, true).
		Order("rank ASC, id DESC").
		Find(&active).Error
	if err != nil {
		return fmt.Errorf("failed to load active features: %w", err)
	}
	if len(active) <= limit {
		return nil
	}

	overflow := make([]uint, 0, len(active)-limit)
	for _, f := range active[limit:] {
		overflow = append(overflow, f.ID)
	}
	err = tx.Model(&models.ArticleFeature{}).
		Where("id IN ?", overflow).
		Updates(map[string]interface{}{"is_active": false, "end_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to demote overflow features: %w", err)
	}
	return nil
}

// Unpin hard-deletes the matching feature rows and returns the count.
// Deleting zero rows is not an error.
func (s *Service) Unpin(ctx context.Context, actor *auth.Identity, articleID uint, featureType, section string) (int64, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return 0, err
	}

	featureType, err := normalizeType(featureType)
	if err != nil {
		return 0, err
	}

	res := s.db.Where("article_id = ? AND feature_type = ? AND section = ?",
		articleID, featureType, strings.TrimSpace(section)).
		Delete(&models.ArticleFeature{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to unpin feature: %w", res.Error)
	}

	s.versions.Bump(ctx, cache.ArticlesDomain)
	return res.RowsAffected, nil
}

// Entry is one feature-board listing row.
type Entry struct {
	FeatureID      uint       `json:"feature_id"`
	ArticleID      uint       `json:"article_id"`
	ArticleSlug    string     `json:"article_slug"`
	ArticleSection string     `json:"article_section"`
	ArticleTitle   string     `json:"article_title"`
	ArticleStatus  string     `json:"article_status"`
	Section        string     `json:"section"`
	Rank           uint       `json:"rank"`
	IsActive       bool       `json:"is_active"`
	IsLive         bool       `json:"is_live"`
	StartAt        *time.Time `json:"start_at"`
	EndAt          *time.Time `json:"end_at"`
}

// ListFilter narrows the feature board listing.
type ListFilter struct {
	FeatureType string
	Section     string
	Lang        string
	Cursor      uint
	Limit       int
}

// ListPage is the board listing response.
type ListPage struct {
	articles.CursorPage
	FeatureType  string `json:"feature_type"`
	Section      string `json:"section"`
	TotalForType int64  `json:"total_for_type"`
}

// List returns board entries whose article is PUBLISHED, ordered by
// (rank asc, id desc). With a section filter it includes both exact-section
// and global pins, restricted to articles actually belonging to that
// section. IsLive is recomputed against the current time on every call.
func (s *Service) List(f *ListFilter) (*ListPage, error) {
	featureType, err := normalizeType(f.FeatureType)
	if err != nil {
		return nil, err
	}
	section := strings.TrimSpace(f.Section)
	lang := strings.ToLower(strings.TrimSpace(f.Lang))
	limit := articles.ClampLimit(f.Limit, 50, 100)

	var total int64
	if err := s.db.Model(&models.ArticleFeature{}).
		Where("feature_type = ?", featureType).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count features: %w", err)
	}

	q := s.db.Model(&models.ArticleFeature{}).
		Joins("JOIN articles ON articles.id = article_features.article_id").
		Preload("Article.Translations").
		Where("article_features.feature_type = ?", featureType).
		Where("articles.status = ?", models.StatusPublished)

	if section != "" {
		q = q.Where("article_features.section IN ?", []string{section, ""}).
			Where("LOWER(articles.section) = LOWER(?)", section)
	}
	if lang != "" {
		q = q.Where("articles.id IN (?)", s.db.Model(&models.ArticleTranslation{}).
			Select("article_id").Where("language = ?", lang))
	}
	if f.Cursor > 0 {
		// The listing sorts by (rank asc, id desc), so the cursor has to
		// resume at the composite position, not at the bare id.
		var after models.ArticleFeature
		err := s.db.Select("rank").First(&after, f.Cursor).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			// Cursor row was unpinned since the previous page.
			q = q.Where("article_features.id < ?", f.Cursor)
		case err != nil:
			return nil, fmt.Errorf("failed to resolve cursor: %w", err)
		default:
			q = q.Where("article_features.rank > ? OR (article_features.rank = ? AND article_features.id < ?)",
				after.Rank, after.Rank, f.Cursor)
		}
	}

	var rows []models.ArticleFeature
	err = q.Order("article_features.rank ASC, article_features.id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}

	now := time.Now()
	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		f := &rows[i]
		if f.Article == nil {
			continue
		}
		title := ""
		if lang != "" {
			if tr := f.Article.TranslationFor(lang); tr != nil {
				title = tr.Title
			}
		}
		if title == "" {
			title = f.Article.PrioritizedTitle()
		}
		if title == "" {
			title = "Untitled"
		}
		entries = append(entries, Entry{
			FeatureID:      f.ID,
			ArticleID:      f.ArticleID,
			ArticleSlug:    f.Article.Slug,
			ArticleSection: f.Article.Section,
			ArticleTitle:   title,
			ArticleStatus:  f.Article.Status,
			Section:        f.Section,
			Rank:           f.Rank,
			IsActive:       f.IsActive,
			IsLive:         f.IsLive(now),
			StartAt:        f.StartAt,
			EndAt:          f.EndAt,
		})
	}

	page := &ListPage{
		CursorPage:   articles.CursorPage{Results: entries, HasNext: hasNext, Limit: limit},
		FeatureType:  featureType,
		Section:      section,
		TotalForType: total,
	}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}
