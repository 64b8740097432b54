package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Article statuses. An article only ever moves between these through the
// workflow service.
const (
	StatusDraft     = "DRAFT"
	StatusReview    = "REVIEW"
	StatusScheduled = "SCHEDULED"
	StatusPublished = "PUBLISHED"
	StatusInactive  = "INACTIVE"
	StatusRejected  = "REJECTED"
)

// Article is the canonical content record. Titles and bodies live on
// ArticleTranslation; the article row carries routing (section/slug),
// lifecycle and SEO metadata.
type Article struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Slug    string `json:"slug" gorm:"size:255;not null;uniqueIndex:uniq_section_slug,priority:2"`
	Section string `json:"section" gorm:"size:50;not null;uniqueIndex:uniq_section_slug,priority:1;index:article_status_section_idx,priority:2"`

	Status string `json:"status" gorm:"size:10;default:DRAFT;index:article_status_noindex_idx,priority:1;index:article_status_section_idx,priority:1"`

	// Search-ready fields
	Tags     pq.StringArray `json:"tags" gorm:"type:text[]"`
	Keywords pq.StringArray `json:"keywords" gorm:"type:text[]"`

	// SEO
	CanonicalURL    string `json:"canonical_url" gorm:"size:500"`
	MetaTitle       string `json:"meta_title" gorm:"size:255"`
	MetaDescription string `json:"meta_description" gorm:"size:300"`
	Noindex         bool   `json:"noindex" gorm:"default:false;index:article_status_noindex_idx,priority:2"`

	// Open Graph
	OGTitle       string `json:"og_title" gorm:"size:255"`
	OGDescription string `json:"og_description" gorm:"size:300"`
	OGImageURL    string `json:"og_image_url" gorm:"size:500"`

	ExpiresAt *time.Time `json:"expires_at" gorm:"index"`

	// Audit
	CreatedBy   string     `json:"created_by" gorm:"size:255"`
	UpdatedBy   string     `json:"updated_by" gorm:"size:255"`
	PublishedAt *time.Time `json:"published_at" gorm:"index:article_published_at_idx"`

	// Analytics
	ViewsCount   uint       `json:"views_count" gorm:"default:0"`
	LastViewedAt *time.Time `json:"last_viewed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Translations      []ArticleTranslation `json:"translations,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	ArticleCategories []ArticleCategory    `json:"categories,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	MediaLinks        []ArticleMedia       `json:"media_links,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	Features          []ArticleFeature     `json:"features,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	Revisions         []ArticleRevision    `json:"-" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the Article model
func (Article) TableName() string {
	return "articles"
}

// IsExpired reports whether the article's optional expiry has passed.
func (a *Article) IsExpired(at time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(at)
}

// TranslationFor returns the translation for lang, or nil. Requires
// Translations to be preloaded.
func (a *Article) TranslationFor(lang string) *ArticleTranslation {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for i := range a.Translations {
		if strings.ToLower(strings.TrimSpace(a.Translations[i].Language)) == lang {
			return &a.Translations[i]
		}
	}
	return nil
}

// PrioritizedTitle resolves the display title: English first, then Telugu,
// then the first available translation. Empty when the article has no
// translations at all.
func (a *Article) PrioritizedTitle() string {
	if tr := a.TranslationFor("en"); tr != nil {
		return tr.Title
	}
	if tr := a.TranslationFor("te"); tr != nil {
		return tr.Title
	}
	if len(a.Translations) > 0 {
		return a.Translations[0].Title
	}
	return ""
}

// ArticleTranslation holds per-language title/content/summary. Exactly one
// row per (article, language); language is a 2-letter tag (te/en).
type ArticleTranslation struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ArticleID uint   `json:"article_id" gorm:"not null;uniqueIndex:uniq_article_language,priority:1"`
	Language  string `json:"language" gorm:"size:2;not null;uniqueIndex:uniq_article_language,priority:2;index"`
	Title     string `json:"title" gorm:"size:255;not null"`
	Content   string `json:"content" gorm:"type:text"` // HTML
	Summary   string `json:"summary" gorm:"type:text"` // short excerpt
}

func (ArticleTranslation) TableName() string {
	return "article_translations"
}

// ArticleRevision is an append-only snapshot of a translation at edit time.
// Rows are never updated or deleted outside of a parent-article cascade.
type ArticleRevision struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ArticleID uint   `json:"article_id" gorm:"not null;index:article_rev_history_idx,priority:1"`
	Language  string `json:"language" gorm:"size:2;not null;index:article_rev_history_idx,priority:2"`
	Title     string `json:"title" gorm:"size:255;not null"`
	Content   string `json:"content" gorm:"type:text"`
	Summary   string `json:"summary" gorm:"type:text"`

	EditorUserID string `json:"editor_user_id" gorm:"size:255"`
	Note         string `json:"note" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:article_rev_history_idx,priority:3"`
}

func (ArticleRevision) TableName() string {
	return "article_revisions"
}

// Feature slot types.
const (
	FeatureHero       = "HERO"
	FeatureTop        = "TOP"
	FeatureBreaking   = "BREAKING"
	FeatureEditorPick = "EDITOR_PICK"
	FeatureMustRead   = "MUST_READ"
)

// ArticleFeature pins an article into a bounded homepage/section slot.
// Section "" means the global homepage. Lower rank = higher priority;
// BREAKING is always rank 0.
type ArticleFeature struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ArticleID   uint   `json:"article_id" gorm:"not null;uniqueIndex:uniq_article_feature_per_section,priority:1"`
	FeatureType string `json:"feature_type" gorm:"size:20;not null;uniqueIndex:uniq_article_feature_per_section,priority:2;index:feature_board_idx,priority:1"`
	Section     string `json:"section" gorm:"size:50;default:'';uniqueIndex:uniq_article_feature_per_section,priority:3;index:feature_board_idx,priority:2"`

	Rank     uint `json:"rank" gorm:"default:1;index:feature_board_idx,priority:3"`
	IsActive bool `json:"is_active" gorm:"default:true;index"`

	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Article *Article `json:"-" gorm:"foreignKey:ArticleID"`
}

func (ArticleFeature) TableName() string {
	return "article_features"
}

// IsLive is evaluated against the current time on every serve; it is never
// stored.
func (f *ArticleFeature) IsLive(at time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.StartAt != nil && f.StartAt.After(at) {
		return false
	}
	if f.EndAt != nil && f.EndAt.Before(at) {
		return false
	}
	return true
}

// ArticleCategory joins articles to taxonomy categories.
type ArticleCategory struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ArticleID  uint `json:"article_id" gorm:"not null;uniqueIndex:uniq_article_category,priority:1"`
	CategoryID uint `json:"category_id" gorm:"not null;uniqueIndex:uniq_article_category,priority:2;index"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (ArticleCategory) TableName() string {
	return "article_categories"
}

// Media usage slots within an article.
const (
	MediaUsageBanner     = "BANNER"
	MediaUsageMain       = "MAIN"
	MediaUsageInline     = "INLINE"
	MediaUsageGallery    = "GALLERY"
	MediaUsageAttachment = "ATTACHMENT"
)

// ArticleMedia links an article to a media asset for a given usage slot.
type ArticleMedia struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ArticleID uint   `json:"article_id" gorm:"not null;uniqueIndex:uniq_article_media_usage,priority:1;index:article_media_usage_idx,priority:1"`
	MediaID   uint   `json:"media_id" gorm:"not null;uniqueIndex:uniq_article_media_usage,priority:2;index"`
	Usage     string `json:"usage" gorm:"size:20;not null;uniqueIndex:uniq_article_media_usage,priority:3;index:article_media_usage_idx,priority:2"`
	Position  uint   `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Media *MediaAsset `json:"media,omitempty" gorm:"foreignKey:MediaID"`
}

func (ArticleMedia) TableName() string {
	return "article_media"
}
