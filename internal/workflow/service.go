// Package workflow implements the article publishing state machine:
// DRAFT -> REVIEW -> PUBLISHED -> INACTIVE, with SCHEDULED and REJECTED as
// side states. Every transition is role-gated, bumps the articles cache
// version after commit, and fires a best-effort notification.
package workflow

import (
	"context"
	"fmt"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/auth"
	"newsdesk/internal/cache"
	"newsdesk/internal/models"
	"newsdesk/internal/notify"

	"gorm.io/gorm"
)

// Service executes workflow transitions.
type Service struct {
	db       *gorm.DB
	versions *cache.Versions
	notifier *notify.Client
}

// NewService creates a workflow service.
func NewService(db *gorm.DB, versions *cache.Versions, notifier *notify.Client) *Service {
	return &Service{db: db, versions: versions, notifier: notifier}
}

func (s *Service) loadArticle(id uint) (*models.Article, error) {
	var article models.Article
	err := s.db.Preload("Translations").Preload("ArticleCategories").
		First(&article, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFoundf("article %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article %d: %w", id, err)
	}
	return &article, nil
}

// notifyTitle picks the first translation title for notification text.
func notifyTitle(a *models.Article) string {
	if len(a.Translations) > 0 {
		return a.Translations[0].Title
	}
	return fmt.Sprintf("Article %d", a.ID)
}

// SubmitForReview moves DRAFT -> REVIEW. Requires a Telugu translation and
// at least one assigned category.
func (s *Service) SubmitForReview(ctx context.Context, actor *auth.Identity, id uint) error {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return err
	}

	article, err := s.loadArticle(id)
	if err != nil {
		return err
	}

	if article.TranslationFor("te") == nil {
		return apperr.Validationf("Telugu translation (te) required")
	}
	if len(article.ArticleCategories) == 0 {
		return apperr.Validationf("At least 1 category required")
	}

	err = s.db.Model(article).Updates(map[string]interface{}{
		"status":     models.StatusReview,
		"updated_by": actor.UserID,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to move article %d to review: %w", id, err)
	}

	s.notifier.OnReview(article.ID, notifyTitle(article), actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// Publish moves REVIEW -> PUBLISHED. Publisher role and a Telugu
// translation are required; any other prior state is a conflict.
func (s *Service) Publish(ctx context.Context, actor *auth.Identity, id uint) error {
	if err := auth.RequireMin(actor.Role, auth.RolePublisher); err != nil {
		return err
	}

	article, err := s.loadArticle(id)
	if err != nil {
		return err
	}

	if article.Status != models.StatusReview {
		return apperr.StateConflictf("must be REVIEW before publish")
	}
	if article.TranslationFor("te") == nil {
		return apperr.Validationf("Telugu translation (te) required")
	}

	now := time.Now()
	err = s.db.Model(article).Updates(map[string]interface{}{
		"status":       models.StatusPublished,
		"noindex":      false,
		"published_at": now,
		"updated_by":   actor.UserID,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to publish article %d: %w", id, err)
	}

	s.notifier.OnPublish(article.ID, notifyTitle(article), actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// DirectPublishResult reports what the bypass publish resolved to.
type DirectPublishResult struct {
	Status      string
	PublishedAt time.Time
}

// DirectPublish bypasses review (ADMIN+). Any translation satisfies the
// guard. A future scheduled_at yields SCHEDULED with published_at set to
// the scheduled time; otherwise the article is published immediately. The
// sweep that later flips SCHEDULED to PUBLISHED runs outside the request
// path (see the worker package).
func (s *Service) DirectPublish(ctx context.Context, actor *auth.Identity, id uint, scheduledAt string) (*DirectPublishResult, error) {
	if err := auth.RequireMin(actor.Role, auth.RoleAdmin); err != nil {
		return nil, err
	}

	article, err := s.loadArticle(id)
	if err != nil {
		return nil, err
	}

	if len(article.Translations) == 0 {
		return nil, apperr.Validationf("At least 1 translation required to publish")
	}

	publishedAt, err := ResolvePublishTime(scheduledAt)
	if err != nil {
		return nil, err
	}

	status := models.StatusPublished
	if publishedAt.After(time.Now()) {
		status = models.StatusScheduled
	}

	err = s.db.Model(article).Updates(map[string]interface{}{
		"status":       status,
		"noindex":      false,
		"published_at": publishedAt,
		"updated_by":   actor.UserID,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to direct-publish article %d: %w", id, err)
	}

	s.notifier.OnPublish(article.ID, notifyTitle(article), actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return &DirectPublishResult{Status: status, PublishedAt: publishedAt}, nil
}

// Reject moves REVIEW -> REJECTED with a reason forwarded to the
// contributor's notification.
func (s *Service) Reject(ctx context.Context, actor *auth.Identity, id uint, reason string) error {
	if err := auth.RequireMin(actor.Role, auth.RoleEditor); err != nil {
		return err
	}

	article, err := s.loadArticle(id)
	if err != nil {
		return err
	}

	if article.Status != models.StatusReview {
		return apperr.StateConflictf("must be REVIEW before reject")
	}

	err = s.db.Model(article).Updates(map[string]interface{}{
		"status":     models.StatusRejected,
		"updated_by": actor.UserID,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to reject article %d: %w", id, err)
	}

	s.notifier.OnReject(article.ID, notifyTitle(article), reason, actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// Deactivate moves PUBLISHED -> INACTIVE and hides the article from search
// engines.
func (s *Service) Deactivate(ctx context.Context, actor *auth.Identity, id uint) error {
	if err := auth.RequireMin(actor.Role, auth.RolePublisher); err != nil {
		return err
	}

	article, err := s.loadArticle(id)
	if err != nil {
		return err
	}

	err = s.db.Model(article).Updates(map[string]interface{}{
		"status":     models.StatusInactive,
		"noindex":    true,
		"updated_by": actor.UserID,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate article %d: %w", id, err)
	}

	s.notifier.OnDeactivate(article.ID, notifyTitle(article), actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// Activate moves INACTIVE back to DRAFT. The article re-enters the draft
// workflow; it does not return to PUBLISHED and keeps noindex until the
// next publish.
func (s *Service) Activate(ctx context.Context, actor *auth.Identity, id uint) error {
	if err := auth.RequireMin(actor.Role, auth.RolePublisher); err != nil {
		return err
	}

	article, err := s.loadArticle(id)
	if err != nil {
		return err
	}

	err = s.db.Model(article).Updates(map[string]interface{}{
		"status":     models.StatusDraft,
		"noindex":    true,
		"updated_by": actor.UserID,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to activate article %d: %w", id, err)
	}

	s.notifier.OnActivate(article.ID, notifyTitle(article), actor)
	s.versions.Bump(ctx, cache.ArticlesDomain)
	return nil
}

// PublishDue flips SCHEDULED articles whose publish time has arrived to
// PUBLISHED. Called by the background sweep, never from a request.
func (s *Service) PublishDue(ctx context.Context) (int64, error) {
	res := s.db.Model(&models.Article{}).
		Where("status = ? AND published_at IS NOT NULL AND published_at <= ?",
			models.StatusScheduled, time.Now()).
		Updates(map[string]interface{}{
			"status":  models.StatusPublished,
			"noindex": false,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to publish due articles: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.versions.Bump(ctx, cache.ArticlesDomain)
	}
	return res.RowsAffected, nil
}
