package feeds

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/cache"
	"newsdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := setupTestDB(t)
	store := cache.NewMemoryStore()
	return NewService(db, store, cache.NewVersions(store), nil), db
}

func seedPublished(t *testing.T, db *gorm.DB, slug, section string) *models.Article {
	now := time.Now().Add(-time.Minute)
	article := &models.Article{
		Slug:        slug,
		Section:     section,
		Status:      models.StatusPublished,
		PublishedAt: &now,
	}
	require.NoError(t, db.Create(article).Error)
	tr := &models.ArticleTranslation{
		ArticleID: article.ID,
		Language:  "te",
		Title:     "Title " + slug,
		Content:   "<p>body of " + slug + "</p>",
	}
	require.NoError(t, db.Create(tr).Error)
	return article
}

func pin(t *testing.T, db *gorm.DB, articleID uint, featureType string, rank uint) {
	f := &models.ArticleFeature{
		ArticleID:   articleID,
		FeatureType: featureType,
		Rank:        rank,
		IsActive:    true,
	}
	require.NoError(t, db.Create(f).Error)
}

func TestHomeFeedComposition(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	hero := seedPublished(t, db, "hero-story", "news")
	top := seedPublished(t, db, "top-story", "news")
	breaking := seedPublished(t, db, "breaking-story", "news")

	pin(t, db, hero.ID, models.FeatureHero, 1)
	pin(t, db, breaking.ID, models.FeatureBreaking, 0)
	pin(t, db, top.ID, models.FeatureTop, 1)

	feed, err := svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)

	require.Len(t, feed.Hero, 1)
	assert.Equal(t, hero.ID, feed.Hero[0].ID)
	require.Len(t, feed.Breaking, 1)
	assert.Equal(t, breaking.ID, feed.Breaking[0].ID)
	require.Len(t, feed.TopStories, 1)
	assert.Equal(t, top.ID, feed.TopStories[0].ID)

	// Latest covers everything published, newest first.
	require.Len(t, feed.Latest.Results, 3)
	assert.Equal(t, breaking.ID, feed.Latest.Results[0].ID)
}

// An article pinned in several slots appears once, in the highest-priority
// slot only.
func TestHomeFeedDedupe(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	story := seedPublished(t, db, "double-pinned", "news")
	pin(t, db, story.ID, models.FeatureHero, 1)
	pin(t, db, story.ID, models.FeatureTop, 1)
	pin(t, db, story.ID, models.FeatureBreaking, 0)

	feed, err := svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)

	assert.Len(t, feed.Hero, 1)
	assert.Empty(t, feed.Breaking)
	assert.Empty(t, feed.TopStories)
	assert.Empty(t, feed.MustRead)
}

func TestHomeFeedSkipsDraftsAndExpired(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	draft := &models.Article{Slug: "draft", Section: "news", Status: models.StatusDraft}
	require.NoError(t, db.Create(draft).Error)
	pin(t, db, draft.ID, models.FeatureHero, 1)

	expired := seedPublished(t, db, "expired", "news")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(expired).Update("expires_at", past).Error)
	pin(t, db, expired.ID, models.FeatureHero, 2)

	feed, err := svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, feed.Hero)
	assert.Empty(t, feed.Latest.Results)
}

func TestHomeFeedHonorsFeatureWindow(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	story := seedPublished(t, db, "windowed", "news")
	future := time.Now().Add(time.Hour)
	f := &models.ArticleFeature{
		ArticleID:   story.ID,
		FeatureType: models.FeatureHero,
		Rank:        1,
		IsActive:    true,
		StartAt:     &future,
	}
	require.NoError(t, db.Create(f).Error)

	feed, err := svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)
	// Pinned but not yet inside its window.
	assert.Empty(t, feed.Hero)
	// Still present in the chronological block.
	assert.Len(t, feed.Latest.Results, 1)
}

func TestSectionFeedScoping(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	sports := seedPublished(t, db, "match-report", "sports")
	news := seedPublished(t, db, "city-story", "news")

	sportsPin := &models.ArticleFeature{
		ArticleID: sports.ID, FeatureType: models.FeatureHero, Section: "sports", Rank: 1, IsActive: true,
	}
	require.NoError(t, db.Create(sportsPin).Error)
	newsPin := &models.ArticleFeature{
		ArticleID: news.ID, FeatureType: models.FeatureHero, Section: "news", Rank: 1, IsActive: true,
	}
	require.NoError(t, db.Create(newsPin).Error)

	feed, err := svc.SectionFeed(ctx, "sports", "te", 0, 20)
	require.NoError(t, err)

	assert.Equal(t, "sports", feed.Section)
	require.Len(t, feed.Hero, 1)
	assert.Equal(t, sports.ID, feed.Hero[0].ID)
	require.Len(t, feed.Latest.Results, 1)
	assert.Equal(t, sports.ID, feed.Latest.Results[0].ID)
}

// Global pins fill the home feed only; a section feed shows just the pins
// scoped to that section.
func TestSectionFeedIgnoresGlobalPins(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	story := seedPublished(t, db, "global-hero", "sports")
	pin(t, db, story.ID, models.FeatureHero, 1) // section ""

	home, err := svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)
	require.Len(t, home.Hero, 1)

	feed, err := svc.SectionFeed(ctx, "sports", "te", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, feed.Hero)
	// The article still shows up chronologically.
	require.Len(t, feed.Latest.Results, 1)
}

func TestLatestPagination(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	for i := 0; i < 5; i++ {
		seedPublished(t, db, fmt.Sprintf("story-%d", i), "news")
	}

	feed, err := svc.HomeFeed(ctx, "te", 0, 2)
	require.NoError(t, err)
	require.Len(t, feed.Latest.Results, 2)
	assert.True(t, feed.Latest.HasNext)
	require.NotNil(t, feed.Latest.NextCursor)

	next, err := svc.HomeFeed(ctx, "te", *feed.Latest.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, next.Latest.Results, 2)
	// Strictly older ids on the next page.
	assert.Less(t, next.Latest.Results[0].ID, feed.Latest.Results[1].ID)
}

func TestFeedCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	seedPublished(t, db, "first", "news")
	feed, err := svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)
	require.Len(t, feed.Latest.Results, 1)

	// Without a version bump the cached payload keeps serving.
	seedPublished(t, db, "second", "news")
	feed, err = svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)
	assert.Len(t, feed.Latest.Results, 1)

	svc.versions.Bump(ctx, cache.ArticlesDomain)
	feed, err = svc.HomeFeed(ctx, "te", 0, 20)
	require.NoError(t, err)
	assert.Len(t, feed.Latest.Results, 2)
}

func TestTrending(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	low := seedPublished(t, db, "low", "news")
	high := seedPublished(t, db, "high", "news")
	require.NoError(t, db.Model(low).Update("views_count", 10).Error)
	require.NoError(t, db.Model(high).Update("views_count", 500).Error)

	page, err := svc.Trending(ctx, "", "te", 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, high.ID, page.Results[0].ID)
	assert.Equal(t, low.ID, page.Results[1].ID)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	seedPublished(t, db, "one", "news")
	seedPublished(t, db, "two", "sports")

	resp, err := svc.List(ctx, "news", 0, 20)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "one", resp.Results[0].Slug)
}

func TestDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("published article", func(t *testing.T) {
		svc, db := newTestService(t)
		article := seedPublished(t, db, "budget-2026", "news")

		detail, err := svc.Detail(ctx, "news", "budget-2026", "te")
		require.NoError(t, err)
		assert.Equal(t, article.ID, detail.ID)
		assert.Equal(t, "te", detail.Language)
		assert.Contains(t, detail.Content, "budget-2026")
	})

	t.Run("unknown slug is 404", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Detail(ctx, "news", "missing", "te")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("inactive article is 410", func(t *testing.T) {
		svc, db := newTestService(t)
		article := seedPublished(t, db, "pulled", "news")
		require.NoError(t, db.Model(article).Update("status", models.StatusInactive).Error)

		_, err := svc.Detail(ctx, "news", "pulled", "te")
		assert.Equal(t, apperr.KindGone, apperr.KindOf(err))
	})

	t.Run("expired article is 410", func(t *testing.T) {
		svc, db := newTestService(t)
		article := seedPublished(t, db, "stale", "news")
		past := time.Now().Add(-time.Hour)
		require.NoError(t, db.Model(article).Update("expires_at", past).Error)

		_, err := svc.Detail(ctx, "news", "stale", "te")
		assert.Equal(t, apperr.KindGone, apperr.KindOf(err))
	})

	t.Run("scheduled article is 404 until due", func(t *testing.T) {
		svc, db := newTestService(t)
		article := seedPublished(t, db, "embargo", "news")
		future := time.Now().Add(time.Hour)
		require.NoError(t, db.Model(article).Updates(map[string]interface{}{
			"status":       models.StatusScheduled,
			"published_at": future,
		}).Error)

		_, err := svc.Detail(ctx, "news", "embargo", "te")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("missing language is 404", func(t *testing.T) {
		svc, db := newTestService(t)
		article := seedPublished(t, db, "telugu-only", "news")
		// Replace the Telugu translation with an English-only one.
		require.NoError(t, db.Where("article_id = ?", article.ID).
			Delete(&models.ArticleTranslation{}).Error)
		tr := &models.ArticleTranslation{ArticleID: article.ID, Language: "en", Title: "E"}
		require.NoError(t, db.Create(tr).Error)

		_, err := svc.Detail(ctx, "news", "telugu-only", "hi")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestTrackView(t *testing.T) {
	ctx := context.Background()

	t.Run("increments atomically", func(t *testing.T) {
		svc, db := newTestService(t)
		article := seedPublished(t, db, "viewed", "news")

		require.NoError(t, svc.TrackView(ctx, "news", "viewed"))
		require.NoError(t, svc.TrackView(ctx, "news", "viewed"))

		var got models.Article
		require.NoError(t, db.First(&got, article.ID).Error)
		assert.Equal(t, uint(2), got.ViewsCount)
		assert.NotNil(t, got.LastViewedAt)
	})

	t.Run("unknown article is 404", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.TrackView(ctx, "news", "missing")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("draft article is 404", func(t *testing.T) {
		svc, db := newTestService(t)
		draft := &models.Article{Slug: "draft", Section: "news", Status: models.StatusDraft}
		require.NoError(t, db.Create(draft).Error)

		err := svc.TrackView(ctx, "news", "draft")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}
