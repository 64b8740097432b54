package feeds

import (
	"context"
	"testing"
	"time"

	"newsdesk/internal/apperr"
	"newsdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCategory(t *testing.T, db *gorm.DB, section, name, slug string, parentID *uint) *models.Category {
	cat := &models.Category{Section: section, Name: name, Slug: slug, ParentID: parentID, IsActive: true}
	require.NoError(t, db.Create(cat).Error)
	return cat
}

func categorize(t *testing.T, db *gorm.DB, articleID, categoryID uint) {
	link := &models.ArticleCategory{ArticleID: articleID, CategoryID: categoryID}
	require.NoError(t, db.Create(link).Error)
}

func TestCategoryBlocks(t *testing.T) {
	ctx := context.Background()

	t.Run("section is required", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CategoryBlocks(ctx, "", "te", 6)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("one block per active root category", func(t *testing.T) {
		svc, db := newTestService(t)

		exams := seedCategory(t, db, "academics", "Exams", "exams", nil)
		notes := seedCategory(t, db, "academics", "Notes", "notes", nil)
		// Children and inactive roots never become blocks.
		seedCategory(t, db, "academics", "Inter", "inter", &exams.ID)
		retired := seedCategory(t, db, "academics", "Retired", "retired", nil)
		require.NoError(t, db.Model(retired).Update("is_active", false).Error)

		a := seedPublished(t, db, "eamcet-key", "academics")
		categorize(t, db, a.ID, exams.ID)
		b := seedPublished(t, db, "physics-notes", "academics")
		categorize(t, db, b.ID, notes.ID)

		blocks, err := svc.CategoryBlocks(ctx, "academics", "te", 6)
		require.NoError(t, err)
		require.Len(t, blocks, 2)

		// Blocks come back in category name order.
		assert.Equal(t, "exams", blocks[0].Category.Slug)
		require.Len(t, blocks[0].Articles, 1)
		assert.Equal(t, a.ID, blocks[0].Articles[0].ID)
		assert.Equal(t, "notes", blocks[1].Category.Slug)
		require.Len(t, blocks[1].Articles, 1)
	})

	t.Run("limits and orders articles per block", func(t *testing.T) {
		svc, db := newTestService(t)
		exams := seedCategory(t, db, "academics", "Exams", "exams", nil)

		older := seedPublished(t, db, "older", "academics")
		newer := seedPublished(t, db, "newer", "academics")
		past := time.Now().Add(-time.Hour)
		require.NoError(t, db.Model(older).Update("published_at", past).Error)
		categorize(t, db, older.ID, exams.ID)
		categorize(t, db, newer.ID, exams.ID)

		blocks, err := svc.CategoryBlocks(ctx, "academics", "te", 1)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		require.Len(t, blocks[0].Articles, 1)
		assert.Equal(t, newer.ID, blocks[0].Articles[0].ID)
	})

	t.Run("drafts stay out of blocks", func(t *testing.T) {
		svc, db := newTestService(t)
		exams := seedCategory(t, db, "academics", "Exams", "exams", nil)

		draft := &models.Article{Slug: "draft", Section: "academics", Status: models.StatusDraft}
		require.NoError(t, db.Create(draft).Error)
		categorize(t, db, draft.ID, exams.ID)

		blocks, err := svc.CategoryBlocks(ctx, "academics", "te", 6)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Empty(t, blocks[0].Articles)
	})
}

func TestPublished(t *testing.T) {
	ctx := context.Background()

	t.Run("category filter covers the subtree", func(t *testing.T) {
		svc, db := newTestService(t)

		academics := seedCategory(t, db, "academics", "Academics", "academics", nil)
		inter := seedCategory(t, db, "academics", "Inter", "inter", &academics.ID)

		direct := seedPublished(t, db, "direct", "academics")
		categorize(t, db, direct.ID, academics.ID)
		nested := seedPublished(t, db, "nested", "academics")
		categorize(t, db, nested.ID, inter.ID)
		seedPublished(t, db, "unrelated", "academics")

		page, err := svc.Published(ctx, "academics", "academics", "te", 0, 20)
		require.NoError(t, err)
		require.Len(t, page.Results, 2)
		// Newest first; the child-category article counts too.
		assert.Equal(t, nested.ID, page.Results[0].ID)
		assert.Equal(t, direct.ID, page.Results[1].ID)
	})

	t.Run("unknown category yields an empty page", func(t *testing.T) {
		svc, db := newTestService(t)
		seedPublished(t, db, "story", "news")

		page, err := svc.Published(ctx, "news", "no-such-category", "te", 0, 20)
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.False(t, page.HasNext)
	})

	t.Run("section filter without category", func(t *testing.T) {
		svc, db := newTestService(t)
		seedPublished(t, db, "in-section", "sports")
		seedPublished(t, db, "elsewhere", "news")

		page, err := svc.Published(ctx, "sports", "", "te", 0, 20)
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "in-section", page.Results[0].Slug)
	})
}

func TestFilters(t *testing.T) {
	svc, db := newTestService(t)

	exams := seedCategory(t, db, "academics", "Exams", "exams", nil)
	notes := seedCategory(t, db, "academics", "Notes", "notes", nil)

	for i, slug := range []string{"a", "b", "c"} {
		article := seedPublished(t, db, slug, "academics")
		categorize(t, db, article.ID, exams.ID)
		if i == 0 {
			categorize(t, db, article.ID, notes.ID)
		}
	}
	// A draft never counts.
	draft := &models.Article{Slug: "d", Section: "academics", Status: models.StatusDraft}
	require.NoError(t, db.Create(draft).Error)
	categorize(t, db, draft.ID, exams.ID)

	resp, err := svc.Filters("academics")
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.TotalPublished)
	require.Len(t, resp.TopCategories, 2)
	// Busiest category first.
	assert.Equal(t, exams.ID, resp.TopCategories[0].CategoryID)
	assert.Equal(t, int64(3), resp.TopCategories[0].Count)
	assert.Equal(t, int64(1), resp.TopCategories[1].Count)
}

func TestSuggestions(t *testing.T) {
	t.Run("short queries answer nothing", func(t *testing.T) {
		svc, db := newTestService(t)
		seedPublished(t, db, "story", "news")

		got, err := svc.Suggestions("", "te", "s")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("matches titles across sections", func(t *testing.T) {
		svc, db := newTestService(t)
		match := seedPublished(t, db, "inter-results", "academics")
		require.NoError(t, db.Model(&models.ArticleTranslation{}).
			Where("article_id = ?", match.ID).
			Update("title", "Inter first year results").Error)
		seedPublished(t, db, "other", "news")

		got, err := svc.Suggestions("", "te", "inter")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, match.ID, got[0].ID)
		assert.Equal(t, "Inter first year results", got[0].Title)
	})

	t.Run("section scopes the matches", func(t *testing.T) {
		svc, db := newTestService(t)
		a := seedPublished(t, db, "exam-news", "academics")
		require.NoError(t, db.Model(&models.ArticleTranslation{}).
			Where("article_id = ?", a.ID).Update("title", "Exam schedule").Error)
		b := seedPublished(t, db, "exam-sports", "sports")
		require.NoError(t, db.Model(&models.ArticleTranslation{}).
			Where("article_id = ?", b.ID).Update("title", "Exam for umpires").Error)

		got, err := svc.Suggestions("sports", "te", "exam")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("drafts never surface", func(t *testing.T) {
		svc, db := newTestService(t)
		draft := &models.Article{Slug: "draft", Section: "news", Status: models.StatusDraft}
		require.NoError(t, db.Create(draft).Error)
		tr := &models.ArticleTranslation{ArticleID: draft.ID, Language: "te", Title: "Secret exam paper"}
		require.NoError(t, db.Create(tr).Error)

		got, err := svc.Suggestions("", "te", "exam")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
