package worker

import (
	"testing"
	"time"

	"newsdesk/internal/cache"
	"newsdesk/internal/models"
	"newsdesk/internal/notify"
	"newsdesk/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWorkflow(t *testing.T) (*workflow.Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	versions := cache.NewVersions(cache.NewMemoryStore())
	return workflow.NewService(db, versions, notify.NewClient()), db
}

func TestWorkerStartStop(t *testing.T) {
	wf, _ := setupWorkflow(t)
	ws := NewWorkerService(wf, time.Hour)

	require.NoError(t, ws.Start())
	assert.True(t, ws.IsRunning())

	// Starting twice is a no-op.
	require.NoError(t, ws.Start())

	ws.Stop()
	assert.False(t, ws.IsRunning())

	// Stopping twice is safe.
	ws.Stop()
}

func TestWorkerPublishesDueOnStartup(t *testing.T) {
	wf, db := setupWorkflow(t)

	article := &models.Article{Slug: "due", Section: "news", Status: models.StatusScheduled}
	require.NoError(t, db.Create(article).Error)
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(article).Update("published_at", past).Error)

	ws := NewWorkerService(wf, time.Hour)
	require.NoError(t, ws.Start())
	defer ws.Stop()

	// The initial sweep runs right away; poll briefly for it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var got models.Article
		require.NoError(t, db.First(&got, article.ID).Error)
		if got.Status == models.StatusPublished {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduled article was not published by the startup sweep")
}
