package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVersionsLazyInit(t *testing.T) {
	versions := NewVersions(NewMemoryStore())
	ctx := context.Background()

	assert.Equal(t, int64(1), versions.Current(ctx, ArticlesDomain))
	// A second read must not re-initialize.
	assert.Equal(t, int64(1), versions.Current(ctx, ArticlesDomain))
}

func TestVersionsBump(t *testing.T) {
	versions := NewVersions(NewMemoryStore())
	ctx := context.Background()

	assert.Equal(t, int64(1), versions.Current(ctx, ArticlesDomain))
	versions.Bump(ctx, ArticlesDomain)
	assert.Equal(t, int64(2), versions.Current(ctx, ArticlesDomain))
	versions.Bump(ctx, ArticlesDomain)
	assert.Equal(t, int64(3), versions.Current(ctx, ArticlesDomain))
}

func TestVersionsKeyFormat(t *testing.T) {
	versions := NewVersions(NewMemoryStore())
	ctx := context.Background()

	key := versions.Key(ctx, ArticlesDomain, "home", "te", "")
	assert.Equal(t, "v1:articles:home:te:", key)

	versions.Bump(ctx, ArticlesDomain)
	assert.Equal(t, "v2:articles:home:te:", versions.Key(ctx, ArticlesDomain, "home", "te", ""))
}

// Bumping the version must make previously cached payloads unreachable
// even though they are never deleted.
func TestBumpOrphansOldEntries(t *testing.T) {
	store := NewMemoryStore()
	versions := NewVersions(store)
	ctx := context.Background()

	key := versions.Key(ctx, ArticlesDomain, "detail", "news", "budget-2026")
	store.Set(ctx, key, `{"id":1}`, time.Minute)

	if _, ok := store.Get(ctx, key); !ok {
		t.Fatal("expected cached entry before bump")
	}

	versions.Bump(ctx, ArticlesDomain)

	newKey := versions.Key(ctx, ArticlesDomain, "detail", "news", "budget-2026")
	assert.NotEqual(t, key, newKey)
	_, ok := store.Get(ctx, newKey)
	assert.False(t, ok, "new key must miss until repopulated")
}

func TestVersionsRecoverFromGarbage(t *testing.T) {
	store := NewMemoryStore()
	versions := NewVersions(store)
	ctx := context.Background()

	store.Set(ctx, "articles:ver", "not-a-number", 0)
	assert.Equal(t, int64(1), versions.Current(ctx, ArticlesDomain))
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", "v", 10*time.Millisecond)
	if _, ok := store.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok, "expected miss after expiry")
}
