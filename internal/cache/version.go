package cache

import (
	"context"
	"fmt"
	"strconv"
)

// ArticlesDomain is the content domain carrying the article read surface.
const ArticlesDomain = "articles"

// Versions maintains one monotonic counter per content domain. Read paths
// prefix every cache key with the current version, so bumping the counter
// makes all older keys unreachable without deleting them; their TTLs bound
// their lifetime.
type Versions struct {
	store Store
}

func NewVersions(store Store) *Versions {
	return &Versions{store: store}
}

func versionKey(domain string) string {
	return domain + ":ver"
}

// Current returns the domain's version, lazily initializing it to 1. The
// version key itself never expires.
func (v *Versions) Current(ctx context.Context, domain string) int64 {
	key := versionKey(domain)
	raw, ok := v.store.Get(ctx, key)
	if !ok {
		v.store.Set(ctx, key, "1", 0)
		return 1
	}
	ver, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		v.store.Set(ctx, key, "1", 0)
		return 1
	}
	return ver
}

// Bump increments the domain's version. When the atomic increment is
// unavailable it falls back to read-then-write; the race window only causes
// extra cache misses, never stale reads.
func (v *Versions) Bump(ctx context.Context, domain string) {
	if _, err := v.store.Incr(ctx, versionKey(domain)); err != nil {
		ver := v.Current(ctx, domain)
		v.store.Set(ctx, versionKey(domain), strconv.FormatInt(ver+1, 10), 0)
	}
}

// Key builds a versioned cache key: "v{ver}:{domain}:{op}:{params...}".
func (v *Versions) Key(ctx context.Context, domain, op string, params ...string) string {
	key := fmt.Sprintf("v%d:%s:%s", v.Current(ctx, domain), domain, op)
	for _, p := range params {
		key += ":" + p
	}
	return key
}
