package feeds

import (
	"fmt"
	"os"
	"strings"

	"newsdesk/internal/models"
)

// CDNResolver builds media URLs against a configured CDN base. Assets are
// addressed by storage key so the bucket layout can change without
// touching stored rows.
type CDNResolver struct {
	baseURL string
}

// NewCDNResolver reads MEDIA_BASE_URL from the environment.
func NewCDNResolver() *CDNResolver {
	base := os.Getenv("MEDIA_BASE_URL")
	if base == "" {
		base = "http://localhost:8080/media"
	}
	return &CDNResolver{baseURL: strings.TrimRight(base, "/")}
}

func (r *CDNResolver) ResolveURL(media *models.MediaAsset) string {
	if media == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s", r.baseURL, media.StorageKey.String())
}
