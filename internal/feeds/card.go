package feeds

import (
	"strings"
	"time"

	"newsdesk/internal/models"

	"golang.org/x/net/html"
)

// Card is the denormalized article projection used in every public list
// and feed response.
type Card struct {
	ID      uint   `json:"id"`
	Slug    string `json:"slug"`
	Section string `json:"section"`
	Title   string `json:"title"`
	Summary string `json:"summary"`

	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	OGTitle         string `json:"og_title"`
	OGDescription   string `json:"og_description"`
	OGImageURL      string `json:"og_image_url"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	ViewsCount  uint       `json:"views_count"`

	Categories    []CardCategory `json:"categories"`
	FeaturedMedia *CardMedia     `json:"featured_media,omitempty"`
}

// CardCategory is the category projection inside a card.
type CardCategory struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Section string `json:"section"`
}

// CardMedia is the first media link of the article, with its URL resolved
// at read time.
type CardMedia struct {
	MediaID   uint   `json:"media_id"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// MediaResolver turns a stored media asset into a retrieval URL. The URL
// is never persisted; it is resolved on every request.
type MediaResolver interface {
	ResolveURL(media *models.MediaAsset) string
}

const summaryMaxLen = 140

// summaryFromContent extracts a plain-text excerpt from HTML content when
// no explicit summary was written.
func summaryFromContent(htmlText string) string {
	if htmlText == "" {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(htmlText))
	var b strings.Builder
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
	plain := strings.Join(strings.Fields(b.String()), " ")
	// Truncate on runes, not bytes; Telugu text is multi-byte throughout.
	if runes := []rune(plain); len(runes) > summaryMaxLen {
		plain = strings.TrimSpace(string(runes[:summaryMaxLen]))
	}
	return plain
}

// translationFor picks the requested language, falling back to Telugu.
func translationFor(a *models.Article, lang string) *models.ArticleTranslation {
	if tr := a.TranslationFor(lang); tr != nil {
		return tr
	}
	return a.TranslationFor("te")
}

// PrepareCard builds the card for one article, or nil when no usable
// translation exists. Requires Translations, ArticleCategories.Category
// and MediaLinks.Media preloaded.
func PrepareCard(a *models.Article, lang string, resolver MediaResolver) *Card {
	tr := translationFor(a, lang)
	if tr == nil {
		return nil
	}

	summary := tr.Summary
	if summary == "" {
		summary = summaryFromContent(tr.Content)
	}

	card := &Card{
		ID:              a.ID,
		Slug:            a.Slug,
		Section:         a.Section,
		Title:           tr.Title,
		Summary:         summary,
		MetaTitle:       a.MetaTitle,
		MetaDescription: a.MetaDescription,
		OGTitle:         a.OGTitle,
		OGDescription:   a.OGDescription,
		OGImageURL:      a.OGImageURL,
		PublishedAt:     a.PublishedAt,
		CreatedAt:       a.CreatedAt,
		ViewsCount:      a.ViewsCount,
		Categories:      make([]CardCategory, 0, len(a.ArticleCategories)),
	}

	for _, ac := range a.ArticleCategories {
		if ac.Category == nil {
			continue
		}
		card.Categories = append(card.Categories, CardCategory{
			ID:      ac.Category.ID,
			Name:    ac.Category.Name,
			Slug:    ac.Category.Slug,
			Section: ac.Category.Section,
		})
	}

	if len(a.MediaLinks) > 0 && a.MediaLinks[0].Media != nil {
		media := a.MediaLinks[0].Media
		url := ""
		if resolver != nil {
			url = resolver.ResolveURL(media)
		}
		card.FeaturedMedia = &CardMedia{
			MediaID:   media.ID,
			URL:       url,
			MediaType: media.MediaType,
		}
	}

	return card
}
