package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrioritizedTitle(t *testing.T) {
	t.Run("english first", func(t *testing.T) {
		a := &Article{Translations: []ArticleTranslation{
			{Language: "te", Title: "Telugu"},
			{Language: "en", Title: "English"},
		}}
		assert.Equal(t, "English", a.PrioritizedTitle())
	})

	t.Run("telugu when english missing", func(t *testing.T) {
		a := &Article{Translations: []ArticleTranslation{
			{Language: "hi", Title: "Hindi"},
			{Language: "te", Title: "Telugu"},
		}}
		assert.Equal(t, "Telugu", a.PrioritizedTitle())
	})

	t.Run("first available otherwise", func(t *testing.T) {
		a := &Article{Translations: []ArticleTranslation{
			{Language: "hi", Title: "Hindi"},
			{Language: "ta", Title: "Tamil"},
		}}
		assert.Equal(t, "Hindi", a.PrioritizedTitle())
	})

	t.Run("empty without translations", func(t *testing.T) {
		a := &Article{}
		assert.Equal(t, "", a.PrioritizedTitle())
	})
}

func TestTranslationForNormalizesLang(t *testing.T) {
	a := &Article{Translations: []ArticleTranslation{{Language: "te", Title: "T"}}}
	assert.NotNil(t, a.TranslationFor(" TE "))
	assert.Nil(t, a.TranslationFor("en"))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	t.Run("nil never expires", func(t *testing.T) {
		a := &Article{}
		assert.False(t, a.IsExpired(now))
	})

	t.Run("past expiry", func(t *testing.T) {
		past := now.Add(-time.Minute)
		a := &Article{ExpiresAt: &past}
		assert.True(t, a.IsExpired(now))
	})

	t.Run("future expiry", func(t *testing.T) {
		future := now.Add(time.Minute)
		a := &Article{ExpiresAt: &future}
		assert.False(t, a.IsExpired(now))
	})
}

func TestFeatureIsLive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		feature ArticleFeature
		want    bool
	}{
		{"active no window", ArticleFeature{IsActive: true}, true},
		{"inactive", ArticleFeature{IsActive: false}, false},
		{"window open", ArticleFeature{IsActive: true, StartAt: &past, EndAt: &future}, true},
		{"before start", ArticleFeature{IsActive: true, StartAt: &future}, false},
		{"after end", ArticleFeature{IsActive: true, EndAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.feature.IsLive(now))
		})
	}
}
