package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaAsset is an uploaded file reference. Only the storage key is
// persisted; retrieval URLs are resolved per-request by the media resolver.
type MediaAsset struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	StorageKey uuid.UUID `json:"storage_key" gorm:"type:uuid;uniqueIndex;not null"`
	Title      string    `json:"title" gorm:"size:255"`
	MediaType  string    `json:"media_type" gorm:"size:20"` // image | video | document
	MimeType   string    `json:"mime_type" gorm:"size:100"`
	SizeBytes  int64     `json:"size_bytes" gorm:"default:0"`

	UploadedBy string `json:"uploaded_by" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (MediaAsset) TableName() string {
	return "media_assets"
}

// NewMediaAsset assigns a fresh storage key for an upload.
func NewMediaAsset(title, mediaType, mimeType string, size int64, uploadedBy string) *MediaAsset {
	return &MediaAsset{
		StorageKey: uuid.New(),
		Title:      title,
		MediaType:  mediaType,
		MimeType:   mimeType,
		SizeBytes:  size,
		UploadedBy: uploadedBy,
	}
}
