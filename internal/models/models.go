// Package models contains all data models for the newsdesk application
package models

import (
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&Category{},
		&MediaAsset{},
		&Article{},
		&ArticleTranslation{},
		&ArticleCategory{},
		&ArticleMedia{},
		&ArticleFeature{},
		&ArticleRevision{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
