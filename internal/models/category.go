package models

import "time"

// Category is a taxonomy node. Categories form a tree via Parent and are
// scoped to a portal section (academics | exams | news | more | campus-pages).
type Category struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Section string `json:"section" gorm:"size:50;not null;uniqueIndex:uniq_category_node,priority:1;index:category_section_slug_idx,priority:1"`
	Name    string `json:"name" gorm:"size:100;not null"`
	Slug    string `json:"slug" gorm:"size:100;not null;uniqueIndex:uniq_category_node,priority:2;index:category_section_slug_idx,priority:2"`

	ParentID *uint `json:"parent_id" gorm:"uniqueIndex:uniq_category_node,priority:3"`

	Rank     uint `json:"rank" gorm:"default:0"` // ordering in UI
	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Parent   *Category  `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Children []Category `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

func (Category) TableName() string {
	return "categories"
}
