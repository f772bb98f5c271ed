package models

import (
	"time"
)

type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	Score    int    `gorm:"default:0" json:"score"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	// CreatedAt is also the feed cursor, so it carries an index.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
