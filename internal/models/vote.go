package models

import (
	"time"
)

// Vote is one ledger row per (user, post). The composite primary key enforces
// the one-vote-per-user-per-post invariant; absence of a row means "no vote".
type Vote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
