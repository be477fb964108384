package models

import (
	"time"
)

// Page is the bundled commentable entity. Any other persisted type can
// receive comments by registering a loader for its type tag; Page is the
// one this server ships with.
type Page struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Pid       string    `gorm:"uniqueIndex;size:8;not null" json:"pid"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Filled at query time, not a column.
	CommentCount int64 `gorm:"-" json:"comment_count"`
}
