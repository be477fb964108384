package models

import (
	"time"
)

// Site is the tenant a comment belongs to. Every query is scoped to the
// site configured at startup.
type Site struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}
