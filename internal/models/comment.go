package models

import (
	"time"
)

// Comment status values. There is no un-delete: status only ever moves
// from active to deleted.
const (
	StatusActive  = 1
	StatusDeleted = -1
)

// CommentCore carries the fields shared by every comment variant. The
// concrete variants embed it (plus the optional field groups below) so
// each variant gets its own table with the full flattened column set.
type CommentCore struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Cid    string `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	Status int    `gorm:"default:1;index" json:"status"`

	UserID    *uint  `gorm:"index" json:"user_id"` // nil for anonymous submitters
	IPAddress string `gorm:"column:ip_address;size:45" json:"ip_address"`

	SubmitDate time.Time `gorm:"autoCreateTime;index" json:"submit_date"`
	Title      string    `gorm:"size:255" json:"title"`
	Comment    string    `gorm:"type:text;not null" json:"comment"`

	SiteID uint `gorm:"not null;index" json:"site_id"`

	// Polymorphic target reference: a registered type tag plus an opaque
	// primary key string, resolved through the target registry.
	ContentType string `gorm:"size:100;not null;index" json:"content_type"`
	ObjectPK    string `gorm:"size:64;not null;index" json:"object_pk"`
}

func (c CommentCore) IsActive() bool {
	return c.Status == StatusActive
}

// AuthorID returns the submitting user's id, or 0 for anonymous comments.
func (c CommentCore) AuthorID() uint {
	if c.UserID == nil {
		return 0
	}
	return *c.UserID
}

// Core gives access to the shared fields of any variant record; embedding
// promotes it onto every concrete variant.
func (c *CommentCore) Core() *CommentCore {
	return c
}

// Record is any concrete comment variant.
type Record interface {
	Core() *CommentCore
}

// Comment is the plain variant, no frills.
type Comment struct {
	CommentCore
}
