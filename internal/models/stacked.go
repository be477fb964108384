package models

import (
	"time"

	"gorm.io/gorm"
)

// StackFields adds the stack date used to group one user's comments on one
// target into a single "stack". Every insert rewrites the stack date of the
// whole stack to the new comment's submit date, so stacks sort by most
// recent activity and exactly one comment per stack (the newest) satisfies
// stack_date = submit_date.
type StackFields struct {
	StackDate time.Time `gorm:"autoCreateTime;index" json:"stack_date"`
}

// IsTop reports whether this comment is the head of its stack.
func (s *StackFields) IsTopOf(submit time.Time) bool {
	return !s.StackDate.IsZero() && s.StackDate.Equal(submit)
}

// StackedComment groups a user's repeat comments on the same target. It is
// not a conversation style: you cannot reply to someone else.
type StackedComment struct {
	CommentCore
	StackFields
}

func (c *StackedComment) IsTop() bool {
	return c.IsTopOf(c.SubmitDate)
}

// AfterCreate backfills the stack date onto every prior comment in this
// comment's stack, inside the insert transaction.
func (c *StackedComment) AfterCreate(tx *gorm.DB) error {
	return backfillStack(tx, &StackedComment{}, &c.CommentCore)
}

// stackScope selects every comment in one user's stack on one target. The
// caller must have checked UserID is set.
func stackScope(core *CommentCore) (string, []any) {
	return "user_id = ? AND content_type = ? AND object_pk = ? AND site_id = ?",
		[]any{*core.UserID, core.ContentType, core.ObjectPK, core.SiteID}
}

func backfillStack(tx *gorm.DB, model any, core *CommentCore) error {
	if core.UserID == nil {
		return nil
	}
	cond, args := stackScope(core)
	return tx.Model(model).Where(cond, args...).
		Update("stack_date", core.SubmitDate).Error
}
