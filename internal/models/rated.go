package models

import (
	"gorm.io/gorm"
)

// RatingFields adds two independent ratings: Score is the rating the
// commenter gives the target object (bounded 0..config RatingRange), while
// RatingScore/RatingVotes track up/down votes other users cast on the
// comment itself.
type RatingFields struct {
	Score       int `gorm:"not null" json:"score"`
	RatingScore int `gorm:"default:0" json:"rating_score"`
	RatingVotes int `gorm:"default:0" json:"rating_votes"`
}

// Rating exposes the score trio for display.
func (r *RatingFields) Rating() (score, ratingScore, ratingVotes int) {
	return r.Score, r.RatingScore, r.RatingVotes
}

// RatingComment lets a user rate the object in addition to commenting on it.
type RatingComment struct {
	CommentCore
	RatingFields
}

// StackedRatingComment composes the stacked and rated behaviours.
type StackedRatingComment struct {
	CommentCore
	StackFields
	RatingFields
}

func (c *StackedRatingComment) IsTop() bool {
	return c.IsTopOf(c.SubmitDate)
}

func (c *StackedRatingComment) AfterCreate(tx *gorm.DB) error {
	return backfillStack(tx, &StackedRatingComment{}, &c.CommentCore)
}
