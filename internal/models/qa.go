package models

// Question/answer comment types.
const (
	CommentTypeQuestion = 0
	CommentTypeAnswer   = 1
)

// QAComment is a question/answer comment. It is not deeply threaded: an
// answer points at its question and nothing else, so there is never an
// answer to an answer.
type QAComment struct {
	CommentCore
	AnonFields
	CommentType int   `gorm:"default:0;index" json:"comment_type"`
	QuestionID  *uint `gorm:"index" json:"question_id"` // set only on answers
}

func (c *QAComment) IsQuestion() bool {
	return c.CommentType == CommentTypeQuestion
}

func (c *QAComment) IsAnswer() bool {
	return c.CommentType == CommentTypeAnswer
}
