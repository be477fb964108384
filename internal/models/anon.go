package models

// AnonFields are the extra columns for variants that accept comments from
// visitors without an account.
type AnonFields struct {
	UserName  string `gorm:"size:50" json:"user_name"`
	UserEmail string `gorm:"size:254" json:"user_email"`
	UserURL   string `gorm:"size:255" json:"user_url"`
}

// AnonComment is the anonymous variant: same as Comment plus the
// unauthenticated-author fields.
type AnonComment struct {
	CommentCore
	AnonFields
}

// DisplayName prefers the account username (resolved by the caller) and
// falls back to the anonymous name.
func (a *AnonFields) DisplayName() string {
	return a.UserName
}
