// Package forms parses and validates comment submissions. Validation is
// pure: it works on url.Values plus the security codec and reports problems
// as a field-keyed error map, never by touching storage.
package forms

import (
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"net/url"

	"commentbox/internal/security"
)

const (
	maxTitleLength = 255
	maxNameLength  = 50
)

const requiredMsg = "This field is required."

// Errors maps a field name to its validation messages. An empty map means
// the submission passed.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// Submission holds every field a comment form can carry. Which of the
// optional groups are validated and used is the variant's decision.
type Submission struct {
	CommentModel string
	ContentType  string
	ObjectPK     string
	Timestamp    int64
	SecurityHash string
	TemplateName string // decoded template hint, "" when absent or invalid

	Title   string
	Comment string

	// anonymous variants
	Name  string
	Email string
	URL   string

	// question/answer variants
	CommentType int
	QuestionID  *uint

	// rated variants
	Score int
}

// ParseCommon validates the hidden security fields and the base visible
// fields shared by all variants. The security digest and the timestamp
// window are checked independently so tampering and expiry surface as
// distinct field errors.
func ParseCommon(v url.Values, codec *security.Codec, maxCommentLen int, now time.Time) (*Submission, Errors) {
	errs := Errors{}
	sub := &Submission{
		CommentModel: v.Get("comment_model"),
		ContentType:  v.Get("content_type"),
		ObjectPK:     v.Get("object_pk"),
		SecurityHash: v.Get("security_hash"),
		Title:        v.Get("title"),
		Comment:      v.Get("comment"),
	}

	for field, val := range map[string]string{
		"comment_model": sub.CommentModel,
		"content_type":  sub.ContentType,
		"object_pk":     sub.ObjectPK,
		"security_hash": sub.SecurityHash,
	} {
		if val == "" {
			errs.Add(field, requiredMsg)
		}
	}

	tsRaw := v.Get("timestamp")
	if tsRaw == "" {
		errs.Add("timestamp", requiredMsg)
	} else if ts, err := strconv.ParseInt(tsRaw, 10, 64); err != nil {
		errs.Add("timestamp", "Enter a whole number.")
	} else {
		sub.Timestamp = ts
	}

	if !errs.Any() {
		switch err := codec.Verify(sub.ContentType, sub.ObjectPK, sub.Timestamp, sub.SecurityHash, now); err {
		case security.ErrTampered:
			errs.Add("security_hash", err.Error())
		case security.ErrExpired:
			errs.Add("timestamp", err.Error())
		}
	}

	if tn := v.Get("tn"); tn != "" {
		sub.TemplateName = codec.DecodeTemplateName(tn)
	}

	if sub.Comment == "" {
		errs.Add("comment", requiredMsg)
	} else if len(sub.Comment) > maxCommentLen {
		errs.Add("comment", fmt.Sprintf("Ensure this value has at most %d characters.", maxCommentLen))
	}
	if len(sub.Title) > maxTitleLength {
		errs.Add("title", fmt.Sprintf("Ensure this value has at most %d characters.", maxTitleLength))
	}

	return sub, errs
}

// ValidateAnon checks the unauthenticated-author fields.
func ValidateAnon(sub *Submission, v url.Values, errs Errors) {
	sub.Name = v.Get("name")
	sub.Email = v.Get("email")
	sub.URL = v.Get("url")

	if sub.Name == "" {
		errs.Add("name", requiredMsg)
	} else if len(sub.Name) > maxNameLength {
		errs.Add("name", fmt.Sprintf("Ensure this value has at most %d characters.", maxNameLength))
	}
	if sub.Email == "" {
		errs.Add("email", requiredMsg)
	} else if _, err := mail.ParseAddress(sub.Email); err != nil {
		errs.Add("email", "Enter a valid email address.")
	}
}

// ValidateQA checks the question/answer fields. The parent-must-be-a-
// question invariant needs a lookup and is enforced by the variant
// strategy, not here.
func ValidateQA(sub *Submission, v url.Values, errs Errors) {
	raw := v.Get("comment_type")
	if raw == "" {
		errs.Add("comment_type", requiredMsg)
		return
	}
	ct, err := strconv.Atoi(raw)
	if err != nil || (ct != 0 && ct != 1) {
		errs.Add("comment_type", "Select a valid choice.")
		return
	}
	sub.CommentType = ct

	if qid := v.Get("question_id"); qid != "" {
		n, err := strconv.ParseUint(qid, 10, 32)
		if err != nil {
			errs.Add("question_id", "Enter a whole number.")
			return
		}
		id := uint(n)
		sub.QuestionID = &id
	} else if ct == 1 {
		errs.Add("question_id", "An answer requires a question.")
	}
}

// ValidateScore checks the target rating for rated variants.
func ValidateScore(sub *Submission, v url.Values, errs Errors, ratingRange int) {
	raw := v.Get("score")
	if raw == "" {
		errs.Add("score", requiredMsg)
		return
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add("score", "Enter a whole number.")
		return
	}
	if score < 0 || score > ratingRange {
		errs.Add("score", fmt.Sprintf("Ensure this value is between 0 and %d.", ratingRange))
		return
	}
	sub.Score = score
}
