package registry

import (
	"html/template"
	"log"
	"time"

	"commentbox/internal/models"
	"commentbox/internal/store"
	"commentbox/internal/utils"
)

// Item is a display-ready comment: body rendered to safe HTML, author
// resolved to a name, variant grouping expressed as flags and attachments.
type Item struct {
	ID         uint
	Cid        string
	ObjectPK   string
	Title      string
	Author     string
	BodyHTML   template.HTML
	SubmitDate time.Time

	IsAnswer bool   // QA variants
	Others   []Item // stacked variants: rest of the stack under its head

	Scored      bool
	Score       int
	RatingScore int
	RatingVotes int
}

// rater is satisfied by records carrying RatingFields.
type rater interface {
	Rating() (score, ratingScore, ratingVotes int)
}

func buildItem(rec models.Record, names map[uint]string) Item {
	core := rec.Core()
	it := Item{
		ID:         core.ID,
		Cid:        core.Cid,
		ObjectPK:   core.ObjectPK,
		Title:      core.Title,
		SubmitDate: core.SubmitDate,
		BodyHTML:   utils.RenderMarkdown(core.Comment),
	}
	if core.UserID != nil {
		it.Author = names[*core.UserID]
	}
	if it.Author == "" {
		if an, ok := rec.(interface{ DisplayName() string }); ok {
			it.Author = an.DisplayName()
		}
	}
	if it.Author == "" {
		it.Author = "anonymous"
	}
	if r, ok := rec.(rater); ok {
		it.Scored = true
		it.Score, it.RatingScore, it.RatingVotes = r.Rating()
	}
	return it
}

// displayNames batch-resolves the author usernames for a record set. Name
// lookup failures degrade to the anonymous fallback rather than failing
// the whole listing.
func displayNames(recs []models.Record) map[uint]string {
	seen := make(map[uint]bool)
	var ids []uint
	for _, r := range recs {
		if uid := r.Core().UserID; uid != nil && !seen[*uid] {
			seen[*uid] = true
			ids = append(ids, *uid)
		}
	}
	users, err := store.FindUsers(ids)
	if err != nil {
		log.Printf("registry: resolving authors failed: %v", err)
		return map[uint]string{}
	}
	names := make(map[uint]string, len(users))
	for id, u := range users {
		names[id] = u.Username
	}
	return names
}

func asRecords[T any](recs []T) []models.Record {
	out := make([]models.Record, len(recs))
	for i := range recs {
		out[i] = any(&recs[i]).(models.Record)
	}
	return out
}
