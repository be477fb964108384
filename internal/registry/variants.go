package registry

import (
	"net/url"

	"commentbox/internal/config"
	"commentbox/internal/forms"
	"commentbox/internal/models"
	"commentbox/internal/store"
	"commentbox/internal/thread"

	"gorm.io/gorm"
)

// SQL orderings. Flat variants list newest first by default; QA threads
// oldest first so questions precede their answers; stacked orders so each
// author's stack is contiguous and most-recently-active stacks come first.
const (
	orderNewest  = "submit_date DESC"
	orderOldest  = "submit_date ASC"
	orderStacked = "stack_date DESC, user_id ASC, submit_date DESC"
)

// Init registers the built-in comment variants. Call once at startup,
// after config and db are ready.
func Init() {
	plainOps := flatOps[models.Comment]()
	register(&Variant{
		Name:         "comments.comment",
		RequiresAuth: true,
		Model:        func() models.Record { return &models.Comment{} },
		Build: func(sub *forms.Submission) models.Record {
			c := &models.Comment{}
			fillCore(&c.CommentCore, sub)
			return c
		},
		List:      plainOps.list,
		Count:     plainOps.count,
		CountByPK: plainOps.countByPK,
		ByCid:     plainOps.byCid,
	})

	anonOps := flatOps[models.AnonComment]()
	register(&Variant{
		Name:      "comments.anoncomment",
		Anonymous: true,
		Model:     func() models.Record { return &models.AnonComment{} },
		Validate:  forms.ValidateAnon,
		Build: func(sub *forms.Submission) models.Record {
			c := &models.AnonComment{}
			fillCore(&c.CommentCore, sub)
			c.UserName = sub.Name
			c.UserEmail = sub.Email
			c.UserURL = sub.URL
			return c
		},
		List:      anonOps.list,
		Count:     anonOps.count,
		CountByPK: anonOps.countByPK,
		ByCid:     anonOps.byCid,
	})

	register(&Variant{
		Name:         "comments.qacomment",
		RequiresAuth: true,
		QA:           true,
		Model:        func() models.Record { return &models.QAComment{} },
		Validate:     validateQA,
		Build: func(sub *forms.Submission) models.Record {
			c := &models.QAComment{}
			fillCore(&c.CommentCore, sub)
			c.CommentType = sub.CommentType
			if c.CommentType == models.CommentTypeAnswer {
				c.QuestionID = sub.QuestionID
			}
			return c
		},
		List:      listQA,
		Count:     countOf(&models.QAComment{}),
		CountByPK: countByPKOf(&models.QAComment{}),
		ByCid:     byCidOf[models.QAComment](),
	})

	register(&Variant{
		Name:         "comments.stackedcomment",
		RequiresAuth: true,
		Model:        func() models.Record { return &models.StackedComment{} },
		Build: func(sub *forms.Submission) models.Record {
			c := &models.StackedComment{}
			fillCore(&c.CommentCore, sub)
			return c
		},
		List:      listStacked[models.StackedComment],
		Count:     countOf(&models.StackedComment{}, topsOnly),
		CountByPK: countByPKOf(&models.StackedComment{}, topsOnly),
		ByCid:     byCidOf[models.StackedComment](),
	})

	register(&Variant{
		Name:         "comments.ratingcomment",
		RequiresAuth: true,
		Scored:       true,
		Model:        func() models.Record { return &models.RatingComment{} },
		Validate:     validateScore,
		Build: func(sub *forms.Submission) models.Record {
			c := &models.RatingComment{}
			fillCore(&c.CommentCore, sub)
			c.Score = sub.Score
			return c
		},
		List:      flatOps[models.RatingComment]().list,
		Count:     countOf(&models.RatingComment{}),
		CountByPK: countByPKOf(&models.RatingComment{}),
		ByCid:     byCidOf[models.RatingComment](),
	})

	register(&Variant{
		Name:         "comments.stackedratingcomment",
		RequiresAuth: true,
		Scored:       true,
		Model:        func() models.Record { return &models.StackedRatingComment{} },
		Validate:     validateScore,
		Build: func(sub *forms.Submission) models.Record {
			c := &models.StackedRatingComment{}
			fillCore(&c.CommentCore, sub)
			c.Score = sub.Score
			return c
		},
		List:      listStacked[models.StackedRatingComment],
		Count:     countOf(&models.StackedRatingComment{}, topsOnly),
		CountByPK: countByPKOf(&models.StackedRatingComment{}, topsOnly),
		ByCid:     byCidOf[models.StackedRatingComment](),
	})
}

func fillCore(core *models.CommentCore, sub *forms.Submission) {
	core.ContentType = sub.ContentType
	core.ObjectPK = sub.ObjectPK
	core.Title = sub.Title
	core.Comment = sub.Comment
}

// topsOnly restricts stacked queries to stack heads; the comment count of
// a stacked target is the number of stacks, not of rows.
func topsOnly(q *gorm.DB) *gorm.DB {
	return q.Where("stack_date = submit_date")
}

func flatOrder(order string) string {
	if order == "asc" {
		return orderOldest
	}
	return orderNewest
}

type ops struct {
	list      func(f store.Filter, order string, threaded bool) ([]Item, error)
	count     func(f store.Filter) (int64, error)
	countByPK func(f store.Filter) (map[string]int64, error)
	byCid     func(cid string) (models.Record, error)
}

// flatOps builds the untreaded list/count behaviour shared by the plain,
// anonymous and rated variants. Threading is the identity transform for
// them, so the threaded flag changes nothing.
func flatOps[T any]() ops {
	var proto T
	return ops{
		list: func(f store.Filter, order string, _ bool) ([]Item, error) {
			recs, err := store.Query[T](f, flatOrder(order))
			if err != nil {
				return nil, err
			}
			recs = thread.Default(recs)
			return mapItems(asRecords(recs)), nil
		},
		count:     countOf(&proto),
		countByPK: countByPKOf(&proto),
		byCid:     byCidOf[T](),
	}
}

func validateScore(sub *forms.Submission, v url.Values, errs forms.Errors) {
	forms.ValidateScore(sub, v, errs, config.C.RatingRange)
}

func countOf(proto any, scopes ...store.Scope) func(store.Filter) (int64, error) {
	return func(f store.Filter) (int64, error) {
		return store.Count(proto, f, scopes...)
	}
}

func countByPKOf(proto any, scopes ...store.Scope) func(store.Filter) (map[string]int64, error) {
	return func(f store.Filter) (map[string]int64, error) {
		return store.CountByPK(proto, f, scopes...)
	}
}

func byCidOf[T any]() func(cid string) (models.Record, error) {
	return func(cid string) (models.Record, error) {
		rec, err := store.FindByCid[T](cid)
		if err != nil {
			return nil, err
		}
		return any(rec).(models.Record), nil
	}
}

func mapItems(recs []models.Record) []Item {
	names := displayNames(recs)
	items := make([]Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, buildItem(r, names))
	}
	return items
}

// validateQA layers the parent-question invariant on top of the pure field
// checks: an answer must reference an existing, question-typed record.
func validateQA(sub *forms.Submission, v url.Values, errs forms.Errors) {
	forms.ValidateQA(sub, v, errs)
	if len(errs["comment_type"]) > 0 || len(errs["question_id"]) > 0 {
		return
	}
	if sub.CommentType != models.CommentTypeAnswer || sub.QuestionID == nil {
		return
	}
	q, err := store.FindByID[models.QAComment](*sub.QuestionID)
	if err != nil {
		errs.Add("question_id", "Question not found.")
		return
	}
	if !q.IsQuestion() {
		errs.Add("question_id", "Answers can only attach to questions.")
	}
}

func listQA(f store.Filter, order string, threaded bool) ([]Item, error) {
	sqlOrder := orderOldest
	if !threaded && order == "desc" {
		sqlOrder = orderNewest
	}
	recs, err := store.Query[models.QAComment](f, sqlOrder)
	if err != nil {
		return nil, err
	}
	if threaded {
		recs = thread.QA(recs)
	}
	names := displayNames(asRecords(recs))
	items := make([]Item, 0, len(recs))
	for i := range recs {
		it := buildItem(&recs[i], names)
		it.IsAnswer = recs[i].IsAnswer()
		items = append(items, it)
	}
	return items, nil
}

// listStacked serves both stacked variants; T must carry StackFields and
// embed CommentCore.
func listStacked[T thread.Stackable](f store.Filter, _ string, threaded bool) ([]Item, error) {
	recs, err := store.Query[T](f, orderStacked)
	if err != nil {
		return nil, err
	}
	if !threaded {
		return mapItems(asRecords(recs)), nil
	}

	names := displayNames(asRecords(recs))
	stacks := thread.StackedSlice(recs)
	items := make([]Item, 0, len(stacks))
	for _, s := range stacks {
		head := buildItem(any(&s.Top).(models.Record), names)
		for _, o := range s.Others {
			head.Others = append(head.Others, buildItem(any(&o).(models.Record), names))
		}
		items = append(items, head)
	}
	return items, nil
}
