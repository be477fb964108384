package models

import (
	"testing"
	"time"
)

func stackedAt(id uint, userID uint, submit time.Time) StackedComment {
	c := StackedComment{}
	c.ID = id
	c.UserID = &userID
	c.ContentType = "pages.page"
	c.ObjectPK = "42"
	c.SiteID = 1
	c.SubmitDate = submit
	c.StackDate = submit
	return c
}

// applyBackfill mirrors what the insert hook's UPDATE does to the rows
// matched by stackScope: every stack member gets the new comment's submit
// date as its stack date.
func applyBackfill(stack []StackedComment, newest *StackedComment) {
	for i := range stack {
		if stack[i].AuthorID() != newest.AuthorID() ||
			stack[i].ContentType != newest.ContentType ||
			stack[i].ObjectPK != newest.ObjectPK ||
			stack[i].SiteID != newest.SiteID {
			continue
		}
		stack[i].StackDate = newest.SubmitDate
	}
}

func TestStackScope(t *testing.T) {
	uid := uint(7)
	core := CommentCore{UserID: &uid, ContentType: "pages.page", ObjectPK: "42", SiteID: 3}

	cond, args := stackScope(&core)
	if cond != "user_id = ? AND content_type = ? AND object_pk = ? AND site_id = ?" {
		t.Errorf("cond = %q", cond)
	}
	want := []any{uint(7), "pages.page", "42", uint(3)}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestBackfillUnifiesStackDate(t *testing.T) {
	t0 := time.Unix(1000, 0)
	stack := []StackedComment{stackedAt(1, 7, t0)}

	// Insert two more comments into the same stack, backfilling after each,
	// the way the insert hook does.
	for i, dt := range []time.Duration{time.Minute, time.Hour} {
		next := stackedAt(uint(i)+2, 7, t0.Add(dt))
		stack = append(stack, next)
		applyBackfill(stack, &stack[len(stack)-1])
	}

	newest := t0.Add(time.Hour)
	tops := 0
	for _, c := range stack {
		if !c.StackDate.Equal(newest) {
			t.Errorf("comment %d stack date = %v, want %v", c.ID, c.StackDate, newest)
		}
		if c.IsTop() {
			tops++
			if c.ID != 3 {
				t.Errorf("comment %d is head, want the newest (3)", c.ID)
			}
		}
	}
	if tops != 1 {
		t.Errorf("%d heads, want exactly 1", tops)
	}
}

func TestBackfillScopedToStack(t *testing.T) {
	t0 := time.Unix(1000, 0)
	otherUser := stackedAt(10, 8, t0)
	otherTarget := stackedAt(11, 7, t0)
	otherTarget.ObjectPK = "99"

	stack := []StackedComment{stackedAt(1, 7, t0), otherUser, otherTarget}
	next := stackedAt(2, 7, t0.Add(time.Minute))
	stack = append(stack, next)
	applyBackfill(stack, &stack[len(stack)-1])

	for _, c := range stack {
		if c.ID == 10 || c.ID == 11 {
			if !c.StackDate.Equal(t0) {
				t.Errorf("comment %d outside the stack was backfilled", c.ID)
			}
		}
	}
}

func TestBackfillSkipsAnonymous(t *testing.T) {
	core := &CommentCore{ContentType: "pages.page", ObjectPK: "42", SiteID: 1}
	// nil tx: the anonymous guard must return before touching it.
	if err := backfillStack(nil, &StackedComment{}, core); err != nil {
		t.Errorf("backfillStack(anonymous) = %v, want nil", err)
	}
}
