// Package thread regroups flat, pre-sorted comment sequences into the
// display order for each variant. Nothing here touches storage; the input
// ordering contracts are the query layer's responsibility.
package thread

import (
	"iter"
	"slices"

	"commentbox/internal/models"
)

// Default is the fallback for variants without custom grouping: the input
// comes back unchanged.
func Default[T any](in []T) []T {
	return in
}

// QA threads a question/answer list sorted ascending by submit date. Every
// question keeps its relative order and is followed immediately by its
// answers in their original order. Answers whose question is not present in
// the input are dropped silently; they have nothing to attach to.
func QA(in []models.QAComment) []models.QAComment {
	if len(in) == 0 {
		return in
	}

	questions := make([]models.QAComment, 0, len(in))
	answers := make(map[uint][]models.QAComment)
	for _, c := range in {
		if c.IsQuestion() {
			questions = append(questions, c)
		} else if c.QuestionID != nil {
			answers[*c.QuestionID] = append(answers[*c.QuestionID], c)
		}
	}

	out := make([]models.QAComment, 0, len(in))
	for _, q := range questions {
		out = append(out, q)
		out = append(out, answers[q.ID]...)
	}
	return out
}

// Stack is one group produced by Stacked: the head comment plus the rest of
// the same author's run.
type Stack[T Stackable] struct {
	Top    T
	Others []T
}

// Stackable is what stacked threading needs from a record: the comment
// author's identity.
type Stackable interface {
	AuthorID() uint
}

// Stacked groups a stacked-comment sequence into stacks with a single
// left-to-right scan. A new stack starts whenever the author changes, so
// the input must be sorted with each author's stack contiguous (stack_date
// desc, user, submit_date desc); if the caller violates that, stacks split.
// The result is lazy: groups are produced as the input is consumed.
func Stacked[T Stackable](in iter.Seq[T]) iter.Seq[Stack[T]] {
	return func(yield func(Stack[T]) bool) {
		var cur Stack[T]
		open := false
		for c := range in {
			if !open {
				cur = Stack[T]{Top: c}
				open = true
				continue
			}
			if c.AuthorID() != cur.Top.AuthorID() {
				if !yield(cur) {
					return
				}
				cur = Stack[T]{Top: c}
				continue
			}
			cur.Others = append(cur.Others, c)
		}
		if open {
			yield(cur)
		}
	}
}

// StackedSlice is the materialized form of Stacked for callers that already
// hold the full result set.
func StackedSlice[T Stackable](in []T) []Stack[T] {
	out := make([]Stack[T], 0)
	for s := range Stacked(slices.Values(in)) {
		out = append(out, s)
	}
	return out
}
