// Package store is the storage collaborator for comment records: saving,
// site-scoped querying and counting over the variant tables. It does not
// decide ordering or grouping semantics; variants pass those in.
package store

import (
	"commentbox/internal/config"
	"commentbox/internal/db"
	"commentbox/internal/models"

	"gorm.io/gorm"
)

// Filter selects comments for one target type and a set of primary keys.
// An empty pk set matches nothing.
type Filter struct {
	ContentType string
	ObjectPKs   []string
	ActiveOnly  bool
}

// Scope is an extra query refinement a variant can apply, e.g. restricting
// a stacked count to stack heads.
type Scope func(*gorm.DB) *gorm.DB

func scoped(model any, f Filter) *gorm.DB {
	q := db.DB.Model(model).Where("site_id = ?", config.C.SiteID).
		Where("content_type = ?", f.ContentType)
	if len(f.ObjectPKs) == 1 {
		q = q.Where("object_pk = ?", f.ObjectPKs[0])
	} else {
		q = q.Where("object_pk IN ?", f.ObjectPKs)
	}
	if f.ActiveOnly {
		q = q.Where("status = ?", models.StatusActive)
	}
	return q
}

// Save persists a new comment record. Variant insert hooks (the stacked
// backfill) run inside the same transaction.
func Save(rec models.Record) error {
	return db.DB.Create(rec).Error
}

// Query returns the matching records of one variant in the given SQL order.
func Query[T any](f Filter, order string) ([]T, error) {
	if len(f.ObjectPKs) == 0 {
		return nil, nil
	}
	var proto T
	var out []T
	err := scoped(&proto, f).Order(order).Find(&out).Error
	return out, err
}

// Count counts matching records, after applying any variant scopes.
func Count(model any, f Filter, scopes ...Scope) (int64, error) {
	if len(f.ObjectPKs) == 0 {
		return 0, nil
	}
	q := scoped(model, f)
	for _, s := range scopes {
		q = s(q)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// CountByPK counts matching records grouped by target pk, one query for a
// whole object list.
func CountByPK(model any, f Filter, scopes ...Scope) (map[string]int64, error) {
	if len(f.ObjectPKs) == 0 {
		return map[string]int64{}, nil
	}
	q := scoped(model, f)
	for _, s := range scopes {
		q = s(q)
	}

	type row struct {
		ObjectPK string
		Count    int64
	}
	var rows []row
	if err := q.Select("object_pk, COUNT(*) as count").Group("object_pk").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ObjectPK] = r.Count
	}
	return counts, nil
}

// FindByID loads one record of a variant by numeric id.
func FindByID[T any](id uint) (*T, error) {
	var rec T
	if err := db.DB.Where("id = ? AND site_id = ?", id, config.C.SiteID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByCid loads one record of a variant by its public id.
func FindByCid[T any](cid string) (*T, error) {
	var rec T
	if err := db.DB.Where("cid = ? AND site_id = ?", cid, config.C.SiteID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkDeleted flips an active record to deleted. The transition is one-way.
func MarkDeleted(model any, id uint) error {
	return db.DB.Model(model).Where("id = ?", id).
		Update("status", models.StatusDeleted).Error
}

// ApplyRating records one vote against a rated comment. The aggregate
// columns are bumped in SQL so concurrent votes never lose updates.
func ApplyRating(rec models.Record, delta int) error {
	return db.DB.Model(rec).Where("id = ?", rec.Core().ID).
		UpdateColumns(map[string]any{
			"rating_score": gorm.Expr("rating_score + ?", delta),
			"rating_votes": gorm.Expr("rating_votes + 1"),
		}).Error
}

// FindUsers resolves a set of user ids to rows, for display-name lookups.
func FindUsers(ids []uint) (map[uint]models.User, error) {
	users := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	var rows []models.User
	if err := db.DB.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}
