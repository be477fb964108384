package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/events"
	"commentbox/internal/forms"
	"commentbox/internal/middleware"
	"commentbox/internal/registry"
	"commentbox/internal/security"
	"commentbox/internal/store"
	"commentbox/internal/utils"

	"github.com/gin-gonic/gin"
)

// CommentHandler serves the comment endpoints: form issuing, the AJAX
// submission boundary, list/count fragments, delete and rating.
type CommentHandler struct {
	codec    *security.Codec
	partials *template.Template
	cache    *utils.GlobalCache
}

func NewCommentHandler() *CommentHandler {
	return &CommentHandler{
		codec:    security.NewCodec(config.C.SecretKey, config.C.CommentTimeout),
		partials: template.Must(template.ParseGlob("./web/templates/comments/*.html")),
		cache:    utils.GetCache(),
	}
}

// Codec exposes the handler's security codec so page handlers can issue
// hidden fields when embedding a form.
func (h *CommentHandler) Codec() *security.Codec {
	return h.codec
}

// PostComment accepts an AJAX comment submission. The response is always a
// JSON envelope: rc=success with the new comment id, rc=failure with a
// re-rendered form and a field error map, or rc=error with a message.
func (h *CommentHandler) PostComment(c *gin.Context) {
	modelName := c.PostForm("comment_model")
	if modelName == "" {
		c.String(http.StatusBadRequest, "Could not identify comment_model field")
		return
	}
	variant, err := registry.Lookup(modelName)
	if err != nil {
		c.String(http.StatusBadRequest, "Could not find comment model: %s", modelName)
		return
	}

	contentType := c.PostForm("content_type")
	objectPK := c.PostForm("object_pk")
	if contentType == "" || objectPK == "" {
		c.String(http.StatusBadRequest, "Could not identify content_type and/or object_pk field")
		return
	}
	target, err := registry.ResolveTarget(contentType, objectPK)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownTargetType) {
			c.String(http.StatusBadRequest, "Could not find content type: %s", contentType)
			return
		}
		c.String(http.StatusNotFound, "Could not find target object %s/%s", contentType, objectPK)
		return
	}

	user := middleware.CurrentUser(c)
	if variant.RequiresAuth && user == nil {
		c.JSON(http.StatusForbidden, gin.H{"rc": "error", "errormsg": "You must be logged in to comment."})
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "Malformed form data")
		return
	}
	v := c.Request.PostForm

	sub, errs := forms.ParseCommon(v, h.codec, config.C.CommentMaxLength, time.Now())
	if variant.Validate != nil {
		variant.Validate(sub, v, errs)
	}

	if errs.Any() {
		content, rerr := h.renderForm(variant, contentType, target, sub.TemplateName, formValues(v), errs)
		if rerr != nil {
			log.Printf("comments: re-rendering form failed: %v", rerr)
			c.JSON(http.StatusInternalServerError, gin.H{"rc": "error", "errormsg": "Could not render form."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rc": "failure", "content": content, "errors": errs})
		return
	}

	rec := variant.Build(sub)
	core := rec.Core()
	core.Cid = utils.RandString(8)
	core.SiteID = config.C.SiteID
	core.IPAddress = c.ClientIP()
	if user != nil {
		core.UserID = &user.ID
	}

	if err := store.Save(rec); err != nil {
		log.Printf("comments: saving %s failed: %v", variant.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"rc": "error", "errormsg": "Could not save comment."})
		return
	}

	h.invalidate(variant.Name, contentType, objectPK)

	saved := events.CommentSaved{
		Variant:     variant.Name,
		CommentID:   core.ID,
		Cid:         core.Cid,
		ContentType: contentType,
		ObjectPK:    objectPK,
		UserName:    sub.Name,
		IPAddress:   core.IPAddress,
		SubmitDate:  core.SubmitDate,
	}
	if user != nil {
		saved.UserID = user.ID
		saved.UserName = user.Username
	}
	events.Publish(saved)

	c.JSON(http.StatusOK, gin.H{"rc": "success", "cid": core.ID})
}

// ShowForm renders a fresh submission form fragment for a target.
func (h *CommentHandler) ShowForm(c *gin.Context) {
	variant, err := registry.Lookup(c.DefaultQuery("model", "comment"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown comment model")
		return
	}
	contentType := c.Query("content_type")
	target, err := registry.ResolveTarget(contentType, c.Query("object_pk"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown target")
		return
	}

	content, err := h.renderForm(variant, contentType, target, c.Query("tn"), nil, nil)
	if err != nil {
		log.Printf("comments: rendering form failed: %v", err)
		c.String(http.StatusInternalServerError, "Could not render form")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(content))
}

// List returns the comments for one target, optionally threaded, as an
// HTML fragment or JSON.
func (h *CommentHandler) List(c *gin.Context) {
	variant, err := registry.Lookup(c.DefaultQuery("model", "comment"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown comment model")
		return
	}
	contentType := c.Query("content_type")
	objectPK := c.Query("object_pk")
	threaded := c.Query("threaded") == "1"
	order := c.Query("order")

	key := listKey(variant.Name, contentType, objectPK, threaded, order)
	items, ok := h.cache.Get(key).([]registry.Item)
	if !ok {
		items, err = variant.List(store.Filter{
			ContentType: contentType,
			ObjectPKs:   []string{objectPK},
			ActiveOnly:  true,
		}, order, threaded)
		if err != nil {
			log.Printf("comments: listing %s failed: %v", variant.Name, err)
			c.String(http.StatusInternalServerError, "Could not list comments")
			return
		}
		h.cache.Set(key, items, time.Minute)
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"comments": items})
		return
	}

	var buf bytes.Buffer
	if err := h.partials.ExecuteTemplate(&buf, "list.html", gin.H{"Items": items}); err != nil {
		log.Printf("comments: rendering list failed: %v", err)
		c.String(http.StatusInternalServerError, "Could not render comments")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Lists returns the comments for a pk set, grouped by target pk.
func (h *CommentHandler) Lists(c *gin.Context) {
	variant, err := registry.Lookup(c.DefaultQuery("model", "comment"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown comment model")
		return
	}
	pks := splitPKs(c.Query("object_pks"))

	items, err := variant.List(store.Filter{
		ContentType: c.Query("content_type"),
		ObjectPKs:   pks,
		ActiveOnly:  true,
	}, c.Query("order"), c.Query("threaded") == "1")
	if err != nil {
		log.Printf("comments: listing %s failed: %v", variant.Name, err)
		c.String(http.StatusInternalServerError, "Could not list comments")
		return
	}

	grouped := make(map[string][]registry.Item, len(pks))
	for _, it := range items {
		grouped[it.ObjectPK] = append(grouped[it.ObjectPK], it)
	}
	c.JSON(http.StatusOK, gin.H{"comments": grouped})
}

// Count returns the comment count for a single target.
func (h *CommentHandler) Count(c *gin.Context) {
	variant, err := registry.Lookup(c.DefaultQuery("model", "comment"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown comment model")
		return
	}
	contentType := c.Query("content_type")
	objectPK := c.Query("object_pk")

	key := countKey(variant.Name, contentType, objectPK)
	n, ok := h.cache.Get(key).(int64)
	if !ok {
		var err error
		n, err = variant.Count(store.Filter{
			ContentType: contentType,
			ObjectPKs:   []string{objectPK},
			ActiveOnly:  true,
		})
		if err != nil {
			log.Printf("comments: counting %s failed: %v", variant.Name, err)
			c.String(http.StatusInternalServerError, "Could not count comments")
			return
		}
		h.cache.Set(key, n, time.Minute)
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Counts returns per-pk comment counts for an object list in one query.
func (h *CommentHandler) Counts(c *gin.Context) {
	variant, err := registry.Lookup(c.DefaultQuery("model", "comment"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown comment model")
		return
	}
	contentType := c.Query("content_type")
	pks := splitPKs(c.Query("object_pks"))

	// Serve from the per-pk count cache when every pk is present; any miss
	// falls back to the one grouped query and re-primes the cache.
	counts := make(map[string]int64, len(pks))
	hit := true
	for _, pk := range pks {
		n, ok := h.cache.Get(countKey(variant.Name, contentType, pk)).(int64)
		if !ok {
			hit = false
			break
		}
		counts[pk] = n
	}
	if !hit {
		var err error
		counts, err = variant.CountByPK(store.Filter{
			ContentType: contentType,
			ObjectPKs:   pks,
			ActiveOnly:  true,
		})
		if err != nil {
			log.Printf("comments: counting %s failed: %v", variant.Name, err)
			c.String(http.StatusInternalServerError, "Could not count comments")
			return
		}
		for _, pk := range pks {
			h.cache.Set(countKey(variant.Name, contentType, pk), counts[pk], time.Minute)
		}
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// Delete soft-deletes the caller's own comment; the record stays but its
// status flips to deleted and it drops out of active listings.
func (h *CommentHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Status(http.StatusForbidden)
		return
	}

	variant, err := registry.Lookup(c.Param("model"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	rec, err := variant.ByCid(c.Param("cid"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	core := rec.Core()
	if core.AuthorID() != user.ID {
		c.Status(http.StatusForbidden)
		return
	}

	if err := store.MarkDeleted(rec, core.ID); err != nil {
		log.Printf("comments: deleting %s/%s failed: %v", variant.Name, core.Cid, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	h.invalidate(variant.Name, core.ContentType, core.ObjectPK)
	c.Status(http.StatusOK)
}

// Rate applies an up or down vote to a rated comment.
func (h *CommentHandler) Rate(c *gin.Context) {
	variant, err := registry.Lookup(c.Param("model"))
	if err != nil || !variant.Scored {
		c.Status(http.StatusBadRequest)
		return
	}
	rec, err := variant.ByCid(c.Param("cid"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	delta := 1
	if c.PostForm("direction") == "down" {
		delta = -1
	}
	if err := store.ApplyRating(rec, delta); err != nil {
		log.Printf("comments: rating %s/%s failed: %v", variant.Name, c.Param("cid"), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	h.invalidate(variant.Name, rec.Core().ContentType, rec.Core().ObjectPK)
	c.Status(http.StatusOK)
}

// renderForm executes the best matching form partial with fresh security
// fields. values/errs may be nil for a pristine form.
func (h *CommentHandler) renderForm(variant *registry.Variant, contentType string, target registry.Target, tn string, values map[string]string, errs forms.Errors) (string, error) {
	fields := h.codec.Issue(contentType, target.TargetPK(), time.Now())

	encodedTN := ""
	if tn != "" {
		encodedTN = h.codec.EncodeTemplateName(tn)
	}
	if values == nil {
		values = map[string]string{}
	}

	data := gin.H{
		"Variant":      variant,
		"ModelName":    variant.Name,
		"ContentType":  contentType,
		"ObjectPK":     target.TargetPK(),
		"Timestamp":    fields.Timestamp,
		"SecurityHash": fields.Hash,
		"TN":           encodedTN,
		"Values":       values,
		"Errors":       errs,
		"RatingRange":  config.C.RatingRange,
		"Target":       target,
	}

	var buf bytes.Buffer
	if err := h.partials.ExecuteTemplate(&buf, h.formTemplate(variant, tn), data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formTemplate picks the most specific available form partial, narrowing
// from "<variant>_<hint>" down to the shared form.html.
func (h *CommentHandler) formTemplate(variant *registry.Variant, tn string) string {
	short := strings.TrimPrefix(variant.Name, "comments.")
	var candidates []string
	if tn != "" && tn != "form.html" {
		candidates = append(candidates, short+"_"+tn, tn)
	}
	candidates = append(candidates, short+"_form.html", "form.html")
	for _, name := range candidates {
		if h.partials.Lookup(name) != nil {
			return name
		}
	}
	return "form.html"
}

func (h *CommentHandler) invalidate(variant, contentType, objectPK string) {
	for _, threaded := range []bool{false, true} {
		for _, order := range []string{"", "asc", "desc"} {
			h.cache.Delete(listKey(variant, contentType, objectPK, threaded, order))
		}
	}
	h.cache.Delete(countKey(variant, contentType, objectPK))
}

func listKey(variant, contentType, objectPK string, threaded bool, order string) string {
	return fmt.Sprintf("comments:list:%s:%s:%s:%t:%s", variant, contentType, objectPK, threaded, order)
}

func countKey(variant, contentType, objectPK string) string {
	return fmt.Sprintf("comments:count:%s:%s:%s", variant, contentType, objectPK)
}

func formValues(v url.Values) map[string]string {
	fields := []string{"title", "comment", "name", "email", "url", "comment_type", "question_id", "score"}
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f] = v.Get(f)
	}
	return values
}

func splitPKs(raw string) []string {
	var pks []string
	for _, pk := range strings.Split(raw, ",") {
		if pk = strings.TrimSpace(pk); pk != "" {
			pks = append(pks, pk)
		}
	}
	return pks
}
