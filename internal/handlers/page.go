package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/db"
	"commentbox/internal/forms"
	"commentbox/internal/middleware"
	"commentbox/internal/models"
	"commentbox/internal/registry"
	"commentbox/internal/store"
	"commentbox/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const pageTypeTag = "pages.page"

// pageTarget adapts a Page row to the commentable-object interface.
type pageTarget struct {
	page models.Page
}

func (t pageTarget) TargetPK() string    { return fmt.Sprintf("%d", t.page.ID) }
func (t pageTarget) TargetLabel() string { return t.page.Title }
func (t pageTarget) TargetURL() string   { return "/pages/" + t.page.Pid }
func (t pageTarget) TargetOwner() uint   { return t.page.UserID }

// RegisterPageTarget wires the bundled Page type into the target resolver.
func RegisterPageTarget() {
	registry.RegisterTarget(pageTypeTag, func(pk string) (registry.Target, error) {
		id := utils.StringToUint(pk)
		if id == 0 {
			return nil, fmt.Errorf("%w: bad pk %q", registry.ErrTargetNotFound, pk)
		}
		var page models.Page
		if err := db.DB.First(&page, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s/%s", registry.ErrTargetNotFound, pageTypeTag, pk)
			}
			return nil, err
		}
		return pageTarget{page: page}, nil
	})
}

type PageHandler struct {
	comments *CommentHandler
}

func NewPageHandler(comments *CommentHandler) *PageHandler {
	return &PageHandler{comments: comments}
}

// List shows all pages, newest first, each with its comment count.
func (h *PageHandler) List(c *gin.Context) {
	var pages []models.Page
	if err := db.DB.Preload("User").Order("created_at DESC").Limit(50).Find(&pages).Error; err != nil {
		log.Printf("pages: listing failed: %v", err)
		RenderError(c, http.StatusInternalServerError, "Could not load pages")
		return
	}
	h.fillCommentCounts(pages)

	Render(c, http.StatusOK, "page_list.html", gin.H{
		"Pages": pages,
	})
}

// fillCommentCounts resolves the per-page comment counts in one grouped
// query instead of a query per row.
func (h *PageHandler) fillCommentCounts(pages []models.Page) {
	if len(pages) == 0 {
		return
	}
	variant, err := registry.Lookup("comment")
	if err != nil {
		return
	}
	pks := make([]string, len(pages))
	for i, p := range pages {
		pks[i] = fmt.Sprintf("%d", p.ID)
	}
	counts, err := variant.CountByPK(store.Filter{
		ContentType: pageTypeTag,
		ObjectPKs:   pks,
		ActiveOnly:  true,
	})
	if err != nil {
		log.Printf("pages: counting comments failed: %v", err)
		return
	}
	for i := range pages {
		pages[i].CommentCount = counts[pks[i]]
	}
}

// Detail shows one page with its comments and a submission form. The
// comment shape is switchable per request so one page can host plain,
// question/answer or rated discussions.
func (h *PageHandler) Detail(c *gin.Context) {
	var page models.Page
	if err := db.DB.Preload("User").Where("pid = ?", c.Param("pid")).First(&page).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Page not found")
		return
	}

	variant, err := registry.Lookup(c.DefaultQuery("model", "comment"))
	if err != nil {
		RenderError(c, http.StatusBadRequest, "Unknown comment model")
		return
	}

	target := pageTarget{page: page}
	threaded := variant.QA || c.Query("threaded") == "1"
	items, err := variant.List(store.Filter{
		ContentType: pageTypeTag,
		ObjectPKs:   []string{target.TargetPK()},
		ActiveOnly:  true,
	}, c.Query("order"), threaded)
	if err != nil {
		log.Printf("pages: listing comments for %s failed: %v", page.Pid, err)
		RenderError(c, http.StatusInternalServerError, "Could not load comments")
		return
	}

	fields := h.comments.Codec().Issue(pageTypeTag, target.TargetPK(), time.Now())

	Render(c, http.StatusOK, "page_detail.html", gin.H{
		"Page":         page,
		"PageHTML":     utils.RenderMarkdown(page.Content),
		"Items":        items,
		"Variant":      variant,
		"ModelName":    variant.Name,
		"ContentType":  pageTypeTag,
		"ObjectPK":     target.TargetPK(),
		"Timestamp":    fields.Timestamp,
		"SecurityHash": fields.Hash,
		"TN":           "",
		"Values":       map[string]string{},
		"Errors":       forms.Errors{},
		"RatingRange":  config.C.RatingRange,
	})
}

// ShowCreate renders the new-page form.
func (h *PageHandler) ShowCreate(c *gin.Context) {
	Render(c, http.StatusOK, "page_form.html", nil)
}

// Create persists a new page owned by the current user.
func (h *PageHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	title := c.PostForm("title")
	content := c.PostForm("content")
	if title == "" || content == "" {
		Render(c, http.StatusOK, "page_form.html", gin.H{
			"Error":   "Title and content are required",
			"Title":   title,
			"Content": content,
		})
		return
	}

	page := models.Page{
		Pid:     utils.RandString(8),
		UserID:  user.ID,
		Title:   title,
		Content: content,
	}
	if err := db.DB.Create(&page).Error; err != nil {
		log.Printf("pages: creating failed: %v", err)
		RenderError(c, http.StatusInternalServerError, "Could not create page")
		return
	}
	c.Redirect(http.StatusFound, "/pages/"+page.Pid)
}
