package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/registry"
	"commentbox/internal/security"
	"commentbox/internal/utils"

	"github.com/gin-gonic/gin"
)

type stubTarget struct{ pk string }

func (s stubTarget) TargetPK() string    { return s.pk }
func (s stubTarget) TargetLabel() string { return "stub" }
func (s stubTarget) TargetURL() string   { return "/stub/" + s.pk }
func (s stubTarget) TargetOwner() uint   { return 0 }

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.C = &config.Config{
		SecretKey:        "test-secret",
		SiteID:           1,
		CommentTimeout:   3 * time.Hour,
		CommentMaxLength: 5000,
		RatingRange:      100,
	}
	registry.Init()
	registry.RegisterTarget("tests.page", func(pk string) (registry.Target, error) {
		if pk != "1" {
			return nil, registry.ErrTargetNotFound
		}
		return stubTarget{pk: pk}, nil
	})
	os.Exit(m.Run())
}

func testCommentHandler() *CommentHandler {
	partials := template.Must(template.New("form.html").Parse(
		`<form data-hash="{{.SecurityHash}}" data-model="{{.ModelName}}"></form>`))
	return &CommentHandler{
		codec:    security.NewCodec(config.C.SecretKey, config.C.CommentTimeout),
		partials: partials,
		cache:    utils.GetCache(),
	}
}

func postComment(h *CommentHandler, v url.Values) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/comments/post", h.PostComment)

	req := httptest.NewRequest(http.MethodPost, "/comments/post", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type postResponse struct {
	Rc       string              `json:"rc"`
	Content  string              `json:"content"`
	Errors   map[string][]string `json:"errors"`
	Errormsg string              `json:"errormsg"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) postResponse {
	t.Helper()
	var resp postResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response %q: %v", w.Body.String(), err)
	}
	return resp
}

// anonValues builds a complete anonymous submission against the stub target.
func anonValues(codec *security.Codec) url.Values {
	f := codec.Issue("tests.page", "1", time.Now())
	return url.Values{
		"comment_model": {"anoncomment"},
		"content_type":  {"tests.page"},
		"object_pk":     {"1"},
		"timestamp":     {fmt.Sprintf("%d", f.Timestamp)},
		"security_hash": {f.Hash},
		"name":          {"alice"},
		"email":         {"alice@example.com"},
		"comment":       {"hello"},
	}
}

func TestPostCommentUnknownModel(t *testing.T) {
	h := testCommentHandler()
	for _, v := range []url.Values{
		{},
		{"comment_model": {"nosuch"}},
	} {
		if w := postComment(h, v); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d for %v, want 400", w.Code, v)
		}
	}
}

func TestPostCommentUnknownTarget(t *testing.T) {
	h := testCommentHandler()

	v := url.Values{
		"comment_model": {"anoncomment"},
		"content_type":  {"tests.unregistered"},
		"object_pk":     {"1"},
	}
	if w := postComment(h, v); w.Code != http.StatusBadRequest {
		t.Errorf("unknown content type: status = %d, want 400", w.Code)
	}

	v.Set("content_type", "tests.page")
	v.Set("object_pk", "999")
	if w := postComment(h, v); w.Code != http.StatusNotFound {
		t.Errorf("missing target: status = %d, want 404", w.Code)
	}
}

func TestPostCommentRequiresLogin(t *testing.T) {
	h := testCommentHandler()
	v := anonValues(h.codec)
	v.Set("comment_model", "comment") // login-only variant

	w := postComment(h, v)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if resp := decode(t, w); resp.Rc != "error" || resp.Errormsg == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestPostCommentTamperedHash(t *testing.T) {
	h := testCommentHandler()
	v := anonValues(h.codec)
	v.Set("object_pk", "1")
	v.Set("security_hash", strings.Repeat("0", 40))

	w := postComment(h, v)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode(t, w)
	if resp.Rc != "failure" {
		t.Fatalf("rc = %q, want failure", resp.Rc)
	}
	if len(resp.Errors["security_hash"]) == 0 {
		t.Errorf("errors = %v, want security_hash entry", resp.Errors)
	}
	if !strings.Contains(resp.Content, "data-hash=") {
		t.Errorf("content is not a re-rendered form: %q", resp.Content)
	}
	// The re-issued hash must be fresh, not the rejected one.
	if strings.Contains(resp.Content, strings.Repeat("0", 40)) {
		t.Errorf("re-rendered form echoes the tampered hash")
	}
}

func TestPostCommentFieldErrors(t *testing.T) {
	h := testCommentHandler()
	v := anonValues(h.codec)
	v.Set("comment", "")
	v.Set("email", "not-an-address")

	resp := decode(t, postComment(h, v))
	if resp.Rc != "failure" {
		t.Fatalf("rc = %q, want failure", resp.Rc)
	}
	for _, field := range []string{"comment", "email"} {
		if len(resp.Errors[field]) == 0 {
			t.Errorf("errors = %v, want %s entry", resp.Errors, field)
		}
	}
}

func TestShowForm(t *testing.T) {
	h := testCommentHandler()
	r := gin.New()
	r.GET("/comments/form", h.ShowForm)

	req := httptest.NewRequest(http.MethodGet, "/comments/form?model=anoncomment&content_type=tests.page&object_pk=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-model="comments.anoncomment"`) {
		t.Errorf("form fragment = %q", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/comments/form?model=anoncomment&content_type=tests.page&object_pk=999", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing target: status = %d, want 400", w.Code)
	}
}

func TestCountServedFromCache(t *testing.T) {
	h := testCommentHandler()
	h.cache.Set(countKey("comments.anoncomment", "tests.page", "1"), int64(7), time.Minute)

	r := gin.New()
	r.GET("/comments/count", h.Count)
	req := httptest.NewRequest(http.MethodGet, "/comments/count?model=anoncomment&content_type=tests.page&object_pk=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response %q: %v", w.Body.String(), err)
	}
	if resp.Count != 7 {
		t.Errorf("count = %d, want 7", resp.Count)
	}
}

func TestCountsServedFromCache(t *testing.T) {
	h := testCommentHandler()
	h.cache.Set(countKey("comments.anoncomment", "tests.page", "a"), int64(2), time.Minute)
	h.cache.Set(countKey("comments.anoncomment", "tests.page", "b"), int64(0), time.Minute)

	r := gin.New()
	r.GET("/comments/counts", h.Counts)
	req := httptest.NewRequest(http.MethodGet, "/comments/counts?model=anoncomment&content_type=tests.page&object_pks=a,b", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Counts map[string]int64 `json:"counts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response %q: %v", w.Body.String(), err)
	}
	if resp.Counts["a"] != 2 || resp.Counts["b"] != 0 {
		t.Errorf("counts = %v", resp.Counts)
	}
}

func TestInvalidateDropsCountAndLists(t *testing.T) {
	h := testCommentHandler()
	ck := countKey("comments.anoncomment", "tests.page", "1")
	lk := listKey("comments.anoncomment", "tests.page", "1", false, "")
	h.cache.Set(ck, int64(7), time.Minute)
	h.cache.Set(lk, []registry.Item{}, time.Minute)

	h.invalidate("comments.anoncomment", "tests.page", "1")

	if got := h.cache.Get(ck); got != nil {
		t.Errorf("count key survived invalidation: %v", got)
	}
	if got := h.cache.Get(lk); got != nil {
		t.Errorf("list key survived invalidation: %v", got)
	}
}

func TestFormTemplateFallback(t *testing.T) {
	h := testCommentHandler()
	variant, _ := registry.Lookup("qacomment")

	if got := h.formTemplate(variant, ""); got != "form.html" {
		t.Errorf("formTemplate = %q, want form.html", got)
	}
	if got := h.formTemplate(variant, "compact.html"); got != "form.html" {
		t.Errorf("formTemplate with absent hint = %q, want form.html", got)
	}
}
