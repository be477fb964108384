package forms

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"commentbox/internal/security"
)

const maxLen = 5000

var testNow = time.Unix(50_000, 0)

func testCodec() *security.Codec {
	return security.NewCodec("test-secret", 3*time.Hour)
}

// validValues builds a submission that passes ParseCommon.
func validValues(codec *security.Codec) url.Values {
	f := codec.Issue("pages.page", "42", testNow)
	return url.Values{
		"comment_model": {"comments.comment"},
		"content_type":  {"pages.page"},
		"object_pk":     {"42"},
		"timestamp":     {fmt.Sprintf("%d", f.Timestamp)},
		"security_hash": {f.Hash},
		"comment":       {"a perfectly fine comment"},
	}
}

func TestParseCommonAccepts(t *testing.T) {
	codec := testCodec()
	sub, errs := ParseCommon(validValues(codec), codec, maxLen, testNow)
	if errs.Any() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if sub.Comment != "a perfectly fine comment" || sub.ObjectPK != "42" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestParseCommonRequiredFields(t *testing.T) {
	codec := testCodec()
	_, errs := ParseCommon(url.Values{}, codec, maxLen, testNow)
	for _, field := range []string{"comment_model", "content_type", "object_pk", "timestamp", "security_hash", "comment"} {
		if len(errs[field]) == 0 {
			t.Errorf("no error for missing %s", field)
		}
	}
}

func TestParseCommonTamperedHash(t *testing.T) {
	codec := testCodec()
	v := validValues(codec)
	v.Set("object_pk", "43") // hash was issued for pk 42

	_, errs := ParseCommon(v, codec, maxLen, testNow)
	if len(errs["security_hash"]) == 0 {
		t.Fatalf("expected security_hash error, got %v", errs)
	}
	if len(errs["timestamp"]) != 0 {
		t.Errorf("tampering should not be reported as expiry: %v", errs)
	}
}

func TestParseCommonExpired(t *testing.T) {
	codec := testCodec()
	v := validValues(codec)

	_, errs := ParseCommon(v, codec, maxLen, testNow.Add(3*time.Hour+time.Second))
	if len(errs["timestamp"]) == 0 {
		t.Fatalf("expected timestamp error, got %v", errs)
	}
	if len(errs["security_hash"]) != 0 {
		t.Errorf("expiry should not be reported as tampering: %v", errs)
	}
}

func TestParseCommonLengthLimits(t *testing.T) {
	codec := testCodec()
	v := validValues(codec)
	v.Set("comment", strings.Repeat("x", maxLen+1))
	v.Set("title", strings.Repeat("t", 256))

	_, errs := ParseCommon(v, codec, maxLen, testNow)
	if len(errs["comment"]) == 0 {
		t.Errorf("no error for oversized comment")
	}
	if len(errs["title"]) == 0 {
		t.Errorf("no error for oversized title")
	}
}

func TestParseCommonTemplateName(t *testing.T) {
	codec := testCodec()
	v := validValues(codec)
	v.Set("tn", codec.EncodeTemplateName("compact_form.html"))
	sub, _ := ParseCommon(v, codec, maxLen, testNow)
	if sub.TemplateName != "compact_form.html" {
		t.Errorf("TemplateName = %q", sub.TemplateName)
	}

	// A forged hint silently degrades instead of erroring.
	v.Set("tn", "garbage")
	sub, errs := ParseCommon(v, codec, maxLen, testNow)
	if sub.TemplateName != "" {
		t.Errorf("TemplateName = %q, want empty", sub.TemplateName)
	}
	if len(errs["tn"]) != 0 {
		t.Errorf("tn must never produce a field error: %v", errs)
	}
}

func TestValidateAnon(t *testing.T) {
	cases := []struct {
		name, email string
		badFields   []string
	}{
		{"alice", "alice@example.com", nil},
		{"", "alice@example.com", []string{"name"}},
		{strings.Repeat("n", 51), "alice@example.com", []string{"name"}},
		{"alice", "", []string{"email"}},
		{"alice", "not-an-address", []string{"email"}},
	}
	for _, tc := range cases {
		sub := &Submission{}
		errs := Errors{}
		ValidateAnon(sub, url.Values{"name": {tc.name}, "email": {tc.email}}, errs)
		if len(tc.badFields) == 0 && errs.Any() {
			t.Errorf("(%q, %q): unexpected errors %v", tc.name, tc.email, errs)
		}
		for _, f := range tc.badFields {
			if len(errs[f]) == 0 {
				t.Errorf("(%q, %q): no error for %s", tc.name, tc.email, f)
			}
		}
	}
}

func TestValidateQA(t *testing.T) {
	check := func(v url.Values) (*Submission, Errors) {
		sub := &Submission{}
		errs := Errors{}
		ValidateQA(sub, v, errs)
		return sub, errs
	}

	if _, errs := check(url.Values{"comment_type": {"0"}}); errs.Any() {
		t.Errorf("question: %v", errs)
	}
	if sub, errs := check(url.Values{"comment_type": {"1"}, "question_id": {"7"}}); errs.Any() || sub.QuestionID == nil || *sub.QuestionID != 7 {
		t.Errorf("answer: errs=%v sub=%+v", errs, sub)
	}
	if _, errs := check(url.Values{"comment_type": {"1"}}); len(errs["question_id"]) == 0 {
		t.Errorf("answer without question_id accepted")
	}
	if _, errs := check(url.Values{"comment_type": {"5"}}); len(errs["comment_type"]) == 0 {
		t.Errorf("bad comment_type accepted")
	}
	if _, errs := check(url.Values{}); len(errs["comment_type"]) == 0 {
		t.Errorf("missing comment_type accepted")
	}
}

func TestValidateScore(t *testing.T) {
	check := func(raw string) Errors {
		errs := Errors{}
		ValidateScore(&Submission{}, url.Values{"score": {raw}}, errs, 100)
		return errs
	}

	for _, ok := range []string{"0", "100", "55"} {
		if errs := check(ok); errs.Any() {
			t.Errorf("score %s rejected: %v", ok, errs)
		}
	}
	for _, bad := range []string{"", "-1", "101", "high"} {
		if errs := check(bad); len(errs["score"]) == 0 {
			t.Errorf("score %q accepted", bad)
		}
	}
}
