// Package security implements the tamper-evidence scheme for comment form
// hidden fields: a digest binding the target identity and a server-issued
// timestamp to a process-wide secret.
package security

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// The two rejection modes are distinct so callers can surface different
// messages for a tampered form and a stale one.
var (
	ErrTampered = errors.New("Security hash check failed.")
	ErrExpired  = errors.New("Comment timeout - please reload page and try again")
)

// Fields are the opaque hidden fields issued alongside a fresh form.
type Fields struct {
	Timestamp int64
	Hash      string
}

// Codec computes and checks security hashes. The secret is fixed at process
// start and never mutated, so a Codec is safe for concurrent use.
type Codec struct {
	secret  string
	timeout time.Duration
}

func NewCodec(secret string, timeout time.Duration) *Codec {
	return &Codec{secret: secret, timeout: timeout}
}

// Hash digests the target identity and timestamp with the secret. The
// fields are concatenated with no separators, matching deployed forms: the
// digest deliberately covers only content type, object pk and timestamp,
// never the visible comment fields.
func (c *Codec) Hash(contentType, objectPK string, timestamp int64) string {
	sum := sha1.Sum([]byte(contentType + objectPK + fmt.Sprintf("%d", timestamp) + c.secret))
	return hex.EncodeToString(sum[:])
}

// Issue captures now as the form timestamp and returns it with its digest,
// for embedding as hidden fields in a fresh form.
func (c *Codec) Issue(contentType, objectPK string, now time.Time) Fields {
	ts := now.Unix()
	return Fields{Timestamp: ts, Hash: c.Hash(contentType, objectPK, ts)}
}

// Verify recomputes the digest from the submitted fields and checks the
// submission is still inside the timeout window. A digest mismatch returns
// ErrTampered; an untampered but stale form returns ErrExpired.
func (c *Codec) Verify(contentType, objectPK string, timestamp int64, hash string, now time.Time) error {
	expected := c.Hash(contentType, objectPK, timestamp)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(hash)) != 1 {
		return ErrTampered
	}
	if now.Unix()-timestamp > int64(c.timeout.Seconds()) {
		return ErrExpired
	}
	return nil
}

// EncodeTemplateName packs a template hint as "name,digest" in base64. This
// channel is a UX hint only: it shares the hash family with the form digest
// but is kept apart from it and carries a lower trust level.
func (c *Codec) EncodeTemplateName(name string) string {
	sum := sha1.Sum([]byte(name + c.secret))
	packed := fmt.Sprintf("%s,%s", name, hex.EncodeToString(sum[:]))
	return base64.StdEncoding.EncodeToString([]byte(packed))
}

// DecodeTemplateName recovers the template hint, returning "" on any
// mismatch or malformed input. Callers fall back to their default template;
// a bad hint is never an error.
func (c *Codec) DecodeTemplateName(tn string) string {
	raw, err := base64.StdEncoding.DecodeString(tn)
	if err != nil {
		return ""
	}
	name, digest, ok := strings.Cut(string(raw), ",")
	if !ok {
		return ""
	}
	sum := sha1.Sum([]byte(name + c.secret))
	if digest != hex.EncodeToString(sum[:]) {
		return ""
	}
	return name
}
