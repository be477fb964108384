// Package registry holds the comment variant strategies and the target
// loaders. Both registries are populated once at process start (Init and
// RegisterTarget calls from main) and are read-only afterwards, so lookups
// need no locking.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"commentbox/internal/forms"
	"commentbox/internal/models"
	"commentbox/internal/store"
)

var (
	ErrUnknownModel      = errors.New("unknown comment model")
	ErrUnknownTargetType = errors.New("unknown content type")
	ErrTargetNotFound    = errors.New("target object not found")
)

// Variant bundles everything the handlers need to treat one comment shape
// generically: form validation, record construction, list/count behaviour.
type Variant struct {
	Name         string
	RequiresAuth bool

	// which optional form field groups this variant renders
	Anonymous bool
	QA        bool
	Scored    bool

	Model    func() models.Record
	Validate func(sub *forms.Submission, v url.Values, errs forms.Errors)
	Build    func(sub *forms.Submission) models.Record

	List      func(f store.Filter, order string, threaded bool) ([]Item, error)
	Count     func(f store.Filter) (int64, error)
	CountByPK func(f store.Filter) (map[string]int64, error)
	ByCid     func(cid string) (models.Record, error)
}

var variants = make(map[string]*Variant)

func register(v *Variant) {
	if _, dup := variants[v.Name]; dup {
		panic(fmt.Sprintf("registry: duplicate variant %q", v.Name))
	}
	variants[v.Name] = v
}

// Lookup resolves a comment_model identifier to its variant. Bare names
// get the default "comments." label, so both "qacomment" and
// "comments.qacomment" resolve.
func Lookup(name string) (*Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" && !strings.Contains(name, ".") {
		name = "comments." + name
	}
	v, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return v, nil
}

// Target is a resolved commentable object.
type Target interface {
	TargetPK() string
	TargetLabel() string
	TargetURL() string // site-relative link to the object, "" when it has none
	TargetOwner() uint // 0 when the target has no owning user
}

// TargetLoader resolves one type tag's opaque pks to objects. A loader
// returns ErrTargetNotFound (possibly wrapped) when the pk does not exist.
type TargetLoader func(pk string) (Target, error)

var targets = make(map[string]TargetLoader)

func RegisterTarget(typeTag string, l TargetLoader) {
	if _, dup := targets[typeTag]; dup {
		panic(fmt.Sprintf("registry: duplicate target type %q", typeTag))
	}
	targets[typeTag] = l
}

// ResolveTarget looks up the {type tag, pk} reference through the
// registered loaders.
func ResolveTarget(typeTag, pk string) (Target, error) {
	l, ok := targets[strings.ToLower(typeTag)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTargetType, typeTag)
	}
	return l(pk)
}
