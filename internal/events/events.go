// Package events is the in-process dispatcher for the comment lifecycle:
// one CommentSaved event per successful save, fanned out asynchronously to
// whatever subscribers main wired up.
package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CommentSaved describes a persisted comment plus its submitter context.
type CommentSaved struct {
	EventID string

	Variant   string
	CommentID uint
	Cid       string

	ContentType string
	ObjectPK    string

	UserID     uint // 0 for anonymous submitters
	UserName   string
	IPAddress  string
	SubmitDate time.Time
}

type Handler func(CommentSaved)

var (
	mu       sync.RWMutex
	handlers []Handler
)

// Subscribe registers a handler. Handlers run in their own goroutines;
// delivery order across subscribers is not guaranteed.
func Subscribe(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers = append(handlers, h)
}

// Publish delivers the event to every subscriber without blocking the
// request that produced it.
func Publish(e CommentSaved) {
	e.EventID = uuid.NewString()

	mu.RLock()
	subs := make([]Handler, len(handlers))
	copy(subs, handlers)
	mu.RUnlock()

	for _, h := range subs {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("events: handler panic for %s: %v", e.EventID, r)
				}
			}()
			h(e)
		}(h)
	}
}
