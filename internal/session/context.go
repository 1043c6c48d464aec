package session

import (
	"time"
)

// Context is the per-page state shared by listeners and timers.
type Context struct {
	Document  Document
	StartedAt time.Time
}

func NewContext(doc Document, startedAt time.Time) *Context {
	return &Context{Document: doc, StartedAt: startedAt}
}

// MethodSessionID reads the correlation id from the page on every call so a
// late-bound value is respected.
func (c *Context) MethodSessionID() string {
	if c.Document == nil {
		return ""
	}
	return c.Document.BodyData(MethodSessionIDKey)
}

// PagePath is the path recorded on captured records.
func (c *Context) PagePath() string {
	if c.Document == nil {
		return ""
	}
	return c.Document.Path()
}
