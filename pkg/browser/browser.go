// Package browser provides isolated browser sessions for category workers.
//
// A Provider hands out one Session per worker. Sessions never share cookies,
// profiles or processes, and each must be released with Close on every exit
// path. Selectors passed to a Session may be CSS selectors or XPath
// expressions.
package browser

import (
	"context"
)

// Scripts evaluated by the page primitives
const (
	ScriptScrollHeight   = "document.body.scrollHeight"
	ScriptScrollToBottom = "window.scrollTo(0, document.body.scrollHeight)"
)

// Session is one isolated browser tab. Every call blocks until it succeeds,
// fails, or ctx is done.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitPresent blocks until an element matching sel is in the DOM
	WaitPresent(ctx context.Context, sel string) error
	WaitNotVisible(ctx context.Context, sel string) error
	Click(ctx context.Context, sel string) error
	Text(ctx context.Context, sel string) (string, error)
	// Attribute returns the named attribute of the first match and whether it was set
	Attribute(ctx context.Context, sel, name string) (string, bool, error)
	OuterHTML(ctx context.Context, sel string) (string, error)
	// Evaluate runs a script and decodes its result into res, which may be nil
	Evaluate(ctx context.Context, expr string, res interface{}) error
	Title(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Provider creates sessions
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
}
