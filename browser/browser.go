package browser

import (
	"errors"
	"time"
)

// WaitPolicy controls how long Navigate waits for a page to settle.
type WaitPolicy int

const (
	// WaitDOMContentLoaded returns as soon as the DOM is parsed, with a
	// short settle delay for dynamic content.
	WaitDOMContentLoaded WaitPolicy = iota
	// WaitFullLoad waits for the page body to be ready and gives the
	// SPA extra time to render. Used as the relaxed retry policy.
	WaitFullLoad
)

var (
	// ErrNavigationTimeout indicates the page did not load within the
	// given timeout.
	ErrNavigationTimeout = errors.New("browser: navigation timeout")
	// ErrNavigation indicates any other navigation failure.
	ErrNavigation = errors.New("browser: navigation failed")
)

// Element is an opaque handle to a DOM element. Handles are only
// meaningful to the Session that produced them and become stale after
// the next navigation.
type Element any

// Session is the browser automation boundary. A Session owns exactly
// one page handle which is reused across navigations; it must be
// closed on every exit path to avoid leaking browser processes.
type Session interface {
	Navigate(url string, wait WaitPolicy, timeout time.Duration) error
	QueryAll(selector string) ([]Element, error)
	QueryAllIn(parent Element, selector string) ([]Element, error)
	Text(el Element) (string, error)
	Attr(el Element, name string) (string, bool)
	PageText() (string, error)
	PageContent() (string, error)
	Close() error
}
