package portal

import (
	"fmt"
	"testing"
	"time"

	"portal-scraper/browser"
	"portal-scraper/config"
	"portal-scraper/utils"
)

// fakeElement is the element handle served by fakeSession.
type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string][]*fakeElement
}

// fakePage models one renderable page keyed by selector.
type fakePage struct {
	selectors map[string][]*fakeElement
	text      string
	content   string
}

// fakeSession implements browser.Session over an in-memory site map.
type fakeSession struct {
	pages    map[string]*fakePage
	failNav  map[string]bool
	visited  []string
	current  *fakePage
	closed   bool
	navCalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:   make(map[string]*fakePage),
		failNav: make(map[string]bool),
	}
}

func (f *fakeSession) Navigate(url string, wait browser.WaitPolicy, timeout time.Duration) error {
	f.navCalls++
	f.visited = append(f.visited, url)
	if f.failNav[url] {
		return fmt.Errorf("%w: %s", browser.ErrNavigation, url)
	}
	page, ok := f.pages[url]
	if !ok {
		return fmt.Errorf("%w: %s", browser.ErrNavigation, url)
	}
	f.current = page
	return nil
}

func (f *fakeSession) QueryAll(selector string) ([]browser.Element, error) {
	if f.current == nil {
		return nil, nil
	}
	return toElements(f.current.selectors[selector]), nil
}

func (f *fakeSession) QueryAllIn(parent browser.Element, selector string) ([]browser.Element, error) {
	el, ok := parent.(*fakeElement)
	if !ok {
		return nil, fmt.Errorf("foreign element %T", parent)
	}
	return toElements(el.children[selector]), nil
}

func (f *fakeSession) Text(el browser.Element) (string, error) {
	fe, ok := el.(*fakeElement)
	if !ok {
		return "", fmt.Errorf("foreign element %T", el)
	}
	return fe.text, nil
}

func (f *fakeSession) Attr(el browser.Element, name string) (string, bool) {
	fe, ok := el.(*fakeElement)
	if !ok {
		return "", false
	}
	v, has := fe.attrs[name]
	return v, has
}

func (f *fakeSession) PageText() (string, error) {
	if f.current == nil {
		return "", nil
	}
	return f.current.text, nil
}

func (f *fakeSession) PageContent() (string, error) {
	if f.current == nil {
		return "", nil
	}
	return f.current.content, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) visitCount(url string) int {
	n := 0
	for _, v := range f.visited {
		if v == url {
			n++
		}
	}
	return n
}

func toElements(els []*fakeElement) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out
}

func testLogger() *utils.Logger { return utils.NewLogger() }

// testConfig returns a config with pacing and caps set so tests never
// actually sleep.
func testConfig() *config.Config {
	return &config.Config{
		MinDelaySeconds:       0,
		MaxDelaySeconds:       0,
		MaxRequestsPerMinute:  1000,
		AvoidPeakHours:        false,
		MaxListingsPerSession: 100,
		MaxPagesPerSession:    10,
		MaxRetriesPerListing:  1,
		ExtractCoordinates:    true,
		ValidateData:          true,
		SaveImages:            true,
		BatchSaveSize:         50,
		OutputDir:             ".",
	}
}

// quietScheduler returns a scheduler that never really sleeps, for
// tests that only exercise the pipeline around it.
func quietScheduler(t *testing.T) *PacingScheduler {
	t.Helper()
	p := NewPacingScheduler(testConfig(), testLogger())
	p.sleep = func(time.Duration) {}
	return p
}
