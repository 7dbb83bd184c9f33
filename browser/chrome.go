package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// ChromeSession implements Session on top of a headless Chrome
// instance driven through chromedp. One browser context and one page
// handle are created up front and reused for every navigation.
type ChromeSession struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChromeSession launches headless Chrome and returns a ready
// session. chromeBin overrides binary discovery when non-empty.
func NewChromeSession(chromeBin string) (*ChromeSession, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgents[rand.Intn(len(userAgents))]),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	ctx, cancelCtx := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser eagerly so a missing binary surfaces here
	// instead of on the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("browser: launch chrome: %w", err)
	}

	return &ChromeSession{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Navigate loads url in the session's page and waits according to the
// given policy, up to timeout.
func (s *ChromeSession) Navigate(url string, wait WaitPolicy, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	switch wait {
	case WaitFullLoad:
		actions = append(actions,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(5*time.Second),
		)
	default:
		actions = append(actions, chromedp.Sleep(3*time.Second))
	}

	if err := chromedp.Run(ctx, actions...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

// QueryAll returns handles for every element matching selector,
// possibly none.
func (s *ChromeSession) QueryAll(selector string) ([]Element, error) {
	return s.nodes(selector)
}

// QueryAllIn scopes the query to the subtree of parent.
func (s *ChromeSession) QueryAllIn(parent Element, selector string) ([]Element, error) {
	node, ok := parent.(*cdp.Node)
	if !ok {
		return nil, fmt.Errorf("browser: foreign element handle %T", parent)
	}
	return s.nodes(selector, chromedp.FromNode(node))
}

func (s *ChromeSession) nodes(selector string, extra ...chromedp.QueryOption) ([]Element, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var nodes []*cdp.Node
	opts := append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, extra...)
	if err := chromedp.Run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}

	els := make([]Element, len(nodes))
	for i, n := range nodes {
		els[i] = n
	}
	return els, nil
}

// Text returns the rendered text content of el.
func (s *ChromeSession) Text(el Element) (string, error) {
	node, ok := el.(*cdp.Node)
	if !ok {
		return "", fmt.Errorf("browser: foreign element handle %T", el)
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var text string
	err := chromedp.Run(ctx,
		chromedp.Text(node.FullXPath(), &text, chromedp.BySearch, chromedp.AtLeast(0)))
	if err != nil {
		return "", fmt.Errorf("browser: element text: %w", err)
	}
	return text, nil
}

// Attr returns the value of the named attribute as captured at query
// time, and whether it was present.
func (s *ChromeSession) Attr(el Element, name string) (string, bool) {
	node, ok := el.(*cdp.Node)
	if !ok {
		return "", false
	}

	node.RLock()
	defer node.RUnlock()
	for i := 0; i < len(node.Attributes)-1; i += 2 {
		if node.Attributes[i] == name {
			return node.Attributes[i+1], true
		}
	}
	return "", false
}

// PageText returns the full visible text of the current page body.
func (s *ChromeSession) PageText() (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	var text string
	err := chromedp.Run(ctx,
		chromedp.Text("body", &text, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		return "", fmt.Errorf("browser: page text: %w", err)
	}
	return text, nil
}

// PageContent returns the raw HTML of the current page, used for
// diagnostic dumps when blocking is suspected.
func (s *ChromeSession) PageContent() (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("browser: page content: %w", err)
	}
	return html, nil
}

// Close shuts the page and the browser process down.
func (s *ChromeSession) Close() error {
	s.cancelCtx()
	s.cancelAlloc()
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
