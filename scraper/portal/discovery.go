package portal

import (
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portal-scraper/browser"
	"portal-scraper/config"
	"portal-scraper/models"
	"portal-scraper/utils"
)

const (
	// The site paginates in steps of 48 via "_Desde_" offset URLs.
	pageSize = 48
	// A selector must yield more than this many elements before it is
	// trusted as the card selector for the page.
	minCardThreshold = 5

	pageLoadTimeout    = 60 * time.Second
	relaxedLoadTimeout = 90 * time.Second
)

// Ordered card selector chain, most specific first. The trailing
// entries are generic enough to survive site redesigns.
var cardSelectors = []string{
	`a[href*="MLC"]`,
	".ui-search-result",
	".ui-search-results__item",
	".ui-search-item",
	`[class*="result"]`,
	`[class*="listing"]`,
	`[class*="card"]`,
	`[class*="item"]`,
	"article",
	`div[class*="MLC"]`,
	`[data-testid*="result"]`,
	`[data-testid*="item"]`,
}

var cardTitleSelectors = []string{
	`a[href*="MLC"]`,
	"h2", "h3", "h4",
	`[class*="title"]`,
	`[data-testid*="title"]`,
	".ui-search-item__title",
	"span", "div",
}

var cardPriceSelectors = []string{
	".andes-money-amount__fraction",
	".price-tag-fraction",
	`[class*="price"]`,
	`[class*="money"]`,
	`[class*="amount"]`,
	`[data-testid*="price"]`,
	"span", "div",
}

var cardLinkSelectors = []string{
	".ui-search-item__group--title a",
	`a[href*="MLC"]`,
	`[data-testid="item-link"]`,
	"a",
}

const nextPageSelector = `.andes-pagination__button--next:not([disabled])`

// Discovery drives pagination over search-result pages and collects
// lightweight listing references. It never fails upward: any terminal
// condition just ends the walk with whatever was collected.
type Discovery struct {
	cfg     *config.Config
	logger  *utils.Logger
	sess    browser.Session
	pacer   *PacingScheduler
	visited *utils.URLSet

	sleep func(time.Duration)
	randF func() float64
}

// NewDiscovery wires a discovery walk over the given browser session.
func NewDiscovery(cfg *config.Config, logger *utils.Logger, sess browser.Session, pacer *PacingScheduler) *Discovery {
	return &Discovery{
		cfg:     cfg,
		logger:  logger,
		sess:    sess,
		pacer:   pacer,
		visited: utils.NewURLSet(),
		sleep:   time.Sleep,
		randF:   rand.Float64,
	}
}

// Run walks search pages starting at searchURL and returns the
// collected references, whether a blocking page ended the walk, and
// the number of pages scanned.
func (d *Discovery) Run(searchURL string) (refs []*models.ListingReference, blocked bool, pages int) {
	for page := 1; page <= d.cfg.MaxPagesPerSession; page++ {
		pageURL := searchURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s/_Desde_%d", searchURL, (page-1)*pageSize+1)
		}

		d.pacer.AwaitTurn()
		d.logger.Info("[discovery] Page %d — %s", page, pageURL)

		if !d.loadPage(pageURL) {
			d.logger.Warn("[discovery] Page %d did not load — stopping with %d references", page, len(refs))
			return refs, false, pages
		}
		pages++

		cards, selector := d.findCards()
		if len(cards) == 0 {
			d.inspectForBlocking()
			return refs, true, pages
		}
		d.logger.Info("[discovery] Page %d — %d cards via %q", page, len(cards), selector)

		extracted := 0
		for _, card := range cards {
			ref := d.extractCard(card, selector, page, pageURL)
			if ref == nil {
				continue
			}
			if ref.DetailURL != "" && !d.visited.Add(ref.DetailURL) {
				continue
			}
			refs = append(refs, ref)
			extracted++

			if len(refs) >= d.cfg.MaxListingsPerSession {
				d.logger.Info("[discovery] Session cap of %d listings reached", d.cfg.MaxListingsPerSession)
				return refs, false, pages
			}
		}
		d.logger.Info("[discovery] Page %d — extracted %d listings (%d total)",
			page, extracted, len(refs))

		if extracted == 0 {
			return refs, false, pages
		}

		if page >= d.cfg.MaxPagesPerSession || !d.hasNextPage() {
			return refs, false, pages
		}

		// Pagination jitter on top of the scheduler: navigating the
		// result list is a different action from visiting a listing.
		d.sleep(time.Duration((2 + d.randF()*3) * float64(time.Second)))
	}
	return refs, false, pages
}

// loadPage navigates with one relaxed retry. Returns false when both
// attempts failed, which ends the pagination walk.
func (d *Discovery) loadPage(pageURL string) bool {
	err := d.sess.Navigate(pageURL, browser.WaitDOMContentLoaded, pageLoadTimeout)
	if err == nil {
		return true
	}
	d.logger.Warn("[discovery] Navigation failed (%v) — retrying with relaxed wait", err)

	if err := d.sess.Navigate(pageURL, browser.WaitFullLoad, relaxedLoadTimeout); err != nil {
		d.logger.Error("[discovery] Relaxed navigation also failed: %v", err)
		return false
	}
	return true
}

// findCards walks the card selector chain and returns the elements of
// the first selector that yields enough of them.
func (d *Discovery) findCards() ([]browser.Element, string) {
	for _, sel := range cardSelectors {
		els, err := d.sess.QueryAll(sel)
		if err != nil {
			continue
		}
		if len(els) > minCardThreshold {
			return els, sel
		}
	}
	return nil, ""
}

// extractCard probes a single listing card for title, price text and
// detail link. A card yielding none of the three is dropped silently.
func (d *Discovery) extractCard(card browser.Element, selector string, page int, pageURL string) *models.ListingReference {
	ref := &models.ListingReference{
		SourceSelector: selector,
		PageIndex:      page,
	}

	if title, _, ok := probeText(d.sess, card, cardTitleSelectors, substantialText); ok {
		ref.Title = strings.TrimSpace(title)
	}
	if price, _, ok := probeText(d.sess, card, cardPriceSelectors, priceLikeText); ok {
		ref.RawPriceText = strings.TrimSpace(price)
	}

	href, _, ok := probeAttr(d.sess, card, cardLinkSelectors, "href", func(s string) bool {
		return strings.Contains(s, "MLC") || strings.Contains(s, "departamento")
	})
	if !ok {
		// The card element may itself be the anchor.
		if v, has := d.sess.Attr(card, "href"); has && strings.Contains(v, "MLC") {
			href = v
			ok = true
		}
	}
	if ok {
		ref.DetailURL = resolveURL(pageURL, href)
	}

	if ref.Title == "" && ref.RawPriceText == "" && ref.DetailURL == "" {
		return nil
	}
	return ref
}

// inspectForBlocking scans the page for challenge keywords and dumps
// the raw content as a diagnostic artifact.
func (d *Discovery) inspectForBlocking() {
	text, err := d.sess.PageText()
	if err == nil {
		lower := strings.ToLower(text)
		for _, kw := range blockingKeywords {
			if strings.Contains(lower, kw) {
				d.logger.Warn("[discovery] Possible blocking detected: %q", kw)
			}
		}
	}

	content, err := d.sess.PageContent()
	if err != nil || content == "" {
		return
	}
	if err := os.MkdirAll(d.cfg.OutputDir, 0755); err != nil {
		d.logger.Error("[discovery] Could not create output dir: %v", err)
		return
	}
	path := filepath.Join(d.cfg.OutputDir,
		fmt.Sprintf("blocked_page_%s.html", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		d.logger.Error("[discovery] Could not save diagnostic page: %v", err)
		return
	}
	d.logger.Warn("[discovery] Diagnostic page content saved to %s", path)
}

func (d *Discovery) hasNextPage() bool {
	els, err := d.sess.QueryAll(nextPageSelector)
	return err == nil && len(els) > 0
}

// resolveURL makes a card href absolute against the page it came from.
func resolveURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
