package portal

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"portal-scraper/browser"
	"portal-scraper/config"
	"portal-scraper/models"
	"portal-scraper/utils"
)

const (
	detailLoadTimeout        = 30 * time.Second
	relaxedDetailLoadTimeout = 60 * time.Second
	maxImageURLs             = 10
)

// ErrNoDetailURL marks a reference that cannot be enriched because
// discovery never found a link for it. No navigation is attempted.
var ErrNoDetailURL = errors.New("listing reference has no detail url")

var detailPriceSelectors = []string{
	".andes-money-amount__fraction",
	".price-tag-fraction",
	`[class*="price"]`,
}

var attributeSelectors = []string{
	".andes-table tbody tr",
	`[class*="attribute"]`,
	".ui-pdp-container .ui-pdp-attributes",
	`[class*="specs"] div`,
	".property-features li",
}

var addressSelectors = []string{
	".ui-pdp-media__title",
	`[class*="address"]`,
	`[class*="location"]`,
}

var agentSelectors = []string{
	`[class*="seller"]`,
	`[class*="agent"]`,
}

var imageSelectors = []string{
	".ui-pdp-gallery img",
	`[class*="gallery"] img`,
	".property-images img",
	`img[src*="http"]`,
}

var videoSelectors = []string{
	`iframe[src*="youtube"]`,
	`iframe[src*="vimeo"]`,
	"video source",
}

// Enricher turns listing references into full property records by
// visiting their detail pages. Extraction passes are independent: a
// failing pass logs and leaves its fields null, it never aborts the
// others.
type Enricher struct {
	cfg    *config.Config
	logger *utils.Logger
	sess   browser.Session
	pacer  *PacingScheduler
	now    func() time.Time
}

// NewEnricher wires an enricher over the shared browser session.
func NewEnricher(cfg *config.Config, logger *utils.Logger, sess browser.Session, pacer *PacingScheduler) *Enricher {
	return &Enricher{cfg: cfg, logger: logger, sess: sess, pacer: pacer, now: time.Now}
}

// Enrich navigates to the reference's detail page and extracts the
// full field set. It returns an error only when the page could not be
// reached at all; extraction misses degrade to null fields.
func (e *Enricher) Enrich(ref *models.ListingReference) (*models.PropertyRecord, error) {
	if ref.DetailURL == "" {
		return nil, ErrNoDetailURL
	}
	detailURL := StripTracking(ref.DetailURL)

	e.pacer.AwaitTurn()

	if err := e.sess.Navigate(detailURL, browser.WaitDOMContentLoaded, detailLoadTimeout); err != nil {
		e.logger.Warn("[enrich] Navigation failed (%v) — retrying with relaxed wait", err)
		if err := e.sess.Navigate(detailURL, browser.WaitFullLoad, relaxedDetailLoadTimeout); err != nil {
			return nil, err
		}
	}

	record := models.NewPropertyRecord(ListingIDFromURL(detailURL), ref.Title, detailURL)

	pageText, err := e.sess.PageText()
	if err != nil {
		e.logger.Warn("[enrich] Could not read page text for %s: %v", detailURL, err)
	}

	e.runPass("financial", record, func() { e.extractFinancial(record, ref, pageText) })
	e.runPass("physical", record, func() { e.extractPhysical(record, pageText) })
	e.runPass("location", record, func() { e.extractLocation(record, pageText) })
	e.runPass("building", record, func() { e.extractBuilding(record, pageText) })
	e.runPass("amenities", record, func() { e.extractAmenities(record, pageText) })
	if e.cfg.SaveImages {
		e.runPass("media", record, func() { e.extractMedia(record) })
	}
	e.runPass("metadata", record, func() { e.extractMetadata(record, pageText) })

	return record, nil
}

// runPass isolates one extraction pass so a panic inside selector or
// regex plumbing degrades to missing fields instead of killing the run.
func (e *Enricher) runPass(name string, record *models.PropertyRecord, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("[enrich] %s pass failed for %s: %v", name, record.URL, r)
		}
	}()
	fn()
}

func (e *Enricher) extractFinancial(record *models.PropertyRecord, ref *models.ListingReference, pageText string) {
	if text, _, ok := probeText(e.sess, nil, detailPriceSelectors, priceLikeText); ok {
		record.Price = strings.Join(strings.Fields(text), " ")
	} else if ref.RawPriceText != "" {
		record.Price = ref.RawPriceText
	}

	if record.Price != "" {
		parsed := ParsePrice(record.Price)
		record.PriceUF = parsed.UF
		record.PriceCLP = parsed.CLP
		record.Currency = parsed.Currency
	}

	record.MaintenanceFee = MaintenanceFee(pageText)
}

func (e *Enricher) extractPhysical(record *models.PropertyRecord, pageText string) {
	// Attribute tables first, whole-page text as the last resort.
	for _, sel := range attributeSelectors {
		els, err := e.sess.QueryAll(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			text, err := e.sess.Text(el)
			if err != nil {
				continue
			}
			e.applyPhysical(record, strings.ToLower(text))
		}
	}
	e.applyPhysical(record, strings.ToLower(pageText))
}

func (e *Enricher) applyPhysical(record *models.PropertyRecord, text string) {
	if record.Bedrooms == nil {
		record.Bedrooms = matchInt(bedroomsRe, text)
	}
	if record.Bathrooms == nil {
		record.Bathrooms = matchInt(bathroomsRe, text)
	}
	if record.TotalAreaM2 == nil {
		record.TotalAreaM2 = matchArea(totalAreaRe, text)
	}
	if record.BuiltAreaM2 == nil {
		record.BuiltAreaM2 = matchArea(builtAreaRe, text)
	}
	if record.ParkingSpots == nil {
		record.ParkingSpots = matchInt(parkingRe, text)
	}
}

func (e *Enricher) extractLocation(record *models.PropertyRecord, pageText string) {
	if addr, _, ok := probeText(e.sess, nil, addressSelectors, func(s string) bool {
		return len(s) > 5
	}); ok {
		record.Address = strings.TrimSpace(addr)
		record.Neighborhood = NeighborhoodFrom(record.Address)
	}

	record.Comuna = MatchComuna(record.Address)
	if record.Comuna == "" {
		record.Comuna = MatchComuna(pageText)
	}

	if !e.cfg.ExtractCoordinates {
		return
	}

	// Map widgets expose coordinates either as data attributes or
	// buried in script content.
	latStr, _, latOK := probeAttr(e.sess, nil, []string{"[data-lat]"}, "data-lat", anyText)
	lngStr, _, lngOK := probeAttr(e.sess, nil, []string{"[data-lng]", "[data-longitude]"}, "data-lng", anyText)
	if !lngOK {
		lngStr, _, lngOK = probeAttr(e.sess, nil, []string{"[data-longitude]"}, "data-longitude", anyText)
	}
	if latOK && lngOK {
		if lat, err1 := strconv.ParseFloat(latStr, 64); err1 == nil {
			if lng, err2 := strconv.ParseFloat(lngStr, 64); err2 == nil {
				record.Latitude = &lat
				record.Longitude = &lng
				return
			}
		}
	}

	if content, err := e.sess.PageContent(); err == nil {
		record.Latitude, record.Longitude = Coordinates(content)
	}
}

func (e *Enricher) extractBuilding(record *models.PropertyRecord, pageText string) {
	lower := strings.ToLower(pageText)

	record.BuildingAgeYears = BuildingAge(lower, e.now())
	record.FloorNumber = matchInt(floorRe, lower)
	record.TotalFloors = matchInt(floorsRe, lower)
	record.Orientation = Orientation(lower)

	// Tri-state: absence of any mention leaves the field unknown.
	if strings.Contains(lower, "sin ascensor") || strings.Contains(lower, "no elevator") {
		record.HasElevator = boolPtr(false)
	} else if strings.Contains(lower, "ascensor") || strings.Contains(lower, "elevator") {
		record.HasElevator = boolPtr(true)
	}
}

func (e *Enricher) extractAmenities(record *models.PropertyRecord, pageText string) {
	record.Amenities, record.HasPool, record.HasGym, record.HasSecurity = Amenities(pageText)
}

func (e *Enricher) extractMedia(record *models.PropertyRecord) {
	for _, sel := range imageSelectors {
		els, err := e.sess.QueryAll(sel)
		if err != nil {
			continue
		}
		seen := make(map[string]struct{})
		for _, el := range els {
			src, ok := e.sess.Attr(el, "src")
			if !ok || !strings.HasPrefix(src, "http") {
				continue
			}
			if _, dup := seen[src]; dup {
				continue
			}
			seen[src] = struct{}{}
			record.ImageURLs = append(record.ImageURLs, src)
			if len(record.ImageURLs) >= maxImageURLs {
				break
			}
		}
		if len(record.ImageURLs) > 0 {
			break
		}
	}

	if src, _, ok := probeAttr(e.sess, nil, videoSelectors, "src", anyText); ok {
		record.VideoURL = src
	}
}

func (e *Enricher) extractMetadata(record *models.PropertyRecord, pageText string) {
	record.ListingDate, record.DaysOnMarket = ListedAgo(pageText)

	if agent, _, ok := probeText(e.sess, nil, agentSelectors, func(s string) bool {
		return len(s) < 200
	}); ok {
		record.AgentInfo = strings.TrimSpace(agent)
	}
}
