package models

import "time"

// ListingReference is the lightweight result of a search-page scan.
// It only carries enough to reach the detail page and is discarded
// after the enrichment attempt.
type ListingReference struct {
	Title          string
	RawPriceText   string
	DetailURL      string
	SourceSelector string
	PageIndex      int
}

// PropertyRecord is the durable unit produced by detail enrichment.
// Identity is ListingID, extracted from the detail URL; when it could
// not be extracted the record is not deduplicable and upsert degrades
// to a plain insert. Pointer fields are nil when the page did not
// yield the value; absence is meaningful, not zero.
type PropertyRecord struct {
	ListingID string `json:"listing_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`

	// Financial
	Price          string   `json:"price"`
	PriceUF        *float64 `json:"price_uf"`
	PriceCLP       *float64 `json:"price_clp"`
	Currency       string   `json:"currency"`
	MaintenanceFee string   `json:"maintenance_fee"`

	// Physical
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	TotalAreaM2  *float64 `json:"total_area_m2"`
	BuiltAreaM2  *float64 `json:"built_area_m2"`
	ParkingSpots *int     `json:"parking_spots"`

	// Location
	Address      string   `json:"address"`
	Neighborhood string   `json:"neighborhood"`
	Comuna       string   `json:"comuna"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	FloorNumber  *int     `json:"floor_number"`

	// Building
	BuildingAgeYears *int   `json:"building_age_years"`
	TotalFloors      *int   `json:"total_floors"`
	HasElevator      *bool  `json:"has_elevator"`
	Orientation      string `json:"orientation"`

	// Amenities
	Amenities   []string `json:"amenities"`
	HasPool     *bool    `json:"has_pool"`
	HasGym      *bool    `json:"has_gym"`
	HasSecurity *bool    `json:"has_security"`

	// Media
	ImageURLs []string `json:"image_urls"`
	VideoURL  string   `json:"video_url"`

	// Metadata
	ListingDate  string    `json:"listing_date"`
	DaysOnMarket *int      `json:"days_on_market"`
	AgentInfo    string    `json:"agent_info"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// NewPropertyRecord constructs a record with its capture timestamp set.
// ScrapedAt is set here exactly once and never overwritten.
func NewPropertyRecord(listingID, title, url string) *PropertyRecord {
	return &PropertyRecord{
		ListingID: listingID,
		Title:     title,
		URL:       url,
		ScrapedAt: time.Now(),
	}
}

// ValidationResult scores the completeness of a PropertyRecord.
// Score ranges 0–20; a record is considered valid at 10 or above.
type ValidationResult struct {
	Score   int
	Issues  []string
	IsValid bool
}

// CompletenessPercent expresses the score against the 20-point ceiling.
func (v ValidationResult) CompletenessPercent() float64 {
	return float64(v.Score) / 20 * 100
}

// AggregateStats is the summary the persistence gateway computes over
// the durable store.
type AggregateStats struct {
	TotalCount     int
	WithPrice      int
	WithBedrooms   int
	WithArea       int
	AveragePriceUF *float64
	AverageAreaM2  *float64
	ScrapedLast24h int
}

// SessionStats summarizes one crawl run: how many detail pages were
// attempted and how many of those produced a record.
type SessionStats struct {
	PagesScraped int
	Discovered   int
	Attempted    int
	Succeeded    int
	Failed       int
	Blocked      bool
	BreakerFired bool
}

// SuccessRate returns the fraction of attempted enrichments that
// succeeded, or zero before the first attempt.
func (s SessionStats) SuccessRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Attempted)
}

// FailureRate returns the fraction of attempted enrichments that
// failed; the orchestrator's circuit breaker watches this value.
func (s SessionStats) FailureRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Attempted)
}
