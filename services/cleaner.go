package services

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"portal-scraper/models"
	"portal-scraper/utils"
)

// Plausible-range bounds for flagging. Values outside these are
// reported, never dropped or clamped.
const (
	minPlausibleAreaM2 = 20.0
	maxPlausibleAreaM2 = 1000.0
	maxPlausibleBeds   = 10
	maxPlausibleBaths  = 8

	// Santiago metro bounding box.
	minLat = -33.7
	maxLat = -33.2
	minLon = -71.0
	maxLon = -70.3
)

// Cleaner normalizes property records and reports implausible values.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns the normalized record and logs every range flag.
func (c *Cleaner) Clean(r *models.PropertyRecord) *models.PropertyRecord {
	cleaned := CleanRecord(r)
	for _, flag := range FlagRecord(cleaned) {
		c.logger.Warn("[cleaner] %s: %s", cleaned.ListingID, flag)
	}
	return cleaned
}

// CleanRecord is the pure normalization step: whitespace collapse,
// title-cased address and neighborhood, lower-cased deduplicated
// amenities. It is idempotent and leaves the input untouched.
func CleanRecord(r *models.PropertyRecord) *models.PropertyRecord {
	out := *r

	out.Title = normaliseText(r.Title)
	out.Price = normaliseText(r.Price)
	out.Address = titleCase(normaliseText(r.Address))
	out.Neighborhood = titleCase(normaliseText(r.Neighborhood))
	out.AgentInfo = normaliseText(r.AgentInfo)
	out.Amenities = normaliseAmenities(r.Amenities)

	return &out
}

// FlagRecord is the pure range check: it reports values outside
// plausible bounds without modifying the record.
func FlagRecord(r *models.PropertyRecord) []string {
	var flags []string

	if r.TotalAreaM2 != nil && (*r.TotalAreaM2 < minPlausibleAreaM2 || *r.TotalAreaM2 > maxPlausibleAreaM2) {
		flags = append(flags, "unusual area: "+formatFloat(*r.TotalAreaM2)+" m2")
	}
	if r.Latitude != nil && r.Longitude != nil {
		if *r.Latitude < minLat || *r.Latitude > maxLat || *r.Longitude < minLon || *r.Longitude > maxLon {
			flags = append(flags, "coordinates outside Santiago area")
		}
	}
	if r.Bedrooms != nil && *r.Bedrooms > maxPlausibleBeds {
		flags = append(flags, "unusual bedroom count")
	}
	if r.Bathrooms != nil && *r.Bathrooms > maxPlausibleBaths {
		flags = append(flags, "unusual bathroom count")
	}

	return flags
}

// Score rates record completeness on a 20-point scale: four core
// checks at 5 points each plus five 1-point bonuses. A record counts
// as valid at half the ceiling.
func Score(r *models.PropertyRecord) models.ValidationResult {
	result := models.ValidationResult{}

	if r.Price != "" && r.Currency != "" {
		result.Score += 5
	} else {
		result.Issues = append(result.Issues, "Missing price information")
	}
	if r.Bedrooms != nil && *r.Bedrooms > 0 {
		result.Score += 5
	} else {
		result.Issues = append(result.Issues, "Missing bedroom count")
	}
	if r.TotalAreaM2 != nil && *r.TotalAreaM2 > 0 {
		result.Score += 5
	} else {
		result.Issues = append(result.Issues, "Missing area information")
	}
	if r.Address != "" || r.Neighborhood != "" {
		result.Score += 5
	} else {
		result.Issues = append(result.Issues, "Missing location information")
	}

	if r.Bathrooms != nil && *r.Bathrooms > 0 {
		result.Score++
	}
	if r.ParkingSpots != nil && *r.ParkingSpots > 0 {
		result.Score++
	}
	if r.Latitude != nil && r.Longitude != nil {
		result.Score++
	}
	if len(r.Amenities) > 0 {
		result.Score++
	}
	if r.AgentInfo != "" {
		result.Score++
	}

	result.IsValid = result.Score >= 10
	return result
}

// normaliseText strips leading/trailing whitespace and collapses
// internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), unicode.IsSpace)
	return strings.Join(fields, " ")
}

// titleCase upper-cases the first letter of each word, lower-casing
// the rest, matching how addresses are stored.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// normaliseAmenities lower-cases, trims, deduplicates and sorts the
// amenity set.
func normaliseAmenities(amenities []string) []string {
	if len(amenities) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(amenities))
	out := make([]string, 0, len(amenities))
	for _, a := range amenities {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
