package portal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Locale parsing for Chilean real-estate listings. The site mixes "."
// and "," as thousands separators and Spanish jargon throughout, so
// everything here is heuristic and table-driven.

var (
	// "8.500 UF" and "UF 8.500" both occur in the wild.
	ufSuffixRe = regexp.MustCompile(`([\d.,]+)\s*UF`)
	ufPrefixRe = regexp.MustCompile(`UF\s*([\d.,]+)`)
	clpRe      = regexp.MustCompile(`\$\s*([\d.,]+)`)

	bedroomsRe  = regexp.MustCompile(`(\d+)\s*(?:dormitorio|bedroom|dorm)`)
	bathroomsRe = regexp.MustCompile(`(\d+)\s*(?:baño|bathroom|bath)`)
	totalAreaRe = regexp.MustCompile(`(\d+(?:[,.]\d+)?)\s*m[²2]?\s*(?:total|const)`)
	builtAreaRe = regexp.MustCompile(`(\d+(?:[,.]\d+)?)\s*m[²2]?\s*(?:útil|built)`)
	parkingRe   = regexp.MustCompile(`(\d+)\s*(?:estacionamiento|parking|garage)`)
	floorRe     = regexp.MustCompile(`(?:piso|floor)\s*(\d+)`)
	floorsRe    = regexp.MustCompile(`(\d+)\s*pisos`)

	// "2015 años" and "año de construcción: 2015" both occur.
	yearBeforeRe  = regexp.MustCompile(`(\d{4})\s*(?:año|year)`)
	yearAfterRe   = regexp.MustCompile(`(?:año|year)\D{0,20}?(\d{4})`)
	orientationRe = regexp.MustCompile(`orientaci[oó]n\s*:?\s*(norte|sur|oriente|poniente|nororiente|norponiente|suroriente|surponiente)`)

	listingIDRe = regexp.MustCompile(`MLC-?(\d+)`)

	maintenanceRe = regexp.MustCompile(`(?i)gastos comunes\D{0,30}(\$\s*[\d.,]+)`)

	// Coordinates sometimes only appear inside map-widget script blobs.
	latRe = regexp.MustCompile(`(?i)lat(?:itude)?["']?\s*[:=]\s*(-?\d+\.\d+)`)
	lngRe = regexp.MustCompile(`(?i)(?:lng|lon(?:gitude)?)["']?\s*[:=]\s*(-?\d+\.\d+)`)
)

// listedAgoPatterns map "publicado hace N <unit>" phrases to the day
// multiplier for that unit.
var listedAgoPatterns = []struct {
	re   *regexp.Regexp
	days int
}{
	{regexp.MustCompile(`publicado hace (\d+) (?:día|day)s?`), 1},
	{regexp.MustCompile(`publicado hace (\d+) (?:mes|month)(?:es)?s?`), 30},
	{regexp.MustCompile(`publicado hace (\d+) (?:año|year)s?`), 365},
}

// amenityKeywords maps source-language keywords to canonical English
// tags. Extend the table, not the control flow.
var amenityKeywords = []struct {
	keyword string
	tag     string
}{
	{"piscina", "pool"},
	{"gimnasio", "gym"},
	{"seguridad", "security"},
	{"portero", "doorman"},
	{"jardin", "garden"},
	{"jardín", "garden"},
	{"terraza", "terrace"},
	{"balcon", "balcony"},
	{"balcón", "balcony"},
	{"bodega", "storage"},
	{"quincho", "bbq area"},
	{"sala multiuso", "multipurpose room"},
	{"salon de eventos", "event room"},
	{"salón de eventos", "event room"},
}

// knownComunas is the Santiago-metro district list used for substring
// matching against location text.
var knownComunas = []string{
	"Las Condes",
	"Vitacura",
	"Lo Barnechea",
	"Providencia",
	"Ñuñoa",
	"La Reina",
	"Santiago Centro",
	"Santiago",
	"Macul",
	"Peñalolén",
	"La Florida",
	"San Miguel",
	"San Joaquín",
	"Recoleta",
	"Independencia",
	"Huechuraba",
	"Quilicura",
	"Renca",
	"Estación Central",
	"Quinta Normal",
	"Maipú",
	"Pudahuel",
	"Cerrillos",
	"La Cisterna",
	"Puente Alto",
	"San Bernardo",
}

// blockingKeywords appearing in page content suggest a challenge or
// anti-bot page rather than search results.
var blockingKeywords = []string{
	"captcha", "blocked", "security", "challenge", "robot", "automation", "bot",
}

// ParsedPrice holds whatever figures a single price string yielded. A
// string may carry both a UF and a CLP figure; both are recorded.
type ParsedPrice struct {
	UF       *float64
	CLP      *float64
	Currency string
}

// ParsePrice extracts UF and CLP figures from raw price text. Currency
// is "UF" whenever a UF figure is present, "CLP" when only a peso
// figure was found, empty otherwise.
func ParsePrice(text string) ParsedPrice {
	var p ParsedPrice

	m := ufSuffixRe.FindStringSubmatch(text)
	if m == nil {
		m = ufPrefixRe.FindStringSubmatch(text)
	}
	if m != nil {
		if v, ok := parseThousands(m[1]); ok {
			p.UF = &v
			p.Currency = "UF"
		}
	}

	if m := clpRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseThousands(m[1]); ok {
			p.CLP = &v
			if p.Currency == "" {
				p.Currency = "CLP"
			}
		}
	}

	return p
}

// parseThousands strips both "." and "," before converting. The site
// formats integers with "." as the thousands separator; fractional
// values are not expected here and would be conflated.
func parseThousands(s string) (float64, bool) {
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDecimal converts "82,5"-style decimals, used for areas.
func parseDecimal(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func matchInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func matchArea(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, ok := parseDecimal(m[1])
	if !ok {
		return nil
	}
	return &v
}

// BuildingAge derives age in years from a 4-digit year co-occurring
// with an age token, accepted only when the year is in (1900, now].
func BuildingAge(text string, now time.Time) *int {
	lower := strings.ToLower(text)
	m := yearBeforeRe.FindStringSubmatch(lower)
	if m == nil {
		m = yearAfterRe.FindStringSubmatch(lower)
	}
	if m == nil {
		return nil
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	current := now.Year()
	if year <= 1900 || year > current {
		return nil
	}
	age := current - year
	return &age
}

// Amenities scans page text against the keyword table and returns the
// canonical tags plus the dedicated pool/gym/security flags. Flags are
// nil when their amenity never appeared: unset, not false.
func Amenities(pageText string) (tags []string, pool, gym, security *bool) {
	lower := strings.ToLower(pageText)
	seen := make(map[string]struct{})

	for _, entry := range amenityKeywords {
		if !strings.Contains(lower, entry.keyword) {
			continue
		}
		if _, dup := seen[entry.tag]; dup {
			continue
		}
		seen[entry.tag] = struct{}{}
		tags = append(tags, entry.tag)

		switch entry.tag {
		case "pool":
			pool = boolPtr(true)
		case "gym":
			gym = boolPtr(true)
		case "security", "doorman":
			security = boolPtr(true)
		}
	}
	return tags, pool, gym, security
}

// MatchComuna returns the first known comuna appearing in the text.
func MatchComuna(text string) string {
	for _, c := range knownComunas {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

// NeighborhoodFrom takes the text preceding the first comma of an
// address as the neighborhood.
func NeighborhoodFrom(address string) string {
	parts := strings.SplitN(address, ",", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// ListedAgo parses "publicado hace N días/meses/años" phrases into the
// original phrase and an approximate days-on-market figure.
func ListedAgo(pageText string) (string, *int) {
	lower := strings.ToLower(pageText)
	for _, p := range listedAgoPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		days := n * p.days
		return m[0], &days
	}
	return "", nil
}

// ListingIDFromURL pulls the MLC identifier out of a detail URL.
// Empty when the URL carries none; such records never deduplicate.
func ListingIDFromURL(url string) string {
	m := listingIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripTracking removes fragment and query tracking parameters from a
// detail URL.
func StripTracking(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	return url
}

// MaintenanceFee finds a "gastos comunes" figure in page text and
// returns the peso amount as written.
func MaintenanceFee(pageText string) string {
	m := maintenanceRe.FindStringSubmatch(pageText)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(m[1]), " ")
}

// Coordinates scans raw page content for latitude/longitude pairs
// embedded in map scripts. Both must be present to count.
func Coordinates(content string) (lat, lng *float64) {
	lm := latRe.FindStringSubmatch(content)
	gm := lngRe.FindStringSubmatch(content)
	if lm == nil || gm == nil {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(lm[1], 64)
	lo, err2 := strconv.ParseFloat(gm[1], 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &la, &lo
}

// Orientation extracts a compass orientation phrase if present.
func Orientation(text string) string {
	m := orientationRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	return m[1]
}

func boolPtr(b bool) *bool        { return &b }
func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
