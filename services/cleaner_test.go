package services

import (
	"reflect"
	"testing"

	"portal-scraper/models"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestCleanRecordNormalizes(t *testing.T) {
	r := &models.PropertyRecord{
		ListingID:    "123",
		Title:        "  Departamento   en  venta \n Las Condes ",
		Price:        " 8.500   UF ",
		Address:      "AVENIDA APOQUINDO 4501",
		Neighborhood: "el golf",
		AgentInfo:    "  Inmobiliaria  Aconcagua ",
		Amenities:    []string{" Piscina ", "gym", "piscina", "", "Gym"},
	}

	got := CleanRecord(r)

	if got.Title != "Departamento en venta Las Condes" {
		t.Errorf("title: %q", got.Title)
	}
	if got.Price != "8.500 UF" {
		t.Errorf("price: %q", got.Price)
	}
	if got.Address != "Avenida Apoquindo 4501" {
		t.Errorf("address: %q", got.Address)
	}
	if got.Neighborhood != "El Golf" {
		t.Errorf("neighborhood: %q", got.Neighborhood)
	}
	if got.AgentInfo != "Inmobiliaria Aconcagua" {
		t.Errorf("agent: %q", got.AgentInfo)
	}
	if want := []string{"gym", "piscina"}; !reflect.DeepEqual(got.Amenities, want) {
		t.Errorf("amenities: %v, want %v", got.Amenities, want)
	}

	// Input record stays untouched.
	if r.Address != "AVENIDA APOQUINDO 4501" {
		t.Errorf("input mutated: %q", r.Address)
	}
}

func TestCleanRecordIdempotent(t *testing.T) {
	r := &models.PropertyRecord{
		Title:     " dos   espacios ",
		Address:   "las condes",
		Amenities: []string{"B", "a", "b"},
	}
	once := CleanRecord(r)
	twice := CleanRecord(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent:\nonce  %+v\ntwice %+v", once, twice)
	}
}

func TestFlagRecordRanges(t *testing.T) {
	tests := []struct {
		name   string
		record models.PropertyRecord
		want   int
	}{
		{"clean", models.PropertyRecord{
			TotalAreaM2: floatPtr(85),
			Latitude:    floatPtr(-33.41),
			Longitude:   floatPtr(-70.58),
			Bedrooms:    intPtr(3),
			Bathrooms:   intPtr(2),
		}, 0},
		{"tiny area", models.PropertyRecord{TotalAreaM2: floatPtr(12)}, 1},
		{"huge area", models.PropertyRecord{TotalAreaM2: floatPtr(2500)}, 1},
		{"coordinates outside Santiago", models.PropertyRecord{
			Latitude:  floatPtr(-36.8),
			Longitude: floatPtr(-73.0),
		}, 1},
		{"only one coordinate is never flagged", models.PropertyRecord{
			Latitude: floatPtr(-36.8),
		}, 0},
		{"too many bedrooms", models.PropertyRecord{Bedrooms: intPtr(14)}, 1},
		{"too many bathrooms", models.PropertyRecord{Bathrooms: intPtr(9)}, 1},
		{"everything off", models.PropertyRecord{
			TotalAreaM2: floatPtr(5),
			Latitude:    floatPtr(0),
			Longitude:   floatPtr(0),
			Bedrooms:    intPtr(20),
			Bathrooms:   intPtr(12),
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := FlagRecord(&tt.record)
			if len(flags) != tt.want {
				t.Errorf("got %d flags %v, want %d", len(flags), flags, tt.want)
			}
		})
	}
}

func TestScoreFullRecord(t *testing.T) {
	r := &models.PropertyRecord{
		Price:        "8.500 UF",
		Currency:     "UF",
		Bedrooms:     intPtr(3),
		Bathrooms:    intPtr(2),
		TotalAreaM2:  floatPtr(120),
		Address:      "Av. Apoquindo 4501",
		ParkingSpots: intPtr(1),
		Latitude:     floatPtr(-33.41),
		Longitude:    floatPtr(-70.58),
		Amenities:    []string{"pool"},
		AgentInfo:    "Aconcagua",
	}

	result := Score(r)
	if result.Score != 20 {
		t.Errorf("score: got %d, want 20", result.Score)
	}
	if !result.IsValid {
		t.Error("full record should be valid")
	}
	if len(result.Issues) != 0 {
		t.Errorf("issues: %v", result.Issues)
	}
	if result.CompletenessPercent() != 100 {
		t.Errorf("completeness: %v", result.CompletenessPercent())
	}
}

func TestScoreThreshold(t *testing.T) {
	// Two core fields only: exactly at the 10-point validity floor.
	atFloor := &models.PropertyRecord{
		Price:    "$ 255.000.000",
		Currency: "CLP",
		Bedrooms: intPtr(2),
	}
	if result := Score(atFloor); !result.IsValid || result.Score != 10 {
		t.Errorf("at floor: %+v", result)
	}

	// One core field plus four bonuses falls one point short.
	below := &models.PropertyRecord{
		Bedrooms:     intPtr(2),
		Bathrooms:    intPtr(1),
		ParkingSpots: intPtr(1),
		Latitude:     floatPtr(-33.4),
		Longitude:    floatPtr(-70.6),
		Amenities:    []string{"pool"},
	}
	if result := Score(below); result.IsValid || result.Score != 9 {
		t.Errorf("below floor: %+v", result)
	}
}

func TestScoreEmptyRecord(t *testing.T) {
	result := Score(&models.PropertyRecord{})
	if result.Score != 0 || result.IsValid {
		t.Errorf("empty: %+v", result)
	}
	if len(result.Issues) != 4 {
		t.Errorf("issues: %v, want all four core issues", result.Issues)
	}
}
