package models

import "testing"

func TestSessionStatsRates(t *testing.T) {
	var empty SessionStats
	if empty.SuccessRate() != 0 || empty.FailureRate() != 0 {
		t.Error("rates before first attempt must be zero")
	}

	s := SessionStats{Attempted: 8, Succeeded: 6, Failed: 2}
	if s.SuccessRate() != 0.75 {
		t.Errorf("success rate: %v", s.SuccessRate())
	}
	if s.FailureRate() != 0.25 {
		t.Errorf("failure rate: %v", s.FailureRate())
	}
}

func TestNewPropertyRecordSetsTimestamp(t *testing.T) {
	r := NewPropertyRecord("123", "Departamento", "https://x.cl/MLC-123")
	if r.ScrapedAt.IsZero() {
		t.Error("scraped_at must be set at construction")
	}
	if r.ListingID != "123" || r.Title != "Departamento" {
		t.Errorf("fields: %+v", r)
	}
}

func TestCompletenessPercent(t *testing.T) {
	v := ValidationResult{Score: 15}
	if v.CompletenessPercent() != 75 {
		t.Errorf("got %v, want 75", v.CompletenessPercent())
	}
}
