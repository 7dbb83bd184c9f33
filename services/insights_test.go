package services

import (
	"testing"

	"portal-scraper/models"
	"portal-scraper/utils"
)

func record(comuna string, beds int, priceUF, area float64) *models.PropertyRecord {
	return &models.PropertyRecord{
		Price:       "x",
		Currency:    "UF",
		PriceUF:     &priceUF,
		Bedrooms:    &beds,
		TotalAreaM2: &area,
		Comuna:      comuna,
		Address:     "somewhere",
	}
}

func TestGenerateInsights(t *testing.T) {
	records := []*models.PropertyRecord{
		record("Las Condes", 2, 4000, 60),
		record("Las Condes", 3, 8000, 120),
		record("Providencia", 2, 6000, 90),
	}

	svc := NewInsightService(utils.NewLogger())
	report := svc.Generate(records, nil)

	if report.TotalRecords != 3 {
		t.Errorf("total: %d", report.TotalRecords)
	}
	if report.ValidRecords != 3 {
		t.Errorf("valid: %d", report.ValidRecords)
	}
	if report.MinPriceUF != 4000 || report.MaxPriceUF != 8000 || report.AvgPriceUF != 6000 {
		t.Errorf("price stats: min %v max %v avg %v",
			report.MinPriceUF, report.MaxPriceUF, report.AvgPriceUF)
	}
	if report.MinAreaM2 != 60 || report.MaxAreaM2 != 120 || report.AvgAreaM2 != 90 {
		t.Errorf("area stats: min %v max %v avg %v",
			report.MinAreaM2, report.MaxAreaM2, report.AvgAreaM2)
	}
	if report.BedroomCounts[2] != 2 || report.BedroomCounts[3] != 1 {
		t.Errorf("bedroom counts: %v", report.BedroomCounts)
	}
	if report.ByComuna["Las Condes"] != 2 || report.ByComuna["Providencia"] != 1 {
		t.Errorf("by comuna: %v", report.ByComuna)
	}
}

func TestGenerateInsightsEmpty(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	report := svc.Generate(nil, nil)
	if report.TotalRecords != 0 || report.ValidRecords != 0 {
		t.Errorf("empty report: %+v", report)
	}
	if report.BedroomCounts == nil || report.ByComuna == nil {
		t.Error("maps must be initialized even for empty input")
	}
}
