package storage

import (
	"testing"
	"time"

	"portal-scraper/models"
)

func TestMemoryUpsertReplacesOnConflict(t *testing.T) {
	g := NewMemoryGateway()

	first := models.NewPropertyRecord("1468231776", "Departamento", "https://x.cl/MLC-1468231776")
	first.Price = "8.000 UF"
	second := models.NewPropertyRecord("1468231776", "Departamento", "https://x.cl/MLC-1468231776")
	second.Price = "8.500 UF"

	if err := g.Upsert(first); err != nil {
		t.Fatal(err)
	}
	if err := g.Upsert(second); err != nil {
		t.Fatal(err)
	}

	if g.Size() != 1 {
		t.Fatalf("size: got %d, want 1 after re-scrape", g.Size())
	}
	got, ok := g.Get("1468231776")
	if !ok {
		t.Fatal("record not found")
	}
	if got.Price != "8.500 UF" {
		t.Errorf("price: got %q, want the later scrape to win", got.Price)
	}
}

func TestMemoryUpsertKeylessNeverDeduplicates(t *testing.T) {
	g := NewMemoryGateway()

	for i := 0; i < 3; i++ {
		r := models.NewPropertyRecord("", "Sin ID", "https://x.cl/departamento")
		if err := g.Upsert(r); err != nil {
			t.Fatal(err)
		}
	}
	if g.Size() != 3 {
		t.Errorf("size: got %d, want 3 keyless inserts", g.Size())
	}
}

func TestMemoryAggregateStats(t *testing.T) {
	g := NewMemoryGateway()

	withAll := models.NewPropertyRecord("1", "a", "u1")
	price := 8000.0
	area := 100.0
	beds := 3
	withAll.PriceUF = &price
	withAll.TotalAreaM2 = &area
	withAll.Bedrooms = &beds

	bare := models.NewPropertyRecord("2", "b", "u2")

	stale := models.NewPropertyRecord("3", "c", "u3")
	stale.ScrapedAt = time.Now().Add(-48 * time.Hour)
	stalePrice := 4000.0
	stale.PriceUF = &stalePrice

	for _, r := range []*models.PropertyRecord{withAll, bare, stale} {
		if err := g.Upsert(r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := g.AggregateStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCount != 3 {
		t.Errorf("total: %d", stats.TotalCount)
	}
	if stats.WithPrice != 2 || stats.WithBedrooms != 1 || stats.WithArea != 1 {
		t.Errorf("field counts: %+v", stats)
	}
	if stats.AveragePriceUF == nil || *stats.AveragePriceUF != 6000 {
		t.Errorf("avg price: %v, want 6000", stats.AveragePriceUF)
	}
	if stats.AverageAreaM2 == nil || *stats.AverageAreaM2 != 100 {
		t.Errorf("avg area: %v, want 100", stats.AverageAreaM2)
	}
	if stats.ScrapedLast24h != 2 {
		t.Errorf("last 24h: %d, want 2", stats.ScrapedLast24h)
	}
}
