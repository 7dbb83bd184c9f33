package storage

import (
	"sync"
	"time"

	"portal-scraper/models"
)

// MemoryGateway is the in-memory Gateway used when the persistent
// store is disabled. File export stays the only durable path in that
// mode; this keeps the upsert and stats contracts available to the
// rest of the pipeline and to tests.
type MemoryGateway struct {
	mu      sync.Mutex
	byID    map[string]*models.PropertyRecord
	keyless []*models.PropertyRecord
}

// NewMemoryGateway creates an empty in-memory store.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{byID: make(map[string]*models.PropertyRecord)}
}

// Upsert replaces any record with the same ListingID. Records without
// an id never deduplicate; each one is kept as a new entry.
func (m *MemoryGateway) Upsert(r *models.PropertyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ListingID == "" {
		m.keyless = append(m.keyless, r)
		return nil
	}
	m.byID[r.ListingID] = r
	return nil
}

// Get returns the stored record for a listing id, if any.
func (m *MemoryGateway) Get(listingID string) (*models.PropertyRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[listingID]
	return r, ok
}

// AggregateStats computes the same summary the relational store would.
func (m *MemoryGateway) AggregateStats() (*models.AggregateStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &models.AggregateStats{}
	var priceSum, areaSum float64
	var priceN, areaN int
	dayAgo := time.Now().Add(-24 * time.Hour)

	for _, r := range m.all() {
		stats.TotalCount++
		if r.PriceUF != nil {
			stats.WithPrice++
			if *r.PriceUF > 0 {
				priceSum += *r.PriceUF
				priceN++
			}
		}
		if r.Bedrooms != nil {
			stats.WithBedrooms++
		}
		if r.TotalAreaM2 != nil {
			stats.WithArea++
			if *r.TotalAreaM2 > 0 {
				areaSum += *r.TotalAreaM2
				areaN++
			}
		}
		if r.ScrapedAt.After(dayAgo) {
			stats.ScrapedLast24h++
		}
	}

	if priceN > 0 {
		avg := priceSum / float64(priceN)
		stats.AveragePriceUF = &avg
	}
	if areaN > 0 {
		avg := areaSum / float64(areaN)
		stats.AverageAreaM2 = &avg
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryGateway) Close() error { return nil }

// Size returns the number of stored records.
func (m *MemoryGateway) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID) + len(m.keyless)
}

func (m *MemoryGateway) all() []*models.PropertyRecord {
	out := make([]*models.PropertyRecord, 0, len(m.byID)+len(m.keyless))
	for _, r := range m.byID {
		out = append(out, r)
	}
	out = append(out, m.keyless...)
	return out
}
