package storage

import "portal-scraper/models"

// Gateway is the persistence boundary the crawl core writes through.
// Upsert is keyed on ListingID with replace-on-conflict semantics; a
// record with an empty ListingID cannot deduplicate and is inserted
// as a new row.
type Gateway interface {
	Upsert(record *models.PropertyRecord) error
	AggregateStats() (*models.AggregateStats, error)
	Close() error
}

// RecordWriter persists batches of records to files; it remains the
// durable fallback when the gateway is disabled or failing.
type RecordWriter interface {
	WriteBatch(records []*models.PropertyRecord) error
	WriteAll(records []*models.PropertyRecord) error
	Close() error
}
