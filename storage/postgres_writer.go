package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"portal-scraper/models"
)

// PostgresGateway persists property records to PostgreSQL and answers
// aggregate queries over the durable store.
type PostgresGateway struct {
	db *sql.DB
}

// NewPostgresGateway opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use gateway.
func NewPostgresGateway(dsn string) (*PostgresGateway, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	g := &PostgresGateway{db: db}
	if err := g.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return g, nil
}

func (g *PostgresGateway) migrate() error {
	_, err := g.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id                 SERIAL PRIMARY KEY,
			listing_id         TEXT UNIQUE,
			title              TEXT NOT NULL DEFAULT '',
			url                TEXT NOT NULL DEFAULT '',
			price              TEXT NOT NULL DEFAULT '',
			price_uf           DOUBLE PRECISION,
			price_clp          DOUBLE PRECISION,
			currency           TEXT NOT NULL DEFAULT '',
			maintenance_fee    TEXT NOT NULL DEFAULT '',
			bedrooms           INTEGER,
			bathrooms          INTEGER,
			total_area_m2      DOUBLE PRECISION,
			built_area_m2      DOUBLE PRECISION,
			parking_spots      INTEGER,
			address            TEXT NOT NULL DEFAULT '',
			neighborhood       TEXT NOT NULL DEFAULT '',
			comuna             TEXT NOT NULL DEFAULT '',
			latitude           DOUBLE PRECISION,
			longitude          DOUBLE PRECISION,
			floor_number       INTEGER,
			building_age_years INTEGER,
			total_floors       INTEGER,
			has_elevator       BOOLEAN,
			orientation        TEXT NOT NULL DEFAULT '',
			amenities          TEXT NOT NULL DEFAULT '[]',
			has_pool           BOOLEAN,
			has_gym            BOOLEAN,
			has_security       BOOLEAN,
			image_urls         TEXT NOT NULL DEFAULT '[]',
			video_url          TEXT NOT NULL DEFAULT '',
			listing_date       TEXT NOT NULL DEFAULT '',
			days_on_market     INTEGER,
			agent_info         TEXT NOT NULL DEFAULT '',
			scraped_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_properties_listing_id ON properties(listing_id);
		CREATE INDEX IF NOT EXISTS idx_properties_scraped_at ON properties(scraped_at);
		CREATE INDEX IF NOT EXISTS idx_properties_comuna     ON properties(comuna);
		CREATE INDEX IF NOT EXISTS idx_properties_price_uf   ON properties(price_uf);
	`)
	return err
}

// Upsert stores a record keyed on listing_id: a re-scrape of the same
// listing replaces prior fields instead of duplicating the row.
// Records without a listing id cannot conflict and insert fresh rows.
func (g *PostgresGateway) Upsert(r *models.PropertyRecord) error {
	amenities, err := json.Marshal(emptyIfNil(r.Amenities))
	if err != nil {
		return fmt.Errorf("postgres: marshal amenities: %w", err)
	}
	images, err := json.Marshal(emptyIfNil(r.ImageURLs))
	if err != nil {
		return fmt.Errorf("postgres: marshal image urls: %w", err)
	}

	const cols = `listing_id, title, url, price, price_uf, price_clp, currency, maintenance_fee,
		bedrooms, bathrooms, total_area_m2, built_area_m2, parking_spots,
		address, neighborhood, comuna, latitude, longitude, floor_number,
		building_age_years, total_floors, has_elevator, orientation,
		amenities, has_pool, has_gym, has_security,
		image_urls, video_url, listing_date, days_on_market, agent_info, scraped_at`

	const placeholders = `$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,
		$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33`

	query := fmt.Sprintf(`INSERT INTO properties (%s) VALUES (%s)`, cols, placeholders)
	if r.ListingID != "" {
		query += `
		ON CONFLICT (listing_id) DO UPDATE SET
			title = EXCLUDED.title, url = EXCLUDED.url, price = EXCLUDED.price,
			price_uf = EXCLUDED.price_uf, price_clp = EXCLUDED.price_clp,
			currency = EXCLUDED.currency, maintenance_fee = EXCLUDED.maintenance_fee,
			bedrooms = EXCLUDED.bedrooms, bathrooms = EXCLUDED.bathrooms,
			total_area_m2 = EXCLUDED.total_area_m2, built_area_m2 = EXCLUDED.built_area_m2,
			parking_spots = EXCLUDED.parking_spots, address = EXCLUDED.address,
			neighborhood = EXCLUDED.neighborhood, comuna = EXCLUDED.comuna,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			floor_number = EXCLUDED.floor_number, building_age_years = EXCLUDED.building_age_years,
			total_floors = EXCLUDED.total_floors, has_elevator = EXCLUDED.has_elevator,
			orientation = EXCLUDED.orientation, amenities = EXCLUDED.amenities,
			has_pool = EXCLUDED.has_pool, has_gym = EXCLUDED.has_gym,
			has_security = EXCLUDED.has_security, image_urls = EXCLUDED.image_urls,
			video_url = EXCLUDED.video_url, listing_date = EXCLUDED.listing_date,
			days_on_market = EXCLUDED.days_on_market, agent_info = EXCLUDED.agent_info,
			scraped_at = EXCLUDED.scraped_at`
	}

	_, err = g.db.Exec(query,
		nullIfEmpty(r.ListingID), r.Title, r.URL, r.Price, r.PriceUF, r.PriceCLP,
		r.Currency, r.MaintenanceFee,
		r.Bedrooms, r.Bathrooms, r.TotalAreaM2, r.BuiltAreaM2, r.ParkingSpots,
		r.Address, r.Neighborhood, r.Comuna, r.Latitude, r.Longitude, r.FloorNumber,
		r.BuildingAgeYears, r.TotalFloors, r.HasElevator, r.Orientation,
		string(amenities), r.HasPool, r.HasGym, r.HasSecurity,
		string(images), r.VideoURL, r.ListingDate, r.DaysOnMarket, r.AgentInfo, r.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert %q: %w", r.ListingID, err)
	}
	return nil
}

// AggregateStats summarizes the durable store: totals, field
// coverage, averages and recent scrape activity.
func (g *PostgresGateway) AggregateStats() (*models.AggregateStats, error) {
	stats := &models.AggregateStats{}

	row := g.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(price_uf),
		       COUNT(bedrooms),
		       COUNT(total_area_m2),
		       AVG(price_uf)      FILTER (WHERE price_uf > 0),
		       AVG(total_area_m2) FILTER (WHERE total_area_m2 > 0),
		       COUNT(*)           FILTER (WHERE scraped_at >= NOW() - INTERVAL '1 day')
		FROM properties
	`)

	var avgPrice, avgArea sql.NullFloat64
	if err := row.Scan(
		&stats.TotalCount, &stats.WithPrice, &stats.WithBedrooms, &stats.WithArea,
		&avgPrice, &avgArea, &stats.ScrapedLast24h,
	); err != nil {
		return nil, fmt.Errorf("postgres: aggregate stats: %w", err)
	}

	if avgPrice.Valid {
		stats.AveragePriceUF = &avgPrice.Float64
	}
	if avgArea.Valid {
		stats.AverageAreaM2 = &avgArea.Float64
	}
	return stats, nil
}

func (g *PostgresGateway) Close() error {
	return g.db.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyIfNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
