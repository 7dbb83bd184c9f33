package portal

import (
	"time"

	"portal-scraper/browser"
	"portal-scraper/config"
	"portal-scraper/models"
	"portal-scraper/services"
	"portal-scraper/storage"
	"portal-scraper/utils"
)

// Enrichment for the rest of a batch is abandoned once more than this
// fraction of attempted listings has failed.
const failureRateThreshold = 0.30

// Scraper orchestrates the full crawl: listing discovery, detail
// enrichment, cleaning/validation and persistence, as one sequential
// pipeline. The pipeline is deliberately not parallelized across
// listings; the pacing contract requires a strict global ordering of
// outbound requests against the single target host.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	cleaner *services.Cleaner
	gateway storage.Gateway
	writer  storage.RecordWriter
	retry   *utils.RetryConfig

	// newSession is swappable so tests can inject a fake browser.
	newSession func() (browser.Session, error)
}

// New creates a ready-to-use Scraper. gateway may be nil when the
// persistent store is disabled; file export then remains the durable
// path.
func New(cfg *config.Config, logger *utils.Logger, gateway storage.Gateway, writer storage.RecordWriter) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		cleaner: services.NewCleaner(logger),
		gateway: gateway,
		writer:  writer,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetriesPerListing,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		newSession: func() (browser.Session, error) {
			return browser.NewChromeSession(cfg.ChromeBin)
		},
	}
}

// Run executes one crawl session and always returns whatever partial
// result set was collected, together with attempt counters. The only
// error it surfaces is a browser that could not be launched at all.
func (s *Scraper) Run() ([]*models.PropertyRecord, *models.SessionStats, error) {
	stats := &models.SessionStats{}

	sess, err := s.newSession()
	if err != nil {
		return nil, stats, err
	}
	// The single browser session is shared by both phases and must be
	// released on every exit path.
	defer sess.Close()

	pacer := NewPacingScheduler(s.cfg, s.logger)

	s.logger.Info("[portal] Phase 1: listing discovery — up to %d pages, %d listings",
		s.cfg.MaxPagesPerSession, s.cfg.MaxListingsPerSession)

	discovery := NewDiscovery(s.cfg, s.logger, sess, pacer)
	refs, blocked, pages := discovery.Run(s.cfg.SearchURL)
	stats.Discovered = len(refs)
	stats.PagesScraped = pages
	stats.Blocked = blocked

	if blocked {
		s.logger.Warn("[portal] Discovery ended on a blocking page — keeping %d references", len(refs))
	}
	if len(refs) == 0 {
		s.logger.Warn("[portal] No listings discovered")
		return nil, stats, nil
	}

	s.logger.Info("[portal] Phase 2: enriching %d listings", len(refs))
	records := s.enrichAll(sess, pacer, refs, stats)

	if err := s.writer.WriteAll(records); err != nil {
		s.logger.Error("[portal] Export write failed: %v", err)
	}

	s.logger.Info("[portal] Session done — attempted %d, succeeded %d, failed %d",
		stats.Attempted, stats.Succeeded, stats.Failed)
	return records, stats, nil
}

// enrichAll walks the references in discovery order, enforcing the
// failure-rate circuit breaker and the batch-save cadence.
func (s *Scraper) enrichAll(sess browser.Session, pacer *PacingScheduler, refs []*models.ListingReference, stats *models.SessionStats) []*models.PropertyRecord {
	enricher := NewEnricher(s.cfg, s.logger, sess, pacer)

	var records []*models.PropertyRecord
	var batch []*models.PropertyRecord

	for i, ref := range refs {
		if ref.DetailURL == "" {
			s.logger.Warn("[portal] Listing %d/%d has no detail URL — skipping", i+1, len(refs))
			stats.Attempted++
			stats.Failed++
		} else {
			stats.Attempted++
			record, err := s.enrichOne(enricher, ref)
			if err != nil {
				s.logger.Warn("[portal] Listing %d/%d failed: %v", i+1, len(refs), err)
				stats.Failed++
			} else {
				stats.Succeeded++
				record = s.finishRecord(record)
				records = append(records, record)
				batch = append(batch, record)

				if len(batch) >= s.cfg.BatchSaveSize {
					s.flushBatch(batch)
					batch = nil
				}
			}
		}

		if i%10 == 9 {
			s.logger.Info("[portal] Progress: %d/%d (%.1f%% success)",
				i+1, len(refs), stats.SuccessRate()*100)
		}

		if stats.Attempted >= 1 && stats.FailureRate() > failureRateThreshold {
			s.logger.Warn("[portal] Failure rate %.0f%% exceeds %.0f%% — aborting remaining %d listings",
				stats.FailureRate()*100, failureRateThreshold*100, len(refs)-i-1)
			stats.BreakerFired = true
			break
		}
	}

	if len(batch) > 0 {
		s.flushBatch(batch)
	}
	return records
}

func (s *Scraper) enrichOne(enricher *Enricher, ref *models.ListingReference) (*models.PropertyRecord, error) {
	var record *models.PropertyRecord
	err := s.retry.Do("enrich-listing", func() error {
		var err error
		record, err = enricher.Enrich(ref)
		return err
	})
	return record, err
}

// finishRecord runs cleaning and validation scoring on a freshly
// enriched record and stores it through the gateway.
func (s *Scraper) finishRecord(record *models.PropertyRecord) *models.PropertyRecord {
	if s.cfg.ValidateData {
		record = s.cleaner.Clean(record)
		result := services.Score(record)
		if !result.IsValid {
			s.logger.Warn("[portal] Low data quality for %s (%.0f%%): %v",
				record.ListingID, result.CompletenessPercent(), result.Issues)
		}
	}

	if s.gateway != nil {
		if err := s.gateway.Upsert(record); err != nil {
			// Persistence failures never abort the run; the file
			// export stays the record of truth.
			s.logger.Error("[portal] Upsert failed for %s: %v", record.ListingID, err)
		}
	}
	return record
}

func (s *Scraper) flushBatch(batch []*models.PropertyRecord) {
	if err := s.writer.WriteBatch(batch); err != nil {
		s.logger.Error("[portal] Batch write failed: %v", err)
		return
	}
	s.logger.Info("[portal] Saved batch of %d properties", len(batch))
}
