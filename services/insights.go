package services

import (
	"fmt"
	"sort"
	"strings"

	"portal-scraper/models"
	"portal-scraper/utils"
)

// InsightReport holds the computed analytics over a scrape session.
type InsightReport struct {
	TotalRecords    int
	ValidRecords    int
	AvgCompleteness float64

	AvgPriceUF float64
	MinPriceUF float64
	MaxPriceUF float64

	MinAreaM2 float64
	MaxAreaM2 float64
	AvgAreaM2 float64

	BedroomCounts map[int]int
	ByComuna      map[string]int

	Store *models.AggregateStats
}

// InsightService computes and prints session analytics.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarizes the session's records, folding in durable-store
// aggregates when available.
func (s *InsightService) Generate(records []*models.PropertyRecord, store *models.AggregateStats) *InsightReport {
	report := &InsightReport{
		BedroomCounts: make(map[int]int),
		ByComuna:      make(map[string]int),
		Store:         store,
	}

	if len(records) == 0 {
		return report
	}
	report.TotalRecords = len(records)

	var completenessSum float64
	var prices, areas []float64

	for _, r := range records {
		result := Score(r)
		completenessSum += result.CompletenessPercent()
		if result.IsValid {
			report.ValidRecords++
		}

		if r.PriceUF != nil && *r.PriceUF > 0 {
			prices = append(prices, *r.PriceUF)
		}
		if r.TotalAreaM2 != nil && *r.TotalAreaM2 > 0 {
			areas = append(areas, *r.TotalAreaM2)
		}
		if r.Bedrooms != nil {
			report.BedroomCounts[*r.Bedrooms]++
		}
		if r.Comuna != "" {
			report.ByComuna[r.Comuna]++
		}
	}

	report.AvgCompleteness = round2(completenessSum / float64(len(records)))
	report.MinPriceUF, report.MaxPriceUF, report.AvgPriceUF = minMaxAvg(prices)
	report.MinAreaM2, report.MaxAreaM2, report.AvgAreaM2 = minMaxAvg(areas)

	return report
}

// Print renders the report to the terminal.
func (s *InsightService) Print(r *InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 PROPERTY SCRAPE INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Records this session   : \033[1m%d\033[0m\n", r.TotalRecords)
	fmt.Printf("  Valid (≥50%% complete)  : \033[1m%d\033[0m\n", r.ValidRecords)
	fmt.Printf("  Avg completeness       : \033[1m%.1f%%\033[0m\n", r.AvgCompleteness)
	fmt.Println()

	// Price stats
	fmt.Printf("\033[1;33m  Price Statistics (UF)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AvgPriceUF > 0 {
		fmt.Printf("  Average : \033[1;32mUF %.0f\033[0m\n", r.AvgPriceUF)
		fmt.Printf("  Minimum : \033[1;32mUF %.0f\033[0m\n", r.MinPriceUF)
		fmt.Printf("  Maximum : \033[1;32mUF %.0f\033[0m\n", r.MaxPriceUF)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	// Area stats
	fmt.Printf("\033[1;33m  Area Statistics (m²)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AvgAreaM2 > 0 {
		fmt.Printf("  Range   : %.0f – %.0f m²\n", r.MinAreaM2, r.MaxAreaM2)
		fmt.Printf("  Average : %.0f m²\n", r.AvgAreaM2)
	} else {
		fmt.Printf("  No area data available\n")
	}
	fmt.Println()

	// Bedroom distribution
	fmt.Printf("\033[1;33m  Bedroom Distribution\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.BedroomCounts) == 0 {
		fmt.Printf("  No bedroom data\n")
	} else {
		var beds []int
		for b := range r.BedroomCounts {
			beds = append(beds, b)
		}
		sort.Ints(beds)
		for _, b := range beds {
			fmt.Printf("  %d dorm %s (%d)\n", b,
				strings.Repeat("█", r.BedroomCounts[b]), r.BedroomCounts[b])
		}
	}
	fmt.Println()

	// Listings by comuna
	fmt.Printf("\033[1;33m  Listings by Comuna\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByComuna) == 0 {
		fmt.Printf("  No comuna data\n")
	} else {
		type comunaCount struct {
			comuna string
			count  int
		}
		var counts []comunaCount
		for c, n := range r.ByComuna {
			counts = append(counts, comunaCount{c, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			return counts[i].count > counts[j].count
		})
		for _, cc := range counts {
			fmt.Printf("  %-30s %s (%d)\n", truncate(cc.comuna, 28),
				strings.Repeat("█", cc.count), cc.count)
		}
	}

	// Durable store
	if r.Store != nil {
		fmt.Println()
		fmt.Printf("\033[1;33m  Durable Store\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  Total properties  : %d\n", r.Store.TotalCount)
		fmt.Printf("  With price        : %d\n", r.Store.WithPrice)
		fmt.Printf("  With bedrooms     : %d\n", r.Store.WithBedrooms)
		fmt.Printf("  With area         : %d\n", r.Store.WithArea)
		if r.Store.AveragePriceUF != nil {
			fmt.Printf("  Average price     : UF %.0f\n", *r.Store.AveragePriceUF)
		}
		if r.Store.AverageAreaM2 != nil {
			fmt.Printf("  Average area      : %.0f m²\n", *r.Store.AverageAreaM2)
		}
		fmt.Printf("  Scraped last 24h  : %d\n", r.Store.ScrapedLast24h)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func minMaxAvg(values []float64) (min, max, avg float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	min, max = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, round2(sum / float64(len(values)))
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
