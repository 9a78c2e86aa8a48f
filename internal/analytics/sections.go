package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
)

// SectionStat is one row of the section summary. TotalItemsTouched is a sum.
type SectionStat struct {
	Section           string  `json:"section"`
	Visits            int64   `json:"visits"`
	AvgTime           float64 `json:"avg_time"`
	TotalItemsTouched int64   `json:"total_items_touched"`
}

type SectionSummary struct {
	StoreID            string        `json:"store_id"`
	TopSections        []SectionStat `json:"top_sections"`
	TotalSessionsToday int64         `json:"total_sessions_today"`
}

// SectionEngagement is one section with per-visit averages. It feeds the insight rules.
type SectionEngagement struct {
	Section  string  `json:"section"`
	Visits   int64   `json:"visits"`
	AvgTime  float64 `json:"avg_time"`
	AvgItems float64 `json:"avg_items"`
}

// Analyzer computes per-section aggregates for a store
type Analyzer struct {
	store    store.EventStore
	insights *InsightGenerator
	now      func() time.Time
}

func NewAnalyzer(s store.EventStore, insights *InsightGenerator) *Analyzer {
	return &Analyzer{
		store:    s,
		insights: insights,
		now:      time.Now,
	}
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SectionSummary ranks sections by visits and counts the store's events since local midnight
func (a *Analyzer) SectionSummary(ctx context.Context, storeID string) (*SectionSummary, error) {
	groups, err := a.store.AggregateSections(ctx, storeID, store.SumItems)
	if err != nil {
		return nil, fmt.Errorf("section summary: %w", err)
	}

	today, err := a.store.Count(ctx, store.Filter{
		StoreID: storeID,
		Since:   StartOfDay(a.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("sessions today: %w", err)
	}

	stats := make([]SectionStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, SectionStat{
			Section:           g.Section,
			Visits:            g.Visits,
			AvgTime:           g.AvgTime,
			TotalItemsTouched: int64(math.Round(g.Items)),
		})
	}

	return &SectionSummary{
		StoreID:            storeID,
		TopSections:        stats,
		TotalSessionsToday: today,
	}, nil
}

// SectionEngagement ranks sections by visits with the mean items touched per visit
func (a *Analyzer) SectionEngagement(ctx context.Context, storeID string) ([]SectionEngagement, error) {
	groups, err := a.store.AggregateSections(ctx, storeID, store.AvgItems)
	if err != nil {
		return nil, fmt.Errorf("section engagement: %w", err)
	}

	out := make([]SectionEngagement, 0, len(groups))
	for _, g := range groups {
		out = append(out, SectionEngagement{
			Section:  g.Section,
			Visits:   g.Visits,
			AvgTime:  g.AvgTime,
			AvgItems: g.Items,
		})
	}
	return out, nil
}

// ActionableInsights runs the insight rules over the store's section engagement
func (a *Analyzer) ActionableInsights(ctx context.Context, storeID string) (*InsightReport, error) {
	sections, err := a.SectionEngagement(ctx, storeID)
	if err != nil {
		return nil, err
	}

	report := a.insights.Generate(storeID, sections)
	a.insights.Publish(ctx, report)
	return report, nil
}
