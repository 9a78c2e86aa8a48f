package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/metrics"
)

const (
	InsightWarning     = "warning"
	InsightOpportunity = "opportunity"
	InsightSuccess     = "success"
)

// Insight is one rule-based observation about a section
type Insight struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Rule    string                 `json:"rule"`
	Section string                 `json:"section"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Action  string                 `json:"action"`
	Metrics map[string]interface{} `json:"metrics"`
}

type InsightReport struct {
	StoreID     string    `json:"store_id"`
	Insights    []Insight `json:"insights"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Rule inspects one section and returns an insight or nil
type Rule interface {
	Name() string
	Evaluate(s SectionEngagement) *Insight
}

// LowEngagementRule flags busy sections where customers leave quickly
type LowEngagementRule struct {
	minVisits  int64
	maxAvgTime float64
}

func NewLowEngagementRule(cfg config.LowEngagementConfig) *LowEngagementRule {
	return &LowEngagementRule{minVisits: cfg.MinVisits, maxAvgTime: cfg.MaxAvgTimeSecs}
}

func (r *LowEngagementRule) Name() string { return "low_engagement" }

func (r *LowEngagementRule) Evaluate(s SectionEngagement) *Insight {
	if s.Visits <= r.minVisits || s.AvgTime >= r.maxAvgTime {
		return nil
	}
	return &Insight{
		Type:    InsightWarning,
		Rule:    r.Name(),
		Section: s.Section,
		Title:   fmt.Sprintf("Low engagement in %s", s.Section),
		Message: fmt.Sprintf("%s gets %d visits but customers stay only %.0fs on average", s.Section, s.Visits, s.AvgTime),
		Action:  "Reorganize the displays in this section to hold attention longer",
		Metrics: map[string]interface{}{
			"visits":                 s.Visits,
			"avg_time_spent_seconds": s.AvgTime,
		},
	}
}

// HiddenGemRule flags rarely visited sections where visitors linger
type HiddenGemRule struct {
	maxVisits  int64
	minAvgTime float64
}

func NewHiddenGemRule(cfg config.HiddenGemConfig) *HiddenGemRule {
	return &HiddenGemRule{maxVisits: cfg.MaxVisits, minAvgTime: cfg.MinAvgTimeSecs}
}

func (r *HiddenGemRule) Name() string { return "hidden_gem" }

func (r *HiddenGemRule) Evaluate(s SectionEngagement) *Insight {
	if s.Visits >= r.maxVisits || s.AvgTime <= r.minAvgTime {
		return nil
	}
	return &Insight{
		Type:    InsightOpportunity,
		Rule:    r.Name(),
		Section: s.Section,
		Title:   fmt.Sprintf("Hidden gem: %s", s.Section),
		Message: fmt.Sprintf("Only %d visits to %s, but visitors stay %.0fs on average", s.Visits, s.Section, s.AvgTime),
		Action:  "Add wayfinding signage or move this section closer to the entrance",
		Metrics: map[string]interface{}{
			"visits":                 s.Visits,
			"avg_time_spent_seconds": s.AvgTime,
		},
	}
}

// StrongInterestRule flags sections where customers handle many items per visit
type StrongInterestRule struct {
	minAvgItems float64
}

func NewStrongInterestRule(cfg config.StrongInterestConfig) *StrongInterestRule {
	return &StrongInterestRule{minAvgItems: cfg.MinAvgItems}
}

func (r *StrongInterestRule) Name() string { return "strong_interest" }

func (r *StrongInterestRule) Evaluate(s SectionEngagement) *Insight {
	if s.AvgItems <= r.minAvgItems {
		return nil
	}
	return &Insight{
		Type:    InsightSuccess,
		Rule:    r.Name(),
		Section: s.Section,
		Title:   fmt.Sprintf("Strong interest in %s", s.Section),
		Message: fmt.Sprintf("Customers touch %.1f items per visit in %s", s.AvgItems, s.Section),
		Action:  "Expand inventory depth and variety in this section",
		Metrics: map[string]interface{}{
			"visits":            s.Visits,
			"avg_items_touched": s.AvgItems,
		},
	}
}

type AlertPublisher interface {
	ProduceAlert(ctx context.Context, storeID string, alert interface{}) error
}

// InsightGenerator runs each rule over every section, one rule at a time
type InsightGenerator struct {
	rules       []Rule
	maxInsights int
	alerts      AlertPublisher
	now         func() time.Time
}

func NewInsightGenerator(cfg config.InsightsConfig, alerts AlertPublisher) *InsightGenerator {
	return &InsightGenerator{
		rules: []Rule{
			NewLowEngagementRule(cfg.LowEngagement),
			NewHiddenGemRule(cfg.HiddenGem),
			NewStrongInterestRule(cfg.StrongInterest),
		},
		maxInsights: cfg.MaxInsights,
		alerts:      alerts,
		now:         time.Now,
	}
}

// Generate concatenates the insights of every rule pass in rule order and keeps the first maxInsights
func (g *InsightGenerator) Generate(storeID string, sections []SectionEngagement) *InsightReport {
	insights := []Insight{}
	for _, rule := range g.rules {
		for _, s := range sections {
			if insight := rule.Evaluate(s); insight != nil {
				insight.ID = uuid.NewString()
				insights = append(insights, *insight)
			}
		}
	}

	if g.maxInsights > 0 && len(insights) > g.maxInsights {
		insights = insights[:g.maxInsights]
	}

	for _, in := range insights {
		metrics.InsightsGenerated.WithLabelValues(in.Type).Inc()
	}

	return &InsightReport{
		StoreID:     storeID,
		Insights:    insights,
		GeneratedAt: g.now().UTC(),
	}
}

// Publish sends each insight to the alerts stream. Failures are logged only.
func (g *InsightGenerator) Publish(ctx context.Context, report *InsightReport) {
	if g.alerts == nil {
		return
	}

	for _, in := range report.Insights {
		alert := map[string]interface{}{
			"insight_id":   in.ID,
			"type":         in.Type,
			"rule":         in.Rule,
			"store_id":     report.StoreID,
			"section":      in.Section,
			"message":      in.Message,
			"metrics":      in.Metrics,
			"generated_at": report.GeneratedAt,
			"published_at": time.Now().UnixMilli(),
		}
		if err := g.alerts.ProduceAlert(ctx, report.StoreID, alert); err != nil {
			log.Error().Err(err).Str("rule", in.Rule).Str("store_id", report.StoreID).Msg("Failed to publish insight alert")
		}
	}
}
