package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/metrics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
)

// InsufficientDataMessage is returned in place of section recommendations when a section has no events
const InsufficientDataMessage = "Not enough data yet"

type ItemRecommendation struct {
	Item                 string  `json:"item"`
	TimesBrowsedTogether int     `json:"times_browsed_together"`
	Confidence           float64 `json:"confidence"`
}

type ItemRecommendations struct {
	Section          string               `json:"section"`
	BasedOnItems     []string             `json:"based_on_items"`
	Recommendations  []ItemRecommendation `json:"recommendations"`
	SimilarCustomers int                  `json:"similar_customers"`
}

type SectionRecommendation struct {
	Section    string  `json:"section"`
	Frequency  int     `json:"frequency"`
	Percentage float64 `json:"percentage"`
}

// SectionRecommendations holds either a ranked list or, when the section has no history, only Message
type SectionRecommendations struct {
	IfCustomerBrowses string                  `json:"if_customer_browses"`
	TheyAlsoVisit     []SectionRecommendation `json:"they_also_visit"`
	Message           string                  `json:"-"`
}

// Insufficient reports whether the result is the empty-history state
func (r *SectionRecommendations) Insufficient() bool {
	return r.Message != ""
}

// Engine derives co-occurrence recommendations from the event log
type Engine struct {
	store store.EventStore
	cfg   config.RecommendConfig
}

func NewEngine(s store.EventStore, cfg config.RecommendConfig) *Engine {
	return &Engine{store: s, cfg: cfg}
}

// RecommendItems counts the items handled alongside any of items in the same section
func (e *Engine) RecommendItems(ctx context.Context, storeID, section string, items []string) (*ItemRecommendations, error) {
	matched, err := e.store.Find(ctx, store.Filter{
		StoreID:  storeID,
		Section:  section,
		ItemsAny: items,
	}, store.FindOptions{Limit: e.cfg.ItemMatchLimit})
	if err != nil {
		metrics.Recommendations.WithLabelValues("items", "error").Inc()
		return nil, fmt.Errorf("recommend items: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item] = struct{}{}
	}

	counts := make(map[string]int)
	for _, ev := range matched {
		for _, item := range ev.ItemsTouched {
			if _, ok := seen[item]; ok {
				continue
			}
			counts[item]++
		}
	}

	ranked := rank(counts, e.cfg.ItemTopN)
	recs := make([]ItemRecommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, ItemRecommendation{
			Item:                 r.key,
			TimesBrowsedTogether: r.count,
			Confidence:           percentage(r.count, len(matched)),
		})
	}

	outcome := "ok"
	if len(recs) == 0 {
		outcome = "empty"
	}
	metrics.Recommendations.WithLabelValues("items", outcome).Inc()

	log.Debug().
		Str("store_id", storeID).
		Str("section", section).
		Int("matched", len(matched)).
		Int("recommendations", len(recs)).
		Msg("Item recommendations computed")

	basedOn := make([]string, len(items))
	copy(basedOn, items)

	return &ItemRecommendations{
		Section:          section,
		BasedOnItems:     basedOn,
		Recommendations:  recs,
		SimilarCustomers: len(matched),
	}, nil
}

// RecommendSections ranks the other sections seen together with current.
// With no co-visit window every matched event shares current's section, so the list is always empty.
func (e *Engine) RecommendSections(ctx context.Context, storeID, current string) (*SectionRecommendations, error) {
	matched, err := e.store.Find(ctx, store.Filter{
		StoreID: storeID,
		Section: current,
	}, store.FindOptions{Limit: e.cfg.SectionMatchLimit})
	if err != nil {
		metrics.Recommendations.WithLabelValues("sections", "error").Inc()
		return nil, fmt.Errorf("recommend sections: %w", err)
	}

	if len(matched) == 0 {
		metrics.Recommendations.WithLabelValues("sections", "insufficient").Inc()
		return &SectionRecommendations{Message: InsufficientDataMessage}, nil
	}

	var counts map[string]int
	if e.cfg.SectionCovisitWindow > 0 {
		counts, err = e.covisits(ctx, storeID, current, matched)
		if err != nil {
			metrics.Recommendations.WithLabelValues("sections", "error").Inc()
			return nil, err
		}
	} else {
		counts = make(map[string]int)
		for _, ev := range matched {
			counts[ev.Section]++
		}
		delete(counts, current)
	}

	ranked := rank(counts, e.cfg.SectionTopN)
	recs := make([]SectionRecommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, SectionRecommendation{
			Section:    r.key,
			Frequency:  r.count,
			Percentage: percentage(r.count, len(matched)),
		})
	}

	outcome := "ok"
	if len(recs) == 0 {
		outcome = "empty"
	}
	metrics.Recommendations.WithLabelValues("sections", outcome).Inc()

	return &SectionRecommendations{
		IfCustomerBrowses: current,
		TheyAlsoVisit:     recs,
	}, nil
}

// covisits counts, per anchor event, each other section visited within the window around it
func (e *Engine) covisits(ctx context.Context, storeID, current string, anchors []model.InteractionEvent) (map[string]int, error) {
	window := e.cfg.SectionCovisitWindow

	earliest, latest := anchors[0].Timestamp, anchors[0].Timestamp
	for _, a := range anchors[1:] {
		if a.Timestamp.Before(earliest) {
			earliest = a.Timestamp
		}
		if a.Timestamp.After(latest) {
			latest = a.Timestamp
		}
	}

	nearby, err := e.store.Find(ctx, store.Filter{
		StoreID: storeID,
		Since:   earliest.Add(-window),
		Until:   latest.Add(window),
	}, store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("co-visit lookup: %w", err)
	}

	counts := make(map[string]int)
	for _, a := range anchors {
		visited := make(map[string]struct{})
		for _, ev := range nearby {
			if ev.Section == current {
				continue
			}
			if absDuration(ev.Timestamp.Sub(a.Timestamp)) > window {
				continue
			}
			visited[ev.Section] = struct{}{}
		}
		for section := range visited {
			counts[section]++
		}
	}
	return counts, nil
}

type ranked struct {
	key   string
	count int
}

// rank orders by count descending then key ascending and keeps the first n
func rank(counts map[string]int, n int) []ranked {
	out := make([]ranked, 0, len(counts))
	for k, c := range counts {
		out = append(out, ranked{key: k, count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(count) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
