package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

const DefaultStoreID = "demo-store-001"

// Catalog maps each demo section to its items
var Catalog = map[string][]string{
	"athletic":    {"nike-shoes-001", "adidas-shorts-002", "puma-top-003", "under-armour-leggings-004"},
	"formal":      {"blazer-black-001", "dress-shirt-white-002", "trousers-navy-003", "tie-silk-004"},
	"casual":      {"jeans-blue-001", "tshirt-plain-002", "hoodie-gray-003", "sweater-wool-004"},
	"accessories": {"belt-leather-001", "watch-sport-002", "sunglasses-003", "bag-tote-004"},
	"footwear":    {"boots-leather-001", "sneakers-white-002", "loafers-brown-003", "sandals-004"},
	"outerwear":   {"jacket-denim-001", "coat-winter-002", "raincoat-003", "vest-puffer-004"},
}

// Sections lists Catalog's keys in a fixed order
var Sections = []string{"athletic", "formal", "casual", "accessories", "footwear", "outerwear"}

var (
	ageRanges = []string{"18-24", "25-34", "35-44", "45-54", "55+"}
	genders   = []string{"M", "F", "NB"}

	// Opening hours 9..20, busiest around midday and early evening
	openingHour = 9
	hourWeights = []int{1, 2, 3, 5, 7, 8, 10, 9, 7, 5, 3, 2}
)

const (
	maxDaysAgo   = 7
	minTimeSpent = 30
	maxTimeSpent = 600
	associates   = 5
)

// Generator produces plausible demo interaction events
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns n events for storeID spread over the week before now
func (g *Generator) Generate(storeID string, n int, now time.Time) []*model.InteractionEvent {
	events := make([]*model.InteractionEvent, 0, n)
	for i := 0; i < n; i++ {
		section := Sections[g.rng.Intn(len(Sections))]

		events = append(events, &model.InteractionEvent{
			StoreID:          storeID,
			Section:          section,
			ItemsTouched:     g.sample(Catalog[section], 1+g.rng.Intn(len(Catalog[section]))),
			TimeSpentSeconds: minTimeSpent + g.rng.Intn(maxTimeSpent-minTimeSpent+1),
			Demographics: map[string]interface{}{
				"age_range": ageRanges[g.rng.Intn(len(ageRanges))],
				"gender":    genders[g.rng.Intn(len(genders))],
			},
			AssociateID: fmt.Sprintf("associate-%02d", 1+g.rng.Intn(associates)),
			Timestamp:   g.timestamp(now),
		})
	}
	return events
}

// sample picks k distinct items
func (g *Generator) sample(items []string, k int) []string {
	out := make([]string, 0, k)
	for _, idx := range g.rng.Perm(len(items))[:k] {
		out = append(out, items[idx])
	}
	return out
}

func (g *Generator) timestamp(now time.Time) time.Time {
	now = now.UTC()
	day := now.AddDate(0, 0, -g.rng.Intn(maxDaysAgo+1))
	hour := openingHour + g.weightedHour()
	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, g.rng.Intn(60), g.rng.Intn(60), 0, time.UTC)
	if ts.After(now) {
		ts = ts.AddDate(0, 0, -1)
	}
	return ts
}

func (g *Generator) weightedHour() int {
	total := 0
	for _, w := range hourWeights {
		total += w
	}
	pick := g.rng.Intn(total)
	for i, w := range hourWeights {
		if pick < w {
			return i
		}
		pick -= w
	}
	return len(hourWeights) - 1
}
