package orderbook

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"booksim/internal/config"
	"booksim/internal/types"

	"github.com/shopspring/decimal"
)

const (
	// Gap between consecutive levels grows by up to levelStepMax per level,
	// plus a fixed pad so the best level always sits off the mid price.
	levelStepMax = 10.0
	levelStepPad = 5.0
)

// Generator produces self-consistent synthetic book snapshots. Output is
// deterministic for a given seed.
type Generator struct {
	cfg config.GeneratorConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator validates the configuration and builds a generator. A nil rng
// falls back to a time-seeded source.
func NewGenerator(cfg config.GeneratorConfig, rng *rand.Rand) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{cfg: cfg, rng: rng}, nil
}

// Generate builds a snapshot around the given base price: a uniformly drawn
// spread, cfg.Depth levels per side walking away from the mid, sizes drawn
// from the configured range. Bids come out strictly descending, asks strictly
// ascending, with cumulative totals recomputed after sorting (generation
// order does not guarantee level order).
func (g *Generator) Generate(basePrice decimal.Decimal) *types.BookSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	base, _ := basePrice.Float64()
	spread := g.uniform(g.cfg.SpreadMin, g.cfg.SpreadMax)
	half := spread / 2

	bids := make([]types.PriceLevel, 0, g.cfg.Depth)
	asks := make([]types.PriceLevel, 0, g.cfg.Depth)

	for i := 0; i < g.cfg.Depth; i++ {
		offset := float64(i)*g.rng.Float64()*levelStepMax + levelStepPad
		price := base - half - offset
		if price <= 0 {
			// ladder would cross zero; a shorter side is still valid
			break
		}
		bids = append(bids, types.PriceLevel{
			Price: decimal.NewFromFloat(price),
			Size:  decimal.NewFromFloat(g.uniform(g.cfg.SizeMin, g.cfg.SizeMax)),
		})
	}

	for i := 0; i < g.cfg.Depth; i++ {
		offset := float64(i)*g.rng.Float64()*levelStepMax + levelStepPad
		asks = append(asks, types.PriceLevel{
			Price: decimal.NewFromFloat(base + half + offset),
			Size:  decimal.NewFromFloat(g.uniform(g.cfg.SizeMin, g.cfg.SizeMax)),
		})
	}

	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Price.GreaterThan(bids[j].Price)
	})
	sort.Slice(asks, func(i, j int) bool {
		return asks[i].Price.LessThan(asks[j].Price)
	})

	snap := &types.BookSnapshot{
		Bids:      accumulate(bids),
		Asks:      accumulate(asks),
		Spread:    decimal.NewFromFloat(spread),
		Timestamp: time.Now(),
	}
	// the drawn spread seeds the ladder; the published spread is the actual
	// top-of-book gap so spread == asks[0] - bids[0] always holds
	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		snap.Spread = snap.Asks[0].Price.Sub(snap.Bids[0].Price)
	}
	return snap
}

func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

// accumulate recomputes running totals in sorted order, merging the rare
// equal-priced draws so each side stays strictly monotonic.
func accumulate(levels []types.PriceLevel) []types.PriceLevel {
	out := levels[:0]
	running := decimal.Zero
	for _, l := range levels {
		if n := len(out); n > 0 && out[n-1].Price.Equal(l.Price) {
			out[n-1].Size = out[n-1].Size.Add(l.Size)
			out[n-1].Total = out[n-1].Total.Add(l.Size)
			running = running.Add(l.Size)
			continue
		}
		running = running.Add(l.Size)
		l.Total = running
		out = append(out, l)
	}
	return out
}
