package factory

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"booksim/internal/config"
	"booksim/internal/feed"
	"booksim/internal/orderbook"
	"booksim/internal/venue"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewFeedBuilder returns a feed.Builder that creates simulator-backed feeds
// from the shared configuration. A real venue adapter would be constructed
// here instead, behind the same venue.Feed interface.
//
// When a seed is configured, each (venue, symbol) pair derives its own seed
// from it so feeds differ from each other but the whole process stays
// deterministic.
func NewFeedBuilder(cfg config.Config, clock feed.Clock, log *zap.SugaredLogger) feed.Builder {
	return func(v venue.Name, symbol string) (venue.Feed, error) {
		if !v.Valid() {
			return nil, fmt.Errorf("unknown venue %q", v)
		}

		simCfg := cfg.Simulator
		var rng *rand.Rand
		if cfg.Simulator.Seed != 0 {
			derived := deriveSeed(cfg.Simulator.Seed, v, symbol)
			simCfg.Seed = derived
			rng = rand.New(rand.NewSource(derived + 1))
		}

		gen, err := orderbook.NewGenerator(cfg.Generator, rng)
		if err != nil {
			return nil, fmt.Errorf("generator for %s %s: %w", v, symbol, err)
		}

		basePrice := decimal.NewFromFloat(cfg.Generator.BasePrice)
		return feed.NewSimulator(v, symbol, simCfg, gen, basePrice, clock, log)
	}
}

func deriveSeed(seed int64, v venue.Name, symbol string) int64 {
	h := fnv.New32a()
	h.Write([]byte(string(v) + "|" + symbol))
	return seed + int64(h.Sum32())
}
