package aggregation

import (
	"sort"

	"booksim/internal/types"

	"github.com/shopspring/decimal"
)

// Aggregator buckets price levels by tick size before display. Bids floor
// into their bucket and asks ceil, so aggregation can only widen the spread,
// never cross the book.
type Aggregator struct {
	currentTick types.TickLevel
}

// New creates a new Aggregator instance
func New(tick types.TickLevel) *Aggregator {
	return &Aggregator{
		currentTick: tick,
	}
}

// SetTickLevel updates the tick level for aggregation
func (a *Aggregator) SetTickLevel(tick types.TickLevel) {
	a.currentTick = tick
}

// GetTickLevel returns the current tick level
func (a *Aggregator) GetTickLevel() types.TickLevel {
	return a.currentTick
}

// AggregateBids aggregates bid price levels by tick size (floors prices).
// The result is sorted descending with cumulative totals recomputed.
func (a *Aggregator) AggregateBids(levels []types.PriceLevel) []types.PriceLevel {
	aggregated := a.bucket(levels, a.roundToTickBid)
	sort.Slice(aggregated, func(i, j int) bool {
		return aggregated[i].Price.GreaterThan(aggregated[j].Price)
	})
	return retotal(aggregated)
}

// AggregateAsks aggregates ask price levels by tick size (ceils prices).
// The result is sorted ascending with cumulative totals recomputed.
func (a *Aggregator) AggregateAsks(levels []types.PriceLevel) []types.PriceLevel {
	aggregated := a.bucket(levels, a.roundToTickAsk)
	sort.Slice(aggregated, func(i, j int) bool {
		return aggregated[i].Price.LessThan(aggregated[j].Price)
	})
	return retotal(aggregated)
}

func (a *Aggregator) bucket(levels []types.PriceLevel, round func(decimal.Decimal) decimal.Decimal) []types.PriceLevel {
	if len(levels) == 0 {
		return levels
	}

	tickMap := make(map[string]types.PriceLevel)

	for _, level := range levels {
		roundedPrice := round(level.Price)
		key := roundedPrice.String()

		if existing, exists := tickMap[key]; exists {
			tickMap[key] = types.PriceLevel{
				Price: roundedPrice,
				Size:  existing.Size.Add(level.Size),
			}
		} else {
			tickMap[key] = types.PriceLevel{
				Price: roundedPrice,
				Size:  level.Size,
			}
		}
	}

	aggregated := make([]types.PriceLevel, 0, len(tickMap))
	for _, level := range tickMap {
		aggregated = append(aggregated, level)
	}

	return aggregated
}

// roundToTickBid rounds a bid price DOWN to maintain proper spread
func (a *Aggregator) roundToTickBid(price decimal.Decimal) decimal.Decimal {
	tickSize := decimal.NewFromFloat(float64(a.currentTick))
	if tickSize.IsZero() {
		return price
	}
	return price.Div(tickSize).Floor().Mul(tickSize)
}

// roundToTickAsk rounds an ask price UP to maintain proper spread
func (a *Aggregator) roundToTickAsk(price decimal.Decimal) decimal.Decimal {
	tickSize := decimal.NewFromFloat(float64(a.currentTick))
	if tickSize.IsZero() {
		return price
	}
	return price.Div(tickSize).Ceil().Mul(tickSize)
}

// retotal recomputes cumulative totals in the slice's sorted order
func retotal(levels []types.PriceLevel) []types.PriceLevel {
	running := decimal.Zero
	for i := range levels {
		running = running.Add(levels[i].Size)
		levels[i].Total = running
	}
	return levels
}
