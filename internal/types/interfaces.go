package types

// PriceAggregator defines the interface for price aggregation
type PriceAggregator interface {
	// SetTickLevel updates the tick level for aggregation
	SetTickLevel(tick TickLevel)

	// GetTickLevel returns the current tick level
	GetTickLevel() TickLevel

	// AggregateBids aggregates bid price levels, keeping descending order
	AggregateBids(levels []PriceLevel) []PriceLevel

	// AggregateAsks aggregates ask price levels, keeping ascending order
	AggregateAsks(levels []PriceLevel) []PriceLevel
}
