package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TickLevel represents available tick size options for price aggregation
type TickLevel float64

const (
	Tick01  TickLevel = 0.1
	Tick1   TickLevel = 1.0
	Tick10  TickLevel = 10.0
	Tick50  TickLevel = 50.0
	Tick100 TickLevel = 100.0
)

// AvailableTickLevels defines the available tick levels in order of precision
var AvailableTickLevels = []TickLevel{
	Tick01,
	Tick1,
	Tick10,
	Tick50,
	Tick100,
}

// Side identifies which side of the book an order sits on
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderKind distinguishes market from limit orders
type OrderKind string

const (
	Market OrderKind = "market"
	Limit  OrderKind = "limit"
)

// ConnectivityState is the feed lifecycle state. Transitions happen only on
// the feed's own scheduler, never by external mutation.
type ConnectivityState string

const (
	Connecting   ConnectivityState = "connecting"
	Connected    ConnectivityState = "connected"
	Disconnected ConnectivityState = "disconnected"
	Stopped      ConnectivityState = "stopped"
)

// PriceLevel represents a single price level in the order book.
// Total is the running sum of Size from the best price outward on its side.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Total decimal.Decimal
}

// BookSnapshot is one complete view of a venue's book. Snapshots are
// immutable after publication; a new tick replaces the whole value.
type BookSnapshot struct {
	Venue     string
	Symbol    string
	Bids      []PriceLevel // sorted descending by price
	Asks      []PriceLevel // sorted ascending by price
	Spread    decimal.Decimal
	Timestamp time.Time
}

// BestBid returns the top-of-book bid price, or zero when the side is empty.
func (s *BookSnapshot) BestBid() decimal.Decimal {
	if len(s.Bids) == 0 {
		return decimal.Zero
	}
	return s.Bids[0].Price
}

// BestAsk returns the top-of-book ask price, or zero when the side is empty.
func (s *BookSnapshot) BestAsk() decimal.Decimal {
	if len(s.Asks) == 0 {
		return decimal.Zero
	}
	return s.Asks[0].Price
}

// MidPrice returns the midpoint between best bid and best ask, or zero when
// either side is empty.
func (s *BookSnapshot) MidPrice() decimal.Decimal {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return decimal.Zero
	}
	return s.Bids[0].Price.Add(s.Asks[0].Price).Div(decimal.NewFromInt(2))
}

// HypotheticalOrder is a what-if order supplied by a caller. It is an input
// value only; nothing in the core persists it.
type HypotheticalOrder struct {
	Side     Side
	Kind     OrderKind
	Price    decimal.Decimal // required for limit orders, ignored for market
	Quantity decimal.Decimal
}

// ImpactResult holds the estimated execution consequences of a hypothetical
// order walked against a snapshot. FillPercentage and AverageFillPrice are
// rounded to 2 decimal places, SlippagePercent to 3, MarketImpact to the
// nearest whole unit and EstimatedFillTime to the nearest 100ms.
type ImpactResult struct {
	FillPercentage    decimal.Decimal
	AverageFillPrice  decimal.Decimal
	SlippagePercent   decimal.Decimal
	MarketImpact      decimal.Decimal
	EstimatedFillTime time.Duration
	LevelsConsumed    int
	Warnings          []string
}
