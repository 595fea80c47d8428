package orderbook

import (
	"math"
	"time"

	"booksim/internal/types"

	"github.com/shopspring/decimal"
)

// Warning messages, appended in this fixed order whenever their condition
// holds. They are not mutually exclusive.
const (
	WarnEmptyBook    = "No liquidity available on the opposing side"
	WarnManyLevels   = "Order consumes more than 5 price levels"
	WarnHighSlippage = "High slippage detected (>0.5%)"
	WarnPartialFill  = "Order may not fill completely"
	WarnLargeImpact  = "Significant market impact (>$1000)"
)

var (
	hundred         = decimal.NewFromInt(100)
	slippageWarnPct = decimal.NewFromFloat(0.5)
	fillWarnPct     = decimal.NewFromInt(95)
	impactWarnUSD   = decimal.NewFromInt(1000)
)

// EstimateImpact walks the opposing ladder of the snapshot and estimates the
// execution consequences of the hypothetical order. It is a pure function:
// the same order and snapshot always produce the same result.
//
// A buy consumes asks, a sell consumes bids. An empty opposing side is not an
// error; it yields a zero-fill result with an explanatory warning, since an
// order against an empty book is a valid (if degenerate) scenario to display.
func EstimateImpact(order types.HypotheticalOrder, snap *types.BookSnapshot) (types.ImpactResult, error) {
	if order.Quantity.LessThanOrEqual(decimal.Zero) {
		return types.ImpactResult{}, ErrInvalidQuantity
	}
	if order.Kind == types.Limit && order.Price.LessThanOrEqual(decimal.Zero) {
		return types.ImpactResult{}, ErrMissingLimitPrice
	}

	var levels []types.PriceLevel
	if order.Side == types.Buy {
		levels = snap.Asks
	} else {
		levels = snap.Bids
	}

	remaining := order.Quantity
	cost := decimal.Zero
	levelsConsumed := 0

	for _, level := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		fill := decimal.Min(remaining, level.Size)
		cost = cost.Add(fill.Mul(level.Price))
		remaining = remaining.Sub(fill)
		levelsConsumed++
	}

	filled := order.Quantity.Sub(remaining)
	fillPct := filled.Div(order.Quantity).Mul(hundred)

	// Nothing filled means the opposing side was empty. Average fill price is
	// defined as zero here rather than letting the ratio go non-numeric.
	if filled.IsZero() {
		return types.ImpactResult{
			FillPercentage:    decimal.Zero,
			AverageFillPrice:  decimal.Zero,
			SlippagePercent:   decimal.Zero,
			MarketImpact:      decimal.Zero,
			EstimatedFillTime: fillTime(0, order.Quantity),
			LevelsConsumed:    0,
			Warnings:          []string{WarnEmptyBook, WarnPartialFill},
		}, nil
	}

	avgPrice := cost.Div(filled)

	// Market orders measure slippage against the best opposing price, limit
	// orders against their own price.
	reference := order.Price
	if order.Kind == types.Market {
		reference = levels[0].Price
	}

	slippage := decimal.Zero
	if reference.GreaterThan(decimal.Zero) {
		slippage = avgPrice.Sub(reference).Abs().Div(reference).Mul(hundred)
	}
	impact := avgPrice.Sub(reference).Abs().Mul(filled)

	var warnings []string
	if levelsConsumed > 5 {
		warnings = append(warnings, WarnManyLevels)
	}
	if slippage.GreaterThan(slippageWarnPct) {
		warnings = append(warnings, WarnHighSlippage)
	}
	if fillPct.LessThan(fillWarnPct) {
		warnings = append(warnings, WarnPartialFill)
	}
	if impact.GreaterThan(impactWarnUSD) {
		warnings = append(warnings, WarnLargeImpact)
	}

	return types.ImpactResult{
		FillPercentage:    fillPct.Round(2),
		AverageFillPrice:  avgPrice.Round(2),
		SlippagePercent:   slippage.Round(3),
		MarketImpact:      impact.Round(0),
		EstimatedFillTime: fillTime(levelsConsumed, order.Quantity),
		LevelsConsumed:    levelsConsumed,
		Warnings:          warnings,
	}, nil
}

// fillTime estimates time to fill from consumed depth and order size, floored
// at 500ms and rounded to the nearest 100ms.
func fillTime(levelsConsumed int, quantity decimal.Decimal) time.Duration {
	qty, _ := quantity.Float64()
	seconds := math.Max(0.5, float64(levelsConsumed)*0.3+qty/10)
	return time.Duration(math.Round(seconds*10)) * 100 * time.Millisecond
}
