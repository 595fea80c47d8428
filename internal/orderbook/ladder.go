package orderbook

import (
	"booksim/internal/types"

	"github.com/shopspring/decimal"
)

// priceTolerance bounds how close two prices must be to count as the same
// level when placing a hypothetical order.
var priceTolerance = decimal.NewFromFloat(0.01)

// LadderEntry is one rendering-ready row of a merged ladder
type LadderEntry struct {
	types.PriceLevel
	Hypothetical bool
}

// DepthSummary describes near-side volume on both sides of a snapshot
type DepthSummary struct {
	BidVolume decimal.Decimal
	AskVolume decimal.Decimal
	Imbalance decimal.Decimal
}

// MergeLadder inserts the hypothetical order into the ladder at its correct
// rank without disturbing the side's monotonic price ordering. Only limit
// orders on the matching side are inserted; market orders and opposite-side
// orders pass through unmodified.
//
// When the order price lands within priceTolerance of an existing level, the
// hypothetical always renders as a distinct row immediately after that level.
// It is never merged into the real level and never dropped. The hypothetical
// row reports its own Size and Total equal to the order quantity; it does not
// participate in the real ladder's cumulative totals.
func MergeLadder(levels []types.PriceLevel, order *types.HypotheticalOrder, side types.Side) []LadderEntry {
	out := make([]LadderEntry, 0, len(levels)+1)

	if order == nil || order.Kind != types.Limit || order.Side != side {
		for _, l := range levels {
			out = append(out, LadderEntry{PriceLevel: l})
		}
		return out
	}

	hyp := LadderEntry{
		PriceLevel: types.PriceLevel{
			Price: order.Price,
			Size:  order.Quantity,
			Total: order.Quantity,
		},
		Hypothetical: true,
	}

	inserted := false
	for _, l := range levels {
		switch {
		case inserted:
			// already placed, copy the rest through
		case samePrice(order.Price, l.Price):
			out = append(out, LadderEntry{PriceLevel: l}, hyp)
			inserted = true
			continue
		case ranksBefore(order.Price, l.Price, side):
			out = append(out, hyp)
			inserted = true
		}
		out = append(out, LadderEntry{PriceLevel: l})
	}
	if !inserted {
		out = append(out, hyp)
	}
	return out
}

// Imbalance returns the normalized bid/ask volume difference in percent over
// the top depth levels per side: (bidVol-askVol)/(bidVol+askVol)*100. Sizes
// are summed, not cumulative totals. Returns zero when either side is empty
// or the combined volume is zero.
func Imbalance(snap *types.BookSnapshot, depth int) decimal.Decimal {
	if snap == nil || depth <= 0 || len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return decimal.Zero
	}

	bidVol := sumSizes(snap.Bids, depth)
	askVol := sumSizes(snap.Asks, depth)
	total := bidVol.Add(askVol)
	if total.IsZero() {
		return decimal.Zero
	}
	return bidVol.Sub(askVol).Div(total).Mul(hundred)
}

// Summarize computes the depth summary over the top depth levels per side
func Summarize(snap *types.BookSnapshot, depth int) DepthSummary {
	summary := DepthSummary{
		BidVolume: decimal.Zero,
		AskVolume: decimal.Zero,
		Imbalance: Imbalance(snap, depth),
	}
	if snap == nil || depth <= 0 {
		return summary
	}
	summary.BidVolume = sumSizes(snap.Bids, depth)
	summary.AskVolume = sumSizes(snap.Asks, depth)
	return summary
}

func sumSizes(levels []types.PriceLevel, depth int) decimal.Decimal {
	if depth > len(levels) {
		depth = len(levels)
	}
	sum := decimal.Zero
	for _, l := range levels[:depth] {
		sum = sum.Add(l.Size)
	}
	return sum
}

func samePrice(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(priceTolerance)
}

// ranksBefore reports whether price belongs ahead of the level in the side's
// natural direction: descending for bids, ascending for asks.
func ranksBefore(price, level decimal.Decimal, side types.Side) bool {
	if side == types.Buy {
		return price.GreaterThan(level)
	}
	return price.LessThan(level)
}
