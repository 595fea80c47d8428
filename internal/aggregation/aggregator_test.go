package aggregation

import (
	"testing"

	"booksim/internal/types"

	"github.com/shopspring/decimal"
)

func TestNew(t *testing.T) {
	tick := types.Tick1
	agg := New(tick)

	if agg == nil {
		t.Fatal("New() returned nil")
	}

	if agg.GetTickLevel() != tick {
		t.Errorf("Expected tick level %g, got %g", float64(tick), float64(agg.GetTickLevel()))
	}
}

func TestSetGetTickLevel(t *testing.T) {
	agg := New(types.Tick1)

	newTick := types.Tick10
	agg.SetTickLevel(newTick)

	if agg.GetTickLevel() != newTick {
		t.Errorf("Expected tick level %g, got %g", float64(newTick), float64(agg.GetTickLevel()))
	}
}

func TestAggregateBids(t *testing.T) {
	tests := []struct {
		name     string
		tick     types.TickLevel
		levels   []types.PriceLevel
		expected int
	}{
		{
			name: "No aggregation needed - tick 0.1",
			tick: types.Tick01,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50000.1), Size: decimal.NewFromFloat(1.0)},
				{Price: decimal.NewFromFloat(50000.2), Size: decimal.NewFromFloat(1.5)},
			},
			expected: 2,
		},
		{
			name: "Aggregation needed - tick 1.0",
			tick: types.Tick1,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50000.1), Size: decimal.NewFromFloat(1.0)},
				{Price: decimal.NewFromFloat(50000.9), Size: decimal.NewFromFloat(1.5)},
			},
			expected: 1, // Both should aggregate to 50000.0
		},
		{
			name: "Aggregation needed - tick 10.0",
			tick: types.Tick10,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50001), Size: decimal.NewFromFloat(1.0)},
				{Price: decimal.NewFromFloat(50005), Size: decimal.NewFromFloat(1.5)},
				{Price: decimal.NewFromFloat(50009), Size: decimal.NewFromFloat(2.0)},
			},
			expected: 1, // All should aggregate to 50000.0
		},
		{
			name:     "Empty levels",
			tick:     types.Tick1,
			levels:   []types.PriceLevel{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := New(tt.tick)
			result := agg.AggregateBids(tt.levels)

			if len(result) != tt.expected {
				t.Errorf("Expected %d aggregated levels, got %d", tt.expected, len(result))
			}

			// Check that sizes are properly aggregated
			if len(result) == 1 && len(tt.levels) > 1 {
				expectedSize := decimal.Zero
				for _, level := range tt.levels {
					expectedSize = expectedSize.Add(level.Size)
				}

				if !result[0].Size.Equal(expectedSize) {
					t.Errorf("Expected aggregated size %s, got %s",
						expectedSize.String(), result[0].Size.String())
				}
			}
		})
	}
}

func TestAggregateBidsOrderAndTotals(t *testing.T) {
	agg := New(types.Tick10)
	levels := []types.PriceLevel{
		{Price: decimal.NewFromFloat(50021), Size: decimal.NewFromFloat(1.0)},
		{Price: decimal.NewFromFloat(50005), Size: decimal.NewFromFloat(1.5)},
		{Price: decimal.NewFromFloat(50012), Size: decimal.NewFromFloat(2.0)},
	}

	result := agg.AggregateBids(levels)
	if len(result) != 3 {
		t.Fatalf("Expected 3 buckets, got %d", len(result))
	}

	// descending order with running totals recomputed
	wantPrices := []string{"50020", "50010", "50000"}
	wantTotals := []string{"1", "3", "4.5"}
	for i := range result {
		if result[i].Price.String() != wantPrices[i] {
			t.Errorf("bucket %d price = %s, want %s", i, result[i].Price, wantPrices[i])
		}
		if result[i].Total.String() != wantTotals[i] {
			t.Errorf("bucket %d total = %s, want %s", i, result[i].Total, wantTotals[i])
		}
	}
}

func TestAggregateAsks(t *testing.T) {
	agg := New(types.Tick10)
	levels := []types.PriceLevel{
		{Price: decimal.NewFromFloat(50001), Size: decimal.NewFromFloat(1.0)},
		{Price: decimal.NewFromFloat(50015), Size: decimal.NewFromFloat(1.5)},
		{Price: decimal.NewFromFloat(50009), Size: decimal.NewFromFloat(2.0)},
	}

	result := agg.AggregateAsks(levels)
	if len(result) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(result))
	}

	// asks ceil into their bucket and come out ascending
	if result[0].Price.String() != "50010" {
		t.Errorf("first bucket price = %s, want 50010", result[0].Price)
	}
	if !result[0].Size.Equal(decimal.NewFromFloat(3.0)) {
		t.Errorf("first bucket size = %s, want 3", result[0].Size)
	}
	if result[1].Price.String() != "50020" {
		t.Errorf("second bucket price = %s, want 50020", result[1].Price)
	}
	if result[1].Total.String() != "4.5" {
		t.Errorf("second bucket total = %s, want 4.5", result[1].Total)
	}
}
