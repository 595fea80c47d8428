package venue

import (
	"time"

	"booksim/internal/types"
)

// Name represents supported venue identifiers
type Name string

const (
	OKX     Name = "okx"
	Bybit   Name = "bybit"
	Deribit Name = "deribit"
)

// All lists every supported venue
var All = []Name{OKX, Bybit, Deribit}

// Valid reports whether the name is a known venue
func (n Name) Valid() bool {
	for _, v := range All {
		if v == n {
			return true
		}
	}
	return false
}

// Feed is the contract every market-data source must implement. The
// in-process simulator implements it today; a real deployment would put an
// actual venue adapter behind the same interface.
type Feed interface {
	// Name returns the venue identifier (e.g. "okx")
	Name() Name

	// Symbol returns the trading symbol
	Symbol() string

	// Start begins producing snapshots
	Start() error

	// Stop cancels all pending work; the feed is terminal afterwards
	Stop() error

	// LatestSnapshot returns the most recent snapshot, or nil before the
	// first tick. Snapshots are immutable once published.
	LatestSnapshot() *types.BookSnapshot

	// IsConnected returns connection status
	IsConnected() bool

	// LastUpdate returns the time of the last snapshot, if any
	LastUpdate() (time.Time, bool)

	// State returns the current connectivity state
	State() types.ConnectivityState

	// Health returns feed health information
	Health() HealthStatus
}

// HealthStatus represents feed health information
type HealthStatus struct {
	State       types.ConnectivityState
	LastUpdate  time.Time
	Snapshots   int64
	Disconnects int64
	Reconnects  int64
}
