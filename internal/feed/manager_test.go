package feed

import (
	"testing"
	"time"

	"booksim/internal/logging"
	"booksim/internal/types"
	"booksim/internal/venue"

	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	venueName venue.Name
	symbol    string
	started   bool
	stopped   bool
	snap      *types.BookSnapshot
}

func (f *stubFeed) Name() venue.Name                    { return f.venueName }
func (f *stubFeed) Symbol() string                      { return f.symbol }
func (f *stubFeed) Start() error                        { f.started = true; return nil }
func (f *stubFeed) Stop() error                         { f.stopped = true; return nil }
func (f *stubFeed) LatestSnapshot() *types.BookSnapshot { return f.snap }
func (f *stubFeed) IsConnected() bool                   { return f.started && !f.stopped }
func (f *stubFeed) LastUpdate() (time.Time, bool)       { return time.Time{}, false }
func (f *stubFeed) State() types.ConnectivityState      { return types.Connected }
func (f *stubFeed) Health() venue.HealthStatus          { return venue.HealthStatus{State: types.Connected} }

func stubBuilder(feeds *[]*stubFeed) Builder {
	return func(v venue.Name, symbol string) (venue.Feed, error) {
		f := &stubFeed{venueName: v, symbol: symbol}
		*feeds = append(*feeds, f)
		return f, nil
	}
}

func TestManagerStartStop(t *testing.T) {
	var built []*stubFeed
	m := NewManager(stubBuilder(&built), logging.NewNop())

	h, err := m.StartFeed(venue.OKX, "BTC-USD")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	require.Len(t, built, 1)
	require.True(t, built[0].started)

	connected, err := m.IsConnected(h)
	require.NoError(t, err)
	require.True(t, connected)

	require.NoError(t, m.StopFeed(h))
	require.True(t, built[0].stopped)

	// the handle is dead after StopFeed
	_, err = m.Snapshot(h)
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestManagerRejectsDuplicatePair(t *testing.T) {
	var built []*stubFeed
	m := NewManager(stubBuilder(&built), logging.NewNop())

	h, err := m.StartFeed(venue.Bybit, "BTC-USD")
	require.NoError(t, err)

	_, err = m.StartFeed(venue.Bybit, "BTC-USD")
	require.ErrorIs(t, err, ErrDuplicateFeed)

	// a different symbol on the same venue is fine
	_, err = m.StartFeed(venue.Bybit, "ETH-USD")
	require.NoError(t, err)

	// stopping frees the pair for a new feed
	require.NoError(t, m.StopFeed(h))
	_, err = m.StartFeed(venue.Bybit, "BTC-USD")
	require.NoError(t, err)
}

func TestManagerUnknownHandle(t *testing.T) {
	var built []*stubFeed
	m := NewManager(stubBuilder(&built), logging.NewNop())

	_, err := m.Snapshot(Handle("nope"))
	require.ErrorIs(t, err, ErrUnknownHandle)

	_, err = m.IsConnected(Handle("nope"))
	require.ErrorIs(t, err, ErrUnknownHandle)

	_, _, err = m.LastUpdate(Handle("nope"))
	require.ErrorIs(t, err, ErrUnknownHandle)

	require.ErrorIs(t, m.StopFeed(Handle("nope")), ErrUnknownHandle)
}

func TestManagerLookupAndList(t *testing.T) {
	var built []*stubFeed
	m := NewManager(stubBuilder(&built), logging.NewNop())

	_, err := m.StartFeed(venue.OKX, "BTC-USD")
	require.NoError(t, err)
	_, err = m.StartFeed(venue.Deribit, "BTC-USD")
	require.NoError(t, err)

	f, ok := m.Lookup(venue.OKX, "BTC-USD")
	require.True(t, ok)
	require.Equal(t, venue.OKX, f.Name())

	_, ok = m.Lookup(venue.OKX, "ETH-USD")
	require.False(t, ok)

	require.Len(t, m.List(), 2)
}

func TestManagerStopAll(t *testing.T) {
	var built []*stubFeed
	m := NewManager(stubBuilder(&built), logging.NewNop())

	h1, err := m.StartFeed(venue.OKX, "BTC-USD")
	require.NoError(t, err)
	_, err = m.StartFeed(venue.Bybit, "BTC-USD")
	require.NoError(t, err)

	m.StopAll()
	for _, f := range built {
		require.True(t, f.stopped)
	}
	require.Empty(t, m.List())
	require.ErrorIs(t, m.StopFeed(h1), ErrUnknownHandle)

	// pairs are free again
	_, err = m.StartFeed(venue.OKX, "BTC-USD")
	require.NoError(t, err)
}
