package feed

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"booksim/internal/types"
	"booksim/internal/venue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnknownHandle is returned for handles that were never issued or
	// whose feed was already stopped
	ErrUnknownHandle = errors.New("unknown feed handle")

	// ErrDuplicateFeed is returned when a (venue, symbol) pair already has a
	// live feed; connectivity state is process-wide per pair
	ErrDuplicateFeed = errors.New("feed already running for venue/symbol")
)

// Handle identifies a started feed
type Handle string

// Builder constructs a feed for a (venue, symbol) pair. The factory package
// provides the simulator-backed implementation.
type Builder func(v venue.Name, symbol string) (venue.Feed, error)

// Manager owns the running feeds and maps opaque handles onto them
type Manager struct {
	build Builder
	log   *zap.SugaredLogger

	mu    sync.RWMutex
	feeds map[Handle]venue.Feed
	pairs map[string]Handle
}

// NewManager creates a manager that builds feeds with the given builder
func NewManager(build Builder, log *zap.SugaredLogger) *Manager {
	return &Manager{
		build: build,
		log:   log,
		feeds: make(map[Handle]venue.Feed),
		pairs: make(map[string]Handle),
	}
}

// StartFeed builds and starts a feed for the pair and returns its handle.
// A pair can have at most one live feed.
func (m *Manager) StartFeed(v venue.Name, symbol string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(v, symbol)
	if _, exists := m.pairs[key]; exists {
		return "", fmt.Errorf("%w: %s %s", ErrDuplicateFeed, v, symbol)
	}

	f, err := m.build(v, symbol)
	if err != nil {
		return "", fmt.Errorf("build feed %s %s: %w", v, symbol, err)
	}
	if err := f.Start(); err != nil {
		return "", fmt.Errorf("start feed %s %s: %w", v, symbol, err)
	}

	h := Handle(uuid.NewString())
	m.feeds[h] = f
	m.pairs[key] = h
	m.log.Infow("feed registered", "venue", string(v), "symbol", symbol, "handle", string(h))
	return h, nil
}

// StopFeed stops the feed and releases its handle and pair slot
func (m *Manager) StopFeed(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.feeds[h]
	if !ok {
		return ErrUnknownHandle
	}
	delete(m.feeds, h)
	delete(m.pairs, pairKey(f.Name(), f.Symbol()))
	return f.Stop()
}

// StopAll stops every running feed
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h, f := range m.feeds {
		if err := f.Stop(); err != nil {
			m.log.Warnw("feed stop failed", "venue", string(f.Name()), "symbol", f.Symbol(), "err", err)
		}
		delete(m.feeds, h)
	}
	m.pairs = make(map[string]Handle)
}

// Snapshot returns the latest snapshot for the handle (nil before first tick)
func (m *Manager) Snapshot(h Handle) (*types.BookSnapshot, error) {
	f, err := m.get(h)
	if err != nil {
		return nil, err
	}
	return f.LatestSnapshot(), nil
}

// IsConnected reports connectivity for the handle
func (m *Manager) IsConnected(h Handle) (bool, error) {
	f, err := m.get(h)
	if err != nil {
		return false, err
	}
	return f.IsConnected(), nil
}

// LastUpdate returns the last snapshot time for the handle, if any
func (m *Manager) LastUpdate(h Handle) (time.Time, bool, error) {
	f, err := m.get(h)
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := f.LastUpdate()
	return t, ok, nil
}

// Lookup finds the live feed for a (venue, symbol) pair
func (m *Manager) Lookup(v venue.Name, symbol string) (venue.Feed, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.pairs[pairKey(v, symbol)]
	if !ok {
		return nil, false
	}
	f, ok := m.feeds[h]
	return f, ok
}

// List returns all live feeds
func (m *Manager) List() []venue.Feed {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]venue.Feed, 0, len(m.feeds))
	for _, f := range m.feeds {
		out = append(out, f)
	}
	return out
}

func (m *Manager) get(h Handle) (venue.Feed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.feeds[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return f, nil
}

func pairKey(v venue.Name, symbol string) string {
	return string(v) + "|" + symbol
}
