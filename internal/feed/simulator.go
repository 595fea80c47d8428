package feed

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"booksim/internal/config"
	"booksim/internal/metrics"
	"booksim/internal/orderbook"
	"booksim/internal/types"
	"booksim/internal/venue"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Simulator implements venue.Feed with synthetic data. Its lifecycle is a
// small state machine: Connecting -> Connected after the connect delay, then
// a refresh schedule produces snapshots at randomized intervals while an
// independent lower-frequency check occasionally drops the feed into
// Disconnected, from which it auto-recovers after a fixed delay. The last
// snapshot stays visible across a disconnect.
//
// Exactly one refresh timer and one disconnect-check timer are live per
// instance. Stop cancels every pending timer and is terminal.
type Simulator struct {
	venueName venue.Name
	symbol    string
	cfg       config.SimulatorConfig
	basePrice decimal.Decimal
	gen       *orderbook.Generator
	clock     Clock
	log       *zap.SugaredLogger

	mu             sync.RWMutex
	rng            *rand.Rand
	state          types.ConnectivityState
	snapshot       *types.BookSnapshot
	lastUpdate     time.Time
	hasUpdate      bool
	connectTimer   Timer
	refreshTimer   Timer
	checkTimer     Timer
	reconnectTimer Timer
	snapshots      int64
	disconnects    int64
	reconnects     int64
}

// NewSimulator builds a feed simulator for a (venue, symbol) pair.
// Configuration problems are fatal here, not recoverable mid-run.
func NewSimulator(v venue.Name, symbol string, cfg config.SimulatorConfig, gen *orderbook.Generator, basePrice decimal.Decimal, clock Clock, log *zap.SugaredLogger) (*Simulator, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unknown venue %q", v)
	}
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol for venue %q", v)
	}
	if gen == nil {
		return nil, fmt.Errorf("nil generator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Simulator{
		venueName: v,
		symbol:    symbol,
		cfg:       cfg,
		basePrice: basePrice,
		gen:       gen,
		clock:     clock,
		log:       log.With("venue", string(v), "symbol", symbol),
		rng:       rand.New(rand.NewSource(seed)),
		state:     types.Connecting,
	}, nil
}

// Name returns the venue identifier
func (s *Simulator) Name() venue.Name { return s.venueName }

// Symbol returns the trading symbol
func (s *Simulator) Symbol() string { return s.symbol }

// Start schedules the initial connect. Starting a stopped or already started
// simulator is an error.
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.Connecting {
		return fmt.Errorf("feed %s %s already started (state %s)", s.venueName, s.symbol, s.state)
	}
	if s.connectTimer != nil {
		return fmt.Errorf("feed %s %s connect already pending", s.venueName, s.symbol)
	}

	s.log.Infow("feed starting", "connect_delay", s.cfg.ConnectDelay)
	s.connectTimer = s.clock.AfterFunc(s.cfg.ConnectDelay, s.onConnect)
	return nil
}

// Stop cancels all pending timers. The state becomes terminal; no further
// snapshots are emitted.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == types.Stopped {
		return nil
	}
	s.state = types.Stopped
	s.stopTimersLocked()
	metrics.FeedConnected.WithLabelValues(string(s.venueName), s.symbol).Set(0)
	s.log.Infow("feed stopped")
	return nil
}

// LatestSnapshot returns the most recent snapshot, or nil before the first
// tick. The returned snapshot is immutable.
func (s *Simulator) LatestSnapshot() *types.BookSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// IsConnected reports whether the feed is currently connected
func (s *Simulator) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == types.Connected
}

// LastUpdate returns the time of the last emitted snapshot, if any
func (s *Simulator) LastUpdate() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate, s.hasUpdate
}

// State returns the current connectivity state
func (s *Simulator) State() types.ConnectivityState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Health returns feed health information
func (s *Simulator) Health() venue.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return venue.HealthStatus{
		State:       s.state,
		LastUpdate:  s.lastUpdate,
		Snapshots:   s.snapshots,
		Disconnects: s.disconnects,
		Reconnects:  s.reconnects,
	}
}

func (s *Simulator) onConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.Connecting {
		return
	}
	s.state = types.Connected
	s.connectTimer = nil
	s.publishLocked()
	s.refreshTimer = s.clock.AfterFunc(s.refreshDelay(), s.onRefresh)
	s.checkTimer = s.clock.AfterFunc(s.cfg.CheckInterval, s.onCheck)
	metrics.FeedConnected.WithLabelValues(string(s.venueName), s.symbol).Set(1)
	s.log.Infow("feed connected")
}

func (s *Simulator) onRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.Connected {
		return
	}
	s.publishLocked()
	s.refreshTimer = s.clock.AfterFunc(s.refreshDelay(), s.onRefresh)
}

func (s *Simulator) onCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == types.Stopped {
		return
	}
	if s.state == types.Connected && s.rng.Float64() < s.cfg.DisconnectProb {
		s.state = types.Disconnected
		s.disconnects++
		// the refresh schedule pauses so the pre-disconnect snapshot stays
		// visible until recovery
		if s.refreshTimer != nil {
			s.refreshTimer.Stop()
			s.refreshTimer = nil
		}
		s.reconnectTimer = s.clock.AfterFunc(s.cfg.ReconnectDelay, s.onReconnect)
		metrics.FeedConnected.WithLabelValues(string(s.venueName), s.symbol).Set(0)
		metrics.FeedDisconnectsTotal.WithLabelValues(string(s.venueName), s.symbol).Inc()
		s.log.Warnw("feed disconnected", "reconnect_delay", s.cfg.ReconnectDelay)
	}
	s.checkTimer = s.clock.AfterFunc(s.cfg.CheckInterval, s.onCheck)
}

func (s *Simulator) onReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.Disconnected {
		return
	}
	s.state = types.Connected
	s.reconnects++
	s.reconnectTimer = nil
	s.refreshTimer = s.clock.AfterFunc(s.refreshDelay(), s.onRefresh)
	metrics.FeedConnected.WithLabelValues(string(s.venueName), s.symbol).Set(1)
	metrics.FeedReconnectsTotal.WithLabelValues(string(s.venueName), s.symbol).Inc()
	s.log.Infow("feed reconnected")
}

// publishLocked generates a fresh snapshot and replaces the published one.
// Snapshots are never mutated after publication.
func (s *Simulator) publishLocked() {
	snap := s.gen.Generate(s.basePrice)
	snap.Venue = string(s.venueName)
	snap.Symbol = s.symbol
	snap.Timestamp = s.clock.Now()

	s.snapshot = snap
	s.lastUpdate = snap.Timestamp
	s.hasUpdate = true
	s.snapshots++
	metrics.SnapshotsTotal.WithLabelValues(string(s.venueName), s.symbol).Inc()
}

func (s *Simulator) refreshDelay() time.Duration {
	span := s.cfg.RefreshMax - s.cfg.RefreshMin
	return s.cfg.RefreshMin + time.Duration(s.rng.Float64()*float64(span))
}

func (s *Simulator) stopTimersLocked() {
	for _, t := range []Timer{s.connectTimer, s.refreshTimer, s.checkTimer, s.reconnectTimer} {
		if t != nil {
			t.Stop()
		}
	}
	s.connectTimer = nil
	s.refreshTimer = nil
	s.checkTimer = nil
	s.reconnectTimer = nil
}
