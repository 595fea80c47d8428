package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"booksim/internal/aggregation"
	"booksim/internal/config"
	"booksim/internal/feed"
	"booksim/internal/metrics"
	"booksim/internal/orderbook"
	"booksim/internal/types"
	"booksim/internal/venue"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type MessageType string

const (
	MessageTypeOrderbook MessageType = "orderbook"
	MessageTypeStats     MessageType = "stats"
)

// ClientMessage represents messages sent from client to server
type ClientMessage struct {
	Type string  `json:"type"`
	Tick float64 `json:"tick,omitempty"`
}

// PriceLevel is the wire form of a ladder row
type PriceLevel struct {
	Price        string `json:"price"`
	Size         string `json:"size"`
	Total        string `json:"total"`
	Hypothetical bool   `json:"hypothetical,omitempty"`
}

// OrderbookMessage carries one merged ladder pair for a feed
type OrderbookMessage struct {
	Type      MessageType  `json:"type"`
	Venue     string       `json:"venue"`
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Spread    string       `json:"spread"`
	Timestamp int64        `json:"timestamp"`
}

// StatsMessage carries top-of-book and depth statistics for a feed
type StatsMessage struct {
	Type       MessageType `json:"type"`
	Venue      string      `json:"venue"`
	Symbol     string      `json:"symbol"`
	State      string      `json:"state"`
	Connected  bool        `json:"connected"`
	BestBid    string      `json:"bestBid"`
	BestAsk    string      `json:"bestAsk"`
	MidPrice   string      `json:"midPrice"`
	Spread     string      `json:"spread"`
	BidVolume  string      `json:"bidVolume"`
	AskVolume  string      `json:"askVolume"`
	Imbalance  string      `json:"imbalance"`
	LastUpdate int64       `json:"lastUpdate,omitempty"`
	Timestamp  int64       `json:"timestamp"`
}

// impactRequest is the POST /api/impact body
type impactRequest struct {
	Venue    string `json:"venue"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Kind     string `json:"kind"`
	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity"`
}

type impactResponse struct {
	FillPercentage    string   `json:"fillPercentage"`
	AverageFillPrice  string   `json:"averageFillPrice"`
	SlippagePercent   string   `json:"slippagePercent"`
	MarketImpact      string   `json:"marketImpact"`
	EstimatedFillTime float64  `json:"estimatedFillTimeSeconds"`
	LevelsConsumed    int      `json:"levelsConsumed"`
	Warnings          []string `json:"warnings"`
}

// Server broadcasts feed snapshots over WebSocket and serves the REST API
type Server struct {
	manager        *feed.Manager
	cfg            config.ServerConfig
	imbalanceDepth int
	reg            *prometheus.Registry
	log            *zap.SugaredLogger
	upgrader       websocket.Upgrader

	aggregator types.PriceAggregator
	tickMux    sync.RWMutex

	clients    map[*websocket.Conn]bool
	clientsMux sync.RWMutex
	broadcast  chan interface{}
}

// NewServer creates the HTTP/WebSocket server over the feed manager
func NewServer(manager *feed.Manager, cfg config.ServerConfig, app config.AppConfig, reg *prometheus.Registry, log *zap.SugaredLogger) *Server {
	return &Server{
		manager:        manager,
		cfg:            cfg,
		imbalanceDepth: app.ImbalanceDepth,
		reg:            reg,
		log:            log,
		aggregator:     aggregation.New(app.DefaultTickLevel),
		clients:        make(map[*websocket.Conn]bool),
		broadcast:      make(chan interface{}, 100),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/api/venues", s.handleVenues).Methods(http.MethodGet)
	r.HandleFunc("/api/orderbook/{venue}/{symbol}", s.handleOrderbook).Methods(http.MethodGet)
	r.HandleFunc("/api/impact", s.handleImpact).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler(s.reg)).Methods(http.MethodGet)
	return r
}

// Run serves until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	go s.broadcastMessages()
	go s.startDataPush(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Infow("server listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "err", err)
		return
	}

	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()
	metrics.WSClients.Inc()
	s.log.Infow("websocket client connected", "remote", r.RemoteAddr)

	defer func() {
		s.clientsMux.Lock()
		delete(s.clients, conn)
		s.clientsMux.Unlock()
		conn.Close()
		metrics.WSClients.Dec()
		s.log.Infow("websocket client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			s.log.Warnw("bad client message", "err", err)
			continue
		}

		s.handleClientMessage(clientMsg)
	}
}

func (s *Server) handleClientMessage(msg ClientMessage) {
	switch msg.Type {
	case "set_tick":
		s.setTickLevel(msg.Tick)
	default:
		s.log.Warnw("unknown client message type", "type", msg.Type)
	}
}

func (s *Server) setTickLevel(tick float64) {
	tickLevel := types.TickLevel(tick)

	validTick := false
	for _, available := range types.AvailableTickLevels {
		if available == tickLevel {
			validTick = true
			break
		}
	}

	if !validTick {
		s.log.Warnw("invalid tick level", "tick", tick)
		return
	}

	s.tickMux.Lock()
	s.aggregator.SetTickLevel(tickLevel)
	s.tickMux.Unlock()
	s.log.Infow("tick level changed", "tick", tick)
}

func (s *Server) broadcastMessages() {
	for msg := range s.broadcast {
		s.clientsMux.RLock()
		for client := range s.clients {
			if err := client.WriteJSON(msg); err != nil {
				s.log.Warnw("write to client failed", "err", err)
				// closing fails the reader loop, which owns the cleanup
				client.Close()
			}
		}
		s.clientsMux.RUnlock()
	}
}

func (s *Server) startDataPush(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.clientsMux.RLock()
		hasClients := len(s.clients) > 0
		s.clientsMux.RUnlock()

		if !hasClients {
			continue
		}

		timestamp := time.Now().UnixMilli()

		for _, f := range s.manager.List() {
			snap := f.LatestSnapshot()
			if snap == nil {
				continue
			}

			s.broadcast <- s.buildOrderbookMessage(snap, nil, timestamp)
			s.broadcast <- s.buildStatsMessage(f, snap, timestamp)
		}
	}
}

func (s *Server) buildOrderbookMessage(snap *types.BookSnapshot, order *types.HypotheticalOrder, timestamp int64) OrderbookMessage {
	s.tickMux.RLock()
	aggBids := s.aggregator.AggregateBids(snap.Bids)
	aggAsks := s.aggregator.AggregateAsks(snap.Asks)
	s.tickMux.RUnlock()

	bids := toWireLadder(orderbook.MergeLadder(aggBids, order, types.Buy))
	asks := toWireLadder(orderbook.MergeLadder(aggAsks, order, types.Sell))

	return OrderbookMessage{
		Type:      MessageTypeOrderbook,
		Venue:     snap.Venue,
		Symbol:    snap.Symbol,
		Bids:      bids,
		Asks:      asks,
		Spread:    snap.Spread.StringFixed(2),
		Timestamp: timestamp,
	}
}

func (s *Server) buildStatsMessage(f venue.Feed, snap *types.BookSnapshot, timestamp int64) StatsMessage {
	summary := orderbook.Summarize(snap, s.imbalanceDepth)

	msg := StatsMessage{
		Type:      MessageTypeStats,
		Venue:     snap.Venue,
		Symbol:    snap.Symbol,
		State:     string(f.State()),
		Connected: f.IsConnected(),
		BestBid:   snap.BestBid().StringFixed(2),
		BestAsk:   snap.BestAsk().StringFixed(2),
		MidPrice:  snap.MidPrice().StringFixed(2),
		Spread:    snap.Spread.StringFixed(2),
		BidVolume: summary.BidVolume.StringFixed(4),
		AskVolume: summary.AskVolume.StringFixed(4),
		Imbalance: summary.Imbalance.StringFixed(2),
		Timestamp: timestamp,
	}
	if t, ok := f.LastUpdate(); ok {
		msg.LastUpdate = t.UnixMilli()
	}
	return msg
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(venue.All))
	for _, v := range venue.All {
		names = append(names, string(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"venues": names})
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	v := venue.Name(vars["venue"])
	symbol := vars["symbol"]

	f, ok := s.manager.Lookup(v, symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "no feed for venue/symbol")
		return
	}
	snap := f.LatestSnapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}

	order, err := parseOrderQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.buildOrderbookMessage(snap, order, time.Now().UnixMilli()))
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	var req impactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, ok := s.manager.Lookup(venue.Name(req.Venue), req.Symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "no feed for venue/symbol")
		return
	}
	snap := f.LatestSnapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}

	order, err := buildOrder(req.Side, req.Kind, req.Price, req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := orderbook.EstimateImpact(*order, snap)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	metrics.ImpactRequestsTotal.Inc()

	writeJSON(w, http.StatusOK, impactResponse{
		FillPercentage:    result.FillPercentage.StringFixed(2),
		AverageFillPrice:  result.AverageFillPrice.StringFixed(2),
		SlippagePercent:   result.SlippagePercent.StringFixed(3),
		MarketImpact:      result.MarketImpact.StringFixed(0),
		EstimatedFillTime: result.EstimatedFillTime.Seconds(),
		LevelsConsumed:    result.LevelsConsumed,
		Warnings:          result.Warnings,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	feeds := s.manager.List()
	statuses := make([]map[string]interface{}, 0, len(feeds))
	for _, f := range feeds {
		h := f.Health()
		statuses = append(statuses, map[string]interface{}{
			"venue":       string(f.Name()),
			"symbol":      f.Symbol(),
			"state":       string(h.State),
			"snapshots":   h.Snapshots,
			"disconnects": h.Disconnects,
			"reconnects":  h.Reconnects,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feeds": statuses})
}

// parseOrderQuery reads an optional hypothetical order from query params:
// side, kind, quantity, price. Absent quantity means no order.
func parseOrderQuery(r *http.Request) (*types.HypotheticalOrder, error) {
	q := r.URL.Query()
	if q.Get("quantity") == "" {
		return nil, nil
	}
	return buildOrder(q.Get("side"), q.Get("kind"), q.Get("price"), q.Get("quantity"))
}

func buildOrder(side, kind, price, quantity string) (*types.HypotheticalOrder, error) {
	order := types.HypotheticalOrder{}

	switch types.Side(side) {
	case types.Buy, types.Sell:
		order.Side = types.Side(side)
	default:
		return nil, errors.New("side must be buy or sell")
	}

	switch types.OrderKind(kind) {
	case types.Market, types.Limit:
		order.Kind = types.OrderKind(kind)
	default:
		return nil, errors.New("kind must be market or limit")
	}

	qty, err := decimal.NewFromString(quantity)
	if err != nil {
		return nil, errors.New("invalid quantity")
	}
	order.Quantity = qty

	if order.Kind == types.Limit {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, errors.New("limit order requires a valid price")
		}
		order.Price = p
	}

	return &order, nil
}

func toWireLadder(entries []orderbook.LadderEntry) []PriceLevel {
	out := make([]PriceLevel, 0, len(entries))
	for _, e := range entries {
		out = append(out, PriceLevel{
			Price:        e.Price.StringFixed(2),
			Size:         e.Size.StringFixed(4),
			Total:        e.Total.StringFixed(4),
			Hypothetical: e.Hypothetical,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
