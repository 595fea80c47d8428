package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"booksim/internal/config"
	"booksim/internal/factory"
	"booksim/internal/feed"
	"booksim/internal/logging"
	"booksim/internal/metrics"
	"booksim/internal/websocket"

	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath = flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	var addr = flag.String("addr", "", "Listen address override")
	var symbol = flag.String("symbol", "", "Symbol override for every configured venue")
	var seed = flag.Int64("seed", 0, "Deterministic seed override (0 keeps the configured seed)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *symbol != "" {
		for i := range cfg.Feeds {
			cfg.Feeds[i].Symbol = *symbol
		}
	}
	if *seed != 0 {
		cfg.Simulator.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	reg := metrics.Init()
	manager := feed.NewManager(factory.NewFeedBuilder(cfg, feed.SystemClock(), logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, fc := range cfg.Feeds {
		if _, err := manager.StartFeed(fc.Venue, fc.Symbol); err != nil {
			manager.StopAll()
			logger.Fatalw("start feed failed", "venue", string(fc.Venue), "symbol", fc.Symbol, "err", err)
		}
		logger.Infow("feed started", "venue", string(fc.Venue), "symbol", fc.Symbol)
	}

	server := websocket.NewServer(manager, cfg.Server, cfg.App, reg, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorw("server error", "err", err)
	}

	manager.StopAll()
	logger.Infow("all feeds stopped, goodbye")
}
