package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"booksim/internal/types"
	"booksim/internal/venue"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	if len(cfg.Feeds) != len(venue.All) {
		t.Errorf("expected one default feed per venue, got %d", len(cfg.Feeds))
	}
	if cfg.Generator.BasePrice != 65000 {
		t.Errorf("base price = %g, want 65000", cfg.Generator.BasePrice)
	}
	if cfg.App.DefaultTickLevel != types.Tick1 {
		t.Errorf("default tick level = %g, want 1.0", float64(cfg.App.DefaultTickLevel))
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no feeds", func(c *Config) { c.Feeds = nil }},
		{"unknown venue", func(c *Config) { c.Feeds[0].Venue = "binance" }},
		{"empty symbol", func(c *Config) { c.Feeds[0].Symbol = "" }},
		{"zero depth", func(c *Config) { c.Generator.Depth = 0 }},
		{"negative base price", func(c *Config) { c.Generator.BasePrice = -1 }},
		{"inverted spread range", func(c *Config) { c.Generator.SpreadMin = 30; c.Generator.SpreadMax = 10 }},
		{"inverted refresh range", func(c *Config) { c.Simulator.RefreshMin = 2 * time.Second; c.Simulator.RefreshMax = time.Second }},
		{"zero check interval", func(c *Config) { c.Simulator.CheckInterval = 0 }},
		{"probability above one", func(c *Config) { c.Simulator.DisconnectProb = 1.5 }},
		{"negative probability", func(c *Config) { c.Simulator.DisconnectProb = -0.1 }},
		{"zero reconnect delay", func(c *Config) { c.Simulator.ReconnectDelay = 0 }},
		{"zero push interval", func(c *Config) { c.Server.PushInterval = 0 }},
		{"zero imbalance depth", func(c *Config) { c.App.ImbalanceDepth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
feeds:
  - venue: okx
    symbol: ETH-USD
generator:
  base_price: 3000
simulator:
  disconnect_prob: 0.1
server:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Symbol != "ETH-USD" {
		t.Errorf("feeds not overridden: %+v", cfg.Feeds)
	}
	if cfg.Generator.BasePrice != 3000 {
		t.Errorf("base price = %g, want 3000", cfg.Generator.BasePrice)
	}
	if cfg.Simulator.DisconnectProb != 0.1 {
		t.Errorf("disconnect prob = %g, want 0.1", cfg.Simulator.DisconnectProb)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}

	// untouched sections keep their defaults
	if cfg.Generator.Depth != 15 {
		t.Errorf("depth = %d, want default 15", cfg.Generator.Depth)
	}
	if cfg.Simulator.ConnectDelay != time.Second {
		t.Errorf("connect delay = %v, want default 1s", cfg.Simulator.ConnectDelay)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("BOOKSIM_TEST_ADDR", ":7070")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server:\n  addr: \"${BOOKSIM_TEST_ADDR}\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q, want expanded :7070", cfg.Server.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "generator:\n  depth: -1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error from Load")
	}
}
