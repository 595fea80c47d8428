package config

import (
	"fmt"
	"os"
	"time"

	"booksim/internal/types"
	"booksim/internal/venue"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Feeds     []FeedConfig    `yaml:"feeds"`
	Generator GeneratorConfig `yaml:"generator"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Server    ServerConfig    `yaml:"server"`
	App       AppConfig       `yaml:"app"`
}

// FeedConfig identifies one (venue, symbol) feed to run
type FeedConfig struct {
	Venue  venue.Name `yaml:"venue"`
	Symbol string     `yaml:"symbol"`
}

// GeneratorConfig holds synthetic book generation parameters
type GeneratorConfig struct {
	Depth     int     `yaml:"depth"`      // price levels per side
	BasePrice float64 `yaml:"base_price"` // mid price the ladder is built around
	SpreadMin float64 `yaml:"spread_min"` // spread drawn uniformly from [SpreadMin, SpreadMax]
	SpreadMax float64 `yaml:"spread_max"`
	SizeMin   float64 `yaml:"size_min"` // level size drawn uniformly from [SizeMin, SizeMax]
	SizeMax   float64 `yaml:"size_max"`
}

// SimulatorConfig holds feed scheduling parameters
type SimulatorConfig struct {
	ConnectDelay   time.Duration `yaml:"connect_delay"`
	RefreshMin     time.Duration `yaml:"refresh_min"` // tick delay drawn uniformly from [RefreshMin, RefreshMax]
	RefreshMax     time.Duration `yaml:"refresh_max"`
	CheckInterval  time.Duration `yaml:"check_interval"`  // disconnect-check cadence
	DisconnectProb float64       `yaml:"disconnect_prob"` // probability per check of dropping the feed
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	Seed           int64         `yaml:"seed"` // 0 means time-seeded
}

// ServerConfig holds HTTP/WebSocket server configuration
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	PushInterval time.Duration `yaml:"push_interval"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	DefaultTickLevel types.TickLevel `yaml:"default_tick_level"`
	ImbalanceDepth   int             `yaml:"imbalance_depth"`
	LogLevel         string          `yaml:"log_level"`
}

// Default returns the default configuration: BTC-USD on every supported venue
func Default() Config {
	feeds := make([]FeedConfig, 0, len(venue.All))
	for _, v := range venue.All {
		feeds = append(feeds, FeedConfig{Venue: v, Symbol: "BTC-USD"})
	}

	return Config{
		Feeds: feeds,
		Generator: GeneratorConfig{
			Depth:     15,
			BasePrice: 65000,
			SpreadMin: 5,
			SpreadMax: 25,
			SizeMin:   0.1,
			SizeMax:   3.1,
		},
		Simulator: SimulatorConfig{
			ConnectDelay:   1 * time.Second,
			RefreshMin:     500 * time.Millisecond,
			RefreshMax:     1500 * time.Millisecond,
			CheckInterval:  10 * time.Second,
			DisconnectProb: 0.05,
			ReconnectDelay: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8086",
			PushInterval: 200 * time.Millisecond,
		},
		App: AppConfig{
			DefaultTickLevel: types.Tick1,
			ImbalanceDepth:   10,
			LogLevel:         "info",
		},
	}
}

// Load reads configuration from a YAML file over the defaults. Environment
// variables in the file are expanded before parsing.
func Load(filePath string) (Config, error) {
	cfg := Default()

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations a feed cannot be constructed from.
// Misconfiguration is fatal at startup, not recoverable mid-run.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	for _, f := range c.Feeds {
		if !f.Venue.Valid() {
			return fmt.Errorf("unknown venue %q", f.Venue)
		}
		if f.Symbol == "" {
			return fmt.Errorf("empty symbol for venue %q", f.Venue)
		}
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if err := c.Simulator.Validate(); err != nil {
		return err
	}
	if c.Server.PushInterval <= 0 {
		return fmt.Errorf("push_interval must be positive, got %v", c.Server.PushInterval)
	}
	if c.App.ImbalanceDepth <= 0 {
		return fmt.Errorf("imbalance_depth must be positive, got %d", c.App.ImbalanceDepth)
	}
	return nil
}

// Validate checks generator parameter ranges
func (c *GeneratorConfig) Validate() error {
	if c.Depth <= 0 {
		return fmt.Errorf("generator depth must be positive, got %d", c.Depth)
	}
	if c.BasePrice <= 0 {
		return fmt.Errorf("base_price must be positive, got %g", c.BasePrice)
	}
	if c.SpreadMin <= 0 || c.SpreadMax < c.SpreadMin {
		return fmt.Errorf("invalid spread range [%g, %g]", c.SpreadMin, c.SpreadMax)
	}
	if c.SizeMin <= 0 || c.SizeMax < c.SizeMin {
		return fmt.Errorf("invalid size range [%g, %g]", c.SizeMin, c.SizeMax)
	}
	return nil
}

// Validate checks simulator parameter ranges
func (c *SimulatorConfig) Validate() error {
	if c.ConnectDelay < 0 {
		return fmt.Errorf("connect_delay must not be negative, got %v", c.ConnectDelay)
	}
	if c.RefreshMin <= 0 || c.RefreshMax < c.RefreshMin {
		return fmt.Errorf("invalid refresh range [%v, %v]", c.RefreshMin, c.RefreshMax)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", c.CheckInterval)
	}
	if c.DisconnectProb < 0 || c.DisconnectProb > 1 {
		return fmt.Errorf("disconnect_prob must be in [0, 1], got %g", c.DisconnectProb)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %v", c.ReconnectDelay)
	}
	return nil
}
