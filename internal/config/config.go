package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the marketplace server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Tangle   TangleConfig
	Pricing  PricingConfig
	Watch    WatchConfig
	ArtDir   string
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type TangleConfig struct {
	NodeURL string
	Timeout time.Duration
}

// PricingConfig controls how a commission is priced. The cost of a piece is
// surcharge + average_duration_seconds * TimeCostPerSecond, or
// surcharge + DefaultCost when the artist has no recorded average yet.
type PricingConfig struct {
	TimeCostPerSecond uint64
	DefaultCost       uint64
}

// WatchConfig controls the per-job payment watchers.
type WatchConfig struct {
	BalanceCheckInterval time.Duration
	WaitPayment          time.Duration
}

// CanvasConfig holds all configuration for the canvas client daemon.
type CanvasConfig struct {
	MarketplaceURL   string
	Tangle           TangleConfig
	ArtworkDir       string
	StatePath        string
	ArtCheckInterval time.Duration
	MaxCheckTime     time.Duration
	CheckInterval    time.Duration
	RefreshCooldown  time.Duration
	RefreshInterval  time.Duration
	LowBalanceAmount uint64
}

// Load reads marketplace server configuration from environment variables and
// returns a validated Config. Returns an error with a descriptive message if
// any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ARTMARKET_PORT", 8080),
			Env:  envString("ARTMARKET_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Tangle: TangleConfig{
			NodeURL: os.Getenv("TANGLE_NODE_URL"),
			Timeout: envDuration("TANGLE_TIMEOUT", 30*time.Second),
		},
		Pricing: PricingConfig{
			TimeCostPerSecond: envUint("ARTMARKET_TIME_COST", 100),
			DefaultCost:       envUint("ARTMARKET_DEFAULT_COST", 1000),
		},
		Watch: WatchConfig{
			BalanceCheckInterval: envDuration("ARTMARKET_BALANCE_CHECK_INTERVAL", 30*time.Second),
			WaitPayment:          envDuration("ARTMARKET_WAIT_PAYMENT", 10*time.Minute),
		},
		ArtDir: envString("ARTMARKET_ART_DIR", "art"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Tangle.NodeURL == "" {
		return fmt.Errorf("TANGLE_NODE_URL is required")
	}
	if !strings.HasPrefix(c.Tangle.NodeURL, "http://") && !strings.HasPrefix(c.Tangle.NodeURL, "https://") {
		return fmt.Errorf("TANGLE_NODE_URL must start with http:// or https://, got %q", c.Tangle.NodeURL)
	}

	if c.Watch.BalanceCheckInterval <= 0 {
		return fmt.Errorf("ARTMARKET_BALANCE_CHECK_INTERVAL must be positive")
	}
	if c.Watch.WaitPayment <= 0 {
		return fmt.Errorf("ARTMARKET_WAIT_PAYMENT must be positive")
	}

	return nil
}

// LoadCanvas reads canvas client configuration from environment variables and
// returns a validated CanvasConfig.
func LoadCanvas() (*CanvasConfig, error) {
	cfg := &CanvasConfig{
		MarketplaceURL: os.Getenv("CANVAS_MARKETPLACE_URL"),
		Tangle: TangleConfig{
			NodeURL: os.Getenv("TANGLE_NODE_URL"),
			Timeout: envDuration("TANGLE_TIMEOUT", 30*time.Second),
		},
		ArtworkDir:       envString("CANVAS_ARTWORK_DIR", "artwork"),
		StatePath:        envString("CANVAS_STATE_PATH", "canvas.toml"),
		ArtCheckInterval: envDuration("CANVAS_ART_CHECK_INTERVAL", 30*time.Second),
		MaxCheckTime:     envDuration("CANVAS_MAX_CHECK_TIME", 15*time.Minute),
		CheckInterval:    envDuration("CANVAS_CHECK_INTERVAL", 5*time.Minute),
		RefreshCooldown:  envDuration("CANVAS_REFRESH_COOLDOWN", 4*time.Minute),
		RefreshInterval:  envDuration("CANVAS_REFRESH_INTERVAL", 240*time.Hour),
		LowBalanceAmount: envUint("CANVAS_LOW_BALANCE_AMOUNT", 100),
	}

	if cfg.MarketplaceURL == "" {
		return nil, fmt.Errorf("CANVAS_MARKETPLACE_URL is required")
	}
	if !strings.HasPrefix(cfg.MarketplaceURL, "http://") && !strings.HasPrefix(cfg.MarketplaceURL, "https://") {
		return nil, fmt.Errorf("CANVAS_MARKETPLACE_URL must start with http:// or https://, got %q", cfg.MarketplaceURL)
	}
	if cfg.Tangle.NodeURL == "" {
		return nil, fmt.Errorf("TANGLE_NODE_URL is required")
	}
	if cfg.ArtCheckInterval <= 0 {
		return nil, fmt.Errorf("CANVAS_ART_CHECK_INTERVAL must be positive")
	}

	return cfg, nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envUint(key string, defaultVal uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return u
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
