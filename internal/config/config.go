package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVMIRROR_"

// Config holds UI core and development host configuration
type Config struct {
	Host    HostConfig    `yaml:"host"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	UI      UIConfig      `yaml:"ui"`
	Journal JournalConfig `yaml:"journal"`
	DevHost DevHostConfig `yaml:"devhost"`
}

// HostConfig locates the host the UI mirrors
type HostConfig struct {
	URL   string `yaml:"url" env:"HOST_URL"`
	Token string `yaml:"token" env:"HOST_TOKEN"`
}

// BridgeConfig holds message bridge settings
type BridgeConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" env:"BRIDGE_REQUEST_TIMEOUT"`
}

// UIConfig holds interaction timings
type UIConfig struct {
	TooltipDelay   time.Duration `yaml:"tooltip_delay" env:"UI_TOOLTIP_DELAY"`
	HotbarDuration time.Duration `yaml:"hotbar_duration" env:"UI_HOTBAR_DURATION"`
	PendingTTL     time.Duration `yaml:"pending_ttl" env:"UI_PENDING_TTL"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"UI_SWEEP_INTERVAL"`
}

// JournalConfig holds transaction journal settings
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"JOURNAL_ENABLED"`
	Dir     string `yaml:"dir" env:"JOURNAL_DIR"`
}

// DevHostConfig holds development host settings
type DevHostConfig struct {
	Server  ServerConfig `yaml:"server"`
	JWT     JWTConfig    `yaml:"jwt"`
	Redis   RedisConfig  `yaml:"redis"`
	Fixture string       `yaml:"fixture" env:"DEVHOST_FIXTURE"` // YAML inventory fixture, empty for the built-in sample
}

// ServerConfig holds listener settings
type ServerConfig struct {
	Host string `yaml:"host" env:"DEVHOST_HOST"`
	Port int    `yaml:"port" env:"DEVHOST_PORT"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer string `yaml:"issuer" env:"DEVHOST_JWT_ISSUER"`
	Secret string `yaml:"secret" env:"DEVHOST_JWT_SECRET"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled         bool   `yaml:"enabled" env:"DEVHOST_REDIS_ENABLED"`
	Address         string `yaml:"address" env:"DEVHOST_REDIS_ADDRESS"`
	Password        string `yaml:"password" env:"DEVHOST_REDIS_PASSWORD"`
	DB              int    `yaml:"db" env:"DEVHOST_REDIS_DB"`
	BlacklistPrefix string `yaml:"blacklist_prefix" env:"DEVHOST_REDIS_BLACKLIST_PREFIX"`
}

// Load reads configuration from a YAML file, then applies INVMIRROR_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Set defaults if not provided
func (cfg *Config) setDefaults() {
	if cfg.Host.URL == "" {
		cfg.Host.URL = "ws://127.0.0.1:8080/ws"
	}
	if cfg.Bridge.RequestTimeout == 0 {
		cfg.Bridge.RequestTimeout = 10 * time.Second
	}
	if cfg.UI.TooltipDelay == 0 {
		cfg.UI.TooltipDelay = 500 * time.Millisecond
	}
	if cfg.UI.HotbarDuration == 0 {
		cfg.UI.HotbarDuration = 3 * time.Second
	}
	if cfg.UI.PendingTTL == 0 {
		cfg.UI.PendingTTL = 30 * time.Second
	}
	if cfg.UI.SweepInterval == 0 {
		cfg.UI.SweepInterval = time.Second
	}
	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = "./data/journal"
	}
	if cfg.DevHost.Server.Port == 0 {
		cfg.DevHost.Server.Port = 8080
	}
	if cfg.DevHost.JWT.Issuer == "" {
		cfg.DevHost.JWT.Issuer = "invmirror-devhost"
	}
	if cfg.DevHost.Redis.BlacklistPrefix == "" {
		cfg.DevHost.Redis.BlacklistPrefix = "blacklist:"
	}
}
