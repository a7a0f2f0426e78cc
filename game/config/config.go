package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config holds every tunable of the broker server
type Config struct {
	Host      string
	Port      int
	StaticDir string

	// Websocket tuning
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	AllowedOrigins []string

	Ngrok NgrokConfig
}

// NgrokConfig controls the optional public tunnel
type NgrokConfig struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Host:           "localhost",
		Port:           3000,
		StaticDir:      "public",
		SendBuffer:     256,
		MaxMessageSize: 512,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
	}
}

type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	StaticDir      string   `toml:"static_dir"`
	SendBuffer     int      `toml:"send_buffer"`
	MaxMessageSize int64    `toml:"max_message_size"`
	WriteWait      string   `toml:"write_wait"`
	PongWait       string   `toml:"pong_wait"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Ngrok          struct {
		Enabled   bool   `toml:"enabled"`
		AuthToken string `toml:"authtoken"`
		Domain    string `toml:"domain"`
	} `toml:"ngrok"`
}

// Load reads a TOML file and overlays the keys it defines on Default()
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("static_dir") {
		cfg.StaticDir = strings.TrimSpace(raw.StaticDir)
	}
	if meta.IsDefined("send_buffer") {
		cfg.SendBuffer = raw.SendBuffer
	}
	if meta.IsDefined("max_message_size") {
		cfg.MaxMessageSize = raw.MaxMessageSize
	}
	if meta.IsDefined("write_wait") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteWait))
		if err != nil {
			return Config{}, fmt.Errorf("parse write_wait: %w", err)
		}
		cfg.WriteWait = d
	}
	if meta.IsDefined("pong_wait") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PongWait))
		if err != nil {
			return Config{}, fmt.Errorf("parse pong_wait: %w", err)
		}
		cfg.PongWait = d
	}
	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}
	if meta.IsDefined("ngrok", "enabled") {
		cfg.Ngrok.Enabled = raw.Ngrok.Enabled
	}
	if meta.IsDefined("ngrok", "authtoken") {
		cfg.Ngrok.AuthToken = strings.TrimSpace(raw.Ngrok.AuthToken)
	}
	if meta.IsDefined("ngrok", "domain") {
		cfg.Ngrok.Domain = strings.TrimSpace(raw.Ngrok.Domain)
	}

	return cfg, nil
}

// Validate checks the merged configuration
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.SendBuffer < 1 {
		return fmt.Errorf("%w: send_buffer must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize < 1 {
		return fmt.Errorf("%w: max_message_size must be positive", ErrInvalidConfig)
	}
	if c.WriteWait <= 0 || c.PongWait <= 0 {
		return fmt.Errorf("%w: write_wait and pong_wait must be positive", ErrInvalidConfig)
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		return fmt.Errorf("%w: ngrok enabled without an auth token", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the host:port listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PingPeriod is how often keepalive pings are sent. Must be less than PongWait.
func (c Config) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// ParseOrigins splits a comma-separated origin list
func ParseOrigins(value string) []string {
	return normalizeOrigins(strings.Split(value, ","))
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
