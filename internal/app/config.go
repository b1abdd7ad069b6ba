package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig defines how the HTTP/WebSocket relay should run.
type ServerConfig struct {
	Port int    `env:"PORT" envDefault:"3000"`
	Addr string `env:"RELAY_ADDR"`
	Path string `env:"RELAY_PATH" envDefault:"/socket"`
	// LeavePreviousRoom drops a connection from its old room on re-join.
	// Set it to false to keep the legacy stale-membership behavior.
	LeavePreviousRoom bool          `env:"RELAY_LEAVE_PREVIOUS_ROOM" envDefault:"true"`
	RoomIdleTTL       time.Duration `env:"RELAY_ROOM_IDLE_TTL" envDefault:"0s"`
	RateLimitBurst    int           `env:"RELAY_RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"RELAY_RATE_LIMIT_WINDOW" envDefault:"1s"`
	Quiet             bool          `env:"RELAY_QUIET"`
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string `env:"RELAY_SERVER" envDefault:"ws://localhost:3000/socket"`
	Username  string `env:"RELAY_USER"`
	Language  string `env:"RELAY_LANGUAGE" envDefault:"en"`
	RoomID    string
}

// LoadServerConfig reads the server defaults from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig reads the client defaults from the environment.
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ListenAddr prefers an explicit address and falls back to ":<port>".
func (cfg ServerConfig) ListenAddr() string {
	if cfg.Addr != "" {
		return cfg.Addr
	}
	return ":" + strconv.Itoa(cfg.Port)
}

// NormalizeSocketPath guarantees the websocket path starts with '/' and
// falls back to /socket when empty.
func NormalizeSocketPath(path string) string {
	if path == "" {
		return "/socket"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
