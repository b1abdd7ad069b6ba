package app

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3000 || cfg.Path != "/socket" || !cfg.LeavePreviousRoom {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RoomIdleTTL != 0 || cfg.RateLimitBurst != 20 || cfg.RateLimitWindow != time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ListenAddr() != ":3000" {
		t.Fatalf("expected :3000, got %q", cfg.ListenAddr())
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "4100")
	t.Setenv("RELAY_PATH", "ws")
	t.Setenv("RELAY_LEAVE_PREVIOUS_ROOM", "false")
	t.Setenv("RELAY_ROOM_IDLE_TTL", "10m")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr() != ":4100" || cfg.LeavePreviousRoom || cfg.RoomIdleTTL != 10*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if NormalizeSocketPath(cfg.Path) != "/ws" {
		t.Fatalf("expected /ws, got %q", NormalizeSocketPath(cfg.Path))
	}

	t.Setenv("RELAY_ADDR", "127.0.0.1:9000")
	cfg, err = LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Fatalf("explicit address should win, got %q", cfg.ListenAddr())
	}
}

func TestLoadServerConfigRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := LoadServerConfig()
	if err == nil || !strings.HasPrefix(err.Error(), "parse env:") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadClientConfig(t *testing.T) {
	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "ws://localhost:3000/socket" || cfg.Language != "en" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	t.Setenv("RELAY_SERVER", "wss://relay.example.com/socket")
	t.Setenv("RELAY_USER", "alice")
	t.Setenv("RELAY_LANGUAGE", "fr")
	cfg, err = LoadClientConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "wss://relay.example.com/socket" || cfg.Username != "alice" || cfg.Language != "fr" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestNormalizeSocketPath(t *testing.T) {
	cases := map[string]string{
		"":        "/socket",
		"socket":  "/socket",
		"/custom": "/custom",
	}
	for in, want := range cases {
		if got := NormalizeSocketPath(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}
