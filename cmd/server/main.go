package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roomrelay/internal/app"
)

func main() {
	cfg, err := app.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port (ignored when -addr is set)")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address")
	flag.StringVar(&cfg.Path, "path", cfg.Path, "websocket path")
	flag.BoolVar(&cfg.LeavePreviousRoom, "leave-previous-room", cfg.LeavePreviousRoom, "leave the current room when joining another")
	flag.DurationVar(&cfg.RoomIdleTTL, "room-idle-ttl", cfg.RoomIdleTTL, "evict empty rooms idle this long (0 keeps them forever)")
	flag.Parse()
	log.SetPrefix("[RELAY] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("Server is running on %s (ws path %s)", handle.Addr(), app.NormalizeSocketPath(cfg.Path))
	if err := handle.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
