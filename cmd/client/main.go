package main

import (
	"flag"
	"fmt"
	"os"

	"roomrelay/internal/app"
)

func main() {
	cfg, err := app.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "WebSocket URL (e.g., ws://localhost:3000/socket)")
	flag.StringVar(&cfg.Username, "user", cfg.Username, "display name")
	flag.StringVar(&cfg.Language, "lang", cfg.Language, "language tag shown to other members")
	flag.Parse()

	if args := flag.Args(); len(args) >= 1 {
		cfg.RoomID = args[0]
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
