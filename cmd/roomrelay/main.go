package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"roomrelay/internal/app"
)

const (
	modeServer = "server"
	modeClient = "client"
	modeLocal  = "local"
)

func main() {
	mode, args := parseMode(os.Args[1:])

	serverCfg, err := app.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomrelay: %v\n", err)
		os.Exit(1)
	}
	clientCfg, err := app.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomrelay: %v\n", err)
		os.Exit(1)
	}
	if mode == modeLocal && serverCfg.Addr == "" {
		serverCfg.Addr = "127.0.0.1:0"
	}

	flagSet := flag.NewFlagSet("roomrelay", flag.ExitOnError)
	flagSet.StringVar(&serverCfg.Addr, "addr", serverCfg.Addr, "server listen address (overrides PORT)")
	flagSet.IntVar(&serverCfg.Port, "port", serverCfg.Port, "server listen port")
	flagSet.StringVar(&serverCfg.Path, "path", serverCfg.Path, "websocket path")
	flagSet.BoolVar(&serverCfg.LeavePreviousRoom, "leave-previous-room", serverCfg.LeavePreviousRoom, "leave the current room when joining another")
	flagSet.DurationVar(&serverCfg.RoomIdleTTL, "room-idle-ttl", serverCfg.RoomIdleTTL, "evict empty rooms idle this long (0 keeps them forever)")
	flagSet.StringVar(&clientCfg.ServerURL, "server-url", clientCfg.ServerURL, "server websocket URL (client mode)")
	flagSet.StringVar(&clientCfg.Username, "user", clientCfg.Username, "display name")
	flagSet.StringVar(&clientCfg.Language, "lang", clientCfg.Language, "language tag")
	quiet := flagSet.Bool("quiet", serverCfg.Quiet, "suppress informational logs")
	_ = flagSet.Parse(args)
	serverCfg.Quiet = *quiet

	if remaining := flagSet.Args(); len(remaining) > 0 {
		clientCfg.RoomID = remaining[0]
	}

	infof := func(format string, args ...interface{}) {
		if *quiet {
			return
		}
		log.Printf(format, args...)
	}
	log.SetPrefix("[RELAY] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case modeServer:
		err = runServerMode(ctx, serverCfg, infof)
	case modeLocal:
		// the TUI owns the terminal, keep server chatter out of it
		serverCfg.Quiet = true
		err = runLocalMode(ctx, serverCfg, clientCfg, infof)
	default:
		err = runClientMode(clientCfg)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "roomrelay: %v\n", err)
		os.Exit(1)
	}
}

func runServerMode(ctx context.Context, cfg app.ServerConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		return err
	}
	infof("Server is running on %s (ws path %s)", handle.Addr(), app.NormalizeSocketPath(cfg.Path))
	return handle.Wait()
}

func runClientMode(cfg app.ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("client mode requires --server-url or RELAY_SERVER")
	}
	return app.RunClient(cfg)
}

func runLocalMode(ctx context.Context, serverCfg app.ServerConfig, clientCfg app.ClientConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, serverCfg)
	if err != nil {
		return err
	}
	defer stopServer(handle)

	infof("Starting local relay on %s", handle.Addr())
	if err := waitForServer(handle.Addr(), 5*time.Second); err != nil {
		return err
	}

	clientCfg.ServerURL = buildWebsocketURL(handle.Addr(), serverCfg.Path)
	infof("Launching client against %s", clientCfg.ServerURL)

	if err := app.RunClient(clientCfg); err != nil {
		return err
	}
	stopServer(handle)
	return handle.Wait()
}

func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func buildWebsocketURL(addr, path string) string {
	path = app.NormalizeSocketPath(path)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("ws://%s%s", addr, path)
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, port), path)
}

func parseMode(args []string) (string, []string) {
	if len(args) == 0 {
		return modeClient, args
	}
	switch strings.ToLower(args[0]) {
	case modeServer, modeClient, modeLocal:
		return strings.ToLower(args[0]), args[1:]
	}
	return modeClient, args
}

func stopServer(handle *app.ServerHandle) {
	if handle == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Stop(shutdownCtx)
}
