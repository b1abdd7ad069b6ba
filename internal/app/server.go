package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	intrnl "roomrelay/internal"
)

// ServerHandle represents a running HTTP/WebSocket relay instance.
type ServerHandle struct {
	addr   string
	server *http.Server
	relay  *intrnl.Server
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	stopOnce sync.Once
	stopErr  error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown with the provided context deadline.
// Open websockets are closed so their disconnect handling runs.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	h.stopOnce.Do(func() {
		h.cancel()
		h.relay.CloseConnections()
		h.stopErr = h.server.Shutdown(ctx)
	})
	return h.stopErr
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer wires the relay handlers and starts serving in the background.
// Call Stop/Wait to manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig) (*ServerHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.Path = NormalizeSocketPath(cfg.Path)

	logger := log.Default()
	if cfg.Quiet {
		logger = log.New(io.Discard, "", 0)
	}
	relay := intrnl.NewServer(intrnl.ServerOptions{
		LeavePreviousRoom: cfg.LeavePreviousRoom,
		RateLimitBurst:    cfg.RateLimitBurst,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: relay.Handler(cfg.Path),
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		server: httpServer,
		relay:  relay,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if cfg.RoomIdleTTL > 0 {
		go relay.SweepIdleRooms(runCtx, cfg.RoomIdleTTL, cfg.RoomIdleTTL/2)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-handle.done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handle.Stop(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server shutdown error: %v", err)
		}
	}()

	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	h.cancel()
	h.err = err
}
