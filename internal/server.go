package internal

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// ServerOptions configures the websocket relay.
type ServerOptions struct {
	// LeavePreviousRoom removes a connection from its old room when it
	// creates or joins another one.
	LeavePreviousRoom bool
	// RateLimitBurst caps inbound events per connection within
	// RateLimitWindow. Zero disables the limit.
	RateLimitBurst  int
	RateLimitWindow time.Duration
	Logger          *log.Logger
}

// Server is the websocket transport around the router. It tracks the live
// clients so the router can address them by connection id.
type Server struct {
	registry  *Registry
	directory *Directory
	router    *Router
	metrics   *Metrics
	limiter   *RateLimiter
	logger    *log.Logger

	mutex   sync.RWMutex
	clients map[string]*Client
}

func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Second
	}
	server := &Server{
		registry:  NewRegistry(),
		directory: NewDirectory(),
		metrics:   NewMetrics(),
		limiter:   NewRateLimiter(opts.RateLimitBurst, opts.RateLimitWindow),
		logger:    opts.Logger,
		clients:   make(map[string]*Client),
	}
	server.router = NewRouter(server.registry, server.directory, server, RouterConfig{
		LeavePreviousRoom: opts.LeavePreviousRoom,
		Metrics:           server.metrics,
		Logger:            opts.Logger,
	})
	return server
}

// Handler mounts the websocket endpoint at wsPath next to the status,
// room lookup and metrics routes.
func (s *Server) Handler(wsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, s.ServeWS)
	mux.HandleFunc("/exists", s.HandleRoomExists)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/", s.HandleStatus)
	return withCORS(mux)
}

// Deliver implements Transport. The frame is encoded once and queued on
// every recipient independently; a full queue only affects that recipient.
func (s *Server) Deliver(connIDs []string, event Outbound) {
	payload, err := event.Encode()
	if err != nil {
		s.logger.Printf("encode %s: %v", event.Event, err)
		return
	}
	s.mutex.RLock()
	targets := make([]*Client, 0, len(connIDs))
	for _, connID := range connIDs {
		if client, ok := s.clients[connID]; ok {
			targets = append(targets, client)
		}
	}
	s.mutex.RUnlock()
	for _, client := range targets {
		if !client.enqueue(payload) {
			s.metrics.IncDropped()
		}
	}
}

func (s *Server) register(client *Client) {
	s.mutex.Lock()
	s.clients[client.id] = client
	s.mutex.Unlock()
	s.metrics.IncConn()
}

func (s *Server) unregister(client *Client) {
	s.mutex.Lock()
	_, ok := s.clients[client.id]
	delete(s.clients, client.id)
	s.mutex.Unlock()
	if ok {
		s.metrics.DecConn()
	}
	s.limiter.Forget(client.id)
}

// CloseConnections asks every live client to close. Their read loops then
// run the usual disconnect path.
func (s *Server) CloseConnections() {
	s.mutex.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	s.mutex.RUnlock()
	for _, client := range clients {
		client.shutdown()
	}
}

// SweepIdleRooms evicts empty rooms idle for ttl, every interval, until ctx
// is done.
func (s *Server) SweepIdleRooms(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := s.registry.SweepIdle(now, ttl); len(evicted) > 0 {
				s.logger.Printf("evicted %d idle rooms", len(evicted))
			}
		}
	}
}

// Stats reports the live registry and directory sizes.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		RegistryStats: s.registry.Stats(),
		Sessions:      s.directory.Len(),
	}
}

type ServerStats struct {
	RegistryStats
	Sessions int `json:"sessions"`
}
