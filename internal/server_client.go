package internal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 8192
	sendBuffer = 256
)

const rateLimitText = "You're sending messages too quickly. Please wait a moment and try again."

// Client is one websocket connection with its outbound queue.
type Client struct {
	id     string
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	mutex  sync.Mutex
	closed bool
}

func newClient(server *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:     NewConnectionID(),
		server: server,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// enqueue never blocks. If the client cannot keep up its queue is closed,
// which makes writePump hang up and the read side run the disconnect.
func (client *Client) enqueue(payload []byte) bool {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		client.closed = true
		close(client.send)
		return false
	}
}

func (client *Client) shutdown() {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if !client.closed {
		client.closed = true
		close(client.send)
	}
}

func (client *Client) readPump() {
	defer func() {
		client.server.unregister(client)
		client.shutdown()
		client.conn.Close()
		client.server.router.Handle(client.id, Frame{Event: EventDisconnect})
		client.server.logger.Printf("User disconnected: %s", client.id)
	}()
	client.conn.SetReadLimit(maxMsgSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.server.logger.Printf("read %s: %v", client.id, err)
			}
			break
		}
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			client.server.logger.Printf("bad frame from %s: %v", client.id, err)
			continue
		}
		// disconnect is raised by the transport only
		if frame.Event == EventDisconnect {
			continue
		}
		if !client.server.limiter.Allow(client.id) {
			client.server.metrics.IncRateLimited()
			client.server.Deliver([]string{client.id}, Outbound{Event: EventError, Data: rateLimitText})
			continue
		}
		client.server.router.Handle(client.id, frame)
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
