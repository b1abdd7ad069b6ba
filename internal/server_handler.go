package internal

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and starts the client's pumps. Room
// selection happens over the socket, not in the URL.
func (s *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	websocketConn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.logger.Printf("upgrade error: %v", err)
		return
	}

	client := newClient(s, websocketConn)
	s.register(client)
	s.logger.Printf("New user connected: %s", client.id)

	go client.writePump()
	go client.readPump()
}
