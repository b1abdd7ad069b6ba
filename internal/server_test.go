package internal

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, opts ServerOptions) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	relay := NewServer(opts)
	httpServer := httptest.NewServer(relay.Handler("/socket"))
	t.Cleanup(func() {
		relay.CloseConnections()
		httpServer.Close()
	})
	return relay, httpServer
}

func dialSocket(t *testing.T, httpServer *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		frame.Data = raw
	}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func decodeData[T any](t *testing.T, frame Frame) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(frame.Data, &out); err != nil {
		t.Fatalf("decode %s data %s: %v", frame.Event, frame.Data, err)
	}
	return out
}

func TestWebsocketConversation(t *testing.T) {
	relay, httpServer := newTestServer(t, ServerOptions{LeavePreviousRoom: true})
	alice := dialSocket(t, httpServer)
	bob := dialSocket(t, httpServer)

	emit(t, alice, EventCreateRoom, map[string]string{"name": "Alice", "language": "en"})
	created := readFrame(t, alice)
	if created.Event != EventRoomCreated {
		t.Fatalf("expected room-created, got %+v", created)
	}
	roomID := decodeData[RoomPayload](t, created).RoomID

	emit(t, bob, EventJoinRoom, map[string]string{"roomId": roomID, "name": "Bob", "language": "fr"})
	notice := readFrame(t, bob)
	if notice.Event != EventMessage || decodeData[SystemMessage](t, notice) != (SystemMessage{Sender: "system", Message: "Bob has joined the room"}) {
		t.Fatalf("unexpected first frame for bob: %s %s", notice.Event, notice.Data)
	}
	if joined := readFrame(t, bob); joined.Event != EventRoomJoined || decodeData[RoomPayload](t, joined).RoomID != roomID {
		t.Fatalf("unexpected second frame for bob: %s %s", joined.Event, joined.Data)
	}
	if notice := readFrame(t, alice); notice.Event != EventMessage {
		t.Fatalf("alice should see the join notice, got %s", notice.Event)
	}

	emit(t, alice, EventSendMessage, map[string]string{"roomId": roomID, "message": "hi"})
	var sent ReceiveMessage
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		if frame.Event != EventReceiveMessage {
			t.Fatalf("expected receive-message, got %s", frame.Event)
		}
		sent = decodeData[ReceiveMessage](t, frame)
		if sent.Message != "hi" || sent.Sender != "Alice" || sent.SenderLanguage != "en" || sent.ID == "" {
			t.Fatalf("unexpected payload %+v", sent)
		}
	}

	emit(t, alice, EventEditMessage, map[string]string{"roomId": roomID, "messageId": sent.ID, "updatedMessage": "hello"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		want := MessageEdited{MessageID: sent.ID, NewMessage: "hello", SenderLanguage: "en"}
		if frame.Event != EventMessageEdited || decodeData[MessageEdited](t, frame) != want {
			t.Fatalf("unexpected edit frame %s %s", frame.Event, frame.Data)
		}
	}

	bob.Close()
	left := readFrame(t, alice)
	if left.Event != EventMessage || decodeData[SystemMessage](t, left).Message != "Bob has left the room" {
		t.Fatalf("expected leave notice, got %s %s", left.Event, left.Data)
	}

	stats := relay.Stats()
	if stats.Rooms != 1 || stats.Members != 1 || stats.Messages != 1 || stats.Sessions != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWebsocketJoinUnknownRoom(t *testing.T) {
	_, httpServer := newTestServer(t, ServerOptions{})
	conn := dialSocket(t, httpServer)

	emit(t, conn, EventJoinRoom, map[string]string{"roomId": "000000", "name": "Bob", "language": "fr"})
	frame := readFrame(t, conn)
	if frame.Event != EventError || decodeData[string](t, frame) != "Room does not exist." {
		t.Fatalf("unexpected frame %s %s", frame.Event, frame.Data)
	}
}

func TestWebsocketIgnoresClientDisconnectFrame(t *testing.T) {
	_, httpServer := newTestServer(t, ServerOptions{LeavePreviousRoom: true})
	alice := dialSocket(t, httpServer)
	bob := dialSocket(t, httpServer)

	emit(t, alice, EventCreateRoom, map[string]string{"name": "Alice", "language": "en"})
	roomID := decodeData[RoomPayload](t, readFrame(t, alice)).RoomID
	emit(t, bob, EventJoinRoom, map[string]string{"roomId": roomID, "name": "Bob", "language": "fr"})
	readFrame(t, bob)
	readFrame(t, bob)
	readFrame(t, alice)

	emit(t, bob, EventDisconnect, nil)
	emit(t, bob, EventSendMessage, map[string]string{"roomId": roomID, "message": "still here"})

	frame := readFrame(t, alice)
	if frame.Event != EventReceiveMessage || decodeData[ReceiveMessage](t, frame).Message != "still here" {
		t.Fatalf("bob should still be in the room, got %s %s", frame.Event, frame.Data)
	}
}

func TestWebsocketRateLimit(t *testing.T) {
	_, httpServer := newTestServer(t, ServerOptions{RateLimitBurst: 1, RateLimitWindow: time.Minute})
	conn := dialSocket(t, httpServer)

	emit(t, conn, EventCreateRoom, map[string]string{"name": "Alice", "language": "en"})
	if frame := readFrame(t, conn); frame.Event != EventRoomCreated {
		t.Fatalf("first event should pass, got %s", frame.Event)
	}
	emit(t, conn, EventCreateRoom, map[string]string{"name": "Alice", "language": "en"})
	frame := readFrame(t, conn)
	if frame.Event != EventError || decodeData[string](t, frame) != rateLimitText {
		t.Fatalf("expected rate limit error, got %s %s", frame.Event, frame.Data)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, httpServer := newTestServer(t, ServerOptions{})

	resp, err := http.Get(httpServer.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "Chat server is running" {
		t.Fatalf("unexpected status response %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected permissive CORS, got %q", got)
	}

	missing, err := http.Get(httpServer.URL + "/nowhere")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestPreflightRequest(t *testing.T) {
	_, httpServer := newTestServer(t, ServerOptions{})

	req, _ := http.NewRequest(http.MethodOptions, httpServer.URL+"/socket", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Fatalf("unexpected allowed methods %q", got)
	}
}

func TestRoomExistsEndpoint(t *testing.T) {
	relay, httpServer := newTestServer(t, ServerOptions{})
	roomID := relay.registry.CreateRoom()

	cases := []struct {
		query string
		want  int
	}{
		{"?room=" + roomID, http.StatusOK},
		{"?room=000000", http.StatusNotFound},
		{"", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := http.Get(httpServer.URL + "/exists" + tc.query)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("query %q: expected %d, got %d", tc.query, tc.want, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	relay, httpServer := newTestServer(t, ServerOptions{})
	relay.registry.CreateRoom()

	resp, err := http.Get(httpServer.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["rooms"] != float64(1) {
		t.Fatalf("expected one room, got %v", payload["rooms"])
	}
	if _, ok := payload["sessions"]; !ok {
		t.Fatalf("missing sessions in %v", payload)
	}
}
