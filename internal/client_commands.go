package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

var errNotConnected = errors.New("websocket not connected")

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// websocket dial
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		socketURL, err := validateSocketURL(model.serverURL)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(socketURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

// blocks for the next frame from the relay
func (model *TUIModel) readOnceCmd() tea.Cmd {
	conn := model.websocketConn
	return func() tea.Msg {
		if conn == nil {
			return errorMsg(errNotConnected)
		}
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return errorMsg(err)
		}
		if messageType != websocket.TextMessage {
			return skipMsg{}
		}
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return skipMsg{}
		}
		return incomingMsg(frame)
	}
}

func (model *TUIModel) writeFrame(frame Frame) error {
	if model.websocketConn == nil {
		return errNotConnected
	}
	encoded, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	model.writeMutex.Lock()
	defer model.writeMutex.Unlock()
	return model.websocketConn.WriteMessage(websocket.TextMessage, encoded)
}

// emitCmd encodes data and hands the frame to the model's sender.
func (model *TUIModel) emitCmd(event string, data any) tea.Cmd {
	send := model.send
	return func() tea.Msg {
		var raw json.RawMessage
		if data != nil {
			encoded, err := json.Marshal(data)
			if err != nil {
				return sendFailedMsg{err: err}
			}
			raw = encoded
		}
		if err := send(Frame{Event: event, Data: raw}); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func (model *TUIModel) closeConn(reason string) {
	if model.websocketConn == nil {
		return
	}
	model.writeMutex.Lock()
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	model.writeMutex.Unlock()
	_ = model.websocketConn.Close()
}

// entry for bubbletea
func RunClient(opts ClientOptions) error {
	model := NewTUIModel(opts)
	program := tea.NewProgram(model)
	_, err := program.Run()
	model.closeConn("client quit")
	return err
}

func validateSocketURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	return parsed.String(), nil
}

// chatCommand is a parsed slash command typed into the chat input.
type chatCommand struct {
	name string
	args []string
	rest string
}

// parseChatCommand splits "/edit 3 new text" into name "edit", args
// ["3"] and rest "new text". Plain text yields ok=false.
func parseChatCommand(input string) (chatCommand, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return chatCommand{}, false
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return chatCommand{}, false
	}
	cmd := chatCommand{name: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		cmd.args = fields[1:2]
		after := strings.TrimSpace(trimmed[1+len(fields[0]):])
		cmd.rest = strings.TrimSpace(strings.TrimPrefix(after, fields[1]))
	}
	return cmd, true
}

func inviteText(serverURL, roomID string) string {
	var sb strings.Builder
	sb.WriteString("Invite others with:\n  ")
	sb.WriteString("go run ./cmd/client --server ")
	sb.WriteString(serverURL)
	sb.WriteString(" --user <name> ")
	sb.WriteString(roomID)
	return sb.String()
}
