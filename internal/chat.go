package internal

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Event names understood by the router, plus the ones it emits.
const (
	EventCreateRoom    = "create-room"
	EventJoinRoom      = "join-room"
	EventSendMessage   = "send-message"
	EventEditMessage   = "edit-message"
	EventSpeakingStart = "user-speaking-start"
	EventSpeakingStop  = "user-speaking-stop"
	EventLeaveRoom     = "leave-room"
	EventDisconnect    = "disconnect"

	EventRoomCreated    = "room-created"
	EventRoomJoined     = "room-joined"
	EventError          = "error"
	EventMessage        = "message"
	EventReceiveMessage = "receive-message"
	EventMessageEdited  = "message-edited"
)

const systemSender = "system"

// Frame is the envelope both sides exchange over the websocket:
// {"event": "<name>", "data": <payload>}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is an event the router asks the transport to deliver.
type Outbound struct {
	Event string
	Data  any
}

// Encode renders the outbound event as a wire frame.
func (o Outbound) Encode() ([]byte, error) {
	data, err := json.Marshal(o.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: o.Event, Data: data})
}

// roomCode accepts a room id sent either as a JSON string or as a number.
type roomCode string

func (c *roomCode) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*c = roomCode(s)
		return nil
	}
	if bytes.Equal(raw, []byte("null")) {
		*c = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*c = roomCode(strconv.FormatInt(i, 10))
		return nil
	}
	*c = roomCode(n.String())
	return nil
}

type createRoomRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

type joinRoomRequest struct {
	RoomID   roomCode `json:"roomId"`
	Name     string   `json:"name"`
	Language string   `json:"language"`
}

type sendMessageRequest struct {
	RoomID  roomCode `json:"roomId"`
	Message string   `json:"message"`
}

type editMessageRequest struct {
	RoomID         roomCode `json:"roomId"`
	MessageID      string   `json:"messageId"`
	UpdatedMessage string   `json:"updatedMessage"`
}

// leaveRoomRequest takes either a bare room id or {"roomId": ...}.
type leaveRoomRequest struct {
	RoomID roomCode
}

func (l *leaveRoomRequest) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			RoomID roomCode `json:"roomId"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		l.RoomID = wrapped.RoomID
		return nil
	}
	return json.Unmarshal(trimmed, &l.RoomID)
}

// RoomPayload answers room-created and room-joined.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// SystemMessage is the payload of the "message" event.
type SystemMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type ReceiveMessage struct {
	Message        string `json:"message"`
	Sender         string `json:"sender"`
	SenderLanguage string `json:"senderLanguage"`
	ID             string `json:"id"`
}

type MessageEdited struct {
	MessageID      string `json:"messageId"`
	NewMessage     string `json:"newMessage"`
	SenderLanguage string `json:"senderLanguage"`
}

// Speaking is the payload of user-speaking-start and user-speaking-stop.
type Speaking struct {
	Sender string `json:"sender"`
}
