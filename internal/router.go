package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ErrNoActiveSession marks a room-scoped event from a connection that has
// no session. The router swallows it; it only shows up in logs.
var ErrNoActiveSession = errors.New("no active session")

const roomMissingText = "Room does not exist."

// Transport delivers an outbound event to a set of connections. Delivery
// to each connection is independent and must not block the caller.
type Transport interface {
	Deliver(connIDs []string, event Outbound)
}

// RouterConfig tunes the router. The zero value keeps stale memberships on
// re-join and logs to the standard logger.
type RouterConfig struct {
	// LeavePreviousRoom drops a connection from its previous room's
	// broadcast group when it creates or joins another room. When false the
	// connection stays in the old group and keeps receiving its traffic.
	LeavePreviousRoom bool
	Metrics           *Metrics
	Logger            *log.Logger
}

// Router turns inbound events into registry and directory changes and
// decides who hears about them.
type Router struct {
	registry      *Registry
	directory     *Directory
	transport     Transport
	metrics       *Metrics
	logger        *log.Logger
	leavePrevious bool
}

func NewRouter(registry *Registry, directory *Directory, transport Transport, cfg RouterConfig) *Router {
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Router{
		registry:      registry,
		directory:     directory,
		transport:     transport,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		leavePrevious: cfg.LeavePreviousRoom,
	}
}

// Handle applies one inbound frame from connID. Malformed payloads and
// unknown events are logged and dropped.
func (router *Router) Handle(connID string, frame Frame) {
	var err error
	switch frame.Event {
	case EventCreateRoom:
		var req createRoomRequest
		if err = decodePayload(frame.Data, &req); err == nil {
			router.createRoom(connID, req)
		}
	case EventJoinRoom:
		var req joinRoomRequest
		if err = decodePayload(frame.Data, &req); err == nil {
			router.joinRoom(connID, req)
		}
	case EventSendMessage:
		var req sendMessageRequest
		if err = decodePayload(frame.Data, &req); err == nil {
			err = router.sendMessage(connID, req)
		}
	case EventEditMessage:
		var req editMessageRequest
		if err = decodePayload(frame.Data, &req); err == nil {
			err = router.editMessage(connID, req)
		}
	case EventSpeakingStart, EventSpeakingStop:
		err = router.speaking(connID, frame.Event)
	case EventLeaveRoom:
		var req leaveRoomRequest
		if err = decodePayload(frame.Data, &req); err == nil {
			router.leaveRoom(connID, string(req.RoomID))
		}
	case EventDisconnect:
		router.Disconnect(connID)
	default:
		err = fmt.Errorf("unknown event %q", frame.Event)
	}
	if err != nil && !errors.Is(err, ErrNoActiveSession) {
		router.logger.Printf("%s from %s dropped: %v", frame.Event, connID, err)
	}
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func (router *Router) createRoom(connID string, req createRoomRequest) {
	roomID := router.registry.CreateRoom()
	router.metrics.IncRoomCreated()
	router.leavePreviousRoom(connID, roomID)
	if err := router.registry.AddMember(roomID, connID); err != nil {
		router.logger.Printf("create-room: join %s: %v", roomID, err)
		return
	}
	router.directory.Set(connID, req.Name, req.Language, roomID)
	router.logger.Printf("%s created room %s and selected language %s", req.Name, roomID, req.Language)
	router.toConn(connID, Outbound{Event: EventRoomCreated, Data: RoomPayload{RoomID: roomID}})
}

func (router *Router) joinRoom(connID string, req joinRoomRequest) {
	roomID := string(req.RoomID)
	if !router.registry.RoomExists(roomID) {
		router.rejectJoin(connID, roomID)
		return
	}
	router.leavePreviousRoom(connID, roomID)
	if err := router.registry.AddMember(roomID, connID); err != nil {
		router.rejectJoin(connID, roomID)
		return
	}
	router.directory.Set(connID, req.Name, req.Language, roomID)
	router.metrics.IncJoin()
	router.logger.Printf("%s joined room %s and selected language %s", req.Name, roomID, req.Language)
	router.toRoom(roomID, systemNotice(req.Name+" has joined the room"))
	router.toConn(connID, Outbound{Event: EventRoomJoined, Data: RoomPayload{RoomID: roomID}})
}

func (router *Router) rejectJoin(connID, roomID string) {
	router.metrics.IncJoinRejected()
	router.logger.Printf("Failed join attempt: Room %s does not exist.", roomID)
	router.toConn(connID, Outbound{Event: EventError, Data: roomMissingText})
}

// leavePreviousRoom applies the re-join policy before connID enters nextRoom.
func (router *Router) leavePreviousRoom(connID, nextRoom string) {
	if !router.leavePrevious {
		return
	}
	session, ok := router.directory.Get(connID)
	if !ok || session.RoomID == "" || session.RoomID == nextRoom {
		return
	}
	router.registry.RemoveMember(session.RoomID, connID)
}

func (router *Router) sendMessage(connID string, req sendMessageRequest) error {
	session, ok := router.directory.Get(connID)
	if !ok {
		return ErrNoActiveSession
	}
	roomID := string(req.RoomID)
	if roomID == "" {
		roomID = session.RoomID
	}
	message, err := router.registry.AppendMessage(roomID, session.Name, session.Language, req.Message)
	if err != nil {
		return fmt.Errorf("room %s: %w", roomID, err)
	}
	router.metrics.IncMessage()
	router.toRoom(roomID, Outbound{Event: EventReceiveMessage, Data: ReceiveMessage{
		Message:        message.Body,
		Sender:         message.Sender,
		SenderLanguage: message.Language,
		ID:             message.ID,
	}})
	return nil
}

func (router *Router) editMessage(connID string, req editMessageRequest) error {
	session, ok := router.directory.Get(connID)
	if !ok {
		return ErrNoActiveSession
	}
	roomID := string(req.RoomID)
	if roomID == "" {
		roomID = session.RoomID
	}
	message, err := router.registry.EditMessage(roomID, req.MessageID, req.UpdatedMessage)
	if err != nil {
		return fmt.Errorf("room %s message %s: %w", roomID, req.MessageID, err)
	}
	router.metrics.IncEdit()
	router.toRoom(roomID, Outbound{Event: EventMessageEdited, Data: MessageEdited{
		MessageID:      message.ID,
		NewMessage:     message.Body,
		SenderLanguage: session.Language,
	}})
	return nil
}

func (router *Router) speaking(connID, event string) error {
	session, ok := router.directory.Get(connID)
	if !ok {
		return ErrNoActiveSession
	}
	router.toRoomExcept(session.RoomID, connID, Outbound{Event: event, Data: Speaking{Sender: session.Name}})
	return nil
}

func (router *Router) leaveRoom(connID, roomID string) {
	session, ok := router.directory.ClearIf(connID, roomID)
	if !ok {
		router.logger.Printf("Leave room attempt failed: User not in room %s", roomID)
		return
	}
	router.registry.RemoveMember(roomID, connID)
	router.toRoom(roomID, systemNotice(session.Name+" has left the room"))
	router.logger.Printf("%s left room: %s", session.Name, roomID)
}

// Disconnect is called by the transport once the connection is gone. It is
// safe to call more than once; only the first call with a live session
// announces anything.
func (router *Router) Disconnect(connID string) {
	session, ok := router.directory.Clear(connID)
	router.registry.RemoveEverywhere(connID)
	if !ok {
		return
	}
	router.toRoom(session.RoomID, systemNotice(session.Name+" has left the room"))
	router.logger.Printf("%s disconnected from room: %s", session.Name, session.RoomID)
}

func systemNotice(text string) Outbound {
	return Outbound{Event: EventMessage, Data: SystemMessage{Sender: systemSender, Message: text}}
}

func (router *Router) toConn(connID string, event Outbound) {
	router.transport.Deliver([]string{connID}, event)
}

func (router *Router) toRoom(roomID string, event Outbound) {
	members := router.registry.Members(roomID)
	if len(members) == 0 {
		return
	}
	router.transport.Deliver(members, event)
}

func (router *Router) toRoomExcept(roomID, exclude string, event Outbound) {
	members := router.registry.Members(roomID)
	recipients := members[:0]
	for _, connID := range members {
		if connID != exclude {
			recipients = append(recipients, connID)
		}
	}
	if len(recipients) == 0 {
		return
	}
	router.transport.Deliver(recipients, event)
}
