package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// bubbletea messages for asynchronous events
type (
	connectedMsg     struct{}
	incomingMsg      Frame
	errorMsg         error
	connectFailedMsg struct{ err error }
	sendFailedMsg    struct{ err error }
	reconnectMsg     struct{}
	skipMsg          struct{}
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(typedMessage)

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		cmds := []tea.Cmd{model.readOnceCmd()}
		if model.mode == modeWaiting && model.pendingAction == actionJoin && model.pendingRoom != "" {
			cmds = append(cmds, model.emitCmd(EventJoinRoom, joinRoomRequest{
				RoomID:   roomCode(model.pendingRoom),
				Name:     model.username,
				Language: model.language,
			}))
		}
		return model, tea.Batch(cmds...)

	case incomingMsg:
		cmd := model.applyFrame(Frame(typedMessage))
		return model, tea.Batch(cmd, model.readOnceCmd())

	case skipMsg:
		return model, model.readOnceCmd()

	case errorMsg:
		// the relay forgets us with the socket, so we land back on the menu
		model.isConnected = false
		model.connectionError = typedMessage
		model.websocketConn = nil
		if model.roomID != "" {
			model.addNotice("Disconnected from room " + model.roomID)
		}
		model.roomID = ""
		model.lines = model.lines[:0]
		model.showMenu()
		return model, model.scheduleReconnect()

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		return model, model.scheduleReconnect()

	case sendFailedMsg:
		model.addNotice(fmt.Sprintf("Send failed: %v", typedMessage.err))
		return model, nil

	case reconnectMsg:
		if !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		return model, tea.Quit
	}
	switch model.mode {
	case modeMenu:
		switch key.String() {
		case "1", "j", "J":
			model.pendingAction = actionJoin
			return model, model.showPrompt(modeNamePrompt, "name> ", "Enter display name…", model.username)
		case "2", "c", "C":
			model.pendingAction = actionCreate
			return model, model.showPrompt(modeNamePrompt, "name> ", "Enter display name…", model.username)
		case "q", "Q", "3", "esc":
			return model, tea.Quit
		}
		return model, nil

	case modeNamePrompt:
		switch key.Type {
		case tea.KeyEsc:
			model.showMenu()
			return model, nil
		case tea.KeyEnter:
			trimmed := strings.TrimSpace(model.textInput.Value())
			if trimmed == "" {
				model.addNotice("Display name cannot be empty.")
				return model, nil
			}
			model.username = trimmed
			if model.pendingAction == actionJoin {
				return model, model.showPrompt(modeJoinPrompt, "room> ", "Enter 6-digit room id…", "")
			}
			if !model.isConnected {
				model.addNotice("Not connected yet, try again in a moment.")
				return model, nil
			}
			model.mode = modeWaiting
			return model, model.emitCmd(EventCreateRoom, createRoomRequest{Name: model.username, Language: model.language})
		}

	case modeJoinPrompt:
		switch key.Type {
		case tea.KeyEsc:
			model.showMenu()
			return model, nil
		case tea.KeyEnter:
			trimmed := strings.TrimSpace(model.textInput.Value())
			if trimmed == "" {
				return model, nil
			}
			if !model.isConnected {
				model.addNotice("Not connected yet, try again in a moment.")
				return model, nil
			}
			model.pendingRoom = trimmed
			model.mode = modeWaiting
			return model, model.emitCmd(EventJoinRoom, joinRoomRequest{
				RoomID:   roomCode(trimmed),
				Name:     model.username,
				Language: model.language,
			})
		}

	case modeWaiting:
		if key.Type == tea.KeyEsc {
			model.showMenu()
		}
		return model, nil

	case modeChat:
		switch key.Type {
		case tea.KeyEsc:
			return model, model.leaveRoom()
		case tea.KeyEnter:
			input := model.textInput.Value()
			model.textInput.SetValue("")
			return model, model.submitChat(input)
		}
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return model, cmd
}

// submitChat sends plain text as a message and runs slash commands.
func (model *TUIModel) submitChat(input string) tea.Cmd {
	command, isCommand := parseChatCommand(input)
	if !isCommand {
		body := strings.TrimSpace(input)
		if body == "" || !model.isConnected {
			return nil
		}
		return model.emitCmd(EventSendMessage, sendMessageRequest{RoomID: roomCode(model.roomID), Message: body})
	}
	switch command.name {
	case "quit", "exit":
		return tea.Quit
	case "leave":
		return model.leaveRoom()
	case "edit":
		if len(command.args) == 0 || command.rest == "" {
			model.addNotice("Usage: /edit <number> <new text>")
			return nil
		}
		line, ok := model.findLine(command.args[0])
		if !ok {
			model.addNotice("No message " + command.args[0])
			return nil
		}
		return model.emitCmd(EventEditMessage, editMessageRequest{
			RoomID:         roomCode(model.roomID),
			MessageID:      line.ID,
			UpdatedMessage: command.rest,
		})
	case "speak":
		model.speaking = !model.speaking
		if model.speaking {
			return model.emitCmd(EventSpeakingStart, nil)
		}
		return model.emitCmd(EventSpeakingStop, nil)
	default:
		model.addNotice("Unknown command /" + command.name)
		return nil
	}
}

func (model *TUIModel) leaveRoom() tea.Cmd {
	roomID := model.roomID
	model.roomID = ""
	model.lines = model.lines[:0]
	model.speakers = make(map[string]bool)
	model.speaking = false
	model.showMenu()
	if roomID == "" || !model.isConnected {
		return nil
	}
	return model.emitCmd(EventLeaveRoom, roomID)
}

// findLine resolves "/edit" targets by the number shown in the log or by
// the raw message id.
func (model *TUIModel) findLine(ref string) (chatLine, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		seq := 0
		for _, line := range model.lines {
			if line.System {
				continue
			}
			seq++
			if seq == n {
				return line, true
			}
		}
	}
	for _, line := range model.lines {
		if !line.System && line.ID == ref {
			return line, true
		}
	}
	return chatLine{}, false
}

// applyFrame folds one relay event into the model.
func (model *TUIModel) applyFrame(frame Frame) tea.Cmd {
	switch frame.Event {
	case EventRoomCreated, EventRoomJoined:
		var payload RoomPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil
		}
		cmd := model.enterChat(payload.RoomID)
		if frame.Event == EventRoomCreated {
			model.appendSystem(fmt.Sprintf("Room %s created. %s", payload.RoomID, inviteText(model.serverURL, payload.RoomID)))
		}
		return cmd
	case EventError:
		var text string
		if err := json.Unmarshal(frame.Data, &text); err != nil {
			text = string(frame.Data)
		}
		model.addNotice(text)
		if model.mode == modeWaiting && model.pendingAction == actionJoin {
			return model.showPrompt(modeJoinPrompt, "room> ", "Enter 6-digit room id…", model.pendingRoom)
		}
	case EventMessage:
		var payload SystemMessage
		if err := json.Unmarshal(frame.Data, &payload); err == nil {
			model.appendSystem(payload.Message)
		}
	case EventReceiveMessage:
		var payload ReceiveMessage
		if err := json.Unmarshal(frame.Data, &payload); err == nil {
			model.lines = append(model.lines, chatLine{
				ID:       payload.ID,
				Sender:   payload.Sender,
				Language: payload.SenderLanguage,
				Body:     payload.Message,
				At:       model.now(),
			})
		}
	case EventMessageEdited:
		var payload MessageEdited
		if err := json.Unmarshal(frame.Data, &payload); err == nil {
			for i := range model.lines {
				if model.lines[i].ID == payload.MessageID && !model.lines[i].System {
					model.lines[i].Body = payload.NewMessage
					model.lines[i].Edited = true
				}
			}
		}
	case EventSpeakingStart, EventSpeakingStop:
		var payload Speaking
		if err := json.Unmarshal(frame.Data, &payload); err == nil {
			if frame.Event == EventSpeakingStart {
				model.speakers[payload.Sender] = true
			} else {
				delete(model.speakers, payload.Sender)
			}
		}
	}
	return nil
}

func (model *TUIModel) appendSystem(text string) {
	model.lines = append(model.lines, chatLine{Sender: systemSender, Body: text, System: true, At: model.now()})
}
