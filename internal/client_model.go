package internal

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// ClientOptions configures the terminal client.
type ClientOptions struct {
	ServerURL string
	RoomID    string
	Username  string
	Language  string
}

// chatLine is one rendered entry of the chat log.
type chatLine struct {
	ID       string
	Sender   string
	Language string
	Body     string
	System   bool
	Edited   bool
	At       time.Time
}

// tui model struct for all the components and modes
type TUIModel struct {
	textInput       textinput.Model
	lines           []chatLine
	notices         []string
	serverURL       string
	roomID          string
	username        string
	language        string
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	send            func(Frame) error
	isConnected     bool
	connectionError error
	mode            appMode
	pendingAction   actionType
	pendingRoom     string
	speakers        map[string]bool
	speaking        bool
	now             func() time.Time
}

type appMode int

const (
	modeMenu appMode = iota
	modeNamePrompt
	modeJoinPrompt
	modeWaiting
	modeChat
)

type actionType int

const (
	actionNone actionType = iota
	actionJoin
	actionCreate
)

func NewTUIModel(opts ClientOptions) *TUIModel {
	input := textinput.New()
	input.CharLimit = 0

	username := opts.Username
	if username == "" {
		username = defaultUsername()
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}

	model := &TUIModel{
		textInput: input,
		lines:     make([]chatLine, 0, 64),
		serverURL: opts.ServerURL,
		username:  username,
		language:  language,
		speakers:  make(map[string]bool),
		now:       time.Now,
	}
	model.send = model.writeFrame
	model.showMenu()
	if opts.RoomID != "" {
		model.pendingAction = actionJoin
		model.pendingRoom = opts.RoomID
		model.mode = modeWaiting
	}
	return model
}

func defaultUsername() string {
	if user := os.Getenv("RELAY_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

// the socket is room-independent, so we dial straight away
func (model *TUIModel) Init() tea.Cmd {
	return model.connectCmd()
}

func (model *TUIModel) showMenu() {
	model.mode = modeMenu
	model.pendingAction = actionNone
	model.textInput.SetValue("")
	model.textInput.Blur()
	model.textInput.Prompt = ""
	model.textInput.Placeholder = ""
}

func (model *TUIModel) showPrompt(mode appMode, prompt, placeholder, value string) tea.Cmd {
	model.mode = mode
	model.textInput.SetValue(value)
	model.textInput.Prompt = prompt
	model.textInput.Placeholder = placeholder
	return model.textInput.Focus()
}

func (model *TUIModel) enterChat(roomID string) tea.Cmd {
	model.roomID = roomID
	model.pendingAction = actionNone
	model.pendingRoom = ""
	model.notices = nil
	model.speakers = make(map[string]bool)
	model.speaking = false
	return model.showPrompt(modeChat, "> ", "Type a message…", "")
}

func (model *TUIModel) addNotice(text string) {
	model.notices = append(model.notices, text)
	if len(model.notices) > 5 {
		model.notices = model.notices[len(model.notices)-5:]
	}
}
