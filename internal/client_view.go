package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// pre styled colors, all from lipgloss
var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	menuBoxStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	menuItemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).PaddingLeft(1)
	menuHotkeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	menuHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	noticeBoxStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("95")).Padding(1, 2).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	speakingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Italic(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	messageBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	activeUserStyle    = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	languageStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (model *TUIModel) View() string {
	switch model.mode {
	case modeNamePrompt:
		return model.renderPrompt("Who are you?", "Pick the name other members will see.")
	case modeJoinPrompt:
		return model.renderPrompt("Join a room", "Enter the 6-digit room id and press Enter.")
	case modeWaiting:
		return model.renderWaitingView()
	case modeChat:
		return model.renderChatView()
	default:
		return model.renderMenuView()
	}
}

func (model *TUIModel) renderMenuView() string {
	title := appTitleStyle.Render("RoomRelay")
	subtitle := subtitleStyle.Render(fmt.Sprintf("Short-lived chat rooms • %s (%s)", model.username, model.language))

	options := []string{
		renderMenuOption("1", "Join a room"),
		renderMenuOption("2", "Create a room"),
		renderMenuOption("q", "Quit"),
	}

	viewSections := []string{
		lipgloss.JoinVertical(lipgloss.Left, title, subtitle),
		model.renderStatusLine(),
		menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, options...)),
	}
	if notices := model.renderNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, menuHintStyle.Render("1) Join  •  2) Create  •  q) Quit"))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderPrompt(title, hint string) string {
	viewSections := []string{appTitleStyle.Render(title), menuHintStyle.Render(hint)}
	if notices := model.renderNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, inputBoxStyle.Render(model.textInput.View()))
	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderWaitingView() string {
	text := "Creating room…"
	if model.pendingAction == actionJoin {
		text = fmt.Sprintf("Joining room %s…", model.pendingRoom)
	}
	viewSections := []string{appTitleStyle.Render("RoomRelay"), model.renderStatusLine(), connectingStyle.Render(text)}
	if notices := model.renderNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, menuHintStyle.Render("Esc to cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderStatusLine() string {
	switch {
	case model.connectionError != nil && !model.isConnected:
		return errorStyle.Render("Connection error: " + model.connectionError.Error())
	case model.isConnected:
		return connectedStyle.Render("Connected")
	default:
		return connectingStyle.Render("Connecting…")
	}
}

func (model *TUIModel) renderChatView() string {
	headerSegments := []string{"RoomRelay", fmt.Sprintf("Room %s", model.roomID), fmt.Sprintf("User %s", model.username)}
	if model.speaking {
		headerSegments = append(headerSegments, "🎙 speaking")
	}
	header := chatHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	var messageLines []string
	seq := 0
	for _, line := range model.lines {
		if !line.System {
			seq++
		}
		messageLines = append(messageLines, model.renderChatLine(line, seq))
	}
	if len(messageLines) == 0 {
		messageLines = append(messageLines, systemMessageStyle.Render("No messages yet. Say hi and start the conversation."))
	}

	sections := []string{header, model.renderStatusLine()}
	if speaking := model.renderSpeakers(); speaking != "" {
		sections = append(sections, speaking)
	}
	sections = append(sections, messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, messageLines...)))
	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections,
		inputBoxStyle.Render(model.textInput.View()),
		menuHintStyle.Render("/edit <n> <text> • /speak • /leave or Esc • /quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderSpeakers() string {
	if len(model.speakers) == 0 {
		return ""
	}
	names := make([]string, 0, len(model.speakers))
	for name := range model.speakers {
		names = append(names, name)
	}
	sort.Strings(names)
	verb := "is"
	if len(names) > 1 {
		verb = "are"
	}
	return speakingStyle.Render(fmt.Sprintf("%s %s speaking…", strings.Join(names, ", "), verb))
}

func renderMenuOption(hotkey string, label string) string {
	key := menuHotkeyStyle.Render(hotkey)
	return lipgloss.JoinHorizontal(lipgloss.Left, key, menuItemStyle.Render(label))
}

func (model *TUIModel) renderNotices() string {
	if len(model.notices) == 0 {
		return ""
	}
	notices := make([]string, 0, len(model.notices))
	for _, text := range model.notices {
		notices = append(notices, systemMessageStyle.Render(text))
	}
	return noticeBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, notices...))
}

// renderChatLine stamps the time, numbers user messages for /edit, and
// colors the sender.
func (model *TUIModel) renderChatLine(line chatLine, seq int) string {
	timestamp := timestampStyle.Render(fmt.Sprintf("[%s]", line.At.Format("15:04:05")))
	if line.System {
		return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", systemMessageStyle.Render(line.Body))
	}

	var nameStyle lipgloss.Style
	if line.Sender == model.username {
		nameStyle = activeUserStyle
	} else {
		nameStyle = usernameStyle.Copy().Foreground(colorForUser(line.Sender))
	}

	number := timestampStyle.Render(fmt.Sprintf("#%d", seq))
	name := nameStyle.Render(line.Sender)
	lang := languageStyle.Render("(" + line.Language + ")")
	body := strings.ReplaceAll(line.Body, "\n", "\n   ")
	if line.Edited {
		body += " (edited)"
	}

	return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", number, " ", name, " ", lang, ": ", messageBodyStyle.Render(body))
}

// color for users
func colorForUser(name string) lipgloss.Color {
	if len(userColorPalette) == 0 {
		return lipgloss.Color("249")
	}
	if name == "" {
		return userColorPalette[0]
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}
