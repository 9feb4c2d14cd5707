package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/tyrbo/aochat/pkg/client"
)

// InputMode selects what keystrokes mean
type InputMode int

const (
	ModeCommand InputMode = iota
	ModeChat
	ModeScroll
)

// UpdateMsg wraps a session UI update
type UpdateMsg struct {
	Update client.UiUpdate
}

// ChannelsMsg carries the answer to a channel list query
type ChannelsMsg struct {
	Channels []client.ResolvedChannel
}

// SessionEndedMsg reports that the session loop has stopped
type SessionEndedMsg struct{}

// Model is the application state for the terminal view
type Model struct {
	conn     client.ConnectionInterface
	state    client.StateInterface
	commands chan<- client.Command
	queries  chan<- client.StateQuery
	updates  <-chan client.UiUpdate

	characterName string
	logger        zerolog.Logger

	mode  InputMode
	input textinput.Model

	messages []string
	viewport viewport.Model
	ready    bool

	channels       []client.ResolvedChannel
	currentChannel *client.ResolvedChannel
	showSwitcher   bool
	switcherCursor int

	status string
	width  int
	height int
}

// NewModel creates the application model
func NewModel(
	conn client.ConnectionInterface,
	state client.StateInterface,
	commands chan<- client.Command,
	queries chan<- client.StateQuery,
	updates <-chan client.UiUpdate,
	characterName string,
	logger zerolog.Logger,
) Model {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 0
	input.Focus()

	return Model{
		conn:          conn,
		state:         state,
		commands:      commands,
		queries:       queries,
		updates:       updates,
		characterName: characterName,
		logger:        logger,
		mode:          ModeCommand,
		input:         input,
	}
}

// Init starts listening for session updates
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForUpdates(m.updates),
		m.fetchChannels(),
		textinput.Blink,
	)
}

// listenForUpdates waits for the next session update
func listenForUpdates(updates <-chan client.UiUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return SessionEndedMsg{}
		}
		return UpdateMsg{Update: update}
	}
}

// fetchChannels asks the session for the current channel list
func (m Model) fetchChannels() tea.Cmd {
	queries := m.queries
	return func() tea.Msg {
		query := client.ChannelsQuery{Reply: make(chan []client.ResolvedChannel, 1)}
		select {
		case queries <- query:
		case <-time.After(time.Second):
			return ChannelsMsg{}
		}
		select {
		case channels := <-query.Reply:
			return ChannelsMsg{Channels: channels}
		case <-time.After(time.Second):
			return ChannelsMsg{}
		}
	}
}
