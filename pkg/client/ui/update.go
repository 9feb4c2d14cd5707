package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"github.com/tyrbo/aochat/pkg/client"
	"github.com/tyrbo/aochat/pkg/protocol"
)

// Update handles incoming messages and keystrokes
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Reserve one line for the status bar and one for input
		contentHeight := msg.Height - 2
		if contentHeight < 1 {
			contentHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.viewport.SetContent(m.renderMessages())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.input.Width = msg.Width - 4
		return m, nil

	case UpdateMsg:
		m = m.applyUpdate(msg.Update)
		return m, tea.Batch(listenForUpdates(m.updates), m.fetchChannels())

	case ChannelsMsg:
		m.channels = msg.Channels
		if m.switcherCursor >= len(m.channels) {
			m.switcherCursor = 0
		}
		// Re-select the remembered channel once it shows up
		if m.currentChannel == nil && m.state != nil {
			if last := m.state.GetLastChannel(); last != "" {
				for i := range m.channels {
					if m.channels[i].Render() == last {
						ch := m.channels[i]
						m.currentChannel = &ch
						break
					}
				}
			}
		}
		return m, nil

	case SessionEndedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showSwitcher {
		return m.handleSwitcherKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		switch m.mode {
		case ModeCommand:
			m.mode = ModeChat
			m.input.SetValue("")
		case ModeChat:
			m.mode = ModeCommand
			m.input.SetValue("/")
			m.input.CursorEnd()
		case ModeScroll:
			m.mode = ModeChat
			m.viewport.GotoBottom()
		}
		return m, nil

	case "tab", "ctrl+k":
		m.showSwitcher = true
		return m, m.fetchChannels()

	case "up", "pgup":
		if m.mode != ModeScroll {
			m.mode = ModeScroll
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "down", "pgdown":
		if m.mode == ModeScroll {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			if m.viewport.AtBottom() {
				m.mode = ModeChat
			}
			return m, cmd
		}
		return m, nil

	case "enter":
		return m.handleEnter()
	}

	if m.mode == ModeScroll {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSwitcherKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab", "ctrl+k":
		m.showSwitcher = false

	case "up":
		if m.switcherCursor > 0 {
			m.switcherCursor--
		}

	case "down":
		if m.switcherCursor < len(m.channels)-1 {
			m.switcherCursor++
		}

	case "enter":
		if m.switcherCursor < len(m.channels) {
			ch := m.channels[m.switcherCursor]
			m.currentChannel = &ch
			if m.state != nil {
				if err := m.state.SetLastChannel(ch.Render()); err != nil {
					m.logger.Debug().Err(err).Msg("failed to remember channel")
				}
			}
		}
		m.showSwitcher = false
	}
	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	if line == "" {
		return m, nil
	}

	switch m.mode {
	case ModeCommand:
		cmd, ok := ParseCommand(line)
		if !ok {
			m.status = "Error in command syntax"
			return m, nil
		}
		m.status = ""
		m.input.SetValue("")
		return m, m.dispatch(cmd)

	case ModeChat:
		if m.currentChannel == nil {
			m.status = "No channel selected, press Tab"
			return m, nil
		}
		channel := *m.currentChannel
		m.status = ""
		m.input.SetValue("")
		return m, m.dispatch(client.SendCommand{Channel: channel, Text: line})
	}

	return m, nil
}

// dispatch hands a command to the session loop
func (m Model) dispatch(cmd client.Command) tea.Cmd {
	commands := m.commands
	return func() tea.Msg {
		commands <- cmd
		return nil
	}
}

func (m Model) applyUpdate(update client.UiUpdate) Model {
	switch u := update.(type) {
	case client.MessageUpdate:
		m = m.appendLine(u.Message.Render())
		if u.Message.Channel.Kind == protocol.ChannelTell && u.Message.Sender != m.characterName {
			m.notify(u.Message)
		}

	case client.InviteUpdate:
		m = m.appendLine(fmt.Sprintf("You have been invited to %s, use /leave %s to part", u.Channel.Render(), u.Channel.Name))

	case client.KickUpdate:
		m = m.appendLine(fmt.Sprintf("You have been kicked from %s", u.Channel.Render()))

	case client.LeaveUpdate:
		m = m.appendLine(fmt.Sprintf("%s left %s", u.User, u.Channel.Render()))
	}
	return m
}

func (m Model) appendLine(line string) Model {
	m.messages = append(m.messages, line)
	if m.ready {
		m.viewport.SetContent(m.renderMessages())
		if m.mode != ModeScroll {
			m.viewport.GotoBottom()
		}
	}
	return m
}

// notify raises a desktop notification, best effort
func (m Model) notify(msg client.ResolvedMessage) {
	if err := beeep.Notify(msg.Sender, msg.Text, ""); err != nil {
		m.logger.Debug().Err(err).Msg("desktop notification failed")
	}
}
