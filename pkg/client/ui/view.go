package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	commandBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("208")) // orange

	chatBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("33")) // blue

	scrollBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("196")) // red

	channelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	switcherStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	switcherCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)
)

// View renders the full terminal frame
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	if m.showSwitcher {
		return m.renderSwitcher()
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderInputLine())
	return b.String()
}

func (m Model) renderMessages() string {
	return strings.Join(m.messages, "\n")
}

func (m Model) renderStatusBar() string {
	var style lipgloss.Style
	var label string
	switch m.mode {
	case ModeCommand:
		style = commandBarStyle
		label = "COMMAND"
	case ModeChat:
		style = chatBarStyle
		label = "CHAT"
	case ModeScroll:
		style = scrollBarStyle
		label = "SCROLL"
	}

	text := fmt.Sprintf(" %s | %s @ %s", label, m.characterName, m.conn.GetAddress())
	if m.status != "" {
		text += " | " + m.status
	}
	if m.width > len(text) {
		text += strings.Repeat(" ", m.width-len(text))
	}
	return style.Render(text)
}

func (m Model) renderInputLine() string {
	if m.mode == ModeScroll {
		return "(scrolling, Esc to return)"
	}
	indicator := ""
	if m.mode == ModeChat {
		if m.currentChannel != nil {
			indicator = channelStyle.Render("["+m.currentChannel.Render()+"]") + " "
		} else {
			indicator = channelStyle.Render("[no channel]") + " "
		}
	}
	return indicator + m.input.View()
}

func (m Model) renderSwitcher() string {
	var b strings.Builder
	b.WriteString("Switch channel\n\n")
	if len(m.channels) == 0 {
		b.WriteString("  (no channels yet)\n")
	}
	for i, ch := range m.channels {
		line := "  " + ch.Render()
		if i == m.switcherCursor {
			line = switcherCursorStyle.Render("> " + ch.Render())
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	box := switcherStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
