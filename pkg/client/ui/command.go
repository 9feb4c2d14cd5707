package ui

import (
	"strings"

	"github.com/tyrbo/aochat/pkg/client"
)

// ParseCommand turns a slash-command line into a session command. The
// second return is false when the line is not a well-formed command.
func ParseCommand(input string) (client.Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, false
	}

	name, rest, _ := strings.Cut(input[1:], " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "invite":
		if rest == "" || strings.Contains(rest, " ") {
			return nil, false
		}
		return client.InviteCommand{User: rest}, true

	case "kick":
		if rest == "" || strings.Contains(rest, " ") {
			return nil, false
		}
		return client.KickCommand{User: rest}, true

	case "leave":
		if rest == "" || strings.Contains(rest, " ") {
			return nil, false
		}
		return client.LeaveCommand{User: rest}, true

	case "tell":
		user, text, ok := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if !ok || user == "" || text == "" {
			return nil, false
		}
		return client.TellCommand{User: user, Text: text}, true
	}

	return nil, false
}
