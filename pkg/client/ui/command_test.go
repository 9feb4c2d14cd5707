package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tyrbo/aochat/pkg/client"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  client.Command
		ok    bool
	}{
		{
			name:  "invite",
			input: "/invite Bob",
			want:  client.InviteCommand{User: "Bob"},
			ok:    true,
		},
		{
			name:  "kick",
			input: "/kick Bob",
			want:  client.KickCommand{User: "Bob"},
			ok:    true,
		},
		{
			name:  "leave",
			input: "/leave Owner",
			want:  client.LeaveCommand{User: "Owner"},
			ok:    true,
		},
		{
			name:  "tell",
			input: "/tell Bob hello there",
			want:  client.TellCommand{User: "Bob", Text: "hello there"},
			ok:    true,
		},
		{
			name:  "surrounding whitespace",
			input: "  /invite Bob  ",
			want:  client.InviteCommand{User: "Bob"},
			ok:    true,
		},
		{
			name:  "tell without text",
			input: "/tell Bob",
			ok:    false,
		},
		{
			name:  "invite without user",
			input: "/invite",
			ok:    false,
		},
		{
			name:  "invite with extra argument",
			input: "/invite Bob now",
			ok:    false,
		},
		{
			name:  "unknown command",
			input: "/dance",
			ok:    false,
		},
		{
			name:  "not a command",
			input: "hello",
			ok:    false,
		},
		{
			name:  "empty",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
