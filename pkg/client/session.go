package client

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/tyrbo/aochat/pkg/client/crypto"
	"github.com/tyrbo/aochat/pkg/protocol"
)

// LoginState tracks the handshake sub-flow
type LoginState int

const (
	LoginAwaitingSeed LoginState = iota
	LoginAwaitingCharList
	LoginAwaitingConfirmation
	LoginReady
)

// SessionConfig carries the credentials the handshake needs
type SessionConfig struct {
	Username  string
	Password  string
	Character string
}

// Session owns the event reconciliation loop: a single multiplexer over
// inbound packets, user commands and state queries. Inbound handling
// mutates the shared ChatState serially; commands run in their own
// goroutines so a slow name resolution never stalls the loop.
type Session struct {
	state    *ChatState
	conn     ConnectionInterface
	cfg      SessionConfig
	commands <-chan Command
	queries  <-chan StateQuery
	login    LoginState
	entropy  io.Reader
	logger   zerolog.Logger
}

// NewSession wires a session over an established connection
func NewSession(
	conn ConnectionInterface,
	cfg SessionConfig,
	commands <-chan Command,
	queries <-chan StateQuery,
	updates chan<- UiUpdate,
	logger zerolog.Logger,
) *Session {
	return &Session{
		state:    NewChatState(conn, updates, logger),
		conn:     conn,
		cfg:      cfg,
		commands: commands,
		queries:  queries,
		entropy:  rand.Reader,
		logger:   logger,
	}
}

// State exposes the shared chat state
func (s *Session) State() *ChatState {
	return s.state
}

// LoginStatus reports the current handshake phase
func (s *Session) LoginStatus() LoginState {
	return s.login
}

// Run drives the loop until the connection ends or a fatal condition is
// hit. Setup failures (login rejected, configured character missing) and
// protocol contract violations return an error; a server-side close returns
// nil.
func (s *Session) Run() error {
	for {
		select {
		case packet, ok := <-s.conn.Incoming():
			if !ok {
				s.logger.Info().Msg("connection closed")
				return nil
			}
			if err := s.handlePacket(packet); err != nil {
				return err
			}

		case err := <-s.conn.Errors():
			// Read errors are followed by the incoming channel closing;
			// nothing to do beyond recording them.
			s.logger.Warn().Err(err).Msg("connection error")

		case cmd := <-s.commands:
			s.dispatch(cmd)

		case query := <-s.queries:
			if err := s.handleQuery(query); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handlePacket(packet *protocol.Packet) error {
	switch packet.Type {
	case protocol.PacketLoginSeed:
		var seed protocol.LoginSeed
		if err := seed.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed login seed: %w", err)
		}
		key, err := crypto.GenerateLoginKey(s.entropy, seed.Seed, s.cfg.Username, s.cfg.Password)
		if err != nil {
			return fmt.Errorf("failed to derive login key: %w", err)
		}
		s.state.send(protocol.PacketLoginRequest, &protocol.LoginRequest{
			Username: s.cfg.Username,
			Key:      key,
		})
		s.login = LoginAwaitingCharList

	case protocol.PacketLoginCharList:
		var list protocol.LoginCharList
		if err := list.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed character list: %w", err)
		}
		var selected *protocol.Character
		for i := range list.Characters {
			if list.Characters[i].Name == s.cfg.Character {
				selected = &list.Characters[i]
				break
			}
		}
		if selected == nil {
			return fmt.Errorf("character %q is not on this account", s.cfg.Character)
		}
		s.state.currentUser.Store(selected.ID)
		s.state.send(protocol.PacketLoginSelect, &protocol.LoginSelect{CharID: selected.ID})
		s.login = LoginAwaitingConfirmation

	case protocol.PacketLoginOK:
		s.login = LoginReady
		s.logger.Info().Str("character", s.cfg.Character).Msg("logged in")

	case protocol.PacketLoginError:
		var loginErr protocol.LoginError
		if err := loginErr.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed login error: %w", err)
		}
		return fmt.Errorf("login rejected: %s", loginErr.Message)

	case protocol.PacketClientName:
		var announce protocol.ClientName
		if err := announce.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed identity announcement: %w", err)
		}
		s.state.learnIdentity(announce.CharID, announce.Name)

	case protocol.PacketClientLookup:
		var result protocol.ClientLookupResult
		if err := result.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed lookup result: %w", err)
		}
		s.state.completeLookup(&result)

	case protocol.PacketMsgVicinity:
		var msg protocol.MsgVicinity
		if err := msg.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed vicinity message: %w", err)
		}
		return s.emitMessage(protocol.Message{
			Sender:  &msg.SenderID,
			Channel: protocol.Vicinity(),
			Text:    msg.Text,
			SendTag: msg.SendTag,
		})

	case protocol.PacketMsgVicinityA:
		var msg protocol.MsgVicinityA
		if err := msg.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed vicinity broadcast: %w", err)
		}
		return s.emitMessage(protocol.Message{
			Channel: protocol.Vicinity(),
			Text:    msg.Text,
			SendTag: msg.SendTag,
		})

	case protocol.PacketGroupAnnounce:
		var announce protocol.GroupAnnounce
		if err := announce.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed group announcement: %w", err)
		}
		s.state.registerChannel(protocol.GroupChannel(announce.GroupID, announce.Name))

	case protocol.PacketGroupMessage:
		var msg protocol.GroupMessage
		if err := msg.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed group message: %w", err)
		}
		return s.emitMessage(protocol.Message{
			Sender:  &msg.SenderID,
			Channel: protocol.GroupChannel(msg.GroupID, ""),
			Text:    msg.Text,
			SendTag: msg.SendTag,
		})

	case protocol.PacketMsgPrivate:
		var msg protocol.MsgPrivate
		if err := msg.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed tell: %w", err)
		}
		channel := protocol.TellChannel(msg.CharID)
		if err := s.emitMessage(protocol.Message{
			Sender:  &msg.CharID,
			Channel: channel,
			Text:    msg.Text,
			SendTag: msg.SendTag,
		}); err != nil {
			return err
		}
		s.state.registerChannel(channel)

	case protocol.PacketPrivgrpInvite:
		var invite protocol.PrivgrpInvite
		if err := invite.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed invite: %w", err)
		}
		channel := protocol.PrivateChannel(invite.CharID)
		s.state.registerInvite(channel)
		if resolved, err := s.state.ResolveChannel(channel); err == nil {
			s.state.emit(InviteUpdate{Channel: resolved})
		} else {
			s.logger.Debug().Uint32("owner", invite.CharID).Msg("invite from unannounced owner, not rendered")
		}

	case protocol.PacketPrivgrpKick:
		var kick protocol.PrivgrpKick
		if err := kick.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed kick: %w", err)
		}
		if resolved, err := s.state.ResolveChannel(protocol.PrivateChannel(kick.CharID)); err == nil {
			s.state.emit(KickUpdate{Channel: resolved})
		}

	case protocol.PacketPrivgrpClipart:
		var part protocol.PrivgrpClipart
		if err := part.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed member-left event: %w", err)
		}
		name, ok := s.state.knownName(part.CharID)
		if !ok {
			s.logger.Debug().Uint32("char", part.CharID).Msg("unannounced member left, not rendered")
			return nil
		}
		if resolved, err := s.state.ResolveChannel(protocol.PrivateChannel(part.OwnerID)); err == nil {
			s.state.emit(LeaveUpdate{User: name, Channel: resolved})
		}

	case protocol.PacketPrivgrpMessage:
		var msg protocol.PrivgrpMessage
		if err := msg.Decode(packet.Payload); err != nil {
			return fmt.Errorf("malformed private group message: %w", err)
		}
		return s.emitMessage(protocol.Message{
			Sender:  &msg.SenderID,
			Channel: protocol.PrivateChannel(msg.OwnerID),
			Text:    msg.Text,
			SendTag: msg.SendTag,
		})

	default:
		// Administrative packets (ping, buddy status, system notices,
		// member-joined) carry nothing the chat view needs.
	}
	return nil
}

// emitMessage resolves and forwards an inbound message to the UI. A sender
// the server never announced violates the protocol contract and is fatal.
func (s *Session) emitMessage(msg protocol.Message) error {
	resolved, err := s.state.resolveMessage(msg)
	if err != nil {
		return fmt.Errorf("protocol violation: %w", err)
	}
	s.state.emit(MessageUpdate{Message: resolved})
	return nil
}

// dispatch runs a command in its own goroutine, sharing the chat state
func (s *Session) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case InviteCommand:
		go s.state.Invite(c.User)
	case KickCommand:
		go s.state.Kick(c.User)
	case LeaveCommand:
		go s.state.Leave(c.User)
	case TellCommand:
		go func() {
			if err := s.state.SendTell(c.User, c.Text); err != nil {
				s.logger.Error().Err(err).Str("user", c.User).Msg("tell failed")
			}
		}()
	case SendCommand:
		go func() {
			if err := s.state.SendMessage(c.Channel, c.Text); err != nil {
				s.logger.Error().Err(err).Msg("message send failed")
			}
		}()
	}
}

func (s *Session) handleQuery(query StateQuery) error {
	switch q := query.(type) {
	case ChannelsQuery:
		channels := s.state.Channels()
		resolved := make([]ResolvedChannel, 0, len(channels))
		for _, ch := range channels {
			rc, err := s.state.ResolveChannel(ch)
			if err != nil {
				return fmt.Errorf("protocol violation: %w", err)
			}
			resolved = append(resolved, rc)
		}
		select {
		case q.Reply <- resolved:
		default:
			// Receiver gave up; drop the response.
		}
	}
	return nil
}
