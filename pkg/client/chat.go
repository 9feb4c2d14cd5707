package client

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/tyrbo/aochat/pkg/protocol"
)

var (
	// ErrUnknownUser indicates a packet referenced a user id the server
	// never announced. The server contract requires an identity
	// announcement before any reference, so this terminates the session.
	ErrUnknownUser = errors.New("user id was never announced")

	// ErrUnknownGroup indicates a group id with no name in the event and
	// no named announcement in the registry history.
	ErrUnknownGroup = errors.New("group has no known name")
)

// UiUpdate is a rendering notification pushed to the UI collaborator
type UiUpdate interface {
	uiUpdate()
}

// MessageUpdate carries a new chat message to render
type MessageUpdate struct {
	Message ResolvedMessage
}

// InviteUpdate reports an invitation to a private group
type InviteUpdate struct {
	Channel ResolvedChannel
}

// KickUpdate reports removal from a private group
type KickUpdate struct {
	Channel ResolvedChannel
}

// LeaveUpdate reports a member leaving a private group
type LeaveUpdate struct {
	User    string
	Channel ResolvedChannel
}

func (MessageUpdate) uiUpdate() {}
func (InviteUpdate) uiUpdate()  {}
func (KickUpdate) uiUpdate()    {}
func (LeaveUpdate) uiUpdate()   {}

// Command is a user intent handed to the session for execution
type Command interface {
	command()
}

// InviteCommand invites a user to our private group
type InviteCommand struct {
	User string
}

// KickCommand removes a user from our private group
type KickCommand struct {
	User string
}

// LeaveCommand leaves the private group owned by the named user
type LeaveCommand struct {
	User string
}

// TellCommand sends a direct message to the named user
type TellCommand struct {
	User string
	Text string
}

// SendCommand sends text to an already-resolved channel
type SendCommand struct {
	Channel ResolvedChannel
	Text    string
}

func (InviteCommand) command() {}
func (KickCommand) command()   {}
func (LeaveCommand) command()  {}
func (TellCommand) command()   {}
func (SendCommand) command()   {}

// StateQuery is a synchronous read of session state
type StateQuery interface {
	stateQuery()
}

// ChannelsQuery requests the current channel list. Reply must be buffered;
// the session drops the response if the receiver is gone.
type ChannelsQuery struct {
	Reply chan []ResolvedChannel
}

func (ChannelsQuery) stateQuery() {}

// ResolvedChannel is a channel with its display name filled in
type ResolvedChannel struct {
	ID   uint32
	Name string
	Kind protocol.ChannelKind
}

// Render formats the channel label for display
func (c ResolvedChannel) Render() string {
	switch c.Kind {
	case protocol.ChannelGroup:
		return "*" + c.Name
	case protocol.ChannelPrivate:
		return "#" + c.Name
	case protocol.ChannelTell:
		return "@" + c.Name
	case protocol.ChannelVicinity:
		return "."
	}
	return "?"
}

// ResolvedMessage is a message with sender and channel names filled in.
// Sender is empty for system and anonymous vicinity messages.
type ResolvedMessage struct {
	Sender  string
	Channel ResolvedChannel
	Text    string
}

// Render formats the message as a single display line
func (m ResolvedMessage) Render() string {
	if m.Sender != "" {
		return fmt.Sprintf("[%s] %s: %s", m.Channel.Render(), m.Sender, m.Text)
	}
	return fmt.Sprintf("[%s] %s", m.Channel.Render(), m.Text)
}

// pendingLookup is one in-flight name resolution. All concurrent resolvers
// of the same name share it; wake is closed exactly once, when the
// authoritative result arrives.
type pendingLookup struct {
	wake    chan struct{}
	waiters int
}

// ChatState is the session's shared state: the identity cache, the channel
// registry and the current user. It is mutated by the session loop and the
// lookup-completion path only; command goroutines read it concurrently and
// populate the cache solely through LookupUser.
type ChatState struct {
	mu          sync.RWMutex
	channels    []protocol.Channel
	pastInvites []protocol.Channel
	idToName    map[uint32]string
	nameToID    map[string]uint32

	currentUser atomic.Uint32

	lookupMu       sync.Mutex
	pendingLookups map[string]*pendingLookup

	conn    ConnectionInterface
	updates chan<- UiUpdate
	logger  zerolog.Logger
}

// NewChatState creates the shared session state
func NewChatState(conn ConnectionInterface, updates chan<- UiUpdate, logger zerolog.Logger) *ChatState {
	return &ChatState{
		idToName:       make(map[uint32]string),
		nameToID:       make(map[string]uint32),
		pendingLookups: make(map[string]*pendingLookup),
		conn:           conn,
		updates:        updates,
		logger:         logger,
	}
}

// CurrentUser returns the logged-in character id, zero before selection
func (s *ChatState) CurrentUser() uint32 {
	return s.currentUser.Load()
}

// learnIdentity installs an authoritative id↔name pair. The mapping is kept
// a bijection: any stale pairing of either key is dropped first.
func (s *ChatState) learnIdentity(id uint32, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.idToName[id]; ok {
		delete(s.nameToID, old)
	}
	if old, ok := s.nameToID[name]; ok {
		delete(s.idToName, old)
	}
	s.idToName[id] = name
	s.nameToID[name] = id
}

func (s *ChatState) knownName(id uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.idToName[id]
	return name, ok
}

func (s *ChatState) knownID(name string) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.nameToID[name]
	return id, ok
}

// LookupUser resolves a character name to its id, asking the server when
// the cache has no answer. Any number of concurrent callers for the same
// name share a single outbound request and are all released by its result.
// A failed lookup is not cached: the next call asks again.
//
// There is no timeout; if the server never answers, this blocks forever.
func (s *ChatState) LookupUser(name string) (uint32, bool) {
	if id, ok := s.knownID(name); ok {
		return id, true
	}

	s.lookupMu.Lock()
	pending, ok := s.pendingLookups[name]
	if !ok {
		pending = &pendingLookup{wake: make(chan struct{})}
		s.pendingLookups[name] = pending
		// The request goes out under the same critical section that
		// installs the pending entry, so no second caller can issue a
		// duplicate in between.
		s.send(protocol.PacketClientLookup, &protocol.ClientLookup{Name: name})
	}
	pending.waiters++
	s.lookupMu.Unlock()

	<-pending.wake

	return s.knownID(name)
}

// completeLookup applies a lookup result and releases every waiter for that
// name. The cache write happens before the wake so released waiters always
// observe it.
func (s *ChatState) completeLookup(result *protocol.ClientLookupResult) {
	if result.Found() {
		s.learnIdentity(result.CharID, result.Name)
		s.registerChannel(protocol.TellChannel(result.CharID))
	}

	s.lookupMu.Lock()
	if pending, ok := s.pendingLookups[result.Name]; ok {
		delete(s.pendingLookups, result.Name)
		close(pending.wake)
	}
	s.lookupMu.Unlock()
}

// lookupWaiters reports how many callers are parked on a pending lookup
func (s *ChatState) lookupWaiters(name string) int {
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()
	if pending, ok := s.pendingLookups[name]; ok {
		return pending.waiters
	}
	return 0
}

// registerChannel adds a channel to the registry. Tell channels are
// deduplicated by peer id; group channels by group id, backfilling a name
// the first announcement lacked. Other kinds append unconditionally.
func (s *ChatState) registerChannel(ch protocol.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ch.Kind {
	case protocol.ChannelTell, protocol.ChannelGroup:
		for i := range s.channels {
			if s.channels[i].SameTarget(ch) {
				if ch.Kind == protocol.ChannelGroup && s.channels[i].Name == "" && ch.Name != "" {
					s.channels[i].Name = ch.Name
				}
				return
			}
		}
	}
	s.channels = append(s.channels, ch)
}

// registerInvite records a pending invitation
func (s *ChatState) registerInvite(ch protocol.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pastInvites = append(s.pastInvites, ch)
}

// Channels returns a point-in-time copy of the registry
func (s *ChatState) Channels() []protocol.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// groupName recovers a group's name from earlier announcements
func (s *ChatState) groupName(id uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.channels {
		if ch.Kind == protocol.ChannelGroup && ch.ID == id && ch.Name != "" {
			return ch.Name, true
		}
	}
	return "", false
}

// ResolveChannel fills in the display name for a channel. Tell and private
// channels require the user to be in the identity cache; groups without an
// embedded name fall back to the registry history.
func (s *ChatState) ResolveChannel(ch protocol.Channel) (ResolvedChannel, error) {
	switch ch.Kind {
	case protocol.ChannelGroup:
		name := ch.Name
		if name == "" {
			recovered, ok := s.groupName(ch.ID)
			if !ok {
				return ResolvedChannel{}, fmt.Errorf("group %d: %w", ch.ID, ErrUnknownGroup)
			}
			name = recovered
		}
		return ResolvedChannel{ID: ch.ID, Name: name, Kind: ch.Kind}, nil
	case protocol.ChannelPrivate, protocol.ChannelTell:
		name, ok := s.knownName(ch.ID)
		if !ok {
			return ResolvedChannel{}, fmt.Errorf("user %d: %w", ch.ID, ErrUnknownUser)
		}
		return ResolvedChannel{ID: ch.ID, Name: name, Kind: ch.Kind}, nil
	default:
		return ResolvedChannel{ID: 0, Name: "Vicinity", Kind: protocol.ChannelVicinity}, nil
	}
}

// resolveMessage fills in sender and channel names for a message
func (s *ChatState) resolveMessage(msg protocol.Message) (ResolvedMessage, error) {
	var sender string
	if msg.Sender != nil {
		name, ok := s.knownName(*msg.Sender)
		if !ok {
			return ResolvedMessage{}, fmt.Errorf("sender %d: %w", *msg.Sender, ErrUnknownUser)
		}
		sender = name
	}

	channel, err := s.ResolveChannel(msg.Channel)
	if err != nil {
		return ResolvedMessage{}, err
	}

	return ResolvedMessage{Sender: sender, Channel: channel, Text: msg.Text}, nil
}

// send encodes and transmits a packet, fire-and-forget: transport errors
// are logged and swallowed.
func (s *ChatState) send(packetType protocol.PacketType, body protocol.PacketBody) {
	packet, err := protocol.EncodeBody(packetType, body)
	if err != nil {
		s.logger.Error().Err(err).Uint16("type", uint16(packetType)).Msg("failed to encode packet")
		return
	}
	if err := s.conn.Send(packet); err != nil {
		s.logger.Debug().Err(err).Uint16("type", uint16(packetType)).Msg("send failed")
	}
}

// emit pushes a UI update
func (s *ChatState) emit(update UiUpdate) {
	s.updates <- update
}

// Invite invites a user to our private group. An unresolvable name is a
// silent no-op.
func (s *ChatState) Invite(user string) {
	id, ok := s.LookupUser(user)
	if !ok {
		s.logger.Debug().Str("user", user).Msg("invite: name did not resolve")
		return
	}
	s.send(protocol.PacketPrivgrpInvite, &protocol.PrivgrpInvite{CharID: id})
}

// Kick removes a user from our private group. An unresolvable name is a
// silent no-op.
func (s *ChatState) Kick(user string) {
	id, ok := s.LookupUser(user)
	if !ok {
		s.logger.Debug().Str("user", user).Msg("kick: name did not resolve")
		return
	}
	s.send(protocol.PacketPrivgrpKick, &protocol.PrivgrpKick{CharID: id})
}

// Leave leaves the private group owned by the named user. An unresolvable
// name is a silent no-op.
func (s *ChatState) Leave(user string) {
	id, ok := s.LookupUser(user)
	if !ok {
		s.logger.Debug().Str("user", user).Msg("leave: name did not resolve")
		return
	}
	s.send(protocol.PacketPrivgrpPart, &protocol.PrivgrpPart{CharID: id})
}

// SendTell sends a direct message. The server does not echo our own tells
// back, so a local copy is pushed to the UI before the packet goes out, and
// the peer becomes a switchable Tell channel if it wasn't one already.
func (s *ChatState) SendTell(user, text string) error {
	id, ok := s.LookupUser(user)
	if !ok {
		return nil
	}

	sender := s.currentUser.Load()
	msg := protocol.Message{
		Sender:  &sender,
		Channel: protocol.TellChannel(id),
		Text:    text,
		SendTag: protocol.NoTag,
	}

	resolved, err := s.resolveMessage(msg)
	if err != nil {
		return err
	}
	s.emit(MessageUpdate{Message: resolved})
	s.registerChannel(msg.Channel)

	s.send(protocol.PacketMsgPrivate, &protocol.MsgPrivate{
		CharID:  id,
		Text:    text,
		SendTag: protocol.NoTag,
	})
	return nil
}

// SendMessage sends text to a resolved channel, choosing the packet kind by
// channel variant. Tells get the same local echo as SendTell. Sending to
// the vicinity channel is a caller bug: vicinity messages are
// server-originated only.
func (s *ChatState) SendMessage(channel ResolvedChannel, text string) error {
	switch channel.Kind {
	case protocol.ChannelGroup:
		if _, ok := s.groupName(channel.ID); !ok && channel.Name == "" {
			return fmt.Errorf("group %d: %w", channel.ID, ErrUnknownGroup)
		}
		s.send(protocol.PacketGroupMessage, &protocol.GroupMessageOut{
			GroupID: channel.ID,
			Text:    text,
			SendTag: protocol.NoTag,
		})

	case protocol.ChannelTell:
		sender := s.currentUser.Load()
		resolved, err := s.resolveMessage(protocol.Message{
			Sender:  &sender,
			Channel: protocol.TellChannel(channel.ID),
			Text:    text,
			SendTag: protocol.NoTag,
		})
		if err != nil {
			return err
		}
		s.emit(MessageUpdate{Message: resolved})
		s.send(protocol.PacketMsgPrivate, &protocol.MsgPrivate{
			CharID:  channel.ID,
			Text:    text,
			SendTag: protocol.NoTag,
		})

	case protocol.ChannelPrivate:
		s.send(protocol.PacketPrivgrpMessage, &protocol.PrivgrpMessageOut{
			OwnerID: channel.ID,
			Text:    text,
			SendTag: protocol.NoTag,
		})

	case protocol.ChannelVicinity:
		panic("cannot send to the vicinity channel")
	}
	return nil
}
