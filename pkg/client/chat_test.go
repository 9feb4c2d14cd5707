package client

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyrbo/aochat/pkg/protocol"
)

func newTestState(t *testing.T) (*ChatState, *MockConnection, chan UiUpdate) {
	t.Helper()

	conn := NewMockConnection("test:7105")
	require.NoError(t, conn.Connect())
	t.Cleanup(conn.Close)

	updates := make(chan UiUpdate, 64)
	state := NewChatState(conn, updates, zerolog.Nop())
	return state, conn, updates
}

type lookupResult struct {
	id uint32
	ok bool
}

func TestLookupUserSingleFlight(t *testing.T) {
	state, conn, _ := newTestState(t)

	const waiters = 8
	results := make(chan lookupResult, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			id, ok := state.LookupUser("Bob")
			results <- lookupResult{id, ok}
		}()
	}

	// Wait for every caller to park on the shared pending lookup
	require.Eventually(t, func() bool {
		return state.lookupWaiters("Bob") == waiters
	}, time.Second, time.Millisecond)

	// Exactly one request went out for all of them
	require.Len(t, conn.SentOfType(protocol.PacketClientLookup), 1)

	state.completeLookup(&protocol.ClientLookupResult{CharID: 99, Name: "Bob"})

	for i := 0; i < waiters; i++ {
		select {
		case res := <-results:
			assert.Equal(t, lookupResult{99, true}, res)
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
	}

	assert.Len(t, conn.SentOfType(protocol.PacketClientLookup), 1)
}

func TestLookupUserCached(t *testing.T) {
	state, conn, _ := newTestState(t)
	state.learnIdentity(7, "Me")

	id, ok := state.LookupUser("Me")
	assert.True(t, ok)
	assert.Equal(t, uint32(7), id)
	assert.Empty(t, conn.SentPackets())
}

func TestLookupUserNotFound(t *testing.T) {
	state, conn, _ := newTestState(t)

	const waiters = 3
	results := make(chan lookupResult, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			id, ok := state.LookupUser("Bob")
			results <- lookupResult{id, ok}
		}()
	}

	require.Eventually(t, func() bool {
		return state.lookupWaiters("Bob") == waiters
	}, time.Second, time.Millisecond)

	state.completeLookup(&protocol.ClientLookupResult{CharID: protocol.NotFoundID, Name: "Bob"})

	for i := 0; i < waiters; i++ {
		select {
		case res := <-results:
			assert.False(t, res.ok)
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
	}

	// The miss is not cached: asking again issues a fresh request
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		state.LookupUser("Bob")
	}()
	require.Eventually(t, func() bool {
		return len(conn.SentOfType(protocol.PacketClientLookup)) == 2
	}, time.Second, time.Millisecond)
	state.completeLookup(&protocol.ClientLookupResult{CharID: 99, Name: "Bob"})
	wg.Wait()
}

func TestLookupRequestOrdering(t *testing.T) {
	state, conn, _ := newTestState(t)

	done := make(chan struct{})
	go func() {
		state.LookupUser("Bob")
		close(done)
	}()

	// The outbound request is issued together with the pending entry,
	// before the caller suspends.
	require.Eventually(t, func() bool {
		return len(conn.SentOfType(protocol.PacketClientLookup)) == 1
	}, time.Second, time.Millisecond)

	var lookup protocol.ClientLookup
	require.NoError(t, lookup.Decode(conn.SentOfType(protocol.PacketClientLookup)[0].Payload))
	assert.Equal(t, "Bob", lookup.Name)

	state.completeLookup(&protocol.ClientLookupResult{CharID: 1, Name: "Bob"})
	<-done
}

func TestIdentityBijection(t *testing.T) {
	state, _, _ := newTestState(t)

	state.learnIdentity(1, "Alice")
	state.learnIdentity(2, "Bob")

	// Re-announcing an id under a new name drops the stale name key
	state.learnIdentity(1, "Alicia")
	_, ok := state.knownID("Alice")
	assert.False(t, ok)
	name, ok := state.knownName(1)
	assert.True(t, ok)
	assert.Equal(t, "Alicia", name)

	// Re-announcing a name under a new id drops the stale id key
	state.learnIdentity(3, "Bob")
	_, ok = state.knownName(2)
	assert.False(t, ok)
	id, ok := state.knownID("Bob")
	assert.True(t, ok)
	assert.Equal(t, uint32(3), id)
}

func TestRegisterTellChannelDedup(t *testing.T) {
	state, _, _ := newTestState(t)

	state.registerChannel(protocol.TellChannel(42))
	state.registerChannel(protocol.TellChannel(42))

	assert.Len(t, state.Channels(), 1)
}

func TestRegisterGroupChannelDedupAndBackfill(t *testing.T) {
	state, _, _ := newTestState(t)

	state.registerChannel(protocol.GroupChannel(10, ""))
	state.registerChannel(protocol.GroupChannel(10, "OOC"))
	state.registerChannel(protocol.GroupChannel(10, "OOC"))

	channels := state.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, "OOC", channels[0].Name)
}

func TestResolveGroupNameFallback(t *testing.T) {
	state, _, _ := newTestState(t)
	state.registerChannel(protocol.GroupChannel(10, "OOC"))

	resolved, err := state.ResolveChannel(protocol.GroupChannel(10, ""))
	require.NoError(t, err)
	assert.Equal(t, "OOC", resolved.Name)
	assert.Equal(t, "*OOC", resolved.Render())
}

func TestResolveGroupUnknown(t *testing.T) {
	state, _, _ := newTestState(t)

	_, err := state.ResolveChannel(protocol.GroupChannel(10, ""))
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestResolveUnknownUser(t *testing.T) {
	state, _, _ := newTestState(t)

	_, err := state.ResolveChannel(protocol.TellChannel(42))
	assert.ErrorIs(t, err, ErrUnknownUser)

	sender := uint32(42)
	_, err = state.resolveMessage(protocol.Message{
		Sender:  &sender,
		Channel: protocol.Vicinity(),
		Text:    "hi",
	})
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestSendTellSelfEcho(t *testing.T) {
	state, conn, updates := newTestState(t)
	state.learnIdentity(7, "Me")
	state.learnIdentity(42, "Bob")
	state.currentUser.Store(7)

	require.NoError(t, state.SendTell("Bob", "hi"))

	// The local echo arrives without any network round trip
	select {
	case update := <-updates:
		msg, ok := update.(MessageUpdate)
		require.True(t, ok)
		assert.Equal(t, "Me", msg.Message.Sender)
		assert.Equal(t, "hi", msg.Message.Text)
		assert.Equal(t, "@Bob", msg.Message.Channel.Render())
	default:
		t.Fatal("no self-echo update was emitted")
	}

	// The peer became a switchable channel
	channels := state.Channels()
	require.Len(t, channels, 1)
	assert.True(t, channels[0].SameTarget(protocol.TellChannel(42)))

	// And the tell went out
	sent := conn.SentOfType(protocol.PacketMsgPrivate)
	require.Len(t, sent, 1)
	var tell protocol.MsgPrivate
	require.NoError(t, tell.Decode(sent[0].Payload))
	assert.Equal(t, uint32(42), tell.CharID)
	assert.Equal(t, "hi", tell.Text)
	assert.Equal(t, protocol.NoTag, tell.SendTag)
}

func TestSendTellUnresolvableIsNoOp(t *testing.T) {
	state, conn, updates := newTestState(t)

	done := make(chan error, 1)
	go func() {
		done <- state.SendTell("Nobody", "hi")
	}()

	require.Eventually(t, func() bool {
		return len(conn.SentOfType(protocol.PacketClientLookup)) == 1
	}, time.Second, time.Millisecond)

	state.completeLookup(&protocol.ClientLookupResult{CharID: protocol.NotFoundID, Name: "Nobody"})
	require.NoError(t, <-done)

	assert.Empty(t, conn.SentOfType(protocol.PacketMsgPrivate))
	assert.Empty(t, updates)
	assert.Empty(t, state.Channels())
}

func TestSendMessageRouting(t *testing.T) {
	state, conn, updates := newTestState(t)
	state.learnIdentity(7, "Me")
	state.learnIdentity(42, "Bob")
	state.currentUser.Store(7)
	state.registerChannel(protocol.GroupChannel(10, "OOC"))

	require.NoError(t, state.SendMessage(ResolvedChannel{ID: 10, Name: "OOC", Kind: protocol.ChannelGroup}, "to group"))
	sent := conn.SentOfType(protocol.PacketGroupMessage)
	require.Len(t, sent, 1)
	var groupMsg protocol.GroupMessageOut
	require.NoError(t, groupMsg.Decode(sent[0].Payload))
	assert.Equal(t, uint32(10), groupMsg.GroupID)
	assert.Equal(t, "to group", groupMsg.Text)

	require.NoError(t, state.SendMessage(ResolvedChannel{ID: 42, Name: "Bob", Kind: protocol.ChannelPrivate}, "to privgrp"))
	sent = conn.SentOfType(protocol.PacketPrivgrpMessage)
	require.Len(t, sent, 1)
	var privMsg protocol.PrivgrpMessageOut
	require.NoError(t, privMsg.Decode(sent[0].Payload))
	assert.Equal(t, uint32(42), privMsg.OwnerID)

	require.NoError(t, state.SendMessage(ResolvedChannel{ID: 42, Name: "Bob", Kind: protocol.ChannelTell}, "to bob"))
	assert.Len(t, conn.SentOfType(protocol.PacketMsgPrivate), 1)
	// Tells sent through the router get the same local echo
	select {
	case update := <-updates:
		msg, ok := update.(MessageUpdate)
		require.True(t, ok)
		assert.Equal(t, "to bob", msg.Message.Text)
	default:
		t.Fatal("no self-echo update for routed tell")
	}
}

func TestSendMessageVicinityPanics(t *testing.T) {
	state, _, _ := newTestState(t)

	assert.Panics(t, func() {
		state.SendMessage(ResolvedChannel{Name: "Vicinity", Kind: protocol.ChannelVicinity}, "nope")
	})
}

func TestInviteKickLeaveCommands(t *testing.T) {
	state, conn, _ := newTestState(t)
	state.learnIdentity(42, "Bob")

	state.Invite("Bob")
	sent := conn.SentOfType(protocol.PacketPrivgrpInvite)
	require.Len(t, sent, 1)
	var invite protocol.PrivgrpInvite
	require.NoError(t, invite.Decode(sent[0].Payload))
	assert.Equal(t, uint32(42), invite.CharID)

	state.Kick("Bob")
	require.Len(t, conn.SentOfType(protocol.PacketPrivgrpKick), 1)

	state.Leave("Bob")
	sent = conn.SentOfType(protocol.PacketPrivgrpPart)
	require.Len(t, sent, 1)
	var part protocol.PrivgrpPart
	require.NoError(t, part.Decode(sent[0].Payload))
	assert.Equal(t, uint32(42), part.CharID)
}

func TestCompleteLookupRegistersTellChannel(t *testing.T) {
	state, _, _ := newTestState(t)

	state.completeLookup(&protocol.ClientLookupResult{CharID: 99, Name: "Bob"})

	channels := state.Channels()
	require.Len(t, channels, 1)
	assert.True(t, channels[0].SameTarget(protocol.TellChannel(99)))

	// Not-found results leave the registry and the cache alone
	state.completeLookup(&protocol.ClientLookupResult{CharID: protocol.NotFoundID, Name: "Ghost"})
	assert.Len(t, state.Channels(), 1)
	_, ok := state.knownID("Ghost")
	assert.False(t, ok)
}

func TestResolvedMessageRender(t *testing.T) {
	tests := []struct {
		name    string
		message ResolvedMessage
		want    string
	}{
		{
			name: "with sender",
			message: ResolvedMessage{
				Sender:  "Bob",
				Channel: ResolvedChannel{Name: "OOC", Kind: protocol.ChannelGroup},
				Text:    "hello",
			},
			want: "[*OOC] Bob: hello",
		},
		{
			name: "without sender",
			message: ResolvedMessage{
				Channel: ResolvedChannel{Name: "Vicinity", Kind: protocol.ChannelVicinity},
				Text:    "it begins to rain",
			},
			want: "[.] it begins to rain",
		},
		{
			name: "private channel",
			message: ResolvedMessage{
				Sender:  "Owner",
				Channel: ResolvedChannel{Name: "Owner", Kind: protocol.ChannelPrivate},
				Text:    "welcome",
			},
			want: "[#Owner] Owner: welcome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.message.Render())
		})
	}
}

func TestSendEncodesPacket(t *testing.T) {
	state, conn, _ := newTestState(t)

	state.send(protocol.PacketClientLookup, &protocol.ClientLookup{Name: "Bob"})

	sent := conn.SentPackets()
	require.Len(t, sent, 1)

	// Round trip through the wire codec to make sure the packet is sound
	var buf bytes.Buffer
	require.NoError(t, protocol.EncodePacket(&buf, sent[0]))
	decoded, err := protocol.DecodePacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.PacketClientLookup, decoded.Type)
}
