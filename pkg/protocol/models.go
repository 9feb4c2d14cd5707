package protocol

// ChannelKind discriminates the Channel variant. The set is closed: every
// switch over it must handle all four kinds.
type ChannelKind uint8

const (
	ChannelGroup    ChannelKind = iota // named broadcast group
	ChannelPrivate                     // private group owned by a user
	ChannelTell                        // direct conversation with a peer
	ChannelVicinity                    // ambient broadcast, server-originated only
)

// Channel is a message source/destination.
// ID is the group id for ChannelGroup, the owner's user id for
// ChannelPrivate, the peer's user id for ChannelTell, and zero for
// ChannelVicinity. Name is only ever set for groups, and only when the
// announcement carried one.
type Channel struct {
	Kind ChannelKind
	ID   uint32
	Name string
}

// GroupChannel builds a group channel. Name may be empty when the
// originating event omitted it.
func GroupChannel(id uint32, name string) Channel {
	return Channel{Kind: ChannelGroup, ID: id, Name: name}
}

// PrivateChannel builds a private group channel keyed by its owner
func PrivateChannel(owner uint32) Channel {
	return Channel{Kind: ChannelPrivate, ID: owner}
}

// TellChannel builds a direct conversation channel keyed by the peer
func TellChannel(peer uint32) Channel {
	return Channel{Kind: ChannelTell, ID: peer}
}

// Vicinity returns the ambient broadcast pseudo-channel
func Vicinity() Channel {
	return Channel{Kind: ChannelVicinity}
}

// SameTarget reports whether two channels address the same destination,
// ignoring the name (a group announced without a name is still the same
// group).
func (c Channel) SameTarget(other Channel) bool {
	return c.Kind == other.Kind && c.ID == other.ID
}

// NoTag is the send-tag sentinel for locally composed messages
const NoTag = "\x00"

// Message is a transient chat message, either decoded from an inbound
// packet or synthesized locally for an outgoing tell. Sender is nil for
// system and anonymous vicinity messages.
type Message struct {
	Sender  *uint32
	Channel Channel
	Text    string
	SendTag string
}
