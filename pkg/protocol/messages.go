package protocol

import (
	"bytes"
	"io"
)

// PacketBody - all typed packet payloads implement this
type PacketBody interface {
	// EncodeTo serializes the payload directly to a writer
	EncodeTo(w io.Writer) error
	// Encode serializes the payload to bytes (convenience wrapper)
	Encode() ([]byte, error)
	// Decode deserializes the payload from bytes
	Decode(payload []byte) error
}

// PacketType identifies a packet on the wire
type PacketType uint16

// Packet type constants. Most types are one-directional; ClientLookup,
// MsgPrivate and the privgrp admin packets reuse one id in both directions
// with direction-dependent payloads.
const (
	PacketLoginSeed      PacketType = 0   // server → client
	PacketLoginRequest   PacketType = 2   // client → server
	PacketLoginSelect    PacketType = 3   // client → server
	PacketLoginOK        PacketType = 5   // server → client
	PacketLoginError     PacketType = 6   // server → client
	PacketLoginCharList  PacketType = 7   // server → client
	PacketClientName     PacketType = 20  // server → client
	PacketClientLookup   PacketType = 21  // both directions
	PacketMsgPrivate     PacketType = 30  // both directions
	PacketMsgVicinity    PacketType = 34  // server → client
	PacketMsgVicinityA   PacketType = 35  // server → client
	PacketMsgSystem      PacketType = 36  // server → client
	PacketChatNotice     PacketType = 37  // server → client
	PacketBuddyStatus    PacketType = 40  // server → client
	PacketBuddyRemove    PacketType = 41  // server → client
	PacketPrivgrpInvite  PacketType = 50  // both directions
	PacketPrivgrpKick    PacketType = 51  // both directions
	PacketPrivgrpPart    PacketType = 53  // both directions
	PacketPrivgrpClijoin PacketType = 55  // server → client
	PacketPrivgrpClipart PacketType = 56  // server → client
	PacketPrivgrpMessage PacketType = 57  // both directions
	PacketGroupAnnounce  PacketType = 60  // server → client
	PacketGroupMessage   PacketType = 65  // both directions
	PacketPing           PacketType = 100 // both directions
)

// NotFoundID is the character id the server returns for a failed lookup
const NotFoundID uint32 = 0xFFFFFFFF

func encode(body PacketBody) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := body.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoginSeed (0, server → client) - opens the login handshake
type LoginSeed struct {
	Seed string
}

func (m *LoginSeed) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Seed)
}

func (m *LoginSeed) Encode() ([]byte, error) { return encode(m) }

func (m *LoginSeed) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	seed, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Seed = seed
	return nil
}

// LoginRequest (2, client → server) - credentials keyed to the seed
type LoginRequest struct {
	Username string
	Key      string
}

func (m *LoginRequest) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteString(w, m.Key)
}

func (m *LoginRequest) Encode() ([]byte, error) { return encode(m) }

func (m *LoginRequest) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	key, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Username = username
	m.Key = key
	return nil
}

// LoginSelect (3, client → server) - pick a character for the session
type LoginSelect struct {
	CharID uint32
}

func (m *LoginSelect) EncodeTo(w io.Writer) error {
	return WriteUint32(w, m.CharID)
}

func (m *LoginSelect) Encode() ([]byte, error) { return encode(m) }

func (m *LoginSelect) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	return nil
}

// LoginError (6, server → client) - the handshake failed
type LoginError struct {
	Message string
}

func (m *LoginError) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Message)
}

func (m *LoginError) Encode() ([]byte, error) { return encode(m) }

func (m *LoginError) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	msg, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Message = msg
	return nil
}

// Character is one entry in the account's character list
type Character struct {
	ID     uint32
	Name   string
	Level  uint32
	Online bool
}

// LoginCharList (7, server → client) - characters on the account
type LoginCharList struct {
	Characters []Character
}

func (m *LoginCharList) EncodeTo(w io.Writer) error {
	if err := WriteUint16(w, uint16(len(m.Characters))); err != nil {
		return err
	}
	for _, c := range m.Characters {
		if err := WriteUint32(w, c.ID); err != nil {
			return err
		}
		if err := WriteString(w, c.Name); err != nil {
			return err
		}
		if err := WriteUint32(w, c.Level); err != nil {
			return err
		}
		if err := WriteBool(w, c.Online); err != nil {
			return err
		}
	}
	return nil
}

func (m *LoginCharList) Encode() ([]byte, error) { return encode(m) }

func (m *LoginCharList) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	count, err := ReadUint16(buf)
	if err != nil {
		return err
	}
	characters := make([]Character, 0, count)
	for i := 0; i < int(count); i++ {
		var c Character
		if c.ID, err = ReadUint32(buf); err != nil {
			return err
		}
		if c.Name, err = ReadString(buf); err != nil {
			return err
		}
		if c.Level, err = ReadUint32(buf); err != nil {
			return err
		}
		if c.Online, err = ReadBool(buf); err != nil {
			return err
		}
		characters = append(characters, c)
	}
	m.Characters = characters
	return nil
}

// ClientName (20, server → client) - authoritative identity announcement
type ClientName struct {
	CharID uint32
	Name   string
}

func (m *ClientName) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.CharID); err != nil {
		return err
	}
	return WriteString(w, m.Name)
}

func (m *ClientName) Encode() ([]byte, error) { return encode(m) }

func (m *ClientName) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	name, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	m.Name = name
	return nil
}

// ClientLookup (21, client → server) - resolve a character name to an id
type ClientLookup struct {
	Name string
}

func (m *ClientLookup) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Name)
}

func (m *ClientLookup) Encode() ([]byte, error) { return encode(m) }

func (m *ClientLookup) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	name, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Name = name
	return nil
}

// ClientLookupResult (21, server → client) - lookup answer. CharID is
// NotFoundID when no character by that name exists.
type ClientLookupResult struct {
	CharID uint32
	Name   string
}

// Found reports whether the lookup succeeded
func (m *ClientLookupResult) Found() bool {
	return m.CharID != NotFoundID
}

func (m *ClientLookupResult) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.CharID); err != nil {
		return err
	}
	return WriteString(w, m.Name)
}

func (m *ClientLookupResult) Encode() ([]byte, error) { return encode(m) }

func (m *ClientLookupResult) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	name, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	m.Name = name
	return nil
}

// MsgPrivate (30, both directions) - a direct tell. CharID is the sender on
// inbound packets and the target on outbound ones; the server never echoes
// the sender's own tells back.
type MsgPrivate struct {
	CharID  uint32
	Text    string
	SendTag string
}

func (m *MsgPrivate) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.CharID); err != nil {
		return err
	}
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *MsgPrivate) Encode() ([]byte, error) { return encode(m) }

func (m *MsgPrivate) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	m.Text = text
	m.SendTag = tag
	return nil
}

// MsgVicinity (34, server → client) - someone nearby speaks
type MsgVicinity struct {
	SenderID uint32
	Text     string
	SendTag  string
}

func (m *MsgVicinity) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.SenderID); err != nil {
		return err
	}
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *MsgVicinity) Encode() ([]byte, error) { return encode(m) }

func (m *MsgVicinity) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.SenderID = id
	m.Text = text
	m.SendTag = tag
	return nil
}

// MsgVicinityA (35, server → client) - anonymous vicinity broadcast
type MsgVicinityA struct {
	Text    string
	SendTag string
}

func (m *MsgVicinityA) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *MsgVicinityA) Encode() ([]byte, error) { return encode(m) }

func (m *MsgVicinityA) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Text = text
	m.SendTag = tag
	return nil
}

// PrivgrpInvite (50, both directions) - inbound CharID is the owner of the
// private group inviting us, outbound it is the character being invited
type PrivgrpInvite struct {
	CharID uint32
}

func (m *PrivgrpInvite) EncodeTo(w io.Writer) error {
	return WriteUint32(w, m.CharID)
}

func (m *PrivgrpInvite) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpInvite) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	return nil
}

// PrivgrpKick (51, both directions) - inbound CharID is the owner of the
// private group we were removed from, outbound the character to remove
type PrivgrpKick struct {
	CharID uint32
}

func (m *PrivgrpKick) EncodeTo(w io.Writer) error {
	return WriteUint32(w, m.CharID)
}

func (m *PrivgrpKick) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpKick) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	return nil
}

// PrivgrpPart (53, both directions) - leave the private group owned by CharID
type PrivgrpPart struct {
	CharID uint32
}

func (m *PrivgrpPart) EncodeTo(w io.Writer) error {
	return WriteUint32(w, m.CharID)
}

func (m *PrivgrpPart) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpPart) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.CharID = id
	return nil
}

// PrivgrpClijoin (55, server → client) - a member joined a private group
type PrivgrpClijoin struct {
	OwnerID uint32
	CharID  uint32
}

func (m *PrivgrpClijoin) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.OwnerID); err != nil {
		return err
	}
	return WriteUint32(w, m.CharID)
}

func (m *PrivgrpClijoin) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpClijoin) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	owner, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	char, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.OwnerID = owner
	m.CharID = char
	return nil
}

// PrivgrpClipart (56, server → client) - a member left a private group
type PrivgrpClipart struct {
	OwnerID uint32
	CharID  uint32
}

func (m *PrivgrpClipart) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.OwnerID); err != nil {
		return err
	}
	return WriteUint32(w, m.CharID)
}

func (m *PrivgrpClipart) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpClipart) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	owner, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	char, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.OwnerID = owner
	m.CharID = char
	return nil
}

// PrivgrpMessage (57, server → client) - chat in a private group
type PrivgrpMessage struct {
	OwnerID  uint32
	SenderID uint32
	Text     string
	SendTag  string
}

func (m *PrivgrpMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.OwnerID); err != nil {
		return err
	}
	if err := WriteUint32(w, m.SenderID); err != nil {
		return err
	}
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *PrivgrpMessage) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	owner, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	sender, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.OwnerID = owner
	m.SenderID = sender
	m.Text = text
	m.SendTag = tag
	return nil
}

// PrivgrpMessageOut (57, client → server) - send chat to a private group
type PrivgrpMessageOut struct {
	OwnerID uint32
	Text    string
	SendTag string
}

func (m *PrivgrpMessageOut) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.OwnerID); err != nil {
		return err
	}
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *PrivgrpMessageOut) Encode() ([]byte, error) { return encode(m) }

func (m *PrivgrpMessageOut) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	owner, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.OwnerID = owner
	m.Text = text
	m.SendTag = tag
	return nil
}

// GroupAnnounce (60, server → client) - the server announces a group the
// character belongs to. Name may be empty on re-announcements.
type GroupAnnounce struct {
	GroupID uint32
	Name    string
	Flags   uint32
}

func (m *GroupAnnounce) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.GroupID); err != nil {
		return err
	}
	if err := WriteString(w, m.Name); err != nil {
		return err
	}
	return WriteUint32(w, m.Flags)
}

func (m *GroupAnnounce) Encode() ([]byte, error) { return encode(m) }

func (m *GroupAnnounce) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	id, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	name, err := ReadString(buf)
	if err != nil {
		return err
	}
	flags, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.GroupID = id
	m.Name = name
	m.Flags = flags
	return nil
}

// GroupMessage (65, server → client) - chat in a group
type GroupMessage struct {
	GroupID  uint32
	SenderID uint32
	Text     string
	SendTag  string
}

func (m *GroupMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.GroupID); err != nil {
		return err
	}
	if err := WriteUint32(w, m.SenderID); err != nil {
		return err
	}
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *GroupMessage) Encode() ([]byte, error) { return encode(m) }

func (m *GroupMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	group, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	sender, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.GroupID = group
	m.SenderID = sender
	m.Text = text
	m.SendTag = tag
	return nil
}

// GroupMessageOut (65, client → server) - send chat to a group
type GroupMessageOut struct {
	GroupID uint32
	Text    string
	SendTag string
}

func (m *GroupMessageOut) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.GroupID); err != nil {
		return err
	}
	if err := WriteString(w, m.Text); err != nil {
		return err
	}
	return WriteString(w, m.SendTag)
}

func (m *GroupMessageOut) Encode() ([]byte, error) { return encode(m) }

func (m *GroupMessageOut) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	group, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	text, err := ReadString(buf)
	if err != nil {
		return err
	}
	tag, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.GroupID = group
	m.Text = text
	m.SendTag = tag
	return nil
}
