package protocol

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// TestPacketRoundTrip tests that any valid packet can be encoded and decoded
func TestPacketRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		packetType := rapid.Uint16().Draw(t, "type")
		payloadLen := rapid.IntRange(0, 4096).Draw(t, "payloadLen")
		payload := rapid.SliceOfN(rapid.Byte(), payloadLen, payloadLen).Draw(t, "payload")

		original := &Packet{
			Type:    PacketType(packetType),
			Payload: payload,
		}

		var buf bytes.Buffer
		if err := EncodePacket(&buf, original); err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		decoded, err := DecodePacket(&buf)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if decoded.Type != original.Type {
			t.Fatalf("type mismatch: got %d, want %d", decoded.Type, original.Type)
		}
		if !bytes.Equal(decoded.Payload, original.Payload) {
			t.Fatalf("payload mismatch")
		}
	})
}

// TestStringRoundTrip tests the length-prefixed string codec
func TestStringRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringN(0, 1024, -1).Draw(t, "s")

		var buf bytes.Buffer
		if err := WriteString(&buf, s); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		got, err := ReadString(&buf)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if got != s {
			t.Fatalf("round trip mismatch: got %q, want %q", got, s)
		}
	})
}

// TestCharListRoundTripRapid tests the character list codec with arbitrary entries
func TestCharListRoundTripRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 16).Draw(t, "count")
		list := &LoginCharList{}
		for i := 0; i < count; i++ {
			list.Characters = append(list.Characters, Character{
				ID:     rapid.Uint32().Draw(t, "id"),
				Name:   rapid.StringN(0, 32, -1).Draw(t, "name"),
				Level:  rapid.Uint32().Draw(t, "level"),
				Online: rapid.Bool().Draw(t, "online"),
			})
		}

		payload, err := list.Encode()
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var decoded LoginCharList
		if err := decoded.Decode(payload); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if len(decoded.Characters) != len(list.Characters) {
			t.Fatalf("length mismatch: got %d, want %d", len(decoded.Characters), len(list.Characters))
		}
		for i := range list.Characters {
			if decoded.Characters[i] != list.Characters[i] {
				t.Fatalf("entry %d mismatch", i)
			}
		}
	})
}
