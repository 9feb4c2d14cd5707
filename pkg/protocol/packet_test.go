package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePacket(t *testing.T) {
	tests := []struct {
		name    string
		packet  Packet
		wantErr bool
	}{
		{
			name: "empty payload",
			packet: Packet{
				Type:    PacketPing,
				Payload: []byte{},
			},
		},
		{
			name: "with payload",
			packet: Packet{
				Type:    PacketClientLookup,
				Payload: []byte("Helpbot"),
			},
		},
		{
			name: "max payload size",
			packet: Packet{
				Type:    PacketGroupMessage,
				Payload: make([]byte, MaxPayloadSize),
			},
		},
		{
			name: "oversized payload",
			packet: Packet{
				Type:    PacketGroupMessage,
				Payload: make([]byte, MaxPayloadSize+1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			err := EncodePacket(buf, &tt.packet)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, ErrPayloadTooLarge, err)
				return
			}
			require.NoError(t, err)

			decoded, err := DecodePacket(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.packet.Type, decoded.Type)
			assert.Equal(t, tt.packet.Payload, decoded.Payload)
		})
	}
}

func TestDecodePacketTruncated(t *testing.T) {
	// Header claims 10 payload bytes but only 3 follow
	data := []byte{0x00, 0x41, 0x00, 0x0A, 0x01, 0x02, 0x03}
	_, err := DecodePacket(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestEncodeMessage(t *testing.T) {
	data, err := EncodeMessage(PacketClientLookup, &ClientLookup{Name: "Nadia"})
	require.NoError(t, err)

	packet, err := DecodePacket(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, PacketClientLookup, packet.Type)

	var lookup ClientLookup
	require.NoError(t, lookup.Decode(packet.Payload))
	assert.Equal(t, "Nadia", lookup.Name)
}
