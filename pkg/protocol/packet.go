package protocol

import (
	"bytes"
	"errors"
	"io"
)

const (
	// MaxPayloadSize is the maximum allowed packet payload (64 KB minus header)
	MaxPayloadSize = 0xFFFF
)

var (
	ErrPayloadTooLarge = errors.New("packet payload exceeds maximum size (64 KB)")
)

// Packet is a single protocol frame.
// Wire format: [Type (2 bytes, big-endian)][Length (2 bytes, big-endian)][Payload (N bytes)]
type Packet struct {
	Type    PacketType
	Payload []byte
}

// EncodePacket writes a packet to the writer
func EncodePacket(w io.Writer, p *Packet) error {
	if len(p.Payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	if err := WriteUint16(w, uint16(p.Type)); err != nil {
		return err
	}
	if err := WriteUint16(w, uint16(len(p.Payload))); err != nil {
		return err
	}
	if len(p.Payload) > 0 {
		if _, err := w.Write(p.Payload); err != nil {
			return err
		}
	}

	type flusher interface {
		Flush() error
	}
	if fl, ok := w.(flusher); ok {
		return fl.Flush()
	}

	return nil
}

// DecodePacket reads a packet from the reader
func DecodePacket(r io.Reader) (*Packet, error) {
	packetType, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}

	length, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Packet{
		Type:    PacketType(packetType),
		Payload: payload,
	}, nil
}

// EncodeBody builds a packet from a typed payload
func EncodeBody(packetType PacketType, body PacketBody) (*Packet, error) {
	payload, err := body.Encode()
	if err != nil {
		return nil, err
	}
	return &Packet{Type: packetType, Payload: payload}, nil
}

// EncodeMessage is a helper that encodes a full packet to a byte slice
func EncodeMessage(packetType PacketType, body PacketBody) ([]byte, error) {
	packet, err := EncodeBody(packetType, body)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := EncodePacket(buf, packet); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
