package client

import (
	"sync"

	"github.com/tyrbo/aochat/pkg/protocol"
)

// MockConnection is a test implementation of ConnectionInterface
type MockConnection struct {
	mu sync.RWMutex

	connected  bool
	address    string
	connectErr error
	sendErr    error

	incoming chan *protocol.Packet
	errors   chan error

	// Sent packets for verification
	sent []*protocol.Packet
}

// NewMockConnection creates a new mock connection
func NewMockConnection(address string) *MockConnection {
	return &MockConnection{
		address:  address,
		incoming: make(chan *protocol.Packet, 100),
		errors:   make(chan error, 10),
	}
}

// Connect simulates connecting to the server
func (m *MockConnection) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

// Close closes the mock connection
func (m *MockConnection) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return
	}
	m.connected = false
	close(m.incoming)
	close(m.errors)
}

// IsConnected returns the connection status
func (m *MockConnection) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// GetAddress returns the mock address
func (m *MockConnection) GetAddress() string {
	return m.address
}

// GetRawAddress returns the raw address without scheme
func (m *MockConnection) GetRawAddress() string {
	return m.address
}

// GetConnectionType returns the connection type (always "tcp" for mock)
func (m *MockConnection) GetConnectionType() string {
	return "tcp"
}

// Send records a packet for verification
func (m *MockConnection) Send(packet *protocol.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, packet)
	return nil
}

// SendBody encodes a typed payload and records the packet
func (m *MockConnection) SendBody(packetType protocol.PacketType, body protocol.PacketBody) error {
	packet, err := protocol.EncodeBody(packetType, body)
	if err != nil {
		return err
	}
	return m.Send(packet)
}

// Incoming returns the incoming packet channel
func (m *MockConnection) Incoming() <-chan *protocol.Packet {
	return m.incoming
}

// Errors returns the error channel
func (m *MockConnection) Errors() <-chan error {
	return m.errors
}

// GetBytesSent returns 0 for the mock
func (m *MockConnection) GetBytesSent() uint64 {
	return 0
}

// GetBytesReceived returns 0 for the mock
func (m *MockConnection) GetBytesReceived() uint64 {
	return 0
}

// PushIncoming simulates a packet arriving from the server
func (m *MockConnection) PushIncoming(packet *protocol.Packet) {
	m.incoming <- packet
}

// PushBody encodes a typed payload and simulates it arriving
func (m *MockConnection) PushBody(packetType protocol.PacketType, body protocol.PacketBody) error {
	packet, err := protocol.EncodeBody(packetType, body)
	if err != nil {
		return err
	}
	m.PushIncoming(packet)
	return nil
}

// SentPackets returns a copy of everything sent so far
func (m *MockConnection) SentPackets() []*protocol.Packet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*protocol.Packet, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentOfType returns the sent packets of one type
func (m *MockConnection) SentOfType(packetType protocol.PacketType) []*protocol.Packet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*protocol.Packet
	for _, p := range m.sent {
		if p.Type == packetType {
			out = append(out, p)
		}
	}
	return out
}

// SetSendError makes subsequent sends fail
func (m *MockConnection) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetConnectError makes Connect fail
func (m *MockConnection) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}
