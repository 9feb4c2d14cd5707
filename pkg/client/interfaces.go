package client

import (
	"github.com/tyrbo/aochat/pkg/protocol"
)

// ConnectionInterface defines the interface for the server transport.
// This allows for mocking in tests while the real Connection implements all
// these methods.
type ConnectionInterface interface {
	// Connection management
	Connect() error
	Close()
	IsConnected() bool
	GetAddress() string
	GetRawAddress() string

	// Packet sending
	Send(packet *protocol.Packet) error
	SendBody(packetType protocol.PacketType, body protocol.PacketBody) error

	// Channels for receiving data
	Incoming() <-chan *protocol.Packet
	Errors() <-chan error

	// Traffic statistics
	GetBytesSent() uint64
	GetBytesReceived() uint64

	// Connection information
	GetConnectionType() string
}

// StateInterface defines the interface for client state persistence.
// This allows for mocking in tests while the real State implements all
// these methods.
type StateInterface interface {
	// Configuration
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error

	// Character tracking
	GetLastCharacter() string
	SetLastCharacter(name string) error

	// Channel tracking
	GetLastChannel() string
	SetLastChannel(label string) error

	// Connection history
	GetLastSuccessfulMethod(serverAddress string) (string, error)
	SaveSuccessfulConnection(serverAddress string, method string) error

	// First run tracking
	GetFirstRun() bool
	SetFirstRunComplete() error

	// State directory
	GetStateDir() string

	// Close the state
	Close() error
}
