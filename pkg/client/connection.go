package client

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tyrbo/aochat/pkg/protocol"
)

const dialTimeout = 10 * time.Second

// Connection is the packet transport to the chat server. Reads are pushed
// to the Incoming channel by a reader goroutine; writes are queued to a
// writer goroutine. There is no automatic reconnection: when the server
// goes away the Incoming channel closes and the session ends.
type Connection struct {
	addr    string // display address with scheme
	rawAddr string // host:port without scheme
	dial    func() (io.ReadWriteCloser, error)

	mu             sync.RWMutex
	conn           io.ReadWriteCloser
	connected      bool
	connectionType string // "tcp" or "websocket"
	closed         bool

	incoming chan *protocol.Packet
	outgoing chan *protocol.Packet
	errors   chan error

	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64

	logger zerolog.Logger

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewConnection creates a connection for a server address. Supported
// schemes: "tcp://" (the default when no scheme is present), "ws://" and
// "wss://".
func NewConnection(addr string, logger zerolog.Logger) (*Connection, error) {
	dialConfig, err := parseServerAddress(addr)
	if err != nil {
		return nil, err
	}

	return &Connection{
		addr:           dialConfig.display,
		rawAddr:        dialConfig.raw,
		dial:           dialConfig.dial,
		connectionType: dialConfig.connType,
		incoming:       make(chan *protocol.Packet, 100),
		outgoing:       make(chan *protocol.Packet, 100),
		errors:         make(chan error, 10),
		logger:         logger,
		shutdown:       make(chan struct{}),
	}, nil
}

type dialConfig struct {
	display  string
	raw      string
	connType string
	dial     func() (io.ReadWriteCloser, error)
}

func parseServerAddress(addr string) (*dialConfig, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty server address")
	}

	if !strings.Contains(addr, "://") {
		addr = "tcp://" + addr
	}

	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}

	switch parsed.Scheme {
	case "tcp":
		raw := parsed.Host
		return &dialConfig{
			display:  addr,
			raw:      raw,
			connType: "tcp",
			dial: func() (io.ReadWriteCloser, error) {
				return net.DialTimeout("tcp", raw, dialTimeout)
			},
		}, nil
	case "ws", "wss":
		wsURL := addr
		return &dialConfig{
			display:  addr,
			raw:      parsed.Host,
			connType: "websocket",
			dial: func() (io.ReadWriteCloser, error) {
				return dialWebSocket(wsURL)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
}

// dialWebSocket connects a websocket endpoint and adapts it to the byte
// stream the packet codec expects
func dialWebSocket(wsURL string) (io.ReadWriteCloser, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	return &wsStream{ws: ws}, nil
}

// wsStream presents a websocket as a continuous binary stream
type wsStream struct {
	ws     *websocket.Conn
	reader io.Reader
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			_, r, err := s.ws.NextReader()
			if err != nil {
				return 0, err
			}
			s.reader = r
		}
		n, err := s.reader.Read(p)
		if err == io.EOF {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.ws.Close()
}

// Connect establishes the connection and starts the reader and writer
func (c *Connection) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	c.logger.Debug().Str("addr", c.addr).Msg("connecting")

	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info().Str("addr", c.addr).Str("transport", c.connectionType).Msg("connected")

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	return nil
}

// readLoop decodes packets until the connection breaks, then closes the
// incoming channel so the session can wind down.
func (c *Connection) readLoop() {
	defer c.wg.Done()
	defer close(c.incoming)

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	reader := &countingReader{r: conn, counter: &c.bytesReceived}

	for {
		packet, err := protocol.DecodePacket(reader)
		if err != nil {
			if err == io.EOF {
				c.logger.Debug().Msg("connection closed by server")
			} else {
				select {
				case c.errors <- fmt.Errorf("read error: %w", err):
				case <-c.shutdown:
				}
			}
			c.markDisconnected()
			return
		}

		c.logger.Debug().
			Uint16("type", uint16(packet.Type)).
			Int("len", len(packet.Payload)).
			Msg("recv")

		select {
		case c.incoming <- packet:
		case <-c.shutdown:
			return
		}
	}
}

func (c *Connection) writeLoop() {
	defer c.wg.Done()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	writer := &countingWriter{w: conn, counter: &c.bytesSent}

	for {
		select {
		case packet := <-c.outgoing:
			if err := protocol.EncodePacket(writer, packet); err != nil {
				select {
				case c.errors <- fmt.Errorf("write error: %w", err):
				case <-c.shutdown:
				}
				return
			}
			c.logger.Debug().
				Uint16("type", uint16(packet.Type)).
				Int("len", len(packet.Payload)).
				Msg("sent")
		case <-c.shutdown:
			return
		}
	}
}

func (c *Connection) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// Send queues a packet for transmission
func (c *Connection) Send(packet *protocol.Packet) error {
	select {
	case c.outgoing <- packet:
		return nil
	case <-c.shutdown:
		return fmt.Errorf("connection is closed")
	}
}

// SendBody encodes a typed payload and queues the packet
func (c *Connection) SendBody(packetType protocol.PacketType, body protocol.PacketBody) error {
	packet, err := protocol.EncodeBody(packetType, body)
	if err != nil {
		return err
	}
	return c.Send(packet)
}

// Incoming returns the channel of decoded packets. It closes when the
// connection ends.
func (c *Connection) Incoming() <-chan *protocol.Packet {
	return c.incoming
}

// Errors returns the channel of transport errors
func (c *Connection) Errors() <-chan error {
	return c.errors
}

// IsConnected reports whether the transport is up
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// GetAddress returns the display address with scheme
func (c *Connection) GetAddress() string {
	return c.addr
}

// GetRawAddress returns host:port without scheme
func (c *Connection) GetRawAddress() string {
	return c.rawAddr
}

// GetConnectionType returns "tcp" or "websocket"
func (c *Connection) GetConnectionType() string {
	return c.connectionType
}

// GetBytesSent returns total bytes written to the wire
func (c *Connection) GetBytesSent() uint64 {
	return c.bytesSent.Load()
}

// GetBytesReceived returns total bytes read from the wire
func (c *Connection) GetBytesReceived() uint64 {
	return c.bytesReceived.Load()
}

// Close shuts the connection down permanently
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.connected = false
	close(c.shutdown)
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// countingReader counts bytes as they are read
type countingReader struct {
	r       io.Reader
	counter *atomic.Uint64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.counter.Add(uint64(n))
	}
	return n, err
}

// countingWriter counts bytes as they are written
type countingWriter struct {
	w       io.Writer
	counter *atomic.Uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.counter.Add(uint64(n))
	}
	return n, err
}
