// Package bedrock implements the RakNet Unconnected Ping/Pong status exchange
// used by Bedrock Edition servers.
package bedrock

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/mcping/internal/wire"
)

// DefaultPort is the Bedrock Edition server port.
const DefaultPort = 19132

// UnconnectedPing is the fixed request datagram: message id, zero timestamp,
// the offline message magic and a constant client GUID.
var UnconnectedPing = [25]byte{
	0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE,
	0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78,
}

// Pong layout after the message id: 8-byte time, 8-byte server GUID,
// 16-byte magic, then the uint16 length of the status string.
const (
	lengthOffset = 32
	headerSize   = 1 + lengthOffset + 2
)

// FieldCount is the number of ';'-separated fields in a pong status string.
const FieldCount = 12

// Datagram is one request/reply socket.
type Datagram interface {
	Send(p []byte) error
	Receive() ([]byte, error)
}

// Pong is the decoded status string of an unconnected pong.
type Pong struct {
	Edition         string
	Motd1           string
	ProtocolName    string
	ServerID        string
	Motd2           string
	Gamemode        string
	ProtocolVersion int
	PlayerCount     int
	PlayerMax       int
	GamemodeID      int
	PortIPv4        int
	PortIPv6        int
}

// Client performs one unconnected ping exchange.
type Client struct {
	conn Datagram
	now  func() time.Time
}

// NewClient returns a Client sending over conn.
func NewClient(conn Datagram) *Client {
	return &Client{conn: conn, now: time.Now}
}

// WithClock replaces time.Now for latency measurement.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Query sends the unconnected ping and parses the reply. The latency is the time
// between send and receive in milliseconds.
func (c *Client) Query() (*Pong, float64, error) {
	sent := c.now()
	if err := c.conn.Send(UnconnectedPing[:]); err != nil {
		return nil, 0, err
	}

	data, err := c.conn.Receive()
	if err != nil {
		return nil, 0, err
	}
	received := c.now()

	pong, err := ParsePong(data)
	if err != nil {
		return nil, 0, err
	}

	return pong, float64(received.Sub(sent)) / float64(time.Millisecond), nil
}

// ParsePong decodes an unconnected pong datagram.
func ParsePong(data []byte) (*Pong, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: pong of %d bytes is shorter than its %d byte header", wire.ErrMalformedPayload, len(data), headerSize)
	}

	body := data[1:]
	length := int(binary.BigEndian.Uint16(body[lengthOffset : lengthOffset+2]))
	body = body[lengthOffset+2:]
	if length > len(body) {
		return nil, fmt.Errorf("%w: status string claims %d bytes, %d present", wire.ErrMalformedPayload, length, len(body))
	}

	fields := strings.Split(string(body[:length]), ";")
	if len(fields) < FieldCount {
		return nil, fmt.Errorf("%w: status string has %d fields, want %d", wire.ErrMalformedPayload, len(fields), FieldCount)
	}

	p := &Pong{
		Edition:      fields[0],
		Motd1:        fields[1],
		ProtocolName: fields[3],
		ServerID:     fields[6],
		Motd2:        fields[7],
		Gamemode:     fields[8],
	}

	ints := []struct {
		dst   *int
		name  string
		index int
	}{
		{&p.ProtocolVersion, "protocol version", 2},
		{&p.PlayerCount, "player count", 4},
		{&p.PlayerMax, "player max", 5},
		{&p.GamemodeID, "gamemode id", 9},
		{&p.PortIPv4, "ipv4 port", 10},
		{&p.PortIPv6, "ipv6 port", 11},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(fields[f.index]))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s %q", wire.ErrMalformedPayload, f.name, fields[f.index])
		}
		*f.dst = v
	}

	return p, nil
}
