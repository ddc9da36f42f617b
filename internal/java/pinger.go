// Package java implements the Java Edition Server List Ping exchange:
// handshake, status request/response and ping/pong over a framed stream.
package java

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/woozymasta/mcping/internal/wire"
)

// Packet ids of the status exchange.
const (
	PacketHandshake      = 0x00
	PacketStatusRequest  = 0x00
	PacketStatusResponse = 0x00
	PacketPingRequest    = 0x01
	PacketPongResponse   = 0x01
)

// DefaultProtocolVersion is announced in the handshake (1.8).
const DefaultProtocolVersion = 47

// DefaultPort is the Java Edition server port.
const DefaultPort = 25565

// intentStatus is the handshake's next-state value for a status query.
const intentStatus = 1

// Conn is the byte stream a Pinger talks over.
type Conn interface {
	wire.ByteSource
	wire.ByteSink
}

// RawStatus is the decoded status JSON document. Values are the tagged shapes
// produced by encoding/json: map[string]any, []any, string, bool, nil and
// json.Number for numbers.
type RawStatus map[string]any

// TokenMismatchError reports a pong that echoed a different token.
type TokenMismatchError struct {
	Expected int64
	Received int64
}

func (e *TokenMismatchError) Error() string {
	return fmt.Sprintf("mangled ping response (expected token %d, received %d)", e.Expected, e.Received)
}

// Unwrap classifies the mismatch as a protocol error.
func (e *TokenMismatchError) Unwrap() error {
	return wire.ErrProtocol
}

// Option configures a Pinger.
type Option func(*Pinger)

// WithProtocolVersion sets the protocol version announced in the handshake.
func WithProtocolVersion(version int) Option {
	return func(p *Pinger) { p.version = version }
}

// WithToken sets the ping token generator.
func WithToken(fn TokenFunc) Option {
	return func(p *Pinger) { p.tokenFn = fn }
}

// WithClock replaces time.Now for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(p *Pinger) { p.now = now }
}

// Pinger drives one status exchange. It is not safe for concurrent use.
type Pinger struct {
	conn    Conn
	tokenFn TokenFunc
	now     func() time.Time
	err     error
	host    string
	version int
	token   int64
	port    uint16
	state   State
	tokenOK bool
}

// NewPinger returns a Pinger in the Created state. host and port are the values
// announced in the handshake.
func NewPinger(conn Conn, host string, port uint16, opts ...Option) *Pinger {
	p := &Pinger{
		conn:    conn,
		host:    host,
		port:    port,
		version: DefaultProtocolVersion,
		tokenFn: RandomToken,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// State returns the current exchange state.
func (p *Pinger) State() State {
	return p.state
}

// Token returns the ping token, drawing it on first use.
func (p *Pinger) Token() int64 {
	if !p.tokenOK {
		p.token = p.tokenFn()
		p.tokenOK = true
	}
	return p.token
}

// Handshake announces the status intent. The server does not reply.
func (p *Pinger) Handshake() error {
	if err := p.expect(StateCreated); err != nil {
		return err
	}

	packet := wire.NewBuffer(nil)
	if err := wire.WriteVarint(packet, PacketHandshake); err != nil {
		return p.fail(err)
	}
	if p.version < 0 {
		return p.fail(fmt.Errorf("%w: negative protocol version %d", wire.ErrEncoding, p.version))
	}
	if err := wire.WriteVarint(packet, uint64(p.version)); err != nil {
		return p.fail(err)
	}
	if err := wire.WriteString(packet, p.host); err != nil {
		return p.fail(err)
	}
	if err := wire.WriteUint16(packet, p.port); err != nil {
		return p.fail(err)
	}
	if err := wire.WriteVarint(packet, intentStatus); err != nil {
		return p.fail(err)
	}

	if err := wire.WriteFrame(p.conn, packet); err != nil {
		return p.fail(err)
	}

	p.state = StateHandshaken
	return nil
}

// RequestStatus sends the status request and decodes the JSON response.
func (p *Pinger) RequestStatus() (RawStatus, error) {
	if err := p.expect(StateHandshaken); err != nil {
		return nil, err
	}

	request := wire.NewBuffer(nil)
	if err := wire.WriteVarint(request, PacketStatusRequest); err != nil {
		return nil, p.fail(err)
	}
	if err := wire.WriteFrame(p.conn, request); err != nil {
		return nil, p.fail(err)
	}
	p.state = StateStatusRequested

	response, err := wire.ReadFrame(p.conn)
	if err != nil {
		return nil, p.fail(err)
	}

	id, err := wire.ReadVarint(response)
	if err != nil {
		return nil, p.fail(err)
	}
	if id != PacketStatusResponse {
		return nil, p.fail(fmt.Errorf("%w: invalid status response packet 0x%02X", wire.ErrProtocol, id))
	}

	text, err := wire.ReadString(response)
	if err != nil {
		return nil, p.fail(err)
	}

	raw, err := decodeStatus(text)
	if err != nil {
		return nil, p.fail(err)
	}

	p.state = StateStatusReceived
	return raw, nil
}

// Ping sends the ping request and returns the round trip in milliseconds.
func (p *Pinger) Ping() (float64, error) {
	if err := p.expect(StateHandshaken, StateStatusReceived); err != nil {
		return 0, err
	}

	token := p.Token()

	request := wire.NewBuffer(nil)
	if err := wire.WriteVarint(request, PacketPingRequest); err != nil {
		return 0, p.fail(err)
	}
	if err := wire.WriteInt64(request, token); err != nil {
		return 0, p.fail(err)
	}

	sent := p.now()
	if err := wire.WriteFrame(p.conn, request); err != nil {
		return 0, p.fail(err)
	}
	p.state = StatePingRequested

	response, err := wire.ReadFrame(p.conn)
	if err != nil {
		return 0, p.fail(err)
	}
	received := p.now()

	id, err := wire.ReadVarint(response)
	if err != nil {
		return 0, p.fail(err)
	}
	if id != PacketPongResponse {
		return 0, p.fail(fmt.Errorf("%w: invalid ping response packet 0x%02X", wire.ErrProtocol, id))
	}

	echoed, err := wire.ReadInt64(response)
	if err != nil {
		return 0, p.fail(err)
	}
	if echoed != token {
		return 0, p.fail(&TokenMismatchError{Expected: token, Received: echoed})
	}

	p.state = StateComplete
	return float64(received.Sub(sent)) / float64(time.Millisecond), nil
}

// expect checks the current state against the allowed ones.
func (p *Pinger) expect(allowed ...State) error {
	if p.state == StateFailed {
		return p.err
	}
	for _, s := range allowed {
		if p.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: operation not allowed in state %s", wire.ErrProtocol, p.state)
}

// fail moves the Pinger to Failed and returns err unchanged.
func (p *Pinger) fail(err error) error {
	p.state = StateFailed
	p.err = err
	return err
}

func decodeStatus(text string) (RawStatus, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var raw RawStatus
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid status JSON: %v", wire.ErrMalformedPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: status JSON is not an object", wire.ErrMalformedPayload)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after status JSON", wire.ErrMalformedPayload)
	}

	return raw, nil
}
