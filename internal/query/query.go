// Package query runs complete status queries against a server address:
// resolution, connection, the protocol exchange with bounded retries and
// conversion into the documents in models.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/mcping/internal/bedrock"
	"github.com/woozymasta/mcping/internal/java"
	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/resolve"
	"github.com/woozymasta/mcping/internal/status"
	"github.com/woozymasta/mcping/internal/transport"
	"github.com/woozymasta/mcping/internal/wire"
)

// Defaults applied to zero Options fields.
const (
	DefaultTries   = 3
	DefaultTimeout = 3 * time.Second
)

// Options configures a Client.
type Options struct {
	// Lookup overrides DNS resolution (net.DefaultResolver when nil).
	Lookup resolve.Lookup
	// Token generates Java ping tokens (java.RandomToken when nil).
	Token java.TokenFunc
	// Now replaces time.Now for latency measurement.
	Now func() time.Time
	// Timeout bounds connecting and each read.
	Timeout time.Duration
	// Tries is the number of exchange attempts per query.
	Tries int
	// ProtocolVersion is announced in the Java handshake.
	ProtocolVersion int
	// Reconnect reopens the connection after a transport failure instead of
	// retrying over the same one.
	Reconnect bool
	// Guard, when set, vets every resolved target before it is contacted.
	Guard func(resolve.Target) error
	// DisableSRV skips the _minecraft._tcp lookup for Java addresses.
	DisableSRV bool
}

// OfflineError reports a server that did not answer within the allowed tries.
type OfflineError struct {
	Err     error
	Offline models.OfflineStatus
}

func (e *OfflineError) Error() string {
	return fmt.Sprintf("server %s:%d offline after %d attempts: %v",
		e.Offline.IP, e.Offline.Port, e.Offline.Attempts, e.Err)
}

func (e *OfflineError) Unwrap() error {
	return e.Err
}

// Client queries Java and Bedrock servers. It is safe for concurrent use.
type Client struct {
	opts    Options
	java    *resolve.Resolver
	bedrock *resolve.Resolver
}

// New returns a Client with opts, filling unset fields with defaults.
func New(opts Options) *Client {
	if opts.Tries < 1 {
		opts.Tries = DefaultTries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ProtocolVersion == 0 {
		opts.ProtocolVersion = java.DefaultProtocolVersion
	}
	if opts.Token == nil {
		opts.Token = java.RandomToken
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	service := "minecraft"
	if opts.DisableSRV {
		service = ""
	}

	return &Client{
		opts:    opts,
		java:    resolve.New(opts.Lookup, service, java.DefaultPort),
		bedrock: resolve.New(opts.Lookup, "", bedrock.DefaultPort),
	}
}

// Java runs the full status exchange and returns the server status.
func (c *Client) Java(ctx context.Context, address string) (*models.JavaStatus, error) {
	t, err := c.resolve(ctx, c.java, address)
	if err != nil {
		return nil, err
	}

	var st *models.JavaStatus
	err = session(ctx, c, t, models.Debug{Ping: true, SRV: t.SRV}, c.dialTCP, func(conn *transport.TCPConn) error {
		p := c.pinger(conn, t)
		if err := p.Handshake(); err != nil {
			return err
		}
		raw, err := p.RequestStatus()
		if err != nil {
			return err
		}
		latency, err := p.Ping()
		if err != nil {
			return err
		}

		st, err = status.BuildJava(raw, meta(t, latency))
		return err
	})
	if err != nil {
		return nil, err
	}

	return st, nil
}

// Ping runs the exchange and returns only the round trip latency.
func (c *Client) Ping(ctx context.Context, address string) (*models.PingResult, error) {
	t, err := c.resolve(ctx, c.java, address)
	if err != nil {
		return nil, err
	}

	var latency float64
	err = session(ctx, c, t, models.Debug{Ping: true, SRV: t.SRV}, c.dialTCP, func(conn *transport.TCPConn) error {
		p := c.pinger(conn, t)
		if err := p.Handshake(); err != nil {
			return err
		}
		if _, err := p.RequestStatus(); err != nil {
			return err
		}
		latency, err = p.Ping()
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.PingResult{
		Online:   true,
		IP:       t.IP,
		Hostname: t.Hostname,
		Port:     t.Port,
		Latency:  latency,
	}, nil
}

// Bedrock sends unconnected pings until one is answered.
func (c *Client) Bedrock(ctx context.Context, address string) (*models.BedrockStatus, error) {
	t, err := c.resolve(ctx, c.bedrock, address)
	if err != nil {
		return nil, err
	}

	var st *models.BedrockStatus
	err = session(ctx, c, t, models.Debug{Ping: true}, c.dialUDP, func(conn *transport.UDPConn) error {
		pong, latency, err := bedrock.NewClient(conn).WithClock(c.opts.Now).Query()
		if err != nil {
			return err
		}
		st = status.BuildBedrock(pong, meta(t, latency))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return st, nil
}

func (c *Client) resolve(ctx context.Context, r *resolve.Resolver, address string) (resolve.Target, error) {
	t, err := r.Resolve(ctx, address)
	if err != nil {
		return resolve.Target{}, err
	}
	if c.opts.Guard != nil {
		if err := c.opts.Guard(t); err != nil {
			return resolve.Target{}, err
		}
	}
	return t, nil
}

func (c *Client) pinger(conn java.Conn, t resolve.Target) *java.Pinger {
	return java.NewPinger(conn, t.Hostname, uint16(t.Port),
		java.WithProtocolVersion(c.opts.ProtocolVersion),
		java.WithToken(c.opts.Token),
		java.WithClock(c.opts.Now),
	)
}

func (c *Client) dialTCP(ctx context.Context, t resolve.Target) (*transport.TCPConn, error) {
	return transport.DialTCP(ctx, t.IP, t.Port, c.opts.Timeout)
}

func (c *Client) dialUDP(ctx context.Context, t resolve.Target) (*transport.UDPConn, error) {
	return transport.DialUDP(ctx, t.IP, t.Port, c.opts.Timeout)
}

// session opens one connection to t and runs fn over it through the retry
// driver. Retryable failures, including the initial connect, are reported as
// *OfflineError.
func session[C io.Closer](
	ctx context.Context,
	c *Client,
	t resolve.Target,
	debug models.Debug,
	dial func(context.Context, resolve.Target) (C, error),
	fn func(C) error,
) error {
	conn, err := dial(ctx, t)
	if err != nil {
		return offline(t, debug, 0, err)
	}
	defer func() { _ = conn.Close() }()

	var last error
	attempts, err := attempt(ctx, c.opts.Tries, t.Address(), func(n int) error {
		if n > 1 && c.opts.Reconnect && wire.TransportFailure(last) {
			fresh, err := dial(ctx, t)
			if err != nil {
				last = err
				return err
			}
			_ = conn.Close()
			conn = fresh
		}
		last = fn(conn)
		return last
	})
	if err != nil {
		return offline(t, debug, attempts, err)
	}

	return nil
}

// attempt runs fn up to tries times, stopping early on success or on an error
// outside the retryable taxonomy. It returns the number of attempts made.
func attempt(ctx context.Context, tries int, addr string, fn func(n int) error) (int, error) {
	if tries < 1 {
		tries = 1
	}

	var err error
	for n := 1; n <= tries; n++ {
		err = fn(n)
		if err == nil {
			return n, nil
		}

		log.Debug().
			Err(err).
			Str("address", addr).
			Int("attempt", n).
			Int("tries", tries).
			Msg("Query attempt failed")

		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %v", ctxErr, err)
			}
			return n, err
		}
		if !wire.Retryable(err) {
			return n, err
		}
	}

	return tries, err
}

// offline wraps retryable failures into an *OfflineError and passes anything
// else through.
func offline(t resolve.Target, debug models.Debug, attempts int, err error) error {
	if !wire.Retryable(err) {
		return err
	}

	return &OfflineError{
		Err: err,
		Offline: models.OfflineStatus{
			IP:       t.IP,
			Hostname: t.Hostname,
			Port:     t.Port,
			Attempts: attempts,
			Debug:    debug,
			Error:    err.Error(),
		},
	}
}

func meta(t resolve.Target, latency float64) status.Meta {
	return status.Meta{
		IP:       t.IP,
		Hostname: t.Hostname,
		Port:     t.Port,
		SRV:      t.SRV,
		Latency:  latency,
	}
}
