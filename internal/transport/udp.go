package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/woozymasta/mcping/internal/wire"
)

// MaxDatagramSize is the receive buffer size for one reply datagram.
const MaxDatagramSize = 4096

// UDPConn is a connected datagram socket used for one request/reply exchange.
type UDPConn struct {
	conn    *net.UDPConn
	ctx     context.Context
	stop    func() bool
	timeout time.Duration
}

// DialUDP resolves host:port and binds a local socket to it. No packet is sent.
func DialUDP(ctx context.Context, host string, port int, timeout time.Duration) (*UDPConn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, dialError(ctx, addr, err)
	}

	udp, ok := conn.(*net.UDPConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: unexpected connection type %T", wire.ErrConnect, conn)
	}

	c := &UDPConn{
		conn:    udp,
		ctx:     ctx,
		timeout: timeout,
	}
	c.stop = context.AfterFunc(ctx, func() {
		_ = udp.SetDeadline(time.Unix(1, 0))
	})

	return c, nil
}

// Send transmits p as a single datagram.
func (c *UDPConn) Send(p []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return classify(c.ctx, opWrite, c.timeout, err)
	}

	n, err := c.conn.Write(p)
	if err != nil {
		return classify(c.ctx, opWrite, c.timeout, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", wire.ErrConnectionClosed, n, len(p))
	}

	return nil
}

// Receive waits for exactly one datagram, bounded by the timeout.
func (c *UDPConn) Receive() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, c.ioError(err)
	}

	buf := make([]byte, MaxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, c.ioError(err)
	}

	return buf[:n], nil
}

// RemoteAddr returns the destination address.
func (c *UDPConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close releases the socket. It is safe to call more than once.
func (c *UDPConn) Close() error {
	c.stop()
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ioError classifies a receive failure. ICMP port unreachable surfaces as
// "connection refused" on a connected socket and maps to ErrConnectionClosed.
func (c *UDPConn) ioError(err error) error {
	if ctxErr := c.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: no reply within %s", wire.ErrReadTimeout, c.timeout)
	}
	return classify(c.ctx, opRead, c.timeout, err)
}
