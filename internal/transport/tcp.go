// Package transport provides the TCP stream and UDP datagram connections used by
// the status protocols. Both map network failures onto the wire error taxonomy.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/woozymasta/mcping/internal/wire"
)

// TCPConn is a stream connection with a per-read timeout.
// Writes are buffered and flushed before the next read, so a request is always
// on the wire before its response is awaited.
type TCPConn struct {
	conn    net.Conn
	w       *bufio.Writer
	ctx     context.Context
	stop    func() bool
	timeout time.Duration
}

// DialTCP connects to host:port within timeout.
// Cancelling ctx interrupts any blocked read on the returned connection.
func DialTCP(ctx context.Context, host string, port int, timeout time.Duration) (*TCPConn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, dialError(ctx, addr, err)
	}

	c := &TCPConn{
		conn:    conn,
		w:       bufio.NewWriter(conn),
		ctx:     ctx,
		timeout: timeout,
	}
	c.stop = context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	return c, nil
}

// Write queues p for sending. Errors surface on the next flush.
func (c *TCPConn) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Flush pushes queued bytes to the socket.
func (c *TCPConn) Flush() error {
	if c.w.Buffered() == 0 {
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return c.ioError(opWrite, err)
	}
	if err := c.w.Flush(); err != nil {
		return c.ioError(opWrite, err)
	}
	return nil
}

// ReadN flushes pending writes and reads exactly n bytes, looping over short reads.
// Each underlying read gets a fresh deadline.
func (c *TCPConn) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read length %d", wire.ErrProtocol, n)
	}
	if err := c.Flush(); err != nil {
		return nil, err
	}

	result := make([]byte, n)
	got := 0
	for got < n {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, c.ioError(opRead, err)
		}

		m, err := c.conn.Read(result[got:])
		got += m
		if got == n {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: server sent %d of %d bytes", wire.ErrConnectionClosed, got, n)
			}
			return nil, c.ioError(opRead, err)
		}
	}

	return result, nil
}

// RemoteAddr returns the peer address.
func (c *TCPConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close releases the socket. It is safe to call more than once.
func (c *TCPConn) Close() error {
	c.stop()
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ioError classifies a read or write failure on an established connection.
func (c *TCPConn) ioError(op string, err error) error {
	return classify(c.ctx, op, c.timeout, err)
}

// Operations named in I/O errors.
const (
	opRead  = "read"
	opWrite = "write"
)

// classify maps an I/O failure onto the taxonomy. Timeouts of either direction
// are ErrReadTimeout; the message names the direction that stalled.
func classify(ctx context.Context, op string, timeout time.Duration, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var ne net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s stalled for %s", wire.ErrReadTimeout, op, timeout)
	}
	return fmt.Errorf("%w: %s: %v", wire.ErrConnectionClosed, op, err)
}

// dialError classifies a failed dial.
func dialError(ctx context.Context, addr string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s", wire.ErrConnectTimeout, addr)
	}
	return fmt.Errorf("%w: %v", wire.ErrConnect, err)
}
