package query

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/woozymasta/mcping/internal/java"
	"github.com/woozymasta/mcping/internal/resolve"
	"github.com/woozymasta/mcping/internal/wire"
)

const sampleStatus = `{"description":"A Server","players":{"online":3,"max":20},"version":{"name":"1.20","protocol":763}}`

// connSource reads exact byte counts from a stream.
type connSource struct{ r io.Reader }

func (s connSource) ReadN(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// listen starts a TCP peer calling serve for every accepted connection with its
// zero-based index.
func listen(t *testing.T, serve func(conn net.Conn, n int)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for n := 0; ; n++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(n int) {
				defer func() { _ = conn.Close() }()
				serve(conn, n)
			}(n)
		}
	}()

	return ln.Addr().String()
}

// serveStatus answers status requests with doc and echoes ping frames until the
// client goes away.
func serveStatus(conn net.Conn, doc string) {
	src := connSource{conn}
	for {
		frame, err := wire.ReadFrame(src)
		if err != nil {
			return
		}
		id, err := wire.ReadVarint(frame)
		if err != nil {
			return
		}

		resp := wire.NewBuffer(nil)
		switch {
		case id == 0x00 && frame.Remaining() > 0:
			continue // handshake
		case id == 0x00:
			_ = wire.WriteVarint(resp, 0x00)
			_ = wire.WriteString(resp, doc)
		case id == 0x01:
			_ = wire.WriteVarint(resp, 0x01)
			_, _ = resp.Write(frame.Flush())
		default:
			return
		}
		if err := wire.WriteFrame(conn, resp); err != nil {
			return
		}
	}
}

// pong builds an unconnected pong datagram carrying info.
func pong(info string) []byte {
	b := []byte{0x1C}
	b = binary.BigEndian.AppendUint64(b, 1)
	b = binary.BigEndian.AppendUint64(b, 2)
	b = append(b, 0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE, 0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78)
	b = binary.BigEndian.AppendUint16(b, uint16(len(info)))
	return append(b, info...)
}

func newTestClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 500 * time.Millisecond
	}
	return New(opts)
}

func TestJavaEndToEnd(t *testing.T) {
	addr := listen(t, func(conn net.Conn, _ int) { serveStatus(conn, sampleStatus) })

	st, err := newTestClient(Options{}).Java(context.Background(), addr)
	if err != nil {
		t.Fatalf("Java: %v", err)
	}

	if !st.Online || st.Players.Online != 3 || st.Players.Max != 20 {
		t.Errorf("status = %+v", st)
	}
	if st.Protocol != 763 || st.Version != "1.20" {
		t.Errorf("version = %q/%d", st.Version, st.Protocol)
	}
	if st.Latency < 0 {
		t.Errorf("latency = %v", st.Latency)
	}
	if st.IP != "127.0.0.1" || st.Debug.SRV {
		t.Errorf("meta = %+v", st)
	}
}

func TestPingEndToEnd(t *testing.T) {
	addr := listen(t, func(conn net.Conn, _ int) { serveStatus(conn, sampleStatus) })

	res, err := newTestClient(Options{Token: java.FixedToken(42)}).Ping(context.Background(), addr)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !res.Online || res.Latency < 0 {
		t.Errorf("ping = %+v", res)
	}
}

func TestJavaSilentPeerGoesOffline(t *testing.T) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	addr := listen(t, func(net.Conn, int) { <-done })

	c := newTestClient(Options{Tries: 3, Timeout: 100 * time.Millisecond})
	_, err := c.Java(context.Background(), addr)

	var off *OfflineError
	if !errors.As(err, &off) {
		t.Fatalf("Java error = %v, want *OfflineError", err)
	}
	if off.Offline.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", off.Offline.Attempts)
	}
	if off.Offline.Online || off.Offline.IP != "127.0.0.1" || off.Offline.Error == "" {
		t.Errorf("offline = %+v", off.Offline)
	}
	if !errors.Is(err, wire.ErrReadTimeout) {
		t.Errorf("error = %v, want ErrReadTimeout", err)
	}
}

func TestJavaConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, err = newTestClient(Options{}).Java(context.Background(), addr)

	var off *OfflineError
	if !errors.As(err, &off) {
		t.Fatalf("Java error = %v, want *OfflineError", err)
	}
	if off.Offline.Attempts != 0 || !errors.Is(err, wire.ErrConnect) {
		t.Errorf("offline = %+v, err = %v", off.Offline, err)
	}
}

func TestJavaEncodingErrorNotRetried(t *testing.T) {
	addr := listen(t, func(conn net.Conn, _ int) { serveStatus(conn, sampleStatus) })

	_, err := newTestClient(Options{ProtocolVersion: -1, Tries: 3}).Java(context.Background(), addr)
	if !errors.Is(err, wire.ErrEncoding) {
		t.Fatalf("Java error = %v, want ErrEncoding", err)
	}
	var off *OfflineError
	if errors.As(err, &off) {
		t.Errorf("encoding error reported as offline")
	}
}

func TestJavaReconnect(t *testing.T) {
	addr := listen(t, func(conn net.Conn, n int) {
		if n == 0 {
			return // drop the first connection
		}
		serveStatus(conn, sampleStatus)
	})

	st, err := newTestClient(Options{Tries: 2, Reconnect: true}).Java(context.Background(), addr)
	if err != nil {
		t.Fatalf("Java: %v", err)
	}
	if st.Players.Online != 3 {
		t.Errorf("players = %+v", st.Players)
	}
}

func TestBedrockEndToEnd(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	info := "MCPE;Dedicated Server;594;1.20.10;2;10;13253860892328930865;Bedrock level;Survival;1;19132;19133;"
	go func() {
		buf := make([]byte, 1500)
		for {
			_, from, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			_, _ = pc.WriteTo(pong(info), from)
		}
	}()

	st, err := newTestClient(Options{}).Bedrock(context.Background(), pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("Bedrock: %v", err)
	}
	if st.PlayerCount != 2 || st.PlayerMax != 10 || st.Edition != "MCPE" || st.Latency < 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestBedrockNoAnswer(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	c := newTestClient(Options{Tries: 2, Timeout: 100 * time.Millisecond})
	_, err = c.Bedrock(context.Background(), pc.LocalAddr().String())

	var off *OfflineError
	if !errors.As(err, &off) || off.Offline.Attempts != 2 {
		t.Fatalf("Bedrock error = %v, want offline after 2 attempts", err)
	}
}

func TestAttempt(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int
	}{
		{"protocol", fmt.Errorf("%w: bad id", wire.ErrProtocol), 3},
		{"malformed", wire.ErrMalformedPayload, 3},
		{"closed", wire.ErrConnectionClosed, 3},
		{"encoding", wire.ErrEncoding, 1},
		{"unknown", errors.New("boom"), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			n, err := attempt(context.Background(), 3, "test", func(int) error {
				calls++
				return tc.err
			})
			if calls != tc.calls || n != tc.calls {
				t.Errorf("calls = %d, attempts = %d, want %d", calls, n, tc.calls)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("error = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestAttemptSucceedsAfterRetry(t *testing.T) {
	calls := 0
	n, err := attempt(context.Background(), 3, "test", func(int) error {
		calls++
		if calls < 2 {
			return wire.ErrReadTimeout
		}
		return nil
	})
	if err != nil || n != 2 {
		t.Fatalf("attempt = %d, %v; want 2, nil", n, err)
	}
}

func TestAttemptStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := attempt(ctx, 5, "test", func(int) error {
		calls++
		cancel()
		return wire.ErrReadTimeout
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) || wire.Retryable(err) {
		t.Errorf("error = %v, want non-retryable context.Canceled", err)
	}
}

func TestGuardRefusesTarget(t *testing.T) {
	errDenied := errors.New("denied")
	c := newTestClient(Options{Guard: func(target resolve.Target) error {
		if target.IP == "127.0.0.1" {
			return errDenied
		}
		return nil
	}})

	if _, err := c.Java(context.Background(), "127.0.0.1:25565"); !errors.Is(err, errDenied) {
		t.Fatalf("Java error = %v, want guard error", err)
	}
	if _, err := c.Bedrock(context.Background(), "127.0.0.1"); !errors.Is(err, errDenied) {
		t.Fatalf("Bedrock error = %v, want guard error", err)
	}
}
