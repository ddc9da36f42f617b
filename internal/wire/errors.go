// Package wire implements the byte-level encoding shared by the Java and Bedrock
// status protocols: a cursor buffer, the 5-byte varint, and length-prefixed frames.
package wire

import "errors"

// Error taxonomy for one query attempt.
// Transport and protocol code wraps these with fmt.Errorf("...: %w"), so callers
// classify failures with errors.Is.
var (
	// ErrConnectTimeout is returned when establishing the connection took longer
	// than the configured timeout.
	ErrConnectTimeout = errors.New("connect timeout")

	// ErrConnect is returned when the connection could not be established
	// (refused, unreachable, unresolvable destination).
	ErrConnect = errors.New("connect failed")

	// ErrReadTimeout is returned when the peer sent nothing within the read timeout.
	ErrReadTimeout = errors.New("read timeout")

	// ErrConnectionClosed is returned when the byte source ran out before the
	// requested amount of data could be read.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrEncoding is returned when a value can not be represented on the wire.
	// It indicates a caller bug and is never retried.
	ErrEncoding = errors.New("encoding error")

	// ErrProtocol is returned on an unexpected packet id, a ping token mismatch,
	// or an oversized varint or frame.
	ErrProtocol = errors.New("protocol error")

	// ErrMalformedPayload is returned when a packet is well framed but its content
	// (JSON document, Bedrock field list) can not be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Retryable reports whether err belongs to the transport or protocol part of the
// taxonomy, i.e. a fresh attempt may succeed.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEncoding):
		return false
	case errors.Is(err, ErrConnectTimeout),
		errors.Is(err, ErrConnect),
		errors.Is(err, ErrReadTimeout),
		errors.Is(err, ErrConnectionClosed),
		errors.Is(err, ErrProtocol),
		errors.Is(err, ErrMalformedPayload):
		return true
	default:
		return false
	}
}

// TransportFailure reports whether err was raised by the connection itself rather
// than by the content it carried.
func TransportFailure(err error) bool {
	return errors.Is(err, ErrConnectTimeout) ||
		errors.Is(err, ErrConnect) ||
		errors.Is(err, ErrReadTimeout) ||
		errors.Is(err, ErrConnectionClosed)
}
