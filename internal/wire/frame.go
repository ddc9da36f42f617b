package wire

import "fmt"

// MaxFrameLength is the largest frame body accepted on read: the largest value a
// 3-byte varint can carry, which is the Java protocol's packet size ceiling.
const MaxFrameLength = 1<<21 - 1

// Frame layout:
//
//	┌──────────────────────┬───────────────────────────┐
//	│ Length (varint, ≤5B) │ Body (Length bytes)        │
//	└──────────────────────┴───────────────────────────┘

// WriteFrame drains payload and writes it to w as varint(len) followed by the body.
// The whole frame is handed to w in one Write call.
func WriteFrame(w ByteSink, payload *Buffer) error {
	body := payload.Flush()

	frame, err := AppendVarint(make([]byte, 0, len(body)+MaxVarintLen), uint64(len(body)))
	if err != nil {
		return err
	}
	frame = append(frame, body...)

	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed frame from src and returns its body as a
// fresh Buffer. A source that ends before the claimed length fails with
// ErrConnectionClosed; a short buffer is never returned.
func ReadFrame(src ByteSource) (*Buffer, error) {
	length, err := ReadVarint(src)
	if err != nil {
		return nil, err
	}
	if length > MaxFrameLength {
		return nil, fmt.Errorf("%w: frame length %d exceeds %d", ErrProtocol, length, MaxFrameLength)
	}

	body, err := src.ReadN(int(length))
	if err != nil {
		return nil, err
	}

	return &Buffer{data: body}, nil
}
