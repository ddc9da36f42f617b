package wire

import "fmt"

// ByteSource yields exactly the number of bytes asked for, or an error.
// It is implemented by the in-memory Buffer and by the TCP transport.
type ByteSource interface {
	ReadN(n int) ([]byte, error)
}

// ByteSink accepts outgoing bytes. Any io.Writer satisfies it.
type ByteSink interface {
	Write(p []byte) (int, error)
}

// Buffer is a growable byte sequence with a read cursor.
// Writes append at the end, reads consume from the front.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer returns a Buffer holding a copy of b ready to be read.
func NewBuffer(b []byte) *Buffer {
	data := make([]byte, len(b))
	copy(data, b)
	return &Buffer{data: data}
}

// Write appends p to the buffer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	b.data = append(b.data, c)
	return nil
}

// Read consumes and returns up to n bytes from the front of the buffer.
// It returns fewer than n bytes when fewer remain. The result is a copy.
func (b *Buffer) Read(n int) []byte {
	if n <= 0 {
		return nil
	}
	if rem := b.Remaining(); n > rem {
		n = rem
	}
	p := make([]byte, n)
	copy(p, b.data[b.off:])
	b.off += n
	b.compact()
	return p
}

// ReadN consumes exactly n bytes. If fewer remain nothing is consumed and the
// error wraps ErrConnectionClosed.
func (b *Buffer) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read length %d", ErrProtocol, n)
	}
	if rem := b.Remaining(); n > rem {
		return nil, fmt.Errorf("%w: need %d bytes, %d available", ErrConnectionClosed, n, rem)
	}
	return b.Read(n), nil
}

// ReadByte consumes one byte.
func (b *Buffer) ReadByte() (byte, error) {
	p, err := b.ReadN(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// Remaining reports the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.off
}

// Bytes returns the unread bytes without consuming them.
// The slice aliases the buffer until the next Write.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Flush returns all unread bytes and resets the buffer to empty.
// The buffer gives up its backing array, so the result is not reused.
func (b *Buffer) Flush() []byte {
	p := b.data[b.off:]
	b.data = nil
	b.off = 0
	return p
}

// Reset discards all content.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.off = 0
}

// compact drops consumed bytes once they dominate the backing array.
func (b *Buffer) compact() {
	if b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
		return
	}
	if b.off > 4096 && b.off > len(b.data)/2 {
		n := copy(b.data, b.data[b.off:])
		b.data = b.data[:n]
		b.off = 0
	}
}
