package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MaxStringLength bounds varint-prefixed strings on read (32767 UTF-16 units,
// up to 4 bytes each).
const MaxStringLength = 32767 * 4

// ReadUint16 reads a big-endian uint16.
func ReadUint16(src ByteSource) (uint16, error) {
	p, err := src.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

// WriteUint16 writes a big-endian uint16.
func WriteUint16(w ByteSink, v uint16) error {
	_, err := w.Write(binary.BigEndian.AppendUint16(nil, v))
	return err
}

// ReadInt16 reads a big-endian int16.
func ReadInt16(src ByteSource) (int16, error) {
	v, err := ReadUint16(src)
	return int16(v), err
}

// WriteInt16 writes a big-endian int16.
func WriteInt16(w ByteSink, v int16) error {
	return WriteUint16(w, uint16(v))
}

// ReadUint32 reads a big-endian uint32.
func ReadUint32(src ByteSource) (uint32, error) {
	p, err := src.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// WriteUint32 writes a big-endian uint32.
func WriteUint32(w ByteSink, v uint32) error {
	_, err := w.Write(binary.BigEndian.AppendUint32(nil, v))
	return err
}

// ReadInt32 reads a big-endian int32.
func ReadInt32(src ByteSource) (int32, error) {
	v, err := ReadUint32(src)
	return int32(v), err
}

// WriteInt32 writes a big-endian int32.
func WriteInt32(w ByteSink, v int32) error {
	return WriteUint32(w, uint32(v))
}

// ReadUint64 reads a big-endian uint64.
func ReadUint64(src ByteSource) (uint64, error) {
	p, err := src.ReadN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

// WriteUint64 writes a big-endian uint64.
func WriteUint64(w ByteSink, v uint64) error {
	_, err := w.Write(binary.BigEndian.AppendUint64(nil, v))
	return err
}

// ReadInt64 reads a big-endian int64.
func ReadInt64(src ByteSource) (int64, error) {
	v, err := ReadUint64(src)
	return int64(v), err
}

// WriteInt64 writes a big-endian int64.
func WriteInt64(w ByteSink, v int64) error {
	return WriteUint64(w, uint64(v))
}

// ReadString reads a varint-prefixed UTF-8 string.
func ReadString(src ByteSource) (string, error) {
	length, err := ReadVarint(src)
	if err != nil {
		return "", err
	}
	if length > MaxStringLength {
		return "", fmt.Errorf("%w: string length %d exceeds %d", ErrProtocol, length, MaxStringLength)
	}

	p, err := src.ReadN(int(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", fmt.Errorf("%w: string is not valid UTF-8", ErrMalformedPayload)
	}

	return string(p), nil
}

// WriteString writes s as varint(byte length) followed by its UTF-8 bytes.
func WriteString(w ByteSink, s string) error {
	p, err := AppendVarint(make([]byte, 0, len(s)+MaxVarintLen), uint64(len(s)))
	if err != nil {
		return err
	}
	_, err = w.Write(append(p, s...))
	return err
}

// ReadASCII reads a null-terminated Latin-1 string. The terminator is consumed
// and not returned.
func ReadASCII(src ByteSource) (string, error) {
	var runes []rune
	for {
		p, err := src.ReadN(1)
		if err != nil {
			return "", err
		}
		if p[0] == 0 {
			return string(runes), nil
		}
		// Latin-1 code points map one to one onto the first 256 runes.
		runes = append(runes, rune(p[0]))
	}
}

// WriteASCII writes s as Latin-1 followed by a zero byte. Runes above U+00FF
// can not be represented and fail with ErrEncoding.
func WriteASCII(w ByteSink, s string) error {
	p := make([]byte, 0, len(s)+1)
	for _, r := range s {
		if r > 0xFF {
			return fmt.Errorf("%w: rune %q is outside Latin-1", ErrEncoding, r)
		}
		p = append(p, byte(r))
	}
	_, err := w.Write(append(p, 0))
	return err
}

// ReadBuffer reads a nested length-prefixed sub-buffer.
func ReadBuffer(src ByteSource) (*Buffer, error) {
	return ReadFrame(src)
}

// WriteBuffer drains sub and writes it as a nested length-prefixed sub-buffer.
func WriteBuffer(w ByteSink, sub *Buffer) error {
	return WriteFrame(w, sub)
}
