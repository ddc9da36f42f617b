package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestBufferReadWrite(t *testing.T) {
	var buf Buffer
	_, _ = buf.Write([]byte{1, 2, 3})
	_, _ = buf.Write([]byte{4, 5})

	if buf.Remaining() != 5 {
		t.Fatalf("Remaining = %d, want 5", buf.Remaining())
	}
	if got := buf.Read(2); !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("Read(2) = %v", got)
	}
	if got := buf.Read(10); !bytes.Equal(got, []byte{3, 4, 5}) {
		t.Errorf("Read(10) = %v, want the 3 remaining bytes", got)
	}
	if got := buf.Read(1); len(got) != 0 {
		t.Errorf("Read on empty buffer = %v", got)
	}
}

func TestBufferReadNTruncated(t *testing.T) {
	buf := NewBuffer([]byte{1, 2, 3})
	if _, err := buf.ReadN(4); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("ReadN(4) error = %v, want ErrConnectionClosed", err)
	}
	// A failed exact read consumes nothing.
	if buf.Remaining() != 3 {
		t.Errorf("Remaining after failed ReadN = %d, want 3", buf.Remaining())
	}
}

func TestBufferReadIsCopy(t *testing.T) {
	var buf Buffer
	_, _ = buf.Write([]byte{1, 2})
	got := buf.Read(2)
	_, _ = buf.Write([]byte{9, 9})
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("earlier read changed after write: %v", got)
	}
}

func TestBufferFlush(t *testing.T) {
	buf := NewBuffer([]byte{7, 8, 9})
	buf.Read(1)
	if got := buf.Flush(); !bytes.Equal(got, []byte{8, 9}) {
		t.Errorf("Flush = %v, want [8 9]", got)
	}
	if buf.Remaining() != 0 {
		t.Errorf("Remaining after Flush = %d", buf.Remaining())
	}
}

func TestFixedWidthIntegers(t *testing.T) {
	var buf Buffer
	_ = WriteInt16(&buf, -2)
	_ = WriteUint16(&buf, 0xFFFE)
	_ = WriteInt32(&buf, math.MinInt32)
	_ = WriteUint32(&buf, math.MaxUint32)
	_ = WriteInt64(&buf, -1234567890123)
	_ = WriteUint64(&buf, math.MaxUint64)

	if got, want := buf.Remaining(), 2+2+4+4+8+8; got != want {
		t.Fatalf("encoded size = %d, want %d", got, want)
	}
	if !bytes.Equal(buf.Bytes()[:2], []byte{0xFF, 0xFE}) {
		t.Errorf("int16 not big-endian: % X", buf.Bytes()[:2])
	}

	if v, _ := ReadInt16(&buf); v != -2 {
		t.Errorf("ReadInt16 = %d", v)
	}
	if v, _ := ReadUint16(&buf); v != 0xFFFE {
		t.Errorf("ReadUint16 = %d", v)
	}
	if v, _ := ReadInt32(&buf); v != math.MinInt32 {
		t.Errorf("ReadInt32 = %d", v)
	}
	if v, _ := ReadUint32(&buf); v != math.MaxUint32 {
		t.Errorf("ReadUint32 = %d", v)
	}
	if v, _ := ReadInt64(&buf); v != -1234567890123 {
		t.Errorf("ReadInt64 = %d", v)
	}
	if v, _ := ReadUint64(&buf); v != math.MaxUint64 {
		t.Errorf("ReadUint64 = %d", v)
	}
}

func TestASCII(t *testing.T) {
	var buf Buffer
	if err := WriteASCII(&buf, "café"); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Bytes(), []byte{'c', 'a', 'f', 0xE9, 0}; !bytes.Equal(got, want) {
		t.Errorf("WriteASCII = % X, want % X", got, want)
	}
	s, err := ReadASCII(&buf)
	if err != nil || s != "café" {
		t.Errorf("ReadASCII = %q, %v", s, err)
	}

	if err := WriteASCII(&buf, "snow ☃"); !errors.Is(err, ErrEncoding) {
		t.Errorf("WriteASCII non Latin-1 error = %v, want ErrEncoding", err)
	}
}
