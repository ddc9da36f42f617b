package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestWriteVarintBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		want  []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"max_1byte", 127, []byte{0x7F}},
		{"min_2byte", 128, []byte{0x80, 0x01}},
		{"300", 300, []byte{0xAC, 0x02}},
		{"max_2byte", 16383, []byte{0xFF, 0x7F}},
		{"min_3byte", 16384, []byte{0x80, 0x80, 0x01}},
		{"max_int32", math.MaxInt32, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x07}},
		{"max_uint32", math.MaxUint32, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
		{"max_varint", MaxVarint, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf Buffer
			if err := WriteVarint(&buf, tc.value); err != nil {
				t.Fatalf("WriteVarint(%d) error: %v", tc.value, err)
			}
			if got := buf.Bytes(); !bytes.Equal(got, tc.want) {
				t.Errorf("WriteVarint(%d) = % X, want % X", tc.value, got, tc.want)
			}
			if n := VarintLen(tc.value); n != len(tc.want) {
				t.Errorf("VarintLen(%d) = %d, want %d", tc.value, n, len(tc.want))
			}
		})
	}
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 127, 128, 255, 256, 25565, 1 << 20, 1<<28 - 1, 1 << 28, math.MaxInt32, 1 << 34, MaxVarint}
	for v := uint64(1); v < MaxVarint; v = v*3 + 7 {
		values = append(values, v)
	}

	for _, v := range values {
		var buf Buffer
		if err := WriteVarint(&buf, v); err != nil {
			t.Fatalf("WriteVarint(%d) error: %v", v, err)
		}
		got, err := ReadVarint(&buf)
		if err != nil {
			t.Fatalf("ReadVarint after WriteVarint(%d) error: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d = %d", v, got)
		}
		if buf.Remaining() != 0 {
			t.Errorf("round trip %d left %d bytes", v, buf.Remaining())
		}
	}
}

func TestWriteVarintTooBig(t *testing.T) {
	for _, v := range []uint64{MaxVarint + 1, 1 << 40, math.MaxUint64} {
		var buf Buffer
		err := WriteVarint(&buf, v)
		if !errors.Is(err, ErrEncoding) {
			t.Errorf("WriteVarint(%d) error = %v, want ErrEncoding", v, err)
		}
		if buf.Remaining() != 0 {
			t.Errorf("WriteVarint(%d) wrote %d bytes on failure", v, buf.Remaining())
		}
		if VarintLen(v) != 0 {
			t.Errorf("VarintLen(%d) = %d, want 0", v, VarintLen(v))
		}
	}
}

func TestReadVarintTooBig(t *testing.T) {
	buf := NewBuffer([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err := ReadVarint(buf)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("ReadVarint error = %v, want ErrProtocol", err)
	}
}

func TestReadVarintTruncated(t *testing.T) {
	buf := NewBuffer([]byte{0x80, 0x80})
	_, err := ReadVarint(buf)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("ReadVarint error = %v, want ErrConnectionClosed", err)
	}
}
