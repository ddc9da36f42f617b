package wire

import "fmt"

// MaxVarintLen is the maximum number of bytes a protocol varint may occupy.
const MaxVarintLen = 5

// MaxVarint is the largest value that fits in MaxVarintLen bytes (2^35 - 1).
const MaxVarint = 1<<(7*MaxVarintLen) - 1

// AppendVarint appends the varint encoding of v to dst.
// Values that would need a sixth byte fail with ErrEncoding and leave dst unchanged.
func AppendVarint(dst []byte, v uint64) ([]byte, error) {
	var out [MaxVarintLen]byte
	remaining := v
	for i := 0; i < MaxVarintLen; i++ {
		if remaining&^0x7F == 0 {
			out[i] = byte(remaining)
			return append(dst, out[:i+1]...), nil
		}
		out[i] = byte(remaining&0x7F) | 0x80
		remaining >>= 7
	}

	return dst, fmt.Errorf("%w: value %d is too big to send in a varint", ErrEncoding, v)
}

// WriteVarint writes the varint encoding of v to w in a single call.
func WriteVarint(w ByteSink, v uint64) error {
	p, err := AppendVarint(nil, v)
	if err != nil {
		return err
	}
	_, err = w.Write(p)
	return err
}

// ReadVarint decodes one varint from src, one byte at a time.
func ReadVarint(src ByteSource) (uint64, error) {
	var result uint64
	for i := 0; i < MaxVarintLen; i++ {
		p, err := src.ReadN(1)
		if err != nil {
			return 0, err
		}
		part := p[0]
		result |= uint64(part&0x7F) << (7 * i)
		if part&0x80 == 0 {
			return result, nil
		}
	}

	return 0, fmt.Errorf("%w: varint too big", ErrProtocol)
}

// VarintLen returns the encoded length of v, or 0 if v is out of range.
func VarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		n++
		v >>= 7
	}
	if n > MaxVarintLen {
		return 0
	}
	return n
}
