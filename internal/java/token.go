package java

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mrand "math/rand/v2"
)

// TokenFunc produces the ping token for one Pinger.
type TokenFunc func() int64

// RandomToken returns a non-negative token from crypto/rand, falling back to
// math/rand if the system source fails.
func RandomToken() int64 {
	var buf [8]byte
	n, err := io.ReadFull(rand.Reader, buf[:])
	if n == 8 && err == nil {
		return int64(binary.BigEndian.Uint64(buf[:]) & (1<<63 - 1))
	}

	return mrand.Int64()
}

// FixedToken returns a TokenFunc that always yields token.
func FixedToken(token int64) TokenFunc {
	return func() int64 { return token }
}
