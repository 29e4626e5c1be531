package random

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Stream is a deterministic Random derived from a server seed and a
// per-user nonce. The same (seed, subject, nonce) always yields the same
// sequence, so any economy outcome can be replayed for an audit.
type Stream struct {
	seed    []byte
	subject string
	nonce   int64
	counter uint64
}

// NewStream creates a Stream for one transaction
func NewStream(seed []byte, subject string, nonce int64) *Stream {
	return &Stream{seed: seed, subject: subject, nonce: nonce}
}

// Ensure Stream implements Random
var _ Random = (*Stream)(nil)

// Intn returns the next value in [0, n)
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	bound := uint64(n)
	// Rejection sampling keeps the distribution uniform
	limit := ^uint64(0) - (^uint64(0) % bound)
	for {
		v := s.next()
		if v < limit {
			return int(v % bound)
		}
	}
}

// String generates a string of the given length from the given alphabet
func (s *Stream) String(length int, alphabet string) string {
	return stringFrom(s, length, alphabet)
}

func (s *Stream) next() uint64 {
	mac := hmac.New(sha256.New, s.seed)
	_, _ = fmt.Fprintf(mac, "%s:%d:%d", s.subject, s.nonce, s.counter)
	s.counter++
	return binary.BigEndian.Uint64(mac.Sum(nil)[:8])
}
