package transaction

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
)

// DefaultChatDifficulty is the number of leading zero bits a chat
// transaction's work hash must have.
const DefaultChatDifficulty = 8

// powBatch is how many nonces are tried between context checks.
const powBatch = 1024

// ErrNonceSpaceExhausted is returned when no nonce satisfies the difficulty.
var ErrNonceSpaceExhausted = errors.New("proof-of-work nonce space exhausted")

// CheckNonce reports whether sha256(sha256(unsigned) || nonce) has at least
// bits leading zero bits.
func CheckNonce(unsigned []byte, nonce int32, bits int) bool {
	seed := sha256.Sum256(unsigned)
	return checkSeed(seed, nonce, bits)
}

func checkSeed(seed [32]byte, nonce int32, bits int) bool {
	if bits <= 0 {
		return true
	}
	var buf [36]byte
	copy(buf[:32], seed[:])
	binary.BigEndian.PutUint32(buf[32:], uint32(nonce))
	digest := sha256.Sum256(buf[:])

	full := bits / 8
	rem := bits % 8
	if full > len(digest) {
		return false
	}
	for i := 0; i < full; i++ {
		if digest[i] != 0 {
			return false
		}
	}
	if rem == 0 {
		return true
	}
	mask := byte(0xff << (8 - rem))
	return digest[full]&mask == 0
}

// ComputeNonce searches for the smallest non-negative nonce meeting bits
// over the unsigned transaction bytes (encoded with a zero nonce). The search
// checks ctx every powBatch attempts.
func ComputeNonce(ctx context.Context, unsigned []byte, bits int) (int32, error) {
	seed := sha256.Sum256(unsigned)
	for nonce := int64(0); nonce <= math.MaxInt32; nonce++ {
		if nonce%powBatch == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if checkSeed(seed, int32(nonce), bits) {
			return int32(nonce), nil
		}
	}
	return 0, ErrNonceSpaceExhausted
}
