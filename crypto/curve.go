package crypto

import (
	"errors"

	"filippo.io/edwards25519"
)

// ErrInvalidPublicKey is returned when an Ed25519 public key has no X25519 equivalent.
var ErrInvalidPublicKey = errors.New("invalid ed25519 public key")

// EdwardsToMontgomery converts an Ed25519 public key to its X25519 form.
// Encodings that are not on the curve, and small-order points, are rejected.
func EdwardsToMontgomery(edPub [32]byte) ([32]byte, error) {
	var out [32]byte

	p, err := new(edwards25519.Point).SetBytes(edPub[:])
	if err != nil {
		return out, ErrInvalidPublicKey
	}
	if new(edwards25519.Point).MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return out, ErrInvalidPublicKey
	}

	copy(out[:], p.BytesMontgomery())
	return out, nil
}
