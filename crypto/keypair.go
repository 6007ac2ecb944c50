package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/curve25519"
)

// KeyPair is a Qortal wallet key pair. Private holds the 32-byte Ed25519 seed
// and Public the matching Ed25519 public key.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

var (
	// ErrInvalidSeed is returned when a wallet secret does not decode to a 32-byte seed.
	ErrInvalidSeed = errors.New("invalid wallet secret: expected 32-byte seed")
	// ErrZeroKey is returned for an all-zero key.
	ErrZeroKey = errors.New("invalid secret key: all zeros")
)

// GenerateKeyPair creates a new random wallet key pair.
func GenerateKeyPair() (*KeyPair, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

// FromSeed derives a key pair from an Ed25519 seed.
func FromSeed(seed [32]byte) (*KeyPair, error) {
	if isZeroKey(seed) {
		return nil, ErrZeroKey
	}

	priv := ed25519.NewKeyFromSeed(seed[:])
	kp := &KeyPair{Private: seed}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	ZeroBytes(priv)

	return kp, nil
}

// FromBase58 decodes a persisted base58 wallet secret into a key pair.
func FromBase58(secret string) (*KeyPair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	defer ZeroBytes(raw)

	if len(raw) != 32 {
		return nil, ErrInvalidSeed
	}

	var seed [32]byte
	copy(seed[:], raw)
	return FromSeed(seed)
}

// PublicKeyBase58 returns the base58 encoding of the public key, the form the
// node uses in its REST API.
func (kp *KeyPair) PublicKeyBase58() string {
	return base58.Encode(kp.Public[:])
}

// PrivateKeyBase58 returns the base58 wallet secret.
func (kp *KeyPair) PrivateKeyBase58() string {
	return base58.Encode(kp.Private[:])
}

// Address returns the Qortal address of the key pair.
func (kp *KeyPair) Address() string {
	return AddressFromPublicKey(kp.Public)
}

// CurvePrivate returns the X25519 private scalar matching the Ed25519 seed.
func (kp *KeyPair) CurvePrivate() [32]byte {
	h := sha512.Sum512(kp.Private[:])
	var out [32]byte
	copy(out[:], h[:32])
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	ZeroBytes(h[:])
	return out
}

// CurvePublic returns the X25519 public key matching CurvePrivate.
func (kp *KeyPair) CurvePublic() ([32]byte, error) {
	priv := kp.CurvePrivate()
	defer ZeroBytes(priv[:])

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], pub)
	return out, nil
}

// PublicKeyFromBase58 decodes a base58 Ed25519 public key as published on chain.
func PublicKeyFromBase58(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("invalid public key: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("invalid public key length %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
