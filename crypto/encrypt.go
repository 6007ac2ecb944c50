package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// Nonce is a 24-byte value used for encryption.
type Nonce [24]byte

// MaxMessageSize bounds any single encryption input (50MB, the QDN resource ceiling).
const MaxMessageSize = 50 * 1024 * 1024

var (
	errEmptyMessage   = errors.New("empty message")
	errMessageTooLong = errors.New("message too large")
)

// GenerateNonce creates a cryptographically secure random nonce.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	_, err := rand.Read(nonce[:])
	if err != nil {
		return Nonce{}, err
	}
	return nonce, nil
}

// Encrypt encrypts a message with NaCl box using X25519 keys.
func Encrypt(message []byte, nonce Nonce, recipientPK [32]byte, senderSK [32]byte) ([]byte, error) {
	if err := checkPlaintext(message); err != nil {
		return nil, err
	}
	return box.Seal(nil, message, (*[24]byte)(&nonce), &recipientPK, &senderSK), nil
}

// EncryptForPeer encrypts message for the holder of an on-chain Ed25519 public
// key. The output is nonce || box.
func EncryptForPeer(message []byte, recipientEdPub [32]byte, sender *KeyPair) ([]byte, error) {
	recipientCurve, err := EdwardsToMontgomery(recipientEdPub)
	if err != nil {
		return nil, err
	}
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	senderCurve := sender.CurvePrivate()
	defer ZeroBytes(senderCurve[:])

	sealed, err := Encrypt(message, nonce, recipientCurve, senderCurve)
	if err != nil {
		return nil, err
	}
	return append(nonce[:], sealed...), nil
}

// EncryptSymmetric encrypts a message using a symmetric key.
func EncryptSymmetric(message []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	if err := checkPlaintext(message); err != nil {
		return nil, err
	}

	// secretbox gives confidentiality and integrity
	out := secretbox.Seal(nil, message, (*[24]byte)(&nonce), &key)

	return out, nil
}

func checkPlaintext(message []byte) error {
	if len(message) == 0 {
		return errEmptyMessage
	}
	if len(message) > MaxMessageSize {
		return errMessageTooLong
	}
	return nil
}
