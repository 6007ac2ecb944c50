package crypto

import (
	"errors"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrDecryptionFailed is returned when authenticated decryption fails.
var ErrDecryptionFailed = errors.New("decryption failed")

// Decrypt decrypts a NaCl box message using X25519 keys.
func Decrypt(ciphertext []byte, nonce Nonce, senderPK [32]byte, recipientSK [32]byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, errors.New("empty ciphertext")
	}

	decrypted, ok := box.Open(nil, ciphertext, (*[24]byte)(&nonce), &senderPK, &recipientSK)
	if !ok {
		return nil, ErrDecryptionFailed
	}

	return decrypted, nil
}

// DecryptFromPeer reverses EncryptForPeer. senderEdPub is the on-chain public
// key of the party that encrypted the message.
func DecryptFromPeer(data []byte, senderEdPub [32]byte, recipient *KeyPair) ([]byte, error) {
	if len(data) <= 24 {
		return nil, errors.New("ciphertext too short")
	}
	senderCurve, err := EdwardsToMontgomery(senderEdPub)
	if err != nil {
		return nil, err
	}

	var nonce Nonce
	copy(nonce[:], data[:24])

	priv := recipient.CurvePrivate()
	defer ZeroBytes(priv[:])

	return Decrypt(data[24:], nonce, senderCurve, priv)
}

// DecryptSymmetric decrypts a message using a symmetric key.
func DecryptSymmetric(ciphertext []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, errors.New("empty ciphertext")
	}

	out, ok := secretbox.Open(nil, ciphertext, (*[24]byte)(&nonce), &key)
	if !ok {
		return nil, errors.New("decryption failed: message authentication failed")
	}

	return out, nil
}
