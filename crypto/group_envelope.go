package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// Group envelope layout:
//
//	magic(6) | sender ed25519 pub(32) | body nonce(24) | count(2) |
//	count * [recipient ed25519 pub(32) | key nonce(24) | wrapped key(48)] |
//	secretbox(body)
const (
	envelopeMagic     = "qgenc1"
	envelopeEntrySize = 32 + 24 + 32 + secretbox.Overhead
	envelopeHeader    = len(envelopeMagic) + 32 + 24 + 2
	maxRecipients     = 1 << 12
)

var (
	// ErrNotARecipient is returned when the envelope holds no key for the caller.
	ErrNotARecipient = errors.New("no encrypted key for this account in group envelope")
	// ErrMalformedEnvelope is returned when the envelope cannot be parsed.
	ErrMalformedEnvelope = errors.New("malformed group envelope")
)

// EncryptForRecipients encrypts data once under a fresh content key and wraps
// that key for each recipient (and the sender) with an X25519 shared secret.
func EncryptForRecipients(data []byte, sender *KeyPair, recipients [][32]byte) ([]byte, error) {
	if err := checkPlaintext(data); err != nil {
		return nil, err
	}

	all := dedupeKeys(append([][32]byte{sender.Public}, recipients...))
	if len(all) > maxRecipients {
		return nil, fmt.Errorf("too many recipients: %d", len(all))
	}

	var contentKey [32]byte
	if _, err := rand.Read(contentKey[:]); err != nil {
		return nil, err
	}
	defer ZeroBytes(contentKey[:])

	bodyNonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	senderCurve := sender.CurvePrivate()
	defer ZeroBytes(senderCurve[:])

	var buf bytes.Buffer
	buf.Grow(envelopeHeader + len(all)*envelopeEntrySize + len(data) + secretbox.Overhead)
	buf.WriteString(envelopeMagic)
	buf.Write(sender.Public[:])
	buf.Write(bodyNonce[:])
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(all)))

	for _, pub := range all {
		curvePub, err := EdwardsToMontgomery(pub)
		if err != nil {
			return nil, fmt.Errorf("recipient %x: %w", pub[:4], err)
		}
		var shared [32]byte
		box.Precompute(&shared, &curvePub, &senderCurve)

		keyNonce, err := GenerateNonce()
		if err != nil {
			return nil, err
		}
		buf.Write(pub[:])
		buf.Write(keyNonce[:])
		buf.Write(secretbox.Seal(nil, contentKey[:], (*[24]byte)(&keyNonce), &shared))
		ZeroBytes(shared[:])
	}

	buf.Write(secretbox.Seal(nil, data, (*[24]byte)(&bodyNonce), &contentKey))
	return buf.Bytes(), nil
}

// DecryptEnvelope opens an envelope produced by EncryptForRecipients with the
// recipient's wallet key pair.
func DecryptEnvelope(envelope []byte, recipient *KeyPair) ([]byte, error) {
	if len(envelope) < envelopeHeader || string(envelope[:len(envelopeMagic)]) != envelopeMagic {
		return nil, ErrMalformedEnvelope
	}

	off := len(envelopeMagic)
	var senderPub [32]byte
	copy(senderPub[:], envelope[off:off+32])
	off += 32
	var bodyNonce [24]byte
	copy(bodyNonce[:], envelope[off:off+24])
	off += 24
	count := int(binary.BigEndian.Uint16(envelope[off : off+2]))
	off += 2

	if len(envelope) < off+count*envelopeEntrySize+secretbox.Overhead {
		return nil, ErrMalformedEnvelope
	}

	var entry []byte
	for i := 0; i < count; i++ {
		e := envelope[off+i*envelopeEntrySize : off+(i+1)*envelopeEntrySize]
		if bytes.Equal(e[:32], recipient.Public[:]) {
			entry = e
			break
		}
	}
	body := envelope[off+count*envelopeEntrySize:]
	if entry == nil {
		return nil, ErrNotARecipient
	}

	senderCurve, err := EdwardsToMontgomery(senderPub)
	if err != nil {
		return nil, err
	}
	priv := recipient.CurvePrivate()
	defer ZeroBytes(priv[:])

	var shared [32]byte
	box.Precompute(&shared, &senderCurve, &priv)
	defer ZeroBytes(shared[:])

	var keyNonce [24]byte
	copy(keyNonce[:], entry[32:56])
	contentKey, ok := secretbox.Open(nil, entry[56:], &keyNonce, &shared)
	if !ok || len(contentKey) != 32 {
		return nil, ErrDecryptionFailed
	}
	defer ZeroBytes(contentKey)

	var key [32]byte
	copy(key[:], contentKey)
	defer ZeroBytes(key[:])

	plain, ok := secretbox.Open(nil, body, &bodyNonce, &key)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

// IsGroupEnvelope reports whether data starts with the group envelope magic.
func IsGroupEnvelope(data []byte) bool {
	return len(data) >= envelopeHeader && string(data[:len(envelopeMagic)]) == envelopeMagic
}

func dedupeKeys(keys [][32]byte) [][32]byte {
	seen := make(map[[32]byte]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
