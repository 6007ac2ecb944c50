package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// SecretKeyEntry is one symmetric key in a group's key set.
type SecretKeyEntry struct {
	MessageKey string `json:"messageKey"`
	Nonce      string `json:"nonce"`
}

// SecretKeyObject is the symmetric key set distributed to the members (or
// admins) of a private group, keyed by key nonce.
type SecretKeyObject map[string]SecretKeyEntry

// symmetric ciphertext layout: magic(4) | keyNonce len(1) | keyNonce | nonce(24) | secretbox
const symmetricMagic = "qsk1"

var (
	// ErrInvalidSecretKeyObject is returned when a key set fails structural validation.
	ErrInvalidSecretKeyObject = errors.New("invalid secret key object")
	// ErrUnknownKeyNonce is returned when ciphertext names a key missing from the set.
	ErrUnknownKeyNonce = errors.New("ciphertext key nonce not present in secret key object")
)

// NewSecretKeyObject generates a one-entry key set under keyNonce.
func NewSecretKeyObject(keyNonce string) (SecretKeyObject, error) {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	defer ZeroBytes(key[:])
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}
	return SecretKeyObject{
		keyNonce: {
			MessageKey: base64.StdEncoding.EncodeToString(key[:]),
			Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
		},
	}, nil
}

// ParseSecretKeyObject decodes and validates a JSON key set.
func ParseSecretKeyObject(data []byte) (SecretKeyObject, error) {
	var obj SecretKeyObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKeyObject, err)
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	return obj, nil
}

// Validate checks that the key set is non-empty and every entry decodes to a
// 32-byte key and a 24-byte nonce.
func (s SecretKeyObject) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSecretKeyObject)
	}
	for id, entry := range s {
		if id == "" || len(id) > 255 {
			return fmt.Errorf("%w: bad key nonce %q", ErrInvalidSecretKeyObject, id)
		}
		if _, err := decodeFixed(entry.MessageKey, 32); err != nil {
			return fmt.Errorf("%w: key %s messageKey: %v", ErrInvalidSecretKeyObject, id, err)
		}
		if _, err := decodeFixed(entry.Nonce, 24); err != nil {
			return fmt.Errorf("%w: key %s nonce: %v", ErrInvalidSecretKeyObject, id, err)
		}
	}
	return nil
}

// LatestKeyNonce returns the key nonce used for new encryptions: the highest
// numeric nonce, or the lexically greatest when nonces are not numeric.
func (s SecretKeyObject) LatestKeyNonce() string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// Encrypt seals data under the latest key in the set.
func (s SecretKeyObject) Encrypt(data []byte) ([]byte, error) {
	id := s.LatestKeyNonce()
	if id == "" {
		return nil, ErrInvalidSecretKeyObject
	}
	key, err := decodeFixed(s[id].MessageKey, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKeyObject, err)
	}
	defer ZeroBytes(key)

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}
	var k [32]byte
	copy(k[:], key)
	defer ZeroBytes(k[:])

	sealed, err := EncryptSymmetric(data, nonce, k)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(symmetricMagic)+1+len(id)+24+len(sealed))
	out = append(out, symmetricMagic...)
	out = append(out, byte(len(id)))
	out = append(out, id...)
	out = append(out, nonce[:]...)
	return append(out, sealed...), nil
}

// Decrypt opens data produced by Encrypt with whichever key it names.
func (s SecretKeyObject) Decrypt(data []byte) ([]byte, error) {
	if len(data) < len(symmetricMagic)+1 || string(data[:len(symmetricMagic)]) != symmetricMagic {
		return nil, errors.New("not a group-encrypted payload")
	}
	off := len(symmetricMagic)
	idLen := int(data[off])
	off++
	if len(data) < off+idLen+24+1 {
		return nil, errors.New("group-encrypted payload truncated")
	}
	id := string(data[off : off+idLen])
	off += idLen

	entry, ok := s[id]
	if !ok {
		return nil, ErrUnknownKeyNonce
	}
	key, err := decodeFixed(entry.MessageKey, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKeyObject, err)
	}
	defer ZeroBytes(key)

	var nonce Nonce
	copy(nonce[:], data[off:off+24])
	var k [32]byte
	copy(k[:], key)
	defer ZeroBytes(k[:])

	return DecryptSymmetric(data[off+24:], nonce, k)
}

func decodeFixed(s string, size int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(raw))
	}
	return raw, nil
}
