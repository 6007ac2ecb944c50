package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

// ParseSharingKey decodes a base64 32-byte sharing key.
func ParseSharingKey(b64 string) ([32]byte, error) {
	var key [32]byte
	raw, err := decodeFixed(b64, 32)
	if err != nil {
		return key, fmt.Errorf("invalid sharing key: %w", err)
	}
	copy(key[:], raw)
	ZeroBytes(raw)
	return key, nil
}

// EncryptWithSharingKey seals data under a caller-held symmetric key.
// The output is nonce || secretbox.
func EncryptWithSharingKey(data []byte, key [32]byte) ([]byte, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}
	sealed, err := EncryptSymmetric(data, nonce, key)
	if err != nil {
		return nil, err
	}
	return append(nonce[:], sealed...), nil
}

// DecryptWithSharingKey reverses EncryptWithSharingKey.
func DecryptWithSharingKey(data []byte, key [32]byte) ([]byte, error) {
	if len(data) <= 24 {
		return nil, fmt.Errorf("ciphertext too short")
	}
	var nonce Nonce
	copy(nonce[:], data[:24])
	return DecryptSymmetric(data[24:], nonce, key)
}

// DecryptAESGCM opens AES-GCM ciphertext where all inputs are base64.
func DecryptAESGCM(ciphertextB64, keyB64, ivB64 string) ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	defer ZeroBytes(key)
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, fmt.Errorf("invalid iv encoding: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plain, err := gcm.Open(nil, iv, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plain, nil
}
