package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
	// VaultVersion is the current sealed-blob format version.
	VaultVersion = 1
	// SaltSize is the size of the salt for PBKDF2.
	SaltSize = 32
)

// Vault seals blobs with AES-256-GCM under a key derived from a passphrase.
// The salt lives next to the data it protects as <dir>/.salt.
type Vault struct {
	key      [32]byte
	saltFile string
}

// NewVault derives the vault key from password, creating the salt on first use.
// password is wiped before returning.
func NewVault(dir string, password []byte) (*Vault, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("vault password cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	v := &Vault{saltFile: filepath.Join(dir, ".salt")}
	salt, err := v.loadOrGenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize salt: %w", err)
	}

	derived := pbkdf2.Key(password, salt, PBKDF2Iterations, 32, sha256.New)
	copy(v.key[:], derived)

	SecureWipe(derived)
	SecureWipe(password)

	return v, nil
}

func (v *Vault) loadOrGenerateSalt() ([]byte, error) {
	data, err := os.ReadFile(v.saltFile)
	if err == nil {
		if len(data) != SaltSize {
			return nil, fmt.Errorf("invalid salt file size: got %d, want %d", len(data), SaltSize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := os.WriteFile(v.saltFile, salt, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

// Seal encrypts plaintext. Format: [version:2][nonce:12][ciphertext+tag].
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 2, 2+len(nonce)+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out, VaultVersion)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func (v *Vault) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 2+12+16 {
		return nil, fmt.Errorf("sealed blob too short: %d bytes", len(sealed))
	}
	if version := binary.BigEndian.Uint16(sealed[:2]); version != VaultVersion {
		return nil, fmt.Errorf("unsupported vault version: %d (expected %d)", version, VaultVersion)
	}

	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	plaintext, err := gcm.Open(nil, sealed[2:2+ns], sealed[2+ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("vault decryption failed (wrong password or corrupted data): %w", err)
	}
	return plaintext, nil
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Close wipes the vault key. The vault must not be used afterwards.
func (v *Vault) Close() error {
	ZeroBytes(v.key[:])
	return nil
}
