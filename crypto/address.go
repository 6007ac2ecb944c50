package crypto

import (
	"bytes"
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // address format is fixed by the chain
)

// AddressVersion is the leading byte of a Qortal address ("Q" in base58).
const AddressVersion byte = 58

// AddressFromPublicKey derives the base58 Qortal address for an Ed25519 public key:
// version || RIPEMD160(SHA256(pub)) || first four bytes of SHA256(SHA256(...)).
func AddressFromPublicKey(pub [32]byte) string {
	shaPub := sha256.Sum256(pub[:])
	r := ripemd160.New()
	r.Write(shaPub[:])

	payload := make([]byte, 0, 25)
	payload = append(payload, AddressVersion)
	payload = r.Sum(payload)

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	payload = append(payload, second[:4]...)

	return base58.Encode(payload)
}

// IsValidAddress reports whether s is a well-formed Qortal address with a
// correct checksum.
func IsValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 25 || raw[0] != AddressVersion {
		return false
	}
	first := sha256.Sum256(raw[:21])
	second := sha256.Sum256(first[:])
	return bytes.Equal(second[:4], raw[21:])
}
