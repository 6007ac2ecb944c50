// Package crypto implements the wallet-side cryptography used by the bridge.
//
// A Qortal wallet is an Ed25519 seed. Signing uses the seed directly, while
// encryption converts both sides to X25519 so that NaCl box and secretbox can
// be used against keys published on chain.
//
// # Core Types
//
//   - [KeyPair]: Ed25519 wallet key pair with X25519 conversions
//   - [Nonce]: 24-byte random nonce for box and secretbox
//   - [Signature]: Ed25519 signature
//   - [SecretKeyObject]: symmetric key set shared with a private group
//   - [Vault]: password-derived AES-GCM sealing for data at rest
//
// # Encryption
//
// Three schemes are provided:
//
//	// one recipient, nonce || box
//	ct, _ := crypto.EncryptForPeer(data, recipientPub, wallet)
//
//	// many recipients, one body, per-recipient wrapped content key
//	env, _ := crypto.EncryptForRecipients(data, wallet, memberKeys)
//	plain, _ := crypto.DecryptEnvelope(env, member)
//
//	// group symmetric key set
//	keys, _ := crypto.ParseSecretKeyObject(raw)
//	ct, _ = keys.Encrypt(data)
//
// # Addresses
//
// [AddressFromPublicKey] derives the base58 "Q..." address of a public key and
// [IsValidAddress] checks its version byte and checksum.
//
// # Logging
//
// [NewComponentLogger] returns logrus entries with package and function
// fields. Key material must only be logged through [SecureFieldHash].
package crypto
