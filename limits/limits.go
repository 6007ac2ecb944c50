// Package limits provides centralized size limits for bridge traffic.
// This ensures consistent validation across the channels, handlers and crypto paths.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxChatMessage is the chain limit for the data field of a CHAT transaction (4000 bytes)
	MaxChatMessage = 4000

	// MaxEncryptedChatMessage is the maximum chat payload after encryption overhead
	// This includes the 24-byte nonce prefix and the Poly1305 MAC tag
	MaxEncryptedChatMessage = MaxChatMessage + NonceSize + EncryptionOverhead

	// MaxOutboundEnvelope is the largest single message a native-messaging host may
	// send to the browser (1MB)
	MaxOutboundEnvelope = 1024 * 1024

	// MaxInboundEnvelope is the largest single inbound envelope accepted on any channel
	// This prevents memory exhaustion from a hostile page (64MB)
	MaxInboundEnvelope = 64 * 1024 * 1024

	// MaxQDNResource is the largest resource accepted for encryption or publishing (50MB)
	MaxQDNResource = 50 * 1024 * 1024

	// EncryptionOverhead is the overhead added by NaCl box encryption
	// This is the Poly1305 MAC tag added by box.Seal()
	EncryptionOverhead = 16 // golang.org/x/crypto/nacl/box.Overhead

	// NonceSize is the NaCl nonce length carried in front of peer-encrypted data
	NonceSize = 24
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize checks that message is non-empty and at most maxSize bytes.
func ValidateMessageSize(message []byte, maxSize int) error {
	return check("message", message, maxSize)
}

// ValidateChatMessage checks a chat message before encryption.
func ValidateChatMessage(message []byte) error {
	return check("chat", message, MaxChatMessage)
}

// ValidateEncryptedChatMessage checks an encrypted chat payload.
func ValidateEncryptedChatMessage(message []byte) error {
	return check("encrypted chat", message, MaxEncryptedChatMessage)
}

// ValidateOutboundEnvelope checks an encoded response before it is framed for
// a native-messaging channel.
func ValidateOutboundEnvelope(data []byte) error {
	return check("envelope", data, MaxOutboundEnvelope)
}

// ValidateInboundEnvelope checks data read from an untrusted channel.
func ValidateInboundEnvelope(data []byte) error {
	return check("envelope", data, MaxInboundEnvelope)
}

// ValidateQDNResource checks a resource body bound for encryption or publishing.
func ValidateQDNResource(data []byte) error {
	return check("resource", data, MaxQDNResource)
}

func check(kind string, data []byte, limit int) error {
	switch {
	case len(data) == 0:
		return ErrMessageEmpty
	case len(data) > limit:
		return fmt.Errorf("%w: %s size %d exceeds limit %d", ErrMessageTooLarge, kind, len(data), limit)
	}
	return nil
}
