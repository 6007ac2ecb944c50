// Package limits provides centralized size constants and validation functions
// for data crossing the bridge.
//
// # Size Hierarchy
//
//   - MaxChatMessage (4000 bytes): the data limit of a CHAT transaction.
//
//   - MaxEncryptedChatMessage: a chat message after peer encryption, which adds
//     a 24-byte nonce prefix and the 16-byte Poly1305 tag.
//
//   - MaxOutboundEnvelope (1MB): the browser's limit on a single message from a
//     native-messaging host.
//
//   - MaxInboundEnvelope (64MB): the absolute maximum for any inbound envelope.
//
//   - MaxQDNResource (50MB): the largest resource that may be encrypted or
//     published.
//
// # Validation Functions
//
// Each validation function checks for empty input and size limit violations:
//
//	if err := limits.ValidateChatMessage(msg); err != nil {
//	    // ErrMessageEmpty or ErrMessageTooLarge
//	}
//
// For custom size limits, use the generic ValidateMessageSize function:
//
//	err := limits.ValidateMessageSize(data, 4096)
//
// # Error Types
//
//   - ErrMessageEmpty: returned when an empty or nil message is provided
//   - ErrMessageTooLarge: returned when the input exceeds the limit; the wrapped
//     message carries the actual and maximum sizes
package limits
