package limits

import (
	"crypto/rand"
	"errors"
	"testing"

	"golang.org/x/crypto/nacl/box"
)

// TestEncryptionOverheadMatchesNaCl verifies that our EncryptionOverhead constant
// matches the actual overhead from golang.org/x/crypto/nacl/box
func TestEncryptionOverheadMatchesNaCl(t *testing.T) {
	if EncryptionOverhead != box.Overhead {
		t.Errorf("EncryptionOverhead = %d, want %d (box.Overhead)", EncryptionOverhead, box.Overhead)
	}
}

// TestEncryptedChatSizeMatchesPeerEncryption seals a max-size chat message the way
// peer encryption does (nonce || box) and checks it fits the encrypted limit exactly
func TestEncryptedChatSizeMatchesPeerEncryption(t *testing.T) {
	_, privateKey1, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key pair 1: %v", err)
	}
	publicKey2, _, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key pair 2: %v", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		t.Fatalf("Failed to generate nonce: %v", err)
	}

	for _, size := range []int{1, 100, 1000, MaxChatMessage} {
		message := make([]byte, size)
		encrypted := append(nonce[:], box.Seal(nil, message, &nonce, publicKey2, privateKey1)...)

		if got := len(encrypted) - len(message); got != NonceSize+EncryptionOverhead {
			t.Errorf("For message size %d: overhead = %d bytes, want %d", size, got, NonceSize+EncryptionOverhead)
		}
		if err := ValidateEncryptedChatMessage(encrypted); err != nil {
			t.Errorf("For message size %d: unexpected error %v", size, err)
		}
	}
}

// TestValidateChatMessage tests the chat validation function
func TestValidateChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		message []byte
		wantErr error
	}{
		{name: "empty message", message: []byte{}, wantErr: ErrMessageEmpty},
		{name: "nil message", message: nil, wantErr: ErrMessageEmpty},
		{name: "valid small message", message: []byte("hi"), wantErr: nil},
		{name: "valid max-size message", message: make([]byte, MaxChatMessage), wantErr: nil},
		{name: "message too large", message: make([]byte, MaxChatMessage+1), wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatMessage(tt.message)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChatMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateEnvelopes tests both channel-facing validators
func TestValidateEnvelopes(t *testing.T) {
	if err := ValidateOutboundEnvelope(make([]byte, MaxOutboundEnvelope)); err != nil {
		t.Errorf("max outbound envelope rejected: %v", err)
	}
	if err := ValidateOutboundEnvelope(make([]byte, MaxOutboundEnvelope+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized outbound envelope: got %v", err)
	}
	if err := ValidateInboundEnvelope(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty inbound envelope: got %v", err)
	}
	if err := ValidateInboundEnvelope([]byte(`{}`)); err != nil {
		t.Errorf("small inbound envelope rejected: %v", err)
	}
}

// TestValidateQDNResource tests the resource limit
func TestValidateQDNResource(t *testing.T) {
	if err := ValidateQDNResource([]byte("data")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateQDNResource(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty resource: got %v", err)
	}
}

// TestConstantConsistency verifies internal consistency of all size constants
func TestConstantConsistency(t *testing.T) {
	if MaxEncryptedChatMessage <= MaxChatMessage {
		t.Errorf("MaxEncryptedChatMessage (%d) should be > MaxChatMessage (%d)",
			MaxEncryptedChatMessage, MaxChatMessage)
	}
	if MaxOutboundEnvelope <= MaxEncryptedChatMessage {
		t.Errorf("MaxOutboundEnvelope (%d) should be > MaxEncryptedChatMessage (%d)",
			MaxOutboundEnvelope, MaxEncryptedChatMessage)
	}
	if MaxInboundEnvelope <= MaxQDNResource {
		t.Errorf("MaxInboundEnvelope (%d) should be > MaxQDNResource (%d)",
			MaxInboundEnvelope, MaxQDNResource)
	}
}

// TestValidateMessageSize tests the generic message size validation function
func TestValidateMessageSize(t *testing.T) {
	tests := []struct {
		name    string
		message []byte
		maxSize int
		wantErr error
	}{
		{name: "empty message", message: []byte{}, maxSize: 100, wantErr: ErrMessageEmpty},
		{name: "valid message within limit", message: make([]byte, 50), maxSize: 100},
		{name: "message at exact limit", message: make([]byte, 100), maxSize: 100},
		{name: "message exceeds limit", message: make([]byte, 101), maxSize: 100, wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageSize(tt.message, tt.maxSize)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessageSize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// BenchmarkValidateChatMessage benchmarks chat validation performance
func BenchmarkValidateChatMessage(b *testing.B) {
	message := make([]byte, MaxChatMessage)
	rand.Read(message)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateChatMessage(message)
	}
}
