package transaction

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/crypto"
)

// Header carries the fields common to every transaction.
type Header struct {
	// Timestamp in milliseconds; zero means now.
	Timestamp int64
	// Reference is the base58 signature of the creator's previous
	// transaction. Empty means a random reference (first transaction).
	Reference string
	Fee       int64
	GroupID   int32
}

// Signed is a signed, wire-ready transaction.
type Signed struct {
	Type      Type
	Bytes     []byte
	Signature crypto.Signature
}

// Base58 returns the form accepted by /transactions/process.
func (s *Signed) Base58() string { return base58.Encode(s.Bytes) }

// SignatureBase58 returns the transaction's signature as the node reports it.
func (s *Signed) SignatureBase58() string { return base58.Encode(s.Signature[:]) }

// Codec turns typed parameter records into signed transaction bytes.
type Codec struct {
	chatDifficulty int
	now            func() time.Time
}

// NewCodec creates a codec mining chat nonces at DefaultChatDifficulty.
func NewCodec() *Codec {
	return &Codec{chatDifficulty: DefaultChatDifficulty, now: time.Now}
}

// SetChatDifficulty overrides the chat proof-of-work difficulty (primarily for testing).
func (c *Codec) SetChatDifficulty(bits int) { c.chatDifficulty = bits }

// Unsigned encodes a transaction without its signature.
func (c *Codec) Unsigned(h Header, p Params, creator [32]byte) ([]byte, error) {
	ts := h.Timestamp
	if ts == 0 {
		ts = c.now().UnixMilli()
	}
	ref, err := reference(h.Reference)
	if err != nil {
		return nil, err
	}
	if h.Fee < 0 {
		return nil, fmt.Errorf("fee must not be negative")
	}

	b := &builder{buf: make([]byte, 0, 256)}
	b.int32(int32(p.Type()))
	b.int64(ts)
	b.int32(h.GroupID)
	b.raw(ref)
	b.raw(creator[:])
	if err := p.appendBody(b); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Type(), err)
	}
	b.int64(h.Fee)
	return b.buf, nil
}

// Sign builds and signs a transaction. Chat transactions have their
// proof-of-work nonce mined first, which honours ctx.
func (c *Codec) Sign(ctx context.Context, h Header, p Params, kp *crypto.KeyPair) (*Signed, error) {
	if h.Timestamp == 0 {
		h.Timestamp = c.now().UnixMilli()
	}
	if h.Reference == "" {
		var ref [referenceSize]byte
		if _, err := rand.Read(ref[:]); err != nil {
			return nil, err
		}
		h.Reference = base58.Encode(ref[:])
	}

	if chat, ok := p.(ChatParams); ok {
		chat.Nonce = 0
		unsigned, err := c.Unsigned(h, chat, kp.Public)
		if err != nil {
			return nil, err
		}
		nonce, err := ComputeNonce(ctx, unsigned, c.chatDifficulty)
		if err != nil {
			return nil, err
		}
		chat.Nonce = nonce
		p = chat
	}

	unsigned, err := c.Unsigned(h, p, kp.Public)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(unsigned, kp)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", p.Type(), err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Sign",
		"type":     p.Type().String(),
		"size":     len(unsigned) + len(sig),
	}).Debug("Signed transaction")

	return &Signed{Type: p.Type(), Bytes: append(unsigned, sig[:]...), Signature: sig}, nil
}

// SignRaw signs an unsigned transaction assembled by the node (arbitrary
// publishes, trade bot offers) and returns the signed base58 form.
func (c *Codec) SignRaw(unsigned58 string, kp *crypto.KeyPair) (string, error) {
	raw, err := base58.Decode(unsigned58)
	if err != nil {
		return "", fmt.Errorf("invalid unsigned transaction: %w", err)
	}
	if len(raw) < 4+8+4+referenceSize+32 {
		return "", fmt.Errorf("unsigned transaction too short: %d bytes", len(raw))
	}
	sig, err := crypto.Sign(raw, kp)
	if err != nil {
		return "", err
	}
	return base58.Encode(append(raw, sig[:]...)), nil
}

// Verify checks the trailing signature of signed bytes against creator.
func Verify(signed []byte, creator [32]byte) bool {
	if len(signed) <= crypto.SignatureSize {
		return false
	}
	var sig crypto.Signature
	body := signed[:len(signed)-crypto.SignatureSize]
	copy(sig[:], signed[len(signed)-crypto.SignatureSize:])
	ok, err := crypto.Verify(body, sig, creator)
	return err == nil && ok
}

func reference(s string) ([]byte, error) {
	if s == "" {
		ref := make([]byte, referenceSize)
		_, err := rand.Read(ref)
		return ref, err
	}
	ref, err := decodeReference(s)
	if err != nil {
		return nil, fmt.Errorf("invalid reference: %w", err)
	}
	return ref, nil
}
