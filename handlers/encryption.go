package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/limits"
)

type encryptPayload struct {
	Data64     string     `json:"data64"`
	Base64     string     `json:"base64"`
	PublicKeys stringList `json:"publicKeys"`
}

type decryptPayload struct {
	EncryptedData string `json:"encryptedData"`
	PublicKey     string `json:"publicKey"`
}

type groupDataPayload struct {
	Data64   string `json:"data64"`
	Base64   string `json:"base64"`
	GroupID  optInt `json:"groupId"`
	IsAdmins bool   `json:"isAdmins"`
}

type sharingKeyPayload struct {
	Data64        string `json:"data64"`
	Base64        string `json:"base64"`
	EncryptedData string `json:"encryptedData"`
	Key           string `json:"key"`
}

type aesgcmPayload struct {
	EncryptedData string `json:"encryptedData"`
	Key           string `json:"key"`
	IV            string `json:"iv"`
}

// SharedEncryption is the ENCRYPT_DATA_WITH_SHARING_KEY result.
type SharedEncryption struct {
	EncryptedData string `json:"encryptedData"`
	Key           string `json:"key"`
}

func decodeData(b64 string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: data is not valid base64", ErrInvalidPayload)
	}
	if err := limits.ValidateQDNResource(data); err != nil {
		return nil, err
	}
	return data, nil
}

// encryptData seals data for the listed public keys and the wallet itself.
func (s *Set) encryptData(_ context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p encryptPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b64 := firstNonEmpty(p.Data64, p.Base64)
	if err := requireFields(need("data64", b64 != "")); err != nil {
		return nil, err
	}
	data, err := decodeData(b64)
	if err != nil {
		return nil, err
	}

	recipients := make([][32]byte, 0, len(p.PublicKeys))
	for _, k := range p.PublicKeys {
		pub, err := crypto.PublicKeyFromBase58(k)
		if err != nil {
			return nil, fmt.Errorf("invalid public key %q: %w", k, err)
		}
		recipients = append(recipients, pub)
	}

	kp, err := s.wallet.KeyPair()
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)

	out, err := crypto.EncryptForRecipients(data, kp, recipients)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// decryptData opens a group envelope, or a direct message from publicKey.
func (s *Set) decryptData(_ context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p decryptPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("encryptedData", p.EncryptedData != "")); err != nil {
		return nil, err
	}
	data, err := decodeData(p.EncryptedData)
	if err != nil {
		return nil, err
	}

	kp, err := s.wallet.KeyPair()
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)

	var plain []byte
	switch {
	case crypto.IsGroupEnvelope(data):
		plain, err = crypto.DecryptEnvelope(data, kp)
	case p.PublicKey != "":
		var sender [32]byte
		sender, err = crypto.PublicKeyFromBase58(p.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid public key: %w", err)
		}
		plain, err = crypto.DecryptFromPeer(data, sender, kp)
	default:
		return nil, requireFields(need("publicKey", false))
	}
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(plain), nil
}

func (s *Set) groupKeys(ctx context.Context, groupID int64, admins bool) (crypto.SecretKeyObject, error) {
	if admins {
		return s.keys.AdminKey(ctx, groupID)
	}
	return s.keys.MemberKey(ctx, groupID)
}

func (s *Set) encryptGroupData(ctx context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p groupDataPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b64 := firstNonEmpty(p.Data64, p.Base64)
	if err := requireFields(need("data64", b64 != ""), need("groupId", p.GroupID.Set)); err != nil {
		return nil, err
	}
	data, err := decodeData(b64)
	if err != nil {
		return nil, err
	}

	keys, err := s.groupKeys(ctx, p.GroupID.Value, p.IsAdmins)
	if err != nil {
		return nil, fmt.Errorf("unable to get group key: %w", err)
	}
	out, err := keys.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// decryptGroupData decrypts with the cached key set. Ciphertext under a key
// newer than the cache forces one rebuild.
func (s *Set) decryptGroupData(ctx context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p groupDataPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b64 := firstNonEmpty(p.Data64, p.Base64)
	if err := requireFields(need("data64", b64 != ""), need("groupId", p.GroupID.Set)); err != nil {
		return nil, err
	}
	data, err := decodeData(b64)
	if err != nil {
		return nil, err
	}

	keys, err := s.groupKeys(ctx, p.GroupID.Value, p.IsAdmins)
	if err != nil {
		return nil, fmt.Errorf("unable to get group key: %w", err)
	}
	plain, err := keys.Decrypt(data)
	if errors.Is(err, crypto.ErrUnknownKeyNonce) {
		if keys, err = s.keys.Refresh(ctx, p.GroupID.Value, p.IsAdmins); err != nil {
			return nil, fmt.Errorf("unable to get group key: %w", err)
		}
		plain, err = keys.Decrypt(data)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(plain), nil
}

func (s *Set) encryptWithSharingKey(_ context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p sharingKeyPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b64 := firstNonEmpty(p.Data64, p.Base64)
	if err := requireFields(need("data64", b64 != "")); err != nil {
		return nil, err
	}
	data, err := decodeData(b64)
	if err != nil {
		return nil, err
	}

	var key [32]byte
	if p.Key != "" {
		if key, err = crypto.ParseSharingKey(p.Key); err != nil {
			return nil, err
		}
	} else if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(key[:])

	out, err := crypto.EncryptWithSharingKey(data, key)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}
	return SharedEncryption{
		EncryptedData: base64.StdEncoding.EncodeToString(out),
		Key:           base64.StdEncoding.EncodeToString(key[:]),
	}, nil
}

func (s *Set) decryptWithSharingKey(_ context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p sharingKeyPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("encryptedData", p.EncryptedData != ""), need("key", p.Key != "")); err != nil {
		return nil, err
	}
	data, err := decodeData(p.EncryptedData)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ParseSharingKey(p.Key)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(key[:])

	plain, err := crypto.DecryptWithSharingKey(data, key)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(plain), nil
}

func (s *Set) decryptAESGCM(_ context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p aesgcmPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(
		need("encryptedData", p.EncryptedData != ""),
		need("key", p.Key != ""),
		need("iv", p.IV != ""),
	); err != nil {
		return nil, err
	}
	plain, err := crypto.DecryptAESGCM(p.EncryptedData, p.Key, p.IV)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(plain), nil
}
