package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/limits"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
)

// ErrRecipientNoPublicKey is returned for direct messages to an address that
// has never published its public key.
var ErrRecipientNoPublicKey = errors.New("Cannot send an encrypted message to this user since they do not have their publickey on chain.")

type chatPayload struct {
	Message            string `json:"message"`
	DestinationAddress string `json:"destinationAddress"`
	GroupID            optInt `json:"groupId"`
	ChatReference      string `json:"chatReference"`
}

// chatPlan is everything gathered before the prompt.
type chatPlan struct {
	recipient   string
	recipientPK [32]byte
	groupID     int32
	groupName   string
	groupKeys   crypto.SecretKeyObject
}

func (s *Set) sendChatMessage(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p chatPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(
		need("message", p.Message != ""),
		need("destinationAddress or groupId", p.DestinationAddress != "" || p.GroupID.Set),
	); err != nil {
		return nil, err
	}
	if err := limits.ValidateChatMessage([]byte(p.Message)); err != nil {
		return nil, err
	}

	var (
		plan chatPlan
		err  error
	)
	if p.DestinationAddress != "" {
		plan, err = s.planDirectChat(ctx, p.DestinationAddress)
	} else {
		plan, err = s.planGroupChat(ctx, p.GroupID)
	}
	if err != nil {
		return nil, err
	}

	to := plan.recipient
	if to == "" {
		to = "group " + plan.groupName
	}
	_, err = s.gate.Authorize(ctx, permission.SendChatKey(rc.AppName()), permission.Prompt{
		Text1:           "Do you give this application permission to send this chat message?",
		Text2:           "To: " + to,
		HighlightedText: p.Message,
		Checkbox1:       &permission.Checkbox{Label: "Always allow chat messages from this app"},
	}, rc.IsFromExtension)
	if err != nil {
		return nil, err
	}

	data, encrypted, err := s.sealChat([]byte(p.Message), plan)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.ChatParams{
		Recipient:     plan.recipient,
		Data:          data,
		ChatReference: p.ChatReference,
		IsEncrypted:   encrypted,
		IsText:        true,
	}, 0, plan.groupID)
}

func (s *Set) planDirectChat(ctx context.Context, destination string) (chatPlan, error) {
	address, err := s.resolveAddress(ctx, destination)
	if err != nil {
		return chatPlan{}, err
	}
	pub58, err := s.node.PublicKey(ctx, address)
	if errors.Is(err, node.ErrNoPublicKey) {
		return chatPlan{}, ErrRecipientNoPublicKey
	}
	if err != nil {
		return chatPlan{}, fmt.Errorf("failed to fetch recipient public key: %w", err)
	}
	pub, err := crypto.PublicKeyFromBase58(pub58)
	if err != nil {
		return chatPlan{}, ErrRecipientNoPublicKey
	}
	return chatPlan{recipient: address, recipientPK: pub}, nil
}

// planGroupChat encrypts for closed groups with the member key. Open groups
// chat in the clear.
func (s *Set) planGroupChat(ctx context.Context, id optInt) (chatPlan, error) {
	groupID, err := id.int32("groupId")
	if err != nil {
		return chatPlan{}, err
	}
	group, err := s.node.Group(ctx, id.Value)
	if err != nil {
		return chatPlan{}, fmt.Errorf("group %d not found: %w", id.Value, err)
	}
	plan := chatPlan{groupID: groupID, groupName: group.GroupName}
	if !group.IsOpen {
		if plan.groupKeys, err = s.keys.MemberKey(ctx, id.Value); err != nil {
			return chatPlan{}, fmt.Errorf("unable to get group key: %w", err)
		}
	}
	return plan, nil
}

func (s *Set) sealChat(msg []byte, plan chatPlan) ([]byte, bool, error) {
	switch {
	case plan.recipient != "":
		kp, err := s.wallet.KeyPair()
		if err != nil {
			return nil, false, err
		}
		defer crypto.WipeKeyPair(kp)
		out, err := crypto.EncryptForPeer(msg, plan.recipientPK, kp)
		if err != nil {
			return nil, false, fmt.Errorf("encryption failed: %w", err)
		}
		if err := limits.ValidateEncryptedChatMessage(out); err != nil {
			return nil, false, err
		}
		return out, true, nil
	case plan.groupKeys != nil:
		out, err := plan.groupKeys.Encrypt(msg)
		if err != nil {
			return nil, false, fmt.Errorf("encryption failed: %w", err)
		}
		return out, true, nil
	default:
		return msg, false, nil
	}
}
