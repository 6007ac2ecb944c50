package transaction

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/opd-ai/qbridge/crypto"
)

const (
	referenceSize = 64
	maxStringSize = 4000
)

// builder appends big-endian fields. The first error sticks.
type builder struct {
	buf []byte
	err error
}

func (b *builder) int8(v int8)   { b.buf = append(b.buf, byte(v)) }
func (b *builder) bool(v bool)   { b.buf = append(b.buf, boolByte(v)) }
func (b *builder) int32(v int32) { b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(v)) }
func (b *builder) int64(v int64) { b.buf = binary.BigEndian.AppendUint64(b.buf, uint64(v)) }
func (b *builder) raw(v []byte)  { b.buf = append(b.buf, v...) }

func (b *builder) string(field, s string) {
	if len(s) > maxStringSize {
		b.fail(fmt.Errorf("%s exceeds %d bytes", field, maxStringSize))
		return
	}
	b.int32(int32(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *builder) bytes(field string, v []byte) {
	if len(v) > maxStringSize {
		b.fail(fmt.Errorf("%s exceeds %d bytes", field, maxStringSize))
		return
	}
	b.int32(int32(len(v)))
	b.buf = append(b.buf, v...)
}

func (b *builder) address(field, addr string) {
	if !crypto.IsValidAddress(addr) {
		b.fail(fmt.Errorf("invalid %s address %q", field, addr))
		return
	}
	raw, _ := base58.Decode(addr)
	b.buf = append(b.buf, raw...)
}

func (b *builder) amount(field string, v int64) {
	if v <= 0 {
		b.fail(fmt.Errorf("%s must be positive", field))
		return
	}
	b.int64(v)
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func (p PaymentParams) appendBody(b *builder) error {
	b.address("recipient", p.Recipient)
	b.amount("amount", p.Amount)
	return b.err
}

func (p RegisterNameParams) appendBody(b *builder) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	b.string("name", p.Name)
	b.string("data", p.Data)
	return b.err
}

func (p UpdateNameParams) appendBody(b *builder) error {
	b.string("name", p.Name)
	b.string("newName", p.NewName)
	b.string("newData", p.NewData)
	return b.err
}

func (p SellNameParams) appendBody(b *builder) error {
	b.string("name", p.Name)
	b.amount("amount", p.Amount)
	return b.err
}

func (p CancelSellNameParams) appendBody(b *builder) error {
	b.string("name", p.Name)
	return b.err
}

func (p BuyNameParams) appendBody(b *builder) error {
	b.string("name", p.Name)
	b.amount("amount", p.Amount)
	b.address("seller", p.Seller)
	return b.err
}

func (p CreatePollParams) appendBody(b *builder) error {
	if len(p.Options) == 0 {
		return fmt.Errorf("poll needs at least one option")
	}
	b.address("owner", p.Owner)
	b.string("pollName", p.PollName)
	b.string("description", p.Description)
	b.int32(int32(len(p.Options)))
	for _, o := range p.Options {
		b.string("option", o)
	}
	return b.err
}

func (p VoteOnPollParams) appendBody(b *builder) error {
	if p.OptionIndex < 0 {
		return fmt.Errorf("option index must not be negative")
	}
	b.string("pollName", p.PollName)
	b.int32(p.OptionIndex)
	return b.err
}

func (p TransferAssetParams) appendBody(b *builder) error {
	b.address("recipient", p.Recipient)
	b.int64(p.AssetID)
	b.amount("amount", p.Amount)
	return b.err
}

func (p ChatParams) appendBody(b *builder) error {
	b.int32(p.Nonce)
	b.bool(p.Recipient != "")
	if p.Recipient != "" {
		b.address("recipient", p.Recipient)
	}
	b.bool(p.ChatReference != "")
	if p.ChatReference != "" {
		ref, err := decodeReference(p.ChatReference)
		if err != nil {
			return fmt.Errorf("chatReference: %w", err)
		}
		b.raw(ref)
	}
	b.bytes("data", p.Data)
	b.bool(p.IsEncrypted)
	b.bool(p.IsText)
	return b.err
}

func (p CreateGroupParams) appendBody(b *builder) error {
	b.string("groupName", p.GroupName)
	b.string("description", p.Description)
	b.bool(p.IsOpen)
	b.int8(p.ApprovalThreshold)
	b.int32(p.MinBlockDelay)
	b.int32(p.MaxBlockDelay)
	return b.err
}

func (p UpdateGroupParams) appendBody(b *builder) error {
	b.int32(p.GroupID)
	b.address("newOwner", p.NewOwner)
	b.string("newDescription", p.NewDescription)
	b.bool(p.NewIsOpen)
	b.int8(p.ApprovalThreshold)
	b.int32(p.MinBlockDelay)
	b.int32(p.MaxBlockDelay)
	return b.err
}

func (p GroupMemberParams) appendBody(b *builder) error {
	switch p.Kind {
	case AddGroupAdmin, RemoveGroupAdmin, CancelGroupBan, CancelGroupInvite, GroupKick:
	default:
		return fmt.Errorf("%s is not a group member transaction", p.Kind)
	}
	b.int32(p.GroupID)
	b.address("member", p.Member)
	if p.Kind == GroupKick {
		b.string("reason", p.Reason)
	}
	return b.err
}

func (p GroupBanParams) appendBody(b *builder) error {
	b.int32(p.GroupID)
	b.address("offender", p.Offender)
	b.string("reason", p.Reason)
	b.int32(p.TimeToLive)
	return b.err
}

func (p GroupInviteParams) appendBody(b *builder) error {
	b.int32(p.GroupID)
	b.address("invitee", p.Invitee)
	b.int32(p.TimeToLive)
	return b.err
}

func (p GroupParams) appendBody(b *builder) error {
	if p.Kind != JoinGroup && p.Kind != LeaveGroup {
		return fmt.Errorf("%s is not a group transaction", p.Kind)
	}
	b.int32(p.GroupID)
	return b.err
}

func decodeReference(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != referenceSize {
		return nil, fmt.Errorf("expected %d bytes, got %d", referenceSize, len(raw))
	}
	return raw, nil
}
