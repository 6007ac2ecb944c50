package transaction

import "fmt"

// Type is the numeric tag of a transaction kind.
type Type int32

// Transaction type tags.
const (
	Payment           Type = 2
	RegisterName      Type = 3
	UpdateName        Type = 4
	SellName          Type = 5
	CancelSellName    Type = 6
	BuyName           Type = 7
	CreatePoll        Type = 8
	VoteOnPoll        Type = 9
	Arbitrary         Type = 10
	TransferAsset     Type = 12
	Chat              Type = 18
	CreateGroup       Type = 22
	UpdateGroup       Type = 23
	AddGroupAdmin     Type = 24
	RemoveGroupAdmin  Type = 25
	GroupBan          Type = 26
	CancelGroupBan    Type = 27
	GroupKick         Type = 28
	GroupInvite       Type = 29
	CancelGroupInvite Type = 30
	JoinGroup         Type = 31
	LeaveGroup        Type = 32
)

var typeNames = map[Type]string{
	Payment:           "PAYMENT",
	RegisterName:      "REGISTER_NAME",
	UpdateName:        "UPDATE_NAME",
	SellName:          "SELL_NAME",
	CancelSellName:    "CANCEL_SELL_NAME",
	BuyName:           "BUY_NAME",
	CreatePoll:        "CREATE_POLL",
	VoteOnPoll:        "VOTE_ON_POLL",
	Arbitrary:         "ARBITRARY",
	TransferAsset:     "TRANSFER_ASSET",
	Chat:              "CHAT",
	CreateGroup:       "CREATE_GROUP",
	UpdateGroup:       "UPDATE_GROUP",
	AddGroupAdmin:     "ADD_GROUP_ADMIN",
	RemoveGroupAdmin:  "REMOVE_GROUP_ADMIN",
	GroupBan:          "GROUP_BAN",
	CancelGroupBan:    "CANCEL_GROUP_BAN",
	GroupKick:         "GROUP_KICK",
	GroupInvite:       "GROUP_INVITE",
	CancelGroupInvite: "CANCEL_GROUP_INVITE",
	JoinGroup:         "JOIN_GROUP",
	LeaveGroup:        "LEAVE_GROUP",
}

// String returns the node's name for the type, as used by /transactions/unitfee.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%d", int32(t))
}

// Params is a typed parameter record for one transaction kind.
type Params interface {
	Type() Type
	appendBody(b *builder) error
}

// PaymentParams sends QORT.
type PaymentParams struct {
	Recipient string
	Amount    int64
}

// RegisterNameParams registers a new name.
type RegisterNameParams struct {
	Name string
	Data string
}

// UpdateNameParams renames a name or changes its data.
type UpdateNameParams struct {
	Name    string
	NewName string
	NewData string
}

// SellNameParams lists a name for sale.
type SellNameParams struct {
	Name   string
	Amount int64
}

// CancelSellNameParams withdraws a name from sale.
type CancelSellNameParams struct {
	Name string
}

// BuyNameParams buys a name listed for sale.
type BuyNameParams struct {
	Name   string
	Amount int64
	Seller string
}

// CreatePollParams creates a poll.
type CreatePollParams struct {
	Owner       string
	PollName    string
	Description string
	Options     []string
}

// VoteOnPollParams votes for one option of a poll.
type VoteOnPollParams struct {
	PollName    string
	OptionIndex int32
}

// TransferAssetParams sends an amount of an asset.
type TransferAssetParams struct {
	Recipient string
	AssetID   int64
	Amount    int64
}

// ChatParams is a chat message. Recipient is empty for group messages. Nonce
// is filled in by proof-of-work.
type ChatParams struct {
	Recipient     string
	Data          []byte
	ChatReference string
	IsEncrypted   bool
	IsText        bool
	Nonce         int32
}

// CreateGroupParams creates a group.
type CreateGroupParams struct {
	GroupName         string
	Description       string
	IsOpen            bool
	ApprovalThreshold int8
	MinBlockDelay     int32
	MaxBlockDelay     int32
}

// UpdateGroupParams changes a group's owner or settings.
type UpdateGroupParams struct {
	GroupID           int32
	NewOwner          string
	NewDescription    string
	NewIsOpen         bool
	ApprovalThreshold int8
	MinBlockDelay     int32
	MaxBlockDelay     int32
}

// GroupMemberParams names a group and one member. It backs the admin,
// kick and invite-cancel kinds through Kind.
type GroupMemberParams struct {
	Kind    Type
	GroupID int32
	Member  string
	Reason  string
}

// GroupBanParams bans a member for TimeToLive seconds (0 is forever).
type GroupBanParams struct {
	GroupID    int32
	Offender   string
	Reason     string
	TimeToLive int32
}

// GroupInviteParams invites an address for TimeToLive seconds (0 is forever).
type GroupInviteParams struct {
	GroupID    int32
	Invitee    string
	TimeToLive int32
}

// GroupParams names only a group (join, leave).
type GroupParams struct {
	Kind    Type
	GroupID int32
}

func (PaymentParams) Type() Type        { return Payment }
func (RegisterNameParams) Type() Type   { return RegisterName }
func (UpdateNameParams) Type() Type     { return UpdateName }
func (SellNameParams) Type() Type       { return SellName }
func (CancelSellNameParams) Type() Type { return CancelSellName }
func (BuyNameParams) Type() Type        { return BuyName }
func (CreatePollParams) Type() Type     { return CreatePoll }
func (VoteOnPollParams) Type() Type     { return VoteOnPoll }
func (TransferAssetParams) Type() Type  { return TransferAsset }
func (ChatParams) Type() Type           { return Chat }
func (CreateGroupParams) Type() Type    { return CreateGroup }
func (UpdateGroupParams) Type() Type    { return UpdateGroup }
func (p GroupMemberParams) Type() Type  { return p.Kind }
func (GroupBanParams) Type() Type       { return GroupBan }
func (GroupInviteParams) Type() Type    { return GroupInvite }
func (p GroupParams) Type() Type        { return p.Kind }
