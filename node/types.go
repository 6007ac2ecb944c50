package node

import "encoding/json"

// AccountInfo is the node's view of an address.
type AccountInfo struct {
	Address        string `json:"address"`
	Reference      string `json:"reference"`
	PublicKey      string `json:"publicKey"`
	DefaultGroupID int64  `json:"defaultGroupId"`
	Flags          int    `json:"flags"`
	Level          int    `json:"level"`
	BlocksMinted   int64  `json:"blocksMinted"`
}

// NameInfo describes a registered name.
type NameInfo struct {
	Name        string `json:"name"`
	ReducedName string `json:"reducedName,omitempty"`
	Owner       string `json:"owner"`
	Data        string `json:"data"`
	Registered  int64  `json:"registered"`
	Updated     int64  `json:"updated,omitempty"`
	IsForSale   bool   `json:"isForSale"`
	SalePrice   string `json:"salePrice,omitempty"`
}

// GroupInfo describes a group.
type GroupInfo struct {
	GroupID           int64  `json:"groupId"`
	Owner             string `json:"owner"`
	GroupName         string `json:"groupName"`
	Description       string `json:"description"`
	Created           int64  `json:"created"`
	IsOpen            bool   `json:"isOpen"`
	ApprovalThreshold string `json:"approvalThreshold"`
	MinimumBlockDelay int    `json:"minimumBlockDelay"`
	MaximumBlockDelay int    `json:"maximumBlockDelay"`
	MemberCount       int    `json:"memberCount"`
}

// GroupMember is one entry of a group member listing.
type GroupMember struct {
	Member  string `json:"member"`
	Joined  int64  `json:"joined,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

// GroupMembers is the node's group member listing.
type GroupMembers struct {
	MemberCount int           `json:"memberCount"`
	AdminCount  int           `json:"adminCount"`
	Members     []GroupMember `json:"members"`
}

// PollOption is one choice in a poll.
type PollOption struct {
	OptionName string `json:"optionName"`
}

// PollInfo describes an on-chain poll.
type PollInfo struct {
	Type        string       `json:"type,omitempty"`
	Owner       string       `json:"owner"`
	PollName    string       `json:"pollName"`
	Description string       `json:"description"`
	PollOptions []PollOption `json:"pollOptions"`
	Published   int64        `json:"published"`
}

// Resource is a QDN resource as returned by search.
type Resource struct {
	Name       string          `json:"name"`
	Service    string          `json:"service"`
	Identifier string          `json:"identifier"`
	Size       int64           `json:"size,omitempty"`
	Created    int64           `json:"created"`
	Updated    int64           `json:"updated,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// LatestTimestamp returns Updated, falling back to Created.
func (r Resource) LatestTimestamp() int64 {
	if r.Updated != 0 {
		return r.Updated
	}
	return r.Created
}

// ResourceSearch selects resources for SearchResources.
type ResourceSearch struct {
	Service    string
	Identifier string
	Names      []string
	Prefix     bool
	ExactNames bool
	Limit      int
	Offset     int
	Reverse    bool
}

// PublishRequest is the input to BuildArbitrary.
type PublishRequest struct {
	Service     string
	Name        string
	Identifier  string
	Base64Data  string
	Title       string
	Description string
	Category    string
	Tags        []string
	Filename    string
	Fee         int64
}

// TradeSummary is the node's description of a cross-chain trade AT.
type TradeSummary struct {
	QortalATAddress       string `json:"qortalAtAddress"`
	QortalCreator         string `json:"qortalCreator"`
	CreatorTradeAddress   string `json:"qortalCreatorTradeAddress"`
	QortAmount            string `json:"qortAmount"`
	ForeignBlockchain     string `json:"foreignBlockchain"`
	ExpectedForeignAmount string `json:"expectedForeignAmount"`
	Mode                  string `json:"mode"`
	CreationTimestamp     int64  `json:"creationTimestamp"`
}

// ServerInfo describes one electrum-style server for a foreign chain.
type ServerInfo struct {
	Hostname       string `json:"hostName"`
	Port           int    `json:"port"`
	ConnectionType string `json:"connectionType"`
	IsCurrent      bool   `json:"isCurrent"`
}

// ServerInfos is the node's view of a foreign chain's servers.
type ServerInfos struct {
	Servers          []ServerInfo `json:"servers"`
	RemainingServers []ServerInfo `json:"remainingServers"`
	UselessServers   []ServerInfo `json:"uselessServers"`
}

// TransactionSummary is a confirmed transaction as listed by search.
type TransactionSummary struct {
	Type           string `json:"type"`
	Timestamp      int64  `json:"timestamp"`
	Reference      string `json:"reference"`
	Fee            string `json:"fee"`
	Signature      string `json:"signature"`
	CreatorAddress string `json:"creatorAddress,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	Amount         string `json:"amount,omitempty"`
	BlockHeight    int64  `json:"blockHeight,omitempty"`
	ApprovalStatus string `json:"approvalStatus,omitempty"`
}
