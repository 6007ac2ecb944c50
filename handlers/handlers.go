package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/groupkey"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/retry"
	"github.com/opd-ai/qbridge/transaction"
	"github.com/opd-ai/qbridge/wallet"
)

var (
	// ErrPublicNode is returned for operations a public gateway cannot serve.
	ErrPublicNode = errors.New("this action requires a local node")
	// ErrNoName is returned when an action needs the account's registered name.
	ErrNoName = errors.New("user has no Qortal name")
	// ErrInvalidPayload is returned when a payload is not a JSON object of the
	// expected shape.
	ErrInvalidPayload = errors.New("invalid request payload")
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Node    *node.Client
	Wallet  *wallet.Wallet
	Gate    *permission.Gate
	Keys    *groupkey.Cache
	Codec   *transaction.Codec
	Retrier *retry.Retrier
	// ATQueue bounds concurrent trade AT lookups. Nil uses a queue of
	// retry.ATLookupCapacity.
	ATQueue *retry.Queue
	// ReaderQueue serialises decoding of resource content. Nil uses a queue
	// of retry.FileReaderCapacity.
	ReaderQueue *retry.Queue
}

// Set is the handler set for every bridge.Action.
type Set struct {
	node    *node.Client
	wallet  *wallet.Wallet
	gate    *permission.Gate
	keys    *groupkey.Cache
	codec   *transaction.Codec
	retrier *retry.Retrier
	atQueue *retry.Queue
	reader  *retry.Queue
}

// New creates the handler set.
func New(d Deps) *Set {
	s := &Set{
		node:    d.Node,
		wallet:  d.Wallet,
		gate:    d.Gate,
		keys:    d.Keys,
		codec:   d.Codec,
		retrier: d.Retrier,
		atQueue: d.ATQueue,
		reader:  d.ReaderQueue,
	}
	if s.codec == nil {
		s.codec = transaction.NewCodec()
	}
	if s.retrier == nil {
		s.retrier = retry.Default()
	}
	if s.atQueue == nil {
		s.atQueue = retry.NewQueue("at-lookup", retry.ATLookupCapacity)
	}
	if s.reader == nil {
		s.reader = retry.NewQueue("resource-reader", retry.FileReaderCapacity)
	}
	return s
}

type handlerFunc func(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error)

// table binds every action to its handler.
func (s *Set) table() map[bridge.Action]handlerFunc {
	return map[bridge.Action]handlerFunc{
		bridge.ActionGetUserAccount:          s.getUserAccount,
		bridge.ActionIsUsingPublicNode:       s.isUsingPublicNode,
		bridge.ActionGetPrimaryName:          s.getPrimaryName,
		bridge.ActionGetUserWallet:           s.getUserWallet,
		bridge.ActionGetWalletBalance:        s.getWalletBalance,
		bridge.ActionGetCrosschainServerInfo: s.getCrosschainServerInfo,
		bridge.ActionGetTxActivitySummary:    s.getTxActivitySummary,

		bridge.ActionEncryptData:               s.encryptData,
		bridge.ActionDecryptData:               s.decryptData,
		bridge.ActionEncryptQortalGroupData:    s.encryptGroupData,
		bridge.ActionDecryptQortalGroupData:    s.decryptGroupData,
		bridge.ActionEncryptDataWithSharingKey: s.encryptWithSharingKey,
		bridge.ActionDecryptDataWithSharingKey: s.decryptWithSharingKey,
		bridge.ActionDecryptAESGCM:             s.decryptAESGCM,

		bridge.ActionGetListItems:   s.getListItems,
		bridge.ActionAddListItems:   s.addListItems,
		bridge.ActionDeleteListItem: s.deleteListItem,

		bridge.ActionPublishQDNResource:          s.publishQDNResource,
		bridge.ActionPublishMultipleQDNResources: s.publishMultipleQDNResources,
		bridge.ActionGetHostedData:               s.getHostedData,
		bridge.ActionDeleteHostedData:            s.deleteHostedData,

		bridge.ActionCreatePoll:      s.createPoll,
		bridge.ActionVoteOnPoll:      s.voteOnPoll,
		bridge.ActionSendChatMessage: s.sendChatMessage,

		bridge.ActionCreateGroup:       s.createGroup,
		bridge.ActionUpdateGroup:       s.updateGroup,
		bridge.ActionJoinGroup:         s.joinGroup,
		bridge.ActionLeaveGroup:        s.leaveGroup,
		bridge.ActionInviteToGroup:     s.inviteToGroup,
		bridge.ActionCancelGroupInvite: s.cancelGroupInvite,
		bridge.ActionKickFromGroup:     s.kickFromGroup,
		bridge.ActionBanFromGroup:      s.banFromGroup,
		bridge.ActionCancelGroupBan:    s.cancelGroupBan,
		bridge.ActionAddGroupAdmin:     s.addGroupAdmin,
		bridge.ActionRemoveGroupAdmin:  s.removeGroupAdmin,

		bridge.ActionRegisterName:   s.registerName,
		bridge.ActionUpdateName:     s.updateName,
		bridge.ActionSellName:       s.sellName,
		bridge.ActionCancelSellName: s.cancelSellName,
		bridge.ActionBuyName:        s.buyName,

		bridge.ActionSendCoin:             s.sendCoin,
		bridge.ActionCreateTradeBuyOrder:  s.createTradeBuyOrder,
		bridge.ActionCreateTradeSellOrder: s.createTradeSellOrder,
		bridge.ActionCancelTradeSellOrder: s.cancelTradeSellOrder,
		bridge.ActionSignTransaction:      s.signTransaction,
		bridge.ActionTransferAsset:        s.transferAsset,
		bridge.ActionAdminAction:          s.adminAction,
	}
}

// Register binds every handler in the set to r.
func (s *Set) Register(r *bridge.Registry) error {
	for action, fn := range s.table() {
		if err := r.Register(action, bridge.HandlerFunc(fn)); err != nil {
			return err
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "Register",
		"actions":  len(s.table()),
	}).Debug("Registered handlers")
	return nil
}

// decode unmarshals payload into v. An absent payload decodes as {}.
func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// field is one required payload field and whether the request supplied it.
type field struct {
	name    string
	present bool
}

func need(name string, present bool) field { return field{name: name, present: present} }

// requireFields returns "Missing fields: a, b" naming every absent field.
func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("Missing fields: %s", strings.Join(missing, ", "))
}

// requireLocalNode fails with ErrPublicNode when the node is a public gateway.
func (s *Set) requireLocalNode(what string) error {
	if s.node.IsPublic() {
		return fmt.Errorf("%w: %s is not available on a public node", ErrPublicNode, what)
	}
	return nil
}

// confirm shows prompt with no remembered approval.
func (s *Set) confirm(ctx context.Context, rc *bridge.RequestContext, prompt permission.Prompt) error {
	_, err := s.gate.Authorize(ctx, "", prompt, rc.IsFromExtension)
	return err
}

// primaryName returns the account's first registered name and caches it in
// the wallet record.
func (s *Set) primaryName(ctx context.Context) (string, error) {
	name, err := s.node.PrimaryName(ctx, s.wallet.Address())
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrNoName
	}
	if name != s.wallet.Name() {
		if err := s.wallet.SetName(ctx, name); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "primaryName",
				"error":    err.Error(),
			}).Warn("Failed to cache primary name")
		}
	}
	return name, nil
}
