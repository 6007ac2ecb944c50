package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
)

// Block delay defaults for new groups.
const (
	defaultMinBlockDelay = 5
	defaultMaxBlockDelay = 21600
)

// approvalThresholds maps the node's threshold names to their encoding.
var approvalThresholds = map[string]int8{
	"NONE": 0, "ONE": 1, "PCT20": 2, "PCT40": 3, "PCT60": 4, "PCT80": 5, "PCT100": 6,
}

type groupPayload struct {
	GroupID           optInt `json:"groupId"`
	GroupName         string `json:"groupName"`
	Description       string `json:"description"`
	Type              optInt `json:"type"`
	ApprovalThreshold optInt `json:"approvalThreshold"`
	MinBlock          optInt `json:"minBlock"`
	MaxBlock          optInt `json:"maxBlock"`
	NewOwner          string `json:"newOwner"`
	QortalAddress     string `json:"qortalAddress"`
	InviteeAddress    string `json:"inviteeAddress"`
	InviteTime        optInt `json:"inviteTime"`
	Reason            string `json:"reason"`
	BanTime           optInt `json:"banTime"`
}

// resolveAddress accepts an address or a registered name.
func (s *Set) resolveAddress(ctx context.Context, v string) (string, error) {
	v = strings.TrimSpace(v)
	if crypto.IsValidAddress(v) {
		return v, nil
	}
	info, err := s.node.Name(ctx, v)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid address or registered name: %w", v, err)
	}
	return info.Owner, nil
}

// lookupGroup fetches the group named by id for display and validation.
func (s *Set) lookupGroup(ctx context.Context, id optInt) (int32, *node.GroupInfo, error) {
	groupID, err := id.int32("groupId")
	if err != nil {
		return 0, nil, err
	}
	group, err := s.node.Group(ctx, id.Value)
	if err != nil {
		return 0, nil, fmt.Errorf("group %d not found: %w", id.Value, err)
	}
	return groupID, group, nil
}

func int8Field(o optInt, name string, def int8) (int8, error) {
	if !o.Set {
		return def, nil
	}
	if o.Value < 0 || o.Value > 127 {
		return 0, fmt.Errorf("%s out of range: %d", name, o.Value)
	}
	return int8(o.Value), nil
}

func int32Field(o optInt, name string, def int32) (int32, error) {
	if !o.Set {
		return def, nil
	}
	return o.int32(name)
}

func (s *Set) createGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p groupPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("groupName", p.GroupName != ""), need("type", p.Type.Set)); err != nil {
		return nil, err
	}
	threshold, err := int8Field(p.ApprovalThreshold, "approvalThreshold", 0)
	if err != nil {
		return nil, err
	}
	minBlock, err := int32Field(p.MinBlock, "minBlock", defaultMinBlockDelay)
	if err != nil {
		return nil, err
	}
	maxBlock, err := int32Field(p.MaxBlock, "maxBlock", defaultMaxBlockDelay)
	if err != nil {
		return nil, err
	}

	fee, err := s.fee(ctx, transaction.CreateGroup)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "You are requesting the creation of the group below:",
		HighlightedText: p.GroupName,
		Text2:           p.Description,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}

	return s.submit(ctx, transaction.CreateGroupParams{
		GroupName:         p.GroupName,
		Description:       p.Description,
		IsOpen:            p.Type.Value == 1,
		ApprovalThreshold: threshold,
		MinBlockDelay:     minBlock,
		MaxBlockDelay:     maxBlock,
	}, fee, 0)
}

// updateGroup changes the fields the payload names and keeps the rest.
func (s *Set) updateGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p groupPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("groupId", p.GroupID.Set)); err != nil {
		return nil, err
	}
	groupID, group, err := s.lookupGroup(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}

	owner := group.Owner
	if p.NewOwner != "" {
		if owner, err = s.resolveAddress(ctx, p.NewOwner); err != nil {
			return nil, err
		}
	}
	isOpen := group.IsOpen
	if p.Type.Set {
		isOpen = p.Type.Value == 1
	}
	threshold, err := int8Field(p.ApprovalThreshold, "approvalThreshold", approvalThresholds[group.ApprovalThreshold])
	if err != nil {
		return nil, err
	}
	minBlock, err := int32Field(p.MinBlock, "minBlock", int32(group.MinimumBlockDelay))
	if err != nil {
		return nil, err
	}
	maxBlock, err := int32Field(p.MaxBlock, "maxBlock", int32(group.MaximumBlockDelay))
	if err != nil {
		return nil, err
	}

	fee, err := s.fee(ctx, transaction.UpdateGroup)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "You are requesting to update the group below:",
		HighlightedText: group.GroupName,
		Text2:           "owner: " + owner,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}

	return s.submit(ctx, transaction.UpdateGroupParams{
		GroupID:           groupID,
		NewOwner:          owner,
		NewDescription:    firstNonEmpty(p.Description, group.Description),
		NewIsOpen:         isOpen,
		ApprovalThreshold: threshold,
		MinBlockDelay:     minBlock,
		MaxBlockDelay:     maxBlock,
	}, fee, 0)
}

// membership builds the join and leave handlers.
func (s *Set) membership(kind transaction.Type, text string) handlerFunc {
	return func(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
		var p groupPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if err := requireFields(need("groupId", p.GroupID.Set)); err != nil {
			return nil, err
		}
		groupID, group, err := s.lookupGroup(ctx, p.GroupID)
		if err != nil {
			return nil, err
		}

		fee, err := s.fee(ctx, kind)
		if err != nil {
			return nil, err
		}
		if err := s.confirm(ctx, rc, permission.Prompt{
			Text1:           text,
			HighlightedText: fmt.Sprintf("%s (%d)", group.GroupName, group.GroupID),
			Fee:             transaction.FormatAmount(fee),
		}); err != nil {
			return nil, err
		}
		return s.submit(ctx, transaction.GroupParams{Kind: kind, GroupID: groupID}, fee, 0)
	}
}

func (s *Set) joinGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.membership(transaction.JoinGroup, "Confirm joining the group:")(ctx, payload, rc)
}

func (s *Set) leaveGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.membership(transaction.LeaveGroup, "You are requesting to leave the group:")(ctx, payload, rc)
}

// memberTarget validates a group plus member payload and resolves both.
func (s *Set) memberTarget(ctx context.Context, p groupPayload, memberField, member string) (int32, *node.GroupInfo, string, error) {
	if err := requireFields(need("groupId", p.GroupID.Set), need(memberField, member != "")); err != nil {
		return 0, nil, "", err
	}
	groupID, group, err := s.lookupGroup(ctx, p.GroupID)
	if err != nil {
		return 0, nil, "", err
	}
	address, err := s.resolveAddress(ctx, member)
	if err != nil {
		return 0, nil, "", err
	}
	return groupID, group, address, nil
}

// memberAction builds the handlers that name a group and one member.
func (s *Set) memberAction(kind transaction.Type, text string) handlerFunc {
	return func(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
		var p groupPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		groupID, group, member, err := s.memberTarget(ctx, p, "qortalAddress", p.QortalAddress)
		if err != nil {
			return nil, err
		}

		fee, err := s.fee(ctx, kind)
		if err != nil {
			return nil, err
		}
		prompt := permission.Prompt{
			Text1:           text,
			HighlightedText: member,
			Text2:           fmt.Sprintf("group: %s (%d)", group.GroupName, group.GroupID),
			Fee:             transaction.FormatAmount(fee),
		}
		if p.Reason != "" {
			prompt.Text3 = "reason: " + p.Reason
		}
		if err := s.confirm(ctx, rc, prompt); err != nil {
			return nil, err
		}

		result, err := s.submit(ctx, transaction.GroupMemberParams{
			Kind:    kind,
			GroupID: groupID,
			Member:  member,
			Reason:  p.Reason,
		}, fee, 0)
		if err != nil {
			return nil, err
		}
		if kind == transaction.AddGroupAdmin || kind == transaction.RemoveGroupAdmin || kind == transaction.GroupKick {
			// the admin set changed, so cached group keys may no longer match
			s.keys.Invalidate(p.GroupID.Value)
		}
		return result, nil
	}
}

func (s *Set) cancelGroupInvite(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.memberAction(transaction.CancelGroupInvite, "You are requesting to cancel the group invite for:")(ctx, payload, rc)
}

func (s *Set) kickFromGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.memberAction(transaction.GroupKick, "You are requesting to kick this member from the group:")(ctx, payload, rc)
}

func (s *Set) cancelGroupBan(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.memberAction(transaction.CancelGroupBan, "You are requesting to cancel the group ban for:")(ctx, payload, rc)
}

func (s *Set) addGroupAdmin(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.memberAction(transaction.AddGroupAdmin, "You are requesting to add this group admin:")(ctx, payload, rc)
}

func (s *Set) removeGroupAdmin(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	return s.memberAction(transaction.RemoveGroupAdmin, "You are requesting to remove this group admin:")(ctx, payload, rc)
}

func (s *Set) inviteToGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p groupPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	groupID, group, invitee, err := s.memberTarget(ctx, p, "inviteeAddress", p.InviteeAddress)
	if err != nil {
		return nil, err
	}
	ttl, err := int32Field(p.InviteTime, "inviteTime", 0)
	if err != nil {
		return nil, err
	}

	fee, err := s.fee(ctx, transaction.GroupInvite)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "You are requesting to invite this member to the group:",
		HighlightedText: invitee,
		Text2:           fmt.Sprintf("group: %s (%d)", group.GroupName, group.GroupID),
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.GroupInviteParams{GroupID: groupID, Invitee: invitee, TimeToLive: ttl}, fee, 0)
}

func (s *Set) banFromGroup(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p groupPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	groupID, group, offender, err := s.memberTarget(ctx, p, "qortalAddress", p.QortalAddress)
	if err != nil {
		return nil, err
	}
	ttl, err := int32Field(p.BanTime, "banTime", 0)
	if err != nil {
		return nil, err
	}

	fee, err := s.fee(ctx, transaction.GroupBan)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "You are requesting to ban this member from the group:",
		HighlightedText: offender,
		Text2:           fmt.Sprintf("group: %s (%d)", group.GroupName, group.GroupID),
		Text3:           "reason: " + p.Reason,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}

	result, err := s.submit(ctx, transaction.GroupBanParams{
		GroupID:    groupID,
		Offender:   offender,
		Reason:     p.Reason,
		TimeToLive: ttl,
	}, fee, 0)
	if err != nil {
		return nil, err
	}
	s.keys.Invalidate(p.GroupID.Value)
	return result, nil
}
