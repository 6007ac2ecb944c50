package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
)

type createPollPayload struct {
	PollName         string     `json:"pollName"`
	PollDescription  string     `json:"pollDescription"`
	PollOptions      stringList `json:"pollOptions"`
	PollOwnerAddress string     `json:"pollOwnerAddress"`
}

type votePayload struct {
	PollName    string `json:"pollName"`
	OptionIndex optInt `json:"optionIndex"`
}

func (s *Set) createPoll(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p createPollPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(
		need("pollName", p.PollName != ""),
		need("pollDescription", p.PollDescription != ""),
		need("pollOptions", len(p.PollOptions) > 0),
	); err != nil {
		return nil, err
	}
	owner := firstNonEmpty(p.PollOwnerAddress, s.wallet.Address())

	fee, err := s.fee(ctx, transaction.CreatePoll)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1: "You are requesting to create the poll below:",
		Text2: "Poll: " + p.PollName,
		Text3: "Description: " + p.PollDescription,
		Text4: "Options: " + strings.Join(p.PollOptions, ", "),
		Fee:   transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}

	return s.submit(ctx, transaction.CreatePollParams{
		Owner:       owner,
		PollName:    p.PollName,
		Description: p.PollDescription,
		Options:     p.PollOptions,
	}, fee, 0)
}

func (s *Set) voteOnPoll(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p votePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("pollName", p.PollName != ""), need("optionIndex", p.OptionIndex.Set)); err != nil {
		return nil, err
	}

	poll, err := s.node.Poll(ctx, p.PollName)
	if err != nil {
		return nil, fmt.Errorf("poll not found: %w", err)
	}
	idx := p.OptionIndex.Value
	if idx < 0 || idx >= int64(len(poll.PollOptions)) {
		return nil, fmt.Errorf("poll %s has no option %d", p.PollName, idx)
	}

	fee, err := s.fee(ctx, transaction.VoteOnPoll)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1: "You are being requested to vote on the poll below:",
		Text2: "Poll: " + poll.PollName,
		Text3: "Option: " + poll.PollOptions[idx].OptionName,
		Fee:   transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}

	return s.submit(ctx, transaction.VoteOnPollParams{PollName: poll.PollName, OptionIndex: int32(idx)}, fee, 0)
}
