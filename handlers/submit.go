package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/retry"
	"github.com/opd-ai/qbridge/transaction"
)

// fee returns the node's unit fee for t in atomic units.
func (s *Set) fee(ctx context.Context, t transaction.Type) (int64, error) {
	fee, err := s.node.UnitFee(ctx, t.String())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s fee: %w", t, err)
	}
	return fee, nil
}

// submit signs p with the wallet key and broadcasts it. The node's reply is
// returned as JSON when it is JSON and as a string otherwise.
func (s *Set) submit(ctx context.Context, p transaction.Params, fee int64, groupID int32) (any, error) {
	kp, err := s.wallet.KeyPair()
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)

	ref, err := s.node.LastReference(ctx, s.wallet.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last reference: %w", err)
	}

	signed, err := s.codec.Sign(ctx, transaction.Header{Reference: ref, Fee: fee, GroupID: groupID}, p, kp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s transaction: %w", p.Type(), err)
	}
	return s.process(ctx, signed.Base58(), p.Type().String())
}

// signAndSubmit signs a node-assembled transaction and broadcasts it.
func (s *Set) signAndSubmit(ctx context.Context, unsigned58, kind string) (any, error) {
	kp, err := s.wallet.KeyPair()
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)

	signed58, err := s.codec.SignRaw(unsigned58, kp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s transaction: %w", kind, err)
	}
	return s.process(ctx, signed58, kind)
}

// process broadcasts a signed transaction under the retry policy.
func (s *Set) process(ctx context.Context, signed58, kind string) (any, error) {
	reply, err := retry.Transaction(ctx, s.retrier, func(ctx context.Context) (string, error) {
		return s.node.ProcessTransaction(ctx, signed58)
	}, true)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "process",
			"kind":     kind,
			"error":    err.Error(),
		}).Warn("Transaction rejected")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"function": "process",
		"kind":     kind,
	}).Info("Transaction processed")
	return nodeReply(reply), nil
}

// nodeReply keeps JSON replies structured and passes anything else as text.
func nodeReply(reply string) any {
	if json.Valid([]byte(reply)) {
		return json.RawMessage(reply)
	}
	return reply
}
