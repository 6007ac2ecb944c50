package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
)

// ErrInsufficientFunds is returned when a QORT payment exceeds the balance.
var ErrInsufficientFunds = errors.New("Insufficient funds")

// foreignAmountField is the amount field of each coin's send endpoint.
var foreignAmountField = map[string]string{
	CoinBTC:  "bitcoinAmount",
	CoinLTC:  "litecoinAmount",
	CoinDOGE: "dogecoinAmount",
	CoinDGB:  "digibyteAmount",
	CoinRVN:  "ravencoinAmount",
	CoinARRR: "arrrAmount",
}

type sendCoinPayload struct {
	Coin               string `json:"coin"`
	DestinationAddress string `json:"destinationAddress"`
	Recipient          string `json:"recipient"`
	Amount             amount `json:"amount"`
	Fee                optInt `json:"fee"`
	Memo               string `json:"memo"`
}

func (s *Set) sendCoin(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p sendCoinPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	dest := firstNonEmpty(p.DestinationAddress, p.Recipient)
	if err := requireFields(
		need("coin", p.Coin != ""),
		need("destinationAddress", dest != ""),
		need("amount", p.Amount.Set),
	); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.Coin)
	if err != nil {
		return nil, err
	}
	if p.Amount.Units <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	if coin == CoinARRR {
		if err := s.requireLocalNode("sending ARRR"); err != nil {
			return nil, err
		}
	}

	if coin == CoinQORT {
		return s.sendQORT(ctx, rc, dest, p.Amount.Units)
	}
	return s.sendForeign(ctx, rc, coin, dest, p)
}

func (s *Set) sendQORT(ctx context.Context, rc *bridge.RequestContext, dest string, units int64) (any, error) {
	recipient, err := s.resolveAddress(ctx, dest)
	if err != nil {
		return nil, err
	}
	fee, err := s.fee(ctx, transaction.Payment)
	if err != nil {
		return nil, err
	}
	balance, err := s.node.Balance(ctx, s.wallet.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	if int64(math.Round(balance*transaction.AmountScale)) < units+fee {
		return nil, ErrInsufficientFunds
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to send coins?",
		Text2:           "To: " + recipient,
		HighlightedText: transaction.FormatAmount(units) + " " + CoinQORT,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.PaymentParams{Recipient: recipient, Amount: units}, fee, 0)
}

func (s *Set) sendForeign(ctx context.Context, rc *bridge.RequestContext, coin, dest string, p sendCoinPayload) (any, error) {
	fw, err := s.wallet.Foreign(coin)
	if err != nil {
		return nil, err
	}

	prompt := permission.Prompt{
		Text1:           "Do you give this application permission to send coins?",
		Text2:           "To: " + dest,
		HighlightedText: transaction.FormatAmount(p.Amount.Units) + " " + coin,
	}
	if p.Fee.Set {
		prompt.ForeignFee = fmt.Sprintf("%d sats/byte", p.Fee.Value)
	}
	if err := s.confirm(ctx, rc, prompt); err != nil {
		return nil, err
	}

	body := map[string]any{
		"receivingAddress":       dest,
		foreignAmountField[coin]: p.Amount.Units,
	}
	if coin == CoinARRR {
		body["entropy58"] = fw.PrivateKey
		body["memo"] = p.Memo
	} else {
		body["xprv58"] = fw.PrivateKey
		if p.Fee.Set {
			body["feePerByte"] = p.Fee.Value
		}
	}

	reply, err := s.node.SendForeign(ctx, coin, body)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "sendForeign",
			"coin":     coin,
			"error":    err.Error(),
		}).Warn("Foreign send failed")
		return nil, fmt.Errorf("failed to send %s: %w", coin, err)
	}
	return nodeReply(reply), nil
}
