package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
	"github.com/opd-ai/qbridge/wallet"
)

// Coin tickers accepted by the coin actions.
const (
	CoinQORT = "QORT"
	CoinBTC  = "BTC"
	CoinLTC  = "LTC"
	CoinDOGE = "DOGE"
	CoinDGB  = "DGB"
	CoinRVN  = "RVN"
	CoinARRR = "ARRR"
)

var supportedCoins = map[string]bool{
	CoinQORT: true, CoinBTC: true, CoinLTC: true, CoinDOGE: true,
	CoinDGB: true, CoinRVN: true, CoinARRR: true,
}

// activityLimit is how many recent transactions GET_TX_ACTIVITY_SUMMARY reads.
const activityLimit = 100

func normalizeCoin(coin string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(coin))
	if !supportedCoins[c] {
		return "", fmt.Errorf("unsupported coin %q", coin)
	}
	return c, nil
}

type coinPayload struct {
	Coin string `json:"coin"`
}

// AccountInfo is the GET_USER_ACCOUNT result.
type AccountInfo struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

func (s *Set) getUserAccount(ctx context.Context, _ json.RawMessage, rc *bridge.RequestContext) (any, error) {
	// only the wallet's own pages may skip the prompt
	if !(rc.SkipAuth && rc.IsFromExtension) {
		_, err := s.gate.Authorize(ctx, permission.AutoAuthKey(rc.AppName()), permission.Prompt{
			Text1:     "Do you give this application permission to authenticate?",
			Checkbox1: &permission.Checkbox{Label: "Always authenticate automatically"},
		}, rc.IsFromExtension)
		if err != nil {
			return nil, err
		}
	}
	return AccountInfo{Address: s.wallet.Address(), PublicKey: s.wallet.PublicKey()}, nil
}

func (s *Set) isUsingPublicNode(context.Context, json.RawMessage, *bridge.RequestContext) (any, error) {
	return s.node.IsPublic(), nil
}

func (s *Set) getPrimaryName(ctx context.Context, _ json.RawMessage, rc *bridge.RequestContext) (any, error) {
	_, err := s.gate.Authorize(ctx, permission.PrimaryNameKey(rc.AppName()), permission.Prompt{
		Text1: "Do you give this application permission to read your primary name?",
	}, rc.IsFromExtension)
	if err != nil {
		return nil, err
	}
	name, err := s.primaryName(ctx)
	if errors.Is(err, ErrNoName) {
		return "", nil
	}
	return name, err
}

func (s *Set) getUserWallet(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p coinPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("coin", p.Coin != "")); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.Coin)
	if err != nil {
		return nil, err
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to get your wallet information?",
		HighlightedText: "coin: " + coin,
	}); err != nil {
		return nil, err
	}

	if coin == CoinQORT {
		return AccountInfo{Address: s.wallet.Address(), PublicKey: s.wallet.PublicKey()}, nil
	}
	fw, err := s.wallet.Foreign(coin)
	if err != nil {
		return nil, err
	}
	return AccountInfo{Address: fw.Address, PublicKey: fw.PublicKey}, nil
}

func (s *Set) getWalletBalance(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p coinPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("coin", p.Coin != "")); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.Coin)
	if err != nil {
		return nil, err
	}
	if coin == CoinARRR {
		if err := s.requireLocalNode("ARRR balance"); err != nil {
			return nil, err
		}
	}

	_, err = s.gate.Authorize(ctx, permission.WalletBalanceKey(rc.AppName(), coin), permission.Prompt{
		Text1:           "Do you give this application permission to fetch your",
		HighlightedText: coin + " balance",
		Checkbox1:       &permission.Checkbox{Label: "Always allow balance to be retrieved automatically"},
	}, rc.IsFromExtension)
	if err != nil {
		return nil, err
	}

	if coin == CoinQORT {
		return s.node.Balance(ctx, s.wallet.Address())
	}
	fw, err := s.wallet.Foreign(coin)
	if err != nil {
		return nil, err
	}
	units, err := s.node.ForeignWalletBalance(ctx, coin, balanceKey(coin, fw))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s balance: %w", coin, err)
	}
	return json.Number(transaction.FormatAmount(units)), nil
}

// balanceKey is the key the node's wallet balance endpoint expects: the
// entropy for ARRR, the extended public key elsewhere.
func balanceKey(coin string, fw wallet.ForeignWallet) string {
	if coin != CoinARRR && fw.PublicKey != "" {
		return fw.PublicKey
	}
	return fw.PrivateKey
}

func (s *Set) getCrosschainServerInfo(ctx context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p coinPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("coin", p.Coin != "")); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.Coin)
	if err != nil {
		return nil, err
	}
	if coin == CoinQORT {
		return nil, errors.New("QORT has no cross-chain servers")
	}
	infos, err := s.node.ServerInfos(ctx, coin)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s server info: %w", coin, err)
	}
	return infos.Servers, nil
}

// ActivitySummary totals recent QORT activity of the account.
type ActivitySummary struct {
	Transactions int            `json:"transactions"`
	Sent         string         `json:"sent"`
	Received     string         `json:"received"`
	FeesPaid     string         `json:"feesPaid"`
	ByType       map[string]int `json:"byType"`
}

func (s *Set) getTxActivitySummary(ctx context.Context, payload json.RawMessage, _ *bridge.RequestContext) (any, error) {
	var p coinPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("coin", p.Coin != "")); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.Coin)
	if err != nil {
		return nil, err
	}
	if coin != CoinQORT {
		return nil, fmt.Errorf("activity summary is only available for %s", CoinQORT)
	}

	address := s.wallet.Address()
	txs, err := s.node.SearchTransactions(ctx, address, activityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	var sent, received, fees int64
	sum := ActivitySummary{ByType: make(map[string]int)}
	for _, tx := range txs {
		sum.Transactions++
		sum.ByType[tx.Type]++
		if tx.CreatorAddress == address {
			if f, err := transaction.ParseAmount(tx.Fee); err == nil {
				fees += f
			}
		}
		if tx.Amount == "" {
			continue
		}
		amount, err := transaction.ParseAmount(tx.Amount)
		if err != nil {
			continue
		}
		switch {
		case tx.CreatorAddress == address && tx.Recipient != address:
			sent += amount
		case tx.Recipient == address && tx.CreatorAddress != address:
			received += amount
		}
	}
	sum.Sent = transaction.FormatAmount(sent)
	sum.Received = transaction.FormatAmount(received)
	sum.FeesPaid = transaction.FormatAmount(fees)
	return sum, nil
}
