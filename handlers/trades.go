package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/retry"
	"github.com/opd-ai/qbridge/transaction"
)

// Trade constants.
const (
	tradeModeOffering = "OFFERING"
	// tradeTimeout is the sell offer lifetime in minutes.
	tradeTimeout = 1440
	// fundingQortAmount funds the AT's own execution fees.
	fundingQortAmount = "0.01"
)

type tradePayload struct {
	CrosschainAtInfo []struct {
		QortalATAddress string `json:"qortalAtAddress"`
	} `json:"crosschainAtInfo"`
	ATAddresses       stringList `json:"atAddresses"`
	ATAddress         string     `json:"atAddress"`
	ForeignBlockchain string     `json:"foreignBlockchain"`
	QortAmount        amount     `json:"qortAmount"`
	ForeignAmount     amount     `json:"foreignAmount"`
}

func (p tradePayload) atAddresses() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(a string) {
		a = strings.TrimSpace(a)
		if a != "" && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, info := range p.CrosschainAtInfo {
		add(info.QortalATAddress)
	}
	for _, a := range p.ATAddresses {
		add(a)
	}
	return out
}

// fetchTrade reads one trade AT on the AT lookup queue, retrying transient
// node failures while holding the slot.
func (s *Set) fetchTrade(ctx context.Context, at string) (*node.TradeSummary, error) {
	return retry.Enqueue(ctx, s.atQueue, func(ctx context.Context) (*node.TradeSummary, error) {
		return retry.Transaction(ctx, s.retrier, func(ctx context.Context) (*node.TradeSummary, error) {
			return s.node.Trade(ctx, at)
		}, true)
	})
}

// lookupTrades fetches every trade AT through the AT lookup queue.
func (s *Set) lookupTrades(ctx context.Context, addresses []string) ([]*node.TradeSummary, error) {
	trades := make([]*node.TradeSummary, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	for i, at := range addresses {
		i, at := i, at
		g.Go(func() error {
			trade, err := s.fetchTrade(gctx, at)
			if err != nil {
				return fmt.Errorf("failed to fetch trade %s: %w", at, err)
			}
			trades[i] = trade
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trades, nil
}

// createTradeBuyOrder accepts one or more open sell offers on the same
// foreign chain and hands them to the local trade bot.
func (s *Set) createTradeBuyOrder(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p tradePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	addresses := p.atAddresses()
	if err := requireFields(
		need("crosschainAtInfo", len(addresses) > 0),
		need("foreignBlockchain", p.ForeignBlockchain != ""),
	); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.ForeignBlockchain)
	if err != nil {
		return nil, err
	}
	if coin == CoinQORT {
		return nil, fmt.Errorf("foreignBlockchain must not be QORT")
	}

	trades, err := s.lookupTrades(ctx, addresses)
	if err != nil {
		return nil, err
	}
	var qort, foreign int64
	for _, t := range trades {
		if t.Mode != tradeModeOffering {
			return nil, fmt.Errorf("trade %s is no longer available (%s)", t.QortalATAddress, t.Mode)
		}
		if !strings.EqualFold(t.ForeignBlockchain, coinChain(coin)) && !strings.EqualFold(t.ForeignBlockchain, coin) {
			return nil, fmt.Errorf("trade %s is on %s, not %s", t.QortalATAddress, t.ForeignBlockchain, coin)
		}
		q, err := transaction.ParseAmount(t.QortAmount)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.QortalATAddress, err)
		}
		f, err := transaction.ParseAmount(t.ExpectedForeignAmount)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.QortalATAddress, err)
		}
		qort += q
		foreign += f
	}

	fw, err := s.wallet.Foreign(coin)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to perform a buy order?",
		Text2:           fmt.Sprintf("%d buy order(s)", len(trades)),
		Text3:           fmt.Sprintf("%s QORT", transaction.FormatAmount(qort)),
		HighlightedText: fmt.Sprintf("%s %s", transaction.FormatAmount(foreign), coin),
	}); err != nil {
		return nil, err
	}

	reply, err := s.node.TradeBotRespondMultiple(ctx, map[string]any{
		"addresses":        addresses,
		"foreignKey":       fw.PrivateKey,
		"receivingAddress": s.wallet.Address(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit buy order: %w", err)
	}
	return nodeReply(reply), nil
}

// createTradeSellOrder deploys a new sell offer AT.
func (s *Set) createTradeSellOrder(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p tradePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(
		need("qortAmount", p.QortAmount.Set),
		need("foreignBlockchain", p.ForeignBlockchain != ""),
		need("foreignAmount", p.ForeignAmount.Set),
	); err != nil {
		return nil, err
	}
	coin, err := normalizeCoin(p.ForeignBlockchain)
	if err != nil {
		return nil, err
	}
	if coin == CoinQORT {
		return nil, fmt.Errorf("foreignBlockchain must not be QORT")
	}
	fw, err := s.wallet.Foreign(coin)
	if err != nil {
		return nil, err
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to perform a sell order?",
		Text2:           transaction.FormatAmount(p.QortAmount.Units) + " QORT",
		HighlightedText: fmt.Sprintf("%s %s", transaction.FormatAmount(p.ForeignAmount.Units), coin),
	}); err != nil {
		return nil, err
	}

	unsigned58, err := s.node.TradeBotCreate(ctx, map[string]any{
		"creatorPublicKey":  s.wallet.PublicKey(),
		"qortAmount":        json.Number(transaction.FormatAmount(p.QortAmount.Units)),
		"fundingQortAmount": json.Number(fundingQortAmount),
		"foreignBlockchain": coinChain(coin),
		"foreignAmount":     json.Number(transaction.FormatAmount(p.ForeignAmount.Units)),
		"tradeTimeout":      tradeTimeout,
		"receivingAddress":  fw.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sell order: %w", err)
	}
	return s.signAndSubmit(ctx, unsigned58, "DEPLOY_AT")
}

// cancelTradeSellOrder cancels a sell offer the wallet created.
func (s *Set) cancelTradeSellOrder(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p tradePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("atAddress", p.ATAddress != "")); err != nil {
		return nil, err
	}
	trade, err := s.fetchTrade(ctx, p.ATAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trade %s: %w", p.ATAddress, err)
	}
	if trade.QortalCreator != s.wallet.Address() {
		return nil, fmt.Errorf("trade %s was not created by this account", p.ATAddress)
	}
	if trade.Mode != tradeModeOffering {
		return nil, fmt.Errorf("trade %s cannot be cancelled (%s)", p.ATAddress, trade.Mode)
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to cancel this sell order?",
		HighlightedText: fmt.Sprintf("%s QORT for %s %s", trade.QortAmount, trade.ExpectedForeignAmount, trade.ForeignBlockchain),
	}); err != nil {
		return nil, err
	}

	unsigned58, err := s.node.CancelTradeOffer(ctx, map[string]any{
		"creatorPublicKey": s.wallet.PublicKey(),
		"atAddress":        p.ATAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sell order: %w", err)
	}
	return s.signAndSubmit(ctx, unsigned58, "MESSAGE")
}

// coinChain maps a ticker to the node's blockchain name.
func coinChain(coin string) string {
	switch coin {
	case CoinBTC:
		return "BITCOIN"
	case CoinLTC:
		return "LITECOIN"
	case CoinDOGE:
		return "DOGECOIN"
	case CoinDGB:
		return "DIGIBYTE"
	case CoinRVN:
		return "RAVENCOIN"
	case CoinARRR:
		return "PIRATECHAIN"
	}
	return coin
}
