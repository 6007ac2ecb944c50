package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
)

type signPayload struct {
	UnsignedBytes string `json:"unsignedBytes"`
	Process       bool   `json:"process"`
}

// signTransaction signs node-assembled bytes for the page. With process set
// the signed transaction is broadcast, otherwise it is returned in base58.
func (s *Set) signTransaction(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p signPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("unsignedBytes", p.UnsignedBytes != "")); err != nil {
		return nil, err
	}

	text := "Do you give this application permission to sign a transaction?"
	if p.Process {
		text = "Do you give this application permission to sign and process a transaction?"
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           text,
		HighlightedText: "Read the transaction details carefully before accepting.",
	}); err != nil {
		return nil, err
	}

	kp, err := s.wallet.KeyPair()
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)

	signed58, err := s.codec.SignRaw(p.UnsignedBytes, kp)
	if err != nil {
		return nil, err
	}
	if !p.Process {
		return signed58, nil
	}
	return s.process(ctx, signed58, "SIGN_TRANSACTION")
}

type transferPayload struct {
	AssetID   optInt `json:"assetId"`
	Amount    amount `json:"amount"`
	Recipient string `json:"recipient"`
}

func (s *Set) transferAsset(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p transferPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(
		need("assetId", p.AssetID.Set),
		need("amount", p.Amount.Set),
		need("recipient", p.Recipient != ""),
	); err != nil {
		return nil, err
	}
	if p.Amount.Units <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	recipient, err := s.resolveAddress(ctx, p.Recipient)
	if err != nil {
		return nil, err
	}
	fee, err := s.fee(ctx, transaction.TransferAsset)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to transfer this asset?",
		Text2:           "To: " + recipient,
		HighlightedText: fmt.Sprintf("%s of asset %d", transaction.FormatAmount(p.Amount.Units), p.AssetID.Value),
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.TransferAssetParams{
		Recipient: recipient,
		AssetID:   p.AssetID.Value,
		Amount:    p.Amount.Units,
	}, fee, 0)
}

// adminEndpoint is one node administration call.
type adminEndpoint struct {
	method    string
	path      string
	needValue bool
}

var adminEndpoints = map[string]adminEndpoint{
	"stop":                 {http.MethodGet, "/admin/stop", false},
	"restart":              {http.MethodGet, "/admin/restart", false},
	"bootstrap":            {http.MethodGet, "/admin/bootstrap", false},
	"addmintingaccount":    {http.MethodPost, "/admin/mintingaccounts", true},
	"removemintingaccount": {http.MethodDelete, "/admin/mintingaccounts", true},
	"forcesync":            {http.MethodPost, "/admin/forcesync", true},
	"addpeer":              {http.MethodPost, "/peers", true},
	"removepeer":           {http.MethodDelete, "/peers", true},
}

type adminPayload struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *Set) adminAction(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	if err := s.requireLocalNode("admin actions"); err != nil {
		return nil, err
	}
	var p adminPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("type", p.Type != "")); err != nil {
		return nil, err
	}
	kind := strings.ToLower(p.Type)
	ep, ok := adminEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unknown admin action type %q", p.Type)
	}
	if ep.needValue && p.Value == "" {
		return nil, requireFields(need("value", false))
	}

	prompt := permission.Prompt{
		Text1:           "Do you give this application permission to perform a node action?",
		HighlightedText: kind,
	}
	if p.Value != "" && kind != "addmintingaccount" && kind != "removemintingaccount" {
		prompt.Text2 = "value: " + p.Value
	}
	if err := s.confirm(ctx, rc, prompt); err != nil {
		return nil, err
	}

	reply, err := s.node.Admin(ctx, ep.method, ep.path, p.Value)
	if err != nil {
		return nil, fmt.Errorf("admin action %s failed: %w", kind, err)
	}
	return nodeReply(reply), nil
}
