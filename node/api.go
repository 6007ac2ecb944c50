package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrNoPublicKey is returned when an address has never published its public key.
var ErrNoPublicKey = errors.New("address has no public key on chain")

// codePublicKeyNotFound is the node's API error code for an unknown public key.
const codePublicKeyNotFound = 102

// Balance returns the QORT balance of address.
func (c *Client) Balance(ctx context.Context, address string) (float64, error) {
	text, err := c.GetText(ctx, "/addresses/balance/"+url.PathEscape(address), nil)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected balance %q: %w", text, err)
	}
	return v, nil
}

// Account returns the node's record for address.
func (c *Client) Account(ctx context.Context, address string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.GetJSON(ctx, "/addresses/"+url.PathEscape(address), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PublicKey returns the base58 public key of address, or ErrNoPublicKey when
// the address has not transacted yet.
func (c *Client) PublicKey(ctx context.Context, address string) (string, error) {
	text, err := c.GetText(ctx, "/addresses/publickey/"+url.PathEscape(address), nil)
	if err != nil {
		var nodeErr *Error
		if errors.As(err, &nodeErr) && isUnknownPublicKey(nodeErr) {
			return "", ErrNoPublicKey
		}
		return "", fmt.Errorf("fetch public key of %s: %w", address, err)
	}
	text = strings.TrimSpace(text)
	if text == "" || text == "false" {
		return "", ErrNoPublicKey
	}
	return text, nil
}

func isUnknownPublicKey(e *Error) bool {
	if e.Status == http.StatusNotFound || e.Code == codePublicKeyNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "public key")
}

// LastReference returns the signature of the last transaction made by
// address, or "" for an account with no history.
func (c *Client) LastReference(ctx context.Context, address string) (string, error) {
	text, err := c.GetText(ctx, "/addresses/lastreference/"+url.PathEscape(address), nil)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "false" {
		return "", nil
	}
	return text, nil
}

// NamesByAddress lists the names owned by address.
func (c *Client) NamesByAddress(ctx context.Context, address string) ([]NameInfo, error) {
	var names []NameInfo
	if err := c.GetJSON(ctx, "/names/address/"+url.PathEscape(address), nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// PrimaryName returns the first name registered to address, or "".
func (c *Client) PrimaryName(ctx context.Context, address string) (string, error) {
	names, err := c.NamesByAddress(ctx, address)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0].Name, nil
}

// Name returns the record for a registered name.
func (c *Client) Name(ctx context.Context, name string) (*NameInfo, error) {
	var info NameInfo
	if err := c.GetJSON(ctx, "/names/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Group returns the record of group id.
func (c *Client) Group(ctx context.Context, id int64) (*GroupInfo, error) {
	var info GroupInfo
	if err := c.GetJSON(ctx, "/groups/"+strconv.FormatInt(id, 10), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GroupAdmins lists the admin members of group id.
func (c *Client) GroupAdmins(ctx context.Context, id int64) ([]GroupMember, error) {
	q := url.Values{"onlyAdmins": {"true"}, "limit": {"0"}}
	var members GroupMembers
	if err := c.GetJSON(ctx, "/groups/members/"+strconv.FormatInt(id, 10), q, &members); err != nil {
		return nil, err
	}
	return members.Members, nil
}

// Poll returns the poll called name.
func (c *Client) Poll(ctx context.Context, name string) (*PollInfo, error) {
	var info PollInfo
	if err := c.GetJSON(ctx, "/polls/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SearchResources queries QDN resources.
func (c *Client) SearchResources(ctx context.Context, s ResourceSearch) ([]Resource, error) {
	q := url.Values{"mode": {"ALL"}}
	if s.Service != "" {
		q.Set("service", s.Service)
	}
	if s.Identifier != "" {
		q.Set("identifier", s.Identifier)
	}
	for _, n := range s.Names {
		q.Add("name", n)
	}
	if s.Prefix {
		q.Set("prefix", "true")
	}
	if s.ExactNames {
		q.Set("exactmatchnames", "true")
	}
	q.Set("limit", strconv.Itoa(s.Limit))
	if s.Offset > 0 {
		q.Set("offset", strconv.Itoa(s.Offset))
	}
	if s.Reverse {
		q.Set("reverse", "true")
	}

	var out []Resource
	if err := c.GetJSON(ctx, "/arbitrary/resources/search", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchResourceBase64 returns the content of a QDN resource as base64 text.
func (c *Client) FetchResourceBase64(ctx context.Context, service, name, identifier string) (string, error) {
	path := fmt.Sprintf("/arbitrary/%s/%s/%s", url.PathEscape(service), url.PathEscape(name), url.PathEscape(identifier))
	text, err := c.GetText(ctx, path, url.Values{"encoding": {"base64"}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// BuildArbitrary asks the node to assemble an unsigned ARBITRARY transaction
// for a resource upload and returns it base58-encoded.
func (c *Client) BuildArbitrary(ctx context.Context, req PublishRequest) (string, error) {
	path := fmt.Sprintf("/arbitrary/%s/%s", url.PathEscape(req.Service), url.PathEscape(req.Name))
	if req.Identifier != "" {
		path += "/" + url.PathEscape(req.Identifier)
	}
	path += "/base64"

	q := url.Values{"fee": {strconv.FormatInt(req.Fee, 10)}}
	setIf(q, "title", req.Title)
	setIf(q, "description", req.Description)
	setIf(q, "category", req.Category)
	setIf(q, "filename", req.Filename)
	for _, t := range req.Tags {
		q.Add("tags", t)
	}
	text, err := c.PostText(ctx, path, q, req.Base64Data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ComputeArbitrary asks the node to attach the proof-of-work nonce to an
// unsigned ARBITRARY transaction.
func (c *Client) ComputeArbitrary(ctx context.Context, unsigned58 string) (string, error) {
	text, err := c.PostText(ctx, "/arbitrary/compute", nil, unsigned58)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// HostedResources lists resources hosted by the local node.
func (c *Client) HostedResources(ctx context.Context, limit, offset int, query string) ([]Resource, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
	setIf(q, "query", query)
	var out []Resource
	if err := c.GetJSON(ctx, "/arbitrary/hosted/resources", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteHostedResource removes a locally hosted resource.
func (c *Client) DeleteHostedResource(ctx context.Context, service, name, identifier string) error {
	path := fmt.Sprintf("/arbitrary/resource/%s/%s/%s", url.PathEscape(service), url.PathEscape(name), url.PathEscape(identifier))
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil, "")
	return err
}

// ListItems returns the items of a local list.
func (c *Client) ListItems(ctx context.Context, list string) ([]string, error) {
	var items []string
	if err := c.GetJSON(ctx, "/lists/"+url.PathEscape(list), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type listItems struct {
	Items []string `json:"items"`
}

// AddListItems appends items to a local list.
func (c *Client) AddListItems(ctx context.Context, list string, items []string) (bool, error) {
	var ok bool
	if err := c.PostJSON(ctx, "/lists/"+url.PathEscape(list), nil, listItems{Items: items}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// DeleteListItems removes items from a local list.
func (c *Client) DeleteListItems(ctx context.Context, list string, items []string) (bool, error) {
	var ok bool
	if err := c.DeleteJSON(ctx, "/lists/"+url.PathEscape(list), nil, listItems{Items: items}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// UnitFee returns the fee in atomic units for txType.
func (c *Client) UnitFee(ctx context.Context, txType string) (int64, error) {
	text, err := c.GetText(ctx, "/transactions/unitfee", url.Values{"txType": {txType}})
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected unit fee %q: %w", text, err)
	}
	return v, nil
}

// ProcessTransaction broadcasts a signed base58 transaction and returns the
// node's JSON description of it.
func (c *Client) ProcessTransaction(ctx context.Context, signed58 string) (string, error) {
	text, err := c.PostText(ctx, "/transactions/process", url.Values{"apiVersion": {"2"}}, signed58)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// SearchTransactions lists confirmed transactions involving address, newest first.
func (c *Client) SearchTransactions(ctx context.Context, address string, limit int) ([]TransactionSummary, error) {
	q := url.Values{
		"address":            {address},
		"confirmationStatus": {"CONFIRMED"},
		"limit":              {strconv.Itoa(limit)},
		"reverse":            {"true"},
	}
	var out []TransactionSummary
	if err := c.GetJSON(ctx, "/transactions/search", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForeignWalletBalance returns the balance of a foreign-chain wallet in the
// chain's smallest unit.
func (c *Client) ForeignWalletBalance(ctx context.Context, coin, key string) (int64, error) {
	text, err := c.PostText(ctx, "/crosschain/"+strings.ToLower(coin)+"/walletbalance", nil, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected %s balance %q: %w", coin, text, err)
	}
	return v, nil
}

// SendForeign sends a foreign-chain payment and returns the node's reply
// (normally the transaction hash).
func (c *Client) SendForeign(ctx context.Context, coin string, body any) (string, error) {
	var out string
	if err := c.PostJSON(ctx, "/crosschain/"+strings.ToLower(coin)+"/send", nil, body, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ServerInfos returns the server pool the node uses for coin.
func (c *Client) ServerInfos(ctx context.Context, coin string) (*ServerInfos, error) {
	var out ServerInfos
	if err := c.GetJSON(ctx, "/crosschain/"+strings.ToLower(coin)+"/serverinfos", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trade returns the summary of the trade AT at atAddress.
func (c *Client) Trade(ctx context.Context, atAddress string) (*TradeSummary, error) {
	var out TradeSummary
	if err := c.GetJSON(ctx, "/crosschain/trade/"+url.PathEscape(atAddress), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TradeBotRespondMultiple asks the local trade bot to buy several offers.
func (c *Client) TradeBotRespondMultiple(ctx context.Context, body any) (string, error) {
	var out string
	if err := c.PostJSON(ctx, "/crosschain/tradebot/respondmultiple", nil, body, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// TradeBotCreate asks the node for an unsigned DEPLOY_AT transaction creating a
// sell offer.
func (c *Client) TradeBotCreate(ctx context.Context, body any) (string, error) {
	var out string
	if err := c.PostJSON(ctx, "/crosschain/tradebot/create", nil, body, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CancelTradeOffer asks the node for an unsigned MESSAGE transaction that
// cancels a sell offer.
func (c *Client) CancelTradeOffer(ctx context.Context, body any) (string, error) {
	var out string
	if err := c.DeleteJSON(ctx, "/crosschain/tradeoffer", nil, body, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Admin calls a node administration endpoint.
func (c *Client) Admin(ctx context.Context, method, path, body string) (string, error) {
	var r *strings.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	var data []byte
	var err error
	if r != nil {
		data, err = c.Do(ctx, method, path, nil, r, "text/plain")
	} else {
		data, err = c.Do(ctx, method, path, nil, nil, "")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
