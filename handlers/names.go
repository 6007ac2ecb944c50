package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/transaction"
)

// ErrNameNotForSale is returned by BUY_NAME for a name that is not listed.
var ErrNameNotForSale = errors.New("This name is not for sale")

type namePayload struct {
	Name        string `json:"name"`
	NewName     string `json:"newName"`
	Description string `json:"description"`
	NameForSale string `json:"nameForSale"`
	SalePrice   amount `json:"salePrice"`
}

// ownedName fetches name and checks that the wallet owns it.
func (s *Set) ownedName(ctx context.Context, name string) (*node.NameInfo, error) {
	info, err := s.node.Name(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("name %s not found: %w", name, err)
	}
	if info.Owner != s.wallet.Address() {
		return nil, fmt.Errorf("you do not own the name %s", name)
	}
	return info, nil
}

func (s *Set) registerName(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p namePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("name", p.Name != "")); err != nil {
		return nil, err
	}
	fee, err := s.fee(ctx, transaction.RegisterName)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to register this name?",
		HighlightedText: p.Name,
		Text2:           p.Description,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.RegisterNameParams{Name: p.Name, Data: p.Description}, fee, 0)
}

func (s *Set) updateName(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p namePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("name", p.Name != ""), need("newName", p.NewName != "")); err != nil {
		return nil, err
	}
	info, err := s.ownedName(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	fee, err := s.fee(ctx, transaction.UpdateName)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to update this name?",
		Text2:           "previous name: " + p.Name,
		Text3:           "new name: " + p.NewName,
		HighlightedText: p.NewName,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}

	result, err := s.submit(ctx, transaction.UpdateNameParams{
		Name:    p.Name,
		NewName: p.NewName,
		NewData: firstNonEmpty(p.Description, info.Data),
	}, fee, 0)
	if err != nil {
		return nil, err
	}
	if s.wallet.Name() == p.Name {
		if err := s.wallet.SetName(ctx, p.NewName); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Set) sellName(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p namePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("nameForSale", p.NameForSale != ""), need("salePrice", p.SalePrice.Set)); err != nil {
		return nil, err
	}
	info, err := s.ownedName(ctx, p.NameForSale)
	if err != nil {
		return nil, err
	}
	if info.IsForSale {
		return nil, fmt.Errorf("the name %s is already for sale", p.NameForSale)
	}
	fee, err := s.fee(ctx, transaction.SellName)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to sell this name?",
		HighlightedText: p.NameForSale,
		Text2:           "price: " + transaction.FormatAmount(p.SalePrice.Units) + " QORT",
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.SellNameParams{Name: p.NameForSale, Amount: p.SalePrice.Units}, fee, 0)
}

func (s *Set) cancelSellName(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p namePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("nameForSale", p.NameForSale != "")); err != nil {
		return nil, err
	}
	info, err := s.ownedName(ctx, p.NameForSale)
	if err != nil {
		return nil, err
	}
	if !info.IsForSale {
		return nil, ErrNameNotForSale
	}
	fee, err := s.fee(ctx, transaction.CancelSellName)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to cancel the sale of this name?",
		HighlightedText: p.NameForSale,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.CancelSellNameParams{Name: p.NameForSale}, fee, 0)
}

// buyName pays the listed price to the current owner.
func (s *Set) buyName(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p namePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("nameForSale", p.NameForSale != "")); err != nil {
		return nil, err
	}
	info, err := s.node.Name(ctx, p.NameForSale)
	if err != nil {
		return nil, fmt.Errorf("name %s not found: %w", p.NameForSale, err)
	}
	if !info.IsForSale {
		return nil, ErrNameNotForSale
	}
	price, err := transaction.ParseAmount(info.SalePrice)
	if err != nil {
		return nil, fmt.Errorf("unexpected sale price %q: %w", info.SalePrice, err)
	}
	fee, err := s.fee(ctx, transaction.BuyName)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to buy this name?",
		HighlightedText: p.NameForSale,
		Text2:           "price: " + transaction.FormatAmount(price) + " QORT",
		Text3:           "seller: " + info.Owner,
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, transaction.BuyNameParams{Name: p.NameForSale, Amount: price, Seller: info.Owner}, fee, 0)
}
