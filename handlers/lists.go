package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/permission"
)

type listPayload struct {
	ListName string     `json:"list_name"`
	Items    stringList `json:"items"`
	Item     string     `json:"item"`
}

func (s *Set) getListItems(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p listPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("list_name", p.ListName != "")); err != nil {
		return nil, err
	}

	_, err := s.gate.Authorize(ctx, permission.ListsKey(rc.AppName()), permission.Prompt{
		Text1:           "Do you give this application permission to access the list",
		HighlightedText: p.ListName,
		Checkbox1:       &permission.Checkbox{Label: "Always allow lists to be retrieved automatically"},
	}, rc.IsFromExtension)
	if err != nil {
		return nil, err
	}

	items, err := s.node.ListItems(ctx, p.ListName)
	if err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", p.ListName, err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func (s *Set) addListItems(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p listPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("list_name", p.ListName != ""), need("items", len(p.Items) > 0)); err != nil {
		return nil, err
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to add to this list?",
		HighlightedText: p.ListName,
		Text2:           strings.Join(p.Items, ", "),
	}); err != nil {
		return nil, err
	}

	ok, err := s.node.AddListItems(ctx, p.ListName, p.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to add to list %s: %w", p.ListName, err)
	}
	if !ok {
		return nil, fmt.Errorf("node refused to add items to list %s", p.ListName)
	}
	return true, nil
}

func (s *Set) deleteListItem(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p listPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	items := p.Items
	if p.Item != "" {
		items = append(items, p.Item)
	}
	if err := requireFields(need("list_name", p.ListName != ""), need("item", len(items) > 0)); err != nil {
		return nil, err
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to delete from this list?",
		HighlightedText: p.ListName,
		Text2:           strings.Join(items, ", "),
	}); err != nil {
		return nil, err
	}

	ok, err := s.node.DeleteListItems(ctx, p.ListName, items)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from list %s: %w", p.ListName, err)
	}
	if !ok {
		return nil, fmt.Errorf("node refused to delete items from list %s", p.ListName)
	}
	return true, nil
}
