package groupkey

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// adminNames returns the registered names of the group's admins.
func (c *Cache) adminNames(ctx context.Context, groupID int64) ([]string, error) {
	admins, err := c.node.GroupAdmins(ctx, groupID)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(admins))
	for _, a := range admins {
		addrs = append(addrs, a.Member)
	}
	return c.namesOf(ctx, addrs)
}

// adminAndOwnerNames returns the names of the group's admins and its owner.
func (c *Cache) adminAndOwnerNames(ctx context.Context, groupID int64) ([]string, error) {
	group, err := c.node.Group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	admins, err := c.node.GroupAdmins(ctx, groupID)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(admins)+1)
	addrs = append(addrs, group.Owner)
	for _, a := range admins {
		addrs = append(addrs, a.Member)
	}
	return c.namesOf(ctx, addrs)
}

// namesOf resolves every name owned by addrs with a bounded fan-out.
// Addresses without a name contribute nothing.
func (c *Cache) namesOf(ctx context.Context, addrs []string) ([]string, error) {
	var (
		mu    sync.Mutex
		seen  = make(map[string]struct{})
		names []string
	)
	uniq := make(map[string]struct{}, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nameLookupLimit)
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		if _, dup := uniq[addr]; dup {
			continue
		}
		uniq[addr] = struct{}{}
		addr := addr
		g.Go(func() error {
			infos, err := c.node.NamesByAddress(gctx, addr)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, info := range infos {
				if _, ok := seen[info.Name]; ok || info.Name == "" {
					continue
				}
				seen[info.Name] = struct{}{}
				names = append(names, info.Name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
