package groupkey

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/node"
)

const (
	// DefaultTTL is how long a resolved key set is reused without network I/O.
	DefaultTTL = 20 * time.Minute
	// KeyService is the QDN service admins publish group keys under.
	KeyService = "DOCUMENT_PRIVATE"

	memberIdentifierPrefix = "symmetric-qchat-group-"
	adminIdentifierPrefix  = "admins-symmetric-qchat-group-"
	adminCachePrefix       = "admins-"
	// nameLookupLimit bounds concurrent name lookups while enumerating publishers.
	nameLookupLimit = 10
)

var (
	// ErrNoGroupKey is returned when no admin has published a key for the group.
	ErrNoGroupKey = errors.New("no group key found")
	// ErrInvalidSecretKey is returned when the published key does not decode to
	// a well-formed secret key object.
	ErrInvalidSecretKey = errors.New("invalid group secret key")
)

// NodeAPI is the subset of the node client the cache reads from.
type NodeAPI interface {
	Group(ctx context.Context, id int64) (*node.GroupInfo, error)
	GroupAdmins(ctx context.Context, id int64) ([]node.GroupMember, error)
	NamesByAddress(ctx context.Context, address string) ([]node.NameInfo, error)
	SearchResources(ctx context.Context, s node.ResourceSearch) ([]node.Resource, error)
	FetchResourceBase64(ctx context.Context, service, name, identifier string) (string, error)
}

// KeyPairSource supplies the caller's wallet key pair.
type KeyPairSource interface {
	KeyPair() (*crypto.KeyPair, error)
}

// Entry is one cached key set.
type Entry struct {
	Keys      crypto.SecretKeyObject
	Timestamp time.Time
	// Publisher is the name whose publish the keys came from.
	Publisher string
}

// Cache resolves and caches group secret keys. Entries are replaced whole;
// a failed rebuild leaves the previous entry in place.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry

	node  NodeAPI
	keys  KeyPairSource
	clock crypto.TimeProvider
	ttl   time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source used for expiry.
func WithClock(tp crypto.TimeProvider) Option {
	return func(c *Cache) { c.clock = tp }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New creates an empty cache.
func New(n NodeAPI, keys KeyPairSource, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		node:    n,
		keys:    keys,
		clock:   crypto.DefaultTimeProvider{},
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// keySpace parameterises resolve for the member and admin key sets.
type keySpace struct {
	kind       string
	cacheKey   string
	identifier string
	publishers func(ctx context.Context, groupID int64) ([]string, error)
}

// MemberKey returns the key set shared with all members of groupID.
func (c *Cache) MemberKey(ctx context.Context, groupID int64) (crypto.SecretKeyObject, error) {
	return c.resolve(ctx, groupID, c.space(groupID, false), false)
}

// AdminKey returns the key set shared only with the admins of groupID.
func (c *Cache) AdminKey(ctx context.Context, groupID int64) (crypto.SecretKeyObject, error) {
	return c.resolve(ctx, groupID, c.space(groupID, true), false)
}

// Refresh rebuilds the member (or admin) key set of groupID regardless of its
// age. The cached entry is only replaced once the rebuild succeeds.
func (c *Cache) Refresh(ctx context.Context, groupID int64, admins bool) (crypto.SecretKeyObject, error) {
	return c.resolve(ctx, groupID, c.space(groupID, admins), true)
}

func (c *Cache) space(groupID int64, admins bool) keySpace {
	id := strconv.FormatInt(groupID, 10)
	if admins {
		return keySpace{
			kind:       "admin",
			cacheKey:   adminCachePrefix + id,
			identifier: adminIdentifierPrefix + id,
			publishers: c.adminAndOwnerNames,
		}
	}
	return keySpace{
		kind:       "member",
		cacheKey:   id,
		identifier: memberIdentifierPrefix + id,
		publishers: c.adminNames,
	}
}

// Invalidate drops both cached key sets of groupID.
func (c *Cache) Invalidate(groupID int64) {
	id := strconv.FormatInt(groupID, 10)
	c.mu.Lock()
	delete(c.entries, id)
	delete(c.entries, adminCachePrefix+id)
	c.mu.Unlock()
}

// Lookup returns the raw cache entry for a cache key, if any.
func (c *Cache) Lookup(cacheKey string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey]
	return e, ok
}

// MemberIdentifier returns the QDN identifier of a group's member key publish.
func MemberIdentifier(groupID int64) string {
	return memberIdentifierPrefix + strconv.FormatInt(groupID, 10)
}

// AdminIdentifier returns the QDN identifier of a group's admin key publish.
func AdminIdentifier(groupID int64) string {
	return adminIdentifierPrefix + strconv.FormatInt(groupID, 10)
}

func (c *Cache) fresh(cacheKey string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey]
	if !ok || c.clock.Since(e.Timestamp) >= c.ttl {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) resolve(ctx context.Context, groupID int64, ks keySpace, force bool) (crypto.SecretKeyObject, error) {
	if !force {
		if e, ok := c.fresh(ks.cacheKey); ok {
			return e.Keys, nil
		}
	}

	log := crypto.NewComponentLogger("groupkey", "resolve").
		WithField("group_id", groupID).
		WithField("kind", ks.kind).
		WithField("forced", force)
	log.Debug("Rebuilding group key")

	names, err := ks.publishers(ctx, groupID)
	if err != nil {
		log.WithError(err, "network", "enumerate_admins").Warn("Group key rebuild failed")
		return nil, fmt.Errorf("list group admins: %w", err)
	}
	if len(names) == 0 {
		return nil, ErrNoGroupKey
	}

	latest, err := c.latestPublish(ctx, ks.identifier, names)
	if err != nil {
		log.WithError(err, "network", "search_publishes").Warn("Group key rebuild failed")
		return nil, err
	}

	keys, err := c.decryptPublish(ctx, latest)
	if err != nil {
		log.WithError(err, "crypto", "decrypt_publish").Warn("Group key rebuild failed")
		return nil, err
	}

	entry := Entry{Keys: keys, Timestamp: c.clock.Now(), Publisher: latest.Name}
	c.mu.Lock()
	c.entries[ks.cacheKey] = entry
	c.mu.Unlock()

	log.WithField("publisher", latest.Name).Info("Group key rebuilt")
	return keys, nil
}

// latestPublish finds the most recently updated publish of identifier by any
// of names, falling back to the created time.
func (c *Cache) latestPublish(ctx context.Context, identifier string, names []string) (node.Resource, error) {
	found, err := c.node.SearchResources(ctx, node.ResourceSearch{
		Service:    KeyService,
		Identifier: identifier,
		Names:      names,
		ExactNames: true,
		Reverse:    true,
	})
	if err != nil {
		return node.Resource{}, fmt.Errorf("search group key publishes: %w", err)
	}

	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}

	var (
		best node.Resource
		ok   bool
	)
	for _, r := range found {
		if r.Identifier != identifier {
			continue
		}
		if _, isAdmin := allowed[r.Name]; !isAdmin {
			continue
		}
		if !ok || r.LatestTimestamp() > best.LatestTimestamp() {
			best, ok = r, true
		}
	}
	if !ok {
		return node.Resource{}, ErrNoGroupKey
	}
	return best, nil
}

func (c *Cache) decryptPublish(ctx context.Context, r node.Resource) (crypto.SecretKeyObject, error) {
	b64, err := c.node.FetchResourceBase64(ctx, r.Service, r.Name, r.Identifier)
	if err != nil {
		return nil, fmt.Errorf("fetch group key: %w", err)
	}
	envelope, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not base64", ErrInvalidSecretKey)
	}

	kp, err := c.keys.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("load wallet key: %w", err)
	}
	defer crypto.WipeKeyPair(kp)

	plain, err := crypto.DecryptEnvelope(envelope, kp)
	if err != nil {
		return nil, fmt.Errorf("decrypt group key: %w", err)
	}
	defer crypto.ZeroBytes(plain)

	keys, err := crypto.ParseSecretKeyObject(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	return keys, nil
}
