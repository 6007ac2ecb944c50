package groupkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/node/nodetest"
)

const testGroup = 7

type seedSource struct{ seed [32]byte }

func (s seedSource) KeyPair() (*crypto.KeyPair, error) { return crypto.FromSeed(s.seed) }

type fixture struct {
	fake   *nodetest.Node
	cache  *Cache
	clock  *crypto.ManualClock
	admin  *crypto.KeyPair
	owner  *crypto.KeyPair
	reader *crypto.KeyPair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	admin, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	owner, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	reader, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fake := nodetest.New(t)
	fake.JSON("GET", "/groups/7", node.GroupInfo{GroupID: testGroup, Owner: owner.Address(), GroupName: "devs"})
	fake.JSON("GET", "/groups/members/7", node.GroupMembers{Members: []node.GroupMember{{Member: admin.Address()}}})
	fake.JSON("GET", "/names/address/"+admin.Address(), []node.NameInfo{{Name: "alice", Owner: admin.Address()}})
	fake.JSON("GET", "/names/address/"+owner.Address(), []node.NameInfo{{Name: "olivia", Owner: owner.Address()}})

	clock := crypto.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	client := node.New(node.Config{BaseURL: fake.URL, Timeout: 5 * time.Second})
	return &fixture{
		fake:   fake,
		cache:  New(client, seedSource{seed: reader.Private}, WithClock(clock)),
		clock:  clock,
		admin:  admin,
		owner:  owner,
		reader: reader,
	}
}

// publish serves keys wrapped for the reader as name's publish of identifier.
func (f *fixture) publish(t *testing.T, publisher *crypto.KeyPair, name, identifier string, keys crypto.SecretKeyObject) {
	t.Helper()
	plain, err := json.Marshal(keys)
	require.NoError(t, err)
	env, err := crypto.EncryptForRecipients(plain, publisher, [][32]byte{f.reader.Public})
	require.NoError(t, err)
	f.fake.Text("GET", "/arbitrary/"+KeyService+"/"+name+"/"+identifier, base64.StdEncoding.EncodeToString(env))
}

func (f *fixture) listing(resources ...node.Resource) {
	f.fake.JSON("GET", "/arbitrary/resources/search", resources)
}

func newKeys(t *testing.T, nonce string) crypto.SecretKeyObject {
	t.Helper()
	k, err := crypto.NewSecretKeyObject(nonce)
	require.NoError(t, err)
	return k
}

func TestMemberKey_ResolvesLatestPublish(t *testing.T) {
	f := newFixture(t)
	latest := newKeys(t, "2")
	id := MemberIdentifier(testGroup)

	f.publish(t, f.admin, "alice", id, latest)
	f.fake.Text("GET", "/arbitrary/"+KeyService+"/bob/"+id, "unused")
	f.listing(
		node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 100, Updated: 500},
		// bob is not an admin and must be ignored even though newer
		node.Resource{Name: "bob", Service: KeyService, Identifier: id, Created: 900},
		// prefix match on another group
		node.Resource{Name: "alice", Service: KeyService, Identifier: id + "0", Created: 1000},
	)

	keys, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	assert.Equal(t, latest, keys)

	entry, ok := f.cache.Lookup("7")
	require.True(t, ok)
	assert.Equal(t, "alice", entry.Publisher)
	assert.Equal(t, f.clock.Now(), entry.Timestamp)
	assert.Equal(t, 0, f.fake.Count("GET", "/arbitrary/"+KeyService+"/bob/"+id))
}

func TestMemberKey_PicksNewestByUpdatedThenCreated(t *testing.T) {
	f := newFixture(t)
	id := MemberIdentifier(testGroup)

	// both the admin and the owner hold admin rights here
	f.fake.JSON("GET", "/groups/members/7", node.GroupMembers{Members: []node.GroupMember{
		{Member: f.admin.Address()}, {Member: f.owner.Address()},
	}})
	newer := newKeys(t, "5")
	f.publish(t, f.owner, "olivia", id, newer)
	f.publish(t, f.admin, "alice", id, newKeys(t, "4"))
	f.listing(
		node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 100, Updated: 200},
		node.Resource{Name: "olivia", Service: KeyService, Identifier: id, Created: 300},
	)

	keys, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	assert.Equal(t, newer, keys)
}

func TestMemberKey_ReusedWithinTTL(t *testing.T) {
	f := newFixture(t)
	id := MemberIdentifier(testGroup)
	first := newKeys(t, "1")
	f.publish(t, f.admin, "alice", id, first)
	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 1})

	_, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	calls := len(f.fake.Calls())

	f.clock.Advance(DefaultTTL - time.Second)
	keys, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	assert.Equal(t, first, keys)
	assert.Len(t, f.fake.Calls(), calls, "no network call within the TTL")

	second := newKeys(t, "2")
	f.publish(t, f.admin, "alice", id, second)
	f.clock.Advance(time.Second)
	keys, err = f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	assert.Equal(t, second, keys, "rebuilt once the TTL elapsed")
	assert.Greater(t, len(f.fake.Calls()), calls)
}

func TestMemberKey_NoPublish(t *testing.T) {
	f := newFixture(t)
	f.listing()

	_, err := f.cache.MemberKey(context.Background(), testGroup)
	assert.ErrorIs(t, err, ErrNoGroupKey)
	_, ok := f.cache.Lookup("7")
	assert.False(t, ok)
}

func TestMemberKey_NoAdminNames(t *testing.T) {
	f := newFixture(t)
	f.fake.JSON("GET", "/names/address/"+f.admin.Address(), []node.NameInfo{})

	_, err := f.cache.MemberKey(context.Background(), testGroup)
	assert.ErrorIs(t, err, ErrNoGroupKey)
	assert.Equal(t, 0, f.fake.Count("GET", "/arbitrary/resources/search"))
}

func TestMemberKey_MalformedKeepsPreviousEntry(t *testing.T) {
	f := newFixture(t)
	id := MemberIdentifier(testGroup)
	good := newKeys(t, "1")
	f.publish(t, f.admin, "alice", id, good)
	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 1})

	_, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	before, _ := f.cache.Lookup("7")

	bad := crypto.SecretKeyObject{"1": {MessageKey: "c2hvcnQ=", Nonce: "c2hvcnQ="}}
	f.publish(t, f.admin, "alice", id, bad)
	f.clock.Advance(DefaultTTL)

	_, err = f.cache.MemberKey(context.Background(), testGroup)
	assert.ErrorIs(t, err, ErrInvalidSecretKey)

	after, ok := f.cache.Lookup("7")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestMemberKey_NotARecipient(t *testing.T) {
	f := newFixture(t)
	id := MemberIdentifier(testGroup)
	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	plain, err := json.Marshal(newKeys(t, "1"))
	require.NoError(t, err)
	env, err := crypto.EncryptForRecipients(plain, f.admin, [][32]byte{other.Public})
	require.NoError(t, err)
	f.fake.Text("GET", "/arbitrary/"+KeyService+"/alice/"+id, base64.StdEncoding.EncodeToString(env))
	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 1})

	_, err = f.cache.MemberKey(context.Background(), testGroup)
	assert.ErrorIs(t, err, crypto.ErrNotARecipient)
}

func TestAdminKey_UsesOwnerAndDistinctIdentifier(t *testing.T) {
	f := newFixture(t)
	id := AdminIdentifier(testGroup)
	keys := newKeys(t, "9")
	f.publish(t, f.owner, "olivia", id, keys)
	f.listing(node.Resource{Name: "olivia", Service: KeyService, Identifier: id, Created: 1})

	got, err := f.cache.AdminKey(context.Background(), testGroup)
	require.NoError(t, err)
	assert.Equal(t, keys, got)

	_, ok := f.cache.Lookup("admins-7")
	assert.True(t, ok)
	_, ok = f.cache.Lookup("7")
	assert.False(t, ok, "admin and member entries are separate")

	// the owner is not an admin, so the member key search never sees olivia
	_, err = f.cache.MemberKey(context.Background(), testGroup)
	assert.ErrorIs(t, err, ErrNoGroupKey)
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	id := MemberIdentifier(testGroup)
	f.publish(t, f.admin, "alice", id, newKeys(t, "1"))
	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 1})

	_, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	f.cache.Invalidate(testGroup)
	_, ok := f.cache.Lookup("7")
	assert.False(t, ok)
}

func TestRefresh_FailureKeepsCachedEntries(t *testing.T) {
	f := newFixture(t)
	member, admin := MemberIdentifier(testGroup), AdminIdentifier(testGroup)
	f.publish(t, f.admin, "alice", member, newKeys(t, "1"))
	f.publish(t, f.admin, "alice", admin, newKeys(t, "1"))

	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: member, Created: 1})
	_, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: admin, Created: 1})
	_, err = f.cache.AdminKey(context.Background(), testGroup)
	require.NoError(t, err)
	before, _ := f.cache.Lookup("7")

	f.fake.Fail("GET", "/arbitrary/resources/search", 503, 503, "down")
	_, err = f.cache.Refresh(context.Background(), testGroup, false)
	require.Error(t, err)

	after, ok := f.cache.Lookup("7")
	require.True(t, ok)
	assert.Equal(t, before, after)
	_, ok = f.cache.Lookup("admins-7")
	assert.True(t, ok, "refreshing the member key leaves the admin key alone")
}

func TestRefresh_ReplacesFreshEntry(t *testing.T) {
	f := newFixture(t)
	id := MemberIdentifier(testGroup)
	f.publish(t, f.admin, "alice", id, newKeys(t, "1"))
	f.listing(node.Resource{Name: "alice", Service: KeyService, Identifier: id, Created: 1})
	_, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)

	rotated := newKeys(t, "2")
	f.publish(t, f.admin, "alice", id, rotated)

	cached, err := f.cache.MemberKey(context.Background(), testGroup)
	require.NoError(t, err)
	assert.NotEqual(t, rotated, cached, "fresh entry served without refetch")

	got, err := f.cache.Refresh(context.Background(), testGroup, false)
	require.NoError(t, err)
	assert.Equal(t, rotated, got)
	entry, _ := f.cache.Lookup("7")
	assert.Equal(t, rotated, entry.Keys)
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "symmetric-qchat-group-42", MemberIdentifier(42))
	assert.Equal(t, "admins-symmetric-qchat-group-42", AdminIdentifier(42))
}
