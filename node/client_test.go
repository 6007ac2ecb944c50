package node

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/qbridge/node/nodetest"
)

func newTestClient(t *testing.T) (*Client, *nodetest.Node) {
	t.Helper()
	fake := nodetest.New(t)
	return New(Config{BaseURL: fake.URL + "/"}), fake
}

func TestIsPublic(t *testing.T) {
	c := New(Config{BaseURL: "https://ext-node.qortal.link/", PublicNodes: []string{"https://EXT-node.qortal.link"}})
	assert.True(t, c.IsPublic())
	assert.Equal(t, "https://ext-node.qortal.link", c.BaseURL())

	local := New(Config{BaseURL: "http://127.0.0.1:12391", PublicNodes: []string{"https://ext-node.qortal.link"}})
	assert.False(t, local.IsPublic())
}

func TestBalance(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Text(http.MethodGet, "/addresses/balance/Qabc", "12.5\n")

	got, err := c.Balance(context.Background(), "Qabc")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)
}

func TestErrorCarriesNodeMessage(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Fail(http.MethodGet, "/names/foo", http.StatusNotFound, 401, "name does not exist")

	_, err := c.Name(context.Background(), "foo")
	require.Error(t, err)
	assert.Equal(t, "name does not exist", err.Error())

	var nodeErr *Error
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, http.StatusNotFound, nodeErr.Status)
	assert.Equal(t, 401, nodeErr.Code)
}

func TestEmbeddedErrorWithOKStatus(t *testing.T) {
	c, fake := newTestClient(t)
	fake.JSON(http.MethodGet, "/polls/p1", map[string]any{"error": 1301, "message": "poll does not exist"})

	_, err := c.Poll(context.Background(), "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll does not exist")
}

func TestPublicKey(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Text(http.MethodGet, "/addresses/publickey/Qhas", "8JEmMX3Q2PzTRQ2CjZNUJkbTkHVGRZxUA4XQdfjWtqpm")
	fake.Fail(http.MethodGet, "/addresses/publickey/Qnew", http.StatusBadRequest, 102, "public key not found")
	fake.Text(http.MethodGet, "/addresses/publickey/Qfalse", "false")

	pk, err := c.PublicKey(context.Background(), "Qhas")
	require.NoError(t, err)
	assert.NotEmpty(t, pk)

	_, err = c.PublicKey(context.Background(), "Qnew")
	assert.ErrorIs(t, err, ErrNoPublicKey)
	_, err = c.PublicKey(context.Background(), "Qfalse")
	assert.ErrorIs(t, err, ErrNoPublicKey)
}

func TestPublicKeyOutagePassesThrough(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Fail(http.MethodGet, "/addresses/publickey/Qbusy", http.StatusServiceUnavailable, 503, "node overloaded")
	fake.Fail(http.MethodGet, "/addresses/publickey/Qgone", http.StatusNotFound, 0, "not found")

	_, err := c.PublicKey(context.Background(), "Qbusy")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPublicKey)
	var nodeErr *Error
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, http.StatusServiceUnavailable, nodeErr.Status)
	assert.Contains(t, err.Error(), "node overloaded")

	_, err = c.PublicKey(context.Background(), "Qgone")
	assert.ErrorIs(t, err, ErrNoPublicKey)
}

func TestSearchResourcesQuery(t *testing.T) {
	c, fake := newTestClient(t)
	fake.JSON(http.MethodGet, "/arbitrary/resources/search", []Resource{
		{Name: "alice", Service: "DOCUMENT_PRIVATE", Identifier: "symmetric-qchat-group-7", Created: 10, Updated: 20},
	})

	got, err := c.SearchResources(context.Background(), ResourceSearch{
		Service:    "DOCUMENT_PRIVATE",
		Identifier: "symmetric-qchat-group-7",
		Names:      []string{"alice", "bob"},
		ExactNames: true,
		Reverse:    true,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(20), got[0].LatestTimestamp())

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Query, "name=alice&name=bob")
	assert.Contains(t, calls[0].Query, "exactmatchnames=true")
}

func TestProcessTransactionPostsText(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Text(http.MethodPost, "/transactions/process", `{"type":"CHAT","signature":"sig"}`)

	out, err := c.ProcessTransaction(context.Background(), "3xyz")
	require.NoError(t, err)
	assert.Contains(t, out, `"CHAT"`)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "3xyz", calls[0].Body)
	assert.Equal(t, "apiVersion=2", calls[0].Query)
}

func TestSendForeignUnquotesJSONString(t *testing.T) {
	c, fake := newTestClient(t)
	fake.JSON(http.MethodPost, "/crosschain/btc/send", "abcdef")

	out, err := c.SendForeign(context.Background(), "BTC", map[string]string{"receivingAddress": "bc1"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", out)
}

func TestAPIKeyHeader(t *testing.T) {
	fake := nodetest.New(t)
	var got string
	fake.Handle(http.MethodGet, "/lists/blockedNames", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-API-KEY")
		w.Write([]byte(`["spam"]`))
	})
	c := New(Config{BaseURL: fake.URL, APIKey: "k1"})

	items, err := c.ListItems(context.Background(), "blockedNames")
	require.NoError(t, err)
	assert.Equal(t, []string{"spam"}, items)
	assert.Equal(t, "k1", got)
}
