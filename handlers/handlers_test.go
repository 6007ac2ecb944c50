package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/groupkey"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/node/nodetest"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/retry"
	"github.com/opd-ai/qbridge/store"
	"github.com/opd-ai/qbridge/transaction"
	"github.com/opd-ai/qbridge/wallet"
)

const testFee = "100000"

// recordingPrompter answers every prompt with accept and records it.
type recordingPrompter struct {
	mu      sync.Mutex
	accept  bool
	prompts []permission.Prompt
}

func (p *recordingPrompter) Prompt(_ context.Context, prompt permission.Prompt, _ bool) (permission.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return permission.Result{Accepted: p.accept}, nil
}

func (p *recordingPrompter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

func (p *recordingPrompter) last() permission.Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[len(p.prompts)-1]
}

type fixture struct {
	fake     *nodetest.Node
	wallet   *wallet.Wallet
	prompter *recordingPrompter
	set      *Set
}

func newFixture(t *testing.T, public bool) *fixture {
	t.Helper()
	ctx := context.Background()
	fake := nodetest.New(t)

	st := store.NewMemoryStore()
	w, err := wallet.Create(ctx, st)
	require.NoError(t, err)

	cfg := node.Config{BaseURL: fake.URL, Timeout: 5 * time.Second}
	if public {
		cfg.PublicNodes = []string{fake.URL}
	}
	client := node.New(cfg)

	prompter := &recordingPrompter{accept: true}
	codec := transaction.NewCodec()
	codec.SetChatDifficulty(0)

	set := New(Deps{
		Node:    client,
		Wallet:  w,
		Gate:    permission.NewGate(prompter, st, time.Second),
		Keys:    groupkey.New(client, w),
		Codec:   codec,
		Retrier: retry.New(1, 0),
		ATQueue: retry.NewQueue("test-at", 2),
	})

	fake.Text(http.MethodGet, "/transactions/unitfee", testFee)
	fake.Text(http.MethodGet, "/addresses/lastreference/"+w.Address(), "false")
	fake.Text(http.MethodPost, "/transactions/process", `{"signature":"processed"}`)

	return &fixture{fake: fake, wallet: w, prompter: prompter, set: set}
}

func (f *fixture) call(t *testing.T, action bridge.Action, payload string) (any, error) {
	t.Helper()
	h, ok := f.set.table()[action]
	require.True(t, ok, "no handler for %s", action)
	rc := &bridge.RequestContext{
		RequestID: "req-1",
		Action:    action,
		AppInfo:   bridge.AppInfo{Name: "test-app", Service: "APP"},
	}
	return h(context.Background(), json.RawMessage(payload), rc)
}

func otherAddress(t *testing.T) (*crypto.KeyPair, string) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp, kp.Address()
}

// unsignedTx is node-assembled bytes long enough to sign.
func unsignedTx() string {
	return base58.Encode(bytes.Repeat([]byte{0x01}, 160))
}

func TestRegisterCoversEveryAction(t *testing.T) {
	f := newFixture(t, false)
	r := bridge.NewRegistry()
	require.NoError(t, f.set.Register(r))
	assert.Empty(t, r.Missing())
	assert.Len(t, f.set.table(), len(bridge.AllActions()))
}

func TestMissingFields(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.call(t, bridge.ActionSendChatMessage, `{}`)
	require.Error(t, err)
	assert.Equal(t, "Missing fields: message, destinationAddress or groupId", err.Error())

	_, err = f.call(t, bridge.ActionSendCoin, `{"coin":"QORT"}`)
	require.Error(t, err)
	assert.Equal(t, "Missing fields: destinationAddress, amount", err.Error())

	assert.Equal(t, 0, f.prompter.count())
	assert.Empty(t, f.fake.Mutations())
}

func TestInvalidPayload(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.call(t, bridge.ActionRegisterName, `[1,2]`)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestChatRecipientWithoutPublicKey(t *testing.T) {
	f := newFixture(t, false)
	_, addr := otherAddress(t)
	f.fake.Fail(http.MethodGet, "/addresses/publickey/"+addr, http.StatusNotFound, 124, "no public key")

	_, err := f.call(t, bridge.ActionSendChatMessage, `{"message":"hi","destinationAddress":"`+addr+`"}`)
	require.ErrorIs(t, err, ErrRecipientNoPublicKey)
	assert.Contains(t, err.Error(), "does not have their publickey on chain")
	assert.Empty(t, f.fake.Mutations())
	assert.Equal(t, 0, f.prompter.count())
}

func TestChatRecipientLookupOutageIsNotAMissingKey(t *testing.T) {
	f := newFixture(t, false)
	_, addr := otherAddress(t)
	f.fake.Fail(http.MethodGet, "/addresses/publickey/"+addr, http.StatusServiceUnavailable, 503, "node overloaded")

	_, err := f.call(t, bridge.ActionSendChatMessage, `{"message":"hi","destinationAddress":"`+addr+`"}`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecipientNoPublicKey)
	assert.Contains(t, err.Error(), "node overloaded")

	var nodeErr *node.Error
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, http.StatusServiceUnavailable, nodeErr.Status)
	assert.Empty(t, f.fake.Mutations())
	assert.Equal(t, 0, f.prompter.count())
}

func TestChatDirectIsEncryptedAndProcessed(t *testing.T) {
	f := newFixture(t, false)
	peer, addr := otherAddress(t)
	f.fake.Text(http.MethodGet, "/addresses/publickey/"+addr, peer.PublicKeyBase58())

	out, err := f.call(t, bridge.ActionSendChatMessage, `{"message":"hi","destinationAddress":"`+addr+`"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"signature":"processed"}`, string(out.(json.RawMessage)))
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
	assert.Equal(t, "To: "+addr, f.prompter.last().Text2)
	require.NotNil(t, f.prompter.last().Checkbox1)
}

func TestChatOpenGroupNeedsNoKey(t *testing.T) {
	f := newFixture(t, false)
	f.fake.JSON(http.MethodGet, "/groups/9", node.GroupInfo{GroupID: 9, GroupName: "lobby", IsOpen: true})

	_, err := f.call(t, bridge.ActionSendChatMessage, `{"message":"hi","groupId":"9"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, f.fake.CountPrefix("/arbitrary/"))
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
	assert.Equal(t, "To: group lobby", f.prompter.last().Text2)
}

func TestChatClosedGroupWithoutKey(t *testing.T) {
	f := newFixture(t, false)
	f.fake.JSON(http.MethodGet, "/groups/9", node.GroupInfo{GroupID: 9, GroupName: "devs"})
	f.fake.JSON(http.MethodGet, "/groups/members/9", node.GroupMembers{})

	_, err := f.call(t, bridge.ActionSendChatMessage, `{"message":"hi","groupId":9}`)
	require.ErrorIs(t, err, groupkey.ErrNoGroupKey)
	assert.Contains(t, err.Error(), "unable to get group key")
	assert.Empty(t, f.fake.Mutations())
	assert.Equal(t, 0, f.prompter.count())
}

func TestPublicNodeRefusals(t *testing.T) {
	cases := []struct {
		action  bridge.Action
		payload string
	}{
		{bridge.ActionGetWalletBalance, `{"coin":"ARRR"}`},
		{bridge.ActionSendCoin, `{"coin":"arrr","destinationAddress":"zs1abc","amount":1}`},
		{bridge.ActionAdminAction, `{"type":"stop"}`},
		{bridge.ActionGetHostedData, `{}`},
		{bridge.ActionDeleteHostedData, `{"hostedData":[{"service":"WEBSITE","name":"alice"}]}`},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			f := newFixture(t, true)
			_, err := f.call(t, tc.action, tc.payload)
			require.ErrorIs(t, err, ErrPublicNode)
			assert.Empty(t, f.fake.Calls())
			assert.Equal(t, 0, f.prompter.count())
		})
	}
}

func TestSendCoinQORT(t *testing.T) {
	f := newFixture(t, false)
	_, addr := otherAddress(t)
	f.fake.Text(http.MethodGet, "/addresses/balance/"+f.wallet.Address(), "10.5")

	_, err := f.call(t, bridge.ActionSendCoin, `{"coin":"QORT","destinationAddress":"`+addr+`","amount":"1.5"}`)
	require.NoError(t, err)
	assert.Equal(t, "1.50000000 QORT", f.prompter.last().HighlightedText)
	assert.Equal(t, "0.00100000", f.prompter.last().Fee)
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
}

func TestSendCoinInsufficientFunds(t *testing.T) {
	f := newFixture(t, false)
	_, addr := otherAddress(t)
	f.fake.Text(http.MethodGet, "/addresses/balance/"+f.wallet.Address(), "1.5")

	_, err := f.call(t, bridge.ActionSendCoin, `{"coin":"QORT","destinationAddress":"`+addr+`","amount":1.5}`)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 0, f.prompter.count())
	assert.Empty(t, f.fake.Mutations())
}

func TestSendCoinForeign(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.wallet.SetForeign(context.Background(), "LTC", wallet.ForeignWallet{Address: "Lme", PrivateKey: "xprv-ltc"}))
	f.fake.JSON(http.MethodPost, "/crosschain/ltc/send", "txhash")

	out, err := f.call(t, bridge.ActionSendCoin, `{"coin":"ltc","destinationAddress":"Lyou","amount":"0.25","fee":30}`)
	require.NoError(t, err)
	assert.Equal(t, "txhash", out)
	assert.Equal(t, "30 sats/byte", f.prompter.last().ForeignFee)

	calls := f.fake.Calls()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[len(calls)-1].Body), &body))
	assert.Equal(t, "xprv-ltc", body["xprv58"])
	assert.Equal(t, "Lyou", body["receivingAddress"])
	assert.EqualValues(t, 25000000, body["litecoinAmount"])
	assert.EqualValues(t, 30, body["feePerByte"])
}

func TestDeclinedPromptMakesNoMutation(t *testing.T) {
	f := newFixture(t, false)
	f.prompter.accept = false

	_, err := f.call(t, bridge.ActionRegisterName, `{"name":"alice"}`)
	require.ErrorIs(t, err, permission.ErrDeclined)
	assert.Equal(t, 1, f.prompter.count())
	assert.Empty(t, f.fake.Mutations())
}

func TestBuyName(t *testing.T) {
	f := newFixture(t, false)
	_, seller := otherAddress(t)
	f.fake.JSON(http.MethodGet, "/names/bob", node.NameInfo{Name: "bob", Owner: seller, IsForSale: true, SalePrice: "12.5"})
	f.fake.JSON(http.MethodGet, "/names/carol", node.NameInfo{Name: "carol", Owner: seller})

	_, err := f.call(t, bridge.ActionBuyName, `{"nameForSale":"carol"}`)
	require.ErrorIs(t, err, ErrNameNotForSale)
	assert.Equal(t, "This name is not for sale", err.Error())

	_, err = f.call(t, bridge.ActionBuyName, `{"nameForSale":"bob"}`)
	require.NoError(t, err)
	assert.Equal(t, "seller: "+seller, f.prompter.last().Text3)
	assert.Equal(t, "price: 12.50000000 QORT", f.prompter.last().Text2)
}

func TestPublishWaitsForReaderSlot(t *testing.T) {
	f := newFixture(t, false)
	require.Equal(t, retry.FileReaderCapacity, f.set.reader.Capacity())

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = retry.Enqueue(context.Background(), f.set.reader, func(context.Context) (struct{}, error) {
			close(held)
			<-release
			return struct{}{}, nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	h := f.set.table()[bridge.ActionPublishQDNResource]
	_, err := h(ctx, json.RawMessage(`{"service":"WEBSITE","name":"alice","identifier":"site","data64":"aGVsbG8="}`),
		&bridge.RequestContext{RequestID: "req-1", Action: bridge.ActionPublishQDNResource})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.fake.Calls(), "nothing is fetched before the content is read")
	assert.Equal(t, 0, f.prompter.count())

	close(release)
	_, err = f.call(t, bridge.ActionPublishQDNResource, `{"service":"bad service","data64":"aGVsbG8="}`)
	assert.ErrorContains(t, err, "invalid service")
	assert.Equal(t, 0, f.set.reader.Running())
}

func TestPublishMultipleReportsPartialFailure(t *testing.T) {
	f := newFixture(t, false)
	f.fake.Text(http.MethodPost, "/arbitrary/WEBSITE/alice/site/base64", unsignedTx())
	f.fake.Handle(http.MethodPost, "/arbitrary/compute", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		_, _ = w.Write(buf.Bytes())
	})

	out, err := f.call(t, bridge.ActionPublishMultipleQDNResources, `{"resources":[
		{"service":"WEBSITE","name":"alice","identifier":"site","data64":"aGVsbG8="},
		{"service":"not a service","name":"alice","identifier":"bad","data64":"aGVsbG8="},
		{"service":"DOCUMENT","name":"alice","identifier":"doc","data64":"aGVsbG8="}
	]}`)
	require.NoError(t, err)
	report := out.(PublishReport)

	require.Len(t, report.Successes, 1)
	assert.Equal(t, "site", report.Successes[0].Identifier)

	require.Len(t, report.Failures, 2)
	assert.Equal(t, "bad", report.Failures[0].Identifier)
	assert.Contains(t, report.Failures[0].Reason, "invalid service")
	assert.Equal(t, "doc", report.Failures[1].Identifier)
	assert.Equal(t, "DOCUMENT", report.Failures[1].Service)
	assert.Equal(t, "alice", report.Failures[1].Name)

	assert.Equal(t, 1, f.prompter.count())
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
}

func tradeAt(at, chain, mode string) node.TradeSummary {
	return node.TradeSummary{
		QortalATAddress:       at,
		ForeignBlockchain:     chain,
		Mode:                  mode,
		QortAmount:            "10",
		ExpectedForeignAmount: "0.5",
	}
}

func TestCreateTradeBuyOrder(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.wallet.SetForeign(context.Background(), "LTC", wallet.ForeignWallet{Address: "Lme", PrivateKey: "xprv-ltc"}))
	for _, at := range []string{"AT1", "AT2", "AT3"} {
		f.fake.JSON(http.MethodGet, "/crosschain/trade/"+at, tradeAt(at, "LITECOIN", "OFFERING"))
	}
	f.fake.JSON(http.MethodPost, "/crosschain/tradebot/respondmultiple", "true")

	out, err := f.call(t, bridge.ActionCreateTradeBuyOrder, `{
		"foreignBlockchain":"LTC",
		"crosschainAtInfo":[{"qortalAtAddress":"AT1"},{"qortalAtAddress":"AT2"}],
		"atAddresses":["AT3","AT1"]
	}`)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("true"), out)
	assert.Equal(t, 3, f.fake.CountPrefix("/crosschain/trade/"))
	assert.Equal(t, "1.50000000 LTC", f.prompter.last().HighlightedText)
	assert.Equal(t, "30.00000000 QORT", f.prompter.last().Text3)

	calls := f.fake.Calls()
	var body struct {
		Addresses        []string `json:"addresses"`
		ForeignKey       string   `json:"foreignKey"`
		ReceivingAddress string   `json:"receivingAddress"`
	}
	require.NoError(t, json.Unmarshal([]byte(calls[len(calls)-1].Body), &body))
	assert.Equal(t, []string{"AT1", "AT2", "AT3"}, body.Addresses)
	assert.Equal(t, "xprv-ltc", body.ForeignKey)
	assert.Equal(t, f.wallet.Address(), body.ReceivingAddress)
}

func TestTradeLookupRetriesTransientFailure(t *testing.T) {
	f := newFixture(t, false)
	f.set.retrier = retry.New(2, 0)
	require.NoError(t, f.wallet.SetForeign(context.Background(), "LTC", wallet.ForeignWallet{Address: "Lme", PrivateKey: "xprv-ltc"}))

	var (
		mu    sync.Mutex
		tries int
	)
	offer, err := json.Marshal(tradeAt("AT1", "LITECOIN", "OFFERING"))
	require.NoError(t, err)
	f.fake.Handle(http.MethodGet, "/crosschain/trade/AT1", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		tries++
		first := tries == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":503,"message":"node busy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(offer)
	})
	f.fake.JSON(http.MethodPost, "/crosschain/tradebot/respondmultiple", "true")

	_, err = f.call(t, bridge.ActionCreateTradeBuyOrder, `{"foreignBlockchain":"LTC","atAddresses":["AT1"]}`)
	require.NoError(t, err)
	assert.Equal(t, 2, f.fake.Count(http.MethodGet, "/crosschain/trade/AT1"))
	assert.Equal(t, 0, f.set.atQueue.Running())
}

func TestCreateTradeBuyOrderRejectsUnavailableTrade(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.wallet.SetForeign(context.Background(), "LTC", wallet.ForeignWallet{Address: "Lme", PrivateKey: "xprv-ltc"}))
	f.fake.JSON(http.MethodGet, "/crosschain/trade/AT1", tradeAt("AT1", "LITECOIN", "OFFERING"))
	f.fake.JSON(http.MethodGet, "/crosschain/trade/AT2", tradeAt("AT2", "BITCOIN", "OFFERING"))
	f.fake.JSON(http.MethodGet, "/crosschain/trade/AT3", tradeAt("AT3", "LITECOIN", "TRADING"))

	_, err := f.call(t, bridge.ActionCreateTradeBuyOrder, `{"foreignBlockchain":"LTC","atAddresses":["AT1","AT2"]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AT2")

	_, err = f.call(t, bridge.ActionCreateTradeBuyOrder, `{"foreignBlockchain":"LTC","atAddresses":["AT3"]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer available")

	assert.Equal(t, 0, f.fake.Count(http.MethodPost, "/crosschain/tradebot/respondmultiple"))
	assert.Equal(t, 0, f.prompter.count())
}

func TestCancelTradeSellOrderChecksCreator(t *testing.T) {
	f := newFixture(t, false)
	_, stranger := otherAddress(t)
	mine := tradeAt("AT1", "LITECOIN", "OFFERING")
	mine.QortalCreator = f.wallet.Address()
	theirs := tradeAt("AT2", "LITECOIN", "OFFERING")
	theirs.QortalCreator = stranger
	f.fake.JSON(http.MethodGet, "/crosschain/trade/AT1", mine)
	f.fake.JSON(http.MethodGet, "/crosschain/trade/AT2", theirs)
	f.fake.JSON(http.MethodDelete, "/crosschain/tradeoffer", unsignedTx())

	_, err := f.call(t, bridge.ActionCancelTradeSellOrder, `{"atAddress":"AT2"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not created by this account")

	_, err = f.call(t, bridge.ActionCancelTradeSellOrder, `{"atAddress":"AT1"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
}

func TestSignTransaction(t *testing.T) {
	f := newFixture(t, false)

	out, err := f.call(t, bridge.ActionSignTransaction, `{"unsignedBytes":"`+unsignedTx()+`"}`)
	require.NoError(t, err)
	raw, err := base58.Decode(out.(string))
	require.NoError(t, err)
	require.Len(t, raw, 160+crypto.SignatureSize)

	kp, err := f.wallet.KeyPair()
	require.NoError(t, err)
	assert.True(t, transaction.Verify(raw, kp.Public))
	assert.Equal(t, 0, f.fake.Count(http.MethodPost, "/transactions/process"))

	_, err = f.call(t, bridge.ActionSignTransaction, `{"unsignedBytes":"`+unsignedTx()+`","process":true}`)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
}

func TestAdminAction(t *testing.T) {
	f := newFixture(t, false)
	f.fake.Text(http.MethodPost, "/peers", "true")

	_, err := f.call(t, bridge.ActionAdminAction, `{"type":"explode"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown admin action")

	_, err = f.call(t, bridge.ActionAdminAction, `{"type":"addpeer"}`)
	require.Error(t, err)
	assert.Equal(t, "Missing fields: value", err.Error())

	out, err := f.call(t, bridge.ActionAdminAction, `{"type":"AddPeer","value":"1.2.3.4:12392"}`)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("true"), out)

	calls := f.fake.Calls()
	assert.Equal(t, "1.2.3.4:12392", calls[len(calls)-1].Body)
}

func TestGroupMemberActions(t *testing.T) {
	f := newFixture(t, false)
	_, member := otherAddress(t)
	f.fake.JSON(http.MethodGet, "/groups/4", node.GroupInfo{GroupID: 4, GroupName: "devs", Owner: f.wallet.Address()})
	f.fake.JSON(http.MethodGet, "/names/dave", node.NameInfo{Name: "dave", Owner: member})

	_, err := f.call(t, bridge.ActionKickFromGroup, `{"groupId":4,"qortalAddress":"dave","reason":"spam"}`)
	require.NoError(t, err)
	assert.Equal(t, member, f.prompter.last().HighlightedText)
	assert.Equal(t, "reason: spam", f.prompter.last().Text3)

	_, err = f.call(t, bridge.ActionBanFromGroup, `{"groupId":"4","qortalAddress":"`+member+`","banTime":3600}`)
	require.NoError(t, err)

	_, err = f.call(t, bridge.ActionAddGroupAdmin, `{"groupId":4}`)
	require.Error(t, err)
	assert.Equal(t, "Missing fields: qortalAddress", err.Error())

	assert.Equal(t, 2, f.fake.Count(http.MethodPost, "/transactions/process"))
}

func TestUpdateGroupKeepsUnchangedFields(t *testing.T) {
	f := newFixture(t, false)
	f.fake.JSON(http.MethodGet, "/groups/4", node.GroupInfo{
		GroupID:           4,
		GroupName:         "devs",
		Owner:             f.wallet.Address(),
		Description:       "old",
		ApprovalThreshold: "PCT40",
		MinimumBlockDelay: 5,
		MaximumBlockDelay: 60,
	})

	_, err := f.call(t, bridge.ActionUpdateGroup, `{"groupId":4,"description":"new"}`)
	require.NoError(t, err)
	assert.Equal(t, "owner: "+f.wallet.Address(), f.prompter.last().Text2)
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/transactions/process"))
}

func TestGetUserAccountSkipAuthOnlyFromExtension(t *testing.T) {
	f := newFixture(t, false)
	h := f.set.table()[bridge.ActionGetUserAccount]

	out, err := h(context.Background(), nil, &bridge.RequestContext{SkipAuth: true, IsFromExtension: true})
	require.NoError(t, err)
	assert.Equal(t, f.wallet.Address(), out.(AccountInfo).Address)
	assert.Equal(t, 0, f.prompter.count())

	_, err = h(context.Background(), nil, &bridge.RequestContext{SkipAuth: true, AppInfo: bridge.AppInfo{Name: "page"}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.prompter.count())
}

func TestPayloadHelpers(t *testing.T) {
	var v struct {
		A optInt     `json:"a"`
		B optInt     `json:"b"`
		C optInt     `json:"c"`
		D stringList `json:"d"`
		E stringList `json:"e"`
		F amount     `json:"f"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":7,"c":null,"d":"one","e":["x","y"],"f":"0.5"}`), &v))
	assert.Equal(t, optInt{Value: 12, Set: true}, v.A)
	assert.Equal(t, optInt{Value: 7, Set: true}, v.B)
	assert.False(t, v.C.Set)
	assert.Equal(t, stringList{"one"}, v.D)
	assert.Equal(t, stringList{"x", "y"}, v.E)
	assert.Equal(t, amount{Units: 50000000, Set: true}, v.F)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"twelve"}`), &v))
	assert.True(t, strings.HasPrefix(requireFields(need("x", false), need("y", true)).Error(), "Missing fields: x"))
	assert.NoError(t, requireFields(need("x", true)))
}
