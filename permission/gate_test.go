package permission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/qbridge/store"
)

// fakePrompter answers every prompt with result, or never answers when block is set.
type fakePrompter struct {
	mu      sync.Mutex
	result  Result
	err     error
	block   bool
	prompts []Prompt
}

func (f *fakePrompter) Prompt(ctx context.Context, p Prompt, _ bool) (Result, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	block, res, err := f.block, f.result, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	return res, err
}

func (f *fakePrompter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func TestNewGate_DefaultTimeout(t *testing.T) {
	g := NewGate(&fakePrompter{}, store.NewMemoryStore(), 0)
	assert.Equal(t, 60*time.Second, g.Timeout())
}

func TestGetUserPermission_TimesOutToDeclined(t *testing.T) {
	p := &fakePrompter{block: true}
	g := NewGate(p, store.NewMemoryStore(), 30*time.Millisecond)

	start := time.Now()
	res, err := g.GetUserPermission(context.Background(), Prompt{Text1: "Send?"}, false)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestGetUserPermission_CallerCancel(t *testing.T) {
	p := &fakePrompter{block: true}
	g := NewGate(p, store.NewMemoryStore(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := g.GetUserPermission(ctx, Prompt{Text1: "x"}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetUserPermission_PrompterFailureDeclines(t *testing.T) {
	p := &fakePrompter{err: errors.New("channel closed")}
	g := NewGate(p, store.NewMemoryStore(), time.Second)

	res, err := g.GetUserPermission(context.Background(), Prompt{Text1: "x"}, true)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
}

func TestAuthorize_Declined(t *testing.T) {
	p := &fakePrompter{result: Result{Accepted: false}}
	g := NewGate(p, store.NewMemoryStore(), time.Second)

	_, err := g.Authorize(context.Background(), SendChatKey("q-chat"), Prompt{Text1: "Send?"}, false)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, "User declined request", err.Error())
}

func TestAuthorize_RememberedBypassesPrompt(t *testing.T) {
	ctx := context.Background()
	p := &fakePrompter{result: Result{Accepted: true, Checkbox1: true}}
	g := NewGate(p, store.NewMemoryStore(), time.Second)
	key := SendChatKey("q-chat")

	skipped, err := g.Authorize(ctx, key, Prompt{Text1: "Send?"}, false)
	require.NoError(t, err)
	assert.False(t, skipped)
	require.Equal(t, 1, p.count())
	require.NotNil(t, p.prompts[0].Checkbox1, "remember box offered")

	for i := 0; i < 3; i++ {
		skipped, err = g.Authorize(ctx, key, Prompt{Text1: "Send?"}, false)
		require.NoError(t, err)
		assert.True(t, skipped)
	}
	assert.Equal(t, 1, p.count(), "no further prompts once remembered")
}

func TestAuthorize_UncheckedIsNotRemembered(t *testing.T) {
	ctx := context.Background()
	p := &fakePrompter{result: Result{Accepted: true}}
	g := NewGate(p, store.NewMemoryStore(), time.Second)
	key := AutoAuthKey("q-mail")

	_, err := g.Authorize(ctx, key, Prompt{Text1: "Auth?"}, false)
	require.NoError(t, err)
	_, err = g.Authorize(ctx, key, Prompt{Text1: "Auth?"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.count())
	assert.False(t, g.IsRemembered(ctx, key))
}

func TestRemember_ScopedPerApp(t *testing.T) {
	ctx := context.Background()
	p := &fakePrompter{result: Result{Accepted: true}}
	g := NewGate(p, store.NewMemoryStore(), time.Second)

	require.NoError(t, g.Remember(ctx, SendChatKey("app-a"), true))
	assert.True(t, g.IsRemembered(ctx, SendChatKey("app-a")))
	assert.False(t, g.IsRemembered(ctx, SendChatKey("app-b")))
	assert.False(t, g.IsRemembered(ctx, AutoAuthKey("app-a")))

	skipped, err := g.Authorize(ctx, SendChatKey("app-b"), Prompt{Text1: "Send?"}, false)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, 1, p.count())
}

func TestRemember_FalseDisables(t *testing.T) {
	ctx := context.Background()
	g := NewGate(&fakePrompter{}, store.NewMemoryStore(), time.Second)
	key := WalletBalanceKey("app", "btc")

	require.NoError(t, g.Remember(ctx, key, true))
	require.NoError(t, g.Remember(ctx, key, false))
	assert.False(t, g.IsRemembered(ctx, key))
	assert.Error(t, g.Remember(ctx, "", true))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "qAPPAutoAuth-q-mail", AutoAuthKey("q-mail"))
	assert.Equal(t, "qAPPSendChatMessage-q-chat", SendChatKey("q-chat"))
	assert.Equal(t, "qAPPAutoWalletBalance-app-BTC", WalletBalanceKey("app", "btc"))
	assert.Equal(t, "qAPPAutoLists-app", ListsKey("app"))
	assert.Equal(t, "qAPPAutoGetPrimaryName-app", PrimaryNameKey("app"))

	assert.Empty(t, AutoAuthKey(""), "no global keys")
	assert.Empty(t, WalletBalanceKey("", "BTC"))
	assert.Empty(t, WalletBalanceKey("app", ""))
}

func TestAuthorize_EmptyKeyAlwaysPrompts(t *testing.T) {
	p := &fakePrompter{result: Result{Accepted: true, Checkbox1: true}}
	g := NewGate(p, store.NewMemoryStore(), time.Second)

	for i := 0; i < 2; i++ {
		_, err := g.Authorize(context.Background(), "", Prompt{Text1: "Vote?"}, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.count())
	assert.Nil(t, p.prompts[0].Checkbox1)
}
