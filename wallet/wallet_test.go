package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/store"
)

func TestLoad_NoWallet(t *testing.T) {
	_, err := Load(context.Background(), store.NewMemoryStore())
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	w, err := Create(ctx, s)
	require.NoError(t, err)
	assert.True(t, crypto.IsValidAddress(w.Address()))

	loaded, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), loaded.Address())
	assert.Equal(t, w.PublicKey(), loaded.PublicKey())

	kp, err := loaded.KeyPair()
	require.NoError(t, err)
	assert.Equal(t, w.Address(), kp.Address())
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	w, err := Import(ctx, store.NewMemoryStore(), " "+kp.PrivateKeyBase58()+"\n", "alice")
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), w.Address())
	assert.Equal(t, "alice", w.Name())

	_, err = Import(ctx, store.NewMemoryStore(), "not-base58-0OIl", "")
	assert.Error(t, err)
}

func TestLoad_RejectsMismatchedAddress(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, store.SetJSON(ctx, s, StoreKey, Record{
		Address:    "QWrongAddress",
		PrivateKey: kp.PrivateKeyBase58(),
	}))

	_, err = Load(ctx, s)
	assert.Error(t, err)
}

func TestForeignWallets(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	w, err := Create(ctx, s)
	require.NoError(t, err)

	_, err = w.Foreign("btc")
	assert.ErrorIs(t, err, ErrNoForeignWallet)

	require.NoError(t, w.SetForeign(ctx, "btc", ForeignWallet{Address: "bc1q", PrivateKey: "xprv"}))
	fw, err := w.Foreign("BTC")
	require.NoError(t, err)
	assert.Equal(t, "bc1q", fw.Address)

	reloaded, err := Load(ctx, s)
	require.NoError(t, err)
	_, err = reloaded.Foreign("btc")
	assert.NoError(t, err)

	require.NoError(t, reloaded.SetName(ctx, "bob"))
	again, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "bob", again.Name())
}
