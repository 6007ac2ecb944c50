// Package wallet holds the persisted wallet record and decodes its key pair
// on demand.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/store"
)

// StoreKey is the store key of the wallet record.
const StoreKey = "wallet-info"

var (
	// ErrNoWallet is returned when the store holds no wallet record.
	ErrNoWallet = errors.New("no wallet found")
	// ErrNoForeignWallet is returned when a coin has no derived wallet.
	ErrNoForeignWallet = errors.New("no wallet for coin")
)

// ForeignWallet is the wallet material for one foreign chain.
type ForeignWallet struct {
	Address    string `json:"address"`
	PublicKey  string `json:"publicKey,omitempty"`
	PrivateKey string `json:"privateKey"`
}

// Record is the persisted wallet. PrivateKey is the base58 Ed25519 seed.
type Record struct {
	Address        string                   `json:"address"`
	PublicKey      string                   `json:"publicKey"`
	PrivateKey     string                   `json:"privateKey"`
	Name           string                   `json:"name,omitempty"`
	ForeignWallets map[string]ForeignWallet `json:"foreignWallets,omitempty"`
}

// Wallet is the process-wide wallet.
type Wallet struct {
	mu    sync.RWMutex
	store store.Store
	rec   Record
}

// Load reads the wallet record from s.
func Load(ctx context.Context, s store.Store) (*Wallet, error) {
	var rec Record
	if err := store.GetJSON(ctx, s, StoreKey, &rec); err != nil {
		return nil, err
	}
	if rec.PrivateKey == "" {
		return nil, ErrNoWallet
	}
	kp, err := crypto.FromBase58(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("stored wallet: %w", err)
	}
	defer crypto.WipeKeyPair(kp)
	if rec.Address != kp.Address() {
		return nil, fmt.Errorf("stored wallet address %s does not match its key", rec.Address)
	}
	return &Wallet{store: s, rec: rec}, nil
}

// Create generates a new wallet and saves it, replacing any existing record.
func Create(ctx context.Context, s store.Store) (*Wallet, error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)
	return save(ctx, s, kp, "")
}

// Import saves a wallet from a base58 secret, replacing any existing record.
func Import(ctx context.Context, s store.Store, secret58, name string) (*Wallet, error) {
	kp, err := crypto.FromBase58(strings.TrimSpace(secret58))
	if err != nil {
		return nil, err
	}
	defer crypto.WipeKeyPair(kp)
	return save(ctx, s, kp, name)
}

func save(ctx context.Context, s store.Store, kp *crypto.KeyPair, name string) (*Wallet, error) {
	rec := Record{
		Address:    kp.Address(),
		PublicKey:  kp.PublicKeyBase58(),
		PrivateKey: kp.PrivateKeyBase58(),
		Name:       name,
	}
	if err := store.SetJSON(ctx, s, StoreKey, rec); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "save",
		"address":  rec.Address,
	}).WithFields(crypto.SecureFieldHash(kp.Private[:], "seed")).Info("Saved wallet")
	return &Wallet{store: s, rec: rec}, nil
}

// Address returns the wallet's address.
func (w *Wallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rec.Address
}

// PublicKey returns the wallet's base58 public key.
func (w *Wallet) PublicKey() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rec.PublicKey
}

// Name returns the cached primary name, which may be empty.
func (w *Wallet) Name() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rec.Name
}

// KeyPair decodes a fresh key pair. Callers should wipe it with
// crypto.WipeKeyPair when done.
func (w *Wallet) KeyPair() (*crypto.KeyPair, error) {
	w.mu.RLock()
	secret := w.rec.PrivateKey
	w.mu.RUnlock()
	return crypto.FromBase58(secret)
}

// Foreign returns the wallet for coin (upper-case ticker).
func (w *Wallet) Foreign(coin string) (ForeignWallet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fw, ok := w.rec.ForeignWallets[strings.ToUpper(coin)]
	if !ok || fw.PrivateKey == "" {
		return ForeignWallet{}, fmt.Errorf("%w %s", ErrNoForeignWallet, strings.ToUpper(coin))
	}
	return fw, nil
}

// SetForeign stores the wallet for coin and persists the record.
func (w *Wallet) SetForeign(ctx context.Context, coin string, fw ForeignWallet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.rec
	next.ForeignWallets = make(map[string]ForeignWallet, len(w.rec.ForeignWallets)+1)
	for k, v := range w.rec.ForeignWallets {
		next.ForeignWallets[k] = v
	}
	next.ForeignWallets[strings.ToUpper(coin)] = fw
	if err := store.SetJSON(ctx, w.store, StoreKey, next); err != nil {
		return err
	}
	w.rec = next
	return nil
}

// SetName caches the wallet's primary name.
func (w *Wallet) SetName(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.rec
	next.Name = name
	if err := store.SetJSON(ctx, w.store, StoreKey, next); err != nil {
		return err
	}
	w.rec = next
	return nil
}
