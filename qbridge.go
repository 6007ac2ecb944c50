package qbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/config"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/groupkey"
	"github.com/opd-ai/qbridge/handlers"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/retry"
	"github.com/opd-ai/qbridge/store"
	"github.com/opd-ai/qbridge/transaction"
	"github.com/opd-ai/qbridge/wallet"
)

// ErrVaultPassword is returned when the config enables the vault but no
// password was supplied.
var ErrVaultPassword = errors.New("vault_dir is set but no vault password was given")

// Options configures a Bridge.
type Options struct {
	// Config is the bridge configuration. Nil uses config.Default().
	Config *config.Config
	// VaultPassword unlocks at-rest encryption when Config.VaultDir is set.
	// It is wiped once the vault key is derived.
	VaultPassword []byte
	// Store replaces the configured store backend.
	Store store.Store
	// Clock drives group key expiry. Nil uses the wall clock.
	Clock crypto.TimeProvider
}

// Bridge is one wallet bridge process: the wallet, the node client and the
// dispatcher that serves page requests.
type Bridge struct {
	cfg        *config.Config
	store      store.Store
	wallet     *wallet.Wallet
	node       *node.Client
	gate       *permission.Gate
	keys       *groupkey.Cache
	registry   *bridge.Registry
	dispatcher *bridge.Dispatcher
}

// OpenStore opens the store described by cfg, sealed by a vault when
// cfg.VaultDir is set.
func OpenStore(cfg *config.Config, vaultPassword []byte) (store.Store, error) {
	var sealer store.Sealer
	if cfg.VaultDir != "" {
		if len(vaultPassword) == 0 {
			return nil, ErrVaultPassword
		}
		v, err := crypto.NewVault(cfg.VaultDir, vaultPassword)
		if err != nil {
			return nil, fmt.Errorf("open vault: %w", err)
		}
		sealer = v
	}
	return store.Open(cfg.StoreBackend, cfg.StorePath, sealer)
}

// openStore is swapped in tests.
var openStore = OpenStore

// New loads the wallet and wires every component. It fails with
// wallet.ErrNoWallet when the store holds no wallet yet. A store opened here
// is closed again on any failure; a caller-supplied store is left open.
func New(ctx context.Context, opts Options) (_ *Bridge, err error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	st := opts.Store
	if st == nil {
		if st, err = openStore(cfg, opts.VaultPassword); err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				st.Close()
			}
		}()
	}

	w, err := wallet.Load(ctx, st)
	if err != nil {
		return nil, err
	}

	client := node.New(node.Config{
		BaseURL:     cfg.NodeURL,
		APIKey:      cfg.NodeAPIKey,
		Timeout:     cfg.NodeTimeoutDuration(),
		PublicNodes: cfg.PublicNodes,
	})

	registry := bridge.NewRegistry()
	dispatcher := bridge.NewDispatcher(registry)
	gate := permission.NewGate(dispatcher, st, cfg.PermissionTimeoutDuration())

	keyOpts := []groupkey.Option{groupkey.WithTTL(cfg.GroupKeyTTLDuration())}
	if opts.Clock != nil {
		keyOpts = append(keyOpts, groupkey.WithClock(opts.Clock))
	}
	keys := groupkey.New(client, w, keyOpts...)

	set := handlers.New(handlers.Deps{
		Node:        client,
		Wallet:      w,
		Gate:        gate,
		Keys:        keys,
		Codec:       transaction.NewCodec(),
		Retrier:     retry.New(cfg.RetryAttempts, cfg.RetryDelayDuration()),
		ATQueue:     retry.NewQueue("at-lookup", retry.ATLookupCapacity),
		ReaderQueue: retry.NewQueue("resource-reader", retry.FileReaderCapacity),
	})
	if err = set.Register(registry); err != nil {
		dispatcher.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"address":  w.Address(),
		"node":     client.BaseURL(),
		"public":   client.IsPublic(),
	}).Info("Bridge ready")

	return &Bridge{
		cfg:        cfg,
		store:      st,
		wallet:     w,
		node:       client,
		gate:       gate,
		keys:       keys,
		registry:   registry,
		dispatcher: dispatcher,
	}, nil
}

// Wallet returns the loaded wallet.
func (b *Bridge) Wallet() *wallet.Wallet { return b.wallet }

// Node returns the node client.
func (b *Bridge) Node() *node.Client { return b.node }

// Serve answers requests arriving on ch until ctx is done or ch fails.
func (b *Bridge) Serve(ctx context.Context, ch bridge.Channel) error {
	return b.dispatcher.Serve(ctx, ch)
}

// ServeStdio serves the length-prefixed native messaging stream on r and w.
func (b *Bridge) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	ch := bridge.NewStdioChannel(r, w)
	defer ch.Close()
	err := b.Serve(ctx, ch)
	if errors.Is(err, io.EOF) || errors.Is(err, bridge.ErrChannelClosed) {
		return nil
	}
	return err
}

// Handler returns the WebSocket endpoint, restricted to the configured origins.
func (b *Bridge) Handler() http.Handler {
	return bridge.WebSocketHandler(b.cfg.AllowedOrigins, func(ctx context.Context, ch bridge.Channel) {
		if err := b.Serve(ctx, ch); err != nil && !errors.Is(err, bridge.ErrChannelClosed) && ctx.Err() == nil {
			logrus.WithFields(logrus.Fields{
				"function": "Handler",
				"error":    err.Error(),
			}).Debug("WebSocket session ended")
		}
	})
}

// Close stops in-flight handlers and closes the store.
func (b *Bridge) Close() error {
	b.dispatcher.Close()
	return b.store.Close()
}
