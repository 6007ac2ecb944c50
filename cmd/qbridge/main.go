// Command qbridge runs the wallet bridge as a browser native-messaging host
// or as a local WebSocket server, and manages the wallet it signs with.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/opd-ai/qbridge"
	"github.com/opd-ai/qbridge/config"
	"github.com/opd-ai/qbridge/store"
	"github.com/opd-ai/qbridge/wallet"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML configuration file",
		EnvVars: []string{"QBRIDGE_CONFIG"},
	}
	nodeFlag = &cli.StringFlag{
		Name:  "node",
		Usage: "node API base URL (overrides node_url)",
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "store file path (overrides store_path)",
	}
	vaultPasswordFlag = &cli.StringFlag{
		Name:    "vault-password",
		Usage:   "passphrase for the encrypted store",
		EnvVars: []string{"QBRIDGE_VAULT_PASSWORD"},
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "WebSocket listen address (overrides listen_addr)",
	}
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "registered name to record with the wallet",
	}
)

func main() {
	// stdout carries native messaging frames, so logs go to stderr
	logrus.SetOutput(os.Stderr)

	app := &cli.App{
		Name:  "qbridge",
		Usage: "Qortal wallet bridge for web applications",
		Flags: []cli.Flag{configFlag, nodeFlag, storeFlag, vaultPasswordFlag},
		Commands: []*cli.Command{
			{
				Name:   "stdio",
				Usage:  "serve the native messaging protocol on stdin/stdout",
				Action: runStdio,
			},
			{
				Name:   "serve",
				Usage:  "serve the bridge over a local WebSocket",
				Flags:  []cli.Flag{listenFlag},
				Action: runServe,
			},
			{
				Name:  "wallet",
				Usage: "manage the bridge wallet",
				Subcommands: []*cli.Command{
					{Name: "create", Usage: "generate a new wallet", Action: walletCreate},
					{
						Name:      "import",
						Usage:     "import a wallet from its base58 seed",
						ArgsUsage: "<seed58>",
						Flags:     []cli.Flag{nameFlag},
						Action:    walletImport,
					},
					{Name: "show", Usage: "print the wallet address and public key", Action: walletShow},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig applies command line overrides on top of config.Load.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if v := c.String(nodeFlag.Name); v != "" {
		cfg.NodeURL = v
	}
	if v := c.String(storeFlag.Name); v != "" {
		cfg.StorePath = v
	}
	if v := c.String(listenFlag.Name); v != "" {
		cfg.ListenAddr = v
	}
	return cfg, cfg.Validate()
}

func vaultPassword(c *cli.Context) []byte {
	if v := c.String(vaultPasswordFlag.Name); v != "" {
		return []byte(v)
	}
	return nil
}

func openBridge(c *cli.Context) (*qbridge.Bridge, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	b, err := qbridge.New(c.Context, qbridge.Options{Config: cfg, VaultPassword: vaultPassword(c)})
	if errors.Is(err, wallet.ErrNoWallet) {
		return nil, fmt.Errorf("%w: run `qbridge wallet create` or `qbridge wallet import` first", err)
	}
	return b, err
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runStdio(c *cli.Context) error {
	b, err := openBridge(c)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := signalContext(c.Context)
	defer cancel()
	return b.ServeStdio(ctx, os.Stdin, os.Stdout)
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	b, err := openBridge(c)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	logrus.WithFields(logrus.Fields{
		"function": "runServe",
		"addr":     cfg.ListenAddr,
		"origins":  cfg.AllowedOrigins,
	}).Info("Listening for WebSocket clients")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func openStore(c *cli.Context) (store.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return qbridge.OpenStore(cfg, vaultPassword(c))
}

func walletCreate(c *cli.Context) error {
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := wallet.Load(c.Context, st); err == nil {
		return errors.New("a wallet already exists in this store")
	} else if !errors.Is(err, wallet.ErrNoWallet) {
		return err
	}
	w, err := wallet.Create(c.Context, st)
	if err != nil {
		return err
	}
	return printWallet(w)
}

func walletImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument: <seed58>")
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := wallet.Import(c.Context, st, c.Args().First(), c.String(nameFlag.Name))
	if err != nil {
		return err
	}
	return printWallet(w)
}

func walletShow(c *cli.Context) error {
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := wallet.Load(c.Context, st)
	if err != nil {
		return err
	}
	return printWallet(w)
}

func printWallet(w *wallet.Wallet) error {
	_, err := fmt.Printf("address:    %s\npublic key: %s\n", w.Address(), w.PublicKey())
	if err == nil && w.Name() != "" {
		_, err = fmt.Printf("name:       %s\n", w.Name())
	}
	return err
}
