// Package qbridge is the trust boundary between untrusted web applications
// and a Qortal wallet.
//
// Pages send request envelopes over a channel (browser native messaging on
// stdio, or a local WebSocket). Each request names an action; the bridge asks
// the user for consent where the action needs it, signs with the wallet key,
// and talks to a Qortal node over its REST API. The bridge holds the only
// copy of the wallet key and never returns it to a page.
//
// # Getting Started
//
//	cfg, err := config.Load("qbridge.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	b, err := qbridge.New(ctx, qbridge.Options{Config: cfg})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	// native messaging host
//	err = b.ServeStdio(ctx, os.Stdin, os.Stdout)
//
// # Packages
//
//   - bridge: envelopes, channels, the dispatcher and the page-side caller
//   - handlers: one handler per action
//   - permission: consent prompts and remembered approvals
//   - groupkey: cached group encryption keys resolved from QDN
//   - transaction: typed transaction encoding and signing
//   - node: the node REST client
//   - wallet, store, crypto, retry, limits, config: supporting layers
package qbridge
