// Package handlers implements one handler per bridge action.
//
// Every handler follows the same steps: validate the payload, gather the
// on-chain context a prompt needs (fees, names, group and trade records),
// ask the permission gate, then act. Acting usually means signing a typed
// transaction with the wallet key and broadcasting it through the node under
// the retry policy. Handlers that need a local node check for a public
// gateway before making any node call.
//
//	set := handlers.New(handlers.Deps{Node: client, Wallet: w, Gate: gate, Keys: keys})
//	if err := set.Register(registry); err != nil {
//		return err
//	}
package handlers
