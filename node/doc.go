// Package node is a thin client for the Qortal core REST API.
//
// A [Client] is bound to one base URL and holds no other state. Failed calls
// return *[Error] carrying the HTTP status and, when the node supplied one,
// its own error message:
//
//	client := node.New(node.Config{BaseURL: "http://127.0.0.1:12391"})
//	balance, err := client.Balance(ctx, address)
//	var nodeErr *node.Error
//	if errors.As(err, &nodeErr) {
//	    // nodeErr.Message is the node's wording
//	}
//
// [Client.IsPublic] reports whether the base URL is one of the configured
// public gateways; callers refuse wallet-local operations on those.
package node
