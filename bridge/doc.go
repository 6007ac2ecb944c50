// Package bridge implements the message protocol between untrusted pages and
// the wallet.
//
// Pages send a RequestEnvelope tagged "backgroundMessage" naming an Action.
// The Dispatcher decodes every message once at the channel boundary, routes
// requests for registered actions to their Handler in a separate goroutine,
// and answers each with exactly one ResponseEnvelope echoing the request id.
// Messages of any other shape, and requests for unknown actions, are dropped
// without a reply since the channel is shared with unrelated traffic.
//
// Handlers that need consent go through a permission.Gate whose Prompter is
// the Dispatcher: it sends QORTAL_REQUEST_PERMISSION on the request's channel
// under a fresh id and waits for the matching
// QORTAL_REQUEST_PERMISSION_RESPONSE. Waiting prompts are removed from the
// correlation table when answered, when the wait times out, and when the
// channel stops being served.
//
// Channels:
//
//   - Pipe: an in-memory pair, for embedding and tests
//   - StdioChannel: browser native-messaging framing over stdin/stdout
//   - WebSocketChannel: one JSON message per text frame, served by
//     WebSocketHandler behind an origin allow-list
//
// Caller is the page side of the protocol.
package bridge
