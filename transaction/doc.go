// Package transaction encodes and signs chain transactions.
//
// Callers describe a transaction with a typed parameter record and a
// [Header]; [Codec.Sign] produces signed bytes ready for
// /transactions/process:
//
//	signed, err := codec.Sign(ctx, transaction.Header{Fee: fee, Reference: lastRef},
//	    transaction.GroupParams{Kind: transaction.JoinGroup, GroupID: 42}, wallet)
//	_, err = client.ProcessTransaction(ctx, signed.Base58())
//
// Every encoded transaction starts with the same 112-byte header:
//
//	type(4) | timestamp(8) | txGroupId(4) | reference(64) | creator public key(32)
//
// followed by the type-specific body and the fee, and ends with a 64-byte
// Ed25519 signature over everything before it.
//
// Chat transactions carry a proof-of-work nonce. [ComputeNonce] searches for a
// nonce whose work hash has [DefaultChatDifficulty] leading zero bits and
// checks the context between batches.
package transaction
