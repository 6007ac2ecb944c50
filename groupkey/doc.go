// Package groupkey resolves and caches the symmetric key sets of private groups.
//
// Group content is encrypted with a [crypto.SecretKeyObject] that admins
// publish to QDN, wrapped for every recipient in a group envelope. Two key
// sets exist per group:
//
//   - the member set, published as symmetric-qchat-group-<id> by any admin
//   - the admin set, published as admins-symmetric-qchat-group-<id> by an
//     admin or the owner
//
// Both are resolved by the same routine: a cached entry younger than the TTL
// is returned without network I/O; otherwise the publishers' names are
// enumerated, the most recent publish is selected by updated (falling back to
// created) time, fetched, decrypted with the wallet key and validated. Any
// failure leaves the previous entry untouched.
//
// Two requests racing on an expired entry may both rebuild it. They converge
// on the same key material and the last write wins.
package groupkey
