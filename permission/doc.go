// Package permission implements the consent gate in front of privileged
// actions.
//
// A [Gate] asks a [Prompter] (normally the request dispatcher) to show a
// [Prompt] and waits for the answer. An unanswered prompt resolves to "not
// accepted" after [DefaultTimeout].
//
// "Always allow" answers are persisted in the store as boolean records under
// keys built by [AutoAuthKey], [SendChatKey], [WalletBalanceKey], [ListsKey]
// and [PrimaryNameKey]. Keys are always scoped to the calling application, so
// approving one app never approves another:
//
//	skipped, err := gate.Authorize(ctx, permission.SendChatKey(app), prompt, fromExt)
//	if errors.Is(err, permission.ErrDeclined) {
//	    // user said no, or did not answer in time
//	}
package permission
