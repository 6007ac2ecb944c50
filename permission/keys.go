package permission

import "strings"

// Record key prefixes. Every key is scoped to a calling application, and
// wallet balance keys also to a coin; an empty app name yields no key.
const (
	autoAuthPrefix      = "qAPPAutoAuth-"
	sendChatPrefix      = "qAPPSendChatMessage-"
	walletBalancePrefix = "qAPPAutoWalletBalance-"
	listsPrefix         = "qAPPAutoLists-"
	primaryNamePrefix   = "qAPPAutoGetPrimaryName-"
)

// AutoAuthKey scopes automatic account authentication to app.
func AutoAuthKey(app string) string { return scoped(autoAuthPrefix, app) }

// SendChatKey scopes automatic chat sending to app.
func SendChatKey(app string) string { return scoped(sendChatPrefix, app) }

// ListsKey scopes automatic list edits to app.
func ListsKey(app string) string { return scoped(listsPrefix, app) }

// PrimaryNameKey scopes automatic primary name lookups to app.
func PrimaryNameKey(app string) string { return scoped(primaryNamePrefix, app) }

// WalletBalanceKey scopes automatic balance reads to app and coin.
func WalletBalanceKey(app, coin string) string {
	if app == "" || coin == "" {
		return ""
	}
	return walletBalancePrefix + app + "-" + strings.ToUpper(coin)
}

func scoped(prefix, app string) string {
	if app == "" {
		return ""
	}
	return prefix + app
}
