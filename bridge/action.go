package bridge

// Action names a request a page may send. The set is closed: requests for
// any other action are dropped without a reply.
type Action string

// Account and node actions.
const (
	ActionGetUserAccount          Action = "GET_USER_ACCOUNT"
	ActionIsUsingPublicNode       Action = "IS_USING_PUBLIC_NODE"
	ActionGetPrimaryName          Action = "GET_PRIMARY_NAME"
	ActionGetUserWallet           Action = "GET_USER_WALLET"
	ActionGetWalletBalance        Action = "GET_WALLET_BALANCE"
	ActionGetCrosschainServerInfo Action = "GET_CROSSCHAIN_SERVER_INFO"
	ActionGetTxActivitySummary    Action = "GET_TX_ACTIVITY_SUMMARY"
)

// Encryption actions.
const (
	ActionEncryptData               Action = "ENCRYPT_DATA"
	ActionDecryptData               Action = "DECRYPT_DATA"
	ActionEncryptQortalGroupData    Action = "ENCRYPT_QORTAL_GROUP_DATA"
	ActionDecryptQortalGroupData    Action = "DECRYPT_QORTAL_GROUP_DATA"
	ActionEncryptDataWithSharingKey Action = "ENCRYPT_DATA_WITH_SHARING_KEY"
	ActionDecryptDataWithSharingKey Action = "DECRYPT_DATA_WITH_SHARING_KEY"
	ActionDecryptAESGCM             Action = "DECRYPT_AESGCM"
)

// List actions.
const (
	ActionGetListItems   Action = "GET_LIST_ITEMS"
	ActionAddListItems   Action = "ADD_LIST_ITEMS"
	ActionDeleteListItem Action = "DELETE_LIST_ITEM"
)

// QDN actions.
const (
	ActionPublishQDNResource          Action = "PUBLISH_QDN_RESOURCE"
	ActionPublishMultipleQDNResources Action = "PUBLISH_MULTIPLE_QDN_RESOURCES"
	ActionGetHostedData               Action = "GET_HOSTED_DATA"
	ActionDeleteHostedData            Action = "DELETE_HOSTED_DATA"
)

// Poll and chat actions.
const (
	ActionCreatePoll      Action = "CREATE_POLL"
	ActionVoteOnPoll      Action = "VOTE_ON_POLL"
	ActionSendChatMessage Action = "SEND_CHAT_MESSAGE"
)

// Group actions.
const (
	ActionCreateGroup       Action = "CREATE_GROUP"
	ActionUpdateGroup       Action = "UPDATE_GROUP"
	ActionJoinGroup         Action = "JOIN_GROUP"
	ActionLeaveGroup        Action = "LEAVE_GROUP"
	ActionInviteToGroup     Action = "INVITE_TO_GROUP"
	ActionCancelGroupInvite Action = "CANCEL_GROUP_INVITE"
	ActionKickFromGroup     Action = "KICK_FROM_GROUP"
	ActionBanFromGroup      Action = "BAN_FROM_GROUP"
	ActionCancelGroupBan    Action = "CANCEL_GROUP_BAN"
	ActionAddGroupAdmin     Action = "ADD_GROUP_ADMIN"
	ActionRemoveGroupAdmin  Action = "REMOVE_GROUP_ADMIN"
)

// Name actions.
const (
	ActionRegisterName   Action = "REGISTER_NAME"
	ActionUpdateName     Action = "UPDATE_NAME"
	ActionSellName       Action = "SELL_NAME"
	ActionCancelSellName Action = "CANCEL_SELL_NAME"
	ActionBuyName        Action = "BUY_NAME"
)

// Coin, trade and miscellaneous actions.
const (
	ActionSendCoin             Action = "SEND_COIN"
	ActionCreateTradeBuyOrder  Action = "CREATE_TRADE_BUY_ORDER"
	ActionCreateTradeSellOrder Action = "CREATE_TRADE_SELL_ORDER"
	ActionCancelTradeSellOrder Action = "CANCEL_TRADE_SELL_ORDER"
	ActionSignTransaction      Action = "SIGN_TRANSACTION"
	ActionTransferAsset        Action = "TRANSFER_ASSET"
	ActionAdminAction          Action = "ADMIN_ACTION"
)

var allActions = []Action{
	ActionGetUserAccount,
	ActionIsUsingPublicNode,
	ActionGetPrimaryName,
	ActionGetUserWallet,
	ActionGetWalletBalance,
	ActionGetCrosschainServerInfo,
	ActionGetTxActivitySummary,
	ActionEncryptData,
	ActionDecryptData,
	ActionEncryptQortalGroupData,
	ActionDecryptQortalGroupData,
	ActionEncryptDataWithSharingKey,
	ActionDecryptDataWithSharingKey,
	ActionDecryptAESGCM,
	ActionGetListItems,
	ActionAddListItems,
	ActionDeleteListItem,
	ActionPublishQDNResource,
	ActionPublishMultipleQDNResources,
	ActionGetHostedData,
	ActionDeleteHostedData,
	ActionCreatePoll,
	ActionVoteOnPoll,
	ActionSendChatMessage,
	ActionCreateGroup,
	ActionUpdateGroup,
	ActionJoinGroup,
	ActionLeaveGroup,
	ActionInviteToGroup,
	ActionCancelGroupInvite,
	ActionKickFromGroup,
	ActionBanFromGroup,
	ActionCancelGroupBan,
	ActionAddGroupAdmin,
	ActionRemoveGroupAdmin,
	ActionRegisterName,
	ActionUpdateName,
	ActionSellName,
	ActionCancelSellName,
	ActionBuyName,
	ActionSendCoin,
	ActionCreateTradeBuyOrder,
	ActionCreateTradeSellOrder,
	ActionCancelTradeSellOrder,
	ActionSignTransaction,
	ActionTransferAsset,
	ActionAdminAction,
}

var knownActions = func() map[Action]struct{} {
	m := make(map[Action]struct{}, len(allActions))
	for _, a := range allActions {
		m[a] = struct{}{}
	}
	return m
}()

// AllActions returns every known action.
func AllActions() []Action {
	return append([]Action(nil), allActions...)
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

func (a Action) String() string { return string(a) }
