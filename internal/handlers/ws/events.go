package ws

// Live event names pushed to a user's channel.
const (
	EventMessageNew      = "message:new"
	EventNotificationNew = "notification:new"
	EventUserBanned      = "user-banned"
	EventAccountDeleted  = "account-deleted"
	EventRoleChanged     = "role-changed"
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
)

// Event is the JSON envelope for every frame pushed to clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BanPayload carries enough for the client to force sign-out without a
// follow-up fetch.
type BanPayload struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	BanReason string `json:"ban_reason"`
}

type AccountDeletedPayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

type RoleChangedPayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	OldRole  string `json:"old_role"`
	NewRole  string `json:"new_role"`
}

type PresencePayload struct {
	UserID uint `json:"user_id"`
}

// MessagePayload wraps a new message with its sender id so the client can route
// it without unpacking the message first.
type MessagePayload struct {
	Message  interface{} `json:"message"`
	SenderID uint        `json:"sender_id"`
}
