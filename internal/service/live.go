package service

// LivePush is the slice of the connection registry services use to deliver
// targeted events. Delivery is best-effort: pushing to a user with no open
// connections is a silent no-op, and durable state is never gated on it.
type LivePush interface {
	Push(userID uint, event string, data interface{}) error
	IsOnline(userID uint) bool
	OnlineUserIDs() []uint
}
