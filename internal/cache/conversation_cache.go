package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/planora-app/planora-backend/internal/repository"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	ConversationListTTL = 2 * time.Minute
	UnreadCountTTL      = 1 * time.Minute
)

// ConversationCache stores each user's conversation list and unread totals,
// msgpack-encoded. Invalidated whenever a message is sent or a thread is
// acknowledged, on either side of the pair.
type ConversationCache struct {
	redis *RedisCache
}

func NewConversationCache(redis *RedisCache) *ConversationCache {
	return &ConversationCache{redis: redis}
}

func conversationListKey(userID uint) string {
	return fmt.Sprintf("convlist:%d", userID)
}

func unreadTotalKey(userID uint) string {
	return fmt.Sprintf("unread:%d", userID)
}

func (cc *ConversationCache) GetConversationList(userID uint) ([]repository.ConversationRow, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(context.Background(), conversationListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var rows []repository.ConversationRow
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (cc *ConversationCache) SetConversationList(userID uint, rows []repository.ConversationRow) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(rows)
	if err != nil {
		return err
	}
	return cc.redis.Set(context.Background(), conversationListKey(userID), data, ConversationListTTL)
}

func (cc *ConversationCache) GetUnreadTotal(userID uint) (int64, bool) {
	if cc == nil || cc.redis == nil {
		return 0, false
	}
	data, err := cc.redis.Get(context.Background(), unreadTotalKey(userID))
	if err != nil || data == nil {
		return 0, false
	}

	var total int64
	if err := msgpack.Unmarshal(data, &total); err != nil {
		return 0, false
	}
	return total, true
}

func (cc *ConversationCache) SetUnreadTotal(userID uint, total int64) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(total)
	if err != nil {
		return err
	}
	return cc.redis.Set(context.Background(), unreadTotalKey(userID), data, UnreadCountTTL)
}

// Invalidate drops both participants' cached lists and totals after any write
// that touches their thread.
func (cc *ConversationCache) Invalidate(userIDs ...uint) {
	if cc == nil || cc.redis == nil {
		return
	}
	keys := make([]string, 0, len(userIDs)*2)
	for _, id := range userIDs {
		keys = append(keys, conversationListKey(id), unreadTotalKey(id))
	}
	_ = cc.redis.Delete(context.Background(), keys...)
}
