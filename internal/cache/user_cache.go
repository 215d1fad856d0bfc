package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// OnlineUsersTTL matches the hub's pong timeout, so a crashed connection ages
// out of the cache on roughly the same clock it ages out of the registry.
const OnlineUsersTTL = 90 * time.Second

// UserCache mirrors hub presence into Redis so presence survives process
// restarts long enough for dashboards and peers to read it. The in-process
// registry remains the source of truth for live delivery.
type UserCache struct {
	redis *RedisCache
}

func NewUserCache(redis *RedisCache) *UserCache {
	return &UserCache{redis: redis}
}

func (uc *UserCache) SetUserOnline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	ctx := context.Background()
	if err := uc.redis.SetAdd(ctx, "online:users", userID); err != nil {
		return err
	}
	return uc.redis.Set(ctx, onlineKey(userID), []byte("1"), OnlineUsersTTL)
}

func (uc *UserCache) SetUserOffline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	ctx := context.Background()
	if err := uc.redis.SetRemove(ctx, "online:users", userID); err != nil {
		return err
	}
	return uc.redis.Delete(ctx, onlineKey(userID))
}

func (uc *UserCache) IsUserOnline(userID uint) bool {
	if uc == nil || uc.redis == nil {
		return false
	}
	return uc.redis.Exists(context.Background(), onlineKey(userID))
}

func (uc *UserCache) GetOnlineUsers() ([]uint, error) {
	if uc == nil || uc.redis == nil {
		return nil, nil
	}
	members, err := uc.redis.SetMembers(context.Background(), "online:users")
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseUint(member, 10, 32); err == nil {
			userIDs = append(userIDs, uint(id))
		}
	}
	return userIDs, nil
}

func (uc *UserCache) GetOnlineCount() (int64, error) {
	if uc == nil || uc.redis == nil {
		return 0, nil
	}
	return uc.redis.SetCard(context.Background(), "online:users")
}

func onlineKey(userID uint) string {
	return fmt.Sprintf("online:%d", userID)
}
