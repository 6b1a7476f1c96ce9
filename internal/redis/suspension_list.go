package redis

import (
	"context"
	"fmt"
	"time"

	"campusnet/internal/auth"

	"github.com/redis/go-redis/v9"
)

// redisSuspensionList is the Redis implementation of
// auth.SuspensionList. Entries expire on their own when the suspension
// window ends.
type redisSuspensionList struct {
	client *redis.Client
}

// NewRedisSuspensionList creates a new redisSuspensionList instance.
func NewRedisSuspensionList(client *redis.Client) auth.SuspensionList {
	return &redisSuspensionList{client: client}
}

const suspensionKeyPrefix = "susp:uid:"

// Suspend adds the uid to the deny list with a TTL matching the
// suspension window.
func (r *redisSuspensionList) Suspend(ctx context.Context, uid string, until time.Time) error {
	duration := time.Until(until)
	if duration <= 0 {
		// Window already over; nothing to store.
		return nil
	}

	key := suspensionKeyPrefix + uid
	if err := r.client.Set(ctx, key, "suspended", duration).Err(); err != nil {
		return fmt.Errorf("failed to add %s to suspension list: %w", uid, err)
	}
	return nil
}

// IsSuspended checks whether the uid is on the deny list.
func (r *redisSuspensionList) IsSuspended(ctx context.Context, uid string) (bool, error) {
	key := suspensionKeyPrefix + uid
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil // key absent, not suspended
	}
	if err != nil {
		return false, fmt.Errorf("failed to check suspension list for %s: %w", uid, err)
	}
	return val == "suspended", nil
}
