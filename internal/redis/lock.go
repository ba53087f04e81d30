package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Lock struct {
	Client *redis.Client
}

func NewLock(client *redis.Client) *Lock {
	return &Lock{Client: client}
}

// Deliveries held longer than this are presumed dead; the provider's retry
// takes over and the idempotency gate in storage keeps the retry safe.
const deliveryTTL = 10 * time.Minute

// Acquire claims a webhook session for this delivery. A false return means
// another delivery of the same session is in flight. This is an optimization
// only; the unique constraint in storage is the correctness mechanism.
func (l *Lock) Acquire(sessionID string) (bool, error) {
	key := "webhook_delivery:" + sessionID
	return l.Client.SetNX(context.Background(), key, "1", deliveryTTL).Result()
}

// Release frees the claim after a failed delivery so the provider's retry
// is not locked out for the full TTL.
func (l *Lock) Release(sessionID string) error {
	key := "webhook_delivery:" + sessionID
	err := l.Client.Del(context.Background(), key).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}
