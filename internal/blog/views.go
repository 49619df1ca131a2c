package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	viewedSetKeyPrefix = "devpy-service-viewed||"
	viewedSetTTL       = 24 * time.Hour
)

// ViewTracker remembers which posts a viewer session already opened,
// so repeat visits within the same session count a view only once.
type ViewTracker struct {
	redisClient *redis.Client
}

func NewViewTracker(redisClient *redis.Client) *ViewTracker {
	return &ViewTracker{
		redisClient: redisClient,
	}
}

// FirstViewInSession marks the post as seen by the session and reports
// whether this was the first time. The per-session set expires on its
// own, there is nothing to clean up.
func (t *ViewTracker) FirstViewInSession(ctx context.Context, sessionID, postID string) (bool, error) {
	key := fmt.Sprintf("%s%s", viewedSetKeyPrefix, sessionID)

	added, err := t.redisClient.SAdd(ctx, key, postID).Result()
	if err != nil {
		return false, fmt.Errorf("mark post viewed: %w", err)
	}

	if err := t.redisClient.Expire(ctx, key, viewedSetTTL).Err(); err != nil {
		return false, fmt.Errorf("set viewed set ttl: %w", err)
	}

	return added == 1, nil
}
