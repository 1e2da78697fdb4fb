// gateway/numbering.go
package gateway

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisNumbering issues human-readable codes from a per-series, per-tenant
// Redis counter. INCR is atomic, so concurrent creations never share a code.
type RedisNumbering struct {
	rdb *redis.Client
}

func NewRedisNumbering(rdb *redis.Client) *RedisNumbering {
	return &RedisNumbering{rdb: rdb}
}

func seriesKey(series, tenantID string) string {
	return fmt.Sprintf("numbering:%s:%s", tenantID, series)
}

func (n *RedisNumbering) NextCode(ctx context.Context, series, tenantID string) (string, error) {
	seq, err := n.rdb.Incr(ctx, seriesKey(series, tenantID)).Result()
	if err != nil {
		return "", fmt.Errorf("numbering: %w", err)
	}
	return fmt.Sprintf("%s-%04d", series, seq), nil
}
