package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "veil/pkg/domain"
)

// RedisWindow is a sliding-window post counter over Redis sorted sets. It
// exists for multi-node deployments where the rolling recount should not hit
// the primary database on every post attempt; the posts table stays the
// system of record.
//
// One sorted set per persona, member per post, scored by unix nanos. Entries
// older than the retention horizon are trimmed on every write.
type RedisWindow struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisWindow(client *redis.Client, retention time.Duration) *RedisWindow {
	return &RedisWindow{client: client, retention: retention}
}

func windowKey(personaID id.PersonaID) string {
	return "veil:postwindow:" + personaID.String()
}

// Record registers a post occurrence for the persona.
func (s *RedisWindow) Record(ctx context.Context, personaID id.PersonaID, at time.Time) error {
	key := windowKey(personaID)
	pipe := s.client.TxPipeline()
	// The member carries a random suffix so that two posts landing in the
	// same nanosecond stay distinct entries.
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: fmt.Sprintf("%d:%s", at.UnixNano(), uuid.NewString()),
	})
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", at.Add(-s.retention).UnixNano()))
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record post window entry: %w", err)
	}
	return nil
}

func (s *RedisWindow) CountByPersonaSince(ctx context.Context, personaID id.PersonaID, since time.Time) (int, error) {
	n, err := s.client.ZCount(ctx, windowKey(personaID),
		fmt.Sprintf("%d", since.UnixNano()), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count post window entries: %w", err)
	}
	return int(n), nil
}

func (s *RedisWindow) CountByPersonasSince(ctx context.Context, personaIDs []id.PersonaID, since time.Time) (int, error) {
	total := 0
	for _, pid := range personaIDs {
		n, err := s.CountByPersonaSince(ctx, pid, since)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
