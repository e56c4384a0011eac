package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/scoreboard/pkg/scoreboard"
)

const redisBoardsKey = "boards"

// RedisStore keeps each snapshot as JSON under its own key with a TTL, and
// the known board ids in a set.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(boardID string) string {
	return fmt.Sprintf("board:%s:snapshot", boardID)
}

func (s *RedisStore) Save(ctx context.Context, boardID string, snap scoreboard.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(boardID), b, s.ttl)
		pipe.SAdd(ctx, redisBoardsKey, boardID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", boardID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, boardID string) (scoreboard.Snapshot, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(boardID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return scoreboard.Snapshot{}, false, nil
	}
	if err != nil {
		return scoreboard.Snapshot{}, false, fmt.Errorf("redis load %s: %w", boardID, err)
	}

	var snap scoreboard.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return scoreboard.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", boardID, err)
	}
	return snap, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, boardID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(boardID))
		pipe.SRem(ctx, redisBoardsKey, boardID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", boardID, err)
	}
	return nil
}

// List returns the ids whose snapshot has not expired yet. Ids of expired
// snapshots are dropped from the set on the way.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, redisBoardsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list boards: %w", err)
	}

	exists := make([]*redis.IntCmd, len(members))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range members {
			exists[i] = pipe.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis exists: %w", err)
	}

	ids := make([]string, 0, len(members))
	var stale []any
	for i, id := range members {
		if exists[i].Val() == 0 {
			stale = append(stale, id)
			continue
		}
		ids = append(ids, id)
	}
	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, redisBoardsKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis prune boards: %w", err)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
