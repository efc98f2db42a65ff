package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-pvp-server/internal/config"
	"github.com/redis/go-redis/v9"
)

// ResultsChannel receives every saved record as JSON.
const ResultsChannel = "pvp:results"

// RedisStore keeps recent results with a TTL and a capped per-player index.
type RedisStore struct {
	rdb          *redis.Client
	ttl          time.Duration
	historyLimit int
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, historyLimit int) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &RedisStore{rdb: rdb, ttl: ttl, historyLimit: historyLimit}
}

// OpenRedis dials redisURL and checks the connection.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	addr, password, db, err := config.ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func keyResult(id string) string     { return "pvp:result:" + strings.TrimSpace(id) }
func keyPlayerIdx(name string) string { return "pvp:index:player:" + strings.TrimSpace(name) }

func (s *RedisStore) Name() string { return "redis" }

// Save writes the record, indexes it under both players and publishes it.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, keyResult(rec.ID), raw, s.ttl)
	for _, name := range []string{rec.White, rec.Black} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		pipe.LPush(ctx, keyPlayerIdx(name), rec.ID)
		pipe.LTrim(ctx, keyPlayerIdx(name), 0, int64(s.historyLimit-1))
		pipe.Expire(ctx, keyPlayerIdx(name), s.ttl)
	}
	pipe.Publish(ctx, ResultsChannel, raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Get returns the stored record, or nil when it is unknown or expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, keyResult(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecentByPlayer returns the player's most recent results, newest first.
// Expired records are skipped.
func (s *RedisStore) RecentByPlayer(ctx context.Context, name string) ([]Record, error) {
	ids, err := s.rdb.LRange(ctx, keyPlayerIdx(name), 0, int64(s.historyLimit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if rec == nil {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}
