package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"finalscore/bot/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Successfully connected to Redis")
	return rdb, nil
}

// RedisStore keeps the baseline in one hash: field = game id, value = JSON record
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore creates a baseline store on the given hash key
func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

// Load returns every game in the hash
func (s *RedisStore) Load(ctx context.Context) ([]models.GameRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load baseline %s: %w", s.key, err)
	}

	games := make([]models.GameRecord, 0, len(fields))
	for gameID, raw := range fields {
		var g models.GameRecord
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("redis: decode game %s: %w", gameID, err)
		}
		games = append(games, g)
	}
	sortByGameID(games)

	return games, nil
}

// Save replaces the hash atomically
func (s *RedisStore) Save(ctx context.Context, games []models.GameRecord) error {
	values := make(map[string]interface{}, len(games))
	for _, g := range games {
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("redis: encode game %s: %w", g.GameID, err)
		}
		values[g.GameID] = data
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save baseline %s: %w", s.key, err)
	}

	return nil
}

// Clear removes the hash
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis: clear baseline %s: %w", s.key, err)
	}
	return nil
}
