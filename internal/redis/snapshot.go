package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
)

const (
	directoryKey = "explorer:directory"
	levelsKey    = "explorer:levels"
)

// SnapshotCache keeps advisory copies of chain reads: per-address profile and
// game-list snapshots, plus the explorer directory and its level ranking
type SnapshotCache struct {
	client *redis.Client
	cfg    *config.RedisConfig
	logger *slog.Logger
}

// NewSnapshotCache connects to Redis
func NewSnapshotCache(cfg *config.RedisConfig, logger *slog.Logger) (*SnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SnapshotCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *SnapshotCache) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *SnapshotCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SnapshotKey returns the "<namespace>_<address>" key of a snapshot
func SnapshotKey(namespace, address string) string {
	return fmt.Sprintf("%s_%s", namespace, address)
}

func (s *SnapshotCache) profileKey(address string) string {
	return SnapshotKey(s.cfg.ProfileNamespace, address)
}

func (s *SnapshotCache) gamesKey(address string) string {
	return SnapshotKey(s.cfg.GamesNamespace, address)
}

func (s *SnapshotCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// getJSON returns false when the key is absent
func (s *SnapshotCache) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetProfile stores the profile snapshot of an address
func (s *SnapshotCache) SetProfile(ctx context.Context, address string, profile domain.Profile) error {
	return s.setJSON(ctx, s.profileKey(address), profile, s.cfg.SnapshotTTL)
}

// SetGames stores the game-list snapshot of an address
func (s *SnapshotCache) SetGames(ctx context.Context, address string, games []domain.Game) error {
	return s.setJSON(ctx, s.gamesKey(address), games, s.cfg.SnapshotTTL)
}

// DeleteAddress drops both snapshots of an address
func (s *SnapshotCache) DeleteAddress(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, s.profileKey(address), s.gamesKey(address)).Err(); err != nil {
		return fmt.Errorf("deleting snapshots: %w", err)
	}
	return nil
}

// SetDirectory stores the explorer directory and rebuilds the level ranking
func (s *SnapshotCache) SetDirectory(ctx context.Context, entries []domain.DirectoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding directory: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, directoryKey, data, s.cfg.DirectoryTTL)
	pipe.Del(ctx, levelsKey)
	if len(entries) > 0 {
		members := make([]redis.Z, len(entries))
		for i, e := range entries {
			members[i] = redis.Z{Score: float64(e.Level), Member: e.ProfileID}
		}
		pipe.ZAdd(ctx, levelsKey, members...)
		if s.cfg.DirectoryTTL > 0 {
			pipe.Expire(ctx, levelsKey, s.cfg.DirectoryTTL)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing directory: %w", err)
	}
	return nil
}

// GetDirectory returns the cached directory. The second result is false on a miss.
func (s *SnapshotCache) GetDirectory(ctx context.Context) ([]domain.DirectoryEntry, bool, error) {
	var entries []domain.DirectoryEntry
	ok, err := s.getJSON(ctx, directoryKey, &entries)
	return entries, ok, err
}

// InvalidateDirectory drops the cached directory and ranking
func (s *SnapshotCache) InvalidateDirectory(ctx context.Context) error {
	if err := s.client.Del(ctx, directoryKey, levelsKey).Err(); err != nil {
		return fmt.Errorf("invalidating directory: %w", err)
	}
	return nil
}

// TopByLevel returns the profile ids of the n highest-level developers
func (s *SnapshotCache) TopByLevel(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := s.client.ZRevRange(ctx, levelsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top by level: %w", err)
	}
	return ids, nil
}
