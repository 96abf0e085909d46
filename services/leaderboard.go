package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// ErrCacheMiss is returned by a LeaderboardCache when nothing is stored for the key.
var ErrCacheMiss = errors.New("cache miss")

// LeaderboardCache stores rendered leaderboard pages.
type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Set(ctx context.Context, limit int, entries []models.LeaderboardEntry, ttl time.Duration) error
}

// RedisLeaderboardCache keeps leaderboard pages as JSON under leaderboard:top:{limit}.
type RedisLeaderboardCache struct {
	client *redis.Client
}

// NewRedisLeaderboardCache connects to redisURL and pings it once.
func NewRedisLeaderboardCache(ctx context.Context, redisURL string) (*RedisLeaderboardCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLeaderboardCache{client: client}, nil
}

// NewRedisLeaderboardCacheFromClient wraps an existing client.
func NewRedisLeaderboardCacheFromClient(client *redis.Client) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client}
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("leaderboard:top:%d", limit)
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	raw, err := c.client.Get(ctx, leaderboardKey(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode cached leaderboard: %w", err)
	}
	return entries, nil
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, limit int, entries []models.LeaderboardEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, leaderboardKey(limit), raw, ttl).Err()
}

func (c *RedisLeaderboardCache) Close() error {
	return c.client.Close()
}

// LeaderboardService ranks users by points, then tasks completed, then join time.
type LeaderboardService struct {
	store store.Store
	cache LeaderboardCache
	ttl   time.Duration
}

func NewLeaderboardService(st store.Store, cache LeaderboardCache, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{store: st, cache: cache, ttl: ttl}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// Top returns the first limit users. Cache failures fall back to the store.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = clampLimit(limit)
	if s.cache != nil {
		entries, err := s.cache.Get(ctx, limit)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.WithError(err).Warn("leaderboard cache read failed")
		}
	}
	return s.refresh(ctx, limit)
}

func (s *LeaderboardService) refresh(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	users, err := s.store.TopUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	entries := make([]models.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, models.LeaderboardEntry{
			Rank:           int64(i + 1),
			WalletAddress:  u.WalletAddress,
			Username:       displayName(&u),
			Points:         u.Points,
			TasksCompleted: u.TasksCompleted,
		})
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, limit, entries, s.ttl); err != nil {
			log.WithError(err).Warn("leaderboard cache write failed")
		}
	}
	return entries, nil
}

// Warm recomputes the default page into the cache.
func (s *LeaderboardService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	_, err := s.refresh(ctx, DefaultLeaderboardLimit)
	return err
}

// Rank returns wallet's position; rank is 1 plus the number of users strictly ahead.
func (s *LeaderboardService) Rank(ctx context.Context, wallet string) (*models.UserRank, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	ahead, err := s.store.CountUsersAhead(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("count users ahead: %w", err)
	}
	total, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	rank := ahead + 1
	r := &models.UserRank{
		WalletAddress: user.WalletAddress,
		Rank:          rank,
		Points:        user.Points,
		TotalUsers:    total,
	}
	if total > 0 {
		r.Percentile = float64(rank) / float64(total) * 100
	}
	return r, nil
}

func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return utils.ShortWallet(u.WalletAddress)
}
