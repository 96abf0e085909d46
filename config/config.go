// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is decoded from the process environment (optionally seeded by a .env file).
type Config struct {
	Port           string `env:"PORT,default=5200"`
	DatabaseURL    string `env:"DATABASE_URL"`
	StorageDriver  string `env:"STORAGE_DRIVER,default=postgres"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	LogFormat      string `env:"LOG_FORMAT,default=text"`

	AdminWallets   string `env:"ADMIN_WALLETS"`
	AdminBypassKey string `env:"ADMIN_BYPASS_KEY"`

	RedisURL            string        `env:"REDIS_URL"`
	LeaderboardCacheTTL time.Duration `env:"LEADERBOARD_CACHE_TTL,default=1m"`

	R2 R2Config

	Rewards RewardConfig

	Lottery LotteryConfig

	RateLimitRPS   int `env:"RATE_LIMIT_RPS,default=10"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST,default=20"`
}

// R2Config holds the Cloudflare R2 (S3-compatible) credentials used for image uploads.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough R2 settings are present to build a client.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// RewardConfig tunes how many points each action is worth.
type RewardConfig struct {
	TaskDefaultPoints        int64         `env:"TASK_DEFAULT_POINTS,default=50"`
	CheckInBasePoints        int64         `env:"CHECKIN_BASE_POINTS,default=10"`
	CheckInStreakBonus       int64         `env:"CHECKIN_STREAK_BONUS,default=5"`
	CheckInStreakCap         int           `env:"CHECKIN_STREAK_CAP,default=6"`
	ReferrerPoints           int64         `env:"REFERRAL_REFERRER_POINTS,default=100"`
	RefereePoints            int64         `env:"REFERRAL_REFEREE_POINTS,default=50"`
	ProfileCompletionPoints  int64         `env:"PROFILE_COMPLETION_POINTS,default=200"`
	ExtensionPointsPerMinute int64         `env:"EXTENSION_POINTS_PER_MINUTE,default=1"`
	ExtensionMaxSyncGap      time.Duration `env:"EXTENSION_MAX_SYNC_GAP,default=5m"`
	ExtensionIdleTimeout     time.Duration `env:"EXTENSION_IDLE_TIMEOUT,default=10m"`
}

// LotteryConfig configures the periodic points lottery.
type LotteryConfig struct {
	Winners     int    `env:"LOTTERY_WINNERS,default=3"`
	PrizePoints int64  `env:"LOTTERY_PRIZE_POINTS,default=500"`
	MinPoints   int64  `env:"LOTTERY_MIN_POINTS,default=100"`
	Schedule    string `env:"LOTTERY_SCHEDULE,default=0 0 * * 1"`
}

// DefaultRewards mirrors the env defaults and is used where no environment is loaded (tests, tools).
var DefaultRewards = RewardConfig{
	TaskDefaultPoints:        50,
	CheckInBasePoints:        10,
	CheckInStreakBonus:       5,
	CheckInStreakCap:         6,
	ReferrerPoints:           100,
	RefereePoints:            50,
	ProfileCompletionPoints:  200,
	ExtensionPointsPerMinute: 1,
	ExtensionMaxSyncGap:      5 * time.Minute,
	ExtensionIdleTimeout:     10 * time.Minute,
}

// Load reads .env (if any) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envdecode cannot express.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.Lottery.Winners < 1 {
		return errors.New("LOTTERY_WINNERS must be at least 1")
	}
	if c.Rewards.CheckInStreakCap < 0 {
		return errors.New("CHECKIN_STREAK_CAP must not be negative")
	}
	return nil
}

// Origins returns the trimmed, comma separated CORS origins.
func (c *Config) Origins() string {
	return strings.Join(SplitList(c.AllowedOrigins), ",")
}

// AdminWalletList returns the configured admin allow-list entries.
func (c *Config) AdminWalletList() []string {
	return SplitList(c.AdminWallets)
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
