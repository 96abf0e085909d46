// Package services holds the dashboard's business rules. Handlers stay thin: they decode a request,
// call one service method and map its error to a status code.
package services

import (
	"context"
	"crypto/rand"
	"io"
	"mime/multipart"
	"time"

	"rewards-dashboard/config"
	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	"github.com/google/uuid"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Uploader stores an uploaded image and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error)
}

// Options wires the services together.
type Options struct {
	Rewards        config.RewardConfig
	Lottery        config.LotteryConfig
	AdminWallets   []string
	AdminBypassKey string
	Cache          LeaderboardCache
	CacheTTL       time.Duration
	Uploader       Uploader
	Clock          Clock
	Random         io.Reader
}

// Services is the full set of domain services sharing one store.
type Services struct {
	Users        *UserService
	Tasks        *TaskService
	CheckIns     *CheckInService
	Achievements *AchievementService
	Leaderboard  *LeaderboardService
	Extension    *ExtensionService
	Lottery      *LotteryService
	Opinions     *OpinionService
	Admin        *AdminService
}

func New(st store.Store, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}

	achievements := NewAchievementService(st, opts.Uploader, opts.Clock)
	rw := &rewarder{clock: opts.Clock, achievements: achievements}

	return &Services{
		Users:        NewUserService(st, rw, opts.Rewards),
		Tasks:        NewTaskService(st, rw, opts.Uploader, opts.Rewards.TaskDefaultPoints, opts.Clock),
		CheckIns:     NewCheckInService(st, rw, opts.Rewards, opts.Clock),
		Achievements: achievements,
		Leaderboard:  NewLeaderboardService(st, opts.Cache, opts.CacheTTL),
		Extension:    NewExtensionService(st, rw, opts.Rewards, opts.Clock),
		Lottery:      NewLotteryService(st, rw, opts.Lottery, opts.Random, opts.Clock),
		Opinions:     NewOpinionService(st),
		Admin:        NewAdminService(st, rw, opts.AdminWallets, opts.AdminBypassKey, opts.Clock),
	}
}

// userByWallet normalizes wallet and loads its user.
func userByWallet(ctx context.Context, st store.Store, wallet string) (*models.User, error) {
	addr, err := utils.NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	u, err := st.UserByWallet(ctx, addr)
	if err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	return u, nil
}

// checkID rejects ids that cannot exist so they never reach a uuid column.
func checkID(id string, notFound error) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	return nil
}
