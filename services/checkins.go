package services

import (
	"context"
	"errors"
	"time"

	"rewards-dashboard/config"
	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	log "github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

// Day returns the UTC calendar date of t in check-in format.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// CheckInService handles the once-per-UTC-day check-in and its streak.
type CheckInService struct {
	store   store.Store
	rewards *rewarder
	cfg     config.RewardConfig
	clock   Clock
}

func NewCheckInService(st store.Store, rw *rewarder, cfg config.RewardConfig, clock Clock) *CheckInService {
	return &CheckInService{store: st, rewards: rw, cfg: cfg, clock: clock}
}

// CheckInResult is returned by CheckIn.
type CheckInResult struct {
	CheckIn *models.CheckIn `json:"checkIn"`
	User    *models.User    `json:"user"`
	Receipt *Receipt        `json:"receipt"`
}

// RewardFor returns the points for the given streak day (1-based).
func (s *CheckInService) RewardFor(streak int) int64 {
	bonusDays := streak - 1
	if bonusDays < 0 {
		bonusDays = 0
	}
	if bonusDays > s.cfg.CheckInStreakCap {
		bonusDays = s.cfg.CheckInStreakCap
	}
	return s.cfg.CheckInBasePoints + int64(bonusDays)*s.cfg.CheckInStreakBonus
}

// nextStreak is the streak a check-in today would produce.
func nextStreak(u *models.User, yesterday string) int {
	if u.LastCheckInDay == yesterday {
		return u.CheckInStreak + 1
	}
	return 1
}

// CheckIn records today's check-in for wallet.
func (s *CheckInService) CheckIn(ctx context.Context, wallet string) (*CheckInResult, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	today := Day(now)
	yesterday := Day(now.AddDate(0, 0, -1))
	if user.LastCheckInDay == today {
		return nil, ErrAlreadyCheckedIn
	}

	streak := nextStreak(user, yesterday)
	checkIn := &models.CheckIn{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		Day:           today,
		Streak:        streak,
		PointsAwarded: s.RewardFor(streak),
		CreatedAt:     now,
	}

	rc := &Receipt{}
	err = s.store.Tx(ctx, func(tx store.Store) error {
		if err := tx.CreateCheckIn(ctx, checkIn); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyCheckedIn
			}
			return err
		}
		if err := tx.SetCheckInState(ctx, user.ID, streak, today); err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		return s.rewards.Grant(ctx, tx, rc, grant{
			UserID:    user.ID,
			Source:    models.SourceCheckIn,
			Points:    checkIn.PointsAwarded,
			Reference: today,
		})
	})
	if err != nil {
		return nil, err
	}
	rc.publish()

	updated, err := s.store.UserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"wallet": utils.ShortWallet(user.WalletAddress),
		"streak": streak,
		"points": checkIn.PointsAwarded,
	}).Info("📅 Daily check-in")
	return &CheckInResult{CheckIn: checkIn, User: updated, Receipt: rc}, nil
}

// Status reports today's check-in state for wallet. A streak that was not continued yesterday reads
// as zero.
func (s *CheckInService) Status(ctx context.Context, wallet string) (*models.CheckInStatus, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	today := Day(now)
	yesterday := Day(now.AddDate(0, 0, -1))

	st := &models.CheckInStatus{
		CheckedInToday: user.LastCheckInDay == today,
		LastCheckInDay: user.LastCheckInDay,
	}
	switch user.LastCheckInDay {
	case today, yesterday:
		st.Streak = user.CheckInStreak
		st.NextReward = s.RewardFor(user.CheckInStreak + 1)
	default:
		st.NextReward = s.RewardFor(1)
	}
	return st, nil
}
