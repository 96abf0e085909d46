// Package workers runs the dashboard's periodic jobs.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewards-dashboard/models"
	"rewards-dashboard/services"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

const jobTimeout = 30 * time.Second

type LotteryDrawer interface {
	Draw(ctx context.Context) ([]models.LotteryWinner, error)
}

type LeaderboardWarmer interface {
	Warm(ctx context.Context) error
}

type SessionSweeper interface {
	SweepIdle(ctx context.Context) (int, error)
}

type Cleaner interface {
	Cleanup()
}

// Jobs are the collaborators the scheduler drives. Nil members are skipped.
type Jobs struct {
	Lottery         LotteryDrawer
	LotterySchedule string
	Leaderboard     LeaderboardWarmer
	Sessions        SessionSweeper
	RateLimiter     Cleaner
}

// Scheduler wraps a gocron scheduler running in UTC.
type Scheduler struct {
	sched gocron.Scheduler
	jobs  Jobs
}

// NewScheduler registers every job but does not start them.
func NewScheduler(jobs Jobs) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{sched: sched, jobs: jobs}

	if jobs.Lottery != nil && jobs.LotterySchedule != "" {
		if err := s.add("lottery-draw", gocron.CronJob(jobs.LotterySchedule, false), s.DrawLottery); err != nil {
			return nil, err
		}
	}
	if jobs.Leaderboard != nil {
		if err := s.add("leaderboard-warmup", gocron.DurationJob(time.Minute), s.WarmLeaderboard); err != nil {
			return nil, err
		}
	}
	if jobs.Sessions != nil {
		if err := s.add("extension-sweep", gocron.DurationJob(time.Minute), s.SweepSessions); err != nil {
			return nil, err
		}
	}
	if jobs.RateLimiter != nil {
		if err := s.add("ratelimit-cleanup", gocron.DurationJob(10*time.Minute), func(context.Context) {
			jobs.RateLimiter.Cleanup()
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, fn func(ctx context.Context)) error {
	_, err := s.sched.NewJob(
		def,
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			fn(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.sched.Shutdown()
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.WithField("jobs", s.JobNames()).Info("⏰ Scheduler started")
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// DrawLottery runs one scheduled draw. No entrants is not an error.
func (s *Scheduler) DrawLottery(ctx context.Context) {
	winners, err := s.jobs.Lottery.Draw(ctx)
	if errors.Is(err, services.ErrNoEntrants) {
		log.Info("🎰 Lottery skipped: no eligible entrants")
		return
	}
	if err != nil {
		log.WithError(err).Error("[Scheduler] lottery draw failed")
		return
	}
	log.WithField("winners", len(winners)).Info("🎰 Scheduled lottery drawn")
}

func (s *Scheduler) WarmLeaderboard(ctx context.Context) {
	if err := s.jobs.Leaderboard.Warm(ctx); err != nil {
		log.WithError(err).Warn("[Scheduler] leaderboard warm-up failed")
	}
}

func (s *Scheduler) SweepSessions(ctx context.Context) {
	if _, err := s.jobs.Sessions.SweepIdle(ctx); err != nil {
		log.WithError(err).Warn("[Scheduler] extension sweep failed")
	}
}
