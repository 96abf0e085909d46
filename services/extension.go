package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewards-dashboard/config"
	"rewards-dashboard/metrics"
	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	log "github.com/sirupsen/logrus"
)

// ExtensionService credits points for time the browser extension is connected and enabled.
type ExtensionService struct {
	store   store.Store
	rewards *rewarder
	cfg     config.RewardConfig
	clock   Clock
}

func NewExtensionService(st store.Store, rw *rewarder, cfg config.RewardConfig, clock Clock) *ExtensionService {
	return &ExtensionService{store: st, rewards: rw, cfg: cfg, clock: clock}
}

// SyncResult reports what one sync credited.
type SyncResult struct {
	Session *models.ExtensionSession `json:"session"`
	Minutes int64                    `json:"minutesCredited"`
	Points  int64                    `json:"pointsAwarded"`
	User    *models.User             `json:"user"`
	Receipt *Receipt                 `json:"receipt"`
}

// Connect opens a fresh session for wallet, closing any session still open.
func (s *ExtensionService) Connect(ctx context.Context, wallet string) (*models.ExtensionSession, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	session := &models.ExtensionSession{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		Active:        true,
		StartedAt:     now,
		LastSyncAt:    now,
	}

	err = s.store.Tx(ctx, func(tx store.Store) error {
		prev, err := tx.OpenSession(ctx, user.ID)
		switch {
		case err == nil:
			prev.Active = false
			prev.EndedAt = &now
			if err := tx.SaveSession(ctx, prev); err != nil {
				return fmt.Errorf("close previous session: %w", err)
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.refreshGauge(ctx)

	log.WithField("wallet", utils.ShortWallet(user.WalletAddress)).Info("🧩 Extension connected")
	return session, nil
}

// Toggle enables or pauses crediting on the open session. Pausing settles elapsed time first;
// resuming restarts the clock so paused time is never credited.
func (s *ExtensionService) Toggle(ctx context.Context, wallet string, enabled bool) (*SyncResult, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()

	res := &SyncResult{Receipt: &Receipt{}}
	expired := false
	err = s.store.Tx(ctx, func(tx store.Store) error {
		session, err := tx.OpenSession(ctx, user.ID)
		if err != nil {
			return notFoundAs(err, ErrNoSession)
		}
		if expired, err = s.expire(ctx, tx, session, now); expired || err != nil {
			return err
		}
		if session.Active == enabled {
			res.Session = session
			return nil
		}
		if enabled {
			session.LastSyncAt = now
		} else if err := s.settle(ctx, tx, res, session, now); err != nil {
			return err
		}
		session.Active = enabled
		res.Session = session
		return tx.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.refreshGauge(ctx)
		return nil, ErrNoSession
	}
	return s.finish(ctx, user.ID, res)
}

// Sync credits the time since the last sync, capped at the max sync gap.
func (s *ExtensionService) Sync(ctx context.Context, wallet string) (*SyncResult, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()

	res := &SyncResult{Receipt: &Receipt{}}
	expired := false
	err = s.store.Tx(ctx, func(tx store.Store) error {
		session, err := tx.OpenSession(ctx, user.ID)
		if err != nil {
			return notFoundAs(err, ErrNoSession)
		}
		if expired, err = s.expire(ctx, tx, session, now); expired || err != nil {
			return err
		}
		res.Session = session
		if !session.Active {
			return nil
		}
		if err := s.settle(ctx, tx, res, session, now); err != nil {
			return err
		}
		return tx.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.refreshGauge(ctx)
		return nil, ErrNoSession
	}
	return s.finish(ctx, user.ID, res)
}

// expire closes session when it has not synced within the idle timeout. The idle gap is not credited.
func (s *ExtensionService) expire(ctx context.Context, tx store.Store, session *models.ExtensionSession, now time.Time) (bool, error) {
	if now.Sub(session.LastSyncAt) <= s.cfg.ExtensionIdleTimeout {
		return false, nil
	}
	session.Active = false
	session.EndedAt = &now
	if err := tx.SaveSession(ctx, session); err != nil {
		return false, fmt.Errorf("close expired session: %w", err)
	}
	log.WithField("session_id", session.ID).Debug("extension session expired")
	return true, nil
}

// settle credits whole minutes elapsed on session and advances LastSyncAt. The fractional minute is
// carried over unless the gap was capped.
func (s *ExtensionService) settle(ctx context.Context, tx store.Store, res *SyncResult, session *models.ExtensionSession, now time.Time) error {
	elapsed := now.Sub(session.LastSyncAt)
	if elapsed <= 0 {
		return nil
	}
	capped := elapsed > s.cfg.ExtensionMaxSyncGap
	if capped {
		elapsed = s.cfg.ExtensionMaxSyncGap
	}
	minutes := int64(elapsed / time.Minute)
	if capped {
		session.LastSyncAt = now
	} else {
		session.LastSyncAt = session.LastSyncAt.Add(time.Duration(minutes) * time.Minute)
	}
	if minutes == 0 {
		return nil
	}

	points := minutes * s.cfg.ExtensionPointsPerMinute
	session.MinutesCredited += minutes
	res.Minutes += minutes
	res.Points += points
	return s.rewards.Grant(ctx, tx, res.Receipt, grant{
		UserID:    session.UserID,
		Source:    models.SourceExtension,
		Points:    points,
		Reference: session.ID,
		Extra:     store.UserDelta{ExtensionMinutes: minutes},
	})
}

func (s *ExtensionService) finish(ctx context.Context, userID string, res *SyncResult) (*SyncResult, error) {
	res.Receipt.publish()
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	res.User = u
	return res, nil
}

// SweepIdle closes open sessions whose last sync is older than the idle timeout. Idle time is not
// credited.
func (s *ExtensionService) SweepIdle(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	cutoff := now.Add(-s.cfg.ExtensionIdleTimeout)
	idle, err := s.store.ListIdleSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}
	closed := 0
	for _, session := range idle {
		// a sync since the listing keeps the session open
		ok, err := s.store.CloseIdleSession(ctx, session.ID, cutoff, now)
		if err != nil {
			log.WithError(err).WithField("session_id", session.ID).Warn("failed to close idle session")
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		log.WithField("closed", closed).Info("🧹 Closed idle extension sessions")
	}
	s.refreshGauge(ctx)
	return closed, nil
}

func (s *ExtensionService) refreshGauge(ctx context.Context) {
	n, err := s.store.CountOpenSessions(ctx)
	if err != nil {
		log.WithError(err).Debug("count open sessions")
		return
	}
	metrics.SetOpenSessions(n)
}
