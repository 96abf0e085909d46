package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	log "github.com/sirupsen/logrus"
)

// AdminService backs the admin surface.
type AdminService struct {
	store     store.Store
	rewards   *rewarder
	wallets   map[string]struct{}
	bypassKey string
	clock     Clock
}

func NewAdminService(st store.Store, rw *rewarder, wallets []string, bypassKey string, clock Clock) *AdminService {
	set := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		addr, err := utils.NormalizeWallet(w)
		if err != nil {
			log.WithField("wallet", w).Warn("⚠️ Ignoring invalid admin wallet")
			continue
		}
		set[addr] = struct{}{}
	}
	return &AdminService{store: st, rewards: rw, wallets: set, bypassKey: bypassKey, clock: clock}
}

// IsAdmin reports whether wallet is on the allow-list or key equals the bypass key. An empty bypass
// key never matches.
func (s *AdminService) IsAdmin(wallet, key string) bool {
	if wallet != "" {
		if addr, err := utils.NormalizeWallet(wallet); err == nil {
			if _, ok := s.wallets[addr]; ok {
				return true
			}
		}
	}
	if s.bypassKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.bypassKey)) == 1
}

// Stats aggregates the admin overview.
func (s *AdminService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	now := s.clock().UTC()
	stats, err := s.store.Stats(ctx, Day(now), now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	stats.GeneratedAt = now
	return stats, nil
}

func (s *AdminService) ListUsers(ctx context.Context, p models.Page) (models.Paginated[models.User], error) {
	p = p.Normalize()
	users, total, err := s.store.ListUsers(ctx, p)
	if err != nil {
		return models.Paginated[models.User]{}, fmt.Errorf("list users: %w", err)
	}
	return models.NewPaginated(users, p, total), nil
}

// GrantInput is the manual points adjustment payload.
type GrantInput struct {
	Points int64  `json:"points"`
	Note   string `json:"note"`
}

// GrantPoints adjusts wallet's balance by in.Points. Deductions may not take the balance below zero.
func (s *AdminService) GrantPoints(ctx context.Context, wallet string, in GrantInput) (*models.User, *Receipt, error) {
	if in.Points == 0 {
		return nil, nil, invalidf("points must be non-zero")
	}
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, nil, err
	}

	rc := &Receipt{}
	err = s.store.Tx(ctx, func(tx store.Store) error {
		current, err := tx.LockUser(ctx, user.ID)
		if err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		if current.Points+in.Points < 0 {
			return invalidf("deduction of %d exceeds balance %d", -in.Points, current.Points)
		}
		return s.rewards.Grant(ctx, tx, rc, grant{
			UserID: user.ID,
			Source: models.SourceAdmin,
			Points: in.Points,
			Note:   strings.TrimSpace(in.Note),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	rc.publish()

	updated, err := s.store.UserByID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(log.Fields{
		"wallet": utils.ShortWallet(user.WalletAddress),
		"points": in.Points,
		"note":   in.Note,
	}).Info("🛠️ Admin points adjustment")
	return updated, rc, nil
}
