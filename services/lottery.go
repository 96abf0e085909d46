package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"rewards-dashboard/config"
	"rewards-dashboard/metrics"
	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxWinnersListed = 100

// LotteryService draws prize winners among users above the points threshold.
type LotteryService struct {
	store   store.Store
	rewards *rewarder
	cfg     config.LotteryConfig
	random  io.Reader
	clock   Clock
}

func NewLotteryService(st store.Store, rw *rewarder, cfg config.LotteryConfig, random io.Reader, clock Clock) *LotteryService {
	return &LotteryService{store: st, rewards: rw, cfg: cfg, random: random, clock: clock}
}

// pick chooses k distinct indexes out of n uniformly (partial Fisher-Yates).
func pick(random io.Reader, n, k int) ([]int, error) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k > n {
		k = n
	}
	for i := 0; i < k; i++ {
		j, err := rand.Int(random, big.NewInt(int64(n-i)))
		if err != nil {
			return nil, fmt.Errorf("draw random: %w", err)
		}
		r := i + int(j.Int64())
		idx[i], idx[r] = idx[r], idx[i]
	}
	return idx[:k], nil
}

// Draw selects up to the configured number of winners and credits each the prize.
func (s *LotteryService) Draw(ctx context.Context) ([]models.LotteryWinner, error) {
	entrants, err := s.store.UsersWithMinPoints(ctx, s.cfg.MinPoints)
	if err != nil {
		metrics.RecordLotteryDraw("error")
		return nil, fmt.Errorf("load entrants: %w", err)
	}
	if len(entrants) == 0 {
		metrics.RecordLotteryDraw("no_entrants")
		return nil, ErrNoEntrants
	}
	chosen, err := pick(s.random, len(entrants), s.cfg.Winners)
	if err != nil {
		metrics.RecordLotteryDraw("error")
		return nil, err
	}

	now := s.clock().UTC()
	drawID := uuid.NewString()
	winners := make([]models.LotteryWinner, 0, len(chosen))
	for _, i := range chosen {
		u := entrants[i]
		winners = append(winners, models.LotteryWinner{
			DrawID:        drawID,
			UserID:        u.ID,
			WalletAddress: u.WalletAddress,
			PrizePoints:   s.cfg.PrizePoints,
			DrawnAt:       now,
		})
	}

	rc := &Receipt{}
	err = s.store.Tx(ctx, func(tx store.Store) error {
		if err := tx.CreateLotteryWinners(ctx, winners); err != nil {
			return fmt.Errorf("save winners: %w", err)
		}
		for _, w := range winners {
			if err := s.rewards.Grant(ctx, tx, rc, grant{
				UserID:    w.UserID,
				Source:    models.SourceLottery,
				Points:    w.PrizePoints,
				Reference: drawID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordLotteryDraw("error")
		return nil, err
	}
	rc.publish()
	metrics.RecordLotteryDraw("drawn")

	for _, w := range winners {
		log.WithFields(log.Fields{
			"draw_id": drawID,
			"wallet":  utils.ShortWallet(w.WalletAddress),
			"prize":   w.PrizePoints,
		}).Info("🎰 Lottery winner")
	}
	return winners, nil
}

// Winners returns past winners, newest first.
func (s *LotteryService) Winners(ctx context.Context, limit int) ([]models.LotteryWinner, error) {
	if limit <= 0 || limit > maxWinnersListed {
		limit = 20
	}
	winners, err := s.store.ListLotteryWinners(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	if winners == nil {
		winners = []models.LotteryWinner{}
	}
	return winners, nil
}
