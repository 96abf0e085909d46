package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"
)

const maxOpinionLength = 2000

// OpinionService collects dashboard feedback.
type OpinionService struct {
	store store.Store
}

func NewOpinionService(st store.Store) *OpinionService {
	return &OpinionService{store: st}
}

// OpinionInput is the public submit payload.
type OpinionInput struct {
	WalletAddress string `json:"walletAddress"`
	Rating        int    `json:"rating"`
	Message       string `json:"message"`
}

// Submit stores feedback. A wallet is optional; when given it must be valid and is linked to its
// user if one exists.
func (s *OpinionService) Submit(ctx context.Context, in OpinionInput) (*models.Opinion, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, invalidf("message is required")
	}
	if utf8.RuneCountInString(msg) > maxOpinionLength {
		return nil, invalidf("message must be at most %d characters", maxOpinionLength)
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, invalidf("rating must be between 1 and 5")
	}

	o := &models.Opinion{Rating: in.Rating, Message: msg}
	if strings.TrimSpace(in.WalletAddress) != "" {
		addr, err := utils.NormalizeWallet(in.WalletAddress)
		if err != nil {
			return nil, err
		}
		o.WalletAddress = addr
		u, err := s.store.UserByWallet(ctx, addr)
		switch {
		case err == nil:
			o.UserID = &u.ID
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	if err := s.store.CreateOpinion(ctx, o); err != nil {
		return nil, fmt.Errorf("save opinion: %w", err)
	}
	return o, nil
}

func (s *OpinionService) List(ctx context.Context, p models.Page) (models.Paginated[models.Opinion], error) {
	p = p.Normalize()
	items, total, err := s.store.ListOpinions(ctx, p)
	if err != nil {
		return models.Paginated[models.Opinion]{}, fmt.Errorf("list opinions: %w", err)
	}
	return models.NewPaginated(items, p, total), nil
}
