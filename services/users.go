package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"rewards-dashboard/config"
	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{2,32}$`)

const maxBioLength = 500

// UserService owns wallet onboarding, profiles and referrals.
type UserService struct {
	store   store.Store
	rewards *rewarder
	cfg     config.RewardConfig
}

func NewUserService(st store.Store, rw *rewarder, cfg config.RewardConfig) *UserService {
	return &UserService{store: st, rewards: rw, cfg: cfg}
}

// ConnectResult is returned by Connect.
type ConnectResult struct {
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
	Receipt *Receipt     `json:"receipt,omitempty"`
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Connect returns the user for wallet, creating it on first contact. A referral code is honoured
// only when the user is created.
func (s *UserService) Connect(ctx context.Context, wallet, referralCode string) (*ConnectResult, error) {
	addr, err := utils.NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.UserByWallet(ctx, addr)
	if err == nil {
		return &ConnectResult{User: existing}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(referralCode))
	rc := &Receipt{}
	var created models.User

	err = s.store.Tx(ctx, func(tx store.Store) error {
		var referrer *models.User
		if code != "" {
			ref, err := tx.UserByReferralCode(ctx, code)
			if err != nil {
				return notFoundAs(err, ErrUnknownReferralCode)
			}
			referrer = ref
		}

		created = models.User{
			WalletAddress: addr,
			ReferralCode:  newReferralCode(),
		}
		if referrer != nil {
			created.ReferredBy = &referrer.ID
		}
		if err := tx.CreateUser(ctx, &created); err != nil {
			return err
		}

		if referrer != nil {
			return s.creditReferral(ctx, tx, rc, referrer, &created)
		}
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		// Another request created the wallet first.
		if u, lookupErr := s.store.UserByWallet(ctx, addr); lookupErr == nil {
			return &ConnectResult{User: u}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	rc.publish()

	user, err := s.store.UserByID(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"wallet": utils.ShortWallet(addr), "referred": created.ReferredBy != nil}).
		Info("👛 New wallet connected")
	return &ConnectResult{User: user, Created: true, Receipt: rc}, nil
}

func (s *UserService) creditReferral(ctx context.Context, tx store.Store, rc *Receipt, referrer, referee *models.User) error {
	if err := s.rewards.Grant(ctx, tx, rc, grant{
		UserID:    referee.ID,
		Source:    models.SourceReferral,
		Points:    s.cfg.RefereePoints,
		Reference: referrer.ID,
		Note:      "joined with referral code " + referrer.ReferralCode,
	}); err != nil {
		return err
	}
	return s.rewards.Grant(ctx, tx, rc, grant{
		UserID:    referrer.ID,
		Source:    models.SourceReferral,
		Points:    s.cfg.ReferrerPoints,
		Reference: referee.ID,
		Note:      "referred " + referee.WalletAddress,
		Extra:     store.UserDelta{ReferralCount: 1},
	})
}

// ApplyReferral links an existing, not yet referred user to the owner of code.
func (s *UserService) ApplyReferral(ctx context.Context, wallet, code string) (*ConnectResult, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalidf("referral code is required")
	}
	if code == user.ReferralCode {
		return nil, ErrSelfReferral
	}
	if user.ReferredBy != nil {
		return nil, ErrAlreadyReferred
	}

	rc := &Receipt{}
	err = s.store.Tx(ctx, func(tx store.Store) error {
		referrer, err := tx.UserByReferralCode(ctx, code)
		if err != nil {
			return notFoundAs(err, ErrUnknownReferralCode)
		}
		if referrer.ReferredBy != nil && *referrer.ReferredBy == user.ID {
			return invalidf("referral cycles are not allowed")
		}
		linked, err := tx.SetReferrer(ctx, user.ID, referrer.ID)
		if err != nil {
			return err
		}
		if !linked {
			return ErrAlreadyReferred
		}
		return s.creditReferral(ctx, tx, rc, referrer, user)
	})
	if err != nil {
		return nil, err
	}
	rc.publish()

	updated, err := s.store.UserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &ConnectResult{User: updated, Receipt: rc}, nil
}

// Get returns the user for wallet.
func (s *UserService) Get(ctx context.Context, wallet string) (*models.User, error) {
	return userByWallet(ctx, s.store, wallet)
}

func validateProfile(p *models.ProfilePatch) error {
	trim := func(v *string) {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
	trim(p.Username)
	trim(p.Email)
	trim(p.Twitter)
	trim(p.Discord)
	trim(p.Telegram)
	trim(p.AvatarURL)
	trim(p.Bio)

	if p.Username != nil && *p.Username != "" && !handlePattern.MatchString(*p.Username) {
		return invalidf("username must be 2-32 letters, digits, '_' or '.'")
	}
	if p.Email != nil && *p.Email != "" {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return invalidf("email is not valid")
		}
	}
	for name, v := range map[string]*string{"twitter": p.Twitter, "telegram": p.Telegram} {
		if v == nil || *v == "" {
			continue
		}
		*v = strings.TrimPrefix(*v, "@")
		if !handlePattern.MatchString(*v) {
			return invalidf("%s handle is not valid", name)
		}
	}
	if p.Discord != nil && len(*p.Discord) > 37 {
		return invalidf("discord handle is too long")
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		u, err := url.ParseRequestURI(*p.AvatarURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return invalidf("avatarUrl must be an http(s) URL")
		}
	}
	if p.Bio != nil && len(*p.Bio) > maxBioLength {
		return invalidf("bio must be at most %d characters", maxBioLength)
	}
	return nil
}

// UpdateProfile applies a partial profile update. Reaching a complete profile for the first time
// awards the profile bonus.
func (s *UserService) UpdateProfile(ctx context.Context, wallet string, patch models.ProfilePatch) (*models.User, *Receipt, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, nil, err
	}
	if err := validateProfile(&patch); err != nil {
		return nil, nil, err
	}

	rc := &Receipt{}
	err = s.store.Tx(ctx, func(tx store.Store) error {
		if err := tx.UpdateProfile(ctx, user.ID, patch); err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		updated, err := tx.UserByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if ProfileCompletionOf(updated).Percentage < 100 || updated.ProfileBonusAwarded {
			return nil
		}
		flipped, err := tx.MarkProfileBonus(ctx, user.ID)
		if err != nil || !flipped {
			return err
		}
		return s.rewards.Grant(ctx, tx, rc, grant{
			UserID: user.ID,
			Source: models.SourceProfile,
			Points: s.cfg.ProfileCompletionPoints,
			Note:   "profile completed",
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
	return updated, rc, nil
}

// ProfileCompletionOf computes the share of filled profile fields.
func ProfileCompletionOf(u *models.User) models.ProfileCompletion {
	fields := []struct {
		name  string
		value string
	}{
		{"username", u.Username},
		{"email", u.Email},
		{"twitter", u.Twitter},
		{"discord", u.Discord},
		{"telegram", u.Telegram},
		{"avatarUrl", u.AvatarURL},
		{"bio", u.Bio},
	}

	pc := models.ProfileCompletion{Completed: []string{}, Missing: []string{}}
	for _, f := range fields {
		if strings.TrimSpace(f.value) != "" {
			pc.Completed = append(pc.Completed, f.name)
		} else {
			pc.Missing = append(pc.Missing, f.name)
		}
	}
	pc.Percentage = len(pc.Completed) * 100 / len(fields)
	return pc
}

// ProfileCompletion reports completion for wallet.
func (s *UserService) ProfileCompletion(ctx context.Context, wallet string) (models.ProfileCompletion, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return models.ProfileCompletion{}, err
	}
	return ProfileCompletionOf(user), nil
}

// History returns the wallet's points history, newest first.
func (s *UserService) History(ctx context.Context, wallet string, p models.Page) (models.Paginated[models.PointEvent], error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return models.Paginated[models.PointEvent]{}, err
	}
	p = p.Normalize()
	events, total, err := s.store.ListPointEvents(ctx, user.ID, p)
	if err != nil {
		return models.Paginated[models.PointEvent]{}, fmt.Errorf("list history: %w", err)
	}
	return models.NewPaginated(events, p, total), nil
}

// Referrals lists the users wallet referred.
func (s *UserService) Referrals(ctx context.Context, wallet string) ([]models.ReferredUser, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListReferredUsers(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	out := make([]models.ReferredUser, 0, len(users))
	for _, u := range users {
		out = append(out, models.ReferredUser{
			WalletAddress: u.WalletAddress,
			Username:      u.Username,
			Points:        u.Points,
			JoinedAt:      u.CreatedAt,
		})
	}
	return out, nil
}
