package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
)

// AchievementService manages achievements and unlocks them as user counters grow.
type AchievementService struct {
	store    store.Store
	uploader Uploader
	clock    Clock
}

func NewAchievementService(st store.Store, uploader Uploader, clock Clock) *AchievementService {
	return &AchievementService{store: st, uploader: uploader, clock: clock}
}

// AchievementInput is the admin create payload.
type AchievementInput struct {
	Code         string                     `json:"code"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	ImageURL     string                     `json:"imageUrl"`
	Criteria     models.AchievementCriteria `json:"criteria"`
	Threshold    int64                      `json:"threshold"`
	RewardPoints int64                      `json:"rewardPoints"`
	Active       *bool                      `json:"active"`
}

// AchievementPatch is the admin update payload.
type AchievementPatch struct {
	Title        *string                     `json:"title"`
	Description  *string                     `json:"description"`
	ImageURL     *string                     `json:"imageUrl"`
	Criteria     *models.AchievementCriteria `json:"criteria"`
	Threshold    *int64                      `json:"threshold"`
	RewardPoints *int64                      `json:"rewardPoints"`
	Active       *bool                       `json:"active"`
}

// progress returns the user's counter for criteria.
func progress(u *models.User, c models.AchievementCriteria) int64 {
	switch c {
	case models.CriteriaPoints:
		return u.Points
	case models.CriteriaTasksCompleted:
		return int64(u.TasksCompleted)
	case models.CriteriaCheckInStreak:
		return int64(u.CheckInStreak)
	case models.CriteriaReferrals:
		return int64(u.ReferralCount)
	case models.CriteriaExtensionMinutes:
		return u.ExtensionMinutes
	}
	return 0
}

// evaluate unlocks every active achievement userID now qualifies for. Reward points from unlocks
// are credited without re-evaluating, so one event unlocks at most one round of achievements.
func (s *AchievementService) evaluate(ctx context.Context, tx store.Store, rc *Receipt, userID string, rw *rewarder) error {
	user, err := tx.UserByID(ctx, userID)
	if err != nil {
		return notFoundAs(err, ErrUserNotFound)
	}
	list, err := tx.ListAchievements(ctx, true)
	if err != nil {
		return fmt.Errorf("list achievements: %w", err)
	}
	if len(list) == 0 {
		return nil
	}
	owned, err := tx.ListUserAchievements(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user achievements: %w", err)
	}
	have := make(map[string]bool, len(owned))
	for _, ua := range owned {
		have[ua.AchievementID] = true
	}

	for _, a := range list {
		if have[a.ID] || progress(user, a.Criteria) < a.Threshold {
			continue
		}
		err := tx.CreateUserAchievement(ctx, &models.UserAchievement{
			UserID:        userID,
			AchievementID: a.ID,
			AwardedAt:     s.clock().UTC(),
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("award achievement %s: %w", a.Code, err)
		}
		rc.Achievements = append(rc.Achievements, a)

		if a.RewardPoints > 0 {
			if err := rw.credit(ctx, tx, rc, grant{
				UserID:    userID,
				Source:    models.SourceAchievement,
				Points:    a.RewardPoints,
				Reference: a.ID,
				Note:      a.Title,
			}); err != nil {
				return err
			}
		}
		log.WithFields(log.Fields{"user_id": userID, "achievement": a.Code}).Info("🎖️ Achievement unlocked")
	}
	return nil
}

// List returns active achievements. With a wallet, each is annotated with unlock state and progress.
func (s *AchievementService) List(ctx context.Context) ([]models.Achievement, error) {
	list, err := s.store.ListAchievements(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if list == nil {
		list = []models.Achievement{}
	}
	return list, nil
}

// ListForWallet returns every active or already-unlocked achievement with the wallet's state.
func (s *AchievementService) ListForWallet(ctx context.Context, wallet string) ([]models.AchievementView, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListAchievements(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	owned, err := s.store.ListUserAchievements(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	unlocked := make(map[string]models.UserAchievement, len(owned))
	for _, ua := range owned {
		unlocked[ua.AchievementID] = ua
	}

	views := make([]models.AchievementView, 0, len(list))
	for _, a := range list {
		ua, ok := unlocked[a.ID]
		if !a.Active && !ok {
			continue
		}
		v := models.AchievementView{Achievement: a, Unlocked: ok, Progress: progress(user, a.Criteria)}
		if v.Progress > a.Threshold {
			v.Progress = a.Threshold
		}
		if ok {
			at := ua.AwardedAt
			v.UnlockedAt = &at
		}
		views = append(views, v)
	}
	return views, nil
}

// --- admin ---

func (s *AchievementService) ListAll(ctx context.Context) ([]models.Achievement, error) {
	list, err := s.store.ListAchievements(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if list == nil {
		list = []models.Achievement{}
	}
	return list, nil
}

func validateAchievement(a *models.Achievement) error {
	if a.Title == "" {
		return invalidf("title is required")
	}
	if !a.Criteria.Valid() {
		return invalidf("unknown criteria %q", a.Criteria)
	}
	if a.Threshold <= 0 {
		return invalidf("threshold must be positive")
	}
	if a.RewardPoints < 0 {
		return invalidf("rewardPoints must not be negative")
	}
	return nil
}

// Create adds an achievement. Code defaults to a slug of the title.
func (s *AchievementService) Create(ctx context.Context, in AchievementInput) (*models.Achievement, error) {
	a := &models.Achievement{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Criteria:     in.Criteria,
		Threshold:    in.Threshold,
		RewardPoints: in.RewardPoints,
		Active:       true,
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	code := in.Code
	if strings.TrimSpace(code) == "" {
		code = a.Title
	}
	a.Code = slug.Make(code)
	if a.Code == "" {
		return nil, invalidf("code is required")
	}
	if err := validateAchievement(a); err != nil {
		return nil, err
	}

	if err := s.store.CreateAchievement(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("achievement %q: %w", a.Code, ErrDuplicate)
		}
		return nil, fmt.Errorf("create achievement: %w", err)
	}
	log.WithFields(log.Fields{"code": a.Code, "criteria": a.Criteria, "threshold": a.Threshold}).Info("🆕 Achievement created")
	return a, nil
}

// Update applies patch to achievement id.
func (s *AchievementService) Update(ctx context.Context, id string, patch AchievementPatch) (*models.Achievement, error) {
	if err := checkID(id, ErrAchievementNotFound); err != nil {
		return nil, err
	}
	a, err := s.store.AchievementByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrAchievementNotFound)
	}
	if patch.Title != nil {
		a.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		a.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ImageURL != nil {
		a.ImageURL = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Criteria != nil {
		a.Criteria = *patch.Criteria
	}
	if patch.Threshold != nil {
		a.Threshold = *patch.Threshold
	}
	if patch.RewardPoints != nil {
		a.RewardPoints = *patch.RewardPoints
	}
	if patch.Active != nil {
		a.Active = *patch.Active
	}
	if err := validateAchievement(a); err != nil {
		return nil, err
	}
	if err := s.store.SaveAchievement(ctx, a); err != nil {
		return nil, fmt.Errorf("update achievement: %w", err)
	}
	return a, nil
}

// Delete removes an achievement definition; already-awarded rows stay.
func (s *AchievementService) Delete(ctx context.Context, id string) error {
	if err := checkID(id, ErrAchievementNotFound); err != nil {
		return err
	}
	if err := s.store.DeleteAchievement(ctx, id); err != nil {
		return notFoundAs(err, ErrAchievementNotFound)
	}
	return nil
}

// UploadImage stores an image for the achievement and saves its URL.
func (s *AchievementService) UploadImage(ctx context.Context, id string, fh *multipart.FileHeader) (*models.Achievement, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if err := checkID(id, ErrAchievementNotFound); err != nil {
		return nil, err
	}
	a, err := s.store.AchievementByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrAchievementNotFound)
	}
	key, err := utils.ImageKey("achievements", a.ID, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, invalidf("%v", err)
	}
	url, err := s.uploader.UploadFile(ctx, fh, key)
	if err != nil {
		return nil, err
	}
	a.ImageURL = url
	if err := s.store.SaveAchievement(ctx, a); err != nil {
		return nil, fmt.Errorf("save achievement image: %w", err)
	}
	return a, nil
}
