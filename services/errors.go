package services

import (
	"errors"
	"fmt"

	"rewards-dashboard/store"
	"rewards-dashboard/utils"
)

var (
	ErrInvalidWallet = utils.ErrInvalidWallet
	ErrInvalidInput  = errors.New("invalid input")

	ErrUserNotFound        = errors.New("user not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrNoSession           = errors.New("no open extension session")

	ErrTaskCompleted       = errors.New("task already completed")
	ErrTaskInactive        = errors.New("task is not active")
	ErrAlreadyCheckedIn    = errors.New("already checked in today")
	ErrSelfReferral        = errors.New("cannot use your own referral code")
	ErrAlreadyReferred     = errors.New("referral already applied")
	ErrUnknownReferralCode = errors.New("unknown referral code")
	ErrDuplicate           = errors.New("already exists")
	ErrNoEntrants          = errors.New("no eligible lottery entrants")
	ErrUploadsDisabled     = errors.New("image uploads are not configured")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFoundAs swaps store.ErrNotFound for a domain-specific error and passes anything else through.
func notFoundAs(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return err
}
