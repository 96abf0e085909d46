package handlers

import (
	"errors"

	"rewards-dashboard/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidWallet),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrTaskInactive),
		errors.Is(err, services.ErrSelfReferral),
		errors.Is(err, services.ErrUnknownReferralCode):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrAchievementNotFound),
		errors.Is(err, services.ErrNoSession):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrTaskCompleted),
		errors.Is(err, services.ErrAlreadyCheckedIn),
		errors.Is(err, services.ErrAlreadyReferred),
		errors.Is(err, services.ErrDuplicate):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrNoEntrants):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUploadsDisabled):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// fail writes err as {"error", "cause"}. Unexpected errors are logged and answered with a generic
// message and no cause.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("❌ Request failed")
		return c.Status(status).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": rootCause(err).Error(),
		"cause": err.Error(),
	})
}

// rootCause returns the innermost wrapped error, which for service errors is the sentinel.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request body",
		"cause": err.Error(),
	})
}
