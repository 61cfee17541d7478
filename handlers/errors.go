package handlers

import (
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// respondError writes the status that matches a service error.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNoQuestions), errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrSlugConflict), errors.Is(err, services.ErrHasDependents),
		errors.Is(err, services.ErrConsistency):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrPaymentRequired):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, models.ErrAttemptImmutable):
		status = fiber.StatusMethodNotAllowed
	}

	if status == fiber.StatusInternalServerError {
		logger.Log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	if status == fiber.StatusConflict && errors.Is(err, services.ErrConsistency) {
		logger.Log.Warn("slug tree changed during request", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// ErrorHandler renders errors that escape handlers, such as fiber.Errors from body
// parsing or routing, in the same {"error": ...} shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return respondError(c, err)
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errors.Wrapf(services.ErrValidation, "invalid %s", name)
	}
	return id, nil
}
