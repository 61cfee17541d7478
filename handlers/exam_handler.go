package handlers

import (
	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/middleware"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/notifications"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SubmitAttemptRequest struct {
	// Answers maps question ids to the submitted option.
	Answers map[string]string `json:"answers"`
}

type AttemptResponse struct {
	ID          uuid.UUID         `json:"id"`
	TestID      uuid.UUID         `json:"test_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Answers     map[string]string `json:"answers"`
	Score       int               `json:"score"`
	TotalMarks  int               `json:"total_marks,omitempty"`
	CompletedAt string            `json:"completed_at"`
}

func attemptResponse(a *models.Attempt, totalMarks int) AttemptResponse {
	return AttemptResponse{
		ID:          a.ID,
		TestID:      a.TestID,
		UserID:      a.UserID,
		Answers:     a.Answers.Data(),
		Score:       a.Score,
		TotalMarks:  totalMarks,
		CompletedAt: a.CompletedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func SubmitAttempt(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}

	var req SubmitAttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	attempt, err := services.SubmitAttempt(database.DB, testID, userID, req.Answers)
	if err != nil {
		return respondError(c, err)
	}

	var test models.Test
	var user models.User
	if err := database.DB.Select("id", "title", "total_marks").Take(&test, "id = ?", testID).Error; err == nil {
		if err := database.DB.Select("id", "full_name", "email").Take(&user, "id = ?", userID).Error; err == nil {
			go notifications.SendAttemptResult(user.FullName, user.Email, test.Title, attempt.Score, test.TotalMarks)
		}
	}
	logger.Log.Info("attempt submitted", "attempt_id", attempt.ID, "test_id", testID, "user_id", userID, "score", attempt.Score)

	return c.Status(fiber.StatusCreated).JSON(attemptResponse(attempt, test.TotalMarks))
}

func GetMyAttempt(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}

	attempt, err := services.GetAttempt(database.DB, testID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attemptResponse(attempt, 0))
}

func ListMyAttempts(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}

	attempts, err := services.ListAttempts(database.DB, testID, userID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]AttemptResponse, len(attempts))
	for i := range attempts {
		out[i] = attemptResponse(&attempts[i], 0)
	}
	return c.JSON(out)
}

func GenerateScorecard(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	attemptID, err := paramID(c, "attemptId")
	if err != nil {
		return respondError(c, err)
	}

	card, err := services.GenerateScorecard(c.UserContext(), database.DB, attemptID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}
