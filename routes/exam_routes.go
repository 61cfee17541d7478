package routes

import (
	"github.com/anjiri1684/mock_exams/handlers"
	"github.com/anjiri1684/mock_exams/middleware"
	"github.com/gofiber/fiber/v2"
)

func ExamRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	exams := api.Group("/exams", middleware.Protected())
	exams.Post("/tests/:testId/attempts", middleware.EnrollmentRequired(), handlers.SubmitAttempt)
	exams.Get("/tests/:testId/attempts/me", handlers.GetMyAttempt)
	exams.Get("/tests/:testId/attempts", handlers.ListMyAttempts)
	exams.Post("/attempts/:attemptId/scorecard", handlers.GenerateScorecard)
}
