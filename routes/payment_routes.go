package routes

import (
	"github.com/anjiri1684/mock_exams/handlers"
	"github.com/anjiri1684/mock_exams/middleware"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	enrollments := api.Group("/enrollments", middleware.Protected())
	enrollments.Post("/series/:seriesId/checkout", handlers.CheckoutSeries)
	enrollments.Post("/:enrollmentId/capture", handlers.CaptureEnrollment)
	enrollments.Get("/me", handlers.ListMyEnrollments)
}
