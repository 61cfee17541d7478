package routes

import "github.com/gofiber/fiber/v2"

// Setup mounts every route group on app.
func Setup(app *fiber.App) {
	PublicRoutes(app)
	AuthRoutes(app)
	ExamRoutes(app)
	PaymentRoutes(app)
	AdminRoutes(app)
	WebsocketRoutes(app)
}
