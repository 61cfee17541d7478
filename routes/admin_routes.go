package routes

import (
	"github.com/anjiri1684/mock_exams/handlers"
	"github.com/anjiri1684/mock_exams/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	categories := admin.Group("/categories")
	categories.Post("", handlers.CreateCategory)
	categories.Get("", handlers.ListCategories)
	categories.Get("/:categoryId", handlers.GetCategory)
	categories.Put("/:categoryId", handlers.RenameCategory)
	categories.Delete("/:categoryId", handlers.DeleteCategory)

	series := admin.Group("/series")
	series.Post("", handlers.CreateSeries)
	series.Get("", handlers.ListSeries)
	series.Get("/:seriesId", handlers.GetSeries)
	series.Put("/:seriesId", handlers.UpdateSeries)
	series.Delete("/:seriesId", handlers.DeleteSeries)
	series.Post("/:seriesId/tests/:testId", handlers.AttachTest)
	series.Delete("/:seriesId/tests/:testId", handlers.DetachTest)

	tests := admin.Group("/tests")
	tests.Post("", handlers.CreateTest)
	tests.Get("", handlers.ListTests)
	tests.Get("/:testId", handlers.GetTest)
	tests.Put("/:testId", handlers.UpdateTest)
	tests.Delete("/:testId", handlers.DeleteTest)
	tests.Post("/:testId/questions", handlers.CreateQuestion)
	tests.Get("/:testId/questions", handlers.ListQuestions)

	questions := admin.Group("/questions")
	questions.Put("/:questionId", handlers.UpdateQuestion)
	questions.Delete("/:questionId", handlers.DeleteQuestion)

	tags := admin.Group("/tags")
	tags.Post("", handlers.CreateTag)
	tags.Get("", handlers.ListTags)

	admin.Get("/uploads/signature", handlers.GenerateUploadSignature)
}
