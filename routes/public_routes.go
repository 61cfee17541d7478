package routes

import (
	"github.com/anjiri1684/mock_exams/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/paths/:category/:series/:test", handlers.ResolvePath)

	catalog := api.Group("/catalog")
	catalog.Get("/categories", handlers.ListCategories)
	catalog.Get("/categories/:categoryId", handlers.GetCategory)
	catalog.Get("/series", handlers.ListSeries)
	catalog.Get("/series/:seriesId", handlers.StudentGetSeries)
	catalog.Get("/series/:seriesId/price", handlers.QuoteSeriesPrice)
	catalog.Get("/tags", handlers.ListTags)
}
