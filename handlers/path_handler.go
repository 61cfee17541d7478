package handlers

import (
	"encoding/json"

	"github.com/anjiri1684/mock_exams/cache"
	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/anjiri1684/mock_exams/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// QuestionForStudent is a question without its correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID         `json:"id"`
	Position     int               `json:"position"`
	QuestionText string            `json:"question_text"`
	Options      map[string]string `json:"options"`
	Marks        int               `json:"marks"`
}

type ResolvedTestResponse struct {
	Path     string `json:"path"`
	Category struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
		Slug string    `json:"slug"`
	} `json:"category"`
	Series struct {
		ID       uuid.UUID     `json:"id"`
		Title    string        `json:"title"`
		Slug     string        `json:"slug"`
		Price    *float64      `json:"price"`
		Currency string        `json:"currency"`
		Tags     []*models.Tag `json:"tags"`
	} `json:"series"`
	Test struct {
		ID              uuid.UUID `json:"id"`
		Title           string    `json:"title"`
		Slug            string    `json:"slug"`
		Description     string    `json:"description"`
		DurationMinutes int       `json:"duration_minutes"`
		TotalMarks      int       `json:"total_marks"`
		IsFree          bool      `json:"is_free"`
	} `json:"test"`
	Questions []QuestionForStudent `json:"questions"`
}

func studentQuestions(questions []models.Question) []QuestionForStudent {
	out := make([]QuestionForStudent, len(questions))
	for i, q := range questions {
		out[i] = QuestionForStudent{
			ID:           q.ID,
			Position:     q.Position,
			QuestionText: q.QuestionText,
			Options:      q.Options.Data(),
			Marks:        q.Points(),
		}
	}
	return out
}

func resolvedResponse(r *services.ResolvedTest) ResolvedTestResponse {
	var out ResolvedTestResponse
	out.Path = r.Path
	out.Category.ID, out.Category.Name, out.Category.Slug = r.Category.ID, r.Category.Name, r.Category.Slug
	out.Series.ID, out.Series.Title, out.Series.Slug = r.Series.ID, r.Series.Title, r.Series.Slug
	out.Series.Price, out.Series.Currency, out.Series.Tags = r.Series.Price, r.Series.Currency, r.Series.Tags
	out.Test.ID, out.Test.Title, out.Test.Slug = r.Test.ID, r.Test.Title, r.Test.Slug
	out.Test.Description, out.Test.DurationMinutes = r.Test.Description, r.Test.DurationMinutes
	out.Test.TotalMarks, out.Test.IsFree = r.Test.TotalMarks, r.Test.IsFree
	out.Questions = studentQuestions(r.Questions)
	return out
}

// ResolvePath serves GET /paths/:category/:series/:test.
func ResolvePath(c *fiber.Ctx) error {
	path := utils.ComposePath(c.Params("category"), c.Params("series"), c.Params("test"))
	ctx := c.UserContext()

	payload, gen, hit := cache.Resolve.Lookup(ctx, path)
	if hit {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set("X-Cache", "HIT")
		return c.Send(payload)
	}

	resolved, err := services.ResolvePath(database.DB, path)
	if err != nil {
		return respondError(c, err)
	}
	payload, err = json.Marshal(resolvedResponse(resolved))
	if err != nil {
		return respondError(c, err)
	}
	cache.Resolve.Store(ctx, gen, path, payload)

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}
