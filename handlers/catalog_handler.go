package handlers

import (
	"github.com/anjiri1684/mock_exams/cache"
	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/anjiri1684/mock_exams/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// catalogChanged runs after a committed catalog write: cached lookups are dropped and
// subscribers are told which paths moved.
func catalogChanged(c *fiber.Ctx, changes []services.PathChange) {
	cache.Resolve.Invalidate(c.UserContext())
	if len(changes) > 0 {
		logger.Log.Info("test paths changed", "count", len(changes), "route", c.Path())
		websocket.BroadcastPathChanges(changes)
	}
}

// parseBody decodes and validates a JSON body; failures come back as 400 fiber errors.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Categories

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func CreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := services.CreateCategory(database.DB, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.Status(fiber.StatusCreated).JSON(category)
}

func ListCategories(c *fiber.Ctx) error {
	categories, err := services.ListCategories(database.DB)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

func GetCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "categoryId")
	if err != nil {
		return respondError(c, err)
	}
	category, err := services.GetCategory(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

func RenameCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "categoryId")
	if err != nil {
		return respondError(c, err)
	}
	var req CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, changes, err := services.RenameCategory(database.DB, id, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, changes)
	return c.JSON(fiber.Map{"category": category, "changes": changes})
}

func DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "categoryId")
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteCategory(database.DB, id); err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// Series

type SeriesRequest struct {
	CategoryID    string   `json:"category_id" validate:"required,uuid"`
	Title         string   `json:"title" validate:"required,max=255"`
	Description   string   `json:"description"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency      string   `json:"currency" validate:"omitempty,len=3"`
	CoverImageURL *string  `json:"cover_image_url" validate:"omitempty,url"`
	TagIDs        []string `json:"tag_ids" validate:"omitempty,dive,uuid"`
}

func (r SeriesRequest) input() (services.SeriesInput, error) {
	categoryID, err := uuid.Parse(r.CategoryID)
	if err != nil {
		return services.SeriesInput{}, err
	}
	tagIDs, err := parseIDs(r.TagIDs)
	if err != nil {
		return services.SeriesInput{}, err
	}
	return services.SeriesInput{
		CategoryID:    categoryID,
		Title:         r.Title,
		Description:   r.Description,
		Price:         r.Price,
		Currency:      r.Currency,
		CoverImageURL: r.CoverImageURL,
		TagIDs:        tagIDs,
	}, nil
}

func CreateSeries(c *fiber.Ctx) error {
	var req SeriesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}
	series, err := services.CreateSeries(database.DB, in)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.Status(fiber.StatusCreated).JSON(series)
}

func ListSeries(c *fiber.Ctx) error {
	var categoryID *uuid.UUID
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid category ID"})
		}
		categoryID = &id
	}
	series, err := services.ListSeries(database.DB, categoryID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(series)
}

func GetSeries(c *fiber.Ctx) error {
	id, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	series, err := services.GetSeries(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(series)
}

func UpdateSeries(c *fiber.Ctx) error {
	id, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	var req SeriesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}
	series, changes, err := services.UpdateSeries(database.DB, id, in)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, changes)
	return c.JSON(fiber.Map{"series": series, "changes": changes})
}

func DeleteSeries(c *fiber.Ctx) error {
	id, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	removed, err := services.DeleteSeries(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, removed)
	return c.SendStatus(fiber.StatusNoContent)
}

type AttachTestRequest struct {
	Position *int `json:"position" validate:"omitempty,gte=0"`
}

func AttachTest(c *fiber.Ctx) error {
	seriesID, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	var req AttachTestRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	link, err := services.AttachTest(database.DB, seriesID, testID, position)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.Status(fiber.StatusCreated).JSON(link)
}

func DetachTest(c *fiber.Ctx) error {
	seriesID, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	link, err := services.DetachTest(database.DB, seriesID, testID)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, []services.PathChange{{Old: link.FullSlug}})
	return c.SendStatus(fiber.StatusNoContent)
}

// Tests

type TestRequest struct {
	Title           string   `json:"title" validate:"required,max=255"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0"`
	IsFree          bool     `json:"is_free"`
	SeriesIDs       []string `json:"series_ids" validate:"omitempty,dive,uuid"`
}

func (r TestRequest) input() (services.TestInput, error) {
	seriesIDs, err := parseIDs(r.SeriesIDs)
	if err != nil {
		return services.TestInput{}, err
	}
	return services.TestInput{
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		IsFree:          r.IsFree,
		SeriesIDs:       seriesIDs,
	}, nil
}

func CreateTest(c *fiber.Ctx) error {
	var req TestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid series ID"})
	}
	test, err := services.CreateTest(database.DB, in)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.Status(fiber.StatusCreated).JSON(test)
}

func ListTests(c *fiber.Ctx) error {
	tests, err := services.ListTests(database.DB)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tests)
}

func GetTest(c *fiber.Ctx) error {
	id, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	test, err := services.GetTest(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(test)
}

func UpdateTest(c *fiber.Ctx) error {
	id, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	var req TestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid series ID"})
	}
	test, changes, err := services.UpdateTest(database.DB, id, in)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, changes)
	return c.JSON(fiber.Map{"test": test, "changes": changes})
}

func DeleteTest(c *fiber.Ctx) error {
	id, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	removed, err := services.DeleteTest(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, removed)
	return c.SendStatus(fiber.StatusNoContent)
}

// Questions

type QuestionRequest struct {
	QuestionText  string            `json:"question_text" validate:"required"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer" validate:"required"`
	Marks         int               `json:"marks" validate:"gte=0"`
	Position      int               `json:"position" validate:"gte=0"`
}

func (r QuestionRequest) input() services.QuestionInput {
	return services.QuestionInput{
		QuestionText:  r.QuestionText,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Marks:         r.Marks,
		Position:      r.Position,
	}
}

func CreateQuestion(c *fiber.Ctx) error {
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	var req QuestionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	question, err := services.CreateQuestion(database.DB, testID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.Status(fiber.StatusCreated).JSON(question)
}

func ListQuestions(c *fiber.Ctx) error {
	testID, err := paramID(c, "testId")
	if err != nil {
		return respondError(c, err)
	}
	questions, err := services.ListQuestions(database.DB, testID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(questions)
}

func UpdateQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "questionId")
	if err != nil {
		return respondError(c, err)
	}
	var req QuestionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	question, err := services.UpdateQuestion(database.DB, id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.JSON(question)
}

func DeleteQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "questionId")
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteQuestion(database.DB, id); err != nil {
		return respondError(c, err)
	}
	catalogChanged(c, nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// Tags

type TagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func CreateTag(c *fiber.Ctx) error {
	var req TagRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tag, err := services.CreateTag(database.DB, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

func ListTags(c *fiber.Ctx) error {
	tags, err := services.ListTags(database.DB)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// Student catalog

type CatalogTest struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Path            string    `json:"path"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	IsFree          bool      `json:"is_free"`
}

type CatalogSeries struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       *float64        `json:"price"`
	Currency    string          `json:"currency"`
	IsFree      bool            `json:"is_free"`
	CoverImage  *string         `json:"cover_image_url"`
	Category    models.Category `json:"category"`
	Tags        []*models.Tag   `json:"tags"`
	Tests       []CatalogTest   `json:"tests"`
}

// StudentGetSeries lists a series' tests with the paths students open them by.
func StudentGetSeries(c *fiber.Ctx) error {
	id, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	series, err := services.GetSeries(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}

	out := CatalogSeries{
		ID:          series.ID,
		Title:       series.Title,
		Slug:        series.Slug,
		Description: series.Description,
		Price:       series.Price,
		Currency:    series.Currency,
		IsFree:      series.IsFree(),
		CoverImage:  series.CoverImageURL,
		Category:    models.Category{ID: series.Category.ID, Name: series.Category.Name, Slug: series.Category.Slug},
		Tags:        series.Tags,
		Tests:       make([]CatalogTest, 0, len(series.Links)),
	}
	for _, l := range series.Links {
		out.Tests = append(out.Tests, CatalogTest{
			ID:              l.Test.ID,
			Title:           l.Test.Title,
			Path:            l.FullSlug,
			DurationMinutes: l.Test.DurationMinutes,
			TotalMarks:      l.Test.TotalMarks,
			IsFree:          l.Test.IsFree,
		})
	}
	return c.JSON(out)
}
