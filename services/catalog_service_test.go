package services

import (
	"testing"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSeriesAndTestComposePaths(t *testing.T) {
	db := testutil.DB(t)

	category, err := CreateCategory(db, "Défense Services")
	require.NoError(t, err)
	assert.Equal(t, "defense-services", category.Slug)

	tag, err := CreateTag(db, "Previous Year")
	require.NoError(t, err)

	series, err := CreateSeries(db, SeriesInput{
		CategoryID: category.ID,
		Title:      "NDA 2025",
		Price:      testutil.Price(199),
		TagIDs:     []uuid.UUID{tag.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "nda-2025", series.Slug)
	assert.Equal(t, "USD", series.Currency)
	require.Len(t, series.Tags, 1)
	assert.Equal(t, "previous-year", series.Tags[0].Slug)

	test, err := CreateTest(db, TestInput{Title: "Maths Paper 1", DurationMinutes: 150, SeriesIDs: []uuid.UUID{series.ID}})
	require.NoError(t, err)
	require.Len(t, test.Links, 1)
	assert.Equal(t, "defense-services/nda-2025/maths-paper-1", test.Links[0].FullSlug)

	_, err = CreateCategory(db, "Defense  Services!")
	assert.ErrorIs(t, err, ErrSlugConflict)
	_, err = CreateSeries(db, SeriesInput{CategoryID: category.ID, Title: "nda 2025"})
	assert.ErrorIs(t, err, ErrSlugConflict)
	_, err = CreateSeries(db, SeriesInput{CategoryID: uuid.New(), Title: "Orphan"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = CreateSeries(db, SeriesInput{CategoryID: category.ID, Title: "NDA", TagIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateSeriesMovesToAnotherCategory(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	railways := testutil.SeedCategory(t, db, "Railways")

	in := seriesInputFrom(tr.series)
	in.CategoryID = railways.ID
	series, changes, err := UpdateSeries(db, tr.series.ID, in)
	require.NoError(t, err)
	assert.Equal(t, railways.ID, series.CategoryID)
	assert.Equal(t, []PathChange{{Old: "ssc-exams/cgl-2025/tier-i", New: "railways/cgl-2025/tier-i"}}, changes)

	_, err = ResolvePath(db, "railways/cgl-2025/tier-i")
	assert.NoError(t, err)
	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.ErrorIs(t, err, ErrNotFound)

	in.CategoryID = uuid.New()
	_, _, err = UpdateSeries(db, tr.series.ID, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSeriesKeepsPathsWhenTitleUnchanged(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	in := seriesInputFrom(tr.series)
	in.Description = "Full length papers"
	in.Price = testutil.Price(99)
	series, changes, err := UpdateSeries(db, tr.series.ID, in)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, "Full length papers", series.Description)
	require.NotNil(t, series.Price)
	assert.InDelta(t, 99, *series.Price, 0.001)
}

func TestUpdateTestMemberships(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	chsl := testutil.SeedSeries(t, db, tr.category.ID, "CHSL 2025", nil)

	in := testInputFrom(tr.test)
	in.SeriesIDs = []uuid.UUID{chsl.ID}
	test, changes, err := UpdateTest(db, tr.test.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []PathChange{{Old: "ssc-exams/cgl-2025/tier-i"}}, changes)
	require.Len(t, test.Links, 1)
	assert.Equal(t, "ssc-exams/chsl-2025/tier-i", test.Links[0].FullSlug)

	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ResolvePath(db, "ssc-exams/chsl-2025/tier-i")
	assert.NoError(t, err)
}

func TestQuestionsMaintainTotalMarks(t *testing.T) {
	db := testutil.DB(t)
	test := testutil.SeedTest(t, db, "Tier I", true)
	options := map[string]string{"a": "4", "b": "5"}

	q1, err := CreateQuestion(db, test.ID, QuestionInput{QuestionText: "2+2", Options: options, CorrectAnswer: "a", Marks: 2})
	require.NoError(t, err)
	_, err = CreateQuestion(db, test.ID, QuestionInput{QuestionText: "2+3", Options: options, CorrectAnswer: "b", Position: 1})
	require.NoError(t, err)

	totalMarks := func() int {
		var got models.Test
		require.NoError(t, db.Take(&got, "id = ?", test.ID).Error)
		return got.TotalMarks
	}
	assert.Equal(t, 3, totalMarks())

	_, err = CreateQuestion(db, test.ID, QuestionInput{QuestionText: "bad", Options: options, CorrectAnswer: "z"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = UpdateQuestion(db, q1.ID, QuestionInput{QuestionText: "2+2", Options: options, CorrectAnswer: "a", Marks: 5})
	require.NoError(t, err)
	assert.Equal(t, 6, totalMarks())

	require.NoError(t, DeleteQuestion(db, q1.ID))
	assert.Equal(t, 1, totalMarks())

	questions, err := ListQuestions(db, test.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "2+3", questions[0].QuestionText)
}

func TestDeleteGuards(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	student := testutil.SeedUser(t, db, "student@example.com", "student")

	err := DeleteCategory(db, tr.category.ID)
	assert.ErrorIs(t, err, ErrHasDependents)

	_, err = SubmitAttempt(db, tr.test.ID, student.ID, map[string]string{})
	require.NoError(t, err)
	_, err = DeleteTest(db, tr.test.ID)
	assert.ErrorIs(t, err, ErrHasDependents)

	removed, err := DeleteSeries(db, tr.series.ID)
	require.NoError(t, err)
	assert.Equal(t, []PathChange{{Old: "ssc-exams/cgl-2025/tier-i"}}, removed)
	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, DeleteCategory(db, tr.category.ID))
	_, err = GetCategory(db, tr.category.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTestWithoutAttempts(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	removed, err := DeleteTest(db, tr.test.ID)
	require.NoError(t, err)
	assert.Equal(t, []PathChange{{Old: "ssc-exams/cgl-2025/tier-i"}}, removed)

	var questions int64
	require.NoError(t, db.Model(&models.Question{}).Where("test_id = ?", tr.test.ID).Count(&questions).Error)
	assert.Zero(t, questions)
	_, err = GetTest(db, tr.test.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSeriesWithEnrollments(t *testing.T) {
	db := testutil.DB(t)
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	c := testutil.SeedCategory(t, db, "Banking")
	paid := testutil.SeedSeries(t, db, c.ID, "PO Prelims", testutil.Price(499))

	_, _, err := StartEnrollment(db, student.ID, paid.ID, "paypal", 499, "USD")
	require.NoError(t, err)
	_, err = DeleteSeries(db, paid.ID)
	assert.ErrorIs(t, err, ErrHasDependents)
}
