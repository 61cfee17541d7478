package services

import (
	"context"
	"testing"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/testutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func stubScorecardIO(t *testing.T) (printed *string, uploads *int) {
	t.Helper()
	var html string
	var n int
	origPrint, origUpload := printPDF, uploadPDF
	printPDF = func(_ context.Context, h string) ([]byte, error) {
		html = h
		return []byte("%PDF-1.4"), nil
	}
	uploadPDF = func(_ context.Context, b []byte, attemptID string) (string, error) {
		n++
		return "https://files.example.com/scorecard_" + attemptID + ".pdf", nil
	}
	t.Cleanup(func() { printPDF, uploadPDF = origPrint, origUpload })
	return &html, &n
}

func TestGenerateScorecard(t *testing.T) {
	db := testutil.DB(t)
	html, uploads := stubScorecardIO(t)
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	other := testutil.SeedUser(t, db, "other@example.com", "student")
	test := testutil.SeedTest(t, db, "Tier I", true)
	q1 := testutil.SeedQuestion(t, db, test.ID, "a", 2)
	testutil.SeedQuestion(t, db, test.ID, "b", 0)

	attempt, err := SubmitAttempt(db, test.ID, student.ID, map[string]string{q1.ID.String(): "a"})
	require.NoError(t, err)

	_, err = GenerateScorecard(context.Background(), db, attempt.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, *uploads)

	card, err := GenerateScorecard(context.Background(), db, attempt.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, card.AttemptID)
	assert.Equal(t, "https://files.example.com/scorecard_"+attempt.ID.String()+".pdf", card.FileURL)
	assert.Contains(t, *html, "Tier I")
	assert.Contains(t, *html, "Score: 2 / 3")

	again, err := GenerateScorecard(context.Background(), db, attempt.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, again.ID)
	assert.Equal(t, 1, *uploads)

	var stored models.Attempt
	require.NoError(t, db.Take(&stored, "id = ?", attempt.ID).Error)
	assert.Equal(t, 2, stored.Score)

	_, err = GenerateScorecard(context.Background(), db, uuid.New(), student.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateScorecardUploadFailure(t *testing.T) {
	db := testutil.DB(t)
	stubScorecardIO(t)
	uploadPDF = func(context.Context, []byte, string) (string, error) {
		return "", errors.New("storage unavailable")
	}
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	test := testutil.SeedTest(t, db, "Tier I", true)
	testutil.SeedQuestion(t, db, test.ID, "a", 1)
	attempt, err := SubmitAttempt(db, test.ID, student.ID, nil)
	require.NoError(t, err)

	_, err = GenerateScorecard(context.Background(), db, attempt.ID, student.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")

	var count int64
	require.NoError(t, db.Model(&models.Scorecard{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBuildScorecard(t *testing.T) {
	q1 := models.Question{ID: uuid.New(), QuestionText: "2+2", CorrectAnswer: "a", Marks: 2}
	q2 := models.Question{ID: uuid.New(), QuestionText: "2+3", CorrectAnswer: "b"}
	attempt := &models.Attempt{
		Score:   2,
		Answers: datatypes.NewJSONType(map[string]string{q1.ID.String(): "a"}),
	}

	data := buildScorecard(attempt, []models.Question{q1, q2})
	assert.Equal(t, 3, data.TotalMarks)
	require.Len(t, data.Rows, 2)
	assert.True(t, data.Rows[0].Correct)
	assert.Equal(t, 2, data.Rows[0].Earned)
	assert.False(t, data.Rows[1].Answered)
	assert.Zero(t, data.Rows[1].Earned)
}
