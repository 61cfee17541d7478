package services

import (
	"time"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScoreAnswers adds up the points of every question whose submitted option equals its
// correct answer exactly. Keys that name no question are ignored.
func ScoreAnswers(questions []models.Question, answers map[string]string) int {
	score := 0
	for i := range questions {
		q := &questions[i]
		submitted, ok := answers[q.ID.String()]
		if !ok {
			continue
		}
		if submitted == q.CorrectAnswer {
			score += q.Points()
		}
	}
	return score
}

// SubmitAttempt scores answers against the test's question bank and stores one attempt.
// The answer map is persisted as given, including keys that match no question.
func SubmitAttempt(db *gorm.DB, testID, userID uuid.UUID, answers map[string]string) (*models.Attempt, error) {
	if answers == nil {
		answers = map[string]string{}
	}

	var attempt models.Attempt
	err := db.Transaction(func(tx *gorm.DB) error {
		var test models.Test
		if err := tx.Select("id").Take(&test, "id = ?", testID).Error; err != nil {
			return dbError(err, "test")
		}

		var questions []models.Question
		if err := tx.Where("test_id = ?", testID).Find(&questions).Error; err != nil {
			return dbError(err, "questions")
		}
		if len(questions) == 0 {
			return errors.Wrapf(ErrNoQuestions, "test %s", testID)
		}

		attempt = models.Attempt{
			TestID:      testID,
			UserID:      userID,
			Answers:     datatypes.NewJSONType(answers),
			Score:       ScoreAnswers(questions, answers),
			CompletedAt: time.Now().UTC(),
		}
		return dbError(tx.Create(&attempt).Error, "attempt")
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetAttempt returns the user's most recent attempt at a test.
func GetAttempt(db *gorm.DB, testID, userID uuid.UUID) (*models.Attempt, error) {
	var attempt models.Attempt
	err := db.Where("test_id = ? AND user_id = ?", testID, userID).
		Order("completed_at DESC").
		Order("id DESC").
		Take(&attempt).Error
	if err != nil {
		return nil, dbError(err, "attempt")
	}
	return &attempt, nil
}

func ListAttempts(db *gorm.DB, testID, userID uuid.UUID) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := db.Where("test_id = ? AND user_id = ?", testID, userID).
		Order("completed_at DESC").
		Order("id DESC").
		Find(&attempts).Error
	return attempts, dbError(err, "attempts")
}

func GetAttemptByID(db *gorm.DB, attemptID uuid.UUID) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := db.Preload("Test").Preload("User").Take(&attempt, "id = ?", attemptID).Error; err != nil {
		return nil, dbError(err, "attempt")
	}
	return &attempt, nil
}
