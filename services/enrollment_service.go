package services

import (
	"time"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HasAccess reports whether a user may take a test: free tests, tests in a free series
// and tests in a series the user holds an active enrollment for are open.
func HasAccess(db *gorm.DB, userID, testID uuid.UUID) (bool, error) {
	var test models.Test
	if err := db.Select("id", "is_free").Take(&test, "id = ?", testID).Error; err != nil {
		return false, dbError(err, "test")
	}
	if test.IsFree {
		return true, nil
	}

	var series []models.Series
	err := db.Select("series.id", "series.price").
		Joins("JOIN series_tests ON series_tests.series_id = series.id").
		Where("series_tests.test_id = ?", testID).
		Find(&series).Error
	if err != nil {
		return false, dbError(err, "series")
	}

	seriesIDs := make([]uuid.UUID, 0, len(series))
	for i := range series {
		if series[i].IsFree() {
			return true, nil
		}
		seriesIDs = append(seriesIDs, series[i].ID)
	}
	if len(seriesIDs) == 0 {
		return false, nil
	}

	var count int64
	err = db.Model(&models.Enrollment{}).
		Where("student_id = ? AND series_id IN ? AND status = ?", userID, seriesIDs, models.EnrollmentActive).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "enrollments")
	}
	return count > 0, nil
}

// StartEnrollment creates a pending enrollment and its payment record for a paid series.
func StartEnrollment(db *gorm.DB, studentID, seriesID uuid.UUID, provider string, amount float64, currency string) (*models.Enrollment, *models.Payment, error) {
	var enrollment models.Enrollment
	var payment models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		var series models.Series
		if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
			return dbError(err, "series")
		}
		if series.IsFree() {
			return errors.Wrap(ErrValidation, "series is free and needs no enrollment")
		}

		var active int64
		if err := tx.Model(&models.Enrollment{}).
			Where("student_id = ? AND series_id = ? AND status = ?", studentID, seriesID, models.EnrollmentActive).
			Count(&active).Error; err != nil {
			return dbError(err, "enrollments")
		}
		if active > 0 {
			return errors.Wrap(ErrValidation, "already enrolled in this series")
		}

		enrollment = models.Enrollment{
			StudentID: studentID,
			SeriesID:  seriesID,
			Status:    models.EnrollmentPending,
		}
		if err := tx.Create(&enrollment).Error; err != nil {
			return dbError(err, "enrollment")
		}

		payment = models.Payment{
			EnrollmentID: enrollment.ID,
			Amount:       amount,
			Currency:     currency,
			Provider:     provider,
			Status:       "pending",
		}
		return dbError(tx.Create(&payment).Error, "payment")
	})
	if err != nil {
		return nil, nil, err
	}
	return &enrollment, &payment, nil
}

func SetProviderOrder(db *gorm.DB, paymentID uuid.UUID, orderID string) error {
	res := db.Model(&models.Payment{}).Where("id = ?", paymentID).Update("provider_order_id", orderID)
	if res.Error != nil {
		return dbError(res.Error, "payment")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "payment")
	}
	return nil
}

// ActivateEnrollment marks the payment succeeded and the enrollment active. It is a no-op
// for an enrollment that is already active.
func ActivateEnrollment(db *gorm.DB, enrollmentID, studentID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&enrollment, "id = ? AND student_id = ?", enrollmentID, studentID).Error; err != nil {
			return dbError(err, "enrollment")
		}
		switch enrollment.Status {
		case models.EnrollmentActive:
			return nil
		case models.EnrollmentExpired:
			return errors.Wrap(ErrValidation, "enrollment has expired")
		}

		now := time.Now().UTC()
		if err := tx.Model(&enrollment).Updates(map[string]interface{}{
			"status":       models.EnrollmentActive,
			"activated_at": now,
		}).Error; err != nil {
			return dbError(err, "enrollment")
		}
		enrollment.Status, enrollment.ActivatedAt = models.EnrollmentActive, &now

		return dbError(tx.Model(&models.Payment{}).
			Where("enrollment_id = ?", enrollment.ID).
			Update("status", "succeeded").Error, "payment")
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func PaymentForEnrollment(db *gorm.DB, enrollmentID, studentID uuid.UUID) (*models.Payment, error) {
	var enrollment models.Enrollment
	if err := db.Select("id").Take(&enrollment, "id = ? AND student_id = ?", enrollmentID, studentID).Error; err != nil {
		return nil, dbError(err, "enrollment")
	}
	var payment models.Payment
	if err := db.Take(&payment, "enrollment_id = ?", enrollment.ID).Error; err != nil {
		return nil, dbError(err, "payment")
	}
	return &payment, nil
}

func ListEnrollments(db *gorm.DB, studentID uuid.UUID) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := db.Preload("Series.Category").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, dbError(err, "enrollments")
}

// ExpirePendingEnrollments expires enrollments still awaiting payment after maxAge.
func ExpirePendingEnrollments(db *gorm.DB, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	var expired int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Enrollment{}).
			Where("status = ? AND created_at < ?", models.EnrollmentPending, cutoff).
			Update("status", models.EnrollmentExpired)
		if res.Error != nil {
			return res.Error
		}
		expired = res.RowsAffected
		return tx.Model(&models.Payment{}).
			Where("status = ? AND enrollment_id IN (?)", "pending",
				tx.Model(&models.Enrollment{}).Select("id").Where("status = ?", models.EnrollmentExpired)).
			Update("status", "expired").Error
	})
	return expired, dbError(err, "expire enrollments")
}
