package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasAccess(t *testing.T) {
	db := testutil.DB(t)
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	c := testutil.SeedCategory(t, db, "Banking")
	paid := testutil.SeedSeries(t, db, c.ID, "PO Prelims", testutil.Price(499))
	free := testutil.SeedSeries(t, db, c.ID, "Clerk Practice", nil)

	freeTest := testutil.SeedTest(t, db, "Sample Paper", true)
	paidTest := testutil.SeedTest(t, db, "Mock 1", false)
	sharedTest := testutil.SeedTest(t, db, "Mock 2", false)
	orphan := testutil.SeedTest(t, db, "Draft", false)
	testutil.SeedLink(t, db, c, paid, freeTest)
	testutil.SeedLink(t, db, c, paid, paidTest)
	testutil.SeedLink(t, db, c, paid, sharedTest)
	testutil.SeedLink(t, db, c, free, sharedTest)

	check := func(test *models.Test, want bool) {
		t.Helper()
		ok, err := HasAccess(db, student.ID, test.ID)
		require.NoError(t, err)
		assert.Equal(t, want, ok, test.Title)
	}

	check(freeTest, true)
	check(sharedTest, true)
	check(paidTest, false)
	check(orphan, false)

	enrollment, _, err := StartEnrollment(db, student.ID, paid.ID, "paypal", 499, "USD")
	require.NoError(t, err)
	check(paidTest, false)

	_, err = ActivateEnrollment(db, enrollment.ID, student.ID)
	require.NoError(t, err)
	check(paidTest, true)
}

func TestEnrollmentLifecycle(t *testing.T) {
	db := testutil.DB(t)
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	stranger := testutil.SeedUser(t, db, "stranger@example.com", "student")
	c := testutil.SeedCategory(t, db, "Banking")
	paid := testutil.SeedSeries(t, db, c.ID, "PO Prelims", testutil.Price(499))
	free := testutil.SeedSeries(t, db, c.ID, "Clerk Practice", nil)

	_, _, err := StartEnrollment(db, student.ID, free.ID, "paypal", 0, "USD")
	assert.ErrorIs(t, err, ErrValidation)

	enrollment, payment, err := StartEnrollment(db, student.ID, paid.ID, "paypal", 499, "USD")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)
	assert.Equal(t, "pending", payment.Status)

	require.NoError(t, SetProviderOrder(db, payment.ID, "ORDER-1"))
	got, err := PaymentForEnrollment(db, enrollment.ID, student.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderOrderID)
	assert.Equal(t, "ORDER-1", *got.ProviderOrderID)

	_, err = PaymentForEnrollment(db, enrollment.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ActivateEnrollment(db, enrollment.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	active, err := ActivateEnrollment(db, enrollment.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, active.Status)
	require.NotNil(t, active.ActivatedAt)

	again, err := ActivateEnrollment(db, enrollment.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, again.Status)

	got, err = PaymentForEnrollment(db, enrollment.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", got.Status)

	_, _, err = StartEnrollment(db, student.ID, paid.ID, "paypal", 499, "USD")
	assert.ErrorIs(t, err, ErrValidation)

	list, err := ListEnrollments(db, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "po-prelims", list[0].Series.Slug)
	assert.Equal(t, "banking", list[0].Series.Category.Slug)
}

func TestExpirePendingEnrollments(t *testing.T) {
	db := testutil.DB(t)
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	c := testutil.SeedCategory(t, db, "Banking")
	paid := testutil.SeedSeries(t, db, c.ID, "PO Prelims", testutil.Price(499))
	other := testutil.SeedSeries(t, db, c.ID, "SO Mains", testutil.Price(299))

	stale, _, err := StartEnrollment(db, student.ID, paid.ID, "paypal", 499, "USD")
	require.NoError(t, err)
	fresh, _, err := StartEnrollment(db, student.ID, other.ID, "paypal", 299, "USD")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Enrollment{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	n, err := ExpirePendingEnrollments(db, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var expired, pending models.Enrollment
	require.NoError(t, db.Take(&expired, "id = ?", stale.ID).Error)
	assert.Equal(t, models.EnrollmentExpired, expired.Status)
	require.NoError(t, db.Take(&pending, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.EnrollmentPending, pending.Status)

	p, err := PaymentForEnrollment(db, stale.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", p.Status)

	_, err = ActivateEnrollment(db, stale.ID, student.ID)
	assert.ErrorIs(t, err, ErrValidation)
}
