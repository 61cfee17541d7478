package handlers

import (
	"fmt"

	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/middleware"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/notifications"
	"github.com/anjiri1684/mock_exams/payments"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// CheckoutSeries opens a pending enrollment for a paid series and a PayPal order for it.
func CheckoutSeries(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	seriesID, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}

	series, err := services.GetSeries(database.DB, seriesID)
	if err != nil {
		return respondError(c, err)
	}
	if series.IsFree() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This series is free; no checkout needed"})
	}

	enrollment, payment, err := services.StartEnrollment(database.DB, userID, series.ID, "paypal", *series.Price, series.Currency)
	if err != nil {
		return respondError(c, err)
	}

	order, err := payments.NewPayPalClientFromEnv().CreateOrder(payment.Amount, payment.Currency, payment.ID.String())
	if err != nil {
		logger.Log.Error("paypal create order failed", "payment_id", payment.ID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create PayPal order"})
	}
	if err := services.SetProviderOrder(database.DB, payment.ID, order.ID); err != nil {
		logger.Log.Error("saving paypal order id failed", "payment_id", payment.ID, "order_id", order.ID, "error", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"enrollment_id": enrollment.ID,
		"payment_id":    payment.ID,
		"order_id":      order.ID,
		"approve_url":   order.ApproveURL(),
	})
}

// CaptureEnrollment captures the approved PayPal order and activates the enrollment.
func CaptureEnrollment(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	enrollmentID, err := paramID(c, "enrollmentId")
	if err != nil {
		return respondError(c, err)
	}

	payment, err := services.PaymentForEnrollment(database.DB, enrollmentID, userID)
	if err != nil {
		return respondError(c, err)
	}
	if payment.ProviderOrderID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No PayPal order for this enrollment"})
	}

	if payment.Status != "succeeded" {
		if _, err := payments.NewPayPalClientFromEnv().CaptureOrder(*payment.ProviderOrderID); err != nil {
			logger.Log.Warn("paypal capture failed", "enrollment_id", enrollmentID, "order_id", *payment.ProviderOrderID, "error", err)
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Order not completed on PayPal's end"})
		}
	}

	enrollment, err := services.ActivateEnrollment(database.DB, enrollmentID, userID)
	if err != nil {
		logger.Log.Error("activating paid enrollment failed", "enrollment_id", enrollmentID, "error", err)
		return respondError(c, err)
	}

	var user models.User
	if err := database.DB.Select("id", "full_name", "email").Take(&user, "id = ?", userID).Error; err == nil {
		go notifications.SendEmail(user.FullName, user.Email, "Enrollment confirmed",
			fmt.Sprintf("<h1>You're in!</h1><p>Your payment of %.2f %s was received and your series is unlocked.</p>", payment.Amount, payment.Currency))
	}

	return c.JSON(enrollment)
}

func ListMyEnrollments(c *fiber.Ctx) error {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	enrollments, err := services.ListEnrollments(database.DB, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(enrollments)
}

// QuoteSeriesPrice converts a series price into the currency named by ?currency=.
func QuoteSeriesPrice(c *fiber.Ctx) error {
	seriesID, err := paramID(c, "seriesId")
	if err != nil {
		return respondError(c, err)
	}
	series, err := services.GetSeries(database.DB, seriesID)
	if err != nil {
		return respondError(c, err)
	}
	if series.IsFree() {
		return c.JSON(fiber.Map{"series_id": series.ID, "price": 0, "currency": series.Currency, "is_free": true})
	}

	target := c.Query("currency", series.Currency)
	price, err := services.ConvertPrice(*series.Price, series.Currency, target)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return respondError(c, err)
		}
		logger.Log.Warn("price conversion failed", "series_id", series.ID, "currency", target, "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Currency conversion unavailable"})
	}
	return c.JSON(fiber.Map{"series_id": series.ID, "price": price, "currency": target, "is_free": false})
}
