package server

import (
	"errors"

	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/AK-GUPTA-20/blog-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// errorHandler translates service and repository errors into the JSON
// envelope every endpoint returns on failure.
func errorHandler(logger *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		case errors.Is(err, services.ErrEmailTaken):
			code, message = fiber.StatusBadRequest, "Email is already registered."
		case errors.Is(err, services.ErrNoPendingVerification):
			code, message = fiber.StatusNotFound, "No pending verification found."
		case errors.Is(err, services.ErrOTPExpired):
			code, message = fiber.StatusBadRequest, "OTP expired. Please register again."
		case errors.Is(err, services.ErrInvalidOTP):
			code, message = fiber.StatusBadRequest, "Invalid OTP."
		case errors.Is(err, services.ErrInvalidCredentials):
			code, message = fiber.StatusUnauthorized, "Invalid email or password."
		case errors.Is(err, services.ErrAccountInactive):
			code, message = fiber.StatusForbidden, "Account is deactivated. Please contact support."
		case errors.Is(err, services.ErrIncorrectPassword):
			code, message = fiber.StatusUnauthorized, "Incorrect password."
		case errors.Is(err, services.ErrResetTokenInvalid):
			code, message = fiber.StatusBadRequest, "Invalid or expired password reset token."
		case errors.Is(err, services.ErrEmailDelivery):
			code, message = fiber.StatusInternalServerError, "Failed to send email. Please try again later."
		case errors.Is(err, services.ErrForbidden):
			code, message = fiber.StatusForbidden, "You are not allowed to modify this resource."
		case errors.Is(err, repository.ErrUserNotFound):
			code, message = fiber.StatusNotFound, "User not found."
		case errors.Is(err, repository.ErrPostNotFound):
			code, message = fiber.StatusNotFound, "Post not found."
		case mongo.IsDuplicateKeyError(err):
			code, message = fiber.StatusBadRequest, "Duplicate field value entered."
		}

		if code >= fiber.StatusInternalServerError {
			logger.Errorw("request failed", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}
