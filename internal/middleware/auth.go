package middleware

import (
	"errors"

	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/AK-GUPTA-20/blog-backend/internal/token"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userContextKey is where RequireAuth stores the resolved user.
const userContextKey = "currentUser"

// RequireAuth extracts the session token from the cookie, verifies it,
// loads the referenced user and rejects missing, invalid, unverified and
// deactivated states. The resolved user is attached to the request context
// for downstream handlers.
func RequireAuth(tokens *token.Manager, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies("token")
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Please login to access this resource.")
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token. Please login again.")
		}

		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token. Please login again.")
		}

		user, err := users.FindByID(c.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "User not found. Please login again.")
			}
			return err
		}

		if !user.IsVerified {
			return fiber.NewError(fiber.StatusUnauthorized, "Account not verified. Please verify your account.")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "Account is deactivated. Please contact support.")
		}

		// tokens issued before the last password change are dead
		if !user.TokenValidAfter.IsZero() && claims.IssuedAt != nil &&
			claims.IssuedAt.Time.Before(user.TokenValidAfter) {
			return fiber.NewError(fiber.StatusUnauthorized, "Session is no longer valid. Please login again.")
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

// RequireAdmin rejects requests whose authenticated user is not an admin.
// Must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "Access denied. Admin privileges required.")
		}
		return c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userContextKey).(*models.User)
	return user
}
