package handlers

import (
	"time"

	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

const sessionCookie = "token"

// CookieOptions controls the session cookie attributes. SameSite is
// relaxed to None in production so the cookie survives cross-origin
// delivery to the front end; Strict otherwise.
type CookieOptions struct {
	Production bool
	ExpireDays int
}

func (o CookieOptions) sameSite() string {
	if o.Production {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteStrictMode
}

// sendToken is the shared tail of every auth-producing action: set the
// session cookie and return the user together with the token.
func sendToken(c *fiber.Ctx, opts CookieOptions, user *models.User, tok string, status int, message string) error {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		Expires:  time.Now().Add(time.Duration(opts.ExpireDays) * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   opts.Production,
		SameSite: opts.sameSite(),
		Path:     "/",
	})
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"user":    user,
		"token":   tok,
	})
}

func clearSessionCookie(c *fiber.Ctx, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now(),
		HTTPOnly: true,
		Secure:   opts.Production,
		SameSite: opts.sameSite(),
		Path:     "/",
	})
}
