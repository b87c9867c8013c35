package routes

import (
	"github.com/AK-GUPTA-20/blog-backend/internal/handlers"
	"github.com/gofiber/fiber/v2"
)

// Setup mounts the public and protected route groups under /api/v1.
func Setup(app *fiber.App, auth *handlers.AuthHandler, posts *handlers.PostHandler, requireAuth fiber.Handler, apiLimiter, authLimiter fiber.Handler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "Server is running"})
	})

	api := app.Group("/api/v1", apiLimiter)

	user := api.Group("/user", authLimiter)
	user.Post("/register", auth.Register)
	user.Post("/verify-otp", auth.VerifyOTP)
	user.Post("/resend-otp", auth.ResendOTP)
	user.Post("/login", auth.Login)
	user.Post("/password/forgot", auth.ForgotPassword)
	user.Post("/password/reset/:token", auth.ResetPassword)
	user.Get("/user/:id", auth.GetUserByID)

	user.Get("/logout", requireAuth, auth.Logout)
	user.Get("/me", requireAuth, auth.Me)
	user.Put("/update-profile", requireAuth, auth.UpdateProfile)
	user.Put("/change-password", requireAuth, auth.ChangePassword)
	user.Delete("/delete-account", requireAuth, auth.DeleteAccount)
	user.Post("/upload/profile-image", requireAuth, auth.UploadProfileImage)

	post := api.Group("/posts")
	post.Post("/create", requireAuth, posts.Create)
	post.Get("/", posts.GetAll)
	post.Get("/top", posts.Top)
	post.Get("/me", requireAuth, posts.MyPosts)
	post.Get("/tag/:tag", posts.ByTag)
	post.Get("/author/:authorId", posts.ByAuthor)
	post.Get("/:slug", posts.GetSingle)
	post.Put("/:id", requireAuth, posts.Update)
	post.Delete("/:id", requireAuth, posts.Delete)
	post.Post("/:id/like", requireAuth, posts.Like)
}
