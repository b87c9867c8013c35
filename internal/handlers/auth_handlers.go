package handlers

import (
	"fmt"
	"io"
	"strconv"

	"github.com/AK-GUPTA-20/blog-backend/internal/middleware"
	"github.com/AK-GUPTA-20/blog-backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxProfileImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type AuthHandler struct {
	svc      services.AuthService
	validate *validator.Validate
	cookie   CookieOptions
	logger   *zap.SugaredLogger
}

func NewAuthHandler(svc services.AuthService, cookie CookieOptions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		validate: validator.New(),
		cookie:   cookie,
		logger:   logger.Sugar(),
	}
}

func (h *AuthHandler) parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, formatValidationError(err))
	}
	return nil
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=32"`
	Avatar   string `json:"avatar" validate:"omitempty,url"`
	Bio      string `json:"bio" validate:"omitempty,max=500"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	user, err := h.svc.Register(c.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Verification email successfully sent to %s", user.Email),
		"user":    user,
	})
}

type verifyOTPReq struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=5,numeric"`
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	code, err := strconv.Atoi(req.OTP)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid OTP.")
	}

	user, tok, err := h.svc.VerifyOTP(c.Context(), req.Email, code)
	if err != nil {
		return err
	}
	return sendToken(c, h.cookie, user, tok, fiber.StatusOK, "Account verified successfully.")
}

type resendOTPReq struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req resendOTPReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	if err := h.svc.ResendOTP(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Verification email successfully sent to %s", req.Email),
	})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	user, tok, err := h.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return sendToken(c, h.cookie, user, tok, fiber.StatusOK, "Login successful.")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	clearSessionCookie(c, h.cookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully.",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"user":    middleware.CurrentUser(c),
	})
}

// GetUserByID serves the public author profile.
func (h *AuthHandler) GetUserByID(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Resource not found. Invalid: id")
	}

	profile, err := h.svc.GetPublicProfile(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    profile,
	})
}

type updateProfileReq struct {
	Name *string `json:"name" validate:"omitempty,max=50"`
	Bio  *string `json:"bio" validate:"omitempty,max=500"`
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateProfile(c.Context(), middleware.CurrentUser(c).ID, req.Name, req.Bio)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully.",
		"user":    user,
	})
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=32"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordReq
	if err := h.parse(c, &req); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return fiber.NewError(fiber.StatusBadRequest, "New password and confirm password do not match.")
	}

	user, tok, err := h.svc.ChangePassword(c.Context(), middleware.CurrentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return sendToken(c, h.cookie, user, tok, fiber.StatusOK, "Password changed successfully.")
}

type forgotPasswordReq struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	if err := h.svc.ForgotPassword(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Password reset email sent to %s", req.Email),
	})
}

type resetPasswordReq struct {
	Password        string `json:"password" validate:"required,min=8,max=32"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordReq
	if err := h.parse(c, &req); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return fiber.NewError(fiber.StatusBadRequest, "Passwords do not match.")
	}

	user, tok, err := h.svc.ResetPassword(c.Context(), c.Params("token"), req.Password)
	if err != nil {
		return err
	}
	return sendToken(c, h.cookie, user, tok, fiber.StatusOK, "Password reset successfully.")
}

type deleteAccountReq struct {
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	var req deleteAccountReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	if err := h.svc.DeleteAccount(c.Context(), middleware.CurrentUser(c).ID, req.Password); err != nil {
		return err
	}

	clearSessionCookie(c, h.cookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Account deleted successfully.",
	})
}

func (h *AuthHandler) UploadProfileImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please upload an image")
	}
	if fileHeader.Size == 0 || fileHeader.Size > maxProfileImageSize {
		return fiber.NewError(fiber.StatusBadRequest, "Image must be smaller than 5MB")
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return fiber.NewError(fiber.StatusBadRequest, "Only JPG, PNG and WEBP images are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please upload an image")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read uploaded image: %w", err)
	}

	url, err := h.svc.UploadAvatar(c.Context(), middleware.CurrentUser(c).ID, contentType, data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile image uploaded successfully",
		"avatar":  url,
	})
}
