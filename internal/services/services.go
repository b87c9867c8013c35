package services

import (
	"context"
	"errors"

	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrEmailTaken            = errors.New("email is already registered")
	ErrNoPendingVerification = errors.New("no pending verification found")
	ErrOTPExpired            = errors.New("otp expired, registration must restart")
	ErrInvalidOTP            = errors.New("invalid otp")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountInactive       = errors.New("account is deactivated")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrResetTokenInvalid     = errors.New("invalid or expired password reset token")
	ErrEmailDelivery         = errors.New("failed to send email")
	ErrForbidden             = errors.New("forbidden")
	ErrInternal              = errors.New("internal server error")
)

// RegisterInput carries the registration form fields. Avatar and Bio are
// optional.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   string
	Bio      string
}

// AuthService orchestrates the account lifecycle: register, verify, login,
// profile mutation, password change/reset, delete.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	VerifyOTP(ctx context.Context, email string, code int) (*models.User, string, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, bio *string) (*models.User, error)
	ChangePassword(ctx context.Context, id primitive.ObjectID, current, newPassword string) (*models.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) (*models.User, string, error)
	DeleteAccount(ctx context.Context, id primitive.ObjectID, password string) error
	UploadAvatar(ctx context.Context, id primitive.ObjectID, contentType string, data []byte) (string, error)
	GetPublicProfile(ctx context.Context, id primitive.ObjectID) (*models.PublicProfile, error)
}

// PostService orchestrates blog post CRUD and engagement counters.
type PostService interface {
	Create(ctx context.Context, author primitive.ObjectID, title, content string, tags []string) (*models.Post, error)
	List(ctx context.Context, f repository.PostFilter) ([]models.PostView, int64, error)
	GetBySlug(ctx context.Context, slug string) (*models.PostView, error)
	Top(ctx context.Context, limit int) ([]models.PostView, error)
	Update(ctx context.Context, actor, id primitive.ObjectID, title, content *string, tags []string) (*models.Post, error)
	Delete(ctx context.Context, actor, id primitive.ObjectID) error
	Like(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// ImageStore stores an image buffer and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}
