package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/AK-GUPTA-20/blog-backend/internal/config"
	"github.com/AK-GUPTA-20/blog-backend/internal/mailer"
	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"github.com/AK-GUPTA-20/blog-backend/internal/otp"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/AK-GUPTA-20/blog-backend/internal/token"
	"github.com/disintegration/imaging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type authService struct {
	users       repository.UserRepository
	tokens      *token.Manager
	mail        mailer.Sender
	images      ImageStore
	frontendURL string
	otpTTL      time.Duration
	resetTTL    time.Duration
	logger      *zap.SugaredLogger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *token.Manager,
	mail mailer.Sender,
	images ImageStore,
	cfg *config.Config,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:       users,
		tokens:      tokens,
		mail:        mail,
		images:      images,
		frontendURL: cfg.App.FrontendURL,
		otpTTL:      time.Duration(cfg.Security.OtpTTLMinutes) * time.Minute,
		resetTTL:    time.Duration(cfg.Security.ResetTTLMinutes) * time.Minute,
		logger:      logger.Sugar(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and sends the verification code.
// A duplicate email always fails with ErrEmailTaken, even when the earlier
// registration is still pending verification. If the verification email
// cannot be delivered the account is deleted again so no unreachable
// registration lingers.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email, false)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	avatar := in.Avatar
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	user := &models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      email,
		Password:   string(hashed),
		Avatar:     avatar,
		Bio:        in.Bio,
		Role:       models.RoleUser,
		IsVerified: false,
		IsActive:   true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// two concurrent registrations race on the unique email index;
		// the loser lands here
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.issueVerificationCode(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// issueVerificationCode stores a fresh OTP on the account and emails it.
// A delivery failure deletes the unverified account so registration can be
// retried from scratch.
func (s *authService) issueVerificationCode(ctx context.Context, user *models.User) error {
	code := otp.GenerateCode()
	expire := time.Now().Add(s.otpTTL)
	if err := s.users.SetVerificationCode(ctx, user.ID, code, expire); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	html := mailer.VerificationEmail(code)
	if err := s.mail.SendEmail(ctx, user.Email, mailer.SubjectVerification, html); err != nil {
		s.logger.Errorw("verification email delivery failed, deleting unverified account",
			"email", user.Email, "error", err)
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Errorw("failed to delete unverified account", "email", user.Email, "error", delErr)
		}
		return ErrEmailDelivery
	}
	return nil
}

// VerifyOTP redeems a pending verification code. An expired code deletes
// the unverified account outright; registration must restart.
func (s *authService) VerifyOTP(ctx context.Context, email string, code int) (*models.User, string, error) {
	user, err := s.users.FindPendingByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrNoPendingVerification
		}
		return nil, "", fmt.Errorf("failed to load pending registration: %w", err)
	}

	if time.Now().After(user.VerificationCodeExpire) {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Errorw("failed to purge expired registration", "email", user.Email, "error", delErr)
		}
		return nil, "", ErrOTPExpired
	}

	if user.VerificationCode != code {
		return nil, "", ErrInvalidOTP
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, "", fmt.Errorf("failed to mark user verified: %w", err)
	}
	user.IsVerified = true
	user.VerificationCode = 0
	user.VerificationCodeExpire = time.Time{}

	tok, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return user, tok, nil
}

// ResendOTP regenerates and re-sends the code for a pending registration,
// overwriting any prior code.
func (s *authService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.FindPendingByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNoPendingVerification
		}
		return fmt.Errorf("failed to load pending registration: %w", err)
	}
	return s.issueVerificationCode(ctx, user)
}

// Login authenticates a verified, active account. Unverified accounts are
// indistinguishable from unknown emails.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindVerifiedByEmail(ctx, normalizeEmail(email), true)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to load user for login: %w", err)
	}

	if !user.IsActive {
		return nil, "", ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("password comparison failed: %w", err)
	}

	tok, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return user, tok, nil
}

func (s *authService) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, bio *string) (*models.User, error) {
	set := bson.M{}
	if name != nil && *name != "" {
		set["name"] = strings.TrimSpace(*name)
	}
	if bio != nil {
		set["bio"] = *bio
	}
	if len(set) > 0 {
		if err := s.users.UpdateProfile(ctx, id, set); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash and
// bumps tokenValidAfter so every previously issued session token stops
// verifying. A fresh token is returned for the current session.
func (s *authService) ChangePassword(ctx context.Context, id primitive.ObjectID, current, newPassword string) (*models.User, string, error) {
	user, err := s.users.FindByIDWithPassword(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", ErrIncorrectPassword
		}
		return nil, "", fmt.Errorf("password comparison failed: %w", err)
	}

	tok, err := s.setPassword(ctx, user, newPassword)
	if err != nil {
		return nil, "", err
	}
	return user, tok, nil
}

// setPassword hashes and stores the password, invalidates earlier tokens
// and issues a new one. tokenValidAfter is truncated to whole seconds to
// match JWT issued-at resolution, so the token issued right here stays
// valid.
func (s *authService) setPassword(ctx context.Context, user *models.User, newPassword string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	validAfter := time.Now().Truncate(time.Second)
	if err := s.users.SetPassword(ctx, user.ID, string(hashed), validAfter); err != nil {
		return "", fmt.Errorf("failed to store new password: %w", err)
	}
	user.TokenValidAfter = validAfter

	tok, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return tok, nil
}

// ForgotPassword issues a one-time reset token for a verified account and
// emails the reset link. Only the SHA-256 digest of the token is stored;
// if the email cannot be delivered the token is cleared again so no
// unseen reset capability survives.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindVerifiedByEmail(ctx, normalizeEmail(email), false)
	if err != nil {
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)
	digest := hashResetToken(rawToken)

	if err := s.users.SetResetToken(ctx, user.ID, digest, time.Now().Add(s.resetTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/password/reset/%s", s.frontendURL, rawToken)
	html := mailer.ResetPasswordEmail(resetURL)
	if err := s.mail.SendEmail(ctx, user.Email, mailer.SubjectPasswordReset, html); err != nil {
		s.logger.Errorw("reset email delivery failed, clearing reset token",
			"email", user.Email, "error", err)
		if clrErr := s.users.ClearResetToken(ctx, user.ID); clrErr != nil {
			s.logger.Errorw("failed to clear reset token", "email", user.Email, "error", clrErr)
		}
		return ErrEmailDelivery
	}
	return nil
}

// ResetPassword redeems a reset token. The stored digest is single-use:
// the password update clears it atomically, so a second redemption with
// the same token fails the lookup.
func (s *authService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*models.User, string, error) {
	digest := hashResetToken(rawToken)

	user, err := s.users.FindByResetTokenHash(ctx, digest, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrResetTokenInvalid
		}
		return nil, "", fmt.Errorf("failed to look up reset token: %w", err)
	}

	tok, err := s.setPassword(ctx, user, newPassword)
	if err != nil {
		return nil, "", err
	}
	user.ResetPasswordToken = ""
	user.ResetPasswordExpire = time.Time{}
	return user, tok, nil
}

// DeleteAccount hard-deletes the account after a password confirmation.
// Authored posts are intentionally left in place.
func (s *authService) DeleteAccount(ctx context.Context, id primitive.ObjectID, password string) error {
	user, err := s.users.FindByIDWithPassword(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrIncorrectPassword
		}
		return fmt.Errorf("password comparison failed: %w", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// avatarWidth bounds stored profile images; larger uploads are scaled down.
const avatarWidth = 320

// resizeAvatar decodes the uploaded image, scales it to avatarWidth and
// re-encodes it as JPEG.
func resizeAvatar(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	small := imaging.Resize(img, avatarWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *authService) UploadAvatar(ctx context.Context, id primitive.ObjectID, contentType string, data []byte) (string, error) {
	if resized, err := resizeAvatar(data); err == nil {
		data, contentType = resized, "image/jpeg"
	} else {
		s.logger.Warnw("avatar resize failed, storing original image", "user", id.Hex(), "error", err)
	}

	key := fmt.Sprintf("profile-images/profile_%s_%d", id.Hex(), time.Now().UnixMilli())
	url, err := s.images.Upload(ctx, key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload profile image: %w", err)
	}
	if err := s.users.SetAvatar(ctx, id, url); err != nil {
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}
	return url, nil
}

func (s *authService) GetPublicProfile(ctx context.Context, id primitive.ObjectID) (*models.PublicProfile, error) {
	return s.users.FindPublicByID(ctx, id)
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
