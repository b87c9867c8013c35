package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/AK-GUPTA-20/blog-backend/internal/config"
	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/AK-GUPTA-20/blog-backend/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserRepo is an in-memory UserRepository keyed by ObjectID.
type fakeUserRepo struct {
	users     map[primitive.ObjectID]*models.User
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

// duplicateKeyErr mirrors what the driver returns when an insert trips the
// unique email index.
var duplicateKeyErr = mongo.WriteException{
	WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return duplicateKeyErr
		}
	}
	u.ID = primitive.NewObjectID()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) findBy(match func(*models.User) bool) (*models.User, error) {
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string, _ bool) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindVerifiedByEmail(_ context.Context, email string, _ bool) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email && u.IsVerified })
}

func (r *fakeUserRepo) FindPendingByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email && !u.IsVerified })
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) FindByIDWithPassword(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) FindPublicByID(_ context.Context, id primitive.ObjectID) (*models.PublicProfile, error) {
	u, err := r.findBy(func(u *models.User) bool { return u.ID == id })
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, repository.ErrUserNotFound
	}
	return &models.PublicProfile{
		ID: u.ID, Name: u.Name, Avatar: u.Avatar, Bio: u.Bio,
		TotalPosts: u.TotalPosts, CreatedAt: u.CreatedAt,
	}, nil
}

func (r *fakeUserRepo) FindAuthors(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error) {
	out := map[primitive.ObjectID]models.AuthorInfo{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = models.AuthorInfo{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Bio: u.Bio}
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*models.User, error) {
	return r.findBy(func(u *models.User) bool {
		return u.ResetPasswordToken == hash && u.ResetPasswordExpire.After(now)
	})
}

func (r *fakeUserRepo) update(id primitive.ObjectID, apply func(*models.User)) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) SetVerificationCode(_ context.Context, id primitive.ObjectID, code int, expire time.Time) error {
	return r.update(id, func(u *models.User) {
		u.VerificationCode = code
		u.VerificationCodeExpire = expire
	})
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		u.IsVerified = true
		u.VerificationCode = 0
		u.VerificationCodeExpire = time.Time{}
	})
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, set bson.M) error {
	return r.update(id, func(u *models.User) {
		if v, ok := set["name"].(string); ok {
			u.Name = v
		}
		if v, ok := set["bio"].(string); ok {
			u.Bio = v
		}
	})
}

func (r *fakeUserRepo) SetAvatar(_ context.Context, id primitive.ObjectID, url string) error {
	return r.update(id, func(u *models.User) { u.Avatar = url })
}

func (r *fakeUserRepo) SetPassword(_ context.Context, id primitive.ObjectID, hash string, validAfter time.Time) error {
	return r.update(id, func(u *models.User) {
		u.Password = hash
		u.TokenValidAfter = validAfter
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = time.Time{}
	})
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return r.update(id, func(u *models.User) {
		u.ResetPasswordToken = hash
		u.ResetPasswordExpire = expire
	})
}

func (r *fakeUserRepo) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = time.Time{}
	})
}

func (r *fakeUserRepo) IncTotalPosts(_ context.Context, id primitive.ObjectID, delta int) error {
	return r.update(id, func(u *models.User) { u.TotalPosts += int64(delta) })
}

func (r *fakeUserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeMailer records sent emails and can simulate delivery failure.
type fakeMailer struct {
	sent []sentEmail
	fail bool
}

type sentEmail struct {
	to      string
	subject string
	html    string
}

func (m *fakeMailer) SendEmail(_ context.Context, to, subject, html string) error {
	if m.fail {
		return errors.New("brevo unavailable")
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

func (m *fakeMailer) IsConfigured() bool { return true }

type fakeImageStore struct {
	lastKey  string
	lastType string
	lastData []byte
}

func (s *fakeImageStore) Upload(_ context.Context, key, contentType string, data []byte) (string, error) {
	s.lastKey = key
	s.lastType = contentType
	s.lastData = data
	return "https://cdn.example.com/" + key, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.FrontendURL = "http://localhost:3000"
	cfg.App.JWT.Secret = "test-secret"
	cfg.App.JWT.ExpireDays = 7
	cfg.Security.OtpTTLMinutes = 10
	cfg.Security.ResetTTLMinutes = 15
	return cfg
}

func newTestAuthService(t *testing.T) (AuthService, *fakeUserRepo, *fakeMailer) {
	t.Helper()
	repo := newFakeUserRepo()
	mail := &fakeMailer{}
	svc := NewAuthService(repo, token.NewManager("test-secret", 7), mail, &fakeImageStore{}, testConfig(), zap.NewNop())
	return svc, repo, mail
}

func register(t *testing.T, svc AuthService, email string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)

	user := register(t, svc, "alice@example.com")

	stored := repo.users[user.ID]
	require.NotNil(t, stored)
	assert.False(t, stored.IsVerified)
	assert.True(t, stored.IsActive)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.Equal(t, models.DefaultAvatar, stored.Avatar)

	// password stored hashed, never plaintext
	assert.NotEqual(t, "password123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))

	// OTP stored and mailed
	assert.GreaterOrEqual(t, stored.VerificationCode, 10000)
	assert.LessOrEqual(t, stored.VerificationCode, 99999)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), stored.VerificationCodeExpire, time.Minute)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].html, fmt.Sprintf("%d", stored.VerificationCode))
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)

	user := register(t, svc, "  Alice@Example.COM ")
	assert.Equal(t, "alice@example.com", repo.users[user.ID].Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	register(t, svc, "alice@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "alice@example.com", Password: "password456",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterDuplicatePendingEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	first := register(t, svc, "alice@example.com")
	firstCode := repo.users[first.ID].VerificationCode

	// a second registration must not silently replace the pending one
	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Impostor", Email: "alice@example.com", Password: "other-pass",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, firstCode, repo.users[first.ID].VerificationCode)
	assert.Equal(t, "Test User", repo.users[first.ID].Name)
}

func TestRegisterDuplicateKeyRace(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)

	// two concurrent registrations can both pass the existence pre-check;
	// the loser's insert then trips the unique email index
	repo.createErr = duplicateKeyErr

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterEmailFailureDeletesAccount(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	mail.fail = true

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailDelivery)
	assert.Empty(t, repo.users)
}

func TestVerifyOTP(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	code := repo.users[user.ID].VerificationCode

	verified, tok, err := svc.VerifyOTP(context.Background(), "alice@example.com", code)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.NotEmpty(t, tok)

	stored := repo.users[user.ID]
	assert.True(t, stored.IsVerified)
	assert.Zero(t, stored.VerificationCode)
	assert.True(t, stored.VerificationCodeExpire.IsZero())
}

func TestVerifyOTPWrongCode(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	code := repo.users[user.ID].VerificationCode

	wrong := code + 1
	if wrong > 99999 {
		wrong = 10000
	}
	_, _, err := svc.VerifyOTP(context.Background(), "alice@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	// account survives a wrong guess
	assert.False(t, repo.users[user.ID].IsVerified)
}

func TestVerifyOTPExpiredDeletesAccount(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	code := repo.users[user.ID].VerificationCode
	repo.users[user.ID].VerificationCodeExpire = time.Now().Add(-time.Minute)

	_, _, err := svc.VerifyOTP(context.Background(), "alice@example.com", code)
	assert.ErrorIs(t, err, ErrOTPExpired)
	assert.Empty(t, repo.users)
}

func TestVerifyOTPNoPending(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, _, err := svc.VerifyOTP(context.Background(), "nobody@example.com", 12345)
	assert.ErrorIs(t, err, ErrNoPendingVerification)
}

func TestResendOTPReplacesCode(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	first := repo.users[user.ID].VerificationCode

	require.NoError(t, svc.ResendOTP(context.Background(), "alice@example.com"))
	second := repo.users[user.ID].VerificationCode
	assert.Len(t, mail.sent, 2)

	// the old code no longer redeems once a new one was issued
	if first != second {
		_, _, err := svc.VerifyOTP(context.Background(), "alice@example.com", first)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, _, err := svc.VerifyOTP(context.Background(), "alice@example.com", second)
	assert.NoError(t, err)
}

func TestResendOTPNoPending(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	err := svc.ResendOTP(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNoPendingVerification)
}

func verifyAccount(t *testing.T, svc AuthService, repo *fakeUserRepo, user *models.User) {
	t.Helper()
	_, _, err := svc.VerifyOTP(context.Background(), user.Email, repo.users[user.ID].VerificationCode)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	logged, tok, err := svc.Login(context.Background(), "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, tok)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnverified(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	register(t, svc, "alice@example.com")

	// an unverified account looks like an unknown email
	_, _, err := svc.Login(context.Background(), "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactive(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)
	repo.users[user.ID].IsActive = false

	_, _, err := svc.Login(context.Background(), "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestChangePassword(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	before := repo.users[user.ID].TokenValidAfter
	_, tok, err := svc.ChangePassword(context.Background(), user.ID, "password123", "new-password-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	stored := repo.users[user.ID]
	assert.True(t, stored.TokenValidAfter.After(before))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("new-password-1")))

	_, _, err = svc.Login(context.Background(), "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(context.Background(), "alice@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	_, _, err := svc.ChangePassword(context.Background(), user.ID, "wrong", "new-password-1")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
}

var resetURLRe = regexp.MustCompile(`/password/reset/([0-9a-f]{64})`)

func extractResetToken(t *testing.T, mail *fakeMailer) string {
	t.Helper()
	last := mail.sent[len(mail.sent)-1]
	m := resetURLRe.FindStringSubmatch(last.html)
	require.Len(t, m, 2, "reset email must contain the reset link")
	return m[1]
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	raw := extractResetToken(t, mail)

	// only the digest is stored
	stored := repo.users[user.ID]
	assert.NotEmpty(t, stored.ResetPasswordToken)
	assert.NotEqual(t, raw, stored.ResetPasswordToken)
	assert.False(t, strings.Contains(stored.ResetPasswordToken, raw))

	_, tok, err := svc.ResetPassword(context.Background(), raw, "brand-new-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, _, err = svc.Login(context.Background(), "alice@example.com", "brand-new-pass")
	assert.NoError(t, err)

	// single use
	_, _, err = svc.ResetPassword(context.Background(), raw, "another-pass")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestForgotPasswordEmailFailureClearsToken(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)
	mail.fail = true

	err := svc.ForgotPassword(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrEmailDelivery)
	assert.Empty(t, repo.users[user.ID].ResetPasswordToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	raw := extractResetToken(t, mail)
	repo.users[user.ID].ResetPasswordExpire = time.Now().Add(-time.Minute)

	_, _, err := svc.ResetPassword(context.Background(), raw, "brand-new-pass")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPasswordBogusToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, _, err := svc.ResetPassword(context.Background(), strings.Repeat("ab", 32), "brand-new-pass")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestDeleteAccount(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	require.NoError(t, svc.DeleteAccount(context.Background(), user.ID, "password123"))
	assert.Empty(t, repo.users)
}

func TestDeleteAccountWrongPassword(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	err := svc.DeleteAccount(context.Background(), user.ID, "wrong")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	assert.Len(t, repo.users, 1)
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)

	name := "New Name"
	bio := "New bio"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, &name, &bio)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "New bio", updated.Bio)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestUploadAvatarResizes(t *testing.T) {
	repo := newFakeUserRepo()
	images := &fakeImageStore{}
	svc := NewAuthService(repo, token.NewManager("test-secret", 7), &fakeMailer{}, images, testConfig(), zap.NewNop())

	user := register(t, svc, "alice@example.com")

	url, err := svc.UploadAvatar(context.Background(), user.ID, "image/png", pngBytes(t, 640, 480))
	require.NoError(t, err)
	assert.Contains(t, images.lastKey, "profile-images/profile_"+user.ID.Hex())
	assert.Equal(t, url, repo.users[user.ID].Avatar)

	// stored as a width-bounded JPEG
	assert.Equal(t, "image/jpeg", images.lastType)
	decoded, err := jpeg.Decode(bytes.NewReader(images.lastData))
	require.NoError(t, err)
	assert.Equal(t, 320, decoded.Bounds().Dx())
	assert.Equal(t, 240, decoded.Bounds().Dy())
}

func TestUploadAvatarKeepsUndecodableOriginal(t *testing.T) {
	repo := newFakeUserRepo()
	images := &fakeImageStore{}
	svc := NewAuthService(repo, token.NewManager("test-secret", 7), &fakeMailer{}, images, testConfig(), zap.NewNop())

	user := register(t, svc, "alice@example.com")

	raw := []byte{1, 2, 3}
	_, err := svc.UploadAvatar(context.Background(), user.ID, "image/webp", raw)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", images.lastType)
	assert.Equal(t, raw, images.lastData)
}

func TestGetPublicProfileInactive(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	user := register(t, svc, "alice@example.com")
	verifyAccount(t, svc, repo, user)
	repo.users[user.ID].IsActive = false

	_, err := svc.GetPublicProfile(context.Background(), user.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
