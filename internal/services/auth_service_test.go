package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func newAuthService(t *testing.T) (*AuthService, *repository.MemoryStore) {
	t.Helper()
	utils.SetJWTSecret("test-secret")

	store := repository.NewMemoryStore()
	cfg := &config.Config{
		JWT:     config.JWTConfig{AccessTokenTTL: 1, RefreshTokenTTL: 24},
		Session: config.SessionConfig{TTLHours: 1, CaptchaTTL: 10},
		Security: config.SecurityConfig{
			LoginCaptchaThreshold: 3,
			LoginLockThreshold:    5,
			LoginLockMinutes:      15,
		},
	}
	return NewAuthService(store, cfg), store
}

func register(t *testing.T, s *AuthService) *AuthResponse {
	t.Helper()
	resp, err := s.Register(context.Background(), &RegisterRequest{
		Email:     "Jane@Example.com ",
		Password:  "Secret123!",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	return resp
}

func solveCaptcha(t *testing.T, s *AuthService) (string, string) {
	t.Helper()
	challenge, err := s.NewCaptcha(context.Background())
	require.NoError(t, err)

	var a, b int
	_, err = fmt.Sscanf(challenge.Question, "What is %d + %d?", &a, &b)
	require.NoError(t, err)
	return challenge.CaptchaID.String(), fmt.Sprint(a + b)
}

func TestRegisterCreatesSession(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()

	resp := register(t, s)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.Session)

	user, err := s.ResolveSession(ctx, resp.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = s.Register(ctx, &RegisterRequest{Email: "jane@example.com", Password: "Secret123!", FirstName: "J", LastName: "D"})
	requireKind(t, err, apperrors.KindConflict)
}

func TestLogoutEndsSession(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	resp := register(t, s)

	require.NoError(t, s.Logout(ctx, resp.Session.ID))
	_, err := s.ResolveSession(ctx, resp.Session.ID)
	requireKind(t, err, apperrors.KindAuthenticationRequired)
}

func TestLoginCaptchaAndLockout(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	register(t, s)

	wrong := &LoginRequest{Email: "jane@example.com", Password: "nope"}
	for i := 0; i < 3; i++ {
		_, err := s.Login(ctx, wrong)
		requireKind(t, err, apperrors.KindAuthenticationRequired)
	}

	_, err := s.Login(ctx, wrong)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CAPTCHA_REQUIRED", appErr.Code)

	id, answer := solveCaptcha(t, s)
	_, err = s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "nope", CaptchaID: id, CaptchaAnswer: answer})
	requireKind(t, err, apperrors.KindAuthenticationRequired)

	// A used captcha cannot be replayed.
	_, err = s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "Secret123!", CaptchaID: id, CaptchaAnswer: answer})
	appErr, _ = apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CAPTCHA_INVALID", appErr.Code)

	id, answer = solveCaptcha(t, s)
	_, err = s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "nope", CaptchaID: id, CaptchaAnswer: answer})
	requireKind(t, err, apperrors.KindLocked)

	_, err = s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "Secret123!"})
	requireKind(t, err, apperrors.KindLocked)

	s.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	resp, err := s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginWrongCaptchaAnswer(t *testing.T) {
	s, store := newAuthService(t)
	ctx := context.Background()
	resp := register(t, s)

	resp.User.LoginAttempts = 3
	require.NoError(t, store.UpdateUser(ctx, resp.User))

	id, _ := solveCaptcha(t, s)
	_, err := s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "Secret123!", CaptchaID: id, CaptchaAnswer: "99"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CAPTCHA_INVALID", appErr.Code)
}

func TestRefreshToken(t *testing.T) {
	s, _ := newAuthService(t)
	resp := register(t, s)

	refreshed, err := s.RefreshToken(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Nil(t, refreshed.Session)

	_, err = s.RefreshToken(context.Background(), "garbage")
	requireKind(t, err, apperrors.KindAuthenticationRequired)
}

func TestExpiredSessionsAreRejected(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	resp := register(t, s)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := s.ResolveSession(ctx, resp.Session.ID)
	requireKind(t, err, apperrors.KindAuthenticationRequired)

	removed, err := s.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "expired session was already deleted on access")
}
