// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type AuthService struct {
	store  repository.Store
	config *config.Config
	now    func() time.Time
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,strong_password"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=50"`
}

type LoginRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	CaptchaID     string `json:"captcha_id,omitempty"`
	CaptchaAnswer string `json:"captcha_answer,omitempty"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`

	Session *models.Session `json:"-"`
}

type CaptchaChallenge struct {
	CaptchaID uuid.UUID `json:"captcha_id"`
	Question  string    `json:"question"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthService(store repository.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("an account with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user := &models.User{
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      models.UserRoleUser,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithField("user_id", user.ID).Info("User registered")
	return s.startSession(ctx, user)
}

// Login checks credentials, asking for a captcha after repeated failures
// and locking the account after more.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	now := s.now()
	security := s.config.Security

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.AuthenticationRequired("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.IsLocked(now) {
		return nil, apperrors.Locked("account is temporarily locked, please try again later")
	}

	if security.LoginCaptchaThreshold > 0 && user.LoginAttempts >= security.LoginCaptchaThreshold {
		if req.CaptchaID == "" {
			return nil, apperrors.CaptchaRequired("please complete the captcha")
		}
		if err := s.verifyCaptcha(ctx, req.CaptchaID, req.CaptchaAnswer); err != nil {
			return nil, err
		}
	}

	if !user.CheckPassword(req.Password) {
		return nil, s.recordFailedLogin(ctx, user, now)
	}

	if user.LoginAttempts != 0 || user.LockUntil != nil {
		user.LoginAttempts = 0
		user.LockUntil = nil
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to reset login attempts: %w", err)
		}
	}

	logrus.WithField("user_id", user.ID).Info("User logged in")
	return s.startSession(ctx, user)
}

func (s *AuthService) recordFailedLogin(ctx context.Context, user *models.User, now time.Time) error {
	security := s.config.Security
	user.LoginAttempts++

	locked := security.LoginLockThreshold > 0 && user.LoginAttempts >= security.LoginLockThreshold
	if locked {
		until := now.Add(time.Duration(security.LoginLockMinutes) * time.Minute)
		user.LockUntil = &until
		user.LoginAttempts = 0
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	if locked {
		logrus.WithField("user_id", user.ID).Warn("Account locked after failed logins")
		return apperrors.Locked("account is temporarily locked, please try again later")
	}
	return apperrors.AuthenticationRequired("invalid email or password")
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.AuthenticationRequired("invalid refresh token")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperrors.AuthenticationRequired("invalid refresh token")
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.AuthenticationRequired("invalid refresh token")
		}
		return nil, err
	}
	if user.IsLocked(s.now()) {
		return nil, apperrors.Locked("account is temporarily locked, please try again later")
	}

	return s.issueTokens(user, nil)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// NewCaptcha stores a small arithmetic challenge on an anonymous session.
func (s *AuthService) NewCaptcha(ctx context.Context) (*CaptchaChallenge, error) {
	a, err := utils.RandomInt(1, 9)
	if err != nil {
		return nil, err
	}
	b, err := utils.RandomInt(1, 9)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.New(),
		ExpiresAt: s.now().Add(time.Duration(s.config.Session.CaptchaTTL) * time.Minute),
	}
	session.CaptchaAnswerHash = captchaHash(session.ID, strconv.Itoa(a+b))

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create captcha: %w", err)
	}

	return &CaptchaChallenge{
		CaptchaID: session.ID,
		Question:  fmt.Sprintf("What is %d + %d?", a, b),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// verifyCaptcha consumes the challenge whatever the answer.
func (s *AuthService) verifyCaptcha(ctx context.Context, captchaID, answer string) error {
	id, err := uuid.Parse(captchaID)
	if err != nil {
		return apperrors.CaptchaInvalid("captcha answer is incorrect")
	}

	session, err := s.store.GetSession(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.CaptchaInvalid("captcha has expired, please request a new one")
	}
	if err != nil {
		return fmt.Errorf("failed to load captcha: %w", err)
	}
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to consume captcha: %w", err)
	}

	if session.UserID != nil || session.Expired(s.now()) {
		return apperrors.CaptchaInvalid("captcha has expired, please request a new one")
	}
	if session.CaptchaAnswerHash != captchaHash(id, strings.TrimSpace(answer)) {
		return apperrors.CaptchaInvalid("captcha answer is incorrect")
	}
	return nil
}

// ResolveSession returns the user behind a session cookie.
func (s *AuthService) ResolveSession(ctx context.Context, sessionID uuid.UUID) (*models.User, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.AuthenticationRequired("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID == nil {
		return nil, apperrors.AuthenticationRequired("session not found")
	}
	if session.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, sessionID); err != nil {
			logrus.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, apperrors.AuthenticationRequired("session expired")
	}

	user, err := s.store.GetUserByID(ctx, *session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.AuthenticationRequired("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	userID := user.ID
	session := &models.Session{
		ID:        uuid.New(),
		UserID:    &userID,
		ExpiresAt: s.now().Add(s.config.Session.TTL()),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.issueTokens(user, session)
}

func (s *AuthService) issueTokens(user *models.User, session *models.Session) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.config.JWT.AccessTokenTTL * 3600,
		Session:      session,
	}, nil
}

func captchaHash(id uuid.UUID, answer string) string {
	return utils.HashString(id.String() + ":" + answer)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
