package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/config"
	"timetrack/api/internal/ids"
	"timetrack/api/internal/metrics"
	"timetrack/api/internal/models"
	"timetrack/api/internal/repository"
	"timetrack/api/internal/security"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	minPasswordLength     = 8
)

// LoginRecorder is notified after every successful login.
type LoginRecorder interface {
	TrackFirstLogin(ctx context.Context, in FirstLoginInput) (FirstLoginResult, error)
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	orgs     OrganizationStore
	logins   LoginRecorder
	hasher   *security.PasswordHasher
	tokens   *security.TokenManager
	cfg      config.SecurityConfig
	metrics  *metrics.Metrics
	log      zerolog.Logger
	clock    Clock
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	orgs OrganizationStore,
	logins LoginRecorder,
	hasher *security.PasswordHasher,
	tokens *security.TokenManager,
	cfg config.SecurityConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		orgs:     orgs,
		logins:   logins,
		hasher:   hasher,
		tokens:   tokens,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}
}

func (s *AuthService) WithClock(c Clock) *AuthService {
	s.clock = c
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

type AuthResult struct {
	User       models.User
	Tokens     security.TokenPair
	SessionID  string
	FirstLogin *FirstLoginResult
}

// Register creates a user account. Public registration always yields the
// user role; elevated roles are granted through admin user management.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return AuthResult{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AuthResult{}, apperr.Validation("Validation failed", apperr.FieldError{Field: "name", Message: "is required"})
	}
	if err := checkPassword("password", in.Password); err != nil {
		return AuthResult{}, err
	}
	if in.Role != "" && in.Role != models.RoleUser {
		s.log.Warn().Str("email", email).Str("requested_role", string(in.Role)).Msg("ignoring elevated role on registration")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, apperr.Conflict("User with this email already exists")
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	user, err = s.users.GetByID(ctx, user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("reload user: %w", err)
	}

	session, tokens, err := s.createSession(ctx, user, "", "")
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return AuthResult{User: user, Tokens: tokens, SessionID: session.ID}, nil
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
	Location  string
}

// Login verifies credentials, applies the lockout policy and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	now := s.clock.now()
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Login("invalid")
			return AuthResult{}, apperr.Auth(msgInvalidCredentials)
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if user.Locked(now) {
		s.metrics.Login("locked")
		minutes := int(math.Ceil(user.LockUntil.Sub(now).Minutes()))
		return AuthResult{}, apperr.Locked(fmt.Sprintf(
			"Account is temporarily locked due to too many failed login attempts. Try again in %d minutes", minutes))
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil && !errors.Is(err, security.ErrMalformedHash) {
		return AuthResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.Login("invalid")
		if err := s.recordFailure(ctx, user, now); err != nil {
			return AuthResult{}, err
		}
		return AuthResult{}, apperr.Auth(msgInvalidCredentials)
	}

	if !user.IsActive {
		s.metrics.Login("inactive")
		return AuthResult{}, apperr.Forbidden("Account is deactivated")
	}

	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		return AuthResult{}, fmt.Errorf("record login: %w", err)
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now

	session, tokens, err := s.createSession(ctx, user, in.IPAddress, in.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}

	result := AuthResult{User: user, Tokens: tokens, SessionID: session.ID}
	first, err := s.logins.TrackFirstLogin(ctx, FirstLoginInput{
		UserID:    user.ID,
		LoginTime: now,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Location:  strings.TrimSpace(in.Location),
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("daily login tracking failed")
	} else {
		result.FirstLogin = &first
	}

	s.metrics.Login("success")
	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("user logged in")
	return result, nil
}

func (s *AuthService) recordFailure(ctx context.Context, user models.User, now time.Time) error {
	attempts, err := s.users.RecordFailedLogin(ctx, user.ID, now)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	if attempts < s.cfg.MaxLoginAttempts {
		return nil
	}

	until := now.Add(s.cfg.LockoutDuration)
	if err := s.users.Lock(ctx, user.ID, until); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	s.metrics.Lockout()
	s.log.Warn().
		Str("user_id", user.ID).
		Int("attempts", attempts).
		Time("lock_until", until).
		Msg("account locked after failed logins")
	return nil
}

func (s *AuthService) createSession(ctx context.Context, user models.User, ip, userAgent string) (models.Session, security.TokenPair, error) {
	now := s.clock.now()
	sessionID := ids.New()
	tokens, err := s.tokens.Issue(user.ID, sessionID, string(user.Role))
	if err != nil {
		return models.Session{}, security.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	session := models.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: security.HashToken(tokens.RefreshToken),
		IPAddress:        ip,
		UserAgent:        userAgent,
		CreatedAt:        now,
		LastSeenAt:       now,
		ExpiresAt:        tokens.RefreshExpiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return models.Session{}, security.TokenPair{}, fmt.Errorf("create session: %w", err)
	}
	return session, tokens, nil
}

// Refresh exchanges a refresh token for a new token pair. Each refresh token
// is accepted once; the session stores only the hash of the current one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return AuthResult{}, apperr.Auth("Invalid or expired refresh token")
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, apperr.Auth("Session has been revoked")
		}
		return AuthResult{}, fmt.Errorf("load session: %w", err)
	}
	if session.UserID != claims.UserID || !session.ExpiresAt.After(s.clock.now()) {
		return AuthResult{}, apperr.Auth("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return AuthResult{}, notFound(err, "load user", "User not found")
	}
	if !user.IsActive {
		return AuthResult{}, apperr.Forbidden("Account is deactivated")
	}

	tokens, err := s.tokens.Issue(user.ID, session.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	err = s.sessions.Rotate(ctx, session.ID,
		security.HashToken(refreshToken),
		security.HashToken(tokens.RefreshToken),
		tokens.RefreshExpiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Str("session_id", session.ID).Msg("refresh token reuse rejected")
			return AuthResult{}, apperr.Auth("Refresh token has already been used")
		}
		return AuthResult{}, fmt.Errorf("rotate session: %w", err)
	}

	return AuthResult{User: user, Tokens: tokens, SessionID: session.ID}, nil
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User      models.User
	SessionID string
}

// Authenticate resolves a bearer access token to its user. The session must
// still exist, so logout revokes outstanding access tokens. A successful call
// marks the session as seen from ip and userAgent.
func (s *AuthService) Authenticate(ctx context.Context, accessToken, ip, userAgent string) (Principal, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return Principal{}, apperr.Auth("Token expired")
		}
		return Principal{}, apperr.Auth("Invalid token")
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, apperr.Auth("Session has been revoked")
		}
		return Principal{}, fmt.Errorf("load session: %w", err)
	}
	if session.UserID != claims.UserID {
		return Principal{}, apperr.Auth("Invalid token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, apperr.Auth("Invalid token")
		}
		return Principal{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return Principal{}, apperr.Auth("Account is deactivated")
	}

	if err := s.sessions.Touch(ctx, session.ID, ip, userAgent, s.clock.now()); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("touch session failed")
	}
	return Principal{User: user, SessionID: session.ID}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.DeleteByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions returns the live sessions of a user, most recently seen first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, s.clock.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession ends another session of the caller. The current session is
// closed through Logout instead.
func (s *AuthService) RevokeSession(ctx context.Context, caller Principal, sessionID string) error {
	if sessionID == caller.SessionID {
		return apperr.Conflict("Cannot revoke the current session; use logout instead")
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return notFound(err, "load session", "Session not found")
	}
	if session.UserID != caller.User.ID {
		return apperr.NotFound("Session not found")
	}
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return notFound(err, "delete session", "Session not found")
	}
	s.log.Info().Str("user_id", caller.User.ID).Str("session_id", sessionID).Msg("session revoked")
	return nil
}

type Profile struct {
	User          models.User
	Organizations []models.Organization
}

func (s *AuthService) Me(ctx context.Context, userID string) (Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, notFound(err, "load user", "User not found")
	}
	orgs, err := s.orgs.ListForUser(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("list organizations: %w", err)
	}
	return Profile{User: user, Organizations: orgs}, nil
}

type ChangePasswordInput struct {
	UserID          string
	SessionID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePassword replaces the password and revokes every other session.
func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if err := checkPassword("newPassword", in.NewPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return notFound(err, "load user", "User not found")
	}

	ok, err := s.hasher.Verify(in.CurrentPassword, user.PasswordHash)
	if err != nil && !errors.Is(err, security.ErrMalformedHash) {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return apperr.Validation("Current password is incorrect",
			apperr.FieldError{Field: "currentPassword", Message: "is incorrect"})
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.sessions.DeleteByUserExcept(ctx, user.ID, in.SessionID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// PurgeExpiredSessions removes sessions whose refresh token has expired.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.clock.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	s.metrics.Purged(n)
	return n, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("Validation failed",
			apperr.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	return email, nil
}

func checkPassword(field, password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("Validation failed", apperr.FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters", minPasswordLength),
		})
	}
	return nil
}
