package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/internal/users"
	pkgauth "github.com/userforge/userforge-backend/pkg/auth"
	"github.com/userforge/userforge-backend/pkg/auth/session"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/security"
)

const resetTokenLength = 48

// Sessions is the refresh session surface the service depends on.
type Sessions interface {
	Generate(ctx context.Context, userID, accessID string) (string, error)
	Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ResetStore holds one-shot password reset tokens.
type ResetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	ResetTokenKey(token string) string
}

// Notifier receives account security events. Delivery failures never fail
// the triggering operation.
type Notifier interface {
	Welcome(ctx context.Context, userID uuid.UUID, displayName string) error
	PasswordChanged(ctx context.Context, userID uuid.UUID) error
	AccountLocked(ctx context.Context, userID uuid.UUID, until time.Time) error
}

// Service exposes the authentication surface.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error)
	Logout(ctx context.Context, accessID string) error
	RequestPasswordReset(ctx context.Context, input ResetRequestInput) (string, error)
	ConfirmPasswordReset(ctx context.Context, input ResetConfirmInput) error
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
}

// ServiceParams packages the dependencies for the auth service.
type ServiceParams struct {
	Users    users.Repository
	Roles    rbac.Repository
	Sessions Sessions
	Reset    ResetStore
	JWT      config.JWTConfig
	Password config.PasswordConfig
	Lockout  config.LockoutConfig
	Logger   *logger.Logger
	Notifier Notifier
}

type service struct {
	users    users.Repository
	roles    rbac.Repository
	sessions Sessions
	reset    ResetStore
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	lockout  config.LockoutConfig
	logg     *logger.Logger
	notifier Notifier
}

// NewService builds an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if params.Roles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rbac repository required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	}
	if params.Reset == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reset token store required")
	}
	return &service{
		users:    params.Users,
		roles:    params.Roles,
		sessions: params.Sessions,
		reset:    params.Reset,
		jwtCfg:   params.JWT,
		pwCfg:    params.Password,
		lockout:  params.Lockout,
		logg:     params.Logger,
		notifier: params.Notifier,
	}, nil
}

// Register creates an account on the default role and signs it in.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	role, err := s.roles.FindRoleByName(ctx, rbac.RoleUser)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find default role")
	}

	passwordHash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		RoleID:       role.ID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	user.Role = role

	if s.notifier != nil {
		if err := s.notifier.Welcome(ctx, user.ID, user.DisplayName); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "welcome notification failed: "+err.Error())
		}
	}

	return s.issue(ctx, user)
}

// Login verifies credentials, enforcing the lockout window.
func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	now := time.Now().UTC()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			"account is locked until "+user.LockedUntil.UTC().Format(time.RFC3339))
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		s.recordFailure(ctx, user, now)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset login failures")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	return s.issue(ctx, user)
}

// Refresh rotates the session tied to an access token. The token may be
// expired; only its signature and jti matter here.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, refreshToken, err := s.sessions.Rotate(ctx, claims.UserID.String(), claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	accessToken, err := s.mint(user, newAccessID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: users.FromModel(user), AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout revokes the refresh session behind one access token.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// RequestPasswordReset stores a one-shot token for the account. Unknown
// addresses return an empty token so the endpoint does not reveal which
// emails are registered.
func (s *service) RequestPasswordReset(ctx context.Context, input ResetRequestInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	token, err := security.GenerateToken(resetTokenLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	err = s.reset.Set(ctx, s.reset.ResetTokenKey(token), user.ID.String(), s.jwtCfg.ResetTokenTTL())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}
	return token, nil
}

// ConfirmPasswordReset redeems a token exactly once and sets the new
// password.
func (s *service) ConfirmPasswordReset(ctx context.Context, input ResetConfirmInput) error {
	raw, err := s.reset.GetDel(ctx, s.reset.ResetTokenKey(input.Token))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	passwordHash, err := security.HashPassword(input.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if err := s.users.ResetLoginFailures(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset login failures")
	}

	s.notifyPasswordChanged(ctx, userID)
	return nil
}

// ChangePassword verifies the current password before rotating it.
func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	passwordHash, err := security.HashPassword(input.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	s.notifyPasswordChanged(ctx, userID)
	return nil
}

// recordFailure bumps the failed-login counter and raises the lockout
// notification when the attempt crossed the threshold.
func (s *service) recordFailure(ctx context.Context, user *models.User, now time.Time) {
	lockUntil := now.Add(s.lockout.LockDuration)
	if err := s.users.RegisterFailedLogin(ctx, user.ID, s.lockout.MaxFailedAttempts, lockUntil); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "register failed login", err)
		}
		return
	}

	if user.FailedLoginAttempts+1 >= s.lockout.MaxFailedAttempts && s.notifier != nil {
		if err := s.notifier.AccountLocked(ctx, user.ID, lockUntil); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "lockout notification failed: "+err.Error())
		}
	}
}

func (s *service) notifyPasswordChanged(ctx context.Context, userID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PasswordChanged(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "password change notification failed: "+err.Error())
	}
}

// issue starts a fresh session and mints the token pair for the user.
func (s *service) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	accessID := session.NewAccessID()
	refreshToken, err := s.sessions.Generate(ctx, user.ID.String(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	accessToken, err := s.mint(user, accessID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: users.FromModel(user), AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *service) mint(user *models.User, accessID string) (string, error) {
	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
	}
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   roleName,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return accessToken, nil
}
