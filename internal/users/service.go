package users

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/query"
	"github.com/userforge/userforge-backend/pkg/security"
)

// Notifier receives account lifecycle events. Implementations must not
// block; failures are logged and never fail the triggering operation.
type Notifier interface {
	RoleChanged(ctx context.Context, userID uuid.UUID, newRole string) error
	AccountStateChanged(ctx context.Context, userID uuid.UUID, active bool) error
}

// SessionRevoker drops every live session a user holds. Deactivation
// revokes sessions so outstanding access tokens stop passing the
// middleware session check immediately instead of running out their TTL.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

// Service exposes account management on top of the repository and guard.
type Service interface {
	Create(ctx context.Context, caller rbac.Caller, input CreateUserInput) (*UserDTO, error)
	Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[UserDTO], error)
	Update(ctx context.Context, caller rbac.Caller, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, caller rbac.Caller, id uuid.UUID) error
	SetActive(ctx context.Context, caller rbac.Caller, id uuid.UUID, active bool) (*UserDTO, error)
	ChangeRole(ctx context.Context, caller rbac.Caller, id uuid.UUID, input ChangeRoleInput) (*UserDTO, error)
}

// ServiceParams packages the dependencies for the users service.
type ServiceParams struct {
	Repo     Repository
	Roles    rbac.Repository
	Guard    *rbac.Guard
	Password config.PasswordConfig
	Logger   *logger.Logger
	Notifier Notifier
	Sessions SessionRevoker
}

type service struct {
	repo        Repository
	roles       rbac.Repository
	guard       *rbac.Guard
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	notifier    Notifier
	sessions    SessionRevoker
}

// NewService builds a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if params.Roles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rbac repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authorization guard required")
	}
	return &service{
		repo:        params.Repo,
		roles:       params.Roles,
		guard:       params.Guard,
		passwordCfg: params.Password,
		logg:        params.Logger,
		notifier:    params.Notifier,
		sessions:    params.Sessions,
	}, nil
}

func (s *service) Create(ctx context.Context, caller rbac.Caller, input CreateUserInput) (*UserDTO, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, rbac.ActionCreate, nil); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	roleName := input.Role
	if roleName == "" {
		roleName = rbac.RoleUser
	}
	role, err := s.roles.FindRoleByName(ctx, roleName)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role "+roleName)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find role")
	}

	passwordHash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
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
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*UserDTO, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, rbac.ActionRead, &id); err != nil {
		return nil, err
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[UserDTO], error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, rbac.ActionList, nil); err != nil {
		return nil, err
	}

	params := query.ParseParams(values, listOptions())
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	views := make([]UserDTO, 0, len(page.Data))
	for i := range page.Data {
		views = append(views, *FromModel(&page.Data[i]))
	}
	return &query.Page[UserDTO]{Data: views, Pagination: page.Pagination}, nil
}

func (s *service) Update(ctx context.Context, caller rbac.Caller, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, rbac.ActionUpdate, &id); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		updates["email"] = email
		// A new address starts unverified.
		updates["email_verified"] = false
	}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display_name cannot be empty")
		}
		updates["display_name"] = name
	}

	if err := s.repo.UpdateFields(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Delete(ctx context.Context, caller rbac.Caller, id uuid.UUID) error {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, rbac.ActionDelete, &id); err != nil {
		return err
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.refuseIfLastAdmin(ctx, user, "delete"); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}
	return nil
}

func (s *service) SetActive(ctx context.Context, caller rbac.Caller, id uuid.UUID, active bool) (*UserDTO, error) {
	action := rbac.ActionActivate
	if !active {
		action = rbac.ActionDeactivate
	}
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, action, &id); err != nil {
		return nil, err
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return FromModel(user), nil
	}
	if !active {
		if err := s.refuseIfLastAdmin(ctx, user, "deactivate"); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set user active state")
	}
	if !active && s.sessions != nil {
		// Kill live sessions so outstanding access tokens fail the
		// middleware session check on their next request.
		if err := s.sessions.RevokeAll(ctx, id.String()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke user sessions")
		}
	}
	s.notifyStateChange(ctx, id, active)

	user, err = s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) ChangeRole(ctx context.Context, caller rbac.Caller, id uuid.UUID, input ChangeRoleInput) (*UserDTO, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceUsers, rbac.ActionManageRoles, &id); err != nil {
		return nil, err
	}

	role, err := s.roles.FindRoleByName(ctx, input.Role)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role "+input.Role)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find role")
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.RoleID == role.ID {
		return FromModel(user), nil
	}
	if role.Name != rbac.RoleAdmin {
		if err := s.refuseIfLastAdmin(ctx, user, "demote"); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateRole(ctx, id, role.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "change user role")
	}
	s.notifyRoleChange(ctx, id, role.Name)

	user, err = s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}
	return user, nil
}

// refuseIfLastAdmin blocks operations that would leave the system without
// an active admin account.
func (s *service) refuseIfLastAdmin(ctx context.Context, user *models.User, operation string) error {
	if user.Role == nil || user.Role.Name != rbac.RoleAdmin || !user.IsActive {
		return nil
	}
	others, err := s.repo.CountOtherActiveAdmins(ctx, user.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count active admins")
	}
	if others == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot "+operation+" the last active admin")
	}
	return nil
}

func (s *service) notifyRoleChange(ctx context.Context, userID uuid.UUID, role string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.RoleChanged(ctx, userID, role); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "role change notification failed: "+err.Error())
	}
}

func (s *service) notifyStateChange(ctx context.Context, userID uuid.UUID, active bool) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AccountStateChanged(ctx, userID, active); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "account state notification failed: "+err.Error())
	}
}
