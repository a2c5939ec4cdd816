package profiles

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/query"
)

const minBirthYear = 1900

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes profile reads and writes with visibility filtering.
type Service interface {
	Get(ctx context.Context, caller rbac.Caller, userID uuid.UUID) (*ProfileDTO, error)
	Upsert(ctx context.Context, caller rbac.Caller, userID uuid.UUID, input UpsertProfileInput) (*ProfileDTO, error)
	Delete(ctx context.Context, caller rbac.Caller, userID uuid.UUID) error
	List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[ProfileDTO], error)
}

// ServiceParams packages the dependencies for the profiles service.
type ServiceParams struct {
	Repo   Repository
	Users  userFinder
	Guard  *rbac.Guard
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	users userFinder
	guard *rbac.Guard
	logg  *logger.Logger
}

// NewService builds a profiles service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profiles repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authorization guard required")
	}
	return &service{
		repo:  params.Repo,
		users: params.Users,
		guard: params.Guard,
		logg:  params.Logger,
	}, nil
}

// Get returns a profile. Owners and privileged viewers see everything;
// everyone else sees public profiles through the privacy flags. The
// guard runs before the row is touched.
func (s *service) Get(ctx context.Context, caller rbac.Caller, userID uuid.UUID) (*ProfileDTO, error) {
	full := true
	if authErr := s.guard.Authorize(ctx, caller, rbac.ResourceProfiles, rbac.ActionRead, &userID); authErr != nil {
		appErr := pkgerrors.As(authErr)
		if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
			return nil, authErr
		}
		full = false
	}

	profile, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !full && !profile.IsPublic {
		// A private profile looks exactly like a missing one to callers
		// without read permission.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	return s.view(ctx, profile, full), nil
}

func (s *service) Upsert(ctx context.Context, caller rbac.Caller, userID uuid.UUID, input UpsertProfileInput) (*ProfileDTO, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceProfiles, rbac.ActionUpdate, &userID); err != nil {
		return nil, err
	}

	if input.BirthYear != nil {
		year := *input.BirthYear
		if year < minBirthYear || year > time.Now().UTC().Year() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "birth_year out of range")
		}
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	profile, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if err := applyInput(profile, input); err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, profile); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
		}
	case db.IsNotFound(err):
		profile = &models.UserProfile{UserID: userID, IsPublic: true}
		if err := applyInput(profile, input); err != nil {
			return nil, err
		}
		if profile, err = s.repo.Create(ctx, profile); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find profile")
	}

	return s.view(ctx, profile, true), nil
}

func (s *service) Delete(ctx context.Context, caller rbac.Caller, userID uuid.UUID) error {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceProfiles, rbac.ActionDelete, &userID); err != nil {
		return err
	}
	if _, err := s.find(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete profile")
	}
	return nil
}

// List returns one page of profiles. Contact fields stay subject to each
// owner's privacy flags regardless of the viewer.
func (s *service) List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[ProfileDTO], error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceProfiles, rbac.ActionList, nil); err != nil {
		return nil, err
	}

	params := query.ParseParams(values, listOptions())
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list profiles")
	}

	views := make([]ProfileDTO, 0, len(page.Data))
	for i := range page.Data {
		views = append(views, *s.view(ctx, &page.Data[i], false))
	}
	return &query.Page[ProfileDTO]{Data: views, Pagination: page.Pagination}, nil
}

func (s *service) find(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find profile")
	}
	return profile, nil
}

// view builds the transport shape, filling contact fields per the privacy
// flags. Full viewers (owner, privileged roles) bypass the flags.
func (s *service) view(ctx context.Context, profile *models.UserProfile, full bool) *ProfileDTO {
	dto := FromModel(profile)

	if full || profile.ShowPhone {
		dto.Phone = profile.Phone
	}
	if full || profile.ShowEmail {
		if user, err := s.users.FindByID(ctx, profile.UserID); err == nil {
			email := user.Email
			dto.Email = &email
		} else if s.logg != nil {
			s.logg.Warn(ctx, "profile view could not resolve owner email: "+err.Error())
		}
	}
	return dto
}

func applyInput(profile *models.UserProfile, input UpsertProfileInput) error {
	if input.Bio != nil {
		profile.Bio = input.Bio
	}
	if input.Phone != nil {
		profile.Phone = input.Phone
	}
	if input.Location != nil {
		profile.Location = input.Location
	}
	if input.Company != nil {
		profile.Company = input.Company
	}
	if input.JobTitle != nil {
		profile.JobTitle = input.JobTitle
	}
	if input.Website != nil {
		profile.Website = input.Website
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = input.AvatarURL
	}
	if input.BirthYear != nil {
		profile.BirthYear = input.BirthYear
	}
	if input.IsPublic != nil {
		profile.IsPublic = *input.IsPublic
	}
	if input.ShowEmail != nil {
		profile.ShowEmail = *input.ShowEmail
	}
	if input.ShowPhone != nil {
		profile.ShowPhone = *input.ShowPhone
	}

	if input.Address != nil {
		encoded, err := encodeJSON(input.Address)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode address")
		}
		profile.Address = encoded
	}
	if input.Preferences != nil {
		encoded, err := encodeJSON(input.Preferences)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode preferences")
		}
		profile.Preferences = encoded
	}
	if input.SocialLinks != nil {
		encoded, err := encodeJSON(input.SocialLinks)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode social_links")
		}
		profile.SocialLinks = encoded
	}
	return nil
}
