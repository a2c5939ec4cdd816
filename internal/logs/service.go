package logs

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/query"
)

// Service exposes the audit log surface.
type Service interface {
	List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[LogEntryDTO], error)
	Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*LogEntryDTO, error)
	Purge(ctx context.Context, caller rbac.Caller, before time.Time) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// ServiceParams packages the dependencies for the logs service.
type ServiceParams struct {
	Repo   Repository
	Guard  *rbac.Guard
	Config config.LogsConfig
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	guard *rbac.Guard
	cfg   config.LogsConfig
	logg  *logger.Logger
}

// NewService builds a logs service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logs repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authorization guard required")
	}
	return &service{
		repo:  params.Repo,
		guard: params.Guard,
		cfg:   params.Config,
		logg:  params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[LogEntryDTO], error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceLogs, rbac.ActionList, nil); err != nil {
		return nil, err
	}

	params := query.ParseParams(values, listOptions())
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list log entries")
	}

	views := make([]LogEntryDTO, 0, len(page.Data))
	for i := range page.Data {
		views = append(views, *FromModel(&page.Data[i]))
	}
	return &query.Page[LogEntryDTO]{Data: views, Pagination: page.Pagination}, nil
}

// Get returns one audit entry. The subject of an entry may read it
// through the ownership rule even without a logs grant.
func (s *service) Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*LogEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "log entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find log entry")
	}
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceLogs, rbac.ActionRead, entry.UserID); err != nil {
		return nil, err
	}
	return FromModel(entry), nil
}

// Purge removes entries older than the given time on explicit request.
func (s *service) Purge(ctx context.Context, caller rbac.Caller, before time.Time) (int64, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceLogs, rbac.ActionDelete, nil); err != nil {
		return 0, err
	}
	removed, err := s.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purge log entries")
	}
	return removed, nil
}

// DeleteExpired applies the configured retention window. The cron worker
// calls this on every retention cycle.
func (s *service) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply log retention")
	}
	if removed > 0 && s.logg != nil {
		s.logg.Info(ctx, "log retention removed expired entries")
	}
	return removed, nil
}
